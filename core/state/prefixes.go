package state

var (
	treasureAccountPrefix = []byte("treasure/account/")
	treasureCreatedPrefix = []byte("treasure/created/")
	treasureIndexKey      = []byte("treasure/index")

	tokenMintPrefix    = []byte("token/mint/")
	tokenAccountPrefix = []byte("token/account/")

	metadataPrefix = []byte("metadata/account/")
	editionPrefix  = []byte("metadata/edition/")

	runtimeClockKey  = []byte("runtime/clock")
	runtimeHeightKey = []byte("runtime/height")
	noncePrefix      = []byte("runtime/nonce/")
)
