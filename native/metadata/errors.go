package metadata

import "errors"

var (
	ErrNilState              = errors.New("metadata: state not configured")
	ErrNameTooLong           = errors.New("metadata: name too long")
	ErrSymbolTooLong         = errors.New("metadata: symbol too long")
	ErrURITooLong            = errors.New("metadata: uri too long")
	ErrInvalidSellerFee      = errors.New("metadata: seller fee basis points exceed 10000")
	ErrTooManyCreators       = errors.New("metadata: too many creators")
	ErrInvalidCreatorShares  = errors.New("metadata: creator shares must sum to 100")
	ErrDuplicateCreator      = errors.New("metadata: duplicate creator")
	ErrMintNotFound          = errors.New("metadata: mint not found")
	ErrMintAuthorityMismatch = errors.New("metadata: mint authority mismatch")
	ErrUpdateAuthority       = errors.New("metadata: update authority mismatch")
	ErrMetadataExists        = errors.New("metadata: metadata already exists")
	ErrMetadataNotFound      = errors.New("metadata: metadata not found")
	ErrEditionExists         = errors.New("metadata: master edition already exists")
	ErrEditionNotFound       = errors.New("metadata: master edition not found")
	ErrSupplyTooHigh         = errors.New("metadata: mint supply must not exceed one")
	ErrAddressMismatch       = errors.New("metadata: derived address mismatch")
)
