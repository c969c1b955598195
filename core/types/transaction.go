package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"treasurehunt/crypto"
)

// TxType defines the purpose of a transaction.
type TxType byte

const (
	TxTypeCreateTreasure   TxType = 0x01 // Register a treasure with its claim token
	TxTypeDiscoverTreasure TxType = 0x02 // Claim a treasure; requires the authority's co-signature
)

// DefaultChainID identifies the local treasure hunt network.
const DefaultChainID = "treasurehunt-local"

var (
	ErrMissingSignature  = errors.New("tx: missing signature")
	ErrInvalidSignature  = errors.New("tx: invalid signature")
	ErrMissingCosigner   = errors.New("tx: co-signer required")
	ErrUnexpectedSigner  = errors.New("tx: key does not match declared signer")
	ErrUnknownTxType     = errors.New("tx: unknown transaction type")
	ErrChainIDMismatch   = errors.New("tx: chain id mismatch")
	ErrEmptyInstructions = errors.New("tx: instruction data required")
)

// String renders the tx type label used in receipts and logs.
func (t TxType) String() string {
	switch t {
	case TxTypeCreateTreasure:
		return "CreateTreasure"
	case TxTypeDiscoverTreasure:
		return "DiscoverTreasure"
	default:
		return fmt.Sprintf("0x%02x", byte(t))
	}
}

// Valid reports whether the type is known to the runtime.
func (t TxType) Valid() bool {
	return t == TxTypeCreateTreasure || t == TxTypeDiscoverTreasure
}

// Transaction carries one program instruction plus the signatures authorising
// it. From is the primary signer and fee payer; Cosigner is an optional second
// signer whose approval the instruction demands (the treasure authority when
// discovering).
type Transaction struct {
	ChainID     string          `json:"chainId"`
	Type        TxType          `json:"type"`
	Nonce       uint64          `json:"nonce"`
	Data        hexutil.Bytes   `json:"data"`
	From        crypto.Address  `json:"from"`
	Cosigner    *crypto.Address `json:"cosigner,omitempty"`
	Sig         hexutil.Bytes   `json:"sig"`
	CosignerSig hexutil.Bytes   `json:"cosignerSig,omitempty"`
}

type signingPayload struct {
	ChainID  string
	Type     uint8
	Nonce    uint64
	Data     []byte
	From     []byte
	Cosigner []byte
}

// NewTransaction builds an unsigned transaction whose Data is the JSON
// encoding of instruction.
func NewTransaction(chainID string, txType TxType, nonce uint64, from crypto.Address, instruction interface{}) (*Transaction, error) {
	if !txType.Valid() {
		return nil, ErrUnknownTxType
	}
	data, err := json.Marshal(instruction)
	if err != nil {
		return nil, fmt.Errorf("tx: encode instruction: %w", err)
	}
	return &Transaction{
		ChainID: strings.TrimSpace(chainID),
		Type:    txType,
		Nonce:   nonce,
		Data:    data,
		From:    from,
	}, nil
}

// SigningHash is the digest every signer signs. It commits to the co-signer
// identity so a signature cannot be replayed with a different co-signer.
func (tx *Transaction) SigningHash() ([]byte, error) {
	payload := signingPayload{
		ChainID: tx.ChainID,
		Type:    uint8(tx.Type),
		Nonce:   tx.Nonce,
		Data:    tx.Data,
		From:    tx.From.Bytes(),
	}
	if tx.Cosigner != nil {
		payload.Cosigner = tx.Cosigner.Bytes()
	}
	encoded, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, err
	}
	return ethcrypto.Keccak256(encoded), nil
}

// Hash identifies the transaction, signatures included.
func (tx *Transaction) Hash() ([]byte, error) {
	digest, err := tx.SigningHash()
	if err != nil {
		return nil, err
	}
	return ethcrypto.Keccak256(digest, tx.Sig, tx.CosignerSig), nil
}

// Sign attaches the primary signature.
func (tx *Transaction) Sign(key *crypto.PrivateKey) error {
	if key.PubKey().Address() != tx.From {
		return ErrUnexpectedSigner
	}
	digest, err := tx.SigningHash()
	if err != nil {
		return err
	}
	tx.Sig = key.Sign(digest)
	return nil
}

// Cosign attaches the co-signer signature. SetCosigner must have been called
// before any signature was produced.
func (tx *Transaction) Cosign(key *crypto.PrivateKey) error {
	if tx.Cosigner == nil {
		return ErrMissingCosigner
	}
	if key.PubKey().Address() != *tx.Cosigner {
		return ErrUnexpectedSigner
	}
	digest, err := tx.SigningHash()
	if err != nil {
		return err
	}
	tx.CosignerSig = key.Sign(digest)
	return nil
}

// SetCosigner declares the co-signer. Existing signatures are cleared since
// the signing hash changes.
func (tx *Transaction) SetCosigner(addr crypto.Address) {
	cosigner := addr
	tx.Cosigner = &cosigner
	tx.Sig = nil
	tx.CosignerSig = nil
}

// VerifySignatures checks the primary signature and, when declared, the
// co-signer signature.
func (tx *Transaction) VerifySignatures() error {
	if len(tx.Sig) == 0 {
		return ErrMissingSignature
	}
	digest, err := tx.SigningHash()
	if err != nil {
		return err
	}
	if !crypto.Verify(tx.From, digest, tx.Sig) {
		return ErrInvalidSignature
	}
	if tx.Cosigner == nil {
		return nil
	}
	if len(tx.CosignerSig) == 0 {
		return fmt.Errorf("%w: co-signer %s", ErrMissingSignature, tx.Cosigner.String())
	}
	if !crypto.Verify(*tx.Cosigner, digest, tx.CosignerSig) {
		return fmt.Errorf("%w: co-signer %s", ErrInvalidSignature, tx.Cosigner.String())
	}
	return nil
}

// Signed reports whether addr authorised the transaction. Signatures are
// assumed to have been verified already.
func (tx *Transaction) Signed(addr crypto.Address) bool {
	if addr == tx.From && len(tx.Sig) > 0 {
		return true
	}
	return tx.Cosigner != nil && *tx.Cosigner == addr && len(tx.CosignerSig) > 0
}

// DecodeData unmarshals the instruction payload.
func (tx *Transaction) DecodeData(out interface{}) error {
	if len(tx.Data) == 0 {
		return ErrEmptyInstructions
	}
	if err := json.Unmarshal(tx.Data, out); err != nil {
		return fmt.Errorf("tx: decode instruction: %w", err)
	}
	return nil
}
