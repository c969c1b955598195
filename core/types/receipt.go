package types

import "github.com/ethereum/go-ethereum/common/hexutil"

const (
	ReceiptStatusSuccess = "success"
	ReceiptStatusFailed  = "failed"
)

// Receipt reflects the final state of an executed transaction. Failed
// transactions leave state untouched; their receipt only records the error.
type Receipt struct {
	TxHash    hexutil.Bytes `json:"txHash"`
	Type      string        `json:"type"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Height    uint64        `json:"height"`
	Timestamp int64         `json:"timestamp"`
	StateRoot hexutil.Bytes `json:"stateRoot,omitempty"`
	Events    []*Event      `json:"events"`
	Logs      []string      `json:"logs,omitempty"`
}

// Succeeded reports whether the transaction committed.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == ReceiptStatusSuccess
}
