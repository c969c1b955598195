package core

import "errors"

var (
	ErrInvalidTransaction   = errors.New("core: invalid transaction")
	ErrDuplicateTransaction = errors.New("core: transaction already processed")
	ErrNonceMismatch        = errors.New("core: nonce mismatch")
	ErrExecutionFailed      = errors.New("core: execution failed")
	ErrReceiptNotFound      = errors.New("core: receipt not found")
)
