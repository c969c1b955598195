package token

import "errors"

var (
	ErrNilState            = errors.New("token: state not configured")
	ErrMintExists          = errors.New("token: mint already initialised")
	ErrMintNotFound        = errors.New("token: mint not found")
	ErrAccountNotFound     = errors.New("token: account not found")
	ErrAccountMintMismatch = errors.New("token: account belongs to a different mint")
	ErrAuthorityMismatch   = errors.New("token: mint authority mismatch")
	ErrInvalidAmount       = errors.New("token: amount must be positive")
	ErrSupplyOverflow      = errors.New("token: supply overflow")
	ErrZeroAddress         = errors.New("token: zero address")
)
