package treasure

import "errors"

var (
	// ErrTreasureAlreadyFound is returned when claiming a treasure twice.
	ErrTreasureAlreadyFound = errors.New("treasure: already found")
	// ErrInvalidLocation is returned when the claimant is too far away. It is
	// only raised while a proximity radius is configured.
	ErrInvalidLocation = errors.New("treasure: invalid location")

	ErrNilState           = errors.New("treasure: state not configured")
	ErrProgramsNotSet     = errors.New("treasure: token or metadata program not configured")
	ErrFieldTooLong       = errors.New("treasure: field exceeds reserved account space")
	ErrInvalidAccountData = errors.New("treasure: invalid account data")
	ErrTreasureExists     = errors.New("treasure: account already exists")
	ErrTreasureNotFound   = errors.New("treasure: not found")
	ErrMintMismatch       = errors.New("treasure: mint does not belong to treasure")
	ErrUnauthorized       = errors.New("treasure: authority signature required")
	ErrAddressMismatch    = errors.New("treasure: derived address mismatch")
	ErrZeroAddress        = errors.New("treasure: zero address")
)
