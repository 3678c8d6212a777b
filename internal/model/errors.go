package model

import "errors"

// Error kinds. Components wrap these with %w so callers can classify a
// failure with errors.Is; batch.Policy decides what each kind does to a run.
var (
	ErrNoCredentials    = errors.New("no usable credentials")
	ErrCredentialParse  = errors.New("credential parse failed")
	ErrTokenPersist     = errors.New("token persist failed")
	ErrFetch            = errors.New("sheet fetch failed")
	ErrAttachment       = errors.New("attachment unavailable")
	ErrRender           = errors.New("message render failed")
	ErrInvalidRecipient = errors.New("invalid recipient address")
	ErrSend             = errors.New("mail send failed")
	ErrTrackerRegister  = errors.New("tracker registration failed")
	ErrStatusColumn     = errors.New("status column not resolved")
	ErrStatusWrite      = errors.New("status write failed")
	ErrLedger           = errors.New("ledger write failed")
)
