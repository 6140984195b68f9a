package ledger

import "errors"

// Failure kinds surfaced by ledger operations. Callers match with errors.Is.
//
// Authorization failures are correctable by obtaining proper rights,
// validation failures by supplying valid arguments, the replay failure is
// permanent for that token, and a mover failure means the external
// collaborator could not complete the movement and the operation was
// aborted.
var (
	// ErrUnauthorized is returned when a caller lacks the required rights.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidSigner is returned when the null identity is proposed as signer.
	ErrInvalidSigner = errors.New("invalid signer")

	// ErrInvalidRecipient is returned when the null identity is proposed as recipient.
	ErrInvalidRecipient = errors.New("invalid recipient")

	// ErrInvalidRange is returned for a malformed emergency batch range.
	ErrInvalidRange = errors.New("invalid range")

	// ErrNoSuchDeposit is returned when a deposit id has no live entry.
	ErrNoSuchDeposit = errors.New("no such deposit")

	// ErrExpired is returned when the current height is past the authorization expiry.
	ErrExpired = errors.New("authorization expired")

	// ErrSignatureUsed is returned when an authorization fingerprint was already consumed.
	ErrSignatureUsed = errors.New("signature already used")

	// ErrInvalidSignature is returned when signer recovery fails or the
	// recovered identity is not the authorized signer.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInsufficientFee is returned when the presented payment is below the configured fee.
	ErrInsufficientFee = errors.New("insufficient fee")

	// ErrInvalidAsset is returned for an asset carrying the sentinel collection.
	ErrInvalidAsset = errors.New("invalid asset reference")

	// ErrMoverFailure wraps a failure of the external asset or funds mover.
	ErrMoverFailure = errors.New("mover failure")
)
