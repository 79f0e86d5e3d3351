package transfer

import "errors"

// Error kinds shared by delta construction and reconciliation.
var (
	ErrUnreadableSource = errors.New("unreadable source")
	ErrDecode           = errors.New("decode error")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrDuplicateOrder   = errors.New("duplicate order")
	ErrUnknownReference = errors.New("unknown reference")
)

// Kinds lists every error kind, in the order the client matches them
// against server messages.
var Kinds = []error{
	ErrUnreadableSource,
	ErrDecode,
	ErrMalformedPayload,
	ErrDuplicateOrder,
	ErrUnknownReference,
}
