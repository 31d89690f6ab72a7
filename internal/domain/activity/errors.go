package activity

import "errors"

var (
	// ErrInvalidInput is reported when an append is missing required fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownType is returned for activity types outside the known set.
	ErrUnknownType = errors.New("unknown activity type")

	// ErrRetriesExhausted is reported when concurrent writers kept winning
	// the slot and the append was dropped.
	ErrRetriesExhausted = errors.New("write retries exhausted")
)

// ErrCorruptLog marks a stored blob that does not decode as an entry list.
var ErrCorruptLog = errors.New("corrupt activity log")
