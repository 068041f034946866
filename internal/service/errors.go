package service

import "errors"

// ErrUnauthorized is returned when an operation is attempted without a
// verified principal.
var ErrUnauthorized = errors.New("unauthorized")

// ForbiddenError reports a verified caller lacking permission for Action.
type ForbiddenError struct {
	Action string
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Action
}
