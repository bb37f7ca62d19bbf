package dialog

import "errors"

var (
	ErrDialogNotFound       = errors.New("dialog not found")
	ErrDialogAlreadyAdded   = errors.New("dialog already added")
	ErrNoActiveDialog       = errors.New("no active dialog")
	ErrUnexpectedDialogType = errors.New("unexpected dialog state type")
)
