package core

import "errors"

var (
	ErrAlreadySeated = errors.New("connection already seated in a room")
	ErrNotSeated     = errors.New("connection not seated in any room")
)
