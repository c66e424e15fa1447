package models

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a status move is not listed in the
// record's transition table.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitions maps a status to the statuses it may move to.
type transitions[S ~string] map[S][]S

func (t transitions[S]) allows(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (t transitions[S]) check(kind string, from, to S) error {
	if !t.allows(from, to) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, kind, from, to)
	}
	return nil
}

func (t transitions[S]) known(s S) bool {
	_, ok := t[s]
	return ok
}
