package music

import (
	"errors"
	"fmt"
)

// DomainError is a user-caused failure carrying the reply the command
// handlers send back. Compared with errors.Is against the sentinels
// below.
type DomainError struct {
	msg string
}

func (e *DomainError) Error() string {
	return e.msg
}

var (
	ErrNoPlayer       = &DomainError{"I'm not playing anything in this server."}
	ErrNotListening   = &DomainError{"You need to be in my voice channel to do that."}
	ErrNotDJ          = &DomainError{"You need the DJ role to do that."}
	ErrBadPosition    = &DomainError{"There's no song at that position."}
	ErrNothingPlaying = &DomainError{"Nothing is playing right now."}
	ErrQueueEmpty     = &DomainError{"The queue is empty."}
)

// UserMessage extracts the user-facing reply for domain and resolve
// errors. ok is false for unexpected internal errors.
func UserMessage(err error) (string, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.msg, true
	}
	var re *ResolveError
	if errors.As(err, &re) {
		return re.UserMessage(), true
	}
	return "", false
}

// ResolveError is a failed media resolution, surfaced to the user as
// plain text.
type ResolveError struct {
	Query string
	Err   error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("failed to resolve %q: %v", e.Query, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

func (e *ResolveError) UserMessage() string {
	return fmt.Sprintf("Sorry, I couldn't find anything for `%s`.", e.Query)
}
