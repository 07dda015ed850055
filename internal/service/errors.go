package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for the session edit workflow. Validation errors are
// detected before any remote write, so the caller can fix input and retry
// with zero side effects.
var (
	// ErrEditInProgress indicates a commit is already in flight for this
	// edit session. Returned synchronously, never queued.
	ErrEditInProgress = errors.New("edit already in progress")

	// ErrSessionDeleted indicates the session was soft-deleted and
	// accepts no further mutation.
	ErrSessionDeleted = errors.New("session deleted")

	// ErrInvalidGameName indicates the proposed game name is shorter
	// than two characters after trimming.
	ErrInvalidGameName = errors.New("invalid game name")

	// ErrInvalidPlayerName indicates a proposed player name is blank
	// after trimming.
	ErrInvalidPlayerName = errors.New("invalid player name")

	// ErrDuplicatePlayerName indicates two proposed players share a
	// trimmed, case-folded name.
	ErrDuplicatePlayerName = errors.New("duplicate player name")

	// ErrScoreRowMismatch indicates a proposed player references an
	// identity or score row that is not part of this session, or pairs
	// a score row with a different player than it was logged under.
	// Score rows are never reassigned between players within an edit.
	ErrScoreRowMismatch = errors.New("score row mismatch")
)

// CommitStep names the remote write at which a commit failed.
type CommitStep string

const (
	StepMetadata    CommitStep = "metadata"
	StepGameRetag   CommitStep = "game_retag"
	StepPlayerRetag CommitStep = "player_retag"
	StepScoreWrite  CommitStep = "score_write"
)

// RemoteWriteError reports a gateway failure together with the step at
// which it occurred and the entity being written, so the caller can tell
// the user what succeeded before the failure. Steps are not wrapped in a
// transaction: a failure past the metadata step leaves earlier writes
// committed.
type RemoteWriteError struct {
	Step   CommitStep
	Entity string
	Err    error
}

func (e *RemoteWriteError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("remote write failed at %s (%s): %v", e.Step, e.Entity, e.Err)
	}
	return fmt.Sprintf("remote write failed at %s: %v", e.Step, e.Err)
}

func (e *RemoteWriteError) Unwrap() error {
	return e.Err
}
