package bigramdict

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bigramdict/internal/bigram"
	"github.com/hupe1980/bigramdict/internal/content"
	"github.com/hupe1980/bigramdict/internal/terminal"
	"github.com/hupe1980/bigramdict/model"
)

var (
	// ErrNotFound is returned when a terminal or bigram does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTerminal is returned for negative terminal ids.
	ErrInvalidTerminal = errors.New("invalid terminal id")
	// ErrInvalidNodePos is returned when a terminal is bound to a negative node position.
	ErrInvalidNodePos = errors.New("invalid node position")
	// ErrStorage is matched by every *StorageError.
	ErrStorage = errors.New("storage failure")
	// ErrClosed is returned by operations on a closed dictionary.
	ErrClosed = errors.New("dictionary is closed")
	// ErrNoStore is returned by Save on a dictionary created without a blob store.
	ErrNoStore = errors.New("dictionary has no blob store")
	// ErrModeMismatch is returned when a decay dictionary is opened from a static
	// snapshot or the other way round.
	ErrModeMismatch = errors.New("dictionary mode does not match snapshot")
)

// StorageError reports a failed write to the content region, the write-ahead
// log or the blob store. The dictionary may hold a partially applied mutation;
// nothing is rolled back.
//
// The original underlying error can be accessed via errors.Unwrap.
type StorageError struct {
	Op         string
	TerminalID model.TerminalID
	Err        error
}

func (e *StorageError) Error() string {
	if e.TerminalID == model.NotATerminal {
		return fmt.Sprintf("%s: storage failure: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %v: storage failure: %v", e.Op, e.TerminalID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func translateError(op string, id model.TerminalID, err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, bigram.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	// Argument normalization.
	if errors.Is(err, bigram.ErrInvalidTerminal) ||
		errors.Is(err, terminal.ErrInvalidTerminal) ||
		errors.Is(err, content.ErrInvalidTerminal) {
		return fmt.Errorf("%w: %w", ErrInvalidTerminal, err)
	}
	if errors.Is(err, terminal.ErrInvalidPosition) {
		return fmt.Errorf("%w: %w", ErrInvalidNodePos, err)
	}

	if errors.Is(err, content.ErrCapacityExceeded) ||
		errors.Is(err, content.ErrInvalidPosition) ||
		errors.Is(err, content.ErrCorrupted) {
		return &StorageError{Op: op, TerminalID: id, Err: err}
	}

	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
