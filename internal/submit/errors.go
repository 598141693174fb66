package submit

import (
	"errors"
	"fmt"

	"github.com/rentloop/listr/internal/validate"
)

// ErrLimitReached is the backend's signal that the account may not create
// more listings.
var ErrLimitReached = errors.New("listing limit reached")

// ValidationError means the final gate rejected the draft. No remote call
// was made.
type ValidationError struct {
	Failures []validate.Failure
}

func (e *ValidationError) Error() string {
	return "draft is incomplete: " + validate.Summary(e.Failures)
}

// PreconditionError means submission was refused before any mutation,
// currently only because the listing limit was reached.
type PreconditionError struct {
	Err error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot submit: %v", e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// FatalError means the record itself could not be created or updated. The
// draft is untouched and the submission can be retried. Error returns the
// backend's reason verbatim.
type FatalError struct {
	Op  Op
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Warning is a photo sub-operation or publication that failed after the
// record was saved.
type Warning struct {
	Op       Op     `json:"op"`
	PhotoID  string `json:"photo_id,omitempty"`
	Filename string `json:"filename,omitempty"`
	Reason   string `json:"reason"`
}

func (w Warning) String() string {
	subject := w.PhotoID
	if w.Filename != "" {
		subject = w.Filename
	}
	if subject == "" {
		return fmt.Sprintf("%s: %s", w.Op, w.Reason)
	}
	return fmt.Sprintf("%s %s: %s", w.Op, subject, w.Reason)
}
