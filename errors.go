package ponavail

// errors.go holds the two error classes the package reports, and the
// helper that turns a panic raised deep inside the availability recursion
// back into an ordinary error at the package boundary.

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfig marks an invalid input parameter.  It is reported before
	// any generation or computation begins, and the caller may retry
	// with corrected input.
	ErrConfig = errors.New("configuration error")

	// ErrInvariant marks a malformed topology or an incomplete evaluation
	// pass.  The computation for that topology is abandoned.
	ErrInvariant = errors.New("topology invariant violated")

	// ErrNoUpstream is returned when the incoming edge of a node that has
	// none (the root) is asked for
	ErrNoUpstream = errors.New("node has no upstream edge")
)

// An InvariantError describes a violated precondition found while
// walking a topology.  The engine panics with one, and the public entry
// points recover it and return it as an error wrapping ErrInvariant.
type InvariantError struct {
	Node NodeID
	Msg  string
}

func (ie *InvariantError) Error() string {
	return fmt.Sprintf("%s: node %d: %s", ErrInvariant.Error(), ie.Node, ie.Msg)
}

func (ie *InvariantError) Unwrap() error {
	return ErrInvariant
}

// violated panics with an InvariantError
func violated(id NodeID, format string, args ...any) {
	panic(&InvariantError{Node: id, Msg: fmt.Sprintf(format, args...)})
}

// recoverInvariant is deferred by the public entry points.  It converts an
// InvariantError panic into *errp and lets every other panic continue.
func recoverInvariant(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	ie, ok := r.(*InvariantError)
	if !ok {
		panic(r)
	}
	*errp = ie
}

// configErrorf builds an error wrapping ErrConfig
func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// ReportErrs folds a list of errors into one, skipping nil entries.
// It returns nil when nothing in the list is an error.
func ReportErrs(errs []error) error {
	errMsg := make([]string, 0)
	var wrapped []error
	for _, err := range errs {
		if err != nil {
			errMsg = append(errMsg, err.Error())
			wrapped = append(wrapped, err)
		}
	}
	if len(errMsg) == 0 {
		return nil
	}

	// keep the comma-joined message, while still letting
	// errors.Is see through to every folded error
	return &foldedErr{msg: strings.Join(errMsg, ","), errs: wrapped}
}

type foldedErr struct {
	msg  string
	errs []error
}

func (fe *foldedErr) Error() string   { return fe.msg }
func (fe *foldedErr) Unwrap() []error { return fe.errs }
