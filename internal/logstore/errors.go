package logstore

import (
	"errors"
	"fmt"
)

// IntegrityError reports a violation of the append/write index contract.
//
// Fatal marks violations that retrying cannot fix (a non-sequential
// single-entry Append): the owning process should terminate rather than
// continue with undefined state. Non-fatal violations (a batch Write with a
// gapped start index) are recoverable: the caller re-queries NextIndex or
// LastIndexTerm and retries with a correct range.
type IntegrityError struct {
	Op       string
	Index    uint64
	Expected uint64
	Fatal    bool
}

func (e *IntegrityError) Error() string {
	kind := "recoverable"
	if e.Fatal {
		kind = "fatal"
	}
	return fmt.Sprintf("logstore: %s integrity violation in %s: index %d, expected %d", kind, e.Op, e.Index, e.Expected)
}

// IsIntegrity reports whether err is an IntegrityError.
func IsIntegrity(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// IsFatal reports whether err is a fatal IntegrityError.
func IsFatal(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie) && ie.Fatal
}
