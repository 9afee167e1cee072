package cos

import (
	"fmt"
	"sync"
)

// ErrNotFound mirrors the teacher's cmn/cos.ErrNotFound: a typed not-found
// so callers can cos.IsErrNotFound(err) instead of string-matching.
type ErrNotFound struct{ what string }

func NewErrNotFound(format string, a ...any) *ErrNotFound {
	return &ErrNotFound{what: fmt.Sprintf(format, a...)}
}

func (e *ErrNotFound) Error() string { return e.what + " does not exist" }

func IsErrNotFound(err error) bool {
	_, ok := err.(*ErrNotFound)
	return ok
}

// Errs collects up to maxErrs distinct per-item errors without aborting a
// stage -- ported from the teacher's cmn/cos.Errs. Stage A keeps one for a
// final summary line (spec.md §7 observability); Cnt is the number of
// distinct error messages kept, not the number of failed items. Every
// individual failure is still logged immediately via internal/nlog.
type Errs struct {
	mu   sync.Mutex
	errs []error
}

const maxErrs = 4

func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
	}
}

func (e *Errs) Cnt() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs)
}

func (e *Errs) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.errs) == 0 {
		return ""
	}
	if len(e.errs) == 1 {
		return e.errs[0].Error()
	}
	return fmt.Sprintf("%v (and %d more)", e.errs[0], len(e.errs)-1)
}
