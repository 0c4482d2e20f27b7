// Package invariant gives the internal engine packages (internal/ebr,
// internal/cellarray, ...) a way to raise the same process-fatal
// InvariantViolation the root package's errors.go exposes to callers
// (NewErrInvariantViolation), without those internal packages importing
// the root module and creating an import cycle.
//
// The error code string here must stay in sync with
// scc.ErrCodeInvariantViolation; errors.HasCode compares by value, not by
// which package declared the constant, so scc.IsInvariantViolation still
// recognizes a panic value raised from in here.
package invariant

import "github.com/agilira/go-errors"

// Code is the SCC_INVARIANT_VIOLATION error code, mirrored from
// scc.ErrCodeInvariantViolation.
const Code errors.ErrorCode = "SCC_INVARIANT_VIOLATION"

// Violate constructs a go-errors value describing the broken invariant and
// panics with it immediately. spec.md's InvariantViolation is
// process-fatal: there is no recovery path, only uniform logging of the
// structured error before the process goes down.
func Violate(invariant string, details map[string]interface{}) {
	if details == nil {
		details = map[string]interface{}{}
	}
	details["invariant"] = invariant
	err := errors.NewWithContext(Code, "internal invariant violated", details).
		WithSeverity("critical")
	panic(err)
}
