package builder

import (
	"io"
	"log"
)

// Logger is the ambient logging contract a Pass may use to report what it
// did, matching SPEC_FULL.md §1.3's choice of the standard library's *log.Logger
// (the corpus has no logging library dependency anywhere, confirmed by a
// corpus-wide grep; the teacher itself never logs at all in internal/asm,
// so this is this module's own minimal, stdlib-grounded convention).
type Logger interface {
	Printf(format string, args ...any)
}

// discardLogger is the default Logger installed on a new Builder: passes
// may always call b.Logger().Printf without a nil check.
var discardLogger Logger = log.New(io.Discard, "", 0)
