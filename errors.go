package affixcore

import (
	"fmt"
	"os"

	"github.com/xyproto/affixcore/internal/coreerr"
)

// Kind classifies a failure the way a caller needs to react to it, rather
// than how it happened to be raised.
type Kind = coreerr.Kind

// The full classification a Controller can surface, re-exported from
// internal/coreerr so callers never need that import path directly.
const (
	KindNotAttached        = coreerr.KindNotAttached
	KindAlreadyAttached    = coreerr.KindAlreadyAttached
	KindOpenProcessFailed  = coreerr.KindOpenProcessFailed
	KindPatternNotFound    = coreerr.KindPatternNotFound
	KindAllocateNearFailed = coreerr.KindAllocateNearFailed
	KindUnreachable        = coreerr.KindUnreachable
	KindRemoteIOFailed     = coreerr.KindRemoteIOFailed
	KindInvalidSlotIndex   = coreerr.KindInvalidSlotIndex
	KindNotCapturedYet     = coreerr.KindNotCapturedYet
)

// Error is the single error type every public Controller method returns.
// It is the same shape as the teacher's own CompilerError{Level,
// Category, Message, Location}, generalized from compiler diagnostics to
// an operational Kind plus message.
type Error = coreerr.Error

// FormatError renders err the way cmd/affixcore prints it: plain when
// useColor is false, bold red when true, mirroring the teacher's own
// errors.go Format() convention.
func FormatError(err error, useColor bool) string {
	if err == nil {
		return ""
	}
	if !useColor {
		return err.Error()
	}
	return fmt.Sprintf("\033[1;31m%s\033[0m", err.Error())
}

// StderrIsTerminal reports whether os.Stderr looks like an interactive
// terminal. cmd/affixcore uses this to decide whether FormatError should
// colorize its output; there is no ecosystem isatty dependency anywhere
// in the example pack, so this is the stdlib-only exception recorded in
// DESIGN.md.
func StderrIsTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
