//go:build !windows
// +build !windows

package winproc

import "fmt"

// Open is only meaningful on Windows; the target binary this module
// instruments is Windows-only (SPEC_FULL.md §1). On other platforms it
// fails immediately so callers get a clear error instead of a silent no-op.
func Open(pid uint32) (Session, error) {
	return nil, fmt.Errorf("winproc: Open is only supported on windows (pid %d)", pid)
}

// FindProcessByName is only meaningful on Windows; see Open.
func FindProcessByName(name string) (uint32, error) {
	return 0, fmt.Errorf("winproc: FindProcessByName is only supported on windows (name %q)", name)
}
