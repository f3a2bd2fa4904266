// Package winproc provides the capability to read, write, query, allocate
// and change protection in a remote process's virtual address space.
//
// A Session is acquired on attach and destroyed on detach; it owns every
// downstream allocation made in the target. The real implementation
// (session_windows.go) is a thin wrapper over golang.org/x/sys/windows; a
// portable fake (session_fake.go) backs every test in this module.
package winproc

import "fmt"

// RegionInfo describes the state of a single region of the target's
// address space, as reported by VirtualQueryEx.
type RegionInfo struct {
	Free bool
	Size uintptr
}

// Module describes the primary executable module of a process.
type Module struct {
	Base uintptr
	Size uintptr
}

// Session is an opaque capability to operate on a remote process's memory.
// Every method may block briefly on a synchronous OS call; none is
// cancellable, matching the concurrency model in SPEC_FULL.md §5.
type Session interface {
	// ReadMemory copies len(out) bytes starting at addr into out. A
	// partial or failed read returns an error; the contents of out are
	// then unspecified.
	ReadMemory(addr uintptr, out []byte) error

	// WriteMemory copies data to addr.
	WriteMemory(addr uintptr, data []byte) error

	// ReadUint64 performs a single aligned 64-bit load. Callers rely on
	// x86-64's guarantee that such a load is atomic with respect to a
	// concurrent writer in the target process.
	ReadUint64(addr uintptr) (uint64, error)

	// Query reports whether addr lies in a free region and, if so, how
	// large that region is.
	Query(addr uintptr) (RegionInfo, error)

	// Alloc requests addr (or, if addr is 0, any address chosen by the
	// OS) be committed and reserved as read/write/execute memory of at
	// least size bytes. It returns the actual base address.
	Alloc(addr uintptr, size int) (uintptr, error)

	// Free releases an allocation previously returned by Alloc.
	Free(addr uintptr) error

	// Protect changes the memory protection of [addr, addr+size) and
	// returns the protection that was in effect beforehand.
	Protect(addr uintptr, size int, protect uint32) (old uint32, err error)

	// MainModule resolves the base address and image size of the
	// process's primary executable module.
	MainModule() (Module, error)

	// Close releases the underlying OS handle. It is safe to call more
	// than once.
	Close() error
}

// ErrProcessNotFound is returned by Open when the target PID does not
// correspond to a running, attachable process.
var ErrProcessNotFound = fmt.Errorf("winproc: process not found or not attachable")
