package winproc

import (
	"fmt"
	"sort"
)

// region is a contiguous block of simulated address space.
type region struct {
	base     uintptr
	size     int
	data     []byte
	free     bool
	readable bool // unreadable regions simulate guard pages / uncommitted memory
	protect  uint32
}

func (r *region) end() uintptr { return r.base + uintptr(r.size) }

// FakeSession is an in-memory stand-in for a real Windows process, used by
// every test in this module. Callers build one with NewFakeSession, seed it
// with NewRegion/NewUnreadableRegion, then hand it to the same code that
// would otherwise receive a windowsSession.
type FakeSession struct {
	regions []*region
	module  Module
	closed  bool

	// nextAlloc is where the next unplaced Alloc (addr == 0) lands.
	nextAlloc uintptr
}

// NewFakeSession creates an empty simulated address space.
func NewFakeSession() *FakeSession {
	return &FakeSession{nextAlloc: 0x7fff_0000_0000}
}

// NewRegion adds a readable, committed region of memory at base containing
// data (zero-padded to size if data is shorter).
func (f *FakeSession) NewRegion(base uintptr, size int, data []byte) {
	buf := make([]byte, size)
	copy(buf, data)
	f.regions = append(f.regions, &region{base: base, size: size, data: buf, readable: true})
	f.sortRegions()
}

// NewUnreadableRegion adds a region that always fails ReadMemory, simulating
// a guard page or uncommitted memory in the middle of a scan range.
func (f *FakeSession) NewUnreadableRegion(base uintptr, size int) {
	f.regions = append(f.regions, &region{base: base, size: size, readable: false})
	f.sortRegions()
}

// NewFreeRegion marks [base, base+size) as free (available for Alloc).
func (f *FakeSession) NewFreeRegion(base uintptr, size int) {
	f.regions = append(f.regions, &region{base: base, size: size, free: true})
	f.sortRegions()
}

func (f *FakeSession) sortRegions() {
	sort.Slice(f.regions, func(i, j int) bool { return f.regions[i].base < f.regions[j].base })
}

// SetModule configures what MainModule returns.
func (f *FakeSession) SetModule(base uintptr, size uintptr) {
	f.module = Module{Base: base, Size: size}
}

func (f *FakeSession) find(addr uintptr) *region {
	for _, r := range f.regions {
		if addr >= r.base && addr < r.end() {
			return r
		}
	}
	return nil
}

func (f *FakeSession) ReadMemory(addr uintptr, out []byte) error {
	r := f.find(addr)
	if r == nil || !r.readable {
		return fmt.Errorf("winproc: fake read at %#x failed", addr)
	}
	off := int(addr - r.base)
	n := copy(out, r.data[off:])
	if n < len(out) {
		return fmt.Errorf("winproc: fake read at %#x truncated", addr)
	}
	return nil
}

func (f *FakeSession) WriteMemory(addr uintptr, data []byte) error {
	r := f.find(addr)
	if r == nil || !r.readable {
		return fmt.Errorf("winproc: fake write at %#x failed", addr)
	}
	off := int(addr - r.base)
	if off+len(data) > len(r.data) {
		return fmt.Errorf("winproc: fake write at %#x out of range", addr)
	}
	copy(r.data[off:], data)
	return nil
}

func (f *FakeSession) ReadUint64(addr uintptr) (uint64, error) {
	var buf [8]byte
	if err := f.ReadMemory(addr, buf[:]); err != nil {
		return 0, err
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v, nil
}

// WriteUint64Direct simulates the target thread publishing a captured
// pointer, bypassing the controller's own write path. Tests use this to
// model the game asynchronously updating a capture slot.
func (f *FakeSession) WriteUint64Direct(addr uintptr, v uint64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v)
		v >>= 8
	}
	_ = f.WriteMemory(addr, buf[:])
}

func (f *FakeSession) Query(addr uintptr) (RegionInfo, error) {
	r := f.find(addr)
	if r == nil {
		// Unmapped addresses are reported as a large free region, same as
		// VirtualQueryEx does past the end of any committed mapping.
		return RegionInfo{Free: true, Size: 0x7fffffff}, nil
	}
	return RegionInfo{Free: r.free, Size: uintptr(r.size)}, nil
}

func (f *FakeSession) Alloc(addr uintptr, size int) (uintptr, error) {
	if addr != 0 {
		r := f.find(addr)
		if r == nil || !r.free || r.size < size {
			return 0, fmt.Errorf("winproc: fake alloc at %#x unavailable", addr)
		}
		r.free = false
		r.readable = true
		r.data = make([]byte, r.size)
		return addr, nil
	}
	base := f.nextAlloc
	f.nextAlloc += uintptr(size+AllocationGranularity-1) &^ (AllocationGranularity - 1)
	f.regions = append(f.regions, &region{base: base, size: size, data: make([]byte, size), readable: true})
	f.sortRegions()
	return base, nil
}

func (f *FakeSession) Free(addr uintptr) error {
	r := f.find(addr)
	if r == nil {
		return fmt.Errorf("winproc: fake free at %#x: not allocated", addr)
	}
	r.free = true
	r.readable = false
	r.data = nil
	return nil
}

func (f *FakeSession) Protect(addr uintptr, size int, protect uint32) (uint32, error) {
	r := f.find(addr)
	if r == nil {
		return 0, fmt.Errorf("winproc: fake protect at %#x: not allocated", addr)
	}
	old := r.protect
	if old == 0 {
		old = PageExecuteReadWrite
	}
	r.protect = protect
	return old, nil
}

func (f *FakeSession) MainModule() (Module, error) {
	if f.module.Size == 0 {
		return Module{}, fmt.Errorf("winproc: fake module not configured")
	}
	return f.module, nil
}

func (f *FakeSession) Close() error {
	f.closed = true
	return nil
}
