//go:build windows
// +build windows

package winproc

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

// windowsSession is the real Session backend: every method is a thin,
// error-wrapped call into golang.org/x/sys/windows. It holds the only OS
// handle the controller ever opens.
type windowsSession struct {
	handle windows.Handle
	pid    uint32
}

// Open acquires a handle to pid with the access rights the core needs:
// memory read/write/operation plus query information for module lookup.
func Open(pid uint32) (Session, error) {
	const access = windows.PROCESS_VM_READ |
		windows.PROCESS_VM_WRITE |
		windows.PROCESS_VM_OPERATION |
		windows.PROCESS_QUERY_INFORMATION

	h, err := windows.OpenProcess(access, false, pid)
	if err != nil {
		return nil, fmt.Errorf("%w: OpenProcess(%d): %v", ErrProcessNotFound, pid, err)
	}
	return &windowsSession{handle: h, pid: pid}, nil
}

func (s *windowsSession) ReadMemory(addr uintptr, out []byte) error {
	if len(out) == 0 {
		return nil
	}
	var n uintptr
	err := windows.ReadProcessMemory(s.handle, addr, &out[0], uintptr(len(out)), &n)
	if err != nil {
		return fmt.Errorf("winproc: ReadProcessMemory(%#x, %d): %w", addr, len(out), err)
	}
	if n != uintptr(len(out)) {
		return fmt.Errorf("winproc: ReadProcessMemory(%#x): short read %d/%d", addr, n, len(out))
	}
	return nil
}

func (s *windowsSession) WriteMemory(addr uintptr, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var n uintptr
	err := windows.WriteProcessMemory(s.handle, addr, &data[0], uintptr(len(data)), &n)
	if err != nil {
		return fmt.Errorf("winproc: WriteProcessMemory(%#x, %d): %w", addr, len(data), err)
	}
	if n != uintptr(len(data)) {
		return fmt.Errorf("winproc: WriteProcessMemory(%#x): short write %d/%d", addr, n, len(data))
	}
	return nil
}

func (s *windowsSession) ReadUint64(addr uintptr) (uint64, error) {
	var buf [8]byte
	if err := s.ReadMemory(addr, buf[:]); err != nil {
		return 0, err
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v, nil
}

func (s *windowsSession) Query(addr uintptr) (RegionInfo, error) {
	var mbi windows.MemoryBasicInformation
	n, err := windows.VirtualQueryEx(s.handle, addr, &mbi, unsafe.Sizeof(mbi))
	if err != nil || n == 0 {
		return RegionInfo{}, fmt.Errorf("winproc: VirtualQueryEx(%#x): %w", addr, err)
	}
	return RegionInfo{
		Free: mbi.State == windows.MEM_FREE,
		Size: mbi.RegionSize,
	}, nil
}

func (s *windowsSession) Alloc(addr uintptr, size int) (uintptr, error) {
	base, err := windows.VirtualAllocEx(s.handle, addr, uintptr(size),
		windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_EXECUTE_READWRITE)
	if err != nil {
		return 0, fmt.Errorf("winproc: VirtualAllocEx(%#x, %d): %w", addr, size, err)
	}
	return base, nil
}

func (s *windowsSession) Free(addr uintptr) error {
	if err := windows.VirtualFreeEx(s.handle, addr, 0, windows.MEM_RELEASE); err != nil {
		return fmt.Errorf("winproc: VirtualFreeEx(%#x): %w", addr, err)
	}
	return nil
}

func (s *windowsSession) Protect(addr uintptr, size int, protect uint32) (uint32, error) {
	var old uint32
	if err := windows.VirtualProtectEx(s.handle, addr, uintptr(size), protect, &old); err != nil {
		return 0, fmt.Errorf("winproc: VirtualProtectEx(%#x, %d): %w", addr, size, err)
	}
	return old, nil
}

func (s *windowsSession) MainModule() (Module, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE, s.pid)
	if err != nil {
		return Module{}, fmt.Errorf("winproc: CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	var me windows.ModuleEntry32
	me.Size = uint32(unsafe.Sizeof(me))
	if err := windows.Module32First(snap, &me); err != nil {
		return Module{}, fmt.Errorf("winproc: Module32First: %w", err)
	}
	return Module{
		Base: uintptr(unsafe.Pointer(me.ModBaseAddr)),
		Size: uintptr(me.ModBaseSize),
	}, nil
}

func (s *windowsSession) Close() error {
	if s.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(s.handle)
	s.handle = 0
	return err
}

// FindProcessByName walks a process snapshot looking for an exact,
// case-insensitive match on the executable's file name (e.g. "nioh3.exe").
func FindProcessByName(name string) (uint32, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return 0, fmt.Errorf("winproc: CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	var pe windows.ProcessEntry32
	pe.Size = uint32(unsafe.Sizeof(pe))
	if err := windows.Process32First(snap, &pe); err != nil {
		return 0, fmt.Errorf("winproc: Process32First: %w", err)
	}
	for {
		exe := windows.UTF16ToString(pe.ExeFile[:])
		if strings.EqualFold(exe, name) {
			return pe.ProcessID, nil
		}
		if err := windows.Process32Next(snap, &pe); err != nil {
			break
		}
	}
	return 0, fmt.Errorf("%w: no running process named %q", ErrProcessNotFound, name)
}
