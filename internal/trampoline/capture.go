package trampoline

import (
	"github.com/xyproto/affixcore/internal/asmgen"
	"github.com/xyproto/affixcore/internal/coreerr"
	"github.com/xyproto/affixcore/internal/winproc"
)

// HookType selects which of the two known capture sites a Capture
// trampoline targets. The two variants share a template and differ only
// in which register is captured and the displaced instruction bytes
// (SPEC_FULL.md §4.3 / spec.md §4.3, §6).
type HookType int

const (
	HookWeapon HookType = iota
	HookArmor
)

func (h HookType) String() string {
	if h == HookArmor {
		return "armor"
	}
	return "weapon"
}

// displacedBytes are the known-length byte sequences relocated verbatim
// into the trampoline; this package never disassembles them.
var displacedBytes = map[HookType][]byte{
	HookWeapon: {0x48, 0x8B, 0xD5, 0x49, 0x8B, 0xCA},             // mov rdx,rbp; mov rcx,r10
	HookArmor:  {0x49, 0x8D, 0x8C, 0x24, 0x48, 0x01, 0x00, 0x00}, // lea rcx,[r12+0x148]
}

// capturedReg is the register each hook type stores into the slot.
var capturedReg = map[HookType]asmgen.Reg64{
	HookWeapon: asmgen.RBP,
	HookArmor:  asmgen.RBX,
}

// slotOffset places the capture slot 0x100 bytes into the allocation,
// keeping code and data co-located but separated (SPEC_FULL.md §3,
// "Trampoline").
const slotOffset = 0x100

// allocSize is comfortably larger than either variant's code (31 or 33
// bytes) plus the 8-byte slot at slotOffset.
const allocSize = 0x1000

type lifecycle int

const (
	stateUninitialized lifecycle = iota
	statePrepared
	stateEnabled
)

// Capture is one weapon- or armor-flavored trampoline instance. Its
// lifecycle is Uninitialized → Prepared → Enabled → Prepared (Disable
// transitions back); Cleanup additionally releases the allocation.
type Capture struct {
	hookType      HookType
	session       winproc.Session
	injectionSite uintptr
	displacedLen  int
	originalBytes []byte
	allocBase     uintptr
	slotAddr      uintptr
	state         lifecycle
}

// New returns an uninitialized Capture of the given hook type.
func New(hookType HookType) *Capture {
	return &Capture{hookType: hookType, state: stateUninitialized}
}

// HookType reports which variant this Capture is.
func (c *Capture) HookType() HookType { return c.hookType }

// Initialize reads and retains the original bytes at injectionSite,
// reserves a reachable trampoline allocation, and zeroes its capture
// slot. Calling Initialize twice without an intervening Cleanup fails.
func (c *Capture) Initialize(s winproc.Session, injectionSite uintptr) error {
	if c.state != stateUninitialized {
		return coreerr.New(coreerr.KindAlreadyAttached, "trampoline already initialized; call Cleanup first")
	}

	displacedLen := len(displacedBytes[c.hookType])
	original := make([]byte, displacedLen)
	if err := s.ReadMemory(injectionSite, original); err != nil {
		return coreerr.Wrap(coreerr.KindRemoteIOFailed, "reading original bytes at injection site", err)
	}

	base, err := Allocate(s, injectionSite, allocSize)
	if err != nil {
		return err
	}

	slot := base + slotOffset
	var zero [8]byte
	if err := s.WriteMemory(slot, zero[:]); err != nil {
		return coreerr.Wrap(coreerr.KindRemoteIOFailed, "zeroing capture slot", err)
	}

	c.session = s
	c.injectionSite = injectionSite
	c.displacedLen = displacedLen
	c.originalBytes = original
	c.allocBase = base
	c.slotAddr = slot
	c.state = statePrepared
	return nil
}

// buildCode assembles this variant's trampoline machine code: store the
// captured register to the slot, re-execute the displaced original bytes,
// then jump back past the overwritten injection site.
func (c *Capture) buildCode() ([]byte, error) {
	buf := asmgen.NewBuffer()
	if err := buf.MovImm64(asmgen.RAX, uint64(c.slotAddr)); err != nil {
		return nil, err
	}
	if err := buf.MovMemReg(asmgen.RAX, capturedReg[c.hookType]); err != nil {
		return nil, err
	}
	buf.RawBytes(displacedBytes[c.hookType])

	returnAddr := c.injectionSite + uintptr(c.displacedLen)
	if err := buf.MovImm64(asmgen.RAX, uint64(returnAddr)); err != nil {
		return nil, err
	}
	if err := buf.JmpReg(asmgen.RAX); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Enable writes the trampoline code and splices in the 5-byte near jump
// at the injection site. Enabling an already-Enabled trampoline is a
// no-op that returns success.
func (c *Capture) Enable() error {
	if c.state == stateEnabled {
		return nil
	}
	if c.state != statePrepared {
		return coreerr.New(coreerr.KindNotAttached, "trampoline must be initialized before Enable")
	}

	code, err := c.buildCode()
	if err != nil {
		return err
	}
	if err := c.session.WriteMemory(c.allocBase, code); err != nil {
		return coreerr.Wrap(coreerr.KindRemoteIOFailed, "writing trampoline code", err)
	}

	if !WithinReach(c.injectionSite, c.allocBase) {
		return coreerr.New(coreerr.KindUnreachable, "trampoline allocation out of ±2GiB jump range")
	}
	rel32 := int32(int64(c.allocBase) - int64(c.injectionSite+5))

	overwrite := make([]byte, c.displacedLen)
	overwrite[0] = 0xE9
	overwrite[1] = byte(rel32)
	overwrite[2] = byte(rel32 >> 8)
	overwrite[3] = byte(rel32 >> 16)
	overwrite[4] = byte(rel32 >> 24)
	for i := 5; i < c.displacedLen; i++ {
		overwrite[i] = 0x90
	}

	old, err := c.session.Protect(c.injectionSite, c.displacedLen, winproc.PageExecuteReadWrite)
	if err != nil {
		return coreerr.Wrap(coreerr.KindRemoteIOFailed, "protecting injection site for write", err)
	}
	if err := c.session.WriteMemory(c.injectionSite, overwrite); err != nil {
		_, _ = c.session.Protect(c.injectionSite, c.displacedLen, old)
		return coreerr.Wrap(coreerr.KindRemoteIOFailed, "writing near jump at injection site", err)
	}
	if _, err := c.session.Protect(c.injectionSite, c.displacedLen, old); err != nil {
		return coreerr.Wrap(coreerr.KindRemoteIOFailed, "restoring injection site protection", err)
	}

	c.state = stateEnabled
	return nil
}

// Disable restores the original bytes at the injection site. The
// trampoline allocation itself is left in place: the target thread may
// still be executing inside it at the instant of Disable, matching
// original_source/Nioh3AffixCore/code_injector.cpp's own ordering. Use
// Cleanup to release the allocation once the caller is confident no
// thread remains in flight. Disabling an already-Prepared trampoline is a
// no-op that returns success.
func (c *Capture) Disable() error {
	if c.state == statePrepared {
		return nil
	}
	if c.state != stateEnabled {
		return coreerr.New(coreerr.KindNotAttached, "trampoline is not enabled")
	}

	old, err := c.session.Protect(c.injectionSite, c.displacedLen, winproc.PageExecuteReadWrite)
	if err != nil {
		return coreerr.Wrap(coreerr.KindRemoteIOFailed, "protecting injection site for restore", err)
	}
	writeErr := c.session.WriteMemory(c.injectionSite, c.originalBytes)
	_, _ = c.session.Protect(c.injectionSite, c.displacedLen, old)
	if writeErr != nil {
		return coreerr.Wrap(coreerr.KindRemoteIOFailed, "restoring original bytes", writeErr)
	}

	c.state = statePrepared
	return nil
}

// Cleanup disables (if enabled) and releases the trampoline allocation,
// returning the Capture to Uninitialized.
func (c *Capture) Cleanup() error {
	if c.state == stateEnabled {
		if err := c.Disable(); err != nil {
			return err
		}
	}
	if c.allocBase != 0 {
		if err := c.session.Free(c.allocBase); err != nil {
			return coreerr.Wrap(coreerr.KindRemoteIOFailed, "freeing trampoline allocation", err)
		}
	}
	c.state = stateUninitialized
	c.allocBase = 0
	c.slotAddr = 0
	c.originalBytes = nil
	return nil
}

// SlotAddr returns the address of this trampoline's capture slot. Valid
// once Initialize has succeeded.
func (c *Capture) SlotAddr() uintptr { return c.slotAddr }

// Enabled reports whether the trampoline is currently installed.
func (c *Capture) Enabled() bool { return c.state == stateEnabled }
