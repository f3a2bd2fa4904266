package trampoline

import (
	"bytes"
	"testing"

	"github.com/xyproto/affixcore/internal/winproc"
)

func weaponSite() (*winproc.FakeSession, uintptr) {
	f := winproc.NewFakeSession()
	site := uintptr(0x140010000)
	original := []byte{0x48, 0x8B, 0xD5, 0x49, 0x8B, 0xCA}
	f.NewRegion(site, 0x20, original)
	f.NewFreeRegion(site+0x20000, allocSize)
	return f, site
}

func armorSite() (*winproc.FakeSession, uintptr) {
	f := winproc.NewFakeSession()
	site := uintptr(0x140020000)
	original := []byte{0x49, 0x8D, 0x8C, 0x24, 0x48, 0x01, 0x00, 0x00}
	f.NewRegion(site, 0x20, original)
	f.NewFreeRegion(site+0x20000, allocSize)
	return f, site
}

func TestCaptureWeaponLifecycle(t *testing.T) {
	f, site := weaponSite()
	c := New(HookWeapon)

	if err := c.Initialize(f, site); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if c.Enabled() {
		t.Fatalf("expected not enabled right after Initialize")
	}

	if err := c.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if !c.Enabled() {
		t.Fatalf("expected enabled after Enable")
	}

	var head [5]byte
	if err := f.ReadMemory(site, head[:]); err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	if head[0] != 0xE9 {
		t.Fatalf("expected E9 near jump at site, got %#x", head[0])
	}

	f.WriteUint64Direct(c.SlotAddr(), 0xDEADBEEF)
	got, err := f.ReadUint64(c.SlotAddr())
	if err != nil {
		t.Fatalf("ReadUint64: %v", err)
	}
	if got != 0xDEADBEEF {
		t.Fatalf("got %#x, want %#x", got, 0xDEADBEEF)
	}

	if err := c.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if c.Enabled() {
		t.Fatalf("expected not enabled after Disable")
	}
	var restored [6]byte
	if err := f.ReadMemory(site, restored[:]); err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	want := []byte{0x48, 0x8B, 0xD5, 0x49, 0x8B, 0xCA}
	if !bytes.Equal(restored[:], want) {
		t.Fatalf("original bytes not restored: got % x want % x", restored, want)
	}

	if err := c.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
}

func TestCaptureArmorUsesRbx(t *testing.T) {
	f, site := armorSite()
	c := New(HookArmor)
	if err := c.Initialize(f, site); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := c.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	code := make([]byte, 13)
	// allocBase isn't exposed directly, but the jump target can be derived
	// from the rel32 written at the injection site.
	var jmp [5]byte
	if err := f.ReadMemory(site, jmp[:]); err != nil {
		t.Fatalf("ReadMemory jmp: %v", err)
	}
	rel := int32(uint32(jmp[1]) | uint32(jmp[2])<<8 | uint32(jmp[3])<<16 | uint32(jmp[4])<<24)
	base := uintptr(int64(site+5) + int64(rel))
	if err := f.ReadMemory(base, code); err != nil {
		t.Fatalf("ReadMemory code: %v", err)
	}
	// bytes 10..12 must be `mov [rax], rbx` (48 89 18).
	if !bytes.Equal(code[10:13], []byte{0x48, 0x89, 0x18}) {
		t.Fatalf("expected armor capture to store rbx, got % x", code[10:13])
	}
}

func TestCaptureEnableIdempotent(t *testing.T) {
	f, site := weaponSite()
	c := New(HookWeapon)
	if err := c.Initialize(f, site); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := c.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if err := c.Enable(); err != nil {
		t.Fatalf("second Enable should be a no-op, got: %v", err)
	}
}

func TestCaptureDisableIdempotent(t *testing.T) {
	f, site := weaponSite()
	c := New(HookWeapon)
	if err := c.Initialize(f, site); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := c.Disable(); err != nil {
		t.Fatalf("Disable on Prepared should be a no-op, got: %v", err)
	}
}

func TestCaptureBaseNotCapturedYetBeforeEnable(t *testing.T) {
	f, site := weaponSite()
	c := New(HookWeapon)
	if err := c.Initialize(f, site); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if c.SlotAddr() == 0 {
		t.Fatalf("expected a slot address after Initialize")
	}
	if v, err := f.ReadUint64(c.SlotAddr()); err != nil || v != 0 {
		t.Fatalf("expected a zeroed capture slot before Enable, got %#x err=%v", v, err)
	}
}

func TestCaptureInitializeTwiceFails(t *testing.T) {
	f, site := weaponSite()
	c := New(HookWeapon)
	if err := c.Initialize(f, site); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := c.Initialize(f, site); err == nil {
		t.Fatalf("expected second Initialize without Cleanup to fail")
	}
}

func TestCaptureCleanupReleasesAllocation(t *testing.T) {
	f, site := weaponSite()
	c := New(HookWeapon)
	if err := c.Initialize(f, site); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := c.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	base := c.allocBase
	if err := c.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if info, err := f.Query(base); err != nil || !info.Free {
		t.Fatalf("expected allocation to be freed, info=%+v err=%v", info, err)
	}
}
