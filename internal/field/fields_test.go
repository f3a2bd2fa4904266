package field

import (
	"testing"

	"github.com/xyproto/affixcore/internal/winproc"
)

func newEquipped(t *testing.T) (*winproc.FakeSession, uintptr) {
	t.Helper()
	f := winproc.NewFakeSession()
	base := uintptr(0x2000_0000)
	f.NewRegion(base, 0x200, make([]byte, 0x200))
	return f, base
}

func TestWriteExtendedEquipmentWeaponWritesAllFields(t *testing.T) {
	f, base := newEquipped(t)
	core := CoreFields{ItemID: 101, TransmogID: 202, Level: 12, PlusValue: 3, Quality: 4}
	weapon := WeaponOnlyFields{UnderworldSkillID: 55, Familiarity: 999, IsUnderworld: true}

	if err := WriteExtendedEquipment(f, base, true, core, weapon); err != nil {
		t.Fatalf("WriteExtendedEquipment: %v", err)
	}

	gotCore, err := ReadCoreFields(f, base)
	if err != nil {
		t.Fatalf("ReadCoreFields: %v", err)
	}
	if gotCore != core {
		t.Fatalf("got %+v, want %+v", gotCore, core)
	}

	gotWeapon, err := ReadWeaponOnlyFields(f, base)
	if err != nil {
		t.Fatalf("ReadWeaponOnlyFields: %v", err)
	}
	if gotWeapon != weapon {
		t.Fatalf("got %+v, want %+v", gotWeapon, weapon)
	}
}

func TestWriteExtendedEquipmentArmorSkipsWeaponOnlyFields(t *testing.T) {
	f, base := newEquipped(t)
	core := CoreFields{ItemID: 5, TransmogID: 6, Level: 7, PlusValue: 1, Quality: 2}
	weapon := WeaponOnlyFields{UnderworldSkillID: 111, Familiarity: 222, IsUnderworld: true}

	if err := WriteExtendedEquipment(f, base, false, core, weapon); err != nil {
		t.Fatalf("WriteExtendedEquipment: %v", err)
	}

	gotWeapon, err := ReadWeaponOnlyFields(f, base)
	if err != nil {
		t.Fatalf("ReadWeaponOnlyFields: %v", err)
	}
	if gotWeapon.UnderworldSkillID != 0 || gotWeapon.Familiarity != 0 || gotWeapon.IsUnderworld {
		t.Fatalf("armor write should leave weapon-only fields untouched, got %+v", gotWeapon)
	}
}

func TestWriteBitPreservesOtherBits(t *testing.T) {
	f, base := newEquipped(t)
	addr := base + UnderworldFlagOffset
	if err := WriteByte(f, addr, 0b0000_0001); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}
	if err := WriteBit(f, addr, UnderworldFlagBit, true); err != nil {
		t.Fatalf("WriteBit: %v", err)
	}
	got, err := ReadByte(f, addr)
	if err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	if got != 0b0001_0001 {
		t.Fatalf("got %08b, want %08b", got, 0b0001_0001)
	}

	if err := WriteBit(f, addr, UnderworldFlagBit, false); err != nil {
		t.Fatalf("WriteBit clear: %v", err)
	}
	got, err = ReadByte(f, addr)
	if err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	if got != 0b0000_0001 {
		t.Fatalf("got %08b, want %08b", got, 0b0000_0001)
	}
}

func TestAffixSlotAddressing(t *testing.T) {
	base := uintptr(0x1000)
	if got, want := AffixIDAddr(base, 0), base+FirstAffixOffset; got != want {
		t.Fatalf("slot 0 ID addr: got %#x want %#x", got, want)
	}
	if got, want := AffixIDAddr(base, 1), base+FirstAffixOffset+AffixSlotSize; got != want {
		t.Fatalf("slot 1 ID addr: got %#x want %#x", got, want)
	}
	if got, want := AffixLevelAddr(base, 2), base+FirstAffixOffset+2*AffixSlotSize+AffixLevelOffset; got != want {
		t.Fatalf("slot 2 level addr: got %#x want %#x", got, want)
	}
	if got, want := AffixPrefixAddr(base, 0, 1), base+FirstAffixOffset+AffixLevelOffset+4+1; got != want {
		t.Fatalf("slot 0 prefix[1] addr: got %#x want %#x", got, want)
	}
}
