package arbiter

import "testing"

// fakeSlots is a minimal SlotReader backed by a plain map, letting tests
// drive exact slot values without going through winproc at all.
type fakeSlots struct {
	values map[uintptr]uint64
}

func (f *fakeSlots) set(addr uintptr, v uint64) { f.values[addr] = v }

func (f *fakeSlots) ReadUint64(addr uintptr) (uint64, error) {
	return f.values[addr], nil
}

func newFakeSlots() *fakeSlots { return &fakeSlots{values: map[uintptr]uint64{}} }

func tickClock(n *uint64) Clock {
	return func() uint64 { return *n }
}

func TestArbiterSeedScenarioEReversion(t *testing.T) {
	const weaponAddr, armorAddr = 0x1000, 0x2000
	slots := newFakeSlots()
	var now uint64
	a := NewWithClock(weaponAddr, armorAddr, tickClock(&now))

	now = 10
	slots.set(weaponAddr, 0x1111)
	a.Poll(slots)
	base, kind := a.CurrentBase()
	if base != 0x1111 || kind != KindWeapon {
		t.Fatalf("after weapon capture: got base=%#x kind=%v, want 0x1111/weapon", base, kind)
	}

	now = 20
	slots.set(armorAddr, 0x2222)
	a.Poll(slots)
	base, kind = a.CurrentBase()
	if base != 0x2222 || kind != KindArmor {
		t.Fatalf("after armor capture: got base=%#x kind=%v, want 0x2222/armor", base, kind)
	}

	// Armor reverts to zero: weapon's older-but-still-nonzero value takes
	// over, even though its last_change_tick is stale.
	now = 30
	slots.set(armorAddr, 0)
	a.Poll(slots)
	base, kind = a.CurrentBase()
	if base != 0x1111 || kind != KindWeapon {
		t.Fatalf("after armor reversion: got base=%#x kind=%v, want 0x1111/weapon", base, kind)
	}
}

func TestArbiterNoneCapturedYet(t *testing.T) {
	slots := newFakeSlots()
	var now uint64
	a := NewWithClock(0x1000, 0x2000, tickClock(&now))
	a.Poll(slots)
	base, kind := a.CurrentBase()
	if base != 0 || kind != KindNone {
		t.Fatalf("got base=%#x kind=%v, want 0/none", base, kind)
	}
}

func TestArbiterArmorWinsTieBreakOnMoreRecentChange(t *testing.T) {
	const weaponAddr, armorAddr = 0x1000, 0x2000
	slots := newFakeSlots()
	var now uint64
	a := NewWithClock(weaponAddr, armorAddr, tickClock(&now))

	now = 5
	slots.set(weaponAddr, 0xAAAA)
	slots.set(armorAddr, 0xBBBB)
	a.Poll(slots)

	// Both changed on the same poll at the same tick: armor's rule
	// (strictly greater) does not fire, so weapon wins.
	if _, kind := a.CurrentBase(); kind != KindWeapon {
		t.Fatalf("expected weapon to win a same-tick simultaneous change, got %v", kind)
	}

	now = 6
	slots.set(armorAddr, 0xCCCC)
	a.Poll(slots)
	if base, kind := a.CurrentBase(); base != 0xCCCC || kind != KindArmor {
		t.Fatalf("got base=%#x kind=%v, want 0xCCCC/armor", base, kind)
	}
}

func TestArbiterUnchangedValueDoesNotBumpTick(t *testing.T) {
	const weaponAddr, armorAddr = 0x1000, 0x2000
	slots := newFakeSlots()
	var now uint64
	a := NewWithClock(weaponAddr, armorAddr, tickClock(&now))

	now = 1
	slots.set(weaponAddr, 0x1111)
	a.Poll(slots)

	now = 2
	slots.set(armorAddr, 0x2222)
	a.Poll(slots)

	now = 3
	// Re-poll with weapon's value unchanged: its last_change_tick must
	// stay at 1, so armor (changed at tick 2) still wins.
	a.Poll(slots)
	if _, kind := a.CurrentBase(); kind != KindArmor {
		t.Fatalf("expected armor to remain current, got %v", kind)
	}
}

func TestArbiterResetClearsState(t *testing.T) {
	const weaponAddr, armorAddr = 0x1000, 0x2000
	slots := newFakeSlots()
	var now uint64
	a := NewWithClock(weaponAddr, armorAddr, tickClock(&now))

	now = 1
	slots.set(weaponAddr, 0x1111)
	a.Poll(slots)
	a.Reset()

	if base, kind := a.CurrentBase(); base != 0 || kind != KindNone {
		t.Fatalf("after Reset: got base=%#x kind=%v, want 0/none", base, kind)
	}
}
