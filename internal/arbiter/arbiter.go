// Package arbiter resolves which of two capture trampolines — weapon or
// armor — currently holds the game's "live" equipment base pointer, from
// nothing more than each slot's most recently observed value and when it
// last changed (SPEC_FULL.md §4.4 / spec.md §4.4).
package arbiter

import "time"

// Kind identifies which trampoline's capture is currently authoritative.
type Kind int

const (
	KindNone Kind = iota
	KindWeapon
	KindArmor
)

func (k Kind) String() string {
	switch k {
	case KindWeapon:
		return "weapon"
	case KindArmor:
		return "armor"
	default:
		return "none"
	}
}

// SlotReader is the minimal capability the arbiter needs from a process
// session: a single aligned 64-bit load.
type SlotReader interface {
	ReadUint64(addr uintptr) (uint64, error)
}

// Clock returns a monotonically non-decreasing tick value. Production
// code uses wallClockMillis; tests inject a counter they control so the
// seed scenarios ("weapon changes at tick 10, armor at tick 20") are
// exact rather than racing the wall clock.
type Clock func() uint64

func wallClockMillis() uint64 { return uint64(time.Now().UnixMilli()) }

// slotRecord is spec.md §3's Capture Arbiter State entry for one slot.
type slotRecord struct {
	lastObserved   uint64
	lastChangeTick uint64
}

// Arbiter tracks two capture slots and resolves which one is "current".
// It has no persistent history beyond the two records below; it never
// assumes the game writes monotonically.
type Arbiter struct {
	weaponAddr uintptr
	armorAddr  uintptr
	weapon     slotRecord
	armor      slotRecord
	rawWeapon  uint64
	rawArmor   uint64
	clock      Clock
}

// New creates an arbiter polling the given weapon and armor capture slot
// addresses, using the wall clock as its tick source.
func New(weaponAddr, armorAddr uintptr) *Arbiter {
	return &Arbiter{weaponAddr: weaponAddr, armorAddr: armorAddr, clock: wallClockMillis}
}

// NewWithClock is New, but with an injected tick source; tests use this to
// pin exact tick values instead of racing the wall clock.
func NewWithClock(weaponAddr, armorAddr uintptr, clock Clock) *Arbiter {
	return &Arbiter{weaponAddr: weaponAddr, armorAddr: armorAddr, clock: clock}
}

func readOrZero(s SlotReader, addr uintptr) uint64 {
	v, err := s.ReadUint64(addr)
	if err != nil {
		return 0
	}
	return v
}

// Poll reads both capture slots once. A slot's record advances only when
// its freshly observed value differs from the previously recorded one and
// is non-zero — a slot reverting to zero updates nothing in its record,
// but does change what CurrentBase/CurrentKind see as "currently observed"
// this tick.
func (a *Arbiter) Poll(s SlotReader) {
	a.rawWeapon = readOrZero(s, a.weaponAddr)
	a.rawArmor = readOrZero(s, a.armorAddr)

	if a.rawWeapon != 0 && a.rawWeapon != a.weapon.lastObserved {
		a.weapon.lastObserved = a.rawWeapon
		a.weapon.lastChangeTick = a.clock()
	}
	if a.rawArmor != 0 && a.rawArmor != a.armor.lastObserved {
		a.armor.lastObserved = a.rawArmor
		a.armor.lastChangeTick = a.clock()
	}
}

// CurrentBase resolves "the current base" per spec.md §4.4: armor wins if
// it changed more recently than weapon and is presently non-zero;
// otherwise weapon wins if non-zero; otherwise armor if non-zero;
// otherwise nothing has been captured yet.
func (a *Arbiter) CurrentBase() (uint64, Kind) {
	if a.armor.lastChangeTick > a.weapon.lastChangeTick && a.rawArmor != 0 {
		return a.rawArmor, KindArmor
	}
	if a.rawWeapon != 0 {
		return a.rawWeapon, KindWeapon
	}
	if a.rawArmor != 0 {
		return a.rawArmor, KindArmor
	}
	return 0, KindNone
}

// CurrentKind is CurrentBase's second return value alone, for callers that
// only care about which equipment type is live.
func (a *Arbiter) CurrentKind() Kind {
	_, kind := a.CurrentBase()
	return kind
}

// Reset clears all recorded state, as the controller does on detach; the
// slot addresses and clock are retained so the arbiter can be reused if
// the controller re-attaches.
func (a *Arbiter) Reset() {
	a.weapon = slotRecord{}
	a.armor = slotRecord{}
	a.rawWeapon = 0
	a.rawArmor = 0
}
