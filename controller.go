// Package affixcore is the root package: it owns the process session,
// the two capture trampolines, the skill-bypass patcher and the arbiter,
// and enforces the lifecycle and partial-tolerance policy spec.md §4.6
// describes (SPEC_FULL.md §4.6).
package affixcore

import (
	"sync"

	"github.com/xyproto/affixcore/internal/arbiter"
	"github.com/xyproto/affixcore/internal/asmgen"
	"github.com/xyproto/affixcore/internal/coreerr"
	"github.com/xyproto/affixcore/internal/field"
	"github.com/xyproto/affixcore/internal/patch"
	"github.com/xyproto/affixcore/internal/scan"
	"github.com/xyproto/affixcore/internal/trampoline"
	"github.com/xyproto/affixcore/internal/winproc"
)

// openSession is a var, not a direct call to winproc.Open, so
// controller_test.go can substitute a FakeSession-backed opener.
var openSession = winproc.Open

// Controller is the core's single entry point. All public methods take
// an internal mutex so concurrent callers see a consistent view; none of
// them call back into another public method while holding it, which
// gives the re-entrant-from-the-caller's-perspective behavior spec.md
// §4.6 asks for without needing a literal recursive mutex (Go's sync
// package has none — see DESIGN.md).
type Controller struct {
	mu sync.Mutex

	cfg     Config
	session winproc.Session

	weapon  *trampoline.Capture
	armor   *trampoline.Capture
	patcher *patch.Patcher
	arb     *arbiter.Arbiter

	lastError error
}

// New returns an unattached Controller configured by cfg. cfg.Verbose
// also flips the package-level asmgen.Verbose hex trace, since the
// instruction emitter has no per-Controller state of its own to carry it.
func New(cfg Config) *Controller {
	asmgen.Verbose = cfg.Verbose
	return &Controller{
		cfg:     cfg,
		weapon:  trampoline.New(trampoline.HookWeapon),
		armor:   trampoline.New(trampoline.HookArmor),
		patcher: patch.New(patch.SkillBypassSites),
	}
}

func (c *Controller) record(err error) error {
	c.lastError = err
	return err
}

// LastError returns the message of the most recently recorded Error,
// overwritten on every subsequent failure (or cleared on success). It is
// empty once nothing has failed yet.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastError == nil {
		return ""
	}
	return c.lastError.Error()
}

// Attach opens a session against pid. Rejected if already attached.
func (c *Controller) Attach(pid uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return c.record(coreerr.New(coreerr.KindAlreadyAttached, "already attached to a process"))
	}
	s, err := openSession(pid)
	if err != nil {
		return c.record(coreerr.Wrap(coreerr.KindOpenProcessFailed, "failed to open process", err))
	}
	c.session = s
	c.lastError = nil
	return nil
}

// Detach disables and cleans up everything in reverse order, closes the
// session, and resets the arbiter. Detaching when not attached is a
// no-op.
func (c *Controller) Detach() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}

	if c.patcher.Enabled() {
		_ = c.patcher.Disable(c.session)
	}
	if c.armor.Enabled() {
		_ = c.armor.Disable()
	}
	_ = c.armor.Cleanup()
	if c.weapon.Enabled() {
		_ = c.weapon.Disable()
	}
	_ = c.weapon.Cleanup()

	err := c.session.Close()
	c.session = nil
	if c.arb != nil {
		c.arb.Reset()
		c.arb = nil
	}
	c.lastError = nil
	return err
}

// IsAttached reports whether a session is currently open.
func (c *Controller) IsAttached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// EnableCapture installs the weapon and armor capture trampolines.
// Weapon failure is fatal; armor failure downgrades to a recorded
// warning, since the armor pattern is known to be absent in some game
// builds and the weapon hook is the minimum viable capture.
func (c *Controller) EnableCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return c.record(coreerr.New(coreerr.KindNotAttached, "not attached to any process"))
	}

	if !c.weapon.Enabled() {
		pattern, err := scan.Parse(c.cfg.WeaponPattern)
		if err != nil {
			return c.record(coreerr.Wrap(coreerr.KindPatternNotFound, "invalid weapon pattern", err))
		}
		site, err := scan.Find(c.session, pattern, scan.Region{})
		if err != nil {
			return c.record(coreerr.Wrap(coreerr.KindPatternNotFound, "weapon AOB pattern not found; game version may be incompatible", err))
		}
		if err := c.weapon.Initialize(c.session, site); err != nil {
			return c.record(err)
		}
		if err := c.weapon.Enable(); err != nil {
			return c.record(err)
		}
	}

	var armorWarning error
	if !c.armor.Enabled() {
		pattern, err := scan.Parse(c.cfg.ArmorPattern)
		if err != nil {
			armorWarning = coreerr.Wrap(coreerr.KindPatternNotFound, "invalid armor pattern; armor editing may not work", err)
		} else if site, err := scan.Find(c.session, pattern, scan.Region{}); err != nil {
			armorWarning = coreerr.Wrap(coreerr.KindPatternNotFound, "armor AOB pattern not found; armor editing may not work", err)
		} else if err := c.armor.Initialize(c.session, site); err != nil {
			armorWarning = coreerr.Wrap(coreerr.KindRemoteIOFailed, "failed to initialize armor code injector; armor editing may not work", err)
		} else if err := c.armor.Enable(); err != nil {
			armorWarning = coreerr.Wrap(coreerr.KindRemoteIOFailed, "failed to enable armor hook; armor editing may not work", err)
		}
	}

	weaponSlot := c.weapon.SlotAddr()
	var armorSlot uintptr
	if c.armor.Enabled() {
		armorSlot = c.armor.SlotAddr()
	}
	c.arb = arbiter.New(weaponSlot, armorSlot)

	// Weapon capture succeeding is success even if armor's pattern is
	// missing; the warning is still recorded for LastError() to surface.
	c.lastError = armorWarning
	return nil
}

// DisableCapture disables whichever of the weapon/armor trampolines are
// currently installed; the underlying allocations are kept (released on
// Detach), matching the original implementation's Disable/Cleanup split.
func (c *Controller) DisableCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return c.record(coreerr.New(coreerr.KindNotAttached, "not attached to any process"))
	}

	var disableErr error
	if c.weapon.Enabled() {
		if err := c.weapon.Disable(); err != nil {
			disableErr = err
		}
	}
	if c.armor.Enabled() {
		if err := c.armor.Disable(); err != nil {
			disableErr = err
		}
	}
	if disableErr != nil {
		return c.record(disableErr)
	}
	c.lastError = nil
	return nil
}

// EnableSkillBypass patches whichever of the two skill-gate branch sites
// can be located; one site suffices.
func (c *Controller) EnableSkillBypass() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return c.record(coreerr.New(coreerr.KindNotAttached, "not attached to any process"))
	}
	if c.patcher.Enabled() {
		return nil
	}
	if err := c.patcher.Enable(c.session, scan.Region{}); err != nil {
		return c.record(err)
	}
	c.lastError = nil
	return nil
}

// DisableSkillBypass restores every currently-patched skill-gate site.
func (c *Controller) DisableSkillBypass() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return c.record(coreerr.New(coreerr.KindNotAttached, "not attached to any process"))
	}
	if err := c.patcher.Disable(c.session); err != nil {
		return c.record(err)
	}
	c.lastError = nil
	return nil
}

// CurrentBase resolves the arbiter's notion of "the current base" and
// which trampoline it came from. Returns KindNotCapturedYet if capture
// hasn't been enabled, or nothing has been captured yet.
func (c *Controller) CurrentBase() (uint64, arbiter.Kind, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentBaseLocked()
}

// currentBaseLocked is CurrentBase's body for callers that already hold
// c.mu — it lets a method poll the arbiter and then dereference the
// resolved base for its own field I/O without ever releasing the lock in
// between, so a concurrent Detach can't null out c.session in the gap.
func (c *Controller) currentBaseLocked() (uint64, arbiter.Kind, error) {
	if c.session == nil {
		return 0, arbiter.KindNone, c.record(coreerr.New(coreerr.KindNotAttached, "not attached to any process"))
	}
	if c.arb == nil {
		return 0, arbiter.KindNone, c.record(coreerr.New(coreerr.KindNotCapturedYet, "capture has not been enabled yet"))
	}

	c.arb.Poll(c.session)
	base, kind := c.arb.CurrentBase()
	if kind == arbiter.KindNone {
		return 0, kind, c.record(coreerr.New(coreerr.KindNotCapturedYet, "no equipment base captured yet"))
	}
	c.lastError = nil
	return base, kind, nil
}

// CurrentKind is CurrentBase's equipment-type result alone.
func (c *Controller) CurrentKind() arbiter.Kind {
	_, kind, _ := c.CurrentBase()
	return kind
}

// ReadEquipmentCoreFields reads the fields every equipment item carries,
// dereferencing the arbiter's current base. Resolving the base and
// dereferencing it happen under the same lock acquisition, so a
// concurrent Detach can't null out the session in between.
func (c *Controller) ReadEquipmentCoreFields() (field.CoreFields, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	base, _, err := c.currentBaseLocked()
	if err != nil {
		return field.CoreFields{}, err
	}
	f, err := field.ReadCoreFields(c.session, uintptr(base))
	if err != nil {
		return field.CoreFields{}, c.record(coreerr.Wrap(coreerr.KindRemoteIOFailed, "reading equipment core fields", err))
	}
	return f, nil
}

// WriteEquipmentExtended writes core, and weapon-only fields if the
// currently captured base is a weapon, dereferencing the arbiter's
// current base. Collapses the original implementation's duplicated
// isWeapon guard into the single conditional it always meant. Resolving
// the base and writing through it happen under the same lock
// acquisition, so a concurrent Detach can't null out the session in
// between.
func (c *Controller) WriteEquipmentExtended(core field.CoreFields, weapon field.WeaponOnlyFields) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	base, kind, err := c.currentBaseLocked()
	if err != nil {
		return err
	}
	isWeapon := kind == arbiter.KindWeapon
	if err := field.WriteExtendedEquipment(c.session, uintptr(base), isWeapon, core, weapon); err != nil {
		return c.record(coreerr.Wrap(coreerr.KindRemoteIOFailed, "writing equipment fields", err))
	}
	c.lastError = nil
	return nil
}

// ReadAffixID reads the affix ID at slotIndex relative to the arbiter's
// current base. Resolving the base and reading through it happen under
// the same lock acquisition, so a concurrent Detach can't null out the
// session in between.
func (c *Controller) ReadAffixID(slotIndex int) (int16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slotIndex < 0 || slotIndex >= field.AffixSlotCount {
		return 0, c.record(coreerr.New(coreerr.KindInvalidSlotIndex, "affix slot index out of range"))
	}
	base, _, err := c.currentBaseLocked()
	if err != nil {
		return 0, err
	}
	v, err := field.ReadShort(c.session, field.AffixIDAddr(uintptr(base), slotIndex))
	if err != nil {
		return 0, c.record(coreerr.Wrap(coreerr.KindRemoteIOFailed, "reading affix ID", err))
	}
	return v, nil
}

// WriteAffixID writes the affix ID at slotIndex relative to the
// arbiter's current base. Resolving the base and writing through it
// happen under the same lock acquisition, so a concurrent Detach can't
// null out the session in between.
func (c *Controller) WriteAffixID(slotIndex int, id int16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slotIndex < 0 || slotIndex >= field.AffixSlotCount {
		return c.record(coreerr.New(coreerr.KindInvalidSlotIndex, "affix slot index out of range"))
	}
	base, _, err := c.currentBaseLocked()
	if err != nil {
		return err
	}
	if err := field.WriteShort(c.session, field.AffixIDAddr(uintptr(base), slotIndex), id); err != nil {
		return c.record(coreerr.Wrap(coreerr.KindRemoteIOFailed, "writing affix ID", err))
	}
	c.lastError = nil
	return nil
}
