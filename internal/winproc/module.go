package winproc

// Range returns the module's half-open [base, base+size) address range,
// the substitution the Pattern Scanner uses when a caller passes a zeroed
// scan region (SPEC_FULL.md §3, "Scan Region").
func (m Module) Range() (start, end uintptr) {
	return m.Base, m.Base + m.Size
}
