// Package patch NOP-patches conditional branch instructions at one or
// more independently-optional sites (SPEC_FULL.md §4.5 / spec.md §4.5).
package patch

import (
	"github.com/xyproto/affixcore/internal/coreerr"
	"github.com/xyproto/affixcore/internal/scan"
	"github.com/xyproto/affixcore/internal/winproc"
)

// Site is one candidate patch location: a pattern to find it by, the
// number of bytes the patch touches, and which byte offsets within that
// window get overwritten with 0x90. Bytes not named in NopIndices are
// written back unchanged, matching spec.md §6's "positions 2-4 equal to
// the original to keep the code path uniform" contract for skill bypass
// site 1.
type Site struct {
	Name       string
	Pattern    scan.Pattern
	PatchLen   int
	NopIndices []int
}

// SkillBypassSites are the two known skill-gate branch sites, bit-exact
// per spec.md §6.
var SkillBypassSites = []Site{
	{
		Name:       "skill_bypass_1",
		Pattern:    scan.MustParse("75 43 0F B7 CF E8"),
		PatchLen:   5,
		NopIndices: []int{0, 1},
	},
	{
		Name:       "skill_bypass_2",
		Pattern:    scan.MustParse("0F 85 ?? ?? ?? ?? 48 8B 0D ?? ?? ?? ?? BA ?? ?? ?? ?? 41 C6 85 ?? ?? ?? ?? 01 48 8B 89"),
		PatchLen:   6,
		NopIndices: []int{0, 1, 2, 3, 4, 5},
	},
}

type installedPatch struct {
	site     Site
	address  uintptr
	original []byte
	enabled  bool
}

// Patcher installs and removes a set of independently-optional branch
// patches against a single process session.
type Patcher struct {
	sites     []Site
	installed []*installedPatch
}

// New returns a Patcher for the given candidate sites.
func New(sites []Site) *Patcher {
	return &Patcher{sites: sites}
}

func overwrite(original []byte, nopIndices []int) []byte {
	patched := make([]byte, len(original))
	copy(patched, original)
	for _, idx := range nopIndices {
		patched[idx] = 0x90
	}
	return patched
}

// Enable locates every candidate site in region, succeeding as long as at
// least one is found. If more than one site is found but any single
// write fails, every site written so far in this call is rolled back and
// Enable returns failure — an all-or-nothing outcome for the set that was
// actually located.
func (p *Patcher) Enable(s winproc.Session, region scan.Region) error {
	var found []*installedPatch
	for _, site := range p.sites {
		addr, err := scan.Find(s, site.Pattern, region)
		if err != nil {
			continue
		}
		original := make([]byte, site.PatchLen)
		if err := s.ReadMemory(addr, original); err != nil {
			continue
		}
		found = append(found, &installedPatch{site: site, address: addr, original: original})
	}
	if len(found) == 0 {
		return coreerr.New(coreerr.KindPatternNotFound, "no skill bypass site located")
	}

	var written []*installedPatch
	var writeErr error
	for _, ip := range found {
		patched := overwrite(ip.original, ip.site.NopIndices)
		old, err := s.Protect(ip.address, len(patched), winproc.PageExecuteReadWrite)
		if err != nil {
			writeErr = err
			break
		}
		err = s.WriteMemory(ip.address, patched)
		_, _ = s.Protect(ip.address, len(patched), old)
		if err != nil {
			writeErr = err
			break
		}
		ip.enabled = true
		written = append(written, ip)
	}
	if writeErr != nil {
		for _, ip := range written {
			old, err := s.Protect(ip.address, len(ip.original), winproc.PageExecuteReadWrite)
			if err == nil {
				_ = s.WriteMemory(ip.address, ip.original)
				_, _ = s.Protect(ip.address, len(ip.original), old)
			}
			ip.enabled = false
		}
		return coreerr.Wrap(coreerr.KindRemoteIOFailed, "partial skill bypass patch, rolled back", writeErr)
	}

	p.installed = written
	return nil
}

// Disable restores every currently-patched site's original bytes. A
// failure at one site does not stop Disable from attempting the rest;
// any failure is still reported.
func (p *Patcher) Disable(s winproc.Session) error {
	var lastErr error
	for _, ip := range p.installed {
		if !ip.enabled {
			continue
		}
		old, err := s.Protect(ip.address, len(ip.original), winproc.PageExecuteReadWrite)
		if err != nil {
			lastErr = err
			continue
		}
		err = s.WriteMemory(ip.address, ip.original)
		_, _ = s.Protect(ip.address, len(ip.original), old)
		if err != nil {
			lastErr = err
			continue
		}
		ip.enabled = false
	}
	if lastErr != nil {
		return coreerr.Wrap(coreerr.KindRemoteIOFailed, "one or more skill bypass restores failed", lastErr)
	}
	return nil
}

// Enabled reports whether at least one site is currently patched.
func (p *Patcher) Enabled() bool {
	for _, ip := range p.installed {
		if ip.enabled {
			return true
		}
	}
	return false
}

// InstalledSites returns the names of the sites currently patched, for
// diagnostics.
func (p *Patcher) InstalledSites() []string {
	var names []string
	for _, ip := range p.installed {
		if ip.enabled {
			names = append(names, ip.site.Name)
		}
	}
	return names
}
