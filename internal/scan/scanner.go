package scan

import (
	"github.com/xyproto/affixcore/internal/coreerr"
	"github.com/xyproto/affixcore/internal/winproc"
)

// Region is a half-open [Start, End) range in the target's virtual
// address space.
type Region struct {
	Start uintptr
	End   uintptr
}

// IsZero reports whether both endpoints are zero, the sentinel a caller
// uses to ask for "the primary module's range" instead of an explicit one.
func (r Region) IsZero() bool { return r.Start == 0 && r.End == 0 }

// Find scans region for the first occurrence of pattern in session's
// address space, walking page-sized (4096-byte) buffers that overlap by
// pattern.Len() bytes (each read starts PageSize-pattern.Len() bytes after
// the previous one) so a match straddling a page boundary is still found.
// An unreadable page is skipped, not fatal: after a failed read the scan
// resumes at the next page boundary. If region is zero, the
// session's primary module range is substituted.
//
// Find returns a *coreerr.Error with KindPatternNotFound if the pattern
// parses to zero cells, the module can't be located (when no explicit
// range was given), or the whole region is exhausted without a match.
func Find(s winproc.Session, pattern Pattern, region Region) (uintptr, error) {
	if pattern.Len() == 0 {
		return 0, coreerr.New(coreerr.KindPatternNotFound, "pattern has zero cells")
	}

	if region.IsZero() {
		mod, err := s.MainModule()
		if err != nil {
			return 0, coreerr.Wrap(coreerr.KindPatternNotFound, "could not locate primary module", err)
		}
		region.Start, region.End = mod.Range()
	}

	const pageSize = winproc.PageSize
	n := pattern.Len()
	step := pageSize - n
	if step <= 0 {
		// A pattern as large as a page can't overlap a page boundary with
		// this scheme; fall back to reading one pattern-length window at
		// a time so correctness holds even for pathological inputs.
		step = 1
	}

	bufLen := pageSize
	if n > bufLen {
		bufLen = n
	}
	buf := make([]byte, bufLen)
	for addr := region.Start; addr < region.End; {
		readLen := bufLen
		if remaining := region.End - addr; remaining < uintptr(readLen) {
			readLen = int(remaining)
		}
		if readLen < n {
			break
		}
		if err := s.ReadMemory(addr, buf[:readLen]); err != nil {
			addr = (addr + pageSize) &^ (pageSize - 1)
			continue
		}
		for off := 0; off+n <= readLen; off++ {
			if pattern.MatchAt(buf, off) {
				return addr + uintptr(off), nil
			}
		}
		addr += uintptr(step)
	}

	return 0, coreerr.New(coreerr.KindPatternNotFound, "pattern exhausted scan region")
}
