package trampoline

import (
	"github.com/xyproto/affixcore/internal/coreerr"
	"github.com/xyproto/affixcore/internal/winproc"
)

// reachBudget is the distance on either side of the injection site the
// allocator searches before giving up locality and asking the OS to place
// the allocation anywhere (SPEC_FULL.md §4.2 / spec.md §4.2).
const reachBudget = 0x7000_0000

// minAllocSize is the smallest region the allocator will place the
// trampoline in; one page is more than the 31/33 bytes either variant
// needs, matching the original implementation's fixed 0x1000 allocation.
const minAllocSize = 0x1000

// candidateAddresses returns a lazy sequence of 64 KiB-aligned addresses
// to try placing an allocation at, walking upward from target-reachBudget
// (but not below 0x10000) to target+reachBudget. This realizes SPEC_FULL.md §9's "iterator over free
// regions" design note instead of one monolithic search loop.
func candidateAddresses(target uintptr) func(yield func(uintptr) bool) {
	searchStart := uintptr(0x10000)
	if target > reachBudget {
		searchStart = target - reachBudget
	}
	searchStart = (searchStart + winproc.AllocationGranularity - 1) &^ (winproc.AllocationGranularity - 1)
	searchEnd := target + reachBudget

	return func(yield func(uintptr) bool) {
		for addr := searchStart; addr < searchEnd; addr += winproc.AllocationGranularity {
			if !yield(addr) {
				return
			}
		}
	}
}

// Allocate reserves a ≥4 KiB RWX region in s's address space such that the
// allocation base is reachable from target+5 by a signed 32-bit near
// jump, per spec.md §4.2's algorithm: walk 64 KiB-aligned candidates in
// range, place at the first free one large enough, and fall back to an
// OS-chosen address if none is found nearby (the later reachability check
// in Enable rejects an unreachable fallback).
func Allocate(s winproc.Session, target uintptr, size int) (uintptr, error) {
	if size < minAllocSize {
		size = minAllocSize
	}

	var placed uintptr
	candidateAddresses(target)(func(addr uintptr) bool {
		info, err := s.Query(addr)
		if err != nil || !info.Free || info.Size < uintptr(size) {
			return true
		}
		base, err := s.Alloc(addr, size)
		if err != nil {
			return true
		}
		placed = base
		return false
	})
	if placed != 0 {
		return placed, nil
	}

	base, err := s.Alloc(0, size)
	if err != nil {
		return 0, coreerr.Wrap(coreerr.KindAllocateNearFailed, "no RWX cave within ±2GiB and OS fallback allocation failed", err)
	}
	return base, nil
}

// WithinReach reports whether base is reachable from a 5-byte near jump
// written at injectionSite (i.e. the rel32 from injectionSite+5 to base
// fits in a signed 32-bit integer).
func WithinReach(injectionSite, base uintptr) bool {
	rel := int64(base) - int64(injectionSite+5)
	return rel >= -(1<<31) && rel <= (1<<31)-1
}
