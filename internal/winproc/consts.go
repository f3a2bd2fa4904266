package winproc

// Windows memory-management constants used by Query/Alloc/Free/Protect.
// Mirrored here instead of importing them piecemeal so fakeSession and
// windowsSession agree on the same values without either depending on the
// other's build tag.
const (
	MemCommit  = 0x00001000
	MemReserve = 0x00002000
	MemRelease = 0x00008000
	MemFree    = 0x00010000

	PageExecuteReadWrite = 0x40
	PageNoAccess         = 0x01

	// AllocationGranularity is the Windows allocation granularity (64 KiB)
	// that VirtualAlloc placement addresses must be aligned to.
	AllocationGranularity = 0x10000

	// PageSize is the hardware page size the pattern scanner buffers its
	// reads in.
	PageSize = 0x1000
)
