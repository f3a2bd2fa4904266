// Package affixcore instruments a running 64-bit Windows game process: it
// scans for known byte patterns, installs trampoline hooks that capture a
// live equipment-record pointer into shared memory, arbitrates between a
// weapon and an armor capture, and can NOP-patch a pair of skill-gate
// branches. See Controller for the entry point.
package affixcore
