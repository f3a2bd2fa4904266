// Package asmgen is a small, typed x86-64 instruction emitter. Rather than
// hand-coded byte arrays for each trampoline variant, the handful of
// mnemonics the capture trampolines need (MovImm64,
// MovMemReg, JmpReg, and opaque RawBytes runs for the displaced original
// instructions) are built from a reusable Buffer, matching the teacher
// compiler's per-mnemonic emission style (mov.go, jmp.go) generalized away
// from one god-function per instruction name.
package asmgen

import (
	"fmt"
	"os"
)

// Verbose, when true, traces every emitted byte to stderr as hex, the same
// opt-in debug trace the teacher's BufferWrapper used during code
// generation.
var Verbose bool

// Buffer accumulates emitted machine code.
type Buffer struct {
	bytes []byte
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer { return &Buffer{} }

// Bytes returns the accumulated machine code.
func (b *Buffer) Bytes() []byte { return b.bytes }

// Len returns the number of bytes emitted so far.
func (b *Buffer) Len() int { return len(b.bytes) }

func (b *Buffer) write(bs ...byte) {
	b.bytes = append(b.bytes, bs...)
	if Verbose {
		for _, v := range bs {
			fmt.Fprintf(os.Stderr, " %02x", v)
		}
	}
}

// RawBytes appends an opaque run of bytes verbatim. Used for the displaced
// original instructions a trampoline must re-execute; this package never
// disassembles them, per SPEC_FULL.md's Non-goals.
func (b *Buffer) RawBytes(bs []byte) {
	b.write(bs...)
}

// NOP appends n 0x90 bytes.
func (b *Buffer) NOP(n int) {
	for i := 0; i < n; i++ {
		b.write(0x90)
	}
}
