package asmgen

import "fmt"

// Reg64 names the caller-visible set of 64-bit general purpose registers
// the trampoline emitter needs, mirroring the encoding table the teacher's
// reg.go carried for the full x86-64 register file.
type Reg64 struct {
	Name     string
	encoding uint8
}

var (
	RAX = Reg64{"rax", 0}
	RCX = Reg64{"rcx", 1}
	RDX = Reg64{"rdx", 2}
	RBX = Reg64{"rbx", 3}
	RSP = Reg64{"rsp", 4}
	RBP = Reg64{"rbp", 5}
	RSI = Reg64{"rsi", 6}
	RDI = Reg64{"rdi", 7}
)

// MovImm64 emits `mov reg, imm64` (REX.W + 0xB8+reg + 8-byte little-endian
// immediate), 10 bytes total. This is how every trampoline loads the
// address of its capture slot or of its return address — never as a
// relative reference, since the allocation and the instruction stream
// that reads it are the same page.
func (b *Buffer) MovImm64(dst Reg64, imm uint64) error {
	if dst.encoding > 7 {
		return fmt.Errorf("asmgen: MovImm64 extended registers need a REX.B prefix, unsupported for %s", dst.Name)
	}
	b.write(0x48, 0xB8+dst.encoding)
	var imm8 [8]byte
	for i := 0; i < 8; i++ {
		imm8[i] = byte(imm)
		imm >>= 8
	}
	b.write(imm8[:]...)
	return nil
}

// MovMemReg emits `mov [baseReg], srcReg` (REX.W + 0x89 + ModRM), 3 bytes:
// a direct-addressing store of a 64-bit register through another
// register's value treated as a pointer, with no displacement. This is
// the capture store: the trampoline writes its designated register
// (rbp for weapon, rbx for armor) into the slot addressed by rax.
func (b *Buffer) MovMemReg(baseReg, srcReg Reg64) error {
	if baseReg.encoding > 7 || srcReg.encoding > 7 {
		return fmt.Errorf("asmgen: MovMemReg extended registers need a REX.B/REX.R prefix, unsupported")
	}
	if baseReg == RSP || baseReg == RBP {
		// [rsp]/[rbp] as a base with no displacement requires a SIB byte
		// or a disp8 respectively; neither capture site needs this, so it
		// is left unimplemented rather than silently mis-encoded.
		return fmt.Errorf("asmgen: MovMemReg base %s needs SIB/disp8 addressing, unsupported", baseReg.Name)
	}
	modrm := 0x00 | (srcReg.encoding << 3) | baseReg.encoding
	b.write(0x48, 0x89, modrm)
	return nil
}

// JmpReg emits `jmp reg` (0xFF /4), 2 bytes for a register in 0-7.
func (b *Buffer) JmpReg(reg Reg64) error {
	if reg.encoding > 7 {
		return fmt.Errorf("asmgen: JmpReg extended registers need a REX.B prefix, unsupported for %s", reg.Name)
	}
	modrm := 0xE0 | reg.encoding
	b.write(0xFF, modrm)
	return nil
}
