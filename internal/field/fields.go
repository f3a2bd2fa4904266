package field

import "encoding/binary"

// Session is the minimal remote-memory capability field reads/writes
// need; winproc.Session satisfies it.
type Session interface {
	ReadMemory(addr uintptr, out []byte) error
	WriteMemory(addr uintptr, data []byte) error
}

// ReadShort reads a little-endian 16-bit field at addr.
func ReadShort(s Session, addr uintptr) (int16, error) {
	var buf [2]byte
	if err := s.ReadMemory(addr, buf[:]); err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(buf[:])), nil
}

// WriteShort writes a little-endian 16-bit field at addr.
func WriteShort(s Session, addr uintptr, v int16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(v))
	return s.WriteMemory(addr, buf[:])
}

// ReadInt reads a little-endian 32-bit field at addr.
func ReadInt(s Session, addr uintptr) (int32, error) {
	var buf [4]byte
	if err := s.ReadMemory(addr, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

// WriteInt writes a little-endian 32-bit field at addr.
func WriteInt(s Session, addr uintptr, v int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	return s.WriteMemory(addr, buf[:])
}

// ReadByte reads a single byte field at addr.
func ReadByte(s Session, addr uintptr) (byte, error) {
	var buf [1]byte
	if err := s.ReadMemory(addr, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// WriteByte writes a single byte field at addr.
func WriteByte(s Session, addr uintptr, v byte) error {
	return s.WriteMemory(addr, []byte{v})
}

// ReadBit reads a single bit field at addr, read-only.
func ReadBit(s Session, addr uintptr, bit uint) (bool, error) {
	b, err := ReadByte(s, addr)
	if err != nil {
		return false, err
	}
	return b&(1<<bit) != 0, nil
}

// WriteBit sets or clears a single bit field at addr via read-modify-write.
func WriteBit(s Session, addr uintptr, bit uint, value bool) error {
	b, err := ReadByte(s, addr)
	if err != nil {
		return err
	}
	if value {
		b |= 1 << bit
	} else {
		b &^= 1 << bit
	}
	return WriteByte(s, addr, b)
}

// CoreFields are the fields every equipment item carries regardless of
// whether it's a weapon or armor piece.
type CoreFields struct {
	ItemID     int16
	TransmogID int16
	Level      int16
	PlusValue  int16
	Quality    int32
}

// WeaponOnlyFields are the extra fields only meaningful on a weapon.
type WeaponOnlyFields struct {
	UnderworldSkillID int32
	Familiarity       int32
	IsUnderworld      bool
}

// WriteExtendedEquipment writes every core field, and — if isWeapon is
// true — the weapon-only fields. original_source/.../exports.cpp's
// extended write routine had this guard duplicated with unbalanced
// braces (`if (isWeapon) {` opened twice around the underworld skill /
// familiarity / underworld-flag block); this collapses it to the single
// conditional its control flow always meant.
func WriteExtendedEquipment(s Session, base uintptr, isWeapon bool, core CoreFields, weapon WeaponOnlyFields) error {
	if err := WriteShort(s, base+ItemIDOffset, core.ItemID); err != nil {
		return err
	}
	if err := WriteShort(s, base+TransmogIDOffset, core.TransmogID); err != nil {
		return err
	}
	if err := WriteShort(s, base+LevelOffset, core.Level); err != nil {
		return err
	}
	if err := WriteShort(s, base+EquipmentPlusValueOffset, core.PlusValue); err != nil {
		return err
	}
	if err := WriteInt(s, base+QualityOffset, core.Quality); err != nil {
		return err
	}

	if isWeapon {
		if err := WriteInt(s, base+UnderworldSkillIDOffset, weapon.UnderworldSkillID); err != nil {
			return err
		}
		if err := WriteInt(s, base+FamiliarityOffset, weapon.Familiarity); err != nil {
			return err
		}
		if err := WriteBit(s, base+UnderworldFlagOffset, UnderworldFlagBit, weapon.IsUnderworld); err != nil {
			return err
		}
	}

	return nil
}

// ReadCoreFields reads the fields every equipment item carries.
func ReadCoreFields(s Session, base uintptr) (CoreFields, error) {
	var f CoreFields
	var err error
	if f.ItemID, err = ReadShort(s, base+ItemIDOffset); err != nil {
		return f, err
	}
	if f.TransmogID, err = ReadShort(s, base+TransmogIDOffset); err != nil {
		return f, err
	}
	if f.Level, err = ReadShort(s, base+LevelOffset); err != nil {
		return f, err
	}
	if f.PlusValue, err = ReadShort(s, base+EquipmentPlusValueOffset); err != nil {
		return f, err
	}
	if f.Quality, err = ReadInt(s, base+QualityOffset); err != nil {
		return f, err
	}
	return f, nil
}

// ReadWeaponOnlyFields reads the weapon-specific fields.
func ReadWeaponOnlyFields(s Session, base uintptr) (WeaponOnlyFields, error) {
	var f WeaponOnlyFields
	var err error
	if f.UnderworldSkillID, err = ReadInt(s, base+UnderworldSkillIDOffset); err != nil {
		return f, err
	}
	if f.Familiarity, err = ReadInt(s, base+FamiliarityOffset); err != nil {
		return f, err
	}
	if f.IsUnderworld, err = ReadBit(s, base+UnderworldFlagOffset, UnderworldFlagBit); err != nil {
		return f, err
	}
	return f, nil
}
