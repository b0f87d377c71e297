package wirebuf

// Varints use 7-bit groups, LSB-first, with the high bit of each byte as a
// continuation flag. u32 varints take at most 5 bytes, u64 at most 10.

const (
	maxVarintU32Bytes = 5
	maxVarintU64Bytes = 10
)

// WriteVarintU32 appends v as a 7-bit-group varint (at most 5 bytes).
func (b *Buffer) WriteVarintU32(v uint32) {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b.WriteUint8(c | 0x80)
			continue
		}
		b.WriteUint8(c)
		return
	}
}

// ReadVarintU32 is the throwing form. Per the malformed-varint policy (see
// DESIGN.md), a varint that runs past maxVarintU32Bytes without a
// terminating byte does not error: it returns the partial value
// accumulated so far, with read_position left advanced past the bytes
// consumed.
func (b *Buffer) ReadVarintU32() (uint32, error) {
	var v uint32
	for i := 0; i < maxVarintU32Bytes; i++ {
		c, err := b.ReadUint8()
		if err != nil {
			return v, err
		}
		v |= uint32(c&0x7f) << (7 * uint(i))
		if c&0x80 == 0 {
			return v, nil
		}
	}
	return v, nil
}

// TryReadVarintU32 is the non-throwing form of ReadVarintU32.
func (b *Buffer) TryReadVarintU32() (uint32, bool) { return tryRead(b, b.ReadVarintU32) }

// WriteVarintU64 appends v as a 7-bit-group varint (at most 10 bytes).
func (b *Buffer) WriteVarintU64(v uint64) {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b.WriteUint8(c | 0x80)
			continue
		}
		b.WriteUint8(c)
		return
	}
}

// ReadVarintU64 is the throwing form; see ReadVarintU32 for the
// malformed-varint policy.
func (b *Buffer) ReadVarintU64() (uint64, error) {
	var v uint64
	for i := 0; i < maxVarintU64Bytes; i++ {
		c, err := b.ReadUint8()
		if err != nil {
			return v, err
		}
		v |= uint64(c&0x7f) << (7 * uint(i))
		if c&0x80 == 0 {
			return v, nil
		}
	}
	return v, nil
}

// TryReadVarintU64 is the non-throwing form of ReadVarintU64.
func (b *Buffer) TryReadVarintU64() (uint64, bool) { return tryRead(b, b.ReadVarintU64) }

// zigzag32 maps a signed value to unsigned so small-magnitude integers of
// either sign stay compact.
func zigzag32(v int32) uint32 { return uint32((v << 1) ^ (v >> 31)) }

func unzigzag32(v uint32) int32 { return int32(v>>1) ^ -int32(v&1) }

func zigzag64(v int64) uint64 { return uint64((v << 1) ^ (v >> 63)) }

func unzigzag64(v uint64) int64 { return int64(v>>1) ^ -int64(v&1) }

// WriteVarintI32 appends the zig-zag encoding of v.
func (b *Buffer) WriteVarintI32(v int32) { b.WriteVarintU32(zigzag32(v)) }

// ReadVarintI32 is the throwing form.
func (b *Buffer) ReadVarintI32() (int32, error) {
	v, err := b.ReadVarintU32()
	return unzigzag32(v), err
}

// TryReadVarintI32 is the non-throwing form.
func (b *Buffer) TryReadVarintI32() (int32, bool) { return tryRead(b, b.ReadVarintI32) }

// WriteVarintI64 appends the zig-zag encoding of v.
func (b *Buffer) WriteVarintI64(v int64) { b.WriteVarintU64(zigzag64(v)) }

// ReadVarintI64 is the throwing form.
func (b *Buffer) ReadVarintI64() (int64, error) {
	v, err := b.ReadVarintU64()
	return unzigzag64(v), err
}

// TryReadVarintI64 is the non-throwing form.
func (b *Buffer) TryReadVarintI64() (int64, bool) { return tryRead(b, b.ReadVarintI64) }

// WriteString appends a varint-u32 byte length followed by s's UTF-8 bytes.
func (b *Buffer) WriteString(s string) {
	b.WriteVarintU32(uint32(len(s)))
	b.WriteBytes([]byte(s))
}

// ReadString is the throwing form. If the decoded length is well-formed but
// exceeds the bits remaining, this is the DOS guard of §4.2: in release
// mode (DebugDOSGuard == false) the read cursor is forced to BitLength and
// an empty string is returned with no error; with DebugDOSGuard set it
// returns ErrReadOverflow instead, leaving the cursor at its pre-read
// position like any other overflow.
func (b *Buffer) ReadString() (string, error) {
	saved := b.readPosition
	length, err := b.ReadVarintU32()
	if err != nil {
		return "", err
	}
	if b.Remaining() < int(length)*8 {
		if b.DebugDOSGuard {
			b.readPosition = saved
			return "", ErrReadOverflow
		}
		b.readPosition = b.bitLength
		return "", nil
	}
	raw, err := b.ReadBytes(int(length))
	if err != nil {
		b.readPosition = saved
		return "", err
	}
	return string(raw), nil
}

// TryReadString is the non-throwing form of ReadString. Note the DOS guard
// above still applies before this wrapper ever sees a failure.
func (b *Buffer) TryReadString() (string, bool) { return tryRead(b, b.ReadString) }
