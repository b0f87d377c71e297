package wirebuf

import "math"

// bitsToHold returns the number of bits needed to represent v (0 needs 0
// bits: a [min,max] range with min==max carries no information).
func bitsToHold(v uint64) int {
	n := 0
	for v > 0 {
		v >>= 1
		n++
	}
	return n
}

// unitScale returns the 2^n+1 denominator used by the unit-float codes.
// See the "Unit-float quantization asymmetry" design note: the writer
// subtracts 1 from the rounded code and the reader adds it back, so no code
// decodes to 0.0 and the top code 2^n-1 decodes to 2^n/(2^n+1), not 1.0.
// This is a quirk of the wire
// format, not a bug, and must be reproduced bit-for-bit by any
// reimplementation.
func unitScale(n int) float64 { return float64(uint64(1)<<uint(n)) + 1 }

func clampCode(v int64, maxCode int64) uint32 {
	if v < 0 {
		return 0
	}
	if v > maxCode {
		return uint32(maxCode)
	}
	return uint32(v)
}

// WriteUnitFloat appends x (expected in [0,1]) quantized into n bits
// (1<=n<=32).
func (b *Buffer) WriteUnitFloat(x float64, n int) error {
	scale := unitScale(n)
	raw := int64(math.Round(x*scale)) - 1
	maxCode := int64(1)<<uint(n) - 1
	return b.WriteUint32InBits(clampCode(raw, maxCode), n)
}

// ReadUnitFloat is the throwing form of the inverse of WriteUnitFloat.
func (b *Buffer) ReadUnitFloat(n int) (float64, error) {
	encoded, err := b.ReadUint32InBits(n)
	if err != nil {
		return 0, err
	}
	return (float64(encoded) + 1) / unitScale(n), nil
}

// TryReadUnitFloat is the non-throwing form.
func (b *Buffer) TryReadUnitFloat(n int) (float64, bool) {
	return tryRead(b, func() (float64, error) { return b.ReadUnitFloat(n) })
}

// WriteSignedUnitFloat appends x (expected in [-1,1]) quantized into n bits.
func (b *Buffer) WriteSignedUnitFloat(x float64, n int) error {
	return b.WriteUnitFloat(x/2+0.5, n)
}

// ReadSignedUnitFloat is the throwing form.
func (b *Buffer) ReadSignedUnitFloat(n int) (float64, error) {
	u, err := b.ReadUnitFloat(n)
	if err != nil {
		return 0, err
	}
	return (u - 0.5) * 2, nil
}

// TryReadSignedUnitFloat is the non-throwing form.
func (b *Buffer) TryReadSignedUnitFloat(n int) (float64, bool) {
	return tryRead(b, func() (float64, error) { return b.ReadSignedUnitFloat(n) })
}

// WriteRangedFloat appends x (expected in [min,max]) uniformly quantized
// into n bits.
func (b *Buffer) WriteRangedFloat(x, min, max float64, n int) error {
	maxCode := int64(1)<<uint(n) - 1
	raw := int64(math.Round((x - min) / (max - min) * float64(maxCode)))
	return b.WriteUint32InBits(clampCode(raw, maxCode), n)
}

// ReadRangedFloat is the throwing form.
func (b *Buffer) ReadRangedFloat(min, max float64, n int) (float64, error) {
	encoded, err := b.ReadUint32InBits(n)
	if err != nil {
		return 0, err
	}
	maxCode := float64(uint64(1)<<uint(n) - 1)
	return min + (float64(encoded)/maxCode)*(max-min), nil
}

// TryReadRangedFloat is the non-throwing form.
func (b *Buffer) TryReadRangedFloat(min, max float64, n int) (float64, bool) {
	return tryRead(b, func() (float64, error) { return b.ReadRangedFloat(min, max, n) })
}

// RangedIntBits returns the bit width needed to store a ranged integer with
// the given min and max (inclusive).
func RangedIntBits(min, max int64) int {
	if max <= min {
		return 0
	}
	return bitsToHold(uint64(max - min))
}

// WriteRangedInt appends value-min in RangedIntBits(min,max) bits.
func (b *Buffer) WriteRangedInt(value, min, max int64) error {
	n := RangedIntBits(min, max)
	if n == 0 {
		return nil
	}
	return b.WriteUint64InBits(uint64(value-min), n)
}

// ReadRangedInt is the throwing form.
func (b *Buffer) ReadRangedInt(min, max int64) (int64, error) {
	n := RangedIntBits(min, max)
	if n == 0 {
		return min, nil
	}
	v, err := b.ReadUint64InBits(n)
	if err != nil {
		return 0, err
	}
	return min + int64(v), nil
}

// TryReadRangedInt is the non-throwing form.
func (b *Buffer) TryReadRangedInt(min, max int64) (int64, bool) {
	return tryRead(b, func() (int64, error) { return b.ReadRangedInt(min, max) })
}
