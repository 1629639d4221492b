package cell

import "math/big"

// readBits returns n <= 64 bits of data starting at bit off,
// right-aligned in the result.
func readBits(data []byte, off, n int) uint64 {
	var v uint64
	for n > 0 {
		idx, bo := off>>3, off&7
		take := 8 - bo
		if take > n {
			take = n
		}
		chunk := uint64(data[idx]>>(8-bo-take)) & (1<<take - 1)
		v = v<<take | chunk
		off += take
		n -= take
	}
	return v
}

// writeBits stores the low n <= 64 bits of v into data at bit off.
func writeBits(data []byte, off int, v uint64, n int) {
	for n > 0 {
		idx, bo := off>>3, off&7
		take := 8 - bo
		if take > n {
			take = n
		}
		shift := 8 - bo - take
		mask := byte((uint(1)<<take - 1) << shift)
		chunk := byte(v>>(n-take)) << shift
		data[idx] = data[idx]&^mask | chunk&mask
		off += take
		n -= take
	}
}

// copyBits copies n bits from src at srcOff to dst at dstOff.
func copyBits(dst []byte, dstOff int, src []byte, srcOff, n int) {
	for n > 0 {
		take := 64
		if take > n {
			take = n
		}
		writeBits(dst, dstOff, readBits(src, srcOff, take), take)
		dstOff += take
		srcOff += take
		n -= take
	}
}

func bitAt(data []byte, i int) bool {
	return data[i>>3]&(0x80>>(i&7)) != 0
}

// FitsBits reports whether x is representable in n bits,
// as a two's complement value when signed is set.
func FitsBits(x *big.Int, n int, signed bool) bool {
	if x == nil || n < 0 {
		return false
	}
	if !signed {
		return x.Sign() >= 0 && x.BitLen() <= n
	}
	if n == 0 {
		return x.Sign() == 0
	}
	if x.Sign() >= 0 {
		return x.BitLen() <= n-1
	}
	// ^x == -x-1 is non-negative and needs at most n-1 bits.
	return new(big.Int).Not(x).BitLen() <= n-1
}

// twosComplement returns x as a non-negative n-bit pattern.
func twosComplement(x *big.Int, n int) *big.Int {
	if x.Sign() >= 0 {
		return x
	}
	m := new(big.Int).Lsh(big.NewInt(1), uint(n))
	return m.Add(m, x)
}
