package cell

import (
	"strings"

	"github.com/mnill/tycho-vm/errors"
)

const hexDigits = "0123456789ABCDEF"

// ErrBitString is returned by ParseBitString for malformed input.
var ErrBitString = errors.New("invalid bit string")

// BitString renders the first n bits of data as hex digits.
// When n is not a multiple of 4 the last digit carries a
// completion tag (a 1 bit followed by zeros) and is followed by '_'.
func BitString(data []byte, n int) string {
	var b strings.Builder
	full := n / 4
	for i := 0; i < full; i++ {
		b.WriteByte(hexDigits[readBits(data, i*4, 4)])
	}
	if rem := n % 4; rem != 0 {
		v := readBits(data, full*4, rem)<<1 | 1
		v <<= 3 - rem
		b.WriteByte(hexDigits[v])
		b.WriteByte('_')
	}
	return b.String()
}

// ParseBitString is the inverse of BitString. The input may be
// wrapped as x{...}. A trailing '_' strips the completion tag:
// all trailing zero bits and the final 1 bit.
func ParseBitString(s string) (data []byte, n int, err error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "x{") && strings.HasSuffix(s, "}") {
		s = s[2 : len(s)-1]
	}
	tagged := strings.HasSuffix(s, "_")
	s = strings.TrimSuffix(s, "_")
	if len(s)*4 > MaxBits+3 {
		return nil, 0, errors.WithDetailf(ErrBitString, "%d hex digits is too long", len(s))
	}
	data = make([]byte, (len(s)+1)/2)
	for i := 0; i < len(s); i++ {
		d := strings.IndexByte(hexDigits, upper(s[i]))
		if d < 0 {
			return nil, 0, errors.WithDetailf(ErrBitString, "bad hex digit %q", s[i])
		}
		writeBits(data, i*4, uint64(d), 4)
	}
	n = len(s) * 4
	if tagged {
		for n > 0 && !bitAt(data, n-1) {
			n--
		}
		if n > 0 {
			n--
		}
		writeBits(data, n, 0, len(s)*4-n)
	}
	if n > MaxBits {
		return nil, 0, errors.WithDetailf(ErrBitString, "%d bits exceeds %d", n, MaxBits)
	}
	return data[:(n+7)/8], n, nil
}

func upper(c byte) byte {
	if 'a' <= c && c <= 'f' {
		return c - 'a' + 'A'
	}
	return c
}
