package packing

import (
	"math/bits"

	"github.com/lowbitlabs/qconv/internal/cpufeat"
)

var dotBinaryWordsImpl = dotBinaryWordsGeneric

func init() {
	if cpufeat.FastDot() {
		dotBinaryWordsImpl = dotBinaryWordsUnrolled
	}
}

// DotBinary is the 1-bit lane dot product over one word pair. Both sides
// decode to {-1,+1}: a matching lane contributes +1, a mismatching lane
// -1, and lanes cleared in mask contribute 0.
func DotBinary(a, w, mask uint32) int32 {
	x := (a ^ w) & mask
	return int32(bits.OnesCount32(^x&mask)) - int32(bits.OnesCount32(x))
}

// DotPlanes is the multi-bit variant: aPlanes holds one word per
// activation bit-plane (unsigned decode), w a word of signed binary
// weights. Masked lanes contribute 0.
func DotPlanes(aPlanes []uint32, w, mask uint32) int32 {
	var acc int32
	for d, a := range aPlanes {
		pos := bits.OnesCount32(a & w & mask)
		neg := bits.OnesCount32(a &^ w & mask)
		acc += int32(pos-neg) << uint(d)
	}
	return acc
}

// DotBinaryWords runs DotBinary across parallel word slices, applying
// tail to the final word pair. The slices must have equal length.
func DotBinaryWords(a, w []uint32, tail uint32) int32 {
	return dotBinaryWordsImpl(a, w, tail)
}

func dotBinaryWordsGeneric(a, w []uint32, tail uint32) int32 {
	var acc int32
	last := len(a) - 1
	for i := 0; i < last; i++ {
		x := a[i] ^ w[i]
		acc += int32(bits.OnesCount32(^x)) - int32(bits.OnesCount32(x))
	}
	if last >= 0 {
		acc += DotBinary(a[last], w[last], tail)
	}
	return acc
}

func dotBinaryWordsUnrolled(a, w []uint32, tail uint32) int32 {
	var acc int32
	last := len(a) - 1
	i := 0
	for ; i+4 <= last; i += 4 {
		x0 := a[i] ^ w[i]
		x1 := a[i+1] ^ w[i+1]
		x2 := a[i+2] ^ w[i+2]
		x3 := a[i+3] ^ w[i+3]
		// matches - mismatches == 32 - 2*popcount(xor) per word
		mm := bits.OnesCount32(x0) + bits.OnesCount32(x1) +
			bits.OnesCount32(x2) + bits.OnesCount32(x3)
		acc += int32(4*32 - 2*mm)
	}
	for ; i < last; i++ {
		x := a[i] ^ w[i]
		acc += int32(32 - 2*bits.OnesCount32(x))
	}
	if last >= 0 {
		acc += DotBinary(a[last], w[last], tail)
	}
	return acc
}
