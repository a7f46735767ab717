// Package packing is the bit-level codec shared by the convolution
// kernels: it packs quantized sub-values into 32-bit words and exposes
// the popcount dot primitives the hot loops run on.
//
// Packing order is bit-plane major, LSB-first within a word: plane d of
// lane i is bit (i mod 32) of word d*Words(n)+(i/32). Binary weights use
// a signed decode, bit set = +1 and bit clear = -1.
package packing

import (
	"errors"
	"fmt"

	"github.com/lowbitlabs/qconv/internal/tensor"
)

// MaxBits is the highest supported quantization depth.
const MaxBits = 2

var errBadDepth = errors.New("unsupported bit depth")

// Pack packs n unsigned codes, each below 1<<bits, into bits*Words(n)
// words, bit-plane major. The unused tail lanes of each plane are zero.
func Pack(codes []uint8, bits int) ([]uint32, error) {
	if bits < 1 || bits > MaxBits {
		return nil, fmt.Errorf("%w: %d", errBadDepth, bits)
	}
	limit := uint8(1) << uint(bits)
	words := tensor.Words(len(codes))
	out := make([]uint32, bits*words)
	for i, c := range codes {
		if c >= limit {
			return nil, fmt.Errorf("code %d at index %d exceeds %d-bit range", c, i, bits)
		}
		w, lane := i/tensor.WordBits, uint(i%tensor.WordBits)
		for d := 0; d < bits; d++ {
			if c>>uint(d)&1 == 1 {
				out[d*words+w] |= 1 << lane
			}
		}
	}
	return out, nil
}

// Unpack is the exact inverse of Pack for the first n lanes.
func Unpack(words []uint32, n, bits int) ([]uint8, error) {
	if bits < 1 || bits > MaxBits {
		return nil, fmt.Errorf("%w: %d", errBadDepth, bits)
	}
	wc := tensor.Words(n)
	if len(words) != bits*wc {
		return nil, fmt.Errorf("packed length %d, expected %d for %d lanes at %d bits",
			len(words), bits*wc, n, bits)
	}
	out := make([]uint8, n)
	for i := range out {
		w, lane := i/tensor.WordBits, uint(i%tensor.WordBits)
		var c uint8
		for d := 0; d < bits; d++ {
			c |= uint8(words[d*wc+w]>>lane&1) << uint(d)
		}
		out[i] = c
	}
	return out, nil
}

// PackSigned packs n weights in {-1,+1} into Words(n) words, +1 as a set
// bit. Any non-positive value packs as -1.
func PackSigned(vals []int8) []uint32 {
	out := make([]uint32, tensor.Words(len(vals)))
	for i, v := range vals {
		if v > 0 {
			out[i/tensor.WordBits] |= 1 << uint(i%tensor.WordBits)
		}
	}
	return out
}

// UnpackSigned recovers the first n signed weights packed by PackSigned.
func UnpackSigned(words []uint32, n int) ([]int8, error) {
	if len(words) != tensor.Words(n) {
		return nil, fmt.Errorf("packed length %d, expected %d for %d lanes",
			len(words), tensor.Words(n), n)
	}
	out := make([]int8, n)
	for i := range out {
		if words[i/tensor.WordBits]>>uint(i%tensor.WordBits)&1 == 1 {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out, nil
}
