package conv

import (
	"fmt"

	"github.com/lowbitlabs/qconv/internal/tensor"
)

// Conv2DDirect is the naive patch-dot-product reference: it decodes
// every packed value and multiply-accumulates over full KxKxCin patches.
// It exists to pin down the numeric semantics the optimized paths must
// reproduce bit-identically; it is not a production path.
func Conv2DDirect(input *tensor.View[uint32], kernel *tensor.View[uint32], p Params, acc *tensor.View[int32]) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("conv2d direct: %w", err)
	}
	k, ch, bits := p.KernelSize, p.InWords(), p.Bits
	outH, outW := p.OutHeight(), p.OutWidth()
	if err := input.Check(tensor.ChHWBCl, ch, p.InHeight, p.InWidth, bits); err != nil {
		return fmt.Errorf("conv2d direct input: %w", err)
	}
	if err := kernel.Check(tensor.HWOI, k, k, p.OutChannels, ch); err != nil {
		return fmt.Errorf("conv2d direct kernel: %w", err)
	}
	if err := acc.Check(tensor.NHWC, outH, outW, p.OutChannels); err != nil {
		return fmt.Errorf("conv2d direct output: %w", err)
	}

	in := input.Data()
	kw := kernel.Data()
	out := acc.Data()

	activation := func(c, h, w int) int32 {
		g, lane := c/tensor.WordBits, uint(c%tensor.WordBits)
		base := ((g*p.InHeight+h)*p.InWidth + w) * bits
		var code int32
		for d := 0; d < bits; d++ {
			code |= int32(in[base+d]>>lane&1) << uint(d)
		}
		if bits == 1 {
			// Binary activations decode signed, matching DotBinary.
			return 2*code - 1
		}
		return code
	}
	weight := func(kr, kc, o, c int) int32 {
		g, lane := c/tensor.WordBits, uint(c%tensor.WordBits)
		if kw[((kr*k+kc)*p.OutChannels+o)*ch+g]>>lane&1 == 1 {
			return 1
		}
		return -1
	}

	for oh := 0; oh < outH; oh++ {
		for ow := 0; ow < outW; ow++ {
			for o := 0; o < p.OutChannels; o++ {
				var sum int32
				for kr := 0; kr < k; kr++ {
					ih := oh*p.Stride - p.Pad + kr
					if ih < 0 || ih >= p.InHeight {
						continue
					}
					for kc := 0; kc < k; kc++ {
						iw := ow*p.Stride - p.Pad + kc
						if iw < 0 || iw >= p.InWidth {
							continue
						}
						for c := 0; c < p.InChannels; c++ {
							sum += activation(c, ih, iw) * weight(kr, kc, o, c)
						}
					}
				}
				out[(oh*outW+ow)*p.OutChannels+o] = sum
			}
		}
	}
	return nil
}
