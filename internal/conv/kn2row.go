package conv

import (
	"fmt"

	"github.com/lowbitlabs/qconv/internal/packing"
	"github.com/lowbitlabs/qconv/internal/tensor"
)

// Conv2DKn2Row runs the row-decomposition convolution on packed values.
//
// The KxK kernel is applied as K separate row passes over vertically
// shifted views of the input, each pass accumulating its 1-D
// contribution into acc. No patch matrix is materialized. Per-position
// channel dots run on packed words via the packing primitives; spatial
// padding positions are skipped entirely and the channel tail is lane
// masked, so padding contributes exactly zero.
//
// input is ChHWBCl, kernel HWOI, acc NHWC int32 of shape
// [OutHeight, OutWidth, OutChannels]. acc is overwritten.
func Conv2DKn2Row(input *tensor.View[uint32], kernel *tensor.View[uint32], p Params, acc *tensor.View[int32]) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("conv2d kn2row: %w", err)
	}
	k, ch, bits := p.KernelSize, p.InWords(), p.Bits
	outH, outW := p.OutHeight(), p.OutWidth()
	if err := input.Check(tensor.ChHWBCl, ch, p.InHeight, p.InWidth, bits); err != nil {
		return fmt.Errorf("conv2d kn2row input: %w", err)
	}
	if err := kernel.Check(tensor.HWOI, k, k, p.OutChannels, ch); err != nil {
		return fmt.Errorf("conv2d kn2row kernel: %w", err)
	}
	if err := acc.Check(tensor.NHWC, outH, outW, p.OutChannels); err != nil {
		return fmt.Errorf("conv2d kn2row output: %w", err)
	}

	in := input.Data()
	kw := kernel.Data()
	out := acc.Data()
	for i := range out {
		out[i] = 0
	}

	cout := p.OutChannels
	tail := tensor.TailMask(p.InChannels, ch-1)
	scratch := make([]uint32, ch)
	for kr := 0; kr < k; kr++ {
		// One 1-D pass: row kr of the kernel against the input shifted
		// up by kr relative to the padded origin.
		for oh := 0; oh < outH; oh++ {
			ih := oh*p.Stride - p.Pad + kr
			if ih < 0 || ih >= p.InHeight {
				continue
			}
			for ow := 0; ow < outW; ow++ {
				accRow := out[(oh*outW+ow)*cout:][:cout]
				for kc := 0; kc < k; kc++ {
					iw := ow*p.Stride - p.Pad + kc
					if iw < 0 || iw >= p.InWidth {
						continue
					}
					kernRow := kw[((kr*k+kc)*cout)*ch:][:cout*ch]
					if bits == 1 {
						// Gather the position's channel words once and
						// reuse them across output channels.
						for g := 0; g < ch; g++ {
							scratch[g] = in[(g*p.InHeight+ih)*p.InWidth+iw]
						}
						for o := 0; o < cout; o++ {
							accRow[o] += packing.DotBinaryWords(scratch, kernRow[o*ch:o*ch+ch], tail)
						}
						continue
					}
					for g := 0; g < ch; g++ {
						mask := tensor.TailMask(p.InChannels, g)
						planes := in[((g*p.InHeight+ih)*p.InWidth+iw)*bits:][:bits]
						for o := 0; o < cout; o++ {
							accRow[o] += packing.DotPlanes(planes, kernRow[o*ch+g], mask)
						}
					}
				}
			}
		}
	}
	return nil
}
