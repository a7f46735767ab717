// Package convert holds the explicit layout conversions: weight tensors
// from storage layout into the kernel and accelerator layouts, and
// logical activations into the packed input layout. Conversions copy
// every element, reordering per the two layout tags; they are
// deterministic and total when the declared shapes agree.
package convert

import (
	"fmt"

	"github.com/lowbitlabs/qconv/internal/conv"
	"github.com/lowbitlabs/qconv/internal/metrics"
	"github.com/lowbitlabs/qconv/internal/packing"
	"github.com/lowbitlabs/qconv/internal/tensor"
)

// OHWIToHWOI converts unpacked signed binary weights from the storage
// layout [Cout, K, K, Cin] into the packed compute layout
// [K, K, Cout, Words(Cin)] the row-decomposition kernel consumes.
func OHWIToHWOI(src *tensor.View[int8], dst *tensor.View[uint32], p conv.Params) error {
	k, ch := p.KernelSize, p.InWords()
	if err := src.Check(tensor.OHWI, p.OutChannels, k, k, p.InChannels); err != nil {
		return fmt.Errorf("ohwi_to_hwoi source: %w", err)
	}
	if err := dst.Check(tensor.HWOI, k, k, p.OutChannels, ch); err != nil {
		return fmt.Errorf("ohwi_to_hwoi destination: %w", err)
	}

	in := src.Data()
	out := dst.Data()
	for kr := 0; kr < k; kr++ {
		for kc := 0; kc < k; kc++ {
			for o := 0; o < p.OutChannels; o++ {
				row := in[((o*k+kr)*k+kc)*p.InChannels:][:p.InChannels]
				words := packing.PackSigned(row)
				copy(out[((kr*k+kc)*p.OutChannels+o)*ch:], words)
			}
		}
	}
	metrics.RecordLayoutConversion("ohwi_to_hwoi")
	return nil
}

// HWOIToOHWI is the inverse of OHWIToHWOI.
func HWOIToOHWI(src *tensor.View[uint32], dst *tensor.View[int8], p conv.Params) error {
	k, ch := p.KernelSize, p.InWords()
	if err := src.Check(tensor.HWOI, k, k, p.OutChannels, ch); err != nil {
		return fmt.Errorf("hwoi_to_ohwi source: %w", err)
	}
	if err := dst.Check(tensor.OHWI, p.OutChannels, k, k, p.InChannels); err != nil {
		return fmt.Errorf("hwoi_to_ohwi destination: %w", err)
	}

	in := src.Data()
	out := dst.Data()
	for kr := 0; kr < k; kr++ {
		for kc := 0; kc < k; kc++ {
			for o := 0; o < p.OutChannels; o++ {
				words := in[((kr*k+kc)*p.OutChannels+o)*ch:][:ch]
				vals, err := packing.UnpackSigned(words, p.InChannels)
				if err != nil {
					return fmt.Errorf("hwoi_to_ohwi: %w", err)
				}
				copy(out[((o*k+kr)*k+kc)*p.InChannels:], vals)
			}
		}
	}
	metrics.RecordLayoutConversion("hwoi_to_ohwi")
	return nil
}

// HWOIToTiled converts packed compute weights into the accelerator's
// output-channel-tiled layout [OutTiles, K, K, TileOut, Words(Cin)].
// Tail tiles past the last real output channel are zero-filled.
func HWOIToTiled(src *tensor.View[uint32], dst *tensor.View[uint32], p conv.Params) error {
	k, ch, tiles := p.KernelSize, p.InWords(), p.OutTiles()
	if err := src.Check(tensor.HWOI, k, k, p.OutChannels, ch); err != nil {
		return fmt.Errorf("hwoi_to_tiled source: %w", err)
	}
	if err := dst.Check(tensor.OhHWOlI, tiles, k, k, tensor.TileOut, ch); err != nil {
		return fmt.Errorf("hwoi_to_tiled destination: %w", err)
	}

	in := src.Data()
	out := dst.Data()
	for i := range out {
		out[i] = 0
	}
	for t := 0; t < tiles; t++ {
		for kr := 0; kr < k; kr++ {
			for kc := 0; kc < k; kc++ {
				for ol := 0; ol < tensor.TileOut; ol++ {
					o := t*tensor.TileOut + ol
					if o >= p.OutChannels {
						break
					}
					srcOff := ((kr*k+kc)*p.OutChannels + o) * ch
					dstOff := ((((t*k+kr)*k+kc)*tensor.TileOut + ol) * ch)
					copy(out[dstOff:dstOff+ch], in[srcOff:srcOff+ch])
				}
			}
		}
	}
	metrics.RecordLayoutConversion("hwoi_to_tiled")
	return nil
}

// TiledToHWOI is the inverse of HWOIToTiled, dropping the zero-filled
// tail tiles.
func TiledToHWOI(src *tensor.View[uint32], dst *tensor.View[uint32], p conv.Params) error {
	k, ch, tiles := p.KernelSize, p.InWords(), p.OutTiles()
	if err := src.Check(tensor.OhHWOlI, tiles, k, k, tensor.TileOut, ch); err != nil {
		return fmt.Errorf("tiled_to_hwoi source: %w", err)
	}
	if err := dst.Check(tensor.HWOI, k, k, p.OutChannels, ch); err != nil {
		return fmt.Errorf("tiled_to_hwoi destination: %w", err)
	}

	in := src.Data()
	out := dst.Data()
	for t := 0; t < tiles; t++ {
		for kr := 0; kr < k; kr++ {
			for kc := 0; kc < k; kc++ {
				for ol := 0; ol < tensor.TileOut; ol++ {
					o := t*tensor.TileOut + ol
					if o >= p.OutChannels {
						break
					}
					srcOff := ((((t*k+kr)*k+kc)*tensor.TileOut + ol) * ch)
					dstOff := ((kr*k+kc)*p.OutChannels + o) * ch
					copy(out[dstOff:dstOff+ch], in[srcOff:srcOff+ch])
				}
			}
		}
	}
	metrics.RecordLayoutConversion("tiled_to_hwoi")
	return nil
}

// PackActivations packs logical activation codes in HWC order into the
// ChHWBCl input layout. Codes must fit the declared bit depth.
func PackActivations(hwc []uint8, p conv.Params, dst *tensor.View[uint32]) error {
	ch, bits := p.InWords(), p.Bits
	if len(hwc) != p.InHeight*p.InWidth*p.InChannels {
		return fmt.Errorf("%w: %d activation codes for %dx%dx%d input",
			tensor.ErrShapeMismatch, len(hwc), p.InHeight, p.InWidth, p.InChannels)
	}
	if err := dst.Check(tensor.ChHWBCl, ch, p.InHeight, p.InWidth, bits); err != nil {
		return fmt.Errorf("pack_activations destination: %w", err)
	}

	out := dst.Data()
	for h := 0; h < p.InHeight; h++ {
		for w := 0; w < p.InWidth; w++ {
			pos := hwc[(h*p.InWidth+w)*p.InChannels:][:p.InChannels]
			words, err := packing.Pack(pos, bits)
			if err != nil {
				return fmt.Errorf("pack_activations at (%d,%d): %w", h, w, err)
			}
			// words is bit-plane major over Words(Cin); the input layout
			// wants plane innermost per word group.
			for g := 0; g < ch; g++ {
				base := ((g*p.InHeight+h)*p.InWidth + w) * bits
				for d := 0; d < bits; d++ {
					out[base+d] = words[d*ch+g]
				}
			}
		}
	}
	metrics.RecordLayoutConversion("pack_activations")
	return nil
}

// UnpackActivations is the inverse of PackActivations.
func UnpackActivations(src *tensor.View[uint32], p conv.Params) ([]uint8, error) {
	ch, bits := p.InWords(), p.Bits
	if err := src.Check(tensor.ChHWBCl, ch, p.InHeight, p.InWidth, bits); err != nil {
		return nil, fmt.Errorf("unpack_activations source: %w", err)
	}

	in := src.Data()
	out := make([]uint8, p.InHeight*p.InWidth*p.InChannels)
	words := make([]uint32, bits*ch)
	for h := 0; h < p.InHeight; h++ {
		for w := 0; w < p.InWidth; w++ {
			for g := 0; g < ch; g++ {
				base := ((g*p.InHeight+h)*p.InWidth + w) * bits
				for d := 0; d < bits; d++ {
					words[d*ch+g] = in[base+d]
				}
			}
			vals, err := packing.Unpack(words, p.InChannels, bits)
			if err != nil {
				return nil, fmt.Errorf("unpack_activations at (%d,%d): %w", h, w, err)
			}
			copy(out[(h*p.InWidth+w)*p.InChannels:], vals)
		}
	}
	return out, nil
}
