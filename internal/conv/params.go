// Package conv implements the quantized 2-D convolution kernels and the
// scaling stage that turns raw integer accumulations into float output.
package conv

import (
	"fmt"

	"github.com/lowbitlabs/qconv/internal/packing"
	"github.com/lowbitlabs/qconv/internal/tensor"
)

// Backend selects the compute path for a convolution call.
type Backend int

const (
	BackendCPU Backend = iota
	BackendFPGA
)

// ParseBackend maps the config spelling to a backend.
func ParseBackend(s string) (Backend, error) {
	switch s {
	case "cpu":
		return BackendCPU, nil
	case "fpga":
		return BackendFPGA, nil
	default:
		return 0, fmt.Errorf("invalid backend: %q", s)
	}
}

func (b Backend) String() string {
	switch b {
	case BackendCPU:
		return "cpu"
	case BackendFPGA:
		return "fpga"
	default:
		return "unknown"
	}
}

// Params is the per-layer convolution descriptor. It is produced by the
// upstream conversion pipeline and immutable for the duration of a call.
type Params struct {
	KernelSize  int
	Stride      int
	Pad         int
	InChannels  int
	OutChannels int
	InHeight    int
	InWidth     int
	Bits        int // activation quantization depth
	Backend     Backend
}

func (p Params) Validate() error {
	if p.KernelSize <= 0 {
		return fmt.Errorf("invalid kernel size: %d (must be positive)", p.KernelSize)
	}
	if p.Stride <= 0 {
		return fmt.Errorf("invalid stride: %d (must be positive)", p.Stride)
	}
	if p.Pad < 0 {
		return fmt.Errorf("invalid padding: %d (must be non-negative)", p.Pad)
	}
	if p.InChannels <= 0 {
		return fmt.Errorf("invalid input channels: %d (must be positive)", p.InChannels)
	}
	if p.OutChannels <= 0 {
		return fmt.Errorf("invalid output channels: %d (must be positive)", p.OutChannels)
	}
	if p.InHeight <= 0 || p.InWidth <= 0 {
		return fmt.Errorf("invalid input extent: %dx%d (must be positive)", p.InHeight, p.InWidth)
	}
	if p.Bits < 1 || p.Bits > packing.MaxBits {
		return fmt.Errorf("invalid bit depth: %d (must be in [1,%d])", p.Bits, packing.MaxBits)
	}
	if p.InHeight+2*p.Pad < p.KernelSize || p.InWidth+2*p.Pad < p.KernelSize {
		return fmt.Errorf("kernel %d does not fit padded input %dx%d",
			p.KernelSize, p.InHeight+2*p.Pad, p.InWidth+2*p.Pad)
	}
	if p.Backend != BackendCPU && p.Backend != BackendFPGA {
		return fmt.Errorf("invalid backend: %d", int(p.Backend))
	}
	return nil
}

// OutHeight is the output spatial height implied by the descriptor.
func (p Params) OutHeight() int {
	return (p.InHeight+2*p.Pad-p.KernelSize)/p.Stride + 1
}

// OutWidth is the output spatial width implied by the descriptor.
func (p Params) OutWidth() int {
	return (p.InWidth+2*p.Pad-p.KernelSize)/p.Stride + 1
}

// InWords is the packed word count per position per bit-plane.
func (p Params) InWords() int {
	return tensor.Words(p.InChannels)
}

// OutTiles is the output-channel tile count of the accelerator layout.
func (p Params) OutTiles() int {
	return (p.OutChannels + tensor.TileOut - 1) / tensor.TileOut
}
