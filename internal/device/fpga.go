package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lowbitlabs/qconv/internal/accel"
	"github.com/lowbitlabs/qconv/internal/conv"
	"github.com/lowbitlabs/qconv/internal/metrics"
	"github.com/lowbitlabs/qconv/internal/tensor"
)

// FPGA delegates convolutions to the external accelerator. The device is
// a single hardware resource and not reentrant, so calls are serialized
// on a mutex.
type FPGA struct {
	mu     sync.Mutex
	client accel.Client
}

// NewFPGA acquires the accelerator through the given client. Acquisition
// failure wraps ErrHardwareUnavailable.
func NewFPGA(ctx context.Context, client accel.Client) (*FPGA, error) {
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHardwareUnavailable, err)
	}
	return &FPGA{client: client}, nil
}

func (f *FPGA) Name() string { return "fpga" }

func (f *FPGA) KernelLayout() tensor.Layout { return tensor.OhHWOlI }

func (f *FPGA) Close() error { return f.client.Close() }

// Conv2D ships the packed input and the pre-tiled kernel to the device
// and copies the returned accumulation into acc.
func (f *FPGA) Conv2D(ctx context.Context, input *tensor.View[uint32], kernel *tensor.View[uint32], p conv.Params, acc *tensor.View[int32]) error {
	k, ch := p.KernelSize, p.InWords()
	if err := p.Validate(); err != nil {
		return fmt.Errorf("fpga conv2d: %w", err)
	}
	if err := input.Check(tensor.ChHWBCl, ch, p.InHeight, p.InWidth, p.Bits); err != nil {
		return fmt.Errorf("fpga conv2d input: %w", err)
	}
	if err := kernel.Check(tensor.OhHWOlI, p.OutTiles(), k, k, tensor.TileOut, ch); err != nil {
		return fmt.Errorf("fpga conv2d kernel: %w", err)
	}
	outH, outW := p.OutHeight(), p.OutWidth()
	if err := acc.Check(tensor.NHWC, outH, outW, p.OutChannels); err != nil {
		return fmt.Errorf("fpga conv2d output: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	start := time.Now()
	resp, err := f.client.Conv2D(ctx, &accel.Request{
		Params: p,
		Input:  input.Data(),
		Kernel: kernel.Data(),
	})
	if err != nil {
		return fmt.Errorf("fpga conv2d: %w", err)
	}
	if len(resp.Acc) != acc.NumElements() {
		return fmt.Errorf("%w: accelerator returned %d accumulation values, expected %d",
			tensor.ErrShapeMismatch, len(resp.Acc), acc.NumElements())
	}
	copy(acc.Data(), resp.Acc)
	metrics.RecordConv("fpga", time.Since(start))
	return nil
}
