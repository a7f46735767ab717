// Package device selects the compute backend for convolution calls: the
// software kn2row path or the accelerator offload path. Both honor the
// same parameter and scaling contracts; they differ only in the kernel
// layout they expect (HWOI for software, OhHWOlI tiled for the device).
package device

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lowbitlabs/qconv/internal/accel"
	"github.com/lowbitlabs/qconv/internal/config"
	"github.com/lowbitlabs/qconv/internal/conv"
	"github.com/lowbitlabs/qconv/internal/tensor"
)

// ErrHardwareUnavailable is returned when the accelerator path is
// requested but the device cannot be acquired. There is no automatic
// fallback to the software path; callers wanting resilience must decide
// that themselves.
var ErrHardwareUnavailable = errors.New("accelerator hardware unavailable")

// Backend is one convolution compute path. Conv2D writes the raw integer
// accumulation into acc; scaling is a separate stage.
type Backend interface {
	Conv2D(ctx context.Context, input *tensor.View[uint32], kernel *tensor.View[uint32], p conv.Params, acc *tensor.View[int32]) error
	// KernelLayout is the packed weight layout this backend consumes.
	KernelLayout() tensor.Layout
	Name() string
	Close() error
}

// New builds the backend selected by the config, falling back to the
// build-tag default when the config leaves it unset.
func New(ctx context.Context, cfg *config.Config) (Backend, error) {
	kind := DefaultBackend()
	if cfg.Backend != "" {
		var err error
		if kind, err = conv.ParseBackend(strings.ToLower(cfg.Backend)); err != nil {
			return nil, err
		}
	}
	switch kind {
	case conv.BackendCPU:
		return NewCPU(), nil
	case conv.BackendFPGA:
		client := accel.NewFlightClient(cfg.AccelHost, cfg.AccelPort)
		fpga, err := NewFPGA(ctx, client)
		if err != nil {
			return nil, err
		}
		return fpga, nil
	default:
		return nil, fmt.Errorf("unknown backend kind %d", int(kind))
	}
}
