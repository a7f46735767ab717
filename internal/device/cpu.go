package device

import (
	"context"
	"time"

	"github.com/lowbitlabs/qconv/internal/conv"
	"github.com/lowbitlabs/qconv/internal/metrics"
	"github.com/lowbitlabs/qconv/internal/tensor"
)

// CPU runs convolutions with the software kn2row kernel. It holds no
// state; instances are safe to share as long as concurrent calls write
// disjoint accumulation views.
type CPU struct{}

func NewCPU() *CPU { return &CPU{} }

func (c *CPU) Name() string { return "cpu" }

func (c *CPU) KernelLayout() tensor.Layout { return tensor.HWOI }

func (c *CPU) Close() error { return nil }

func (c *CPU) Conv2D(ctx context.Context, input *tensor.View[uint32], kernel *tensor.View[uint32], p conv.Params, acc *tensor.View[int32]) error {
	start := time.Now()
	if err := conv.Conv2DKn2Row(input, kernel, p, acc); err != nil {
		return err
	}
	metrics.RecordConv("cpu", time.Since(start))
	metrics.RecordMACs(int64(p.OutHeight()) * int64(p.OutWidth()) *
		int64(p.OutChannels) * int64(p.KernelSize*p.KernelSize) * int64(p.InChannels))
	return nil
}
