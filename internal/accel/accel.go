// Package accel is the transport to the external convolution
// accelerator. Packed tensors travel as Arrow record batches over a
// Flight DoExchange stream; the convolution descriptor rides in the
// schema metadata. A Mock client stands in for the hardware in tests.
package accel

import (
	"context"

	"github.com/lowbitlabs/qconv/internal/conv"
)

// Request carries one offloaded convolution: the packed ChHWBCl input
// words and the device-tiled OhHWOlI kernel words.
type Request struct {
	Params conv.Params
	Input  []uint32
	Kernel []uint32
}

// Response carries the raw integer accumulation in NHWC order.
type Response struct {
	Acc []int32
}

// Client is the accelerator session. Implementations are not reentrant;
// the device layer serializes calls.
type Client interface {
	// Connect acquires the accelerator. Failure maps to
	// device.ErrHardwareUnavailable at the backend layer.
	Connect(ctx context.Context) error
	// Conv2D runs one offloaded convolution.
	Conv2D(ctx context.Context, req *Request) (*Response, error)
	Close() error
}
