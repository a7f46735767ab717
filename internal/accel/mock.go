package accel

import (
	"context"
	"fmt"
	"sync"

	"github.com/lowbitlabs/qconv/internal/conv"
	"github.com/lowbitlabs/qconv/internal/convert"
	"github.com/lowbitlabs/qconv/internal/tensor"
)

// Mock is an in-process accelerator for tests and the backend-parity
// suite. It accepts the same tiled-layout payload the hardware does and
// computes the accumulation with the software kernel, so CPU and
// offloaded results can be compared bit for bit without a device.
type Mock struct {
	mu        sync.Mutex
	connected bool
	calls     int
}

// NewMock creates a disconnected mock accelerator.
func NewMock() *Mock {
	return &Mock{}
}

// Connect simulates acquiring the device.
func (m *Mock) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

// Close simulates releasing the device.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// Calls reports how many convolutions the mock has served.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Conv2D runs the offloaded convolution in process.
func (m *Mock) Conv2D(ctx context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, fmt.Errorf("mock accelerator not connected")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.calls++

	p := req.Params
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("mock accelerator: %w", err)
	}
	k, ch := p.KernelSize, p.InWords()

	tiled, err := tensor.NewView(tensor.OhHWOlI,
		[]int{p.OutTiles(), k, k, tensor.TileOut, ch}, req.Kernel)
	if err != nil {
		return nil, fmt.Errorf("mock accelerator kernel payload: %w", err)
	}
	hwoi, err := tensor.NewView(tensor.HWOI,
		[]int{k, k, p.OutChannels, ch}, make([]uint32, k*k*p.OutChannels*ch))
	if err != nil {
		return nil, err
	}
	if err := convert.TiledToHWOI(tiled, hwoi, p); err != nil {
		return nil, fmt.Errorf("mock accelerator: %w", err)
	}

	input, err := tensor.NewView(tensor.ChHWBCl,
		[]int{ch, p.InHeight, p.InWidth, p.Bits}, req.Input)
	if err != nil {
		return nil, fmt.Errorf("mock accelerator input payload: %w", err)
	}

	accData := make([]int32, p.OutHeight()*p.OutWidth()*p.OutChannels)
	acc, err := tensor.NewView(tensor.NHWC,
		[]int{p.OutHeight(), p.OutWidth(), p.OutChannels}, accData)
	if err != nil {
		return nil, err
	}
	if err := conv.Conv2DKn2Row(input, hwoi, p, acc); err != nil {
		return nil, fmt.Errorf("mock accelerator: %w", err)
	}
	return &Response{Acc: accData}, nil
}
