package device

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/lowbitlabs/qconv/internal/accel"
	"github.com/lowbitlabs/qconv/internal/conv"
	"github.com/lowbitlabs/qconv/internal/convert"
	"github.com/lowbitlabs/qconv/internal/tensor"
)

func buildCase(t *testing.T, rng *rand.Rand, p conv.Params) (input *tensor.View[uint32], hwoi, tiled *tensor.View[uint32]) {
	t.Helper()
	k, ch := p.KernelSize, p.InWords()

	hwc := make([]uint8, p.InHeight*p.InWidth*p.InChannels)
	for i := range hwc {
		hwc[i] = uint8(rng.Intn(1 << uint(p.Bits)))
	}
	input, err := tensor.NewView(tensor.ChHWBCl,
		[]int{ch, p.InHeight, p.InWidth, p.Bits},
		make([]uint32, ch*p.InHeight*p.InWidth*p.Bits))
	if err != nil {
		t.Fatalf("input view: %v", err)
	}
	if err := convert.PackActivations(hwc, p, input); err != nil {
		t.Fatalf("PackActivations: %v", err)
	}

	weights := make([]int8, p.OutChannels*k*k*p.InChannels)
	for i := range weights {
		if rng.Intn(2) == 1 {
			weights[i] = 1
		} else {
			weights[i] = -1
		}
	}
	ohwi, err := tensor.NewView(tensor.OHWI, []int{p.OutChannels, k, k, p.InChannels}, weights)
	if err != nil {
		t.Fatalf("ohwi view: %v", err)
	}
	hwoi, err = tensor.NewView(tensor.HWOI, []int{k, k, p.OutChannels, ch},
		make([]uint32, k*k*p.OutChannels*ch))
	if err != nil {
		t.Fatalf("hwoi view: %v", err)
	}
	if err := convert.OHWIToHWOI(ohwi, hwoi, p); err != nil {
		t.Fatalf("OHWIToHWOI: %v", err)
	}
	tiled, err = tensor.NewView(tensor.OhHWOlI,
		[]int{p.OutTiles(), k, k, tensor.TileOut, ch},
		make([]uint32, p.OutTiles()*k*k*tensor.TileOut*ch))
	if err != nil {
		t.Fatalf("tiled view: %v", err)
	}
	if err := convert.HWOIToTiled(hwoi, tiled, p); err != nil {
		t.Fatalf("HWOIToTiled: %v", err)
	}
	return input, hwoi, tiled
}

func newAcc(t *testing.T, p conv.Params) *tensor.View[int32] {
	t.Helper()
	v, err := tensor.NewView(tensor.NHWC,
		[]int{p.OutHeight(), p.OutWidth(), p.OutChannels},
		make([]int32, p.OutHeight()*p.OutWidth()*p.OutChannels))
	if err != nil {
		t.Fatalf("acc view: %v", err)
	}
	return v
}

// Backend parity: the CPU path and the (mock) accelerator path must
// produce identical integer accumulations for the same logical inputs.
func TestBackendParity(t *testing.T) {
	cases := []conv.Params{
		{KernelSize: 3, Stride: 1, Pad: 1, InChannels: 4, OutChannels: 2, InHeight: 4, InWidth: 4, Bits: 1, Backend: conv.BackendFPGA},
		{KernelSize: 3, Stride: 1, Pad: 1, InChannels: 33, OutChannels: 17, InHeight: 6, InWidth: 5, Bits: 1, Backend: conv.BackendFPGA},
		{KernelSize: 3, Stride: 2, Pad: 1, InChannels: 16, OutChannels: 20, InHeight: 8, InWidth: 8, Bits: 2, Backend: conv.BackendFPGA},
	}
	rng := rand.New(rand.NewSource(31))
	ctx := context.Background()

	mock := accel.NewMock()
	fpga, err := NewFPGA(ctx, mock)
	if err != nil {
		t.Fatalf("NewFPGA: %v", err)
	}
	defer fpga.Close()
	cpu := NewCPU()

	for _, p := range cases {
		input, hwoi, tiled := buildCase(t, rng, p)

		cpuAcc := newAcc(t, p)
		cpuParams := p
		cpuParams.Backend = conv.BackendCPU
		if err := cpu.Conv2D(ctx, input, hwoi, cpuParams, cpuAcc); err != nil {
			t.Fatalf("cpu conv2d %+v: %v", p, err)
		}

		fpgaAcc := newAcc(t, p)
		if err := fpga.Conv2D(ctx, input, tiled, p, fpgaAcc); err != nil {
			t.Fatalf("fpga conv2d %+v: %v", p, err)
		}

		for i := range cpuAcc.Data() {
			if cpuAcc.Data()[i] != fpgaAcc.Data()[i] {
				t.Fatalf("case %+v: backend mismatch at %d: cpu %d, fpga %d",
					p, i, cpuAcc.Data()[i], fpgaAcc.Data()[i])
			}
		}
	}
	if mock.Calls() != len(cases) {
		t.Errorf("mock served %d calls, want %d", mock.Calls(), len(cases))
	}
}

func TestFPGARejectsSoftwareKernelLayout(t *testing.T) {
	p := conv.Params{KernelSize: 3, Stride: 1, Pad: 1, InChannels: 4, OutChannels: 2,
		InHeight: 4, InWidth: 4, Bits: 1, Backend: conv.BackendFPGA}
	rng := rand.New(rand.NewSource(3))
	input, hwoi, _ := buildCase(t, rng, p)

	fpga, err := NewFPGA(context.Background(), accel.NewMock())
	if err != nil {
		t.Fatalf("NewFPGA: %v", err)
	}
	defer fpga.Close()

	acc := newAcc(t, p)
	if err := fpga.Conv2D(context.Background(), input, hwoi, p, acc); !errors.Is(err, tensor.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch for HWOI kernel on fpga path, got %v", err)
	}
}

type failingClient struct{}

func (failingClient) Connect(ctx context.Context) error { return errors.New("no device node") }
func (failingClient) Conv2D(ctx context.Context, req *accel.Request) (*accel.Response, error) {
	return nil, errors.New("unreachable")
}
func (failingClient) Close() error { return nil }

func TestHardwareUnavailable(t *testing.T) {
	_, err := NewFPGA(context.Background(), failingClient{})
	if !errors.Is(err, ErrHardwareUnavailable) {
		t.Fatalf("expected ErrHardwareUnavailable, got %v", err)
	}
}

func TestKernelLayouts(t *testing.T) {
	if got := NewCPU().KernelLayout(); got != tensor.HWOI {
		t.Errorf("cpu kernel layout = %s, want HWOI", got)
	}
	fpga, err := NewFPGA(context.Background(), accel.NewMock())
	if err != nil {
		t.Fatalf("NewFPGA: %v", err)
	}
	defer fpga.Close()
	if got := fpga.KernelLayout(); got != tensor.OhHWOlI {
		t.Errorf("fpga kernel layout = %s, want OhHWOlI", got)
	}
}
