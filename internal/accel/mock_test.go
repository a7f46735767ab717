package accel

import (
	"context"
	"testing"

	"github.com/lowbitlabs/qconv/internal/conv"
)

func TestMockRequiresConnect(t *testing.T) {
	m := NewMock()
	p := conv.Params{KernelSize: 1, Stride: 1, Pad: 0, InChannels: 1, OutChannels: 1,
		InHeight: 1, InWidth: 1, Bits: 1, Backend: conv.BackendFPGA}
	req := &Request{Params: p, Input: make([]uint32, 1), Kernel: make([]uint32, 16)}

	if _, err := m.Conv2D(context.Background(), req); err == nil {
		t.Fatal("expected error before Connect")
	}
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := m.Conv2D(context.Background(), req); err != nil {
		t.Fatalf("Conv2D after Connect: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := m.Conv2D(context.Background(), req); err == nil {
		t.Fatal("expected error after Close")
	}
}

func TestMockRejectsBadParams(t *testing.T) {
	m := NewMock()
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	p := conv.Params{KernelSize: 0}
	if _, err := m.Conv2D(context.Background(), &Request{Params: p}); err == nil {
		t.Fatal("expected validation error for bad params")
	}
}

func TestMockAccumulationShape(t *testing.T) {
	m := NewMock()
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	p := conv.Params{KernelSize: 3, Stride: 1, Pad: 1, InChannels: 4, OutChannels: 2,
		InHeight: 4, InWidth: 4, Bits: 1, Backend: conv.BackendFPGA}
	req := &Request{
		Params: p,
		Input:  make([]uint32, p.InWords()*p.InHeight*p.InWidth*p.Bits),
		Kernel: make([]uint32, p.OutTiles()*3*3*16*p.InWords()),
	}
	resp, err := m.Conv2D(context.Background(), req)
	if err != nil {
		t.Fatalf("Conv2D: %v", err)
	}
	if want := p.OutHeight() * p.OutWidth() * p.OutChannels; len(resp.Acc) != want {
		t.Fatalf("acc length %d, want %d", len(resp.Acc), want)
	}
}
