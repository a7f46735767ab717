package tensor

import (
	"errors"
	"testing"
)

func TestNewViewStorageLength(t *testing.T) {
	data := make([]float32, 12)
	if _, err := NewView(NHWC, []int{3, 4, 1}, data); err != nil {
		t.Fatalf("valid view rejected: %v", err)
	}
	if _, err := NewView(NHWC, []int{3, 5, 1}, data); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch for short storage, got %v", err)
	}
	if _, err := NewView(NHWC, []int{3, 0, 1}, data); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch for zero dim, got %v", err)
	}
}

func TestViewIndexing(t *testing.T) {
	data := make([]int32, 2*3*4)
	for i := range data {
		data[i] = int32(i)
	}
	v, err := NewView(NHWC, []int{2, 3, 4}, data)
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}

	got, err := v.At(1, 2, 3)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if want := int32(1*12 + 2*4 + 3); got != want {
		t.Errorf("At(1,2,3) = %d, want %d", got, want)
	}

	if err := v.Set(-7, 0, 1, 2); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := v.At(0, 1, 2); got != -7 {
		t.Errorf("Set did not stick: got %d", got)
	}

	if _, err := v.At(0, 3, 0); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch for out-of-range index, got %v", err)
	}
	if _, err := v.At(0, 0); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch for wrong rank, got %v", err)
	}
}

func TestViewCheck(t *testing.T) {
	v, _ := NewView(HWOI, []int{3, 3, 2, 1}, make([]uint32, 18))
	if err := v.Check(HWOI, 3, 3, 2, 1); err != nil {
		t.Fatalf("Check on matching view: %v", err)
	}
	if err := v.Check(OHWI, 3, 3, 2, 1); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected layout mismatch, got %v", err)
	}
	if err := v.Check(HWOI, 3, 3, 4, 1); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected dim mismatch, got %v", err)
	}
}

func TestWords(t *testing.T) {
	cases := []struct{ channels, want int }{
		{1, 1}, {31, 1}, {32, 1}, {33, 2}, {64, 2}, {100, 4},
	}
	for _, c := range cases {
		if got := Words(c.channels); got != c.want {
			t.Errorf("Words(%d) = %d, want %d", c.channels, got, c.want)
		}
	}
}

func TestTailMask(t *testing.T) {
	if m := TailMask(32, 0); m != ^uint32(0) {
		t.Errorf("full word mask = %#x", m)
	}
	if m := TailMask(4, 0); m != 0xF {
		t.Errorf("4-channel mask = %#x, want 0xF", m)
	}
	if m := TailMask(33, 1); m != 1 {
		t.Errorf("33-channel group-1 mask = %#x, want 1", m)
	}
	if m := TailMask(32, 1); m != 0 {
		t.Errorf("mask beyond channels = %#x, want 0", m)
	}
}
