package conv

import (
	"errors"
	"fmt"

	"github.com/lowbitlabs/qconv/internal/tensor"
)

// ErrUnsupportedQuantizer is returned when a scaling factor carries a
// quantizer kind this kernel does not recognize. The conversion pipeline
// only emits the two kinds below, so hitting this at runtime means the
// generated layer table is broken.
var ErrUnsupportedQuantizer = errors.New("unsupported quantizer")

// QuantizerKind names the quantization scheme a scaling factor was
// recovered from.
type QuantizerKind int

const (
	// MeanScaling is a single scale for the whole layer.
	MeanScaling QuantizerKind = iota
	// ChannelWiseMeanScaling is one scale per output channel.
	ChannelWiseMeanScaling
)

func (k QuantizerKind) String() string {
	switch k {
	case MeanScaling:
		return "mean_scaling"
	case ChannelWiseMeanScaling:
		return "channelwise_mean_scaling"
	default:
		return "unknown"
	}
}

// ParseQuantizerKind maps the layer-table spelling to a kind.
func ParseQuantizerKind(s string) (QuantizerKind, error) {
	switch s {
	case "mean_scaling":
		return MeanScaling, nil
	case "channelwise_mean_scaling":
		return ChannelWiseMeanScaling, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedQuantizer, s)
	}
}

// ScalingFactor is a quantizer-derived multiplier: a scalar for
// MeanScaling, a per-output-channel vector for ChannelWiseMeanScaling.
// Instances are generated upstream and read-only here; they are safe to
// share across concurrent kernel calls.
type ScalingFactor struct {
	Kind       QuantizerKind
	Scalar     float32
	PerChannel []float32
}

// ApplyScaling rescales a raw integer accumulation into the final float
// output. Both views are NHWC with identical dims; for the per-channel
// kind the vector length must equal the output channel count.
func ApplyScaling(acc *tensor.View[int32], sf ScalingFactor, out *tensor.View[float32]) error {
	ad, od := acc.Dims(), out.Dims()
	if acc.Layout() != tensor.NHWC || out.Layout() != tensor.NHWC {
		return fmt.Errorf("%w: scaling expects NHWC views, got %s and %s",
			tensor.ErrShapeMismatch, acc.Layout(), out.Layout())
	}
	if len(ad) != 3 || len(od) != 3 || ad[0] != od[0] || ad[1] != od[1] || ad[2] != od[2] {
		return fmt.Errorf("%w: accumulation dims %v, output dims %v",
			tensor.ErrShapeMismatch, ad, od)
	}

	src := acc.Data()
	dst := out.Data()
	channels := ad[2]

	switch sf.Kind {
	case MeanScaling:
		for i, v := range src {
			dst[i] = float32(v) * sf.Scalar
		}
	case ChannelWiseMeanScaling:
		if len(sf.PerChannel) != channels {
			return fmt.Errorf("%w: %d per-channel scales for %d output channels",
				tensor.ErrShapeMismatch, len(sf.PerChannel), channels)
		}
		for i, v := range src {
			dst[i] = float32(v) * sf.PerChannel[i%channels]
		}
	default:
		return fmt.Errorf("%w: kind %d", ErrUnsupportedQuantizer, int(sf.Kind))
	}
	return nil
}
