package tensor

// Layout names one of the closed set of physical memory orderings a view
// may carry. A view of one layout is never usable where another is
// required; conversions live in the convert package.
type Layout int

const (
	// NHWC is the planar layout for unpacked tensors with batch 1:
	// dims [H, W, C]. Used for accumulators and scaled float outputs.
	NHWC Layout = iota

	// OHWI is the weight-storage layout emitted by the conversion
	// pipeline: dims [Cout, K, K, Cin], one signed element per weight.
	OHWI

	// HWOI is the compute-friendly packed weight layout consumed by the
	// row-decomposition kernel: dims [K, K, Cout, Words(Cin)], one
	// uint32 word per 32 input-channel lanes.
	HWOI

	// ChHWBCl is the packed activation layout: dims
	// [Words(Cin), H, W, Bits], each element a word of 32 channel lanes
	// for one bit-plane.
	ChHWBCl

	// OhHWOlI is the device-tiled packed weight layout for the
	// accelerator path: dims [ceil(Cout/TileOut), K, K, TileOut,
	// Words(Cin)], output-channel tail tiles zero-filled.
	OhHWOlI
)

func (l Layout) String() string {
	switch l {
	case NHWC:
		return "NHWC"
	case OHWI:
		return "OHWI"
	case HWOI:
		return "HWOI"
	case ChHWBCl:
		return "ChHWBCl"
	case OhHWOlI:
		return "OhHWOlI"
	default:
		return "unknown"
	}
}

// TileOut is the output-channel tile width of the accelerator layout.
const TileOut = 16
