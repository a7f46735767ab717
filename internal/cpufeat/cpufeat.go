// Package cpufeat reports whether the host CPU is worth giving the
// unrolled popcount-dot path. Detection runs once at init; the
// QCONV_NO_FAST_DOT environment variable forces the scalar path.
package cpufeat

import "os"

var (
	fastDot  bool
	featName = "scalar"
)

func init() {
	if noFastDotEnv() {
		fastDot = false
		featName = "scalar (env override)"
		return
	}
	detect()
}

func noFastDotEnv() bool {
	v := os.Getenv("QCONV_NO_FAST_DOT")
	return v != "" && v != "0" && v != "false"
}

// FastDot reports whether the unrolled dot kernels should be used.
func FastDot() bool { return fastDot }

// Name describes the detected capability, for startup logging.
func Name() string { return featName }
