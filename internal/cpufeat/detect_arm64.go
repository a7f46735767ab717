//go:build arm64

package cpufeat

import "golang.org/x/sys/cpu"

func detect() {
	// ASIMD is part of the ARMv8-A base; the check is kept for parity
	// with future SVE detection.
	if cpu.ARM64.HasASIMD {
		fastDot = true
		featName = "asimd"
	}
}
