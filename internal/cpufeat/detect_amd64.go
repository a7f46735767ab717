//go:build amd64

package cpufeat

import "golang.org/x/sys/cpu"

func detect() {
	// POPCNT carries the hot loop; AVX2 machines additionally keep the
	// 4-wide unroll fed without stalling on loads.
	if cpu.X86.HasPOPCNT {
		fastDot = true
		featName = "popcnt"
		if cpu.X86.HasAVX2 {
			featName = "popcnt+avx2"
		}
	}
}
