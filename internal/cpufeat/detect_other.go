//go:build !amd64 && !arm64

package cpufeat

func detect() {
	fastDot = false
	featName = "scalar"
}
