//go:build fpga

package device

import "github.com/lowbitlabs/qconv/internal/conv"

// DefaultBackend is the build-time backend selection.
func DefaultBackend() conv.Backend { return conv.BackendFPGA }
