// Package model loads the generated per-layer table: one record per
// quantized convolution layer with its shape descriptor, quantizer kind,
// and scaling constants. The table replaces per-model compile-time
// specialization with data the conversion pipeline emits once.
package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lowbitlabs/qconv/internal/conv"
)

// Layer is one quantized convolution record.
type Layer struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	KernelSize  int    `json:"kernel_size"`
	Stride      int    `json:"stride"`
	Pad         int    `json:"pad"`
	InChannels  int    `json:"in_channels"`
	OutChannels int    `json:"out_channels"`
	InHeight    int    `json:"in_height"`
	InWidth     int    `json:"in_width"`
	Bits        int    `json:"bits"`

	// Quantizer is "mean_scaling" or "channelwise_mean_scaling".
	Quantizer string    `json:"quantizer"`
	Scale     float32   `json:"scale,omitempty"`
	Scales    []float32 `json:"scales,omitempty"`
}

// Table is the full layer table, indexed by layer id.
type Table struct {
	Layers []Layer `json:"layers"`
}

// Load reads and validates a layer table from a JSON file.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layer table: %w", err)
	}
	var t Table
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("failed to parse layer table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks every record. An unrecognized quantizer here is the
// generation-time failure the scaling stage must never see at runtime.
func (t *Table) Validate() error {
	if len(t.Layers) == 0 {
		return fmt.Errorf("layer table is empty")
	}
	seen := make(map[int]bool, len(t.Layers))
	for i := range t.Layers {
		l := &t.Layers[i]
		if seen[l.ID] {
			return fmt.Errorf("layer %q: duplicate id %d", l.Name, l.ID)
		}
		seen[l.ID] = true
		if err := l.Params().Validate(); err != nil {
			return fmt.Errorf("layer %q: %w", l.Name, err)
		}
		kind, err := conv.ParseQuantizerKind(l.Quantizer)
		if err != nil {
			return fmt.Errorf("layer %q: %w", l.Name, err)
		}
		if kind == conv.ChannelWiseMeanScaling && len(l.Scales) != l.OutChannels {
			return fmt.Errorf("layer %q: %d scales for %d output channels",
				l.Name, len(l.Scales), l.OutChannels)
		}
	}
	return nil
}

// Layer returns the record with the given id.
func (t *Table) Layer(id int) (*Layer, error) {
	for i := range t.Layers {
		if t.Layers[i].ID == id {
			return &t.Layers[i], nil
		}
	}
	return nil, fmt.Errorf("no layer with id %d", id)
}

// Params builds the convolution descriptor for this layer.
func (l *Layer) Params() conv.Params {
	return conv.Params{
		KernelSize:  l.KernelSize,
		Stride:      l.Stride,
		Pad:         l.Pad,
		InChannels:  l.InChannels,
		OutChannels: l.OutChannels,
		InHeight:    l.InHeight,
		InWidth:     l.InWidth,
		Bits:        l.Bits,
	}
}

// Scaling builds the scaling factor for this layer. The table has been
// validated, so an unknown quantizer string maps to an invalid kind that
// ApplyScaling rejects.
func (l *Layer) Scaling() conv.ScalingFactor {
	kind, err := conv.ParseQuantizerKind(l.Quantizer)
	if err != nil {
		return conv.ScalingFactor{Kind: -1}
	}
	if kind == conv.ChannelWiseMeanScaling {
		return conv.ScalingFactor{Kind: kind, PerChannel: l.Scales}
	}
	return conv.ScalingFactor{Kind: kind, Scalar: l.Scale}
}
