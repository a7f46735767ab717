package accel

import (
	"fmt"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/lowbitlabs/qconv/internal/conv"
)

// Wire format: one record per exchange. The request record has two
// list<uint32> columns (input words, tiled kernel words) and the
// convolution descriptor in the schema metadata; the response record has
// one list<int32> column with the accumulation.

const (
	mdKernelSize  = "kernel_size"
	mdStride      = "stride"
	mdPad         = "pad"
	mdInChannels  = "in_channels"
	mdOutChannels = "out_channels"
	mdInHeight    = "in_height"
	mdInWidth     = "in_width"
	mdBits        = "bits"
)

func paramsMetadata(p conv.Params) arrow.Metadata {
	keys := []string{mdKernelSize, mdStride, mdPad, mdInChannels, mdOutChannels, mdInHeight, mdInWidth, mdBits}
	vals := []string{
		strconv.Itoa(p.KernelSize),
		strconv.Itoa(p.Stride),
		strconv.Itoa(p.Pad),
		strconv.Itoa(p.InChannels),
		strconv.Itoa(p.OutChannels),
		strconv.Itoa(p.InHeight),
		strconv.Itoa(p.InWidth),
		strconv.Itoa(p.Bits),
	}
	return arrow.NewMetadata(keys, vals)
}

func metadataParams(md arrow.Metadata) (conv.Params, error) {
	var p conv.Params
	get := func(key string) (int, error) {
		i := md.FindKey(key)
		if i < 0 {
			return 0, fmt.Errorf("request metadata missing %q", key)
		}
		return strconv.Atoi(md.Values()[i])
	}
	var err error
	if p.KernelSize, err = get(mdKernelSize); err != nil {
		return p, err
	}
	if p.Stride, err = get(mdStride); err != nil {
		return p, err
	}
	if p.Pad, err = get(mdPad); err != nil {
		return p, err
	}
	if p.InChannels, err = get(mdInChannels); err != nil {
		return p, err
	}
	if p.OutChannels, err = get(mdOutChannels); err != nil {
		return p, err
	}
	if p.InHeight, err = get(mdInHeight); err != nil {
		return p, err
	}
	if p.InWidth, err = get(mdInWidth); err != nil {
		return p, err
	}
	if p.Bits, err = get(mdBits); err != nil {
		return p, err
	}
	p.Backend = conv.BackendFPGA
	return p, nil
}

// RequestSchema is the Arrow schema of an offload request.
func RequestSchema(p conv.Params) *arrow.Schema {
	md := paramsMetadata(p)
	return arrow.NewSchema([]arrow.Field{
		{Name: "input", Type: arrow.ListOf(arrow.PrimitiveTypes.Uint32)},
		{Name: "kernel", Type: arrow.ListOf(arrow.PrimitiveTypes.Uint32)},
	}, &md)
}

// ResponseSchema is the Arrow schema of an offload response.
func ResponseSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "acc", Type: arrow.ListOf(arrow.PrimitiveTypes.Int32)},
	}, nil)
}

// EncodeRequest builds the single-row request record. The caller owns
// the returned record and must Release it.
func EncodeRequest(mem memory.Allocator, req *Request) arrow.Record {
	b := array.NewRecordBuilder(mem, RequestSchema(req.Params))
	defer b.Release()

	appendWords(b.Field(0).(*array.ListBuilder), req.Input)
	appendWords(b.Field(1).(*array.ListBuilder), req.Kernel)
	return b.NewRecord()
}

func appendWords(lb *array.ListBuilder, words []uint32) {
	lb.Append(true)
	lb.ValueBuilder().(*array.Uint32Builder).AppendValues(words, nil)
}

// DecodeRequest recovers a Request from a request record.
func DecodeRequest(rec arrow.Record) (*Request, error) {
	if rec.NumCols() != 2 || rec.NumRows() != 1 {
		return nil, fmt.Errorf("request record has %d cols x %d rows, expected 2x1",
			rec.NumCols(), rec.NumRows())
	}
	p, err := metadataParams(rec.Schema().Metadata())
	if err != nil {
		return nil, err
	}
	input, err := uint32Row(rec.Column(0))
	if err != nil {
		return nil, fmt.Errorf("request input column: %w", err)
	}
	kernel, err := uint32Row(rec.Column(1))
	if err != nil {
		return nil, fmt.Errorf("request kernel column: %w", err)
	}
	return &Request{Params: p, Input: input, Kernel: kernel}, nil
}

// EncodeResponse builds the single-row response record.
func EncodeResponse(mem memory.Allocator, resp *Response) arrow.Record {
	b := array.NewRecordBuilder(mem, ResponseSchema())
	defer b.Release()

	lb := b.Field(0).(*array.ListBuilder)
	lb.Append(true)
	lb.ValueBuilder().(*array.Int32Builder).AppendValues(resp.Acc, nil)
	return b.NewRecord()
}

// DecodeResponse recovers a Response from a response record.
func DecodeResponse(rec arrow.Record) (*Response, error) {
	if rec.NumCols() != 1 || rec.NumRows() != 1 {
		return nil, fmt.Errorf("response record has %d cols x %d rows, expected 1x1",
			rec.NumCols(), rec.NumRows())
	}
	col, ok := rec.Column(0).(*array.List)
	if !ok {
		return nil, fmt.Errorf("response column is %T, expected list", rec.Column(0))
	}
	vals, ok := col.ListValues().(*array.Int32)
	if !ok {
		return nil, fmt.Errorf("response values are %T, expected int32", col.ListValues())
	}
	start, end := col.ValueOffsets(0)
	acc := make([]int32, end-start)
	copy(acc, vals.Int32Values()[start:end])
	return &Response{Acc: acc}, nil
}

func uint32Row(a arrow.Array) ([]uint32, error) {
	col, ok := a.(*array.List)
	if !ok {
		return nil, fmt.Errorf("column is %T, expected list", a)
	}
	vals, ok := col.ListValues().(*array.Uint32)
	if !ok {
		return nil, fmt.Errorf("values are %T, expected uint32", col.ListValues())
	}
	start, end := col.ValueOffsets(0)
	out := make([]uint32, end-start)
	copy(out, vals.Uint32Values()[start:end])
	return out, nil
}
