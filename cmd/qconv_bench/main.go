package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/lowbitlabs/qconv/internal/conv"
	"github.com/lowbitlabs/qconv/internal/cpufeat"
	"github.com/lowbitlabs/qconv/internal/tensor"
)

var (
	iters = flag.Int("iters", 50, "Iterations per shape")
	seed  = flag.Int64("seed", 1, "Data seed")
)

func main() {
	flag.Parse()

	shapes := []conv.Params{
		{KernelSize: 3, Stride: 1, Pad: 1, InChannels: 32, OutChannels: 32, InHeight: 32, InWidth: 32, Bits: 1},
		{KernelSize: 3, Stride: 1, Pad: 1, InChannels: 64, OutChannels: 64, InHeight: 28, InWidth: 28, Bits: 1},
		{KernelSize: 3, Stride: 1, Pad: 1, InChannels: 128, OutChannels: 128, InHeight: 14, InWidth: 14, Bits: 1},
		{KernelSize: 3, Stride: 1, Pad: 1, InChannels: 64, OutChannels: 64, InHeight: 28, InWidth: 28, Bits: 2},
		{KernelSize: 1, Stride: 1, Pad: 0, InChannels: 256, OutChannels: 256, InHeight: 7, InWidth: 7, Bits: 1},
	}

	fmt.Printf("kn2row benchmark (%s)\n", cpufeat.Name())
	rng := rand.New(rand.NewSource(*seed))
	for _, p := range shapes {
		if err := benchShape(p, rng, *iters); err != nil {
			fmt.Fprintf(os.Stderr, "shape %+v: %v\n", p, err)
			os.Exit(1)
		}
	}
}

func benchShape(p conv.Params, rng *rand.Rand, iters int) error {
	k, ch := p.KernelSize, p.InWords()

	inData := make([]uint32, ch*p.InHeight*p.InWidth*p.Bits)
	for i := range inData {
		inData[i] = rng.Uint32()
	}
	input, err := tensor.NewView(tensor.ChHWBCl, []int{ch, p.InHeight, p.InWidth, p.Bits}, inData)
	if err != nil {
		return err
	}

	kData := make([]uint32, k*k*p.OutChannels*ch)
	for i := range kData {
		kData[i] = rng.Uint32()
	}
	kernel, err := tensor.NewView(tensor.HWOI, []int{k, k, p.OutChannels, ch}, kData)
	if err != nil {
		return err
	}

	outH, outW := p.OutHeight(), p.OutWidth()
	acc, err := tensor.NewView(tensor.NHWC, []int{outH, outW, p.OutChannels},
		make([]int32, outH*outW*p.OutChannels))
	if err != nil {
		return err
	}

	// Warm up once before timing.
	if err := conv.Conv2DKn2Row(input, kernel, p, acc); err != nil {
		return err
	}

	start := time.Now()
	for i := 0; i < iters; i++ {
		if err := conv.Conv2DKn2Row(input, kernel, p, acc); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	macs := float64(outH) * float64(outW) * float64(p.OutChannels) *
		float64(k*k) * float64(p.InChannels) * float64(iters)
	gops := 2 * macs / elapsed.Seconds() / 1e9
	fmt.Printf("  k=%d c=%d->%d %dx%d bits=%d: %8.2f GOP/s (%v/iter)\n",
		k, p.InChannels, p.OutChannels, p.InHeight, p.InWidth, p.Bits,
		gops, elapsed/time.Duration(iters))
	return nil
}
