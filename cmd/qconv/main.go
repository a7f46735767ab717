package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lowbitlabs/qconv/internal/config"
	"github.com/lowbitlabs/qconv/internal/conv"
	"github.com/lowbitlabs/qconv/internal/convert"
	"github.com/lowbitlabs/qconv/internal/cpufeat"
	"github.com/lowbitlabs/qconv/internal/device"
	"github.com/lowbitlabs/qconv/internal/logger"
	"github.com/lowbitlabs/qconv/internal/metrics"
	"github.com/lowbitlabs/qconv/internal/model"
	"github.com/lowbitlabs/qconv/internal/tensor"
)

var (
	layersPath  = flag.String("layers", "", "Path to the generated layer table (JSON)")
	backend     = flag.String("backend", "", "Compute backend: cpu or fpga (default: build-tag selection)")
	accelHost   = flag.String("accel-host", "localhost", "Accelerator bridge host")
	accelPort   = flag.Int("accel-port", 3000, "Accelerator bridge port")
	metricsAddr = flag.String("metrics", ":9090", "Address to serve Prometheus metrics")
	logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat   = flag.String("log-format", "console", "Log format: console or json")
	seed        = flag.Int64("seed", 42, "Seed for the synthetic activation/weight data")
	repeat      = flag.Int("repeat", 1, "Times to run each layer")
)

func main() {
	flag.Parse()

	if *layersPath == "" {
		fmt.Println("Error: --layers flag is required")
		flag.Usage()
		os.Exit(1)
	}

	logger.Setup(*logLevel, *logFormat)
	log := logger.Log

	cfg := config.Default()
	cfg.Backend = *backend
	cfg.AccelHost = *accelHost
	cfg.AccelPort = *accelPort
	cfg.LogLevel = *logLevel
	cfg.LogFormat = *logFormat
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "err", err)
	}

	// Start metrics server
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		log.Info("metrics serving", "addr", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
			log.Error("metrics server error", "err", err)
		}
	}()

	// Signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-sigChan
		log.Info("interrupted, shutting down")
		cancel()
	}()

	log.Info("loading layer table", "path", *layersPath)
	table, err := model.Load(*layersPath)
	if err != nil {
		log.Fatal("failed to load layer table", "err", err)
	}

	be, err := device.New(ctx, cfg)
	if err != nil {
		log.Fatal("failed to initialize backend", "err", err)
	}
	defer be.Close()
	log.Info("backend ready", "backend", be.Name(), "cpu", cpufeat.Name(), "layers", len(table.Layers))

	rng := rand.New(rand.NewSource(*seed))
	for i := range table.Layers {
		layer := &table.Layers[i]
		if err := runLayer(ctx, be, layer, rng, *repeat); err != nil {
			log.Fatal("layer failed", "layer", layer.Name, "err", err)
		}
	}
	log.Info("done")
}

// runLayer packs synthetic data for one layer, converts the weights into
// the backend's kernel layout, runs the convolution, and applies the
// layer's scaling factor.
func runLayer(ctx context.Context, be device.Backend, layer *model.Layer, rng *rand.Rand, repeat int) error {
	log := logger.Log
	p := layer.Params()
	k, ch := p.KernelSize, p.InWords()

	hwc := make([]uint8, p.InHeight*p.InWidth*p.InChannels)
	for i := range hwc {
		hwc[i] = uint8(rng.Intn(1 << uint(p.Bits)))
	}
	input, err := tensor.NewView(tensor.ChHWBCl,
		[]int{ch, p.InHeight, p.InWidth, p.Bits},
		make([]uint32, ch*p.InHeight*p.InWidth*p.Bits))
	if err != nil {
		return err
	}
	if err := convert.PackActivations(hwc, p, input); err != nil {
		return err
	}

	weights := make([]int8, p.OutChannels*k*k*p.InChannels)
	for i := range weights {
		if rng.Intn(2) == 1 {
			weights[i] = 1
		} else {
			weights[i] = -1
		}
	}
	ohwi, err := tensor.NewView(tensor.OHWI, []int{p.OutChannels, k, k, p.InChannels}, weights)
	if err != nil {
		return err
	}
	hwoi, err := tensor.NewView(tensor.HWOI, []int{k, k, p.OutChannels, ch},
		make([]uint32, k*k*p.OutChannels*ch))
	if err != nil {
		return err
	}
	if err := convert.OHWIToHWOI(ohwi, hwoi, p); err != nil {
		return err
	}

	// Weight conversion happens once per layer; the fpga path needs the
	// additional device tiling.
	kernel := hwoi
	if be.KernelLayout() == tensor.OhHWOlI {
		tiled, err := tensor.NewView(tensor.OhHWOlI,
			[]int{p.OutTiles(), k, k, tensor.TileOut, ch},
			make([]uint32, p.OutTiles()*k*k*tensor.TileOut*ch))
		if err != nil {
			return err
		}
		if err := convert.HWOIToTiled(hwoi, tiled, p); err != nil {
			return err
		}
		kernel = tiled
		p.Backend = conv.BackendFPGA
	}

	outH, outW := p.OutHeight(), p.OutWidth()
	acc, err := tensor.NewView(tensor.NHWC, []int{outH, outW, p.OutChannels},
		make([]int32, outH*outW*p.OutChannels))
	if err != nil {
		return err
	}
	out, err := tensor.NewView(tensor.NHWC, []int{outH, outW, p.OutChannels},
		make([]float32, outH*outW*p.OutChannels))
	if err != nil {
		return err
	}

	sf := layer.Scaling()
	for r := 0; r < repeat; r++ {
		start := time.Now()
		if err := be.Conv2D(ctx, input, kernel, p, acc); err != nil {
			return err
		}
		if err := conv.ApplyScaling(acc, sf, out); err != nil {
			return err
		}
		metrics.RecordScaling(sf.Kind.String())
		log.Info("layer complete",
			"layer", layer.Name,
			"out", fmt.Sprintf("%dx%dx%d", outH, outW, p.OutChannels),
			"quantizer", sf.Kind.String(),
			"took", time.Since(start))
	}
	return nil
}
