// Package metrics exposes Prometheus instrumentation for the kernel
// library. All collectors are registered at init via promauto; the
// /metrics endpoint is served by cmd/qconv.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConvInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qconv_invocations_total",
		Help: "Convolution calls by backend",
	}, []string{"backend"})

	KernelDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qconv_kernel_duration_seconds",
		Help:    "Histogram of kernel execution times",
		Buckets: prometheus.DefBuckets,
	}, []string{"kernel"})

	LayoutConversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qconv_layout_conversions_total",
		Help: "Layout conversions by kind",
	}, []string{"conversion"})

	ScalingApplicationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qconv_scaling_applications_total",
		Help: "Scaling stage applications by quantizer kind",
	}, []string{"quantizer"})

	OffloadErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qconv_offload_errors_total",
		Help: "Accelerator offload failures",
	})

	AccumulatedMACs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qconv_mac_operations_total",
		Help: "Multiply-accumulate operations executed (logical count)",
	})
)

// RecordConv records one convolution call on a backend with its duration.
func RecordConv(backend string, d time.Duration) {
	ConvInvocationsTotal.WithLabelValues(backend).Inc()
	KernelDuration.WithLabelValues("conv2d_" + backend).Observe(d.Seconds())
}

// RecordKernelDuration records the execution time of a named kernel.
func RecordKernelDuration(kernel string, d time.Duration) {
	KernelDuration.WithLabelValues(kernel).Observe(d.Seconds())
}

// RecordLayoutConversion counts one layout conversion of the given kind.
func RecordLayoutConversion(conversion string) {
	LayoutConversionsTotal.WithLabelValues(conversion).Inc()
}

// RecordScaling counts one scaling application by quantizer kind.
func RecordScaling(quantizer string) {
	ScalingApplicationsTotal.WithLabelValues(quantizer).Inc()
}

// RecordOffloadError counts one failed accelerator call.
func RecordOffloadError() {
	OffloadErrorsTotal.Inc()
}

// RecordMACs adds n logical multiply-accumulates to the running total.
func RecordMACs(n int64) {
	AccumulatedMACs.Add(float64(n))
}
