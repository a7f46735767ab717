package accel

import (
	"context"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/lowbitlabs/qconv/internal/metrics"
)

// DefaultPort is the accelerator bridge's Flight port.
const DefaultPort = 3000

// FlightClient talks to the accelerator bridge over Arrow Flight.
type FlightClient struct {
	client  flight.Client
	addr    string
	timeout time.Duration
}

// NewFlightClient prepares a client for the given accelerator bridge
// address. No connection is made until Connect.
func NewFlightClient(host string, port int) *FlightClient {
	if port <= 0 {
		port = DefaultPort
	}
	return &FlightClient{
		addr:    fmt.Sprintf("%s:%d", host, port),
		timeout: 30 * time.Second,
	}
}

// Connect establishes the gRPC channel to the bridge.
func (fc *FlightClient) Connect(ctx context.Context) error {
	client, err := flight.NewClientWithMiddleware(fc.addr, nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to create Flight client for %s: %w", fc.addr, err)
	}
	fc.client = client
	return nil
}

// Close tears down the channel.
func (fc *FlightClient) Close() error {
	if fc.client != nil {
		return fc.client.Close()
	}
	return nil
}

// Conv2D exchanges one request record for one accumulation record.
func (fc *FlightClient) Conv2D(ctx context.Context, req *Request) (*Response, error) {
	if fc.client == nil {
		return nil, fmt.Errorf("client not connected, call Connect() first")
	}

	ctx, cancel := context.WithTimeout(ctx, fc.timeout)
	defer cancel()

	stream, err := fc.client.DoExchange(ctx)
	if err != nil {
		metrics.RecordOffloadError()
		return nil, fmt.Errorf("failed to open exchange: %w", err)
	}

	rec := EncodeRequest(memory.DefaultAllocator, req)
	defer rec.Release()

	wr := flight.NewRecordWriter(stream, ipc.WithSchema(rec.Schema()))
	wr.SetFlightDescriptor(&flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: []string{"conv2d"},
	})
	if err := wr.Write(rec); err != nil {
		metrics.RecordOffloadError()
		return nil, fmt.Errorf("failed to write request record: %w", err)
	}
	if err := wr.Close(); err != nil {
		metrics.RecordOffloadError()
		return nil, fmt.Errorf("failed to finish request stream: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		metrics.RecordOffloadError()
		return nil, fmt.Errorf("failed to close send side: %w", err)
	}

	rdr, err := flight.NewRecordReader(stream)
	if err != nil {
		metrics.RecordOffloadError()
		return nil, fmt.Errorf("failed to open response reader: %w", err)
	}
	defer rdr.Release()

	if !rdr.Next() {
		metrics.RecordOffloadError()
		if err := rdr.Err(); err != nil {
			return nil, fmt.Errorf("accelerator returned no record: %w", err)
		}
		return nil, fmt.Errorf("accelerator returned no record")
	}
	resp, err := DecodeResponse(rdr.Record())
	if err != nil {
		metrics.RecordOffloadError()
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}
