// Package tpupb holds the minimal protobuf-shaped message and gRPC
// client stub for libtpu's RuntimeMetricService, hand-trimmed from the
// upstream .proto to the three metrics this reader consumes
// (tpu.runtime.hbm.memory.total.bytes, .usage.bytes,
// tpu.runtime.tensorcore.dutycycle.percent). A full protoc-gen-go run
// against the upstream .proto would generate considerably more than is
// exercised here; this file defines only the wire shape the tier-1
// reader actually calls, registered against grpc's default proto codec
// via the struct tags below.
package tpupb

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/runtime/protoimpl"
)

// MetricRequest names the metric to fetch, matching libtpu's
// RuntimeMetricService.GetRuntimeMetric request shape.
type MetricRequest struct {
	MetricName string `protobuf:"bytes,1,opt,name=metric_name,json=metricName,proto3"`
	DeviceId   int32  `protobuf:"varint,2,opt,name=device_id,json=deviceId,proto3"`
}

func (m *MetricRequest) Reset()         { *m = MetricRequest{} }
func (m *MetricRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*MetricRequest) ProtoMessage()    {}

// ProtoReflect derives the message descriptor from the struct tags, so
// grpc's default proto codec accepts the hand-trimmed type.
func (m *MetricRequest) ProtoReflect() protoreflect.Message { return protoimpl.X.MessageOf(m) }

// MetricResponse carries one gauge value for the requested metric.
type MetricResponse struct {
	Value float64 `protobuf:"fixed64,1,opt,name=value,proto3"`
}

func (m *MetricResponse) Reset()         { *m = MetricResponse{} }
func (m *MetricResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*MetricResponse) ProtoMessage()    {}

func (m *MetricResponse) ProtoReflect() protoreflect.Message { return protoimpl.X.MessageOf(m) }

// RuntimeMetricServiceClient is the trimmed client interface; the full
// service exposes more RPCs than this reader needs.
type RuntimeMetricServiceClient interface {
	GetRuntimeMetric(ctx context.Context, in *MetricRequest, opts ...grpc.CallOption) (*MetricResponse, error)
}

type runtimeMetricServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewRuntimeMetricServiceClient wraps an existing connection to
// localhost:8431 (or wherever libtpu's runtime metrics server is
// listening).
func NewRuntimeMetricServiceClient(cc grpc.ClientConnInterface) RuntimeMetricServiceClient {
	return &runtimeMetricServiceClient{cc: cc}
}

const serviceMethod = "/tensorflow.tpu.RuntimeMetricService/GetRuntimeMetric"

func (c *runtimeMetricServiceClient) GetRuntimeMetric(ctx context.Context, in *MetricRequest, opts ...grpc.CallOption) (*MetricResponse, error) {
	out := new(MetricResponse)
	if err := c.cc.Invoke(ctx, serviceMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
