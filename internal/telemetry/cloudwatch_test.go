package telemetry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type mockCloudWatchClient struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (m *mockCloudWatchClient) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestCloudWatchMetrics_RecordRequest(t *testing.T) {
	client := &mockCloudWatchClient{}
	metrics := NewCloudWatchMetrics(client, "SkyCast", nil)

	metrics.RecordRequest(context.Background(), http.MethodGet, "/v1/weather", http.StatusOK, 250*time.Millisecond)

	if len(client.inputs) != 1 {
		t.Fatalf("got %d PutMetricData calls, want 1", len(client.inputs))
	}
	input := client.inputs[0]
	if aws.ToString(input.Namespace) != "SkyCast" {
		t.Errorf("namespace = %q, want SkyCast", aws.ToString(input.Namespace))
	}
	if len(input.MetricData) != 2 {
		t.Fatalf("got %d metric data, want 2", len(input.MetricData))
	}

	byName := map[string]cwtypes.MetricDatum{}
	for _, d := range input.MetricData {
		byName[aws.ToString(d.MetricName)] = d
	}

	count, ok := byName[MetricRequestCount]
	if !ok {
		t.Fatal("missing RequestCount datum")
	}
	if aws.ToFloat64(count.Value) != 1 {
		t.Errorf("RequestCount value = %v, want 1", aws.ToFloat64(count.Value))
	}

	latency, ok := byName[MetricRequestLatency]
	if !ok {
		t.Fatal("missing RequestLatency datum")
	}
	if aws.ToFloat64(latency.Value) != 250 {
		t.Errorf("RequestLatency value = %v, want 250", aws.ToFloat64(latency.Value))
	}
	if latency.Unit != cwtypes.StandardUnitMilliseconds {
		t.Errorf("RequestLatency unit = %v, want Milliseconds", latency.Unit)
	}

	dims := map[string]string{}
	for _, d := range latency.Dimensions {
		dims[aws.ToString(d.Name)] = aws.ToString(d.Value)
	}
	if dims[DimMethod] != "GET" || dims[DimEndpoint] != "/v1/weather" || dims[DimStatus] != "200" {
		t.Errorf("dimensions = %v", dims)
	}
}

func TestCloudWatchMetrics_PublishFailureIsSwallowed(t *testing.T) {
	client := &mockCloudWatchClient{err: errors.New("throttled")}
	metrics := NewCloudWatchMetrics(client, "SkyCast", nil)

	// Must not panic or surface the error.
	metrics.RecordRequest(context.Background(), http.MethodGet, "/v1/weather", http.StatusOK, time.Millisecond)

	if len(client.inputs) != 1 {
		t.Fatalf("got %d PutMetricData calls, want 1", len(client.inputs))
	}
}

func TestNoopMetrics(t *testing.T) {
	var collector MetricsCollector = NoopMetrics{}
	collector.RecordRequest(context.Background(), http.MethodGet, "/", http.StatusOK, time.Second)
}
