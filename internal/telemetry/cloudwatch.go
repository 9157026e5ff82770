// Package telemetry emits service metrics to AWS CloudWatch.
package telemetry

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsCollector records HTTP request metrics. A nil-safe no-op
// implementation is available for local runs without AWS credentials.
type MetricsCollector interface {
	RecordRequest(ctx context.Context, method, endpoint string, status int, duration time.Duration)
}

// Metric and dimension names published to CloudWatch.
const (
	MetricRequestCount   = "RequestCount"
	MetricRequestLatency = "RequestLatency"

	DimMethod   = "Method"
	DimEndpoint = "Endpoint"
	DimStatus   = "Status"
)

// CloudWatchMetrics publishes request count and latency metrics to a
// CloudWatch namespace. Publish failures are logged and swallowed; metrics
// must never take down request handling.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// Compile-time assertion that CloudWatchMetrics implements MetricsCollector.
var _ MetricsCollector = (*CloudWatchMetrics)(nil)

// NewCloudWatchMetrics creates a collector publishing to the given namespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordRequest emits one RequestCount datum and one RequestLatency datum
// with Method, Endpoint, and Status dimensions.
func (m *CloudWatchMetrics) RecordRequest(ctx context.Context, method, endpoint string, status int, duration time.Duration) {
	dims := []cwtypes.Dimension{
		{Name: aws.String(DimMethod), Value: aws.String(method)},
		{Name: aws.String(DimEndpoint), Value: aws.String(endpoint)},
		{Name: aws.String(DimStatus), Value: aws.String(strconv.Itoa(status))},
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(MetricRequestCount),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: dims,
			},
			{
				MetricName: aws.String(MetricRequestLatency),
				Value:      aws.Float64(float64(duration.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: dims,
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.WarnContext(ctx, "failed to publish request metrics",
			"error", err.Error(),
			"method", method,
			"endpoint", endpoint,
			"status", status,
		)
	}
}

// NoopMetrics discards all metrics. Used when observability is disabled.
type NoopMetrics struct{}

var _ MetricsCollector = NoopMetrics{}

func (NoopMetrics) RecordRequest(context.Context, string, string, int, time.Duration) {}
