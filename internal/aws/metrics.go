package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// DefaultMetricsNamespace is the CloudWatch namespace used when none is configured.
const DefaultMetricsNamespace = "CurrencyExchangeNetwork"

// MetricsEmitter publishes lifecycle counters to CloudWatch.
type MetricsEmitter struct {
	CloudWatch CloudWatchAPI
	Namespace  string
	nowFunc    func() time.Time
}

// NewMetricsEmitter returns an emitter writing into namespace.
func NewMetricsEmitter(cw CloudWatchAPI, namespace string) *MetricsEmitter {
	if namespace == "" {
		namespace = DefaultMetricsNamespace
	}
	return &MetricsEmitter{
		CloudWatch: cw,
		Namespace:  namespace,
		nowFunc:    time.Now,
	}
}

// CountLifecycleEvents records count occurrences of eventType as a single datum.
func (m *MetricsEmitter) CountLifecycleEvents(ctx context.Context, eventType string, count int) error {
	if count <= 0 {
		return nil
	}
	value := float64(count)
	ts := m.nowFunc().UTC()
	input := &cloudwatch.PutMetricDataInput{
		Namespace: awsString(m.Namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: awsString("LifecycleEvents"),
				Value:      &value,
				Unit:       cwtypes.StandardUnitCount,
				Timestamp:  &ts,
				Dimensions: []cwtypes.Dimension{
					{Name: awsString("EventType"), Value: awsString(eventType)},
				},
			},
		},
	}
	if _, err := m.CloudWatch.PutMetricData(ctx, input); err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
