package aws

import (
	"context"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/sirupsen/logrus"
)

// Metrics publishes counters to CloudWatch. Failures are logged, never returned.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
	log       logrus.FieldLogger
	nowFunc   func() time.Time
}

func NewMetrics(client CloudWatchAPI, namespace string, log logrus.FieldLogger) *Metrics {
	return &Metrics{
		client:    client,
		namespace: namespace,
		log:       log,
		nowFunc:   time.Now,
	}
}

// Incr records a count of one for name.
func (m *Metrics) Incr(ctx context.Context, name string) {
	if m == nil || m.client == nil {
		return
	}
	now := m.nowFunc()
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: sdkaws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: sdkaws.String(name),
				Timestamp:  &now,
				Unit:       cwtypes.StandardUnitCount,
				Value:      sdkaws.Float64(1),
			},
		},
	})
	if err != nil {
		m.log.WithError(err).WithField("metric", name).Warn("put metric data failed")
	}
}
