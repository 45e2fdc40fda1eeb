package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"petanco-intake-api/internal/events"
	"petanco-intake-api/internal/logger"
	"petanco-intake-api/internal/metrics"
)

const channelSNS = "sns"

// SNSAPI is the subset of *sns.Client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// NewSNSClient loads the default AWS credential chain for region.
func NewSNSClient(ctx context.Context, region string) (*sns.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return sns.NewFromConfig(cfg), nil
}

// SNSPublisher sends the outcome payload to a topic.
type SNSPublisher struct {
	api      SNSAPI
	topicARN string
	log      logger.Logger
	now      func() time.Time
}

func NewSNSPublisher(api SNSAPI, topicARN string, log logger.Logger) *SNSPublisher {
	return &SNSPublisher{api: api, topicARN: topicARN, log: log, now: time.Now}
}

func (p *SNSPublisher) Notify(ctx context.Context, outcome events.SubmissionOutcome) error {
	payload := NewPayload(outcome, p.now())
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode SNS payload: %w", err)
	}

	out, err := p.api.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {
				DataType:    aws.String("String"),
				StringValue: aws.String(payload.Event),
			},
		},
	})
	if err != nil {
		metrics.WebhookDeliveriesTotal.WithLabelValues(channelSNS, "error").Inc()
		return fmt.Errorf("failed to publish to SNS topic %s: %w", p.topicARN, err)
	}

	metrics.WebhookDeliveriesTotal.WithLabelValues(channelSNS, "delivered").Inc()
	fields := map[string]interface{}{"topic": p.topicARN}
	if out != nil {
		fields["message_id"] = aws.ToString(out.MessageId)
	}
	p.log.Debug("outcome published to SNS", fields)
	return nil
}

func (p *SNSPublisher) Handle(ctx context.Context, e events.Event) error {
	outcome, ok := outcomeOf(e)
	if !ok {
		return nil
	}
	return p.Notify(ctx, outcome)
}

func (p *SNSPublisher) Subscribe(m *events.Manager) {
	m.Subscribe(events.EventSubmissionSucceeded, p.Handle)
	m.Subscribe(events.EventSubmissionFailed, p.Handle)
}
