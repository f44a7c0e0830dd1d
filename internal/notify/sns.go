package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSAPI — часть API Amazon SNS, используемая для публикации.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher публикует уведомления в топик Amazon SNS.
type SNSPublisher struct {
	client   SNSAPI
	topicARN string
}

// NewSNSPublisher создаёт издателя для топика topicARN.
func NewSNSPublisher(client SNSAPI, topicARN string) *SNSPublisher {
	return &SNSPublisher{
		client:   client,
		topicARN: topicARN,
	}
}

// NewSNSPublisherFromConfig создаёт издателя с клиентом SNS из конфигурации AWS.
func NewSNSPublisherFromConfig(cfg aws.Config, topicARN string) *SNSPublisher {
	return NewSNSPublisher(sns.NewFromConfig(cfg), topicARN)
}

// Name возвращает название канала.
func (p *SNSPublisher) Name() string {
	return "sns"
}

// Publish публикует сообщение в топик.
func (p *SNSPublisher) Publish(ctx context.Context, msg Message) error {
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(truncateSubject(msg.Subject)),
		Message:  aws.String(msg.Body),
	})
	if err != nil {
		return fmt.Errorf("publish to topic: %w", err)
	}
	return nil
}
