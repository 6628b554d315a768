package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/profiledoc/profiledoc/internal/common"
	sc "github.com/profiledoc/profiledoc/internal/server/config"
)

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// sqsAPI is the subset of *sqs.Client used by SQSQueue, extracted so tests
// can substitute a fake.
type sqsAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSQueue is a Queue backed by AWS SQS (or an SQS-compatible endpoint such
// as localstack). The queue URL is resolved from the queue name on first use
// and cached; one instance is shared across request handlers, so the cache
// is mutex-guarded.
type SQSQueue struct {
	client    sqsAPI
	queueName string
	waitTime  time.Duration

	mu       sync.Mutex
	queueURL string
}

// NewSQSQueue builds the SQS client from config and returns a queue bound to
// cfg.SQSQueueName.
func NewSQSQueue(ctx context.Context, cfg *sc.Config) (*SQSQueue, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		o.BaseEndpoint = aws.String(cfg.AWSBaseEndpoint)
	})

	return &SQSQueue{
		client:    client,
		queueName: cfg.SQSQueueName,
		waitTime:  cfg.QueueWaitTime,
	}, nil
}

func (q *SQSQueue) resolveQueueURL(ctx context.Context) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.queueURL != "" {
		return q.queueURL, nil
	}
	out, err := q.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(q.queueName),
	})
	if err != nil {
		return "", fmt.Errorf("%w: resolving queue url: %v", common.ErrQueueUnavailable, err)
	}
	q.queueURL = aws.ToString(out.QueueUrl)
	return q.queueURL, nil
}

func (q *SQSQueue) Send(ctx context.Context, body []byte) error {
	url, err := q.resolveQueueURL(ctx)
	if err != nil {
		return err
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(url),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("%w: send: %v", common.ErrQueueUnavailable, err)
	}
	return nil
}

func (q *SQSQueue) Receive(ctx context.Context, max int32) ([]Message, error) {
	url, err := q.resolveQueueURL(ctx)
	if err != nil {
		return nil, err
	}
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(url),
		MaxNumberOfMessages: max,
		WaitTimeSeconds:     int32(q.waitTime.Seconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: receive: %v", common.ErrQueueUnavailable, err)
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		messages = append(messages, Message{
			Body:          []byte(aws.ToString(m.Body)),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}
	return messages, nil
}

func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	url, err := q.resolveQueueURL(ctx)
	if err != nil {
		return err
	}
	_, err = q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(url),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("%w: delete: %v", common.ErrQueueUnavailable, err)
	}
	return nil
}
