package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSOptions configures the SQS backend.
type SQSOptions struct {
	Region string
	// QueueURL pins every enqueue to one queue; otherwise URLs are resolved by name.
	QueueURL        string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// SQSClient sends jobs to AWS SQS.
type SQSClient struct {
	client   *sqs.Client
	queueURL string

	mu   sync.Mutex
	urls map[string]string
}

// NewSQSClient constructs an SQS-backed queue client.
func NewSQSClient(ctx context.Context, opts SQSOptions) (*SQSClient, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	client := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &SQSClient{
		client:   client,
		queueURL: strings.TrimSpace(opts.QueueURL),
		urls:     map[string]string{},
	}, nil
}

// Enqueue delivers job to the named queue.
func (s *SQSClient) Enqueue(ctx context.Context, queueName string, job Job) error {
	payload, err := EncodeJob(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	queueURL, err := s.resolve(ctx, queueName)
	if err != nil {
		return err
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("sqs send message queue=%s: %w", queueName, err)
	}
	return nil
}

func (s *SQSClient) resolve(ctx context.Context, queueName string) (string, error) {
	if s.queueURL != "" {
		return s.queueURL, nil
	}
	s.mu.Lock()
	cached, ok := s.urls[queueName]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	out, err := s.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(queueName)})
	if err != nil {
		return "", fmt.Errorf("sqs get queue url queue=%s: %w", queueName, err)
	}
	url := aws.ToString(out.QueueUrl)

	s.mu.Lock()
	s.urls[queueName] = url
	s.mu.Unlock()
	return url, nil
}

var _ Client = (*SQSClient)(nil)
