package publish

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/okian/compliance-radar/pkg/logger"
)

const attrRunID = "run_id"

// sqsClient is the subset of the SQS client the sender uses.
type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// snsClient is the subset of the SNS client the sender uses.
type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func loadAWSConfig(ctx context.Context, c AWSCredentials) (aws.Config, error) {
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(c.Region)}
	if c.AccessKeyID != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

type sqsSender struct {
	queueURL string
	client   sqsClient
	log      logger.Logger
}

func newSQSSender(ctx context.Context, cfg *SQSConfig, log logger.Logger) (sender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sqs configuration is missing")
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.AWSCredentials)
	if err != nil {
		return nil, err
	}
	return &sqsSender{queueURL: cfg.QueueURL, client: sqs.NewFromConfig(awsCfg), log: log}, nil
}

func (s *sqsSender) Send(ctx context.Context, msg Message) error {
	resp, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(msg.Body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			attrRunID: {DataType: aws.String("String"), StringValue: aws.String(msg.RunID)},
		},
	})
	if err != nil {
		return fmt.Errorf("send message to sqs: %w", err)
	}
	s.log.Debug(ctx, "sqs delivered payload", logger.String("message_id", aws.ToString(resp.MessageId)))
	return nil
}

func (s *sqsSender) Close() error { return nil }

type snsSender struct {
	topicARN string
	client   snsClient
	log      logger.Logger
}

func newSNSSender(ctx context.Context, cfg *SNSConfig, log logger.Logger) (sender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sns configuration is missing")
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.AWSCredentials)
	if err != nil {
		return nil, err
	}
	return &snsSender{topicARN: cfg.TopicARN, client: sns.NewFromConfig(awsCfg), log: log}, nil
}

func (s *snsSender) Send(ctx context.Context, msg Message) error {
	resp, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(msg.Body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			attrRunID: {DataType: aws.String("String"), StringValue: aws.String(msg.RunID)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish to sns: %w", err)
	}
	s.log.Debug(ctx, "sns delivered payload", logger.String("message_id", aws.ToString(resp.MessageId)))
	return nil
}

func (s *snsSender) Close() error { return nil }
