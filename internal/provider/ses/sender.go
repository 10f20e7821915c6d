// Package ses sends email through AWS SES v2.
package ses

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"

	"github.com/ninjamovesonly/bulk-notifications-prototype/internal/dispatch"
)

// MaxBatch is the SES per-message recipient limit.
const MaxBatch = 50

// API is the part of *sesv2.Client the sender needs.
type API interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type Sender struct {
	api API
}

type Options struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	HTTPClient      awsconfig.HTTPClient
}

// New builds a sender from the default AWS credential chain, or from static
// keys when both are given.
func New(ctx context.Context, o Options) (*Sender, error) {
	region := o.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if o.AccessKeyID != "" && o.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, ""),
		))
	}
	if o.HTTPClient != nil {
		opts = append(opts, awsconfig.WithHTTPClient(o.HTTPClient))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &Sender{api: sesv2.NewFromConfig(cfg)}, nil
}

func NewWithAPI(api API) *Sender { return &Sender{api: api} }

func (s *Sender) Name() string { return "ses" }

func (s *Sender) MaxBatch() int { return MaxBatch }

func (s *Sender) CheckConfig() error {
	if s.api == nil {
		return errors.New("SES client is not configured on the server")
	}
	return nil
}

// SendBatch sends one message with every recipient in BCC. SES answers with
// a single message id shared by the batch.
func (s *Sender) SendBatch(ctx context.Context, batch dispatch.EmailBatch) ([]string, error) {
	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(batch.From),
		Destination:      &types.Destination{BccAddresses: batch.To},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(batch.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(batch.Text), Charset: aws.String("UTF-8")},
					Html: &types.Content{Data: aws.String(batch.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	out, err := s.api.SendEmail(ctx, in)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			pe := &dispatch.ProviderError{Message: apiErr.ErrorMessage()}
			var re *awshttp.ResponseError
			if errors.As(err, &re) {
				pe.Status = re.HTTPStatusCode()
			}
			if pe.Message == "" {
				pe.Message = apiErr.ErrorCode()
			}
			return nil, pe
		}
		return nil, fmt.Errorf("ses send: %w", err)
	}
	return []string{aws.ToString(out.MessageId)}, nil
}
