// Package ses delivers mail through Amazon SES v2.
//
// The campaign secret carries the AWS key pair as "ACCESS_KEY_ID:SECRET_ACCESS_KEY".
package ses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/mailpace/pkg/mailer"
)

// DefaultRegion is used when Config.Region is empty.
const DefaultRegion = "us-east-1"

// Config holds SES settings shared by every campaign.
type Config struct {
	Region           string
	Endpoint         string // Optional, for SES-compatible endpoints
	ConfigurationSet string // Optional SES configuration set
}

type api interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Transport opens SES senders.
type Transport struct {
	newClient func(accessKey, secretKey string) api
	cfg       Config
}

// New creates an SES transport.
func New(cfg Config) *Transport {
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	t := &Transport{cfg: cfg}
	t.newClient = t.client
	return t
}

// Open implements mailer.Transport.
func (t *Transport) Open(_ context.Context, creds mailer.Credentials) (mailer.Sender, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	keyID, secret, ok := strings.Cut(creds.Secret, ":")
	if !ok || keyID == "" || secret == "" {
		return nil, fmt.Errorf("%w: ses secret must be ACCESS_KEY_ID:SECRET_ACCESS_KEY", mailer.ErrInvalidCredentials)
	}
	return &Sender{client: t.newClient(keyID, secret), configurationSet: t.cfg.ConfigurationSet}, nil
}

func (t *Transport) client(accessKey, secretKey string) api {
	opts := []func(*sesv2.Options){
		func(o *sesv2.Options) {
			o.Region = t.cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")
		},
	}
	if t.cfg.Endpoint != "" {
		opts = append(opts, func(o *sesv2.Options) {
			o.BaseEndpoint = aws.String(t.cfg.Endpoint)
		})
	}
	return sesv2.New(sesv2.Options{}, opts...)
}

// Sender implements mailer.Sender using SES.
type Sender struct {
	client           api
	configurationSet string
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if err := email.Validate(); err != nil {
		return err
	}

	if _, err := s.client.SendEmail(ctx, s.buildInput(email)); err != nil {
		return wrapError(err)
	}
	return nil
}

func (s *Sender) buildInput(email *mailer.Email) *sesv2.SendEmailInput {
	body := &types.Body{}
	if email.HTML != "" {
		body.Html = &types.Content{Data: aws.String(email.HTML), Charset: aws.String("UTF-8")}
	}
	if email.Text != "" {
		body.Text = &types.Content{Data: aws.String(email.Text), Charset: aws.String("UTF-8")}
	}

	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(email.From),
		Destination:      &types.Destination{ToAddresses: email.To},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(email.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	}
	if email.ReplyTo != "" {
		in.ReplyToAddresses = []string{email.ReplyTo}
	}
	if s.configurationSet != "" {
		in.ConfigurationSetName = aws.String(s.configurationSet)
	}
	for name, value := range email.Tags {
		v := "true"
		if str, ok := value.(string); ok && str != "" {
			v = str
		}
		in.EmailTags = append(in.EmailTags, types.MessageTag{Name: aws.String(name), Value: aws.String(v)})
	}
	return in
}

// wrapError keeps the SES error code visible to callers.
func wrapError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &mailer.TransportError{Code: apiErr.ErrorCode(), Err: fmt.Errorf("ses: %s", apiErr.ErrorMessage())}
	}
	return fmt.Errorf("ses: failed to send email: %w", err)
}
