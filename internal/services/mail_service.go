package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscredentials "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/config"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/logging"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/utils"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer delivers a rendered HTML message to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// NewMailer picks the provider named by cfg.Provider.
func NewMailer(ctx context.Context, cfg config.MailConfig, awsCfg config.AWSConfig, logger *logging.StandardLogger) (Mailer, error) {
	if logger == nil {
		logger = logging.NewFromZap(nil)
	}
	switch strings.ToLower(cfg.Provider) {
	case "ses":
		return NewSESMailer(ctx, cfg.From, awsCfg)
	case "smtp":
		return NewSMTPMailer(cfg), nil
	case "log", "":
		return NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("invalid mail provider %q", cfg.Provider)
	}
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *logging.StandardLogger
}

func NewLogMailer(logger *logging.StandardLogger) *LogMailer {
	return &LogMailer{logger: logger.WithComponent("mail")}
}

func (m *LogMailer) Send(_ context.Context, to, subject, _ string) error {
	m.logger.Info("mail not delivered (log provider)",
		zap.String("to", utils.MaskEmail(to)),
		zap.String("subject", subject),
	)
	return nil
}

type smtpDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPMailer struct {
	from   string
	dialer smtpDialer
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
	}
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, html string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESMailer struct {
	from   string
	client sesAPI
}

// NewSESMailer builds an SES client. Static keys are used when configured,
// otherwise the default AWS credential chain applies.
func NewSESMailer(ctx context.Context, from string, awsCfg config.AWSConfig) (*SESMailer, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(awsCfg.Region)}
	if awsCfg.AccessKeyID != "" && awsCfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			awscredentials.NewStaticCredentialsProvider(awsCfg.AccessKeyID, awsCfg.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &SESMailer{from: from, client: sesv2.NewFromConfig(cfg)}, nil
}

func (m *SESMailer) Send(ctx context.Context, to, subject, html string) error {
	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination:      &sestypes.Destination{ToAddresses: []string{to}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &sestypes.Body{
					Html: &sestypes.Content{Data: aws.String(html), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

var otpEmailTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Why Designers OTP Verification</title>
  <style>
    body { font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 0; }
    .container { max-width: 600px; margin: 20px auto; background: #ffffff; padding: 20px; border-radius: 8px; text-align: center; }
    .logo { font-size: 24px; font-weight: bold; color: #2D89FF; margin-bottom: 20px; }
    .otp { font-size: 24px; font-weight: bold; color: #2D89FF; background: #EAF3FF; padding: 10px; border-radius: 6px; display: inline-block; letter-spacing: 3px; }
    .footer { font-size: 12px; color: #888; margin-top: 20px; }
  </style>
</head>
<body>
  <div class="container">
    <h1 class="logo">Why Designers</h1>
    <h2>{{.Heading}}</h2>
    {{if .Name}}<p>Hi {{.Name}},</p>{{end}}
    <p>Your One-Time Password (OTP) for Why Designers verification is:</p>
    <div class="otp">{{.Code}}</div>
    <p>This OTP is valid for {{.Minutes}} minutes. Please do not share it with anyone.</p>
    <p class="footer">If you did not request this, please ignore this email.</p>
  </div>
</body>
</html>`))

type otpEmail struct {
	Heading string
	Name    string
	Code    string
	Minutes int
}

func renderOTPEmail(data otpEmail) (string, error) {
	var buf bytes.Buffer
	if err := otpEmailTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render otp email: %w", err)
	}
	return buf.String(), nil
}
