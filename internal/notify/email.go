package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	dbgen "github.com/codr1/courtsync/internal/db/generated"
)

// EmailSender provides a testable abstraction over SES delivery.
type EmailSender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// SESClient wraps AWS SESv2 sending.
type SESClient struct {
	client *sesv2.Client
	sender string
}

// NewSESClient initializes an SES client. Static credentials are used when
// both keys are set; otherwise the default AWS credential chain applies.
func NewSESClient(ctx context.Context, accessKeyID, secretAccessKey, region, sender string) (*SESClient, error) {
	if region == "" {
		return nil, fmt.Errorf("ses region is required")
	}
	if sender == "" {
		return nil, fmt.Errorf("ses sender is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SESClient{
		client: sesv2.NewFromConfig(awsCfg),
		sender: sender,
	}, nil
}

// Send delivers a plain-text email to a single recipient.
func (c *SESClient) Send(ctx context.Context, recipient, subject, body string) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("ses client is not initialized")
	}
	if recipient == "" {
		return fmt.Errorf("recipient is required")
	}

	_, err := c.client.SendEmail(ctx, &sesv2.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{recipient}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body:    &types.Body{Text: &types.Content{Data: aws.String(body)}},
			},
		},
		FromEmailAddress: aws.String(c.sender),
	})
	if err != nil {
		return fmt.Errorf("send ses email: %w", err)
	}
	return nil
}

// UserLookup resolves the recipient of a notification.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (dbgen.User, error)
}

// EmailNotifier mails the booker a short summary of the event.
type EmailNotifier struct {
	sender EmailSender
	users  UserLookup
}

func NewEmailNotifier(sender EmailSender, users UserLookup) *EmailNotifier {
	return &EmailNotifier{sender: sender, users: users}
}

func (n *EmailNotifier) Notify(ctx context.Context, event Event) error {
	user, err := n.users.GetUser(ctx, event.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("load user %d: %w", event.UserID, err)
	}
	recipient := strings.TrimSpace(user.Email.String)
	if !user.Email.Valid || recipient == "" {
		return nil
	}

	subject, body := emailContent(event)
	return n.sender.Send(ctx, recipient, subject, body)
}

func emailContent(event Event) (string, string) {
	courts := strings.Join(event.Courts, ", ")
	when := fmt.Sprintf("%s %s-%s", event.Date, event.Start, event.End)

	switch event.Type {
	case EventReservationCancelled:
		return "Reservation cancelled",
			fmt.Sprintf("Your reservation for %s on %s was cancelled. %d points were returned to your balance.", courts, when, event.Points)
	default:
		return "Reservation confirmed",
			fmt.Sprintf("Your reservation for %s on %s is confirmed. %d points were deducted from your balance.", courts, when, event.Points)
	}
}
