// internal/services/notifier/notifier.go
package notifier

import (
	"context"
	"fmt"
	"time"

	appconfig "loan-management-service/internal/common/config"
	"loan-management-service/internal/common/logger"
	"loan-management-service/internal/models"
	"loan-management-service/internal/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"
)

// Interfaces over the AWS clients for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Service delivers decision notices to applicants over SES email and,
// optionally, SNS SMS. Delivery is best-effort: failures are logged and
// never propagate to the status change that triggered them.
type Service struct {
	cfg       appconfig.NotificationConfig
	log       logger.Logger
	sesClient SESService
	snsClient SNSService
}

// NewService creates the notifier with real AWS clients.
func NewService(ctx context.Context, cfg appconfig.NotificationConfig, log logger.Logger) (*Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &Service{
		cfg:       cfg,
		log:       log,
		sesClient: ses.NewFromConfig(awsCfg),
		snsClient: sns.NewFromConfig(awsCfg),
	}, nil
}

// NewServiceWithClients wires explicit clients. Used by the tests.
func NewServiceWithClients(cfg appconfig.NotificationConfig, log logger.Logger, sesClient SESService, snsClient SNSService) *Service {
	return &Service{cfg: cfg, log: log, sesClient: sesClient, snsClient: snsClient}
}

// NotifyDecision informs the applicant that their application was approved
// or rejected. Non-terminal statuses are ignored.
func (s *Service) NotifyDecision(ctx context.Context, app *models.LoanApplication) {
	if !app.Status.Terminal() {
		return
	}

	notificationID := uuid.New().String()
	subject, body := s.renderDecision(app)
	fields := map[string]interface{}{
		"notificationId": notificationID,
		"formNumber":     app.FormNumber,
		"status":         string(app.Status),
	}

	if s.cfg.Email.Enabled && app.ApplicantDetails.Email != "" {
		if err := s.sendEmail(ctx, app.ApplicantDetails.Email, subject, body); err != nil {
			s.log.WithError(err).Error("decision email send failed", fields)
		} else {
			s.log.Info("decision email sent", fields)
		}
	}

	if s.cfg.SMS.Enabled && app.ApplicantDetails.MobileNo != "" {
		phone := utils.FormatPhoneNumber(app.ApplicantDetails.MobileNo)
		if err := s.sendSMS(ctx, phone, body); err != nil {
			s.log.WithError(err).Error("decision SMS send failed", fields)
		}
	}
}

func (s *Service) renderDecision(app *models.LoanApplication) (string, string) {
	name := app.ApplicantDetails.FirstName
	amount := utils.FormatCurrency(app.LoanDetails.TotalAmount)
	number := utils.FormatFormNumber(app.FormNumber)

	if app.Status == models.StatusApproved {
		subject := fmt.Sprintf("Loan application %s approved", number)
		body := fmt.Sprintf(
			"Dear %s,\n\nYour loan application %s for %s has been approved on %s. Our branch will contact you with the disbursement schedule.\n",
			name, number, amount, utils.FormatDate(time.Now()),
		)
		return subject, body
	}

	subject := fmt.Sprintf("Loan application %s update", number)
	body := fmt.Sprintf(
		"Dear %s,\n\nWe regret to inform you that your loan application %s could not be approved. Please contact your branch for details.\n",
		name, number,
	)
	return subject, body
}

func (s *Service) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := s.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(s.cfg.Email.FromEmail),
	})
	return err
}

func (s *Service) sendSMS(ctx context.Context, to, message string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	}
	if s.cfg.SMS.SenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(s.cfg.SMS.SenderID),
			},
		}
	}
	_, err := s.snsClient.Publish(ctx, input)
	return err
}
