// Package flows holds the page-level flows of the front ends: each validates
// its form, then forwards it to the session manager or one of the remote APIs.
package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/smartsim-dev/smartsim/internal/client"
	"github.com/smartsim-dev/smartsim/internal/models"
	"github.com/smartsim-dev/smartsim/internal/session"
	"github.com/smartsim-dev/smartsim/internal/smsdev"
	"github.com/smartsim-dev/smartsim/internal/validation"
)

// SMSGateway sends messages and reports the remaining balance
type SMSGateway interface {
	Send(ctx context.Context, key, number, msg string) (*smsdev.SendResult, error)
	Balance(ctx context.Context, key string) (*smsdev.Balance, error)
}

// UserProvisioner assigns a gateway key to a customer
type UserProvisioner interface {
	UpdateUser(ctx context.Context, authorization string, req client.UpdateUserRequest) error
}

// SignInForm is the sign-in page form
type SignInForm struct {
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required"`
}

// SendForm is the dashboard form
type SendForm struct {
	Phone   string `form:"phone" json:"phone" validate:"required,phone"`
	Message string `form:"message" json:"message" validate:"required"`
}

// UpdateUserForm is the admin form that assigns a gateway key to a customer
type UpdateUserForm struct {
	Email  string `form:"email" json:"email" validate:"required,email"`
	SMSKey string `form:"sms_key" json:"sms_key" validate:"required"`
}

// ProfileForm is the profile page form
type ProfileForm struct {
	Name      string `form:"name" json:"name" validate:"required,max=255"`
	Email     string `form:"email" json:"email" validate:"required,email"`
	AvatarURL string `form:"avatar_url" json:"avatar_url" validate:"omitempty,url"`
}

// Service runs the flows against one session manager
type Service struct {
	manager   *session.Manager
	api       UserProvisioner
	sms       SMSGateway
	validator *validation.Validator
	logger    zerolog.Logger
}

// NewService creates a new flows service
func NewService(manager *session.Manager, api UserProvisioner, sms SMSGateway, logger zerolog.Logger) *Service {
	return &Service{
		manager:   manager,
		api:       api,
		sms:       sms,
		validator: validation.New(),
		logger:    logger,
	}
}

// Manager returns the session manager the flows act on
func (s *Service) Manager() *session.Manager {
	return s.manager
}

// SignIn validates the form and signs in
func (s *Service) SignIn(ctx context.Context, form SignInForm) error {
	form.Email = strings.TrimSpace(form.Email)
	if err := s.validator.Struct(form); err != nil {
		return err
	}
	return s.manager.SignIn(ctx, form.Email, form.Password)
}

// SignOut ends the session
func (s *Service) SignOut(ctx context.Context) error {
	return s.manager.SignOut(ctx)
}

// Outcome is how a send attempt ended, as shown to the user
type Outcome int

const (
	OutcomeSent Outcome = iota
	OutcomeNotProvisioned
	OutcomeInsufficientBalance
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeNotProvisioned:
		return "not_provisioned"
	case OutcomeInsufficientBalance:
		return "insufficient_balance"
	default:
		return "failed"
	}
}

// Message is the user-facing notification for the outcome
func (o Outcome) Message() string {
	switch o {
	case OutcomeSent:
		return "Message sent."
	case OutcomeNotProvisioned:
		return "Your account is not enabled for sending yet. Ask an administrator to assign your SMS key."
	case OutcomeInsufficientBalance:
		return "Not enough SMS credits to send this message."
	default:
		return "The message could not be sent, try again."
	}
}

// ClassifySend maps the error of a send to its outcome
func ClassifySend(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSent
	case errors.Is(err, smsdev.ErrInsufficientBalance):
		return OutcomeInsufficientBalance
	case errors.Is(err, smsdev.ErrNotProvisioned), errors.Is(err, smsdev.ErrMissingKey):
		return OutcomeNotProvisioned
	default:
		return OutcomeFailed
	}
}

// SendReport is the result of SendSMS. Outcome is always set.
type SendReport struct {
	Outcome   Outcome
	MessageID string
}

// SendSMS validates the form and relays it with the signed-in user's gateway key
func (s *Service) SendSMS(ctx context.Context, form SendForm) (SendReport, error) {
	form.Phone = strings.TrimSpace(form.Phone)
	if err := s.validator.Struct(form); err != nil {
		return SendReport{Outcome: OutcomeFailed}, err
	}

	user, ok := s.manager.CurrentUser()
	if !ok {
		return SendReport{Outcome: OutcomeFailed}, session.ErrNotAuthenticated
	}

	result, err := s.sms.Send(ctx, user.SMSKey, form.Phone, form.Message)
	report := SendReport{Outcome: ClassifySend(err)}
	if result != nil {
		report.MessageID = string(result.ID)
	}
	if err != nil {
		s.logger.Warn().Err(err).
			Str("user_id", user.ID).
			Str("outcome", report.Outcome.String()).
			Msg("SMS send failed")
		return report, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("message_id", report.MessageID).
		Msg("SMS sent")
	return report, nil
}

// FetchBalance returns the signed-in user's remaining credits
func (s *Service) FetchBalance(ctx context.Context) (int, error) {
	user, ok := s.manager.CurrentUser()
	if !ok {
		return 0, session.ErrNotAuthenticated
	}

	balance, err := s.sms.Balance(ctx, user.SMSKey)
	if err != nil {
		return 0, err
	}

	credits, err := balance.Count()
	if err != nil {
		return 0, fmt.Errorf("fetch balance: %w", err)
	}
	return credits, nil
}

// UpdateProfile applies the form to the signed-in user locally
func (s *Service) UpdateProfile(ctx context.Context, form ProfileForm) (models.User, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	if err := s.validator.Struct(form); err != nil {
		return models.User{}, err
	}

	user, ok := s.manager.CurrentUser()
	if !ok {
		return models.User{}, session.ErrNotAuthenticated
	}

	user.Name = form.Name
	user.Email = form.Email
	user.AvatarURL = form.AvatarURL

	if err := s.manager.UpdateUser(ctx, user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// ProvisionCustomer assigns a gateway key to the customer with the given e-mail
func (s *Service) ProvisionCustomer(ctx context.Context, form UpdateUserForm) error {
	form.Email = strings.TrimSpace(form.Email)
	form.SMSKey = strings.TrimSpace(form.SMSKey)
	if err := s.validator.Struct(form); err != nil {
		return err
	}

	authorization := s.manager.Authorization()
	if authorization == "" {
		return session.ErrNotAuthenticated
	}

	if err := s.api.UpdateUser(ctx, authorization, client.UpdateUserRequest{Email: form.Email, SMSKey: form.SMSKey}); err != nil {
		s.logger.Warn().Err(err).Str("customer_email", form.Email).Msg("Customer update failed")
		return err
	}

	s.logger.Info().Str("customer_email", form.Email).Msg("Customer SMS key assigned")
	return nil
}
