package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-api/internal/model"
)

var ErrNotConfigured = errors.New("email: smtp host not configured")

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// NotifyAddress receives new-booking alerts.
	NotifyAddress string
}

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Service struct {
	sender Sender
	config Config
	logger *zap.Logger
}

func NewService(config Config, logger *zap.Logger) *Service {
	var sender Sender
	if config.Host != "" {
		sender = gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)
	}
	return NewServiceWithSender(sender, config, logger)
}

func NewServiceWithSender(sender Sender, config Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{sender: sender, config: config, logger: logger}
}

// Enabled reports whether booking alerts can be delivered.
func (s *Service) Enabled() bool {
	return s.sender != nil && s.config.NotifyAddress != ""
}

// AppointmentBooked emails the clinic inbox about a new booking.
func (s *Service) AppointmentBooked(ctx context.Context, apt *model.Appointment) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := BookingMessage(s.config.From, s.config.NotifyAddress, apt)
	if err := s.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send booking alert: %w", err)
	}

	s.logger.Info("Booking alert sent",
		zap.String("appointment_id", apt.ID.String()),
		zap.String("to", s.config.NotifyAddress))
	return nil
}

func (s *Service) SendCustom(ctx context.Context, to, subject, content string) error {
	if s.sender == nil {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)
	return s.sender.DialAndSend(m)
}

// BookingMessage composes the alert for a new booking. Urgent bookings are
// flagged in the subject.
func BookingMessage(from, to string, apt *model.Appointment) *gomail.Message {
	subject := fmt.Sprintf("New %s appointment: %s on %s at %s", apt.Type, apt.Name, apt.Date, apt.Time)
	if apt.Type == model.AppointmentTypeUrgent {
		subject = "[URGENT] " + subject
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Patient: %s\n", apt.Name)
	fmt.Fprintf(&body, "Phone: %s\n", apt.Phone)
	fmt.Fprintf(&body, "Date: %s\n", apt.Date)
	fmt.Fprintf(&body, "Time: %s\n", apt.Time)
	fmt.Fprintf(&body, "Type: %s\n", apt.Type)
	if apt.Notes != "" {
		fmt.Fprintf(&body, "Notes: %s\n", apt.Notes)
	}
	fmt.Fprintf(&body, "Reference: %s\n", apt.ID)

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body.String())
	return m
}
