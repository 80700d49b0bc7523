package email

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-api/internal/model"
)

type captureSender struct {
	sent []*gomail.Message
	err  error
}

func (s *captureSender) DialAndSend(m ...*gomail.Message) error {
	s.sent = append(s.sent, m...)
	return s.err
}

func testConfig() Config {
	return Config{From: "clinic@example.com", NotifyAddress: "frontdesk@example.com"}
}

func TestBookingMessage(t *testing.T) {
	apt := &model.Appointment{
		Base:  model.Base{ID: uuid.New()},
		Name:  "Alice",
		Phone: "555-0100",
		Date:  "2024-06-12",
		Time:  "09:00",
		Type:  model.AppointmentTypeUrgent,
		Notes: "chest pain",
	}

	m := BookingMessage("clinic@example.com", "frontdesk@example.com", apt)
	assert.Equal(t, []string{"[URGENT] New urgent appointment: Alice on 2024-06-12 at 09:00"}, m.GetHeader("Subject"))
	assert.Equal(t, []string{"frontdesk@example.com"}, m.GetHeader("To"))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	body := buf.String()
	assert.Contains(t, body, "Phone: 555-0100")
	assert.Contains(t, body, "Notes: chest pain")
	assert.Contains(t, body, apt.ID.String())
}

func TestBookingMessageRegular(t *testing.T) {
	m := BookingMessage("a@example.com", "b@example.com", &model.Appointment{Name: "Bob", Type: model.AppointmentTypeRegular})
	subject := m.GetHeader("Subject")
	require.Len(t, subject, 1)
	assert.NotContains(t, subject[0], "[URGENT]")
}

func TestAppointmentBooked(t *testing.T) {
	sender := &captureSender{}
	svc := NewServiceWithSender(sender, testConfig(), nil)
	require.True(t, svc.Enabled())

	err := svc.AppointmentBooked(context.Background(), &model.Appointment{Name: "Alice", Type: model.AppointmentTypeRegular})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"clinic@example.com"}, sender.sent[0].GetHeader("From"))
}

func TestAppointmentBookedSendFailure(t *testing.T) {
	sender := &captureSender{err: errors.New("connection refused")}
	svc := NewServiceWithSender(sender, testConfig(), nil)

	err := svc.AppointmentBooked(context.Background(), &model.Appointment{Name: "Alice"})
	assert.ErrorContains(t, err, "connection refused")
}

func TestUnconfiguredService(t *testing.T) {
	svc := NewService(Config{NotifyAddress: "frontdesk@example.com"}, nil)
	assert.False(t, svc.Enabled())
	assert.ErrorIs(t, svc.AppointmentBooked(context.Background(), &model.Appointment{}), ErrNotConfigured)
	assert.ErrorIs(t, svc.SendCustom(context.Background(), "x@example.com", "hi", "body"), ErrNotConfigured)
}
