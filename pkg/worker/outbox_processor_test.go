package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
)

const testChannel = "clinic.appointments"

type fakeBroker struct {
	mu        sync.Mutex
	failures  int
	published []messaging.Envelope
	channels  []string
	calls     int
}

func (b *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.failures != 0 {
		if b.failures > 0 {
			b.failures--
		}
		return errors.New("broker unavailable")
	}
	b.published = append(b.published, message.(messaging.Envelope))
	b.channels = append(b.channels, channel)
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

func (b *fakeBroker) Close() error { return nil }

type fakeNotifier struct {
	booked []*model.Appointment
	err    error
}

func (n *fakeNotifier) AppointmentBooked(_ context.Context, apt *model.Appointment) error {
	n.booked = append(n.booked, apt)
	return n.err
}

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
		Channel:       testChannel,
		MaxDeliveries: 2,
	}
}

func newProcessor(t *testing.T, broker *fakeBroker) (*OutboxProcessor, *memory.OutboxRepository) {
	t.Helper()
	repo := memory.NewOutboxRepository()
	p, err := NewOutboxProcessor(repo, broker, testConfig(), nil, nil)
	require.NoError(t, err)
	return p, repo
}

func addEvent(t *testing.T, repo *memory.OutboxRepository, eventType string, apt *model.Appointment) uuid.UUID {
	t.Helper()
	payload, err := json.Marshal(apt)
	require.NoError(t, err)
	evt := &model.OutboxEvent{
		AggregateID: apt.ID,
		EventType:   eventType,
		Payload:     payload,
		Actor:       "front-desk",
	}
	require.NoError(t, repo.Create(context.Background(), evt))
	return evt.ID
}

func eventByID(repo *memory.OutboxRepository, id uuid.UUID) model.OutboxEvent {
	for _, evt := range repo.Events() {
		if evt.ID == id {
			return evt
		}
	}
	return model.OutboxEvent{}
}

func TestNewOutboxProcessorValidatesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 0
	_, err := NewOutboxProcessor(memory.NewOutboxRepository(), &fakeBroker{}, cfg, nil, nil)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Channel = ""
	_, err = NewOutboxProcessor(memory.NewOutboxRepository(), &fakeBroker{}, cfg, nil, nil)
	assert.Error(t, err)
}

func TestProcessBatchPublishesAndMarksProcessed(t *testing.T) {
	broker := &fakeBroker{}
	p, repo := newProcessor(t, broker)
	apt := &model.Appointment{Base: model.Base{ID: uuid.New()}, Name: "Alice", Date: "2024-06-12", Time: "09:00"}
	id := addEvent(t, repo, model.EventAppointmentApproved, apt)

	published, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, published)

	require.Len(t, broker.published, 1)
	env := broker.published[0]
	assert.Equal(t, testChannel, broker.channels[0])
	assert.Equal(t, id, env.ID)
	assert.Equal(t, model.EventAppointmentApproved, env.Type)
	assert.Equal(t, apt.ID, env.AggregateID)
	assert.Equal(t, "front-desk", env.Actor)

	stored := eventByID(repo, id)
	assert.Equal(t, model.OutboxStatusProcessed, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)

	again, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, again)
}

func TestProcessBatchRetriesWithinAttempts(t *testing.T) {
	broker := &fakeBroker{failures: 1}
	p, repo := newProcessor(t, broker)
	id := addEvent(t, repo, model.EventAppointmentUpdated, &model.Appointment{Base: model.Base{ID: uuid.New()}})

	published, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, published)
	assert.Equal(t, 2, broker.calls)
	assert.Equal(t, model.OutboxStatusProcessed, eventByID(repo, id).Status)
}

func TestProcessBatchSchedulesRetryThenFails(t *testing.T) {
	broker := &fakeBroker{failures: -1}
	p, repo := newProcessor(t, broker)
	id := addEvent(t, repo, model.EventAppointmentUpdated, &model.Appointment{Base: model.Base{ID: uuid.New()}})

	published, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, published)

	stored := eventByID(repo, id)
	assert.Equal(t, model.OutboxStatusRetry, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "broker unavailable")
	require.NotNil(t, stored.RetryAt)

	time.Sleep(10 * time.Millisecond)

	_, err = p.ProcessBatch(context.Background())
	require.NoError(t, err)
	stored = eventByID(repo, id)
	assert.Equal(t, model.OutboxStatusFailed, stored.Status)
	assert.Nil(t, stored.RetryAt)
}

func TestCreatedEventsNotifyStaff(t *testing.T) {
	broker := &fakeBroker{}
	p, repo := newProcessor(t, broker)
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	p.WithNotifier(notifier)

	booked := &model.Appointment{Base: model.Base{ID: uuid.New()}, Name: "Alice", Type: model.AppointmentTypeUrgent}
	createdID := addEvent(t, repo, model.EventAppointmentCreated, booked)
	addEvent(t, repo, model.EventAppointmentCompleted, &model.Appointment{Base: model.Base{ID: uuid.New()}})

	published, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, published)

	require.Len(t, notifier.booked, 1)
	assert.Equal(t, booked.ID, notifier.booked[0].ID)
	assert.Equal(t, model.AppointmentTypeUrgent, notifier.booked[0].Type)
	assert.Equal(t, model.OutboxStatusProcessed, eventByID(repo, createdID).Status)
}

func TestCleanupRemovesOldProcessedEvents(t *testing.T) {
	broker := &fakeBroker{}
	p, repo := newProcessor(t, broker)
	addEvent(t, repo, model.EventAppointmentUpdated, &model.Appointment{Base: model.Base{ID: uuid.New()}})

	_, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)

	deleted, err := p.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	p.WithClock(func() time.Time { return time.Now().Add(48 * time.Hour) })
	deleted, err = p.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Empty(t, repo.Events())
}

func TestStartStopsOnCancel(t *testing.T) {
	broker := &fakeBroker{}
	repo := memory.NewOutboxRepository()
	cfg := testConfig()
	cfg.PollInterval = 5 * time.Millisecond
	p, err := NewOutboxProcessor(repo, broker, cfg, nil, nil)
	require.NoError(t, err)
	addEvent(t, repo, model.EventAppointmentUpdated, &model.Appointment{Base: model.Base{ID: uuid.New()}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		broker.mu.Lock()
		defer broker.mu.Unlock()
		return len(broker.published) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor did not stop")
	}
}
