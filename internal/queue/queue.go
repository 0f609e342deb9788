package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Topics used by the campaign pipeline.
const (
	TopicCampaignKicks = "campaign_kicks"
	TopicContactStatus = "contact_status"
)

// ContactStatusEvent is published whenever a campaign contact changes
// status. Consumers (websocket fan-out, metrics) subscribe to
// TopicContactStatus; the pipeline itself never depends on them.
type ContactStatusEvent struct {
	EventID    string    `json:"event_id"`
	CampaignID int       `json:"campaign_id"`
	ContactID  int       `json:"contact_id"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewContactStatusEvent stamps a fresh event id and timestamp.
func NewContactStatusEvent(campaignID, contactID int, status, errMsg string) ContactStatusEvent {
	return ContactStatusEvent{
		EventID:    uuid.NewString(),
		CampaignID: campaignID,
		ContactID:  contactID,
		Status:     status,
		Error:      errMsg,
		OccurredAt: time.Now(),
	}
}

// CampaignKick asks a dispatcher to run one ProcessQueue pass.
type CampaignKick struct {
	CampaignID int `json:"campaign_id"`
}

// Publisher is the transport-agnostic event boundary.
type Publisher interface {
	Publish(topic string, payload any) error
}

// Bus extends Publisher with in-process subscriptions.
type Bus interface {
	Publisher
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryBus delivers events to in-process subscribers with retry.
type InMemoryBus struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]func(payload any) error),
	}
}

type job struct {
	payload    any
	retryCount int
	maxRetries int
}

// Publish sends a message to all subscribers. Topics with no subscriber
// drop the event silently; the pipeline must not care who listens.
func (q *InMemoryBus) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	j := job{payload: payload, maxRetries: 3}
	for _, handler := range handlers {
		go q.processJob(topic, handler, j)
	}
	return nil
}

func (q *InMemoryBus) processJob(topic string, handler func(payload any) error, j job) {
	for j.retryCount <= j.maxRetries {
		err := handler(j.payload)
		if err == nil {
			return
		}

		j.retryCount++
		log.Warn().Str("topic", topic).Int("attempt", j.retryCount).Int("max", j.maxRetries).Err(err).Msg("event handler failed")

		if j.retryCount > j.maxRetries {
			log.Error().Str("topic", topic).Msg("event permanently dropped after retries")
			return
		}

		time.Sleep(time.Duration(j.retryCount*500) * time.Millisecond)
	}
}

func (q *InMemoryBus) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// NopPublisher drops everything. Used in tests and in tools that do not
// care about fan-out.
type NopPublisher struct{}

func (NopPublisher) Publish(string, any) error { return nil }

var (
	_ Bus       = (*InMemoryBus)(nil)
	_ Publisher = NopPublisher{}
)

// PublishKicker forwards campaign kicks through a Publisher, letting the
// API server hand dispatch work to a separate worker process.
type PublishKicker struct {
	Publisher Publisher
}

func (k PublishKicker) Kick(campaignID int) {
	if err := k.Publisher.Publish(TopicCampaignKicks, CampaignKick{CampaignID: campaignID}); err != nil {
		log.Error().Int("campaign_id", campaignID).Err(err).Msg("failed to publish campaign kick")
	}
}
