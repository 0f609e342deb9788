package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/cadrimiranda/rubia-sub000/internal/model"
	"github.com/cadrimiranda/rubia-sub000/internal/repository"
)

const (
	DefaultBatchSize     = 50
	DefaultSendDelay     = time.Second
	DefaultBatchCooldown = time.Minute
)

// CampaignFinisher marks a campaign completed once its queue drains.
// Implemented by CampaignService.
type CampaignFinisher interface {
	Complete(campaignID int) error
}

// Scheduler drives the Dispatcher over bounded batches of pending
// contacts. Instead of a long-lived worker loop it reschedules itself
// with deferred invocations, re-reading campaign state before each batch
// and before each send so pause and stop take effect cooperatively.
type Scheduler struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ContactRepo  repository.ContactRepositoryInterface
	Dispatcher   *Dispatcher
	Finisher     CampaignFinisher

	BatchSize int
	SendDelay time.Duration
	Cooldown  time.Duration

	// Reschedule defers the next ProcessQueue run. Tests override it to
	// observe or short-circuit the chain.
	Reschedule func(campaignID int, delay time.Duration)

	mu       sync.Mutex
	inflight map[int]bool
}

func NewScheduler(campaigns repository.CampaignRepositoryInterface, contacts repository.ContactRepositoryInterface, dispatcher *Dispatcher, finisher CampaignFinisher) *Scheduler {
	s := &Scheduler{
		CampaignRepo: campaigns,
		ContactRepo:  contacts,
		Dispatcher:   dispatcher,
		Finisher:     finisher,
		BatchSize:    DefaultBatchSize,
		SendDelay:    DefaultSendDelay,
		Cooldown:     DefaultBatchCooldown,
		inflight:     make(map[int]bool),
	}
	s.Reschedule = func(campaignID int, delay time.Duration) {
		time.AfterFunc(delay, func() {
			if err := s.ProcessQueue(context.Background(), campaignID); err != nil {
				log.Error().Int("campaign_id", campaignID).Err(err).Msg("scheduled queue run failed")
			}
		})
	}
	return s
}

// Kick schedules an immediate ProcessQueue run without blocking the caller.
func (s *Scheduler) Kick(campaignID int) {
	s.Reschedule(campaignID, 0)
}

// ProcessQueue runs one batch for the campaign. A campaign that is not
// running is an idempotent no-op. One batch of up to BatchSize pending
// contacts is dispatched sequentially with SendDelay between sends;
// afterwards the scheduler either defers another run or asks the
// lifecycle manager to complete the campaign.
func (s *Scheduler) ProcessQueue(ctx context.Context, campaignID int) error {
	if !s.claim(campaignID) {
		log.Debug().Int("campaign_id", campaignID).Msg("queue run already in flight, skipping")
		return nil
	}
	defer s.release(campaignID)

	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}
	if campaign.Status != model.CampaignRunning {
		return nil
	}

	batch, err := s.ContactRepo.ListPending(campaignID, s.BatchSize)
	if err != nil {
		return err
	}

	log.Info().Int("campaign_id", campaignID).Int("batch", len(batch)).Msg("processing campaign batch")

	// Paces sends to the provider; the first Wait returns immediately.
	limiter := rate.NewLimiter(rate.Every(s.SendDelay), 1)

	for _, ct := range batch {
		current, err := s.CampaignRepo.GetByID(campaignID)
		if err != nil {
			return err
		}
		if current.Status != model.CampaignRunning {
			log.Info().Int("campaign_id", campaignID).Str("status", string(current.Status)).Msg("campaign no longer running, aborting batch")
			return nil
		}

		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		// A failing contact must not stop the batch.
		if _, err := s.Dispatcher.Send(ctx, ct.ID); err != nil {
			log.Error().Int("contact_id", ct.ID).Int("campaign_id", campaignID).Err(err).Msg("dispatch error, continuing batch")
		}
	}

	remaining, err := s.ContactRepo.ListPending(campaignID, 1)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		log.Info().Int("campaign_id", campaignID).Msg("contact queue drained, completing campaign")
		return s.Finisher.Complete(campaignID)
	}

	current, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}
	if current.Status == model.CampaignRunning {
		s.Reschedule(campaignID, s.Cooldown)
	}
	return nil
}

// claim is the per-campaign single-flight guard. It only covers this
// process; overlapping schedulers in separate processes remain possible.
func (s *Scheduler) claim(campaignID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[campaignID] {
		return false
	}
	s.inflight[campaignID] = true
	return true
}

func (s *Scheduler) release(campaignID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, campaignID)
}
