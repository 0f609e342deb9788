package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cadrimiranda/rubia-sub000/internal/channel"
	"github.com/cadrimiranda/rubia-sub000/internal/model"
	"github.com/cadrimiranda/rubia-sub000/internal/queue"
	"github.com/cadrimiranda/rubia-sub000/internal/repository"
)

// Dispatcher sends one rendered message to one campaign contact and
// records the outcome on the contact itself. Transport failures are
// absorbed into the contact's status, never returned to the caller;
// only infrastructure (repository) errors propagate.
type Dispatcher struct {
	CampaignRepo     repository.CampaignRepositoryInterface
	ContactRepo      repository.ContactRepositoryInterface
	DonorRepo        repository.DonorRepositoryInterface
	TemplateRepo     repository.TemplateRepositoryInterface
	ConversationRepo repository.ConversationRepositoryInterface
	Sender           channel.Sender
	Events           queue.Publisher
}

// Send dispatches the contact's message. Returns true when the message
// went out and the contact moved to sent. A contact that does not exist
// or is not pending is a no-op returning false.
func (d *Dispatcher) Send(ctx context.Context, contactID int) (bool, error) {
	ct, err := d.ContactRepo.GetByID(contactID)
	if err != nil {
		return false, err
	}
	if ct == nil || ct.Status != model.ContactPending {
		return false, nil
	}

	campaign, err := d.CampaignRepo.GetByID(ct.CampaignID)
	if err != nil {
		return false, err
	}

	if campaign.TemplateID == nil {
		return false, d.fail(ct, "campaign has no template attached")
	}
	tpl, err := d.TemplateRepo.GetByID(*campaign.TemplateID)
	if err != nil {
		return false, err
	}
	if tpl == nil {
		return false, d.fail(ct, "campaign template not found")
	}

	donor, err := d.DonorRepo.GetByID(ct.DonorID)
	if err != nil {
		return false, err
	}
	if donor == nil {
		return false, d.fail(ct, "donor not found")
	}

	text := RenderTemplate(tpl.Content, donor, time.Now())

	// Reuse the donor's thread when one exists, tagging it with this
	// campaign; a broken conversation store must not stall the batch.
	if _, err := d.ConversationRepo.GetOrCreate(campaign.CompanyID, donor.ID, &campaign.ID); err != nil {
		return false, d.fail(ct, "conversation store: "+err.Error())
	}

	if err := d.Sender.Send(ctx, donor.Phone, text); err != nil {
		log.Warn().Int("contact_id", ct.ID).Int("campaign_id", ct.CampaignID).Err(err).Msg("channel send failed")
		return false, d.fail(ct, err.Error())
	}

	if err := d.ContactRepo.UpdateStatus(ct.ID, model.ContactSent, ""); err != nil {
		return false, err
	}
	d.publishStatus(ct.CampaignID, ct.ID, model.ContactSent, "")
	return true, nil
}

// Retry resets a failed contact to pending and sends again. Contacts in
// any other status are a no-op returning false.
func (d *Dispatcher) Retry(ctx context.Context, contactID int) (bool, error) {
	ct, err := d.ContactRepo.GetByID(contactID)
	if err != nil {
		return false, err
	}
	if ct == nil || ct.Status != model.ContactFailed {
		return false, nil
	}

	if err := d.ContactRepo.UpdateStatus(ct.ID, model.ContactPending, ""); err != nil {
		return false, err
	}
	d.publishStatus(ct.CampaignID, ct.ID, model.ContactPending, "")

	return d.Send(ctx, contactID)
}

// RetryAll retries every failed contact of a campaign independently,
// continuing past individual errors, and returns the success count.
func (d *Dispatcher) RetryAll(ctx context.Context, campaignID int) (int, error) {
	failed, err := d.ContactRepo.ListByStatus(campaignID, model.ContactFailed)
	if err != nil {
		return 0, err
	}

	retried := 0
	for _, ct := range failed {
		sent, err := d.Retry(ctx, ct.ID)
		if err != nil {
			log.Warn().Int("contact_id", ct.ID).Int("campaign_id", campaignID).Err(err).Msg("retry failed, continuing")
			continue
		}
		if sent {
			retried++
		}
	}

	log.Info().Int("campaign_id", campaignID).Int("failed", len(failed)).Int("retried", retried).Msg("retry-all finished")
	return retried, nil
}

// fail absorbs a send failure into the contact's own status.
func (d *Dispatcher) fail(ct *model.CampaignContact, reason string) error {
	if err := d.ContactRepo.UpdateStatus(ct.ID, model.ContactFailed, reason); err != nil {
		return err
	}
	d.publishStatus(ct.CampaignID, ct.ID, model.ContactFailed, reason)
	return nil
}

func (d *Dispatcher) publishStatus(campaignID, contactID int, status model.ContactStatus, errMsg string) {
	if d.Events == nil {
		return
	}
	event := queue.NewContactStatusEvent(campaignID, contactID, string(status), errMsg)
	if err := d.Events.Publish(queue.TopicContactStatus, event); err != nil {
		log.Warn().Int("contact_id", contactID).Err(err).Msg("failed to publish contact status event")
	}
}
