package service

import (
	"github.com/rs/zerolog/log"

	appErrors "github.com/cadrimiranda/rubia-sub000/internal/errors"
	"github.com/cadrimiranda/rubia-sub000/internal/model"
	"github.com/cadrimiranda/rubia-sub000/internal/queue"
	"github.com/cadrimiranda/rubia-sub000/internal/repository"
)

// ContactStats aggregates per-status counts and the derived rates the
// dashboard shows. Rates are 0 when their denominator is 0.
type ContactStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Read      int `json:"read"`
	Responded int `json:"responded"`
	Failed    int `json:"failed"`
	Excluded  int `json:"excluded"`

	DeliveryRate float64 `json:"delivery_rate"`
	ReadRate     float64 `json:"read_rate"`
	ResponseRate float64 `json:"response_rate"`
	FailureRate  float64 `json:"failure_rate"`
}

// ContactService is the registry over campaign contacts: creation,
// status transitions, exclusion, deletion and statistics.
type ContactService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ContactRepo  repository.ContactRepositoryInterface
	Events       queue.Publisher
}

// Add creates a single pending contact. The (campaign, donor) pair must
// not already exist and the campaign must still be a draft.
func (s *ContactService) Add(campaignID, donorID int) (*model.CampaignContact, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignDraft {
		return nil, appErrors.NewInvalidCampaignState("add contact", campaign.Status)
	}

	existing, err := s.ContactRepo.GetByPair(campaignID, donorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, appErrors.NewDuplicateContact(campaignID, donorID)
	}

	ct := &model.CampaignContact{
		CampaignID: campaignID,
		DonorID:    donorID,
		Status:     model.ContactPending,
	}
	if err := s.ContactRepo.Create(ct); err != nil {
		return nil, err
	}
	return ct, nil
}

func (s *ContactService) Get(id int) (*model.CampaignContact, error) {
	ct, err := s.ContactRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if ct == nil {
		return nil, appErrors.NewContactNotFound(id)
	}
	return ct, nil
}

// List returns one page of a campaign's contacts, optionally filtered by
// status, with the usual pagination envelope.
func (s *ContactService) List(campaignID, page, pageSize int, status model.ContactStatus) ([]model.CampaignContact, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.ContactRepo.ListByCampaign(campaignID, offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	contacts := make([]model.CampaignContact, len(ptrs))
	for i, ct := range ptrs {
		contacts[i] = *ct
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return contacts, pagination, nil
}

// UpdateStatus moves a contact along the state machine, stamping the
// matching timestamp. Invalid transitions are rejected.
func (s *ContactService) UpdateStatus(id int, status model.ContactStatus) error {
	ct, err := s.Get(id)
	if err != nil {
		return err
	}
	if !ct.Status.CanTransition(status) {
		return appErrors.NewInvalidContactState("transition to "+string(status), ct.Status)
	}
	if err := s.ContactRepo.UpdateStatus(id, status, ""); err != nil {
		return err
	}
	s.publishStatus(ct.CampaignID, id, status, "")
	return nil
}

// Delete removes a contact, allowed only while the campaign is a draft.
func (s *ContactService) Delete(id int) error {
	ct, err := s.Get(id)
	if err != nil {
		return err
	}
	campaign, err := s.CampaignRepo.GetByID(ct.CampaignID)
	if err != nil {
		return err
	}
	if campaign.Status != model.CampaignDraft {
		return appErrors.NewInvalidCampaignState("delete contact", campaign.Status)
	}
	return s.ContactRepo.Delete(id)
}

// Exclude takes a pending contact out of the queue, recording the reason.
func (s *ContactService) Exclude(id int, reason string) error {
	ct, err := s.Get(id)
	if err != nil {
		return err
	}
	if ct.Status != model.ContactPending {
		return appErrors.NewInvalidContactState("exclude", ct.Status)
	}
	if err := s.ContactRepo.UpdateStatus(id, model.ContactExcluded, reason); err != nil {
		return err
	}
	s.publishStatus(ct.CampaignID, id, model.ContactExcluded, reason)
	return nil
}

// Reinclude puts an excluded contact back into the pending queue.
func (s *ContactService) Reinclude(id int) error {
	ct, err := s.Get(id)
	if err != nil {
		return err
	}
	if ct.Status != model.ContactExcluded {
		return appErrors.NewInvalidContactState("reinclude", ct.Status)
	}
	if err := s.ContactRepo.UpdateStatus(id, model.ContactPending, ""); err != nil {
		return err
	}
	s.publishStatus(ct.CampaignID, id, model.ContactPending, "")
	return nil
}

// Stats aggregates per-status counts and derived rates for a campaign.
func (s *ContactService) Stats(campaignID int) (*ContactStats, error) {
	counts, err := s.ContactRepo.CountByStatus(campaignID)
	if err != nil {
		return nil, err
	}

	stats := &ContactStats{
		Pending:   counts[model.ContactPending],
		Sent:      counts[model.ContactSent],
		Delivered: counts[model.ContactDelivered],
		Read:      counts[model.ContactRead],
		Responded: counts[model.ContactResponded],
		Failed:    counts[model.ContactFailed],
		Excluded:  counts[model.ContactExcluded],
	}
	for _, n := range counts {
		stats.Total += n
	}

	if stats.Total > 0 {
		stats.DeliveryRate = float64(stats.Delivered) / float64(stats.Total)
		stats.FailureRate = float64(stats.Failed) / float64(stats.Total)
	}
	if stats.Delivered > 0 {
		stats.ReadRate = float64(stats.Read) / float64(stats.Delivered)
		stats.ResponseRate = float64(stats.Responded) / float64(stats.Delivered)
	}

	return stats, nil
}

func (s *ContactService) publishStatus(campaignID, contactID int, status model.ContactStatus, errMsg string) {
	if s.Events == nil {
		return
	}
	event := queue.NewContactStatusEvent(campaignID, contactID, string(status), errMsg)
	if err := s.Events.Publish(queue.TopicContactStatus, event); err != nil {
		log.Warn().Int("contact_id", contactID).Err(err).Msg("failed to publish contact status event")
	}
}
