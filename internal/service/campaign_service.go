package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	appErrors "github.com/cadrimiranda/rubia-sub000/internal/errors"
	"github.com/cadrimiranda/rubia-sub000/internal/model"
	"github.com/cadrimiranda/rubia-sub000/internal/repository"
)

// CampaignKicker triggers an asynchronous dispatch run for a campaign.
// In single-binary mode this is the Scheduler itself; in the split
// deployment it publishes a kick consumed by cmd/worker.
type CampaignKicker interface {
	Kick(campaignID int)
}

// CampaignService owns campaign-level lifecycle state and the validation
// gates that must pass before a campaign runs.
type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ContactRepo  repository.ContactRepositoryInterface
	DonorRepo    repository.DonorRepositoryInterface
	TemplateRepo repository.TemplateRepositoryInterface
	Channels     repository.ChannelStatusChecker
	Contacts     *ContactService
	Kicker       CampaignKicker
}

type CampaignDetails struct {
	*model.Campaign
	Stats *ContactStats `json:"stats"`
}

// PreviewMessage is one rendered sample from a campaign preview.
type PreviewMessage struct {
	ContactID int    `json:"contact_id"`
	DonorID   int    `json:"donor_id"`
	DonorName string `json:"donor_name"`
	Phone     string `json:"phone"`
	Text      string `json:"text"`
}

func (s *CampaignService) CreateCampaign(companyID int, name string, templateID *int, scheduledAt *string) (*model.Campaign, error) {
	c := &model.Campaign{
		CompanyID:  companyID,
		Name:       name,
		TemplateID: templateID,
		Status:     model.CampaignDraft,
	}

	if scheduledAt != nil && strings.TrimSpace(*scheduledAt) != "" {
		t, err := time.Parse(time.RFC3339, *scheduledAt)
		if err != nil {
			return nil, err
		}
		c.ScheduledAt = &t
	}

	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}

	return c, nil
}

// UpdateCampaign edits name, template and schedule. Only drafts may change.
func (s *CampaignService) UpdateCampaign(id int, name string, templateID *int, scheduledAt *string) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CampaignDraft {
		return nil, appErrors.NewInvalidCampaignState("update campaign", c.Status)
	}

	if name != "" {
		c.Name = name
	}
	if templateID != nil {
		c.TemplateID = templateID
	}
	if scheduledAt != nil {
		if strings.TrimSpace(*scheduledAt) == "" {
			c.ScheduledAt = nil
		} else {
			t, err := time.Parse(time.RFC3339, *scheduledAt)
			if err != nil {
				return nil, err
			}
			c.ScheduledAt = &t
		}
	}

	if err := s.CampaignRepo.Update(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCampaigns fetches one page of a company's campaigns.
func (s *CampaignService) ListCampaigns(companyID, page, pageSize int, status model.CampaignStatus) ([]model.Campaign, map[string]int, error) {
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

	ptrs, total, err := s.CampaignRepo.List(companyID, offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

func (s *CampaignService) GetCampaign(id int) (*model.Campaign, error) {
	return s.CampaignRepo.GetByID(id)
}

func (s *CampaignService) GetCampaignWithStats(id int) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	stats, err := s.Contacts.Stats(id)
	if err != nil {
		return nil, err
	}

	return &CampaignDetails{Campaign: campaign, Stats: stats}, nil
}

// Validate runs the pre-flight checks: a template must be attached, at
// least one contact must exist, and the company must have a connected
// outbound channel. All failures are reported together.
func (s *CampaignService) Validate(id int) error {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}

	problems := []string{}
	if campaign.TemplateID == nil {
		problems = append(problems, appErrors.ProblemNoTemplate)
	}

	total, err := s.contactCount(id)
	if err != nil {
		return err
	}
	if total == 0 {
		problems = append(problems, appErrors.ProblemNoContacts)
	}

	connected, err := s.Channels.HasConnectedChannel(campaign.CompanyID)
	if err != nil {
		return err
	}
	if !connected {
		problems = append(problems, appErrors.ProblemNoChannel)
	}

	if len(problems) > 0 {
		return appErrors.NewValidationError(problems...)
	}
	return nil
}

// Start moves a draft campaign with at least one contact to running,
// stamps the start date and kicks the batch scheduler asynchronously.
func (s *CampaignService) Start(id int) error {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	if campaign.Status != model.CampaignDraft {
		return appErrors.NewInvalidCampaignState("start campaign", campaign.Status)
	}

	total, err := s.contactCount(id)
	if err != nil {
		return err
	}
	if total == 0 {
		return appErrors.NewValidationError(appErrors.ProblemNoContacts)
	}

	if err := s.CampaignRepo.MarkStarted(id, time.Now()); err != nil {
		return err
	}

	log.Info().Int("campaign_id", id).Int("contacts", total).Msg("campaign started")
	s.Kicker.Kick(id)
	return nil
}

func (s *CampaignService) Pause(id int) error {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	if campaign.Status != model.CampaignRunning {
		return appErrors.NewInvalidCampaignState("pause campaign", campaign.Status)
	}
	log.Info().Int("campaign_id", id).Msg("campaign paused")
	return s.CampaignRepo.UpdateStatus(id, model.CampaignPaused)
}

func (s *CampaignService) Resume(id int) error {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	if campaign.Status != model.CampaignPaused {
		return appErrors.NewInvalidCampaignState("resume campaign", campaign.Status)
	}
	if err := s.CampaignRepo.UpdateStatus(id, model.CampaignRunning); err != nil {
		return err
	}
	log.Info().Int("campaign_id", id).Msg("campaign resumed")
	s.Kicker.Kick(id)
	return nil
}

// Stop force-completes a campaign from any non-terminal state.
func (s *CampaignService) Stop(id int) error {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	if campaign.Status.Terminal() {
		return appErrors.NewInvalidCampaignState("stop campaign", campaign.Status)
	}
	log.Info().Int("campaign_id", id).Msg("campaign stopped")
	return s.CampaignRepo.MarkEnded(id, time.Now())
}

// Complete is the natural-completion path used by the scheduler once the
// pending queue drains. Completing twice is a no-op.
func (s *CampaignService) Complete(id int) error {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	if campaign.Status.Terminal() {
		return nil
	}
	log.Info().Int("campaign_id", id).Msg("campaign completed")
	return s.CampaignRepo.MarkEnded(id, time.Now())
}

// DeleteCampaign soft-deactivates. Running campaigns must be stopped first.
func (s *CampaignService) DeleteCampaign(id int) error {
	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	if campaign.Status == model.CampaignRunning {
		return appErrors.NewInvalidCampaignState("delete campaign", campaign.Status)
	}
	return s.CampaignRepo.Deactivate(id)
}

// Preview renders up to five sample messages for the campaign's first
// contacts.
func (s *CampaignService) Preview(id, limit int) ([]PreviewMessage, error) {
	if limit < 1 || limit > 5 {
		limit = 5
	}

	campaign, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if campaign.TemplateID == nil {
		return nil, fmt.Errorf("campaign %d has no template attached", id)
	}
	tpl, err := s.TemplateRepo.GetByID(*campaign.TemplateID)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, fmt.Errorf("template %d not found", *campaign.TemplateID)
	}

	contacts, _, err := s.ContactRepo.ListByCampaign(id, 0, limit, "")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	previews := []PreviewMessage{}
	for _, ct := range contacts {
		donor, err := s.DonorRepo.GetByID(ct.DonorID)
		if err != nil {
			return nil, err
		}
		if donor == nil {
			continue
		}
		previews = append(previews, PreviewMessage{
			ContactID: ct.ID,
			DonorID:   donor.ID,
			DonorName: donor.Name,
			Phone:     donor.Phone,
			Text:      RenderTemplate(tpl.Content, donor, now),
		})
	}
	return previews, nil
}

// RenderPreview renders the campaign template (or an override) for one
// donor without touching any state.
func (s *CampaignService) RenderPreview(campaignID, donorID int, overrideTemplate *string) (string, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return "", err
	}

	donor, err := s.DonorRepo.GetByID(donorID)
	if err != nil {
		return "", err
	}
	if donor == nil {
		return "", fmt.Errorf("donor %d not found", donorID)
	}

	var template string
	if overrideTemplate != nil && strings.TrimSpace(*overrideTemplate) != "" {
		template = *overrideTemplate
	} else {
		if campaign.TemplateID == nil {
			return "", fmt.Errorf("campaign %d has no template attached", campaignID)
		}
		tpl, err := s.TemplateRepo.GetByID(*campaign.TemplateID)
		if err != nil {
			return "", err
		}
		if tpl == nil {
			return "", fmt.Errorf("template %d not found", *campaign.TemplateID)
		}
		template = tpl.Content
	}

	return RenderTemplate(template, donor, time.Now()), nil
}

// StartDue starts draft campaigns whose scheduled time has arrived and
// whose validation passes. Called by the cron sweep in cmd/server.
func (s *CampaignService) StartDue(now time.Time) {
	due, err := s.CampaignRepo.ListDueScheduled(now)
	if err != nil {
		log.Error().Err(err).Msg("failed to list due scheduled campaigns")
		return
	}

	for _, c := range due {
		if err := s.Validate(c.ID); err != nil {
			log.Warn().Int("campaign_id", c.ID).Err(err).Msg("scheduled campaign failed validation, not starting")
			continue
		}
		if err := s.Start(c.ID); err != nil {
			log.Error().Int("campaign_id", c.ID).Err(err).Msg("failed to start scheduled campaign")
		}
	}
}

func (s *CampaignService) contactCount(campaignID int) (int, error) {
	counts, err := s.ContactRepo.CountByStatus(campaignID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

var _ CampaignFinisher = (*CampaignService)(nil)
