package model

import "time"

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignRunning   CampaignStatus = "running"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

// campaignTransitions lists the allowed next states. Completed is terminal;
// any non-terminal campaign may be force-stopped straight to completed.
var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:     {CampaignRunning, CampaignCompleted},
	CampaignRunning:   {CampaignPaused, CampaignCompleted},
	CampaignPaused:    {CampaignRunning, CampaignCompleted},
	CampaignCompleted: {},
}

func (s CampaignStatus) CanTransition(to CampaignStatus) bool {
	for _, next := range campaignTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CampaignStatus) Terminal() bool {
	return s == CampaignCompleted
}

type Campaign struct {
	ID          int            `db:"id" json:"id"`
	CompanyID   int            `db:"company_id" json:"company_id"`
	Name        string         `db:"name" json:"name"`
	TemplateID  *int           `db:"template_id" json:"template_id,omitempty"`
	Status      CampaignStatus `db:"status" json:"status"`
	ScheduledAt *time.Time     `db:"scheduled_at" json:"scheduled_at,omitempty"`
	StartedAt   *time.Time     `db:"started_at" json:"started_at,omitempty"`
	EndedAt     *time.Time     `db:"ended_at" json:"ended_at,omitempty"`
	Active      bool           `db:"active" json:"active"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}
