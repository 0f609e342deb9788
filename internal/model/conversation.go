package model

import "time"

// Conversation is the WhatsApp thread between a company and a donor.
// At most one per (company, donor); campaign sends reuse the existing
// thread and tag it with the campaign that last touched it.
type Conversation struct {
	ID         int       `db:"id" json:"id"`
	CompanyID  int       `db:"company_id" json:"company_id"`
	DonorID    int       `db:"donor_id" json:"donor_id"`
	CampaignID *int      `db:"campaign_id" json:"campaign_id,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// MessageTemplate is the reusable message body a campaign renders per donor.
type MessageTemplate struct {
	ID        int       `db:"id" json:"id"`
	CompanyID int       `db:"company_id" json:"company_id"`
	Name      string    `db:"name" json:"name"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
