package model

import "time"

// ContactStatus tracks one donor's progress through a campaign.
type ContactStatus string

const (
	ContactPending   ContactStatus = "pending"
	ContactSent      ContactStatus = "sent"
	ContactDelivered ContactStatus = "delivered"
	ContactRead      ContactStatus = "read"
	ContactResponded ContactStatus = "responded"
	ContactFailed    ContactStatus = "failed"
	ContactExcluded  ContactStatus = "excluded"
)

// AllContactStatuses in happy-path order, used by stats aggregation.
var AllContactStatuses = []ContactStatus{
	ContactPending, ContactSent, ContactDelivered, ContactRead,
	ContactResponded, ContactFailed, ContactExcluded,
}

// contactTransitions: the happy path is monotonic, but retry rewinds
// failed back to pending, and exclusion is reversible by hand.
var contactTransitions = map[ContactStatus][]ContactStatus{
	ContactPending:   {ContactSent, ContactFailed, ContactExcluded},
	ContactSent:      {ContactDelivered, ContactFailed},
	ContactDelivered: {ContactRead, ContactFailed},
	ContactRead:      {ContactResponded, ContactFailed},
	ContactResponded: {},
	ContactFailed:    {ContactPending},
	ContactExcluded:  {ContactPending},
}

func (s ContactStatus) CanTransition(to ContactStatus) bool {
	for _, next := range contactTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type CampaignContact struct {
	ID           int           `db:"id" json:"id"`
	CampaignID   int           `db:"campaign_id" json:"campaign_id"`
	DonorID      int           `db:"donor_id" json:"donor_id"`
	Status       ContactStatus `db:"status" json:"status"`
	SentAt       *time.Time    `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt  *time.Time    `db:"delivered_at" json:"delivered_at,omitempty"`
	ReadAt       *time.Time    `db:"read_at" json:"read_at,omitempty"`
	RespondedAt  *time.Time    `db:"responded_at" json:"responded_at,omitempty"`
	ErrorMessage string        `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// ApplyStatus moves the contact to status, stamping the matching timestamp
// and recording or clearing the error message. Callers check CanTransition
// first; ApplyStatus itself does not validate.
func (c *CampaignContact) ApplyStatus(status ContactStatus, errMsg string, now time.Time) {
	c.Status = status
	c.UpdatedAt = now
	switch status {
	case ContactSent:
		c.SentAt = &now
	case ContactDelivered:
		c.DeliveredAt = &now
	case ContactRead:
		c.ReadAt = &now
	case ContactResponded:
		c.RespondedAt = &now
	}
	switch status {
	case ContactFailed, ContactExcluded:
		c.ErrorMessage = errMsg
	case ContactPending:
		c.ErrorMessage = ""
	}
}

// StatusTimestampColumn returns the column stamped when a contact enters
// the given status, or "" when the status carries no timestamp.
func StatusTimestampColumn(s ContactStatus) string {
	switch s {
	case ContactSent:
		return "sent_at"
	case ContactDelivered:
		return "delivered_at"
	case ContactRead:
		return "read_at"
	case ContactResponded:
		return "responded_at"
	}
	return ""
}
