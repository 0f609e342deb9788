package appErrors

import (
	"fmt"
	"strings"

	"github.com/cadrimiranda/rubia-sub000/internal/model"
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrContactNotFound is returned when a campaign contact does not exist.
type ErrContactNotFound struct {
	ContactID int
}

func (e *ErrContactNotFound) Error() string {
	return fmt.Sprintf("campaign contact with ID %d not found", e.ContactID)
}

func NewContactNotFound(id int) error {
	return &ErrContactNotFound{ContactID: id}
}

// ErrDuplicateContact signals that the donor is already part of the campaign.
type ErrDuplicateContact struct {
	CampaignID int
	DonorID    int
}

func (e *ErrDuplicateContact) Error() string {
	return fmt.Sprintf("donor %d is already a contact of campaign %d", e.DonorID, e.CampaignID)
}

func NewDuplicateContact(campaignID, donorID int) error {
	return &ErrDuplicateContact{CampaignID: campaignID, DonorID: donorID}
}

// ErrInvalidState rejects an operation the current status does not allow.
type ErrInvalidState struct {
	Op     string
	Status string
}

func (e *ErrInvalidState) Error() string {
	return fmt.Sprintf("cannot %s in status %q", e.Op, e.Status)
}

func NewInvalidCampaignState(op string, status model.CampaignStatus) error {
	return &ErrInvalidState{Op: op, Status: string(status)}
}

func NewInvalidContactState(op string, status model.ContactStatus) error {
	return &ErrInvalidState{Op: op, Status: string(status)}
}

// Validation problem codes surfaced by campaign pre-flight checks.
const (
	ProblemNoTemplate = "no_template"
	ProblemNoContacts = "no_contacts"
	ProblemNoChannel  = "no_channel"
)

// ValidationError carries every pre-flight problem so the UI can show
// all of them at once instead of one per request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "campaign validation failed: " + strings.Join(e.Problems, ", ")
}

func NewValidationError(problems ...string) error {
	return &ValidationError{Problems: problems}
}
