package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/cadrimiranda/rubia-sub000/internal/errors"
	"github.com/cadrimiranda/rubia-sub000/internal/model"
)

type ContactRepositoryInterface interface {
	Create(ct *model.CampaignContact) error
	GetByID(id int) (*model.CampaignContact, error)
	GetByPair(campaignID, donorID int) (*model.CampaignContact, error)
	ListByCampaign(campaignID, offset, limit int, status model.ContactStatus) ([]*model.CampaignContact, int, error)
	ListPending(campaignID, limit int) ([]*model.CampaignContact, error)
	ListByStatus(campaignID int, status model.ContactStatus) ([]*model.CampaignContact, error)
	UpdateStatus(id int, status model.ContactStatus, errMsg string) error
	Delete(id int) error
	CountByStatus(campaignID int) (map[model.ContactStatus]int, error)
}

type ContactRepository struct {
	DB *sql.DB
}

const contactColumns = `id, campaign_id, donor_id, status, sent_at, delivered_at, read_at, responded_at, error_message, created_at, updated_at`

func scanContact(row interface{ Scan(...any) error }) (*model.CampaignContact, error) {
	var ct model.CampaignContact
	err := row.Scan(
		&ct.ID, &ct.CampaignID, &ct.DonorID, &ct.Status,
		&ct.SentAt, &ct.DeliveredAt, &ct.ReadAt, &ct.RespondedAt,
		&ct.ErrorMessage, &ct.CreatedAt, &ct.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

// Create inserts a pending contact. The unique index on
// (campaign_id, donor_id) turns a duplicate into ErrDuplicateContact.
func (r *ContactRepository) Create(ct *model.CampaignContact) error {
	now := time.Now()
	ct.CreatedAt = now
	ct.UpdatedAt = now
	if ct.Status == "" {
		ct.Status = model.ContactPending
	}
	query := `
        INSERT INTO campaign_contacts (campaign_id, donor_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $4)
        RETURNING id
    `
	err := r.DB.QueryRow(query, ct.CampaignID, ct.DonorID, ct.Status, now).Scan(&ct.ID)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return appErrors.NewDuplicateContact(ct.CampaignID, ct.DonorID)
	}
	return err
}

func (r *ContactRepository) GetByID(id int) (*model.CampaignContact, error) {
	query := `SELECT ` + contactColumns + ` FROM campaign_contacts WHERE id=$1`
	ct, err := scanContact(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return ct, nil
}

func (r *ContactRepository) GetByPair(campaignID, donorID int) (*model.CampaignContact, error) {
	query := `SELECT ` + contactColumns + ` FROM campaign_contacts WHERE campaign_id=$1 AND donor_id=$2`
	ct, err := scanContact(r.DB.QueryRow(query, campaignID, donorID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return ct, nil
}

func (r *ContactRepository) ListByCampaign(campaignID, offset, limit int, status model.ContactStatus) ([]*model.CampaignContact, int, error) {
	contacts := []*model.CampaignContact{}
	query := `SELECT ` + contactColumns + ` FROM campaign_contacts WHERE campaign_id=$1`
	args := []any{campaignID}
	argPos := 2

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		ct, err := scanContact(rows)
		if err != nil {
			return nil, 0, err
		}
		contacts = append(contacts, ct)
	}

	countQuery := `SELECT COUNT(*) FROM campaign_contacts WHERE campaign_id=$1`
	countArgs := []any{campaignID}
	if status != "" {
		countQuery += " AND status=$2"
		countArgs = append(countArgs, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return contacts, total, nil
}

// ListPending returns the oldest pending contacts, up to limit. Order by
// creation time keeps dispatch first-come-first-served.
func (r *ContactRepository) ListPending(campaignID, limit int) ([]*model.CampaignContact, error) {
	query := `SELECT ` + contactColumns + ` FROM campaign_contacts
        WHERE campaign_id=$1 AND status=$2
        ORDER BY created_at ASC, id ASC
        LIMIT $3`
	rows, err := r.DB.Query(query, campaignID, model.ContactPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []*model.CampaignContact{}
	for rows.Next() {
		ct, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, ct)
	}
	return contacts, rows.Err()
}

func (r *ContactRepository) ListByStatus(campaignID int, status model.ContactStatus) ([]*model.CampaignContact, error) {
	query := `SELECT ` + contactColumns + ` FROM campaign_contacts
        WHERE campaign_id=$1 AND status=$2
        ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.Query(query, campaignID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []*model.CampaignContact{}
	for rows.Next() {
		ct, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, ct)
	}
	return contacts, rows.Err()
}

// UpdateStatus writes the new status, the error message, and the timestamp
// column the status stamps (sent_at for sent, and so on).
func (r *ContactRepository) UpdateStatus(id int, status model.ContactStatus, errMsg string) error {
	query := `UPDATE campaign_contacts SET status=$1, error_message=$2, updated_at=NOW()`
	if col := model.StatusTimestampColumn(status); col != "" {
		query += fmt.Sprintf(", %s=NOW()", col)
	}
	query += ` WHERE id=$3`
	_, err := r.DB.Exec(query, status, errMsg, id)
	return err
}

func (r *ContactRepository) Delete(id int) error {
	_, err := r.DB.Exec(`DELETE FROM campaign_contacts WHERE id=$1`, id)
	return err
}

func (r *ContactRepository) CountByStatus(campaignID int) (map[model.ContactStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM campaign_contacts WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[model.ContactStatus]int{}
	for _, s := range model.AllContactStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var status model.ContactStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
