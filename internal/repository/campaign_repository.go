package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/cadrimiranda/rubia-sub000/internal/errors"
	"github.com/cadrimiranda/rubia-sub000/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id int) (*model.Campaign, error)
	List(companyID, offset, limit int, status model.CampaignStatus) ([]*model.Campaign, int, error)
	Update(c *model.Campaign) error
	UpdateStatus(id int, status model.CampaignStatus) error
	MarkStarted(id int, at time.Time) error
	MarkEnded(id int, at time.Time) error
	Deactivate(id int) error
	ListDueScheduled(now time.Time) ([]*model.Campaign, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, company_id, name, template_id, status, scheduled_at, started_at, ended_at, active, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.TemplateID, &c.Status,
		&c.ScheduledAt, &c.StartedAt, &c.EndedAt, &c.Active,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	c.Active = true
	query := `
        INSERT INTO campaigns (company_id, name, template_id, status, scheduled_at, active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	return r.DB.QueryRow(query, c.CompanyID, c.Name, c.TemplateID, c.Status, c.ScheduledAt, c.Active, c.CreatedAt).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) List(companyID, offset, limit int, status model.CampaignStatus) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE company_id=$1 AND active=true`
	args := []any{companyID}
	argPos := 2

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE company_id=$1 AND active=true`
	countArgs := []any{companyID}
	if status != "" {
		countQuery += " AND status=$2"
		countArgs = append(countArgs, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) Update(c *model.Campaign) error {
	query := `
        UPDATE campaigns
        SET name=$1, template_id=$2, scheduled_at=$3, updated_at=NOW()
        WHERE id=$4
    `
	_, err := r.DB.Exec(query, c.Name, c.TemplateID, c.ScheduledAt, c.ID)
	return err
}

func (r *CampaignRepository) UpdateStatus(id int, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, status, time.Now(), id)
	return err
}

func (r *CampaignRepository) MarkStarted(id int, at time.Time) error {
	query := `UPDATE campaigns SET status=$1, started_at=$2, updated_at=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, model.CampaignRunning, at, id)
	return err
}

func (r *CampaignRepository) MarkEnded(id int, at time.Time) error {
	query := `UPDATE campaigns SET status=$1, ended_at=$2, updated_at=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, model.CampaignCompleted, at, id)
	return err
}

func (r *CampaignRepository) Deactivate(id int) error {
	query := `UPDATE campaigns SET active=false, updated_at=NOW() WHERE id=$1`
	_, err := r.DB.Exec(query, id)
	return err
}

// ListDueScheduled returns draft campaigns whose scheduled time has arrived.
// The cron sweep in cmd/server starts them.
func (r *CampaignRepository) ListDueScheduled(now time.Time) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns
        WHERE status=$1 AND active=true AND scheduled_at IS NOT NULL AND scheduled_at <= $2`
	rows, err := r.DB.Query(query, model.CampaignDraft, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
