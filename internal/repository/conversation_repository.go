package repository

import (
	"database/sql"
	"time"

	"github.com/cadrimiranda/rubia-sub000/internal/model"
)

type ConversationRepositoryInterface interface {
	GetOrCreate(companyID, donorID int, campaignID *int) (*model.Conversation, error)
}

type ConversationRepository struct {
	DB *sql.DB
}

// GetOrCreate returns the existing thread for (company, donor), tagging it
// with the campaign when given, or creates a new one.
func (r *ConversationRepository) GetOrCreate(companyID, donorID int, campaignID *int) (*model.Conversation, error) {
	var conv model.Conversation
	query := `SELECT id, company_id, donor_id, campaign_id, created_at
        FROM conversations WHERE company_id=$1 AND donor_id=$2`
	err := r.DB.QueryRow(query, companyID, donorID).Scan(
		&conv.ID, &conv.CompanyID, &conv.DonorID, &conv.CampaignID, &conv.CreatedAt,
	)
	if err == nil {
		if campaignID != nil {
			if _, err := r.DB.Exec(`UPDATE conversations SET campaign_id=$1 WHERE id=$2`, campaignID, conv.ID); err != nil {
				return nil, err
			}
			conv.CampaignID = campaignID
		}
		return &conv, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	conv = model.Conversation{
		CompanyID:  companyID,
		DonorID:    donorID,
		CampaignID: campaignID,
		CreatedAt:  time.Now(),
	}
	insert := `INSERT INTO conversations (company_id, donor_id, campaign_id, created_at)
        VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.DB.QueryRow(insert, companyID, donorID, campaignID, conv.CreatedAt).Scan(&conv.ID); err != nil {
		return nil, err
	}
	return &conv, nil
}

var _ ConversationRepositoryInterface = (*ConversationRepository)(nil)
