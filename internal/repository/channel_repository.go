package repository

import (
	"database/sql"

	"github.com/cadrimiranda/rubia-sub000/internal/model"
)

// ChannelStatusChecker answers whether a company has a connected outbound
// WhatsApp channel. Campaign validation refuses to run without one.
type ChannelStatusChecker interface {
	HasConnectedChannel(companyID int) (bool, error)
}

type ChannelRepository struct {
	DB *sql.DB
}

func (r *ChannelRepository) HasConnectedChannel(companyID int) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM company_channels WHERE company_id=$1 AND status='connected'`
	if err := r.DB.QueryRow(query, companyID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ ChannelStatusChecker = (*ChannelRepository)(nil)

type TemplateRepositoryInterface interface {
	GetByID(id int) (*model.MessageTemplate, error)
}

type TemplateRepository struct {
	DB *sql.DB
}

func (r *TemplateRepository) GetByID(id int) (*model.MessageTemplate, error) {
	query := `SELECT id, company_id, name, content, created_at FROM templates WHERE id=$1`
	var t model.MessageTemplate
	err := r.DB.QueryRow(query, id).Scan(&t.ID, &t.CompanyID, &t.Name, &t.Content, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
