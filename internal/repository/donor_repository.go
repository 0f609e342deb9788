package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/cadrimiranda/rubia-sub000/internal/model"
)

type DonorRepositoryInterface interface {
	GetByID(id int) (*model.Donor, error)
	GetByPhone(companyID int, phone string) (*model.Donor, error)
	Create(d *model.Donor) error
	ListByIDs(companyID int, ids []int) ([]*model.Donor, error)
	Search(companyID int, criteria model.DonorCriteria) ([]*model.Donor, error)
}

type DonorRepository struct {
	DB *sql.DB
}

const donorColumns = `id, company_id, name, phone, email, city, state, blood_type, birth_date, created_at`

func scanDonor(row interface{ Scan(...any) error }) (*model.Donor, error) {
	var d model.Donor
	err := row.Scan(
		&d.ID, &d.CompanyID, &d.Name, &d.Phone, &d.Email,
		&d.City, &d.State, &d.BloodType, &d.BirthDate, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DonorRepository) GetByID(id int) (*model.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE id=$1`
	d, err := scanDonor(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

func (r *DonorRepository) GetByPhone(companyID int, phone string) (*model.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE company_id=$1 AND phone=$2`
	d, err := scanDonor(r.DB.QueryRow(query, companyID, phone))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

func (r *DonorRepository) Create(d *model.Donor) error {
	d.CreatedAt = time.Now()
	query := `
        INSERT INTO donors (company_id, name, phone, email, city, state, blood_type, birth_date, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `
	return r.DB.QueryRow(query, d.CompanyID, d.Name, d.Phone, d.Email, d.City, d.State, d.BloodType, d.BirthDate, d.CreatedAt).Scan(&d.ID)
}

func (r *DonorRepository) ListByIDs(companyID int, ids []int) ([]*model.Donor, error) {
	if len(ids) == 0 {
		return []*model.Donor{}, nil
	}
	query := `SELECT ` + donorColumns + ` FROM donors WHERE company_id=$1 AND id = ANY($2)`
	rows, err := r.DB.Query(query, companyID, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	donors := []*model.Donor{}
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		donors = append(donors, d)
	}
	return donors, rows.Err()
}

// Search filters donors by the criteria-import fields. City and state
// match as substrings, blood type exactly, and the age range translates
// to a birth_date window.
func (r *DonorRepository) Search(companyID int, criteria model.DonorCriteria) ([]*model.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE company_id=$1`
	args := []any{companyID}
	argPos := 2

	if criteria.City != "" {
		query += fmt.Sprintf(" AND city ILIKE $%d", argPos)
		args = append(args, "%"+criteria.City+"%")
		argPos++
	}
	if criteria.State != "" {
		query += fmt.Sprintf(" AND state ILIKE $%d", argPos)
		args = append(args, "%"+criteria.State+"%")
		argPos++
	}
	if criteria.BloodType != "" {
		query += fmt.Sprintf(" AND blood_type=$%d", argPos)
		args = append(args, criteria.BloodType)
		argPos++
	}
	now := time.Now()
	if criteria.MinAge > 0 {
		query += fmt.Sprintf(" AND birth_date <= $%d", argPos)
		args = append(args, now.AddDate(-criteria.MinAge, 0, 0))
		argPos++
	}
	if criteria.MaxAge > 0 {
		query += fmt.Sprintf(" AND birth_date > $%d", argPos)
		args = append(args, now.AddDate(-criteria.MaxAge-1, 0, 0))
		argPos++
	}

	query += " ORDER BY id ASC"

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	donors := []*model.Donor{}
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		donors = append(donors, d)
	}
	return donors, rows.Err()
}

var _ DonorRepositoryInterface = (*DonorRepository)(nil)
