package model

import "time"

// Donor is a blood donor known to a company. Matched by phone when
// importing campaign audiences.
type Donor struct {
	ID        int        `db:"id" json:"id"`
	CompanyID int        `db:"company_id" json:"company_id"`
	Name      string     `db:"name" json:"name"`
	Phone     string     `db:"phone" json:"phone"`
	Email     string     `db:"email" json:"email"`
	City      string     `db:"city" json:"city"`
	State     string     `db:"state" json:"state"`
	BloodType string     `db:"blood_type" json:"blood_type"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Age in whole years at now, or -1 when the birth date is unknown.
func (d *Donor) Age(now time.Time) int {
	if d.BirthDate == nil {
		return -1
	}
	years := now.Year() - d.BirthDate.Year()
	anniversary := d.BirthDate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

// DonorCriteria filters donors for criteria-based audience imports.
// String fields use substring matching, blood type is exact, and the
// age range is derived from birth_date.
type DonorCriteria struct {
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	BloodType string `json:"blood_type,omitempty"`
	MinAge    int    `json:"min_age,omitempty"`
	MaxAge    int    `json:"max_age,omitempty"`
}

func (c DonorCriteria) Empty() bool {
	return c.City == "" && c.State == "" && c.BloodType == "" && c.MinAge == 0 && c.MaxAge == 0
}
