package service

import (
	"regexp"
	"strings"
	"time"

	"github.com/cadrimiranda/rubia-sub000/internal/model"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_]+)\s*\}\}`)

// placeholderFields maps a lowercase placeholder name to the value it
// renders. Portuguese and English aliases share the same entry, so new
// aliases are a one-line addition.
var placeholderFields = map[string]func(d *model.Donor, now time.Time) string{
	"name":           donorName,
	"nome":           donorName,
	"phone":          donorPhone,
	"telefone":       donorPhone,
	"celular":        donorPhone,
	"email":          donorEmail,
	"city":           donorCity,
	"cidade":         donorCity,
	"state":          donorState,
	"estado":         donorState,
	"blood_type":     donorBloodType,
	"tipo_sanguineo": donorBloodType,
	"date":           renderDate,
	"data":           renderDate,
	"time":           renderTime,
	"hora":           renderTime,
}

func donorName(d *model.Donor, _ time.Time) string      { return d.Name }
func donorPhone(d *model.Donor, _ time.Time) string     { return d.Phone }
func donorEmail(d *model.Donor, _ time.Time) string     { return d.Email }
func donorCity(d *model.Donor, _ time.Time) string      { return d.City }
func donorState(d *model.Donor, _ time.Time) string     { return d.State }
func donorBloodType(d *model.Donor, _ time.Time) string { return d.BloodType }

func renderDate(_ *model.Donor, now time.Time) string { return now.Format("02/01/2006") }
func renderTime(_ *model.Donor, now time.Time) string { return now.Format("15:04") }

// RenderTemplate substitutes {{PLACEHOLDER}} tokens with donor-derived
// values. Matching is case-insensitive. Unknown placeholders are left
// verbatim so a typo in the template never blocks a send; missing donor
// fields render as empty strings.
func RenderTemplate(template string, donor *model.Donor, now time.Time) string {
	if donor == nil {
		donor = &model.Donor{}
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.ToLower(placeholderRe.FindStringSubmatch(match)[1])
		field, ok := placeholderFields[key]
		if !ok {
			return match
		}
		return field(donor, now)
	})
}
