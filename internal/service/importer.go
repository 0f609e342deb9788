package service

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	appErrors "github.com/cadrimiranda/rubia-sub000/internal/errors"
	"github.com/cadrimiranda/rubia-sub000/internal/model"
	"github.com/cadrimiranda/rubia-sub000/internal/repository"
)

// minPhoneDigits rejects phone values too short to be a real number
// after normalization.
const minPhoneDigits = 10

// ImportResult summarizes one audience import.
type ImportResult struct {
	Total    int `json:"total"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// AudienceImporter builds the initial contact set of a draft campaign
// from a CSV stream, an explicit donor-id list, or search criteria.
type AudienceImporter struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ContactRepo  repository.ContactRepositoryInterface
	DonorRepo    repository.DonorRepositoryInterface
}

func (im *AudienceImporter) draftCampaign(campaignID int) (*model.Campaign, error) {
	campaign, err := im.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignDraft {
		return nil, appErrors.NewInvalidCampaignState("import contacts", campaign.Status)
	}
	return campaign, nil
}

// addContact creates the pending contact unless the donor is already in
// the campaign. Returns true when a new contact was created.
func (im *AudienceImporter) addContact(campaignID, donorID int) (bool, error) {
	existing, err := im.ContactRepo.GetByPair(campaignID, donorID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	ct := &model.CampaignContact{
		CampaignID: campaignID,
		DonorID:    donorID,
		Status:     model.ContactPending,
	}
	if err := im.ContactRepo.Create(ct); err != nil {
		var dup *appErrors.ErrDuplicateContact
		if errors.As(err, &dup) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ImportCSV reads a header row plus data rows. The phone column is
// required and found by fuzzy header match; name and email columns are
// optional. Malformed rows are logged and skipped, never abort the
// import. Unknown donors are created on the fly, matched by phone first.
func (im *AudienceImporter) ImportCSV(campaignID int, r io.Reader) (*ImportResult, error) {
	campaign, err := im.draftCampaign(campaignID)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.New("csv file has no header row")
	}

	phoneCol, nameCol, emailCol := matchColumns(header)
	if phoneCol < 0 {
		return nil, errors.New("csv header has no phone column")
	}

	result := &ImportResult{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Total++
			result.Skipped++
			log.Warn().Int("campaign_id", campaignID).Int("row", result.Total).Err(err).Msg("skipping malformed csv row")
			continue
		}
		result.Total++

		if phoneCol >= len(row) {
			result.Skipped++
			log.Warn().Int("campaign_id", campaignID).Int("row", result.Total).Msg("skipping short csv row")
			continue
		}

		phone := NormalizePhone(row[phoneCol])
		if len(phone) < minPhoneDigits {
			result.Skipped++
			log.Warn().Int("campaign_id", campaignID).Int("row", result.Total).Str("phone", row[phoneCol]).Msg("skipping row with invalid phone")
			continue
		}

		donor, err := im.DonorRepo.GetByPhone(campaign.CompanyID, phone)
		if err != nil {
			result.Skipped++
			log.Warn().Int("campaign_id", campaignID).Int("row", result.Total).Err(err).Msg("donor lookup failed, skipping row")
			continue
		}
		if donor == nil {
			donor = &model.Donor{
				CompanyID: campaign.CompanyID,
				Phone:     phone,
				Name:      cell(row, nameCol),
				Email:     cell(row, emailCol),
			}
			if err := im.DonorRepo.Create(donor); err != nil {
				result.Skipped++
				log.Warn().Int("campaign_id", campaignID).Int("row", result.Total).Err(err).Msg("donor create failed, skipping row")
				continue
			}
		}

		added, err := im.addContact(campaignID, donor.ID)
		if err != nil {
			result.Skipped++
			log.Warn().Int("campaign_id", campaignID).Int("donor_id", donor.ID).Err(err).Msg("contact create failed, skipping row")
			continue
		}
		if added {
			result.Imported++
		} else {
			result.Skipped++
		}
	}

	log.Info().Int("campaign_id", campaignID).Int("total", result.Total).Int("imported", result.Imported).Int("skipped", result.Skipped).Msg("csv import finished")
	return result, nil
}

// ImportIDs adds the donors with the given ids, filtered to the
// campaign's company and de-duplicated against existing contacts.
func (im *AudienceImporter) ImportIDs(campaignID int, donorIDs []int) (*ImportResult, error) {
	campaign, err := im.draftCampaign(campaignID)
	if err != nil {
		return nil, err
	}

	donors, err := im.DonorRepo.ListByIDs(campaign.CompanyID, donorIDs)
	if err != nil {
		return nil, err
	}

	return im.addDonors(campaignID, len(donorIDs), donors)
}

// ImportByCriteria resolves the criteria to a donor set and adds it.
func (im *AudienceImporter) ImportByCriteria(campaignID int, criteria model.DonorCriteria) (*ImportResult, error) {
	campaign, err := im.draftCampaign(campaignID)
	if err != nil {
		return nil, err
	}

	donors, err := im.DonorRepo.Search(campaign.CompanyID, criteria)
	if err != nil {
		return nil, err
	}

	return im.addDonors(campaignID, len(donors), donors)
}

func (im *AudienceImporter) addDonors(campaignID, total int, donors []*model.Donor) (*ImportResult, error) {
	result := &ImportResult{Total: total}
	for _, donor := range donors {
		added, err := im.addContact(campaignID, donor.ID)
		if err != nil {
			return result, err
		}
		if added {
			result.Imported++
		}
	}
	result.Skipped = result.Total - result.Imported
	return result, nil
}

// NormalizePhone strips everything but digits.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// matchColumns finds the phone, name and email columns by fuzzy header
// match. Phone is required; -1 means not found.
func matchColumns(header []string) (phone, name, email int) {
	phone, name, email = -1, -1, -1
	for i, h := range header {
		col := strings.ToLower(strings.TrimSpace(h))
		switch {
		case phone < 0 && containsAny(col, "phone", "telefone", "celular", "whatsapp", "fone"):
			phone = i
		case name < 0 && containsAny(col, "name", "nome"):
			name = i
		case email < 0 && strings.Contains(col, "mail"):
			email = i
		}
	}
	return phone, name, email
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
