package handler_test

import (
	"context"
	"time"

	appErrors "github.com/cadrimiranda/rubia-sub000/internal/errors"
	"github.com/cadrimiranda/rubia-sub000/internal/model"
)

// Compact in-memory repositories for wiring real services behind the
// HTTP layer. Single-goroutine use only.

type memCampaigns struct {
	nextID int
	items  map[int]*model.Campaign
}

func newMemCampaigns() *memCampaigns {
	return &memCampaigns{items: map[int]*model.Campaign{}}
}

func (r *memCampaigns) Create(c *model.Campaign) error {
	r.nextID++
	c.ID = r.nextID
	c.Active = true
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	r.items[c.ID] = c
	return nil
}

func (r *memCampaigns) GetByID(id int) (*model.Campaign, error) {
	c, ok := r.items[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return c, nil
}

func (r *memCampaigns) List(companyID, offset, limit int, status model.CampaignStatus) ([]*model.Campaign, int, error) {
	matched := []*model.Campaign{}
	for id := 1; id <= r.nextID; id++ {
		c, ok := r.items[id]
		if !ok || c.CompanyID != companyID || !c.Active {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		matched = append(matched, c)
	}
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *memCampaigns) Update(c *model.Campaign) error {
	if _, ok := r.items[c.ID]; !ok {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	r.items[c.ID] = c
	return nil
}

func (r *memCampaigns) UpdateStatus(id int, status model.CampaignStatus) error {
	c, err := r.GetByID(id)
	if err != nil {
		return err
	}
	c.Status = status
	return nil
}

func (r *memCampaigns) MarkStarted(id int, at time.Time) error {
	c, err := r.GetByID(id)
	if err != nil {
		return err
	}
	c.Status = model.CampaignRunning
	c.StartedAt = &at
	return nil
}

func (r *memCampaigns) MarkEnded(id int, at time.Time) error {
	c, err := r.GetByID(id)
	if err != nil {
		return err
	}
	c.Status = model.CampaignCompleted
	c.EndedAt = &at
	return nil
}

func (r *memCampaigns) Deactivate(id int) error {
	c, err := r.GetByID(id)
	if err != nil {
		return err
	}
	c.Active = false
	return nil
}

func (r *memCampaigns) ListDueScheduled(now time.Time) ([]*model.Campaign, error) {
	due := []*model.Campaign{}
	for id := 1; id <= r.nextID; id++ {
		c, ok := r.items[id]
		if ok && c.Active && c.Status == model.CampaignDraft && c.ScheduledAt != nil && !c.ScheduledAt.After(now) {
			due = append(due, c)
		}
	}
	return due, nil
}

type memContacts struct {
	nextID int
	items  []*model.CampaignContact
}

func newMemContacts() *memContacts {
	return &memContacts{}
}

func (r *memContacts) Create(ct *model.CampaignContact) error {
	if existing, _ := r.GetByPair(ct.CampaignID, ct.DonorID); existing != nil {
		return appErrors.NewDuplicateContact(ct.CampaignID, ct.DonorID)
	}
	r.nextID++
	ct.ID = r.nextID
	ct.CreatedAt = time.Now()
	if ct.Status == "" {
		ct.Status = model.ContactPending
	}
	r.items = append(r.items, ct)
	return nil
}

func (r *memContacts) GetByID(id int) (*model.CampaignContact, error) {
	for _, ct := range r.items {
		if ct.ID == id {
			return ct, nil
		}
	}
	return nil, nil
}

func (r *memContacts) GetByPair(campaignID, donorID int) (*model.CampaignContact, error) {
	for _, ct := range r.items {
		if ct.CampaignID == campaignID && ct.DonorID == donorID {
			return ct, nil
		}
	}
	return nil, nil
}

func (r *memContacts) ListByCampaign(campaignID, offset, limit int, status model.ContactStatus) ([]*model.CampaignContact, int, error) {
	matched := []*model.CampaignContact{}
	for _, ct := range r.items {
		if ct.CampaignID != campaignID {
			continue
		}
		if status != "" && ct.Status != status {
			continue
		}
		matched = append(matched, ct)
	}
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *memContacts) ListPending(campaignID, limit int) ([]*model.CampaignContact, error) {
	pending := []*model.CampaignContact{}
	for _, ct := range r.items {
		if ct.CampaignID == campaignID && ct.Status == model.ContactPending {
			pending = append(pending, ct)
			if len(pending) == limit {
				break
			}
		}
	}
	return pending, nil
}

func (r *memContacts) ListByStatus(campaignID int, status model.ContactStatus) ([]*model.CampaignContact, error) {
	matched := []*model.CampaignContact{}
	for _, ct := range r.items {
		if ct.CampaignID == campaignID && ct.Status == status {
			matched = append(matched, ct)
		}
	}
	return matched, nil
}

func (r *memContacts) UpdateStatus(id int, status model.ContactStatus, errMsg string) error {
	ct, _ := r.GetByID(id)
	if ct == nil {
		return appErrors.NewContactNotFound(id)
	}
	ct.ApplyStatus(status, errMsg, time.Now())
	return nil
}

func (r *memContacts) Delete(id int) error {
	for i, ct := range r.items {
		if ct.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return appErrors.NewContactNotFound(id)
}

func (r *memContacts) CountByStatus(campaignID int) (map[model.ContactStatus]int, error) {
	counts := map[model.ContactStatus]int{}
	for _, s := range model.AllContactStatuses {
		counts[s] = 0
	}
	for _, ct := range r.items {
		if ct.CampaignID == campaignID {
			counts[ct.Status]++
		}
	}
	return counts, nil
}

type memDonors struct {
	nextID int
	items  map[int]*model.Donor
}

func newMemDonors() *memDonors {
	return &memDonors{items: map[int]*model.Donor{}}
}

func (r *memDonors) Create(d *model.Donor) error {
	r.nextID++
	d.ID = r.nextID
	r.items[d.ID] = d
	return nil
}

func (r *memDonors) GetByID(id int) (*model.Donor, error) {
	return r.items[id], nil
}

func (r *memDonors) GetByPhone(companyID int, phone string) (*model.Donor, error) {
	for _, d := range r.items {
		if d.CompanyID == companyID && d.Phone == phone {
			return d, nil
		}
	}
	return nil, nil
}

func (r *memDonors) ListByIDs(companyID int, ids []int) ([]*model.Donor, error) {
	donors := []*model.Donor{}
	for _, id := range ids {
		if d, ok := r.items[id]; ok && d.CompanyID == companyID {
			donors = append(donors, d)
		}
	}
	return donors, nil
}

func (r *memDonors) Search(companyID int, criteria model.DonorCriteria) ([]*model.Donor, error) {
	donors := []*model.Donor{}
	for id := 1; id <= r.nextID; id++ {
		d, ok := r.items[id]
		if ok && d.CompanyID == companyID && (criteria.BloodType == "" || d.BloodType == criteria.BloodType) {
			donors = append(donors, d)
		}
	}
	return donors, nil
}

type memTemplates struct {
	items map[int]*model.MessageTemplate
}

func newMemTemplates() *memTemplates {
	return &memTemplates{items: map[int]*model.MessageTemplate{}}
}

func (r *memTemplates) GetByID(id int) (*model.MessageTemplate, error) {
	return r.items[id], nil
}

type stubChannels struct{ connected bool }

func (s stubChannels) HasConnectedChannel(int) (bool, error) {
	return s.connected, nil
}

type memConversations struct{}

func (memConversations) GetOrCreate(companyID, donorID int, campaignID *int) (*model.Conversation, error) {
	return &model.Conversation{CompanyID: companyID, DonorID: donorID, CampaignID: campaignID}, nil
}

// okSender always succeeds.
type okSender struct{ sent []string }

func (s *okSender) Send(_ context.Context, to, _ string) error {
	s.sent = append(s.sent, to)
	return nil
}

// nopKicker satisfies the kick boundary without dispatching anything.
type nopKicker struct{}

func (nopKicker) Kick(int) {}
