package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	appErrors "github.com/cadrimiranda/rubia-sub000/internal/errors"
	"github.com/cadrimiranda/rubia-sub000/internal/model"
)

// In-memory repositories backing the service tests.

type memCampaignRepo struct {
	mu     sync.Mutex
	nextID int
	items  map[int]*model.Campaign
}

func newMemCampaignRepo() *memCampaignRepo {
	return &memCampaignRepo{items: map[int]*model.Campaign{}}
}

func (r *memCampaignRepo) Create(c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	c.Active = true
	stored := *c
	r.items[c.ID] = &stored
	return nil
}

func (r *memCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (r *memCampaignRepo) List(companyID, offset, limit int, status model.CampaignStatus) ([]*model.Campaign, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := []*model.Campaign{}
	for id := r.nextID; id >= 1; id-- {
		c, ok := r.items[id]
		if !ok || c.CompanyID != companyID || !c.Active {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		cp := *c
		matched = append(matched, &cp)
	}
	total := len(matched)
	if offset >= total {
		return []*model.Campaign{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *memCampaignRepo) Update(c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[c.ID]
	if !ok {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	stored.Name = c.Name
	stored.TemplateID = c.TemplateID
	stored.ScheduledAt = c.ScheduledAt
	return nil
}

func (r *memCampaignRepo) UpdateStatus(id int, status model.CampaignStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = status
	return nil
}

func (r *memCampaignRepo) MarkStarted(id int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = model.CampaignRunning
	c.StartedAt = &at
	return nil
}

func (r *memCampaignRepo) MarkEnded(id int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = model.CampaignCompleted
	c.EndedAt = &at
	return nil
}

func (r *memCampaignRepo) Deactivate(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Active = false
	return nil
}

func (r *memCampaignRepo) ListDueScheduled(now time.Time) ([]*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	due := []*model.Campaign{}
	for id := 1; id <= r.nextID; id++ {
		c, ok := r.items[id]
		if !ok || !c.Active || c.Status != model.CampaignDraft || c.ScheduledAt == nil {
			continue
		}
		if !c.ScheduledAt.After(now) {
			cp := *c
			due = append(due, &cp)
		}
	}
	return due, nil
}

type memContactRepo struct {
	mu     sync.Mutex
	nextID int
	items  []*model.CampaignContact
}

func newMemContactRepo() *memContactRepo {
	return &memContactRepo{}
}

func (r *memContactRepo) Create(ct *model.CampaignContact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.CampaignID == ct.CampaignID && existing.DonorID == ct.DonorID {
			return appErrors.NewDuplicateContact(ct.CampaignID, ct.DonorID)
		}
	}
	r.nextID++
	ct.ID = r.nextID
	now := time.Now()
	ct.CreatedAt = now
	ct.UpdatedAt = now
	if ct.Status == "" {
		ct.Status = model.ContactPending
	}
	stored := *ct
	r.items = append(r.items, &stored)
	return nil
}

func (r *memContactRepo) GetByID(id int) (*model.CampaignContact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ct := range r.items {
		if ct.ID == id {
			cp := *ct
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memContactRepo) GetByPair(campaignID, donorID int) (*model.CampaignContact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ct := range r.items {
		if ct.CampaignID == campaignID && ct.DonorID == donorID {
			cp := *ct
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memContactRepo) ListByCampaign(campaignID, offset, limit int, status model.ContactStatus) ([]*model.CampaignContact, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := []*model.CampaignContact{}
	for _, ct := range r.items {
		if ct.CampaignID != campaignID {
			continue
		}
		if status != "" && ct.Status != status {
			continue
		}
		cp := *ct
		matched = append(matched, &cp)
	}
	total := len(matched)
	if offset >= total {
		return []*model.CampaignContact{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *memContactRepo) ListPending(campaignID, limit int) ([]*model.CampaignContact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := []*model.CampaignContact{}
	for _, ct := range r.items {
		if ct.CampaignID == campaignID && ct.Status == model.ContactPending {
			cp := *ct
			pending = append(pending, &cp)
			if len(pending) == limit {
				break
			}
		}
	}
	return pending, nil
}

func (r *memContactRepo) ListByStatus(campaignID int, status model.ContactStatus) ([]*model.CampaignContact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := []*model.CampaignContact{}
	for _, ct := range r.items {
		if ct.CampaignID == campaignID && ct.Status == status {
			cp := *ct
			matched = append(matched, &cp)
		}
	}
	return matched, nil
}

func (r *memContactRepo) UpdateStatus(id int, status model.ContactStatus, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ct := range r.items {
		if ct.ID == id {
			ct.ApplyStatus(status, errMsg, time.Now())
			return nil
		}
	}
	return appErrors.NewContactNotFound(id)
}

func (r *memContactRepo) Delete(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, ct := range r.items {
		if ct.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return appErrors.NewContactNotFound(id)
}

func (r *memContactRepo) CountByStatus(campaignID int) (map[model.ContactStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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

type memDonorRepo struct {
	mu     sync.Mutex
	nextID int
	items  map[int]*model.Donor
}

func newMemDonorRepo() *memDonorRepo {
	return &memDonorRepo{items: map[int]*model.Donor{}}
}

func (r *memDonorRepo) Create(d *model.Donor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	d.ID = r.nextID
	d.CreatedAt = time.Now()
	stored := *d
	r.items[d.ID] = &stored
	return nil
}

func (r *memDonorRepo) GetByID(id int) (*model.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *memDonorRepo) GetByPhone(companyID int, phone string) (*model.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.items {
		if d.CompanyID == companyID && d.Phone == phone {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memDonorRepo) ListByIDs(companyID int, ids []int) ([]*model.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	donors := []*model.Donor{}
	for _, id := range ids {
		if d, ok := r.items[id]; ok && d.CompanyID == companyID {
			cp := *d
			donors = append(donors, &cp)
		}
	}
	return donors, nil
}

func (r *memDonorRepo) Search(companyID int, criteria model.DonorCriteria) ([]*model.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	donors := []*model.Donor{}
	for id := 1; id <= r.nextID; id++ {
		d, ok := r.items[id]
		if !ok || d.CompanyID != companyID {
			continue
		}
		if criteria.City != "" && !strings.Contains(strings.ToLower(d.City), strings.ToLower(criteria.City)) {
			continue
		}
		if criteria.State != "" && !strings.Contains(strings.ToLower(d.State), strings.ToLower(criteria.State)) {
			continue
		}
		if criteria.BloodType != "" && d.BloodType != criteria.BloodType {
			continue
		}
		age := d.Age(now)
		if criteria.MinAge > 0 && (age < 0 || age < criteria.MinAge) {
			continue
		}
		if criteria.MaxAge > 0 && (age < 0 || age > criteria.MaxAge) {
			continue
		}
		cp := *d
		donors = append(donors, &cp)
	}
	return donors, nil
}

type memTemplateRepo struct {
	items map[int]*model.MessageTemplate
}

func newMemTemplateRepo() *memTemplateRepo {
	return &memTemplateRepo{items: map[int]*model.MessageTemplate{}}
}

func (r *memTemplateRepo) put(t *model.MessageTemplate) {
	r.items[t.ID] = t
}

func (r *memTemplateRepo) GetByID(id int) (*model.MessageTemplate, error) {
	t, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

type memConversationRepo struct {
	mu    sync.Mutex
	calls int
	items map[string]*model.Conversation
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{items: map[string]*model.Conversation{}}
}

func (r *memConversationRepo) GetOrCreate(companyID, donorID int, campaignID *int) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	key := fmt.Sprintf("%d:%d", companyID, donorID)
	if conv, ok := r.items[key]; ok {
		if campaignID != nil {
			conv.CampaignID = campaignID
		}
		cp := *conv
		return &cp, nil
	}
	conv := &model.Conversation{
		ID:         len(r.items) + 1,
		CompanyID:  companyID,
		DonorID:    donorID,
		CampaignID: campaignID,
		CreatedAt:  time.Now(),
	}
	r.items[key] = conv
	cp := *conv
	return &cp, nil
}

// stubChannelChecker reports a fixed connection state.
type stubChannelChecker struct {
	connected bool
}

func (s stubChannelChecker) HasConnectedChannel(int) (bool, error) {
	return s.connected, nil
}

// fakeSender succeeds unless the destination phone is listed in fail.
// onSend, when set, observes the running count of successful sends.
type fakeSender struct {
	mu     sync.Mutex
	sent   []string
	texts  []string
	fail   map[string]bool
	onSend func(sent int)
}

func newFakeSender() *fakeSender {
	return &fakeSender{fail: map[string]bool{}}
}

func (s *fakeSender) Send(_ context.Context, to, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[to] {
		return fmt.Errorf("provider rejected %s", to)
	}
	s.sent = append(s.sent, to)
	s.texts = append(s.texts, text)
	if s.onSend != nil {
		s.onSend(len(s.sent))
	}
	return nil
}

func (s *fakeSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// timeNowMinusYears returns a birth date making someone exactly the
// given age (birthday just passed).
func timeNowMinusYears(years int) time.Time {
	return time.Now().AddDate(-years, 0, -1)
}

// stubKicker records which campaigns were kicked.
type stubKicker struct {
	mu    sync.Mutex
	kicks []int
}

func (k *stubKicker) Kick(campaignID int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.kicks = append(k.kicks, campaignID)
}

func (k *stubKicker) count() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.kicks)
}
