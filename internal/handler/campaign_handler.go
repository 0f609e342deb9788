package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/cadrimiranda/rubia-sub000/internal/errors"
	"github.com/cadrimiranda/rubia-sub000/internal/model"
	"github.com/cadrimiranda/rubia-sub000/internal/service"
)

// CampaignHandler holds the dependencies for campaign-related HTTP handlers.
type CampaignHandler struct {
	Campaigns  *service.CampaignService
	Contacts   *service.ContactService
	Importer   *service.AudienceImporter
	Dispatcher *service.Dispatcher
}

// Routes mounts every campaign-scoped route.
func (h *CampaignHandler) Routes(r chi.Router) {
	r.Post("/campaigns", h.Create)
	r.Get("/campaigns", h.List)
	r.Get("/campaigns/{id}", h.Get)
	r.Put("/campaigns/{id}", h.Update)
	r.Delete("/campaigns/{id}", h.Delete)

	r.Post("/campaigns/{id}/start", h.Start)
	r.Post("/campaigns/{id}/pause", h.Pause)
	r.Post("/campaigns/{id}/resume", h.Resume)
	r.Post("/campaigns/{id}/stop", h.Stop)
	r.Get("/campaigns/{id}/validate", h.Validate)

	r.Get("/campaigns/{id}/stats", h.Stats)
	r.Get("/campaigns/{id}/preview", h.Preview)
	r.Post("/campaigns/{id}/personalized-preview", h.PersonalizedPreview)
	r.Post("/campaigns/{id}/retry-all", h.RetryAll)

	r.Post("/campaigns/{id}/contacts", h.AddContact)
	r.Get("/campaigns/{id}/contacts", h.ListContacts)
	r.Post("/campaigns/{id}/contacts/import", h.ImportCSV)
	r.Post("/campaigns/{id}/contacts/import-ids", h.ImportIDs)
	r.Post("/campaigns/{id}/contacts/import-criteria", h.ImportCriteria)
}

func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CompanyID   int     `json:"company_id"`
		Name        string  `json:"name"`
		TemplateID  *int    `json:"template_id"`
		ScheduledAt *string `json:"scheduled_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := h.Campaigns.CreateCampaign(body.CompanyID, body.Name, body.TemplateID, body.ScheduledAt)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, campaign)
}

func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID, _ := strconv.Atoi(r.URL.Query().Get("company_id"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := model.CampaignStatus(r.URL.Query().Get("status"))

	campaigns, pagination, err := h.Campaigns.ListCampaigns(companyID, page, pageSize, status)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	details, err := h.Campaigns.GetCampaignWithStats(id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, details)
}

func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		Name        string  `json:"name"`
		TemplateID  *int    `json:"template_id"`
		ScheduledAt *string `json:"scheduled_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := h.Campaigns.UpdateCampaign(id, body.Name, body.TemplateID, body.ScheduledAt)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, campaign)
}

func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Campaigns.DeleteCampaign)
}

func (h *CampaignHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Campaigns.Start)
}

func (h *CampaignHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Campaigns.Pause)
}

func (h *CampaignHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Campaigns.Resume)
}

func (h *CampaignHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Campaigns.Stop)
}

func (h *CampaignHandler) lifecycle(w http.ResponseWriter, r *http.Request, op func(int) error) {
	id, err := urlID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	if err := op(id); err != nil {
		respondError(w, err)
		return
	}

	campaign, err := h.Campaigns.GetCampaign(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, campaign)
}

func (h *CampaignHandler) Validate(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	if err := h.Campaigns.Validate(id); err != nil {
		var v *appErrors.ValidationError
		if errors.As(err, &v) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"valid":    false,
				"problems": v.Problems,
			})
			return
		}
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (h *CampaignHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	stats, err := h.Contacts.Stats(id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (h *CampaignHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	previews, err := h.Campaigns.Preview(id, limit)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"data": previews})
}

func (h *CampaignHandler) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		DonorID          int     `json:"donor_id"`
		OverrideTemplate *string `json:"override_template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	rendered, err := h.Campaigns.RenderPreview(id, body.DonorID, body.OverrideTemplate)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"rendered_message": rendered,
		"donor_id":         body.DonorID,
	})
}

func (h *CampaignHandler) RetryAll(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	retried, err := h.Dispatcher.RetryAll(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"retried": retried})
}

func (h *CampaignHandler) AddContact(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		DonorID int `json:"donor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	ct, err := h.Contacts.Add(id, body.DonorID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, ct)
}

func (h *CampaignHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := model.ContactStatus(r.URL.Query().Get("status"))

	contacts, pagination, err := h.Contacts.List(id, page, pageSize, status)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":       contacts,
		"pagination": pagination,
	})
}

// ImportCSV accepts either a multipart upload under "file" or a raw CSV
// request body.
func (h *CampaignHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	body := r.Body
	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()
		body = file
	}

	result, err := h.Importer.ImportCSV(id, body)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *CampaignHandler) ImportIDs(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var body struct {
		DonorIDs []int `json:"donor_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	result, err := h.Importer.ImportIDs(id, body.DonorIDs)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *CampaignHandler) ImportCriteria(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var criteria model.DonorCriteria
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	result, err := h.Importer.ImportByCriteria(id, criteria)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
