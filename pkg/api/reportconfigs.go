package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/zonewatch/zonereport/pkg/database/reportmeta"
	"github.com/zonewatch/zonereport/pkg/templates"
)

// ConfigRepository is the subset of config repository operations the API needs.
type ConfigRepository interface {
	GetAll() ([]reportmeta.ReportConfig, error)
	GetByID(id string) (*reportmeta.ReportConfig, error)
	Create(cfg *reportmeta.ReportConfig) error
	Update(cfg *reportmeta.ReportConfig) error
}

// ConfigDeleter removes a config along with its generated documents.
type ConfigDeleter interface {
	DeleteConfig(configID string) error
}

// ConfigHandler handles report configuration API endpoints
type ConfigHandler struct {
	repo      ConfigRepository
	deleter   ConfigDeleter
	templates *templates.Store
}

// NewConfigHandler creates a new report config handler
func NewConfigHandler(repo ConfigRepository, deleter ConfigDeleter, tpl *templates.Store) *ConfigHandler {
	return &ConfigHandler{repo: repo, deleter: deleter, templates: tpl}
}

// RegisterRoutes registers the report config API routes
func (h *ConfigHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/reportconfigs", h.handleConfigs)
	mux.HandleFunc("/api/reportconfigs/delete", h.handleDeleteConfig)
}

// configRequest is the request structure for creating/updating a report config
type configRequest struct {
	ID           string `json:"id,omitempty"`
	AccountID    string `json:"accountId"`
	AccountName  string `json:"accountName"`
	ZoneID       string `json:"zoneId"`
	ZoneName     string `json:"zoneName"`
	Subdomain    string `json:"subdomain,omitempty"`
	TargetDate   string `json:"targetDate"` // YYYY-MM-DD
	IntervalDays int    `json:"intervalDays"`
	TemplateID   string `json:"templateId,omitempty"`
}

// configResponse is the response structure for report config information
type configResponse struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"accountId"`
	AccountName  string    `json:"accountName"`
	ZoneID       string    `json:"zoneId"`
	ZoneName     string    `json:"zoneName"`
	Subdomain    string    `json:"subdomain,omitempty"`
	TargetDate   string    `json:"targetDate"`
	IntervalDays int       `json:"intervalDays"`
	TemplateID   string    `json:"templateId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func convertConfigToResponse(cfg *reportmeta.ReportConfig) configResponse {
	return configResponse{
		ID:           cfg.ID,
		AccountID:    cfg.AccountID,
		AccountName:  cfg.AccountName,
		ZoneID:       cfg.ZoneID,
		ZoneName:     cfg.ZoneName,
		Subdomain:    cfg.Subdomain,
		TargetDate:   cfg.TargetDate.Format("2006-01-02"),
		IntervalDays: cfg.IntervalDays,
		TemplateID:   cfg.TemplateID,
		CreatedAt:    cfg.CreatedAt,
		UpdatedAt:    cfg.UpdatedAt,
	}
}

// handleConfigs handles GET and POST requests for report config management
func (h *ConfigHandler) handleConfigs(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		http.Error(w, "Report config management is not available: database not initialized", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getConfigs(w, r)
	case http.MethodPost:
		h.createOrUpdateConfig(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// getConfigs returns all report configs or a specific config
func (h *ConfigHandler) getConfigs(w http.ResponseWriter, r *http.Request) {
	configID := r.URL.Query().Get("id")
	if configID != "" {
		cfg, err := h.repo.GetByID(configID)
		if err != nil {
			http.Error(w, "Report config not found: "+err.Error(), http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(convertConfigToResponse(cfg))
		return
	}

	configs, err := h.repo.GetAll()
	if err != nil {
		http.Error(w, "Failed to retrieve report configs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	response := make([]configResponse, 0, len(configs))
	for i := range configs {
		response = append(response, convertConfigToResponse(&configs[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// createOrUpdateConfig handles creating or updating a report config
func (h *ConfigHandler) createOrUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.ZoneID == "" || req.ZoneName == "" || req.TargetDate == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}
	if req.IntervalDays <= 0 {
		http.Error(w, "Interval days must be a positive integer", http.StatusBadRequest)
		return
	}

	targetDate, err := time.Parse("2006-01-02", req.TargetDate)
	if err != nil {
		http.Error(w, "Invalid target date, expected YYYY-MM-DD: "+err.Error(), http.StatusBadRequest)
		return
	}

	templateID := req.TemplateID
	if templateID == "" {
		templateID = templates.DefaultID
	}
	if h.templates != nil {
		exists, err := h.templates.Exists(templateID)
		if err != nil {
			http.Error(w, "Failed to read template registry: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if !exists {
			http.Error(w, "Template not found: "+templateID, http.StatusBadRequest)
			return
		}
	}

	cfg := reportmeta.ReportConfig{
		AccountID:    req.AccountID,
		AccountName:  req.AccountName,
		ZoneID:       req.ZoneID,
		ZoneName:     req.ZoneName,
		Subdomain:    req.Subdomain,
		TargetDate:   targetDate,
		IntervalDays: req.IntervalDays,
		TemplateID:   templateID,
	}

	if req.ID != "" {
		existing, err := h.repo.GetByID(req.ID)
		if err != nil {
			http.Error(w, "Report config not found: "+err.Error(), http.StatusNotFound)
			return
		}
		cfg.ID = req.ID
		cfg.CreatedAt = existing.CreatedAt
		err = h.repo.Update(&cfg)
		if err != nil {
			http.Error(w, "Failed to update report config: "+err.Error(), http.StatusInternalServerError)
			return
		}
	} else {
		if err := h.repo.Create(&cfg); err != nil {
			http.Error(w, "Failed to create report config: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(convertConfigToResponse(&cfg))
}

// handleDeleteConfig handles deleting a report config and its files
func (h *ConfigHandler) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil || h.deleter == nil {
		http.Error(w, "Report config management is not available: database not initialized", http.StatusServiceUnavailable)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	configID := r.URL.Query().Get("id")
	if configID == "" {
		http.Error(w, "Report config ID is required", http.StatusBadRequest)
		return
	}

	if err := h.deleter.DeleteConfig(configID); err != nil {
		if errors.Is(err, reportmeta.ErrConfigNotFound) {
			http.Error(w, "Report config not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete report config: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "success",
		"message": "Report config and its files deleted successfully",
	})
}
