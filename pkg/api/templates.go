// Package api exposes the admin HTTP endpoints for templates, report
// configurations, and report operations.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zonewatch/zonereport/pkg/templates"
)

// TemplateHandler handles template management API endpoints
type TemplateHandler struct {
	store *templates.Store
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(store *templates.Store) *TemplateHandler {
	return &TemplateHandler{store: store}
}

// RegisterRoutes registers the template API routes
func (h *TemplateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/templates", h.handleTemplates)
	mux.HandleFunc("/api/templates/delete", h.handleDeleteTemplate)
}

// templateRequest is the request structure for template operations
type templateRequest struct {
	ID            string  `json:"id,omitempty"`
	Name          string  `json:"name,omitempty"`
	SourceID      string  `json:"sourceId,omitempty"`
	SubdomainBody *string `json:"subdomainBody,omitempty"`
	DomainBody    *string `json:"domainBody,omitempty"`
}

// templateContentResponse is the response structure for template content
type templateContentResponse struct {
	ID            string `json:"id"`
	SubdomainBody string `json:"subdomainBody"`
	DomainBody    string `json:"domainBody"`
}

// handleTemplates handles GET and POST requests for template management
func (h *TemplateHandler) handleTemplates(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "Template management is not available: store not initialized", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getTemplates(w, r)
	case http.MethodPost:
		h.createOrUpdateTemplate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// getTemplates returns the template registry, or one template's content when
// an id is given
func (h *TemplateHandler) getTemplates(w http.ResponseWriter, r *http.Request) {
	templateID := r.URL.Query().Get("id")
	if templateID != "" {
		exists, err := h.store.Exists(templateID)
		if err != nil {
			http.Error(w, "Failed to read template registry: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if !exists {
			http.Error(w, "Template not found", http.StatusNotFound)
			return
		}

		content := h.store.Get(templateID)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(templateContentResponse{
			ID:            templateID,
			SubdomainBody: content.SubdomainBody,
			DomainBody:    content.DomainBody,
		})
		return
	}

	entries, err := h.store.ListRegistry()
	if err != nil {
		http.Error(w, "Failed to list templates: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// createOrUpdateTemplate creates a template, renames one, or updates content
func (h *TemplateHandler) createOrUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	// No ID means a new template duplicated from the source
	if req.ID == "" {
		if req.Name == "" {
			http.Error(w, "Template name is required", http.StatusBadRequest)
			return
		}

		sourceID := req.SourceID
		if sourceID == "" {
			sourceID = templates.DefaultID
		}

		entry, err := h.store.Create(req.Name, sourceID)
		if err != nil {
			http.Error(w, "Failed to create template: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entry)
		return
	}

	exists, err := h.store.Exists(req.ID)
	if err != nil {
		http.Error(w, "Failed to read template registry: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "Template not found", http.StatusNotFound)
		return
	}

	if req.Name != "" {
		if err := h.store.Rename(req.ID, req.Name); err != nil {
			http.Error(w, "Failed to rename template: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	if req.SubdomainBody != nil || req.DomainBody != nil {
		content := h.store.Get(req.ID)
		if req.SubdomainBody != nil {
			content.SubdomainBody = *req.SubdomainBody
		}
		if req.DomainBody != nil {
			content.DomainBody = *req.DomainBody
		}
		if err := h.store.Put(req.ID, content); err != nil {
			http.Error(w, "Failed to save template content: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "success",
		"message": "Template updated successfully",
	})
}

// handleDeleteTemplate handles deleting a template
func (h *TemplateHandler) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "Template management is not available: store not initialized", http.StatusServiceUnavailable)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	templateID := r.URL.Query().Get("id")
	if templateID == "" {
		http.Error(w, "Template ID is required", http.StatusBadRequest)
		return
	}

	err := h.store.Delete(templateID)
	if err != nil {
		switch {
		case errors.Is(err, templates.ErrForbidden):
			http.Error(w, "The default template cannot be deleted", http.StatusForbidden)
		case errors.Is(err, templates.ErrNotFound):
			http.Error(w, "Template not found", http.StatusNotFound)
		default:
			http.Error(w, "Failed to delete template: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "success",
		"message": "Template deleted successfully",
	})
}
