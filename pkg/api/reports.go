package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zonewatch/zonereport/pkg/convert"
	"github.com/zonewatch/zonereport/pkg/database/reportmeta"
	"github.com/zonewatch/zonereport/pkg/export"
)

// ReportManager is the subset of report manager operations the API needs.
type ReportManager interface {
	GenerateOnDemand(ctx context.Context, configID string, reportDate time.Time) (*reportmeta.ReportFile, error)
	ExportMetrics(ctx context.Context, configID string, reportDate time.Time) ([]byte, error)
	ListFiles(configID string) ([]reportmeta.ReportFile, error)
	ReadDocument(fileName string) ([]byte, error)
}

// ReportHandler handles report generation and file API endpoints
type ReportHandler struct {
	manager ReportManager
}

// NewReportHandler creates a new report handler
func NewReportHandler(manager ReportManager) *ReportHandler {
	return &ReportHandler{manager: manager}
}

// RegisterRoutes registers the report API routes
func (h *ReportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/reports/generate", h.handleGenerate)
	mux.HandleFunc("/api/reports/files", h.handleFiles)
	mux.HandleFunc("/api/reports/download", h.handleDownload)
	mux.HandleFunc("/api/reports/export", h.handleExport)
}

// generateRequest is the request structure for on-demand generation
type generateRequest struct {
	ConfigID   string `json:"configId"`
	ReportDate string `json:"reportDate"` // YYYY-MM-DD
}

// fileResponse is the response structure for report file information
type fileResponse struct {
	ID         string    `json:"id"`
	ConfigID   string    `json:"configId"`
	ReportDate string    `json:"reportDate"`
	FileName   string    `json:"fileName"`
	CreatedAt  time.Time `json:"createdAt"`
}

// handleGenerate triggers one report outside the schedule
func (h *ReportHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil {
		http.Error(w, "Report generation is not available: manager not initialized", http.StatusServiceUnavailable)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ConfigID == "" || req.ReportDate == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	reportDate, err := time.Parse("2006-01-02", req.ReportDate)
	if err != nil {
		http.Error(w, "Invalid report date, expected YYYY-MM-DD: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, err := h.manager.GenerateOnDemand(r.Context(), req.ConfigID, reportDate)
	if err != nil {
		if errors.Is(err, reportmeta.ErrConfigNotFound) {
			http.Error(w, "Report config not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to generate report: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(convertFileToResponse(file))
}

// handleFiles lists the generated files of a config
func (h *ReportHandler) handleFiles(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil {
		http.Error(w, "Report generation is not available: manager not initialized", http.StatusServiceUnavailable)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	configID := r.URL.Query().Get("configId")
	if configID == "" {
		http.Error(w, "Report config ID is required", http.StatusBadRequest)
		return
	}

	files, err := h.manager.ListFiles(configID)
	if err != nil {
		if errors.Is(err, reportmeta.ErrConfigNotFound) {
			http.Error(w, "Report config not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to list report files: "+err.Error(), http.StatusInternalServerError)
		return
	}

	response := make([]fileResponse, 0, len(files))
	for i := range files {
		response = append(response, convertFileToResponse(&files[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleDownload serves one generated document
func (h *ReportHandler) handleDownload(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil {
		http.Error(w, "Report generation is not available: manager not initialized", http.StatusServiceUnavailable)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fileName := r.URL.Query().Get("file")
	if fileName == "" {
		http.Error(w, "File name is required", http.StatusBadRequest)
		return
	}

	data, err := h.manager.ReadDocument(fileName)
	if err != nil {
		http.Error(w, "Report file not found: "+err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", convert.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Write(data)
}

// handleExport serves one report window as an xlsx workbook
func (h *ReportHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil {
		http.Error(w, "Report generation is not available: manager not initialized", http.StatusServiceUnavailable)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	configID := r.URL.Query().Get("configId")
	dateParam := r.URL.Query().Get("reportDate")
	if configID == "" || dateParam == "" {
		http.Error(w, "Report config ID and report date are required", http.StatusBadRequest)
		return
	}

	reportDate, err := time.Parse("2006-01-02", dateParam)
	if err != nil {
		http.Error(w, "Invalid report date, expected YYYY-MM-DD: "+err.Error(), http.StatusBadRequest)
		return
	}

	data, err := h.manager.ExportMetrics(r.Context(), configID, reportDate)
	if err != nil {
		if errors.Is(err, reportmeta.ErrConfigNotFound) {
			http.Error(w, "Report config not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to export metrics: "+err.Error(), http.StatusInternalServerError)
		return
	}

	fileName := fmt.Sprintf("metrics-%s-%s.xlsx", configID, dateParam)
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Write(data)
}

func convertFileToResponse(f *reportmeta.ReportFile) fileResponse {
	return fileResponse{
		ID:         f.ID,
		ConfigID:   f.ConfigID,
		ReportDate: f.ReportDate.Format("2006-01-02"),
		FileName:   f.FileName,
		CreatedAt:  f.CreatedAt,
	}
}
