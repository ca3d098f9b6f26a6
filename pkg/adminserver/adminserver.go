// Package adminserver provides the HTTP server for administering ZoneReport.
package adminserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zonewatch/zonereport/pkg/api"
	"github.com/zonewatch/zonereport/pkg/config"
	"github.com/zonewatch/zonereport/pkg/reports"
	"github.com/zonewatch/zonereport/pkg/scheduler"
	"github.com/zonewatch/zonereport/pkg/templates"
)

var (
	taskLock      sync.Mutex
	isTaskRunning bool
)

// Server represents the admin HTTP server
type Server struct {
	httpServer *http.Server
	scheduler  *scheduler.Scheduler
	manager    *reports.Manager
	templates  *templates.Store
	configRepo api.ConfigRepository
}

// NewServer creates a new admin server instance
func NewServer(manager *reports.Manager, sched *scheduler.Scheduler,
	tpl *templates.Store, configRepo api.ConfigRepository) *Server {
	return &Server{
		scheduler:  sched,
		manager:    manager,
		templates:  tpl,
		configRepo: configRepo,
	}
}

// Start starts the admin HTTP server in the background. Shutdown goes
// through Stop.
func (s *Server) Start() {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", config.CFG.Metrics.Port),
		Handler:      logRequestMiddleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		log.Printf("Admin server running on port %s", config.CFG.Metrics.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Standard endpoints
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.healthCheckHandler)
	mux.HandleFunc("/api/reports/run", s.runReportsHandler)

	// Template, config, and report management API
	api.NewTemplateHandler(s.templates).RegisterRoutes(mux)
	api.NewConfigHandler(s.configRepo, s.manager, s.templates).RegisterRoutes(mux)
	api.NewReportHandler(s.manager).RegisterRoutes(mux)
}

// healthCheckHandler returns a simple health status
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("Error encoding health check response: %v", err)
	}
}

// runReportsHandler triggers a due-report check outside the schedule. At most
// one check runs at a time; a second trigger while one is running is refused.
func (s *Server) runReportsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.scheduler == nil {
		http.Error(w, "Scheduler is not available", http.StatusServiceUnavailable)
		return
	}

	if !triggerRun(s) {
		http.Error(w, "A report run is already in progress", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "success",
		"message": "Due-report check started",
	})
}

// triggerRun ensures only one due-report check runs at a time
func triggerRun(s *Server) bool {
	taskLock.Lock()
	defer taskLock.Unlock()

	if isTaskRunning {
		return false
	}
	isTaskRunning = true

	go func() {
		defer func() {
			taskLock.Lock()
			isTaskRunning = false
			taskLock.Unlock()
		}()
		s.scheduler.RunOnce(context.Background())
	}()

	return true
}

func logRequestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("HTTP %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
