package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aryan23f3001987/Parkinson-Project/internal/audio"
	"github.com/aryan23f3001987/Parkinson-Project/internal/config"
	"github.com/aryan23f3001987/Parkinson-Project/internal/features"
	"github.com/aryan23f3001987/Parkinson-Project/internal/history"
	"github.com/aryan23f3001987/Parkinson-Project/internal/metrics"
	"github.com/aryan23f3001987/Parkinson-Project/internal/pipeline"
)

const (
	serviceName    = "parkinson-assessment"
	serviceVersion = "1.0.0"
)

// Assessor runs one assessment
type Assessor interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// HistoryReader is the read side of the assessment history
type HistoryReader interface {
	Get(ctx context.Context, id string) (*history.Record, error)
	List(ctx context.Context, limit int) ([]*history.Record, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// StatsProvider reports feature extractor statistics
type StatsProvider interface {
	GetStats() features.ClientStats
}

// Dependencies are the collaborators of the HTTP server. History, Stats and
// Gatherer are optional.
type Dependencies struct {
	Assessor Assessor
	Uploads  *audio.UploadDir
	History  HistoryReader
	Stats    StatsProvider
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// HTTPServer provides the assessment API and monitoring endpoints
type HTTPServer struct {
	server *http.Server
	logger *slog.Logger
	config *config.Config
	deps   Dependencies

	startTime time.Time
}

// analyzeResponse is the body returned by POST /analyze
type analyzeResponse struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"`
	Probability float64  `json:"probability"`
	MotorUPDRS  float64  `json:"motor_updrs"`
	TotalUPDRS  float64  `json:"total_updrs"`
	TestTime    float64  `json:"test_time"`
	Warnings    []string `json:"warnings"`
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg *config.Config, logger *slog.Logger, deps Dependencies) *HTTPServer {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	h := &HTTPServer{
		logger:    logger,
		config:    cfg,
		deps:      deps,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:      h.withCORS(mux),
		ReadTimeout:  cfg.HTTP.GetReadTimeoutDuration(),
		WriteTimeout: cfg.HTTP.GetWriteTimeoutDuration(),
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// Handler returns the root handler, CORS included
func (h *HTTPServer) Handler() http.Handler {
	return h.server.Handler
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Assessment endpoint
	mux.HandleFunc("/analyze", h.withMetrics("/analyze", h.handleAnalyze))

	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// History endpoints
	mux.HandleFunc("/assessments", h.withMetrics("/assessments", h.handleAssessments))
	mux.HandleFunc("/assessments/", h.withMetrics("/assessments/{id}", h.handleAssessmentDetail))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.HandlerFor(h.deps.Gatherer, promhttp.HandlerOpts{}))

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withCORS allows browser recorders served from other origins to call the API
func (h *HTTPServer) withCORS(next http.Handler) http.Handler {
	origin := h.config.HTTP.AllowedOrigin
	if origin == "" {
		origin = "*"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		if h.deps.Metrics == nil {
			return
		}

		duration := time.Since(startTime).Seconds()
		statusCode := strconv.Itoa(ww.statusCode)

		h.deps.Metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		// Record error if status code indicates an error
		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.deps.Metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start binds the listen address and serves in the background
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.server.Addr, err)
	}

	go func() {
		if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleAnalyze implements POST /analyze
func (h *HTTPServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.HTTP.MaxUploadBytes())
	if err := r.ParseMultipartForm(h.config.HTTP.MaxUploadBytes()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "audio file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "no audio file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil || header.Filename == "" {
		writeError(w, http.StatusBadRequest, "no audio file provided")
		return
	}
	defer file.Close()

	req, err := h.parseSubject(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	path, err := h.deps.Uploads.Save(header.Filename, file)
	if err != nil {
		h.logger.Error("Failed to save upload", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to save audio file")
		return
	}
	defer func() {
		if h.config.Audio.KeepUploads {
			h.deps.Uploads.Release(path)
			return
		}
		if err := h.deps.Uploads.Remove(path); err != nil {
			h.logger.Warn("Failed to remove upload", slog.Any("error", err))
		}
	}()
	req.AudioPath = path

	h.logger.Info("Received recording",
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size),
		slog.Float64("age", req.Age),
		slog.Float64("sex", req.Sex),
	)

	result, err := h.deps.Assessor.Run(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrMissingInput) || errors.Is(err, pipeline.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		h.logger.Error("Assessment failed", slog.Any("error", err))
		writeError(w, status, err.Error())
		return
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	writeJSON(w, http.StatusOK, analyzeResponse{
		ID:          result.ID,
		Status:      string(result.Verdict.Status),
		Probability: result.Probability,
		MotorUPDRS:  result.Verdict.MotorUPDRS,
		TotalUPDRS:  result.Verdict.TotalUPDRS,
		TestTime:    result.Subject.TestTime,
		Warnings:    result.Warnings,
	})
}

// parseSubject reads age, sex and test_time from the form, applying defaults
func (h *HTTPServer) parseSubject(r *http.Request) (pipeline.Request, error) {
	var req pipeline.Request

	age := h.config.Subject.DefaultAge
	if v := strings.TrimSpace(r.FormValue("age")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			return req, fmt.Errorf("invalid age '%s'", v)
		}
		age = parsed
	}
	req.Age = float64(age)

	sex := h.config.Subject.DefaultSex
	if v := strings.TrimSpace(r.FormValue("sex")); v != "" {
		sex = v
	}
	req.Sex = features.ParseSex(sex)

	if v := strings.TrimSpace(r.FormValue("test_time")); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 {
			return req, fmt.Errorf("invalid test_time '%s'", v)
		}
		req.TestTime = &parsed
	}

	return req, nil
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	components := map[string]interface{}{
		"history": map[string]interface{}{
			"enabled": h.deps.History != nil,
		},
		"notify": map[string]interface{}{
			"enabled": h.config.Notify.Enabled,
		},
	}
	if h.deps.Stats != nil {
		stats := h.deps.Stats.GetStats()
		components["extractor"] = map[string]interface{}{
			"total_requests":  stats.TotalRequests,
			"success_rate":    stats.SuccessRate,
			"active_requests": stats.ActiveRequests,
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    serviceName,
			"version": serviceVersion,
		},
		"components": components,
	})
}

// handleAssessments implements GET /assessments?limit=N
func (h *HTTPServer) handleAssessments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history is disabled")
		return
	}

	limit := history.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit '%s'", v))
			return
		}
		limit = parsed
	}

	records, err := h.deps.History.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list assessments", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list assessments")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":       len(records),
		"timestamp":   time.Now().UTC(),
		"assessments": records,
	})
}

// handleAssessmentDetail implements GET /assessments/{id}
func (h *HTTPServer) handleAssessmentDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history is disabled")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/assessments/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "assessment id required")
		return
	}

	record, err := h.deps.History.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, "assessment not found")
			return
		}
		h.logger.Error("Failed to load assessment", slog.String("id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to load assessment")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"http": map[string]interface{}{
			"port":          h.config.HTTP.Port,
			"address":       h.config.HTTP.Address,
			"max_upload_mb": h.config.HTTP.MaxUploadMB,
		},
		"audio": map[string]interface{}{
			"upload_dir":          h.config.Audio.UploadDir,
			"keep_uploads":        h.config.Audio.KeepUploads,
			"default_test_time":   h.config.Audio.DefaultTestTime,
			"convert_sample_rate": h.config.Audio.ConvertSampleRate,
		},
		"extractor": map[string]interface{}{
			"endpoint":       h.config.Extractor.Endpoint,
			"timeout":        h.config.Extractor.Timeout,
			"max_retries":    h.config.Extractor.MaxRetries,
			"max_concurrent": h.config.Extractor.MaxConcurrent,
			"pitch_floor":    h.config.Extractor.PitchFloor,
			"pitch_ceiling":  h.config.Extractor.PitchCeiling,
			// API key is omitted
		},
		"models":  h.config.Models,
		"scalers": h.config.Scalers,
		"subject": map[string]interface{}{
			"default_age": h.config.Subject.DefaultAge,
			"default_sex": h.config.Subject.DefaultSex,
		},
		"history": map[string]interface{}{
			"enabled": h.config.History.Enabled,
		},
		"notify": map[string]interface{}{
			"enabled": h.config.Notify.Enabled,
			"broker":  h.config.Notify.Broker,
			"topic":   h.config.Notify.Topic,
			"qos":     h.config.Notify.QoS,
			// Credentials are omitted
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	writeJSON(w, http.StatusOK, sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
	}

	if h.deps.Stats != nil {
		stats["extractor"] = h.deps.Stats.GetStats()
	}

	if h.deps.History != nil {
		counts, err := h.deps.History.CountByStatus(r.Context())
		if err != nil {
			h.logger.Warn("Failed to count assessments", slog.Any("error", err))
		} else {
			stats["assessments"] = counts
		}
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleRoot implements the / endpoint with API documentation. It also clears
// leftover uploads.
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if h.deps.Uploads != nil {
		deleted, err := h.deps.Uploads.Clean()
		if err != nil {
			h.logger.Warn("Failed to clean upload directory", slog.Any("error", err))
		} else if deleted > 0 {
			h.logger.Info("Cleaned upload directory", slog.Int("deleted", deleted))
		}
	}

	apiDoc := map[string]interface{}{
		"service": "Parkinson Voice Assessment Service",
		"version": serviceVersion,
		"endpoints": map[string]interface{}{
			"GET /":                 "API documentation",
			"POST /analyze":         "Assess a voice recording (multipart: audio, age, sex, test_time)",
			"GET /health":           "Service health check",
			"GET /assessments":      "List recent assessments",
			"GET /assessments/{id}": "Get one stored assessment",
			"GET /config":           "Get service configuration",
			"GET /stats":            "Get service statistics",
			"GET /metrics":          "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, apiDoc)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
