package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rnetagent/app/config"
	"rnetagent/app/usecase"
	"rnetagent/internal/domain/entity"
	"rnetagent/internal/infrastructure/metrics"
	"rnetagent/internal/infrastructure/settings"
)

// Panel event types pushed over the websocket.
const (
	EventGenerationStarted  = "generationStarted"
	EventGenerationComplete = "generationComplete"
	EventGenerationError    = "generationError"
)

// panelEvent is the envelope for every websocket message, in both
// directions.
type panelEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PanelHandler is the local HTTP surface the UI panel talks to: a REST
// route per command plus a websocket for progress events.
type PanelHandler struct {
	generator usecase.GenerationUsecase
	settings  *settings.Provider
	logger    *slog.Logger
	upgrader  websocket.Upgrader

	mu     sync.Mutex
	panels map[*websocket.Conn]struct{}

	reqDuration *prometheus.HistogramVec
	reqCount    *prometheus.CounterVec
	errCount    *prometheus.CounterVec
}

func NewPanelHandler(
	generator usecase.GenerationUsecase,
	settingsProvider *settings.Provider,
	logger *slog.Logger,
) *PanelHandler {

	reqDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	reqCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "path"},
	)

	errCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of HTTP request errors.",
		},
		[]string{"method", "path", "status"},
	)

	prometheus.MustRegister(reqDuration, reqCount, errCount)

	return &PanelHandler{
		generator: generator,
		settings:  settingsProvider,
		logger:    logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		panels:      make(map[*websocket.Conn]struct{}),
		reqDuration: reqDuration,
		reqCount:    reqCount,
		errCount:    errCount,
	}
}

func (h *PanelHandler) withMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
		method := r.Method

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		duration := time.Since(start).Seconds()
		statusStr := strconv.Itoa(rw.status)

		h.reqCount.WithLabelValues(method, path).Inc()
		h.reqDuration.WithLabelValues(method, path, statusStr).Observe(duration)

		if rw.status >= 400 {
			h.errCount.WithLabelValues(method, path, statusStr).Inc()
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *PanelHandler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/generate", h.withMetrics(h.handleGenerate)).Methods(http.MethodPost)
	api.HandleFunc("/health", h.withMetrics(h.handleHealth)).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.withMetrics(h.handleGetSettings)).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.withMetrics(h.handleUpdateSetting)).Methods(http.MethodPut)
	api.HandleFunc("/events", h.handleEvents).Methods(http.MethodGet)

	// Prometheus
	r.Handle("/metrics", promhttp.Handler())
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is what the panel renders on failure: headline plus next steps.
type errorBody struct {
	Error       string           `json:"error"`
	Kind        entity.ErrorKind `json:"kind"`
	Details     string           `json:"details,omitempty"`
	Suggestions []string         `json:"suggestions,omitempty"`
}

func writeClassified(w http.ResponseWriter, ce *entity.ClassifiedError) {
	writeJSON(w, statusForKind(ce.Kind), errorBody{
		Error:       ce.Message,
		Kind:        ce.Kind,
		Details:     ce.Details,
		Suggestions: ce.Suggestions,
	})
}

func statusForKind(kind entity.ErrorKind) int {
	switch kind {
	case entity.ErrorKindValidation:
		return http.StatusBadRequest
	case entity.ErrorKindNetwork, entity.ErrorKindAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// POST /api/v1/generate
func (h *PanelHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req entity.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ce := entity.NewValidationError("The generation request could not be parsed.",
			"Check the request body is valid JSON")
		writeClassified(w, ce)
		return
	}

	h.broadcast(EventGenerationStarted, map[string]string{
		"project_name": req.ProjectName,
	})

	result, err := h.generator.Generate(r.Context(), req)
	if err != nil {
		ce := entity.Classify(err, "code generation failed")
		h.broadcast(EventGenerationError, ce)
		writeClassified(w, ce)
		return
	}

	h.broadcast(EventGenerationComplete, result)
	writeJSON(w, http.StatusOK, result)
}

// GET /api/v1/health
func (h *PanelHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := h.generator.CheckBackend(r.Context())
	writeJSON(w, http.StatusOK, status)
}

// settingsView is the panel-facing shape of a configuration snapshot.
type settingsView struct {
	BackendURL       string `json:"backend_url"`
	BackendTimeoutMs int64  `json:"backend_timeout_ms"`
	AutoOpen         bool   `json:"auto_open_generated_file"`
	CreateFolder     bool   `json:"create_project_folder"`
	UITheme          string `json:"ui_theme"`
}

func viewOf(cfg config.Configuration) settingsView {
	return settingsView{
		BackendURL:       cfg.BackendURL,
		BackendTimeoutMs: cfg.BackendTimeout.Milliseconds(),
		AutoOpen:         cfg.AutoOpenGeneratedFile,
		CreateFolder:     cfg.CreateProjectFolder,
		UITheme:          string(cfg.UITheme),
	}
}

// GET /api/v1/settings
func (h *PanelHandler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(h.settings.Snapshot()))
}

type updateSettingReq struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	Scope string `json:"scope,omitempty"`
}

// PUT /api/v1/settings
//
// The URL prefix check lives here, not in the provider: it is the same
// guard the interactive configuration dialog applies before persisting.
func (h *PanelHandler) handleUpdateSetting(w http.ResponseWriter, r *http.Request) {
	var req updateSettingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeClassified(w, entity.NewValidationError("The settings update could not be parsed.",
			"Check the request body is valid JSON"))
		return
	}
	if req.Key == "" {
		writeClassified(w, entity.NewValidationError("A settings key is required.",
			"Provide the key to update, e.g. backend.url"))
		return
	}

	if strings.EqualFold(req.Key, settings.KeyBackendURL) {
		url, _ := req.Value.(string)
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			writeClassified(w, entity.NewValidationError(
				"The backend URL must start with http:// or https://.",
				"Enter the full URL, e.g. http://127.0.0.1:8000"))
			return
		}
	}

	scope := settings.Scope(req.Scope)
	if scope == "" {
		scope = settings.ScopeGlobal
	}
	if err := h.settings.Set(req.Key, req.Value, scope); err != nil {
		h.logger.Error("settings update failed", "key", req.Key, "err", err)
		writeClassified(w, entity.Classify(err, "failed to persist setting"))
		return
	}

	writeJSON(w, http.StatusOK, viewOf(h.settings.Snapshot()))
}

// GET /api/v1/events is the websocket for panel progress messages. Incoming
// generateCode messages run the same flow as POST /generate, with the
// outcome delivered as events.
func (h *PanelHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "err", err)
		return
	}

	h.addPanel(conn)
	defer h.removePanel(conn)

	for {
		var ev panelEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("panel connection dropped", "err", err)
			}
			return
		}

		switch ev.Type {
		case "generateCode":
			var req entity.GenerationRequest
			if err := json.Unmarshal(ev.Payload, &req); err != nil {
				h.broadcast(EventGenerationError, entity.NewValidationError(
					"The generation request could not be parsed.",
					"Check the generateCode payload is valid JSON"))
				continue
			}
			h.broadcast(EventGenerationStarted, map[string]string{
				"project_name": req.ProjectName,
			})
			result, err := h.generator.Generate(r.Context(), req)
			if err != nil {
				h.broadcast(EventGenerationError, entity.Classify(err, "code generation failed"))
				continue
			}
			h.broadcast(EventGenerationComplete, result)
		default:
			h.logger.Debug("ignoring unknown panel message", "type", ev.Type)
		}
	}
}

func (h *PanelHandler) addPanel(conn *websocket.Conn) {
	h.mu.Lock()
	h.panels[conn] = struct{}{}
	h.mu.Unlock()
	metrics.IncPanelConnections()
}

func (h *PanelHandler) removePanel(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.panels, conn)
	h.mu.Unlock()
	metrics.DecPanelConnections()
	_ = conn.Close()
}

func (h *PanelHandler) panelCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.panels)
}

// broadcast pushes an event to every connected panel, dropping connections
// that fail to accept the write.
func (h *PanelHandler) broadcast(eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("encode panel event failed", "type", eventType, "err", err)
		return
	}
	ev := panelEvent{Type: eventType, Payload: raw}

	h.mu.Lock()
	var dead []*websocket.Conn
	for conn := range h.panels {
		if err := conn.WriteJSON(ev); err != nil {
			dead = append(dead, conn)
		}
	}
	for _, conn := range dead {
		delete(h.panels, conn)
		_ = conn.Close()
	}
	h.mu.Unlock()

	for range dead {
		metrics.DecPanelConnections()
	}
}
