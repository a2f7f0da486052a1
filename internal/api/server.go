package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/stride.report/internal/config"
	"github.com/banshee-data/stride.report/internal/db"
	"github.com/banshee-data/stride.report/internal/gait"
	"github.com/banshee-data/stride.report/internal/gait/interpret"
	"github.com/banshee-data/stride.report/internal/gait/model"
	"github.com/banshee-data/stride.report/internal/httputil"
	"github.com/banshee-data/stride.report/internal/monitoring"
	"github.com/banshee-data/stride.report/internal/posetrack"
	"github.com/banshee-data/stride.report/internal/report"
	"github.com/banshee-data/stride.report/internal/security"
	"github.com/banshee-data/stride.report/internal/timeutil"
)

var logf = monitoring.Component("API")

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// maxUploadBytes caps the pose track accepted by POST /api/runs.
const maxUploadBytes = 32 << 20

// ReplayModel describes the estimator behind uploaded and CLI-replayed tracks.
var ReplayModel = model.ModelInfo{Name: "posetrack", Runtime: "replay"}

type Server struct {
	db    *db.DB
	cfg   *config.TuningConfig
	clock timeutil.Clock
}

// NewServer serves the runs stored in database. A nil cfg analyses uploads
// with the default tuning.
func NewServer(database *db.DB, cfg *config.TuningConfig) *Server {
	if cfg == nil {
		cfg = config.DefaultTuningConfig()
	}
	return &Server{
		db:    database,
		cfg:   cfg,
		clock: timeutil.RealClock{},
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the API routes. Debug routes are attached separately
// with db.AttachAdminRoutes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/", s.handleRunByID)
	mux.HandleFunc("/api/config", s.showConfig)
	return mux
}

// RunView is a stored run with its graded interpretation.
type RunView struct {
	*db.Run
	Assessments []interpret.Contact    `json:"assessments,omitempty"`
	Flags       []interpret.Assessment `json:"flags,omitempty"`
	Advice      []string               `json:"advice,omitempty"`
}

func newRunView(run *db.Run) RunView {
	resp := RunView{Run: run}
	if run.Result == nil {
		return resp
	}
	for _, m := range run.Result.Contacts.All {
		resp.Assessments = append(resp.Assessments, interpret.AssessContact(m))
	}
	resp.Flags = interpret.Flags(run.Result.Summary)
	resp.Advice = interpret.Advice(run.Result.Summary)
	return resp
}

// handleRuns lists runs and analyses uploaded pose tracks.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listRuns(w, r)
	case http.MethodPost:
		s.createRun(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.WriteJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.db.ListRuns(r.Context(), limit)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve runs: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, runs)
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	track, err := posetrack.Decode(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	track.Name = security.SanitizeFilename(track.Name)

	out, err := s.analyzeTrack(r.Context(), track)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Analysis failed: %v", err))
		return
	}
	if err := s.db.SaveOutcome(r.Context(), out, track.Name, s.clock.Now().UTC()); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save run: %v", err))
		return
	}

	run, err := s.db.GetRun(r.Context(), out.RunID)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load run: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, newRunView(run))
}

// analyzeTrack replays track through a fresh analyzer, so uploads never
// contend for the same source.
func (s *Server) analyzeTrack(ctx context.Context, track *posetrack.Track) (*gait.Outcome, error) {
	replay := posetrack.NewReplay(track, s.clock)
	a := gait.NewAnalyzer(s.cfg, replay.Estimator(), ReplayModel)
	a.SetClock(s.clock)
	return a.Analyze(ctx, replay)
}

// handleRunByID serves /api/runs/{id} and its chart and plot sub-resources.
func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/runs/"), "/")
	runID := strings.TrimSpace(parts[0])
	if runID == "" {
		httputil.WriteJSONError(w, http.StatusBadRequest, "run id is required")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.getRun(w, r, runID)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		s.deleteRun(w, r, runID)
	case len(parts) == 2 && parts[1] == "chart" && r.Method == http.MethodGet:
		s.showChart(w, r, runID)
	case len(parts) == 2 && parts[1] == "plot.png" && r.Method == http.MethodGet:
		s.showPlot(w, r, runID)
	case len(parts) == 1 || (len(parts) == 2 && (parts[1] == "chart" || parts[1] == "plot.png")):
		httputil.MethodNotAllowed(w)
	default:
		httputil.WriteJSONError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := s.db.GetRun(r.Context(), runID)
	if errors.Is(err, db.ErrNotFound) {
		httputil.WriteJSONError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve run: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newRunView(run))
}

func (s *Server) deleteRun(w http.ResponseWriter, r *http.Request, runID string) {
	err := s.db.DeleteRun(r.Context(), runID)
	if errors.Is(err, db.ErrNotFound) {
		httputil.WriteJSONError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to delete run: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadSeries rebuilds the chart series of a stored run.
func (s *Server) loadSeries(ctx context.Context, runID string) (*report.Series, error) {
	run, err := s.db.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	samples, err := s.db.HeelSamples(ctx, runID)
	if err != nil {
		return nil, err
	}
	contacts, err := s.db.ContactMetrics(ctx, runID)
	if err != nil {
		return nil, err
	}

	series := &report.Series{
		RunID:     run.ID,
		Source:    run.Source,
		T:         make([]float64, len(samples)),
		LeftHeel:  make([]float64, len(samples)),
		RightHeel: make([]float64, len(samples)),
		Contacts:  contacts,
	}
	for i, sample := range samples {
		series.T[i] = sample.T
		series.LeftHeel[i] = float64(sample.LeftY)
		series.RightHeel[i] = float64(sample.RightY)
		if sample.LeftContact {
			series.LeftPeaks = append(series.LeftPeaks, i)
		}
		if sample.RightContact {
			series.RightPeaks = append(series.RightPeaks, i)
		}
	}
	return series, nil
}

func (s *Server) writeSeriesError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotFound) {
		httputil.WriteJSONError(w, http.StatusNotFound, "run not found")
		return
	}
	httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load run: %v", err))
}

func (s *Server) showChart(w http.ResponseWriter, r *http.Request, runID string) {
	series, err := s.loadSeries(r.Context(), runID)
	if err != nil {
		s.writeSeriesError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderHTML(w, series); err != nil {
		logf("failed to render chart for run %s: %v", runID, err)
	}
}

func (s *Server) showPlot(w http.ResponseWriter, r *http.Request, runID string) {
	series, err := s.loadSeries(r.Context(), runID)
	if err != nil {
		s.writeSeriesError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := report.WritePNG(w, series); err != nil {
		logf("failed to render plot for run %s: %v", runID, err)
	}
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.cfg)
}
