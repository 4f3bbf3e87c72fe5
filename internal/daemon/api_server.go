package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"rythmx/internal/acquisition"
	"rythmx/internal/api"
	"rythmx/internal/config"
	"rythmx/internal/identity"
	"rythmx/internal/logging"
	"rythmx/internal/musicapi"
	"rythmx/internal/scheduler"
	"rythmx/internal/store"
)

// Resolver answers on-demand identity resolution requests.
// *identity.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, artist string, force bool) (identity.Resolution, error)
}

// Worker runs an acquisition queue pass on demand. *acquisition.Worker
// satisfies it.
type Worker interface {
	CheckQueue(ctx context.Context) (acquisition.Summary, error)
}

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil
	}
	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/cycle", s.handleCycle)
	mux.HandleFunc("/api/queue", s.handleQueue)
	mux.HandleFunc("/api/queue/check", s.handleQueueCheck)
	mux.HandleFunc("/api/cache/clear", s.handleCacheClear)
	mux.HandleFunc("/api/identity/resolve", s.handleIdentityResolve)
	mux.HandleFunc("/api/discovery", s.handleDiscovery)
	mux.HandleFunc("/api/history", s.handleHistory)
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx := r.Context()
	payload := api.DaemonStatus{
		Running:      true,
		PID:          os.Getpid(),
		StorePath:    s.daemon.comps.Store.Path(),
		LockFilePath: s.daemon.lockPath,
		Scheduler:    api.FromSchedulerStatus(s.daemon.comps.Scheduler.Status(ctx)),
		Library:      api.LibraryStatus{Backend: s.daemon.cfg.Library.Backend},
	}
	if lib := s.daemon.comps.Library; lib != nil {
		payload.Library.Accessible = lib.Accessible(ctx)
		if count, err := lib.TrackCount(ctx); err == nil {
			payload.Library.TrackCount = count
		}
	}
	if stats, err := s.daemon.comps.Store.QueueStatistics(ctx); err == nil {
		payload.Queue = make(map[string]int, len(stats))
		for status, count := range stats {
			payload.Queue[string(status)] = count
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// handleCycle triggers a cycle asynchronously. The response only confirms
// the trigger; callers poll /api/status for the result.
func (s *apiServer) handleCycle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("mode"))
	if raw == "" {
		raw = s.daemon.cfg.Cruise.Mode
	}
	mode, err := scheduler.ParseMode(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	force := boolParam(r, "force")

	if s.daemon.comps.Scheduler.Status(r.Context()).Running {
		s.writeJSON(w, http.StatusConflict, api.CycleTriggerResponse{
			Triggered: false, Reason: "already_running", Mode: string(mode),
		})
		return
	}
	go s.daemon.comps.Scheduler.RunCycle(context.Background(), mode, force)
	s.writeJSON(w, http.StatusAccepted, api.CycleTriggerResponse{Triggered: true, Mode: string(mode)})
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleQueueList(w, r)
	case http.MethodPost:
		s.handleQueueAdd(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleQueueList(w http.ResponseWriter, r *http.Request) {
	var statuses []store.QueueStatus
	for _, value := range r.URL.Query()["status"] {
		status, err := store.ParseStatus(value)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		statuses = append(statuses, status)
	}

	items, err := s.daemon.comps.Store.ListQueue(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := api.QueueListResponse{Items: make([]api.QueueItem, 0, len(items))}
	for _, item := range items {
		payload.Items = append(payload.Items, api.FromQueueItem(item))
	}
	if stats, err := s.daemon.comps.Store.QueueStatistics(r.Context()); err == nil {
		payload.Stats = make(map[string]int, len(stats))
		for status, count := range stats {
			payload.Stats[string(status)] = count
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	var req api.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Artist) == "" || strings.TrimSpace(req.Album) == "" {
		s.writeError(w, http.StatusBadRequest, "artist and album are required")
		return
	}
	release := musicapi.Release{
		Artist: strings.TrimSpace(req.Artist),
		Title:  strings.TrimSpace(req.Album),
		Date:   strings.TrimSpace(req.Date),
		Kind:   musicapi.ParseKind(req.Kind),
		Source: "manual",
	}
	item, created, err := s.daemon.comps.Store.Enqueue(r.Context(), release)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, api.EnqueueResponse{Item: api.FromQueueItem(item), Created: created})
}

func (s *apiServer) handleQueueCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.daemon.comps.Worker == nil {
		s.writeError(w, http.StatusServiceUnavailable, "acquisition worker not configured")
		return
	}
	summary, err := s.daemon.comps.Worker.CheckQueue(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.QueueCheckResponse{
		Submitted: summary.Submitted,
		Found:     summary.Found,
		TimedOut:  summary.TimedOut,
		Errors:    summary.Errors,
	})
}

func (s *apiServer) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	artist := strings.TrimSpace(r.URL.Query().Get("artist"))
	var err error
	if artist == "" {
		err = s.daemon.comps.Store.ClearAllReleases(r.Context())
	} else {
		err = s.daemon.comps.Store.ClearReleases(r.Context(), artist)
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.CacheClearResponse{Cleared: true, Artist: artist})
}

func (s *apiServer) handleIdentityResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.daemon.comps.Resolver == nil {
		s.writeError(w, http.StatusServiceUnavailable, "identity resolver not configured")
		return
	}
	artist := strings.TrimSpace(r.URL.Query().Get("artist"))
	if artist == "" {
		s.writeError(w, http.StatusBadRequest, "artist is required")
		return
	}
	resolution, err := s.daemon.comps.Resolver.Resolve(r.Context(), artist, boolParam(r, "force"))
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromResolution(resolution))
}

func (s *apiServer) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	candidates, err := s.daemon.comps.Scheduler.DiscoveryCandidates(r.Context(), limit, boolParam(r, "new"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := api.DiscoveryResponse{Candidates: make([]api.DiscoveryCandidate, 0, len(candidates))}
	for _, candidate := range candidates {
		payload.Candidates = append(payload.Candidates, api.FromDiscoveryCandidate(candidate))
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	entries, err := s.daemon.comps.Store.RecentHistory(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := api.HistoryResponse{Entries: make([]api.HistoryEntry, 0, len(entries))}
	for _, entry := range entries {
		payload.Entries = append(payload.Entries, api.FromHistoryEntry(entry))
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func boolParam(r *http.Request, name string) bool {
	value := r.URL.Query().Get(name)
	return value == "1" || strings.EqualFold(value, "true")
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("response encode failed", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
