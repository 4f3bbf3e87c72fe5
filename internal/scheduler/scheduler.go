// Package scheduler runs the discovery cycle: a background loop that wakes
// hourly and decides whether a cycle is due, plus on-demand triggers from
// the control API. Exactly one cycle runs at a time; a trigger while one is
// in flight reports skipped rather than queueing a second run.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"rythmx/internal/acquisition"
	"rythmx/internal/config"
	"rythmx/internal/discovery"
	"rythmx/internal/identity"
	"rythmx/internal/lastfm"
	"rythmx/internal/library"
	"rythmx/internal/logging"
	"rythmx/internal/musicapi"
	"rythmx/internal/store"
)

// Mode selects how much of the pipeline a cycle executes.
type Mode string

const (
	// ModeDry scans and ownership-checks but mutates nothing beyond caches.
	ModeDry Mode = "dry"
	// ModePlaylist additionally assembles and saves the dated playlist.
	ModePlaylist Mode = "playlist"
	// ModeCruise additionally queues unowned releases for acquisition.
	ModeCruise Mode = "cruise"
)

// ParseMode validates a mode string.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeDry, ModePlaylist, ModeCruise:
		return Mode(raw), nil
	}
	return "", fmt.Errorf("unknown cycle mode %q", raw)
}

func (m Mode) buildsPlaylist() bool { return m == ModePlaylist || m == ModeCruise }

// Settings keys the scheduler reads, overriding config defaults when set.
const (
	settingMinListens      = "min_listens"
	settingLookbackDays    = "lookback_days"
	settingMaxPerCycle     = "max_per_cycle"
	settingPeriod          = "period"
	settingRunMode         = "run_mode"
	settingCycleHours      = "cycle_hours"
	settingScheduleWeekday = "schedule_weekday"
	settingScheduleHour    = "schedule_hour"
	settingRefreshWeekday  = "refresh_weekday"
	settingRefreshHour     = "refresh_hour"
	settingLastRun         = "last_run"
	settingLastRefreshDay  = "cache_last_cleared"
)

// Taste supplies listener signals. *lastfm.Client satisfies it.
type Taste interface {
	TopArtists(ctx context.Context, period string, limit int) ([]lastfm.TopArtist, error)
	LovedArtistNames(ctx context.Context, limit int) ([]string, error)
}

// Resolver confirms artist identities. *identity.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, artist string, force bool) (identity.Resolution, error)
}

// Discoverer finds releases. *discovery.Chain satisfies it.
type Discoverer interface {
	Discover(ctx context.Context, artist string, since time.Time, knownIDs musicapi.ArtistIDs, force bool) (discovery.Result, error)
}

// Library is the slice of the library contract the cycle and the
// on-demand discovery surface need.
type Library interface {
	ArtistID(ctx context.Context, name string) (string, error)
	ProviderArtistIDs(ctx context.Context, name string) (musicapi.ArtistIDs, error)
	CheckAlbumOwned(ctx context.Context, query library.AlbumQuery) (string, error)
	CheckOwnedExact(ctx context.Context, spotifyTrackID string) (bool, error)
	TracksForAlbum(ctx context.Context, artistID, album string) ([]library.Track, error)
	TracksForArtist(ctx context.Context, artistID string) ([]library.Track, error)
	SimilarArtists(ctx context.Context, limit int) (map[string]library.SimilarArtist, error)
	DiscoveryPool(ctx context.Context, limit int, newReleasesOnly bool) ([]library.PoolTrack, error)
}

// Pusher mirrors playlists to a media server. Nil means no push.
type Pusher interface {
	CreateOrUpdatePlaylist(ctx context.Context, name string, ratingKeys []string) (string, error)
}

// QueueWorker is the acquisition pass run on every loop tick.
type QueueWorker interface {
	CheckQueue(ctx context.Context) (acquisition.Summary, error)
}

// Result summarizes one cycle.
type Result struct {
	Status           string `json:"status"`
	Reason           string `json:"reason,omitempty"`
	Message          string `json:"message,omitempty"`
	CycleID          string `json:"cycle_id,omitempty"`
	Mode             string `json:"mode,omitempty"`
	ArtistsQualified int    `json:"artists_qualified"`
	ReleasesFound    int    `json:"releases_found"`
	Owned            int    `json:"owned"`
	Unowned          int    `json:"unowned"`
	Queued           int    `json:"queued"`
	PlaylistTracks   int    `json:"playlist_tracks"`
	PlaylistName     string `json:"playlist_name,omitempty"`
	PushedPlaylistID string `json:"pushed_playlist_id,omitempty"`
	Provider         string `json:"provider,omitempty"`
}

// Status is the scheduler's externally visible state.
type Status struct {
	Running    bool       `json:"running"`
	Enabled    bool       `json:"enabled"`
	Mode       string     `json:"mode"`
	CycleHours int        `json:"cycle_hours"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	LastResult *Result    `json:"last_result,omitempty"`
}

// Scheduler owns the cycle state machine and the background loop.
type Scheduler struct {
	cfg      *config.Config
	store    *store.Store
	taste    Taste
	resolver Resolver
	chain    Discoverer
	lib      Library
	pusher   Pusher
	worker   QueueWorker
	logger   *slog.Logger

	running atomic.Bool
	mu      sync.Mutex
	lastRun time.Time
	result  *Result

	loopMu   sync.Mutex
	stop     chan struct{}
	done     chan struct{}
	interval time.Duration

	now func() time.Time
}

func New(cfg *config.Config, st *store.Store, taste Taste, resolver Resolver, chain Discoverer, lib Library, pusher Pusher, worker QueueWorker, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		store:    st,
		taste:    taste,
		resolver: resolver,
		chain:    chain,
		lib:      lib,
		pusher:   pusher,
		worker:   worker,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		interval: time.Hour,
		now:      time.Now,
	}
}

// Status reports current scheduler state.
func (s *Scheduler) Status(ctx context.Context) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := Status{
		Running:    s.running.Load(),
		Enabled:    s.cfg.Cruise.Enabled,
		Mode:       s.store.SettingOrDefault(ctx, settingRunMode, s.cfg.Cruise.Mode),
		CycleHours: s.store.SettingIntOrDefault(ctx, settingCycleHours, s.cfg.Cruise.CycleHours),
		LastResult: s.result,
	}
	if !s.lastRun.IsZero() {
		lastRun := s.lastRun
		status.LastRun = &lastRun
	}
	return status
}

// RunCycle executes one cycle unless another is already in flight. The
// running flag is claimed with a compare-and-set so two concurrent triggers
// cannot both pass the check.
func (s *Scheduler) RunCycle(ctx context.Context, mode Mode, force bool) Result {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("cycle already running, trigger skipped")
		return Result{Status: "skipped", Reason: "already_running"}
	}
	defer s.running.Store(false)

	started := s.now()
	s.mu.Lock()
	s.lastRun = started
	s.mu.Unlock()

	cycleID := uuid.NewString()
	s.logger.Info("cycle starting",
		logging.String(logging.FieldCycleID, cycleID),
		logging.String(logging.FieldMode, string(mode)),
		logging.Bool("force_refresh", force))

	result, err := s.executeCycle(ctx, cycleID, mode, force)
	if err != nil {
		s.logger.Error("cycle failed",
			logging.String(logging.FieldCycleID, cycleID), logging.Error(err))
		result = Result{Status: "error", CycleID: cycleID, Mode: string(mode), Message: err.Error()}
	} else {
		s.logger.Info("cycle finished",
			logging.String(logging.FieldCycleID, cycleID),
			logging.Int("releases", result.ReleasesFound),
			logging.Int("queued", result.Queued),
			logging.String("elapsed", s.now().Sub(started).Round(time.Millisecond).String()))
	}

	s.mu.Lock()
	s.result = &result
	s.mu.Unlock()
	return result
}

// Start launches the background loop. Safe to call twice.
func (s *Scheduler) Start() {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)
	s.logger.Info("scheduler started",
		logging.Int("cycle_hours", s.cfg.Cruise.CycleHours),
		logging.Bool("enabled", s.cfg.Cruise.Enabled))
}

// Stop halts the background loop and waits for it to exit. A cycle already
// in flight finishes.
func (s *Scheduler) Stop() {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop = nil
	s.done = nil
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ctx := context.Background()
	for {
		s.tick(ctx)
		select {
		case <-stop:
			return
		case <-time.After(s.interval):
		}
	}
}

// tick is one wake of the loop: maybe run a cycle, always run the
// acquisition pass.
func (s *Scheduler) tick(ctx context.Context) {
	if s.cfg.Cruise.Enabled && s.shouldRun(ctx) {
		mode := Mode(s.store.SettingOrDefault(ctx, settingRunMode, s.cfg.Cruise.Mode))
		force := s.shouldWeeklyRefresh(ctx)
		if force {
			today := s.now().UTC().Format("2006-01-02")
			if err := s.store.SetSetting(ctx, settingLastRefreshDay, today); err != nil {
				s.logger.Warn("refresh guard write failed", logging.Error(err))
			}
			s.logger.Info("weekly release cache refresh triggered")
		}
		s.RunCycle(ctx, mode, force)
		if err := s.store.SetSetting(ctx, settingLastRun, s.now().UTC().Format(time.RFC3339)); err != nil {
			s.logger.Warn("last-run write failed", logging.Error(err))
		}
	}
	if s.worker != nil {
		if _, err := s.worker.CheckQueue(ctx); err != nil {
			s.logger.Warn("acquisition pass failed", logging.Error(err))
		}
	}
}

// shouldRun decides whether a scheduled cycle is due. Weekday/hour
// scheduling wins when both are configured; otherwise the interval since
// the last run decides.
func (s *Scheduler) shouldRun(ctx context.Context) bool {
	now := s.now().UTC()
	weekday := s.store.SettingIntOrDefault(ctx, settingScheduleWeekday, s.scheduleWeekdayDefault())
	hour := s.store.SettingIntOrDefault(ctx, settingScheduleHour, s.scheduleHourDefault())
	lastRunRaw := s.store.SettingOrDefault(ctx, settingLastRun, "")

	if weekday >= 0 && hour >= 0 {
		if int(now.Weekday()) != weekday || now.Hour() != hour {
			return false
		}
		if lastRunRaw != "" {
			if last, err := time.Parse(time.RFC3339, lastRunRaw); err == nil {
				last = last.UTC()
				if last.Year() == now.Year() && last.YearDay() == now.YearDay() && last.Hour() == now.Hour() {
					return false
				}
			}
		}
		return true
	}

	cycleHours := s.store.SettingIntOrDefault(ctx, settingCycleHours, s.cfg.Cruise.CycleHours)
	if lastRunRaw == "" {
		return true
	}
	last, err := time.Parse(time.RFC3339, lastRunRaw)
	if err != nil {
		return true
	}
	return now.Sub(last) >= time.Duration(cycleHours)*time.Hour
}

func (s *Scheduler) scheduleWeekdayDefault() int {
	if s.cfg.Cruise.ScheduleMode == "weekly" {
		return s.cfg.Cruise.Weekday
	}
	return -1
}

func (s *Scheduler) scheduleHourDefault() int {
	if s.cfg.Cruise.ScheduleMode == "weekly" {
		return s.cfg.Cruise.Hour
	}
	return -1
}

// shouldWeeklyRefresh reports whether the weekly cache refresh is due: the
// configured weekday, at or past the configured hour, and not already done
// today.
func (s *Scheduler) shouldWeeklyRefresh(ctx context.Context) bool {
	now := s.now().UTC()
	weekday := s.store.SettingIntOrDefault(ctx, settingRefreshWeekday, s.cfg.Cruise.RefreshWeekday)
	hour := s.store.SettingIntOrDefault(ctx, settingRefreshHour, s.cfg.Cruise.RefreshHour)
	if int(now.Weekday()) != weekday || now.Hour() < hour {
		return false
	}
	return s.store.SettingOrDefault(ctx, settingLastRefreshDay, "") != now.Format("2006-01-02")
}
