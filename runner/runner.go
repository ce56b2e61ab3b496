package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"web/polaris/annotation"
	"web/polaris/cluster"
	"web/polaris/events"
	"web/polaris/geo"
	"web/polaris/metrics"
	"web/polaris/overlay"
	"web/polaris/region"
	"web/polaris/store"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Defaults are used for every field a CreateSessionRequest leaves zero.
type Defaults struct {
	Center       geo.GeoPoint
	Zoom         int
	Width        int
	Height       int
	GridSize     int
	Density      float32
	ConfirmDelay time.Duration
	Low          int
	Medium       int
}

var DefaultDefaults = Defaults{
	Zoom:         3,
	Width:        1024,
	Height:       768,
	GridSize:     cluster.DefaultGridSize,
	Density:      1,
	ConfirmDelay: region.DefaultConfirmDelay,
	Low:          cluster.DefaultLowThreshold,
	Medium:       cluster.DefaultMediumThreshold,
}

type Options struct {
	MaxSessions     int
	SessionTTL      time.Duration
	CleanupInterval time.Duration
	Defaults        Defaults
	Logger          *slog.Logger
}

// Runner keeps map sessions in memory. Beyond MaxSessions the least
// recently used session is closed, and sessions idle for SessionTTL are
// closed by a background sweep.
type Runner struct {
	store    store.Store
	sink     events.Sink
	defaults Defaults
	logger   *slog.Logger

	sessions     map[string]*Session
	sessionLock  sync.RWMutex
	lastAccessed map[string]time.Time
	maxSessions  int
	ttl          time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

var _ SessionService = (*Runner)(nil)

func NewRunner(st store.Store, sink events.Sink, opts Options) *Runner {
	if sink == nil {
		sink = events.Discard
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 5
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 5 * time.Minute
	}
	if opts.Defaults == (Defaults{}) {
		opts.Defaults = DefaultDefaults
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	runner := &Runner{
		store:        st,
		sink:         sink,
		defaults:     opts.Defaults,
		logger:       opts.Logger,
		sessions:     make(map[string]*Session),
		lastAccessed: make(map[string]time.Time),
		maxSessions:  opts.MaxSessions,
		ttl:          opts.SessionTTL,
		stop:         make(chan struct{}),
	}

	go runner.cleanupInactiveSessions(opts.CleanupInterval)

	return runner
}

func (r *Runner) cleanupInactiveSessions(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.closeIdle(time.Now())
		case <-r.stop:
			return
		}
	}
}

// closeIdle closes every session not used since now - ttl.
func (r *Runner) closeIdle(now time.Time) int {
	r.sessionLock.Lock()
	var toClose []*Session
	for id, lastAccess := range r.lastAccessed {
		if now.Sub(lastAccess) > r.ttl {
			toClose = append(toClose, r.sessions[id])
			delete(r.sessions, id)
			delete(r.lastAccessed, id)
		}
	}
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	r.sessionLock.Unlock()

	for _, s := range toClose {
		r.logger.Info("closing idle session", "session", s.ID)
		metrics.SessionsEvicted.WithLabelValues("idle").Inc()
		s.close()
	}
	return len(toClose)
}

// Close stops the sweep and closes every session.
func (r *Runner) Close() {
	r.stopOnce.Do(func() { close(r.stop) })

	r.sessionLock.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.lastAccessed = make(map[string]time.Time)
	metrics.ActiveSessions.Set(0)
	r.sessionLock.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

// session looks a session up and marks it used.
func (r *Runner) session(id string) (*Session, error) {
	r.sessionLock.Lock()
	defer r.sessionLock.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, status.Error(codes.NotFound, fmt.Sprintf("%v: %s", ErrSessionNotFound, id))
	}
	r.lastAccessed[id] = time.Now()
	return s, nil
}

// addSession stores s, evicting the least recently used session when full.
func (r *Runner) addSession(s *Session) {
	r.sessionLock.Lock()
	var evicted *Session
	if len(r.sessions) >= r.maxSessions {
		var oldestID string
		var oldestTime time.Time
		first := true

		for id, accessTime := range r.lastAccessed {
			if first || accessTime.Before(oldestTime) {
				oldestID = id
				oldestTime = accessTime
				first = false
			}
		}

		if oldestID != "" {
			evicted = r.sessions[oldestID]
			delete(r.sessions, oldestID)
			delete(r.lastAccessed, oldestID)
		}
	}
	r.sessions[s.ID] = s
	r.lastAccessed[s.ID] = time.Now()
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	r.sessionLock.Unlock()

	if evicted != nil {
		r.logger.Info("evicting least recently used session", "session", evicted.ID)
		metrics.SessionsEvicted.WithLabelValues("lru").Inc()
		evicted.close()
	}
}

func (r *Runner) CreateDataset(ctx context.Context, req *CreateDatasetRequest) (*DatasetResponse, error) {
	items := req.Annotations
	if len(items) == 0 {
		if req.NumPoints <= 0 {
			return nil, status.Error(codes.InvalidArgument, "numPoints must be positive")
		}
		bounds := cluster.WorldBounds
		if req.Bounds != nil {
			bounds = *req.Bounds
		}
		seed := req.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		items = cluster.GenerateTestAnnotations(req.NumPoints, bounds, seed)
	}
	if len(req.Annotations) > 0 {
		items = make([]*annotation.Annotation, len(req.Annotations))
		for i, item := range req.Annotations {
			if item == nil {
				return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("annotation %d is null", i))
			}
			copied := *item
			if copied.ID == "" {
				copied.ID = uuid.New().String()
			}
			items[i] = &copied
		}
	}

	r.logger.Info("creating dataset", "points", len(items))
	info, err := r.store.Save(ctx, items)
	if err != nil {
		return nil, toStatus(err)
	}
	return &DatasetResponse{Dataset: info}, nil
}

func (r *Runner) ListDatasets(ctx context.Context, _ *ListDatasetsRequest) (*ListDatasetsResponse, error) {
	infos, err := r.store.List(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListDatasetsResponse{Datasets: infos}, nil
}

func (r *Runner) CreateSession(ctx context.Context, req *CreateSessionRequest) (*SessionResponse, error) {
	items, err := r.loadDataset(ctx, req.DatasetID)
	if err != nil {
		return nil, err
	}

	d := r.defaults
	center := d.Center
	if req.Center != nil {
		center = *req.Center
	}
	low, medium := pick(req.Low, d.Low), pick(req.Medium, d.Medium)
	config, err := cluster.NewConfig(low, medium)
	if err != nil {
		return nil, toStatus(err)
	}
	density := req.Density
	if density <= 0 {
		density = d.Density
	}

	s, err := newSession(sessionParams{
		ID:           uuid.New().String(),
		DatasetID:    req.DatasetID,
		Items:        items,
		Center:       center,
		Zoom:         pick(req.Zoom, d.Zoom),
		Width:        pick(req.Width, d.Width),
		Height:       pick(req.Height, d.Height),
		ConfirmDelay: d.ConfirmDelay,
		Config:       config,
		Options:      cluster.Options{GridSize: pick(req.GridSize, d.GridSize), Density: density},
		Sink:         r.sink,
		Logger:       r.logger,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	r.addSession(s)
	r.logger.Info("session created", "session", s.ID, "dataset", req.DatasetID, "points", len(items))

	return r.sessionResponse(s)
}

func (r *Runner) loadDataset(ctx context.Context, id string) ([]*annotation.Annotation, error) {
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "datasetId is required")
	}
	items, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return items, nil
}

func (r *Runner) CloseSession(_ context.Context, req *SessionRequest) (*Empty, error) {
	r.sessionLock.Lock()
	s, ok := r.sessions[req.SessionID]
	delete(r.sessions, req.SessionID)
	delete(r.lastAccessed, req.SessionID)
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	r.sessionLock.Unlock()

	if !ok {
		return nil, status.Error(codes.NotFound, fmt.Sprintf("%v: %s", ErrSessionNotFound, req.SessionID))
	}
	s.close()
	r.logger.Info("session closed", "session", s.ID)
	return &Empty{}, nil
}

func (r *Runner) ListSessions(_ context.Context, _ *ListSessionsRequest) (*ListSessionsResponse, error) {
	r.sessionLock.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessionLock.RUnlock()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		var info SessionInfo
		if err := s.do(func() { info = s.info() }); err != nil {
			continue
		}
		info.LastAccessed = r.accessTime(s.ID)
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Created.Before(infos[j].Created)
	})
	return &ListSessionsResponse{Sessions: infos}, nil
}

func (r *Runner) accessTime(id string) time.Time {
	r.sessionLock.RLock()
	defer r.sessionLock.RUnlock()
	return r.lastAccessed[id]
}

func (r *Runner) sessionResponse(s *Session) (*SessionResponse, error) {
	var info SessionInfo
	if err := s.do(func() { info = s.info() }); err != nil {
		return nil, toStatus(err)
	}
	info.LastAccessed = r.accessTime(s.ID)
	return &SessionResponse{Session: info}, nil
}

func (r *Runner) SetViewport(_ context.Context, req *SetViewportRequest) (*SessionResponse, error) {
	s, err := r.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	if (req.Width > 0) != (req.Height > 0) || req.Width < 0 || req.Height < 0 {
		return nil, status.Error(codes.InvalidArgument, "width and height must be set together")
	}
	if err := s.do(func() { s.setViewport(req) }); err != nil {
		return nil, toStatus(err)
	}
	return r.sessionResponse(s)
}

func (r *Runner) GetAnnotations(_ context.Context, req *AnnotationsRequest) (*AnnotationsResponse, error) {
	s, err := r.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	var resp *AnnotationsResponse
	if err := s.do(func() { resp = s.annotations(req.All) }); err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func (r *Runner) GetSummary(_ context.Context, req *SessionRequest) (*SummaryResponse, error) {
	s, err := r.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	var summary cluster.Summary
	if err := s.do(func() { summary = cluster.Summarize(s.view.Annotations()) }); err != nil {
		return nil, toStatus(err)
	}
	return &SummaryResponse{Summary: summary}, nil
}

func (r *Runner) Gesture(_ context.Context, req *GestureRequest) (*GestureResponse, error) {
	s, err := r.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	var consumed bool
	var gestureErr error
	if err := s.do(func() { consumed, gestureErr = s.gesture(req) }); err != nil {
		return nil, toStatus(err)
	}
	if gestureErr != nil {
		return nil, toStatus(gestureErr)
	}
	resp, err := r.sessionResponse(s)
	if err != nil {
		return nil, err
	}
	return &GestureResponse{Consumed: consumed, Session: resp.Session}, nil
}

// Select selects the annotation at Index. An index outside the shown
// annotations clears the selection.
func (r *Runner) Select(_ context.Context, req *SelectRequest) (*SessionResponse, error) {
	s, err := r.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	index := req.Index
	if err := s.do(func() {
		if index < 0 || index >= len(s.view.Annotations()) {
			index = overlay.InvalidPosition
		}
		s.view.SetSelectedIndex(index)
	}); err != nil {
		return nil, toStatus(err)
	}
	return r.sessionResponse(s)
}

func (r *Runner) ClickCallout(_ context.Context, req *SessionRequest) (*ClickResponse, error) {
	s, err := r.session(req.SessionID)
	if err != nil {
		return nil, err
	}
	var clicked bool
	if err := s.do(func() { clicked = s.view.ClickCallout() }); err != nil {
		return nil, toStatus(err)
	}
	return &ClickResponse{Clicked: clicked}, nil
}

func pick(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// toStatus maps errors to gRPC status codes. Errors that already carry a
// status pass through.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrSessionClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, cluster.ErrInvalidThresholds),
		errors.Is(err, annotation.ErrDegenerateMarker):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
