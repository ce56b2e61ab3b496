package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"web/polaris/annotation"
	"web/polaris/cluster"
	"web/polaris/events"
	"web/polaris/geo"
	"web/polaris/mapview"
	"web/polaris/metrics"
	"web/polaris/overlay"
	"web/polaris/region"
)

// Session is one map: a viewport over a dataset, clustered again every
// time the region settles. All of its state lives on its own looper.
type Session struct {
	ID        string
	DatasetID string
	Created   time.Time

	looper    *region.Looper
	view      *mapview.MapView
	clusterer *cluster.Clusterer
	sink      events.Sink
	logger    *slog.Logger

	// region the current clusters were computed for
	clustered geo.Region
}

type sessionParams struct {
	ID           string
	DatasetID    string
	Items        []*annotation.Annotation
	Center       geo.GeoPoint
	Zoom         int
	Width        int
	Height       int
	ConfirmDelay time.Duration
	Config       *cluster.Config
	Options      cluster.Options
	Sink         events.Sink
	Logger       *slog.Logger
}

func newSession(p sessionParams) (*Session, error) {
	s := &Session{
		ID:        p.ID,
		DatasetID: p.DatasetID,
		Created:   time.Now(),
		looper:    region.NewLooper(0),
		sink:      p.Sink,
		logger:    p.Logger.With("session", p.ID),
	}
	p.Options.Logger = s.logger
	s.clusterer = cluster.NewClusterer(p.Config, p.Options)
	s.clusterer.SetAnnotations(p.Items)

	var err error
	doErr := s.looper.Do(func() {
		viewport := geo.NewViewport(p.Center, p.Zoom, p.Width, p.Height)
		s.view, err = mapview.New(viewport, s.looper, s, mapview.Options{
			ConfirmDelay: p.ConfirmDelay,
			Logger:       s.logger,
		})
		if err != nil {
			return
		}
		s.view.SetRegionListener(s)
		s.view.SetSelectionListener(s)
		s.view.SetGestureListener(s)
		err = s.recluster()
		s.view.Layout()
	})
	if doErr != nil {
		err = doErr
	}
	if err != nil {
		s.looper.Close()
		return nil, err
	}
	return s, nil
}

// do runs fn on the session looper.
func (s *Session) do(fn func()) error {
	if err := s.looper.Do(fn); err != nil {
		return fmt.Errorf("session %s: %w", s.ID, ErrSessionClosed)
	}
	return nil
}

func (s *Session) recluster() error {
	start := time.Now()
	out := s.clusterer.Clusters(s.view.Projection())
	if err := s.view.SetAnnotations(out, nil); err != nil {
		return err
	}
	s.clustered = s.view.Region()
	metrics.ObserveCluster(start, len(out))
	s.publish(events.Event{Type: events.AnnotationsClustered, Index: overlay.InvalidPosition, Count: len(out)})
	return nil
}

// info must run on the looper.
func (s *Session) info() SessionInfo {
	vp := s.view.Viewport()
	info := SessionInfo{
		ID:             s.ID,
		DatasetID:      s.DatasetID,
		Center:         vp.Center,
		Zoom:           vp.Zoom,
		Width:          vp.Width,
		Height:         vp.Height,
		Region:         vp.Region(),
		NumAnnotations: len(s.clusterer.Annotations()),
		NumShown:       len(s.view.Annotations()),
		SelectedIndex:  s.view.SelectedIndex(),
		Created:        s.Created,
	}
	if c := s.view.VisibleCallout(); c != nil {
		copied := *c
		info.Callout = &copied
	}
	return info
}

func (s *Session) setViewport(req *SetViewportRequest) {
	vp := s.view.Viewport()
	if req.Width > 0 && req.Height > 0 {
		vp.SetSize(req.Width, req.Height)
	}
	if req.Center != nil {
		vp.SetCenter(*req.Center)
	}
	if req.Zoom != nil {
		vp.SetZoom(*req.Zoom)
	}
	if req.ScrollX != 0 || req.ScrollY != 0 {
		vp.ScrollBy(req.ScrollX, req.ScrollY)
	}
	s.view.Layout()
}

func (s *Session) gesture(req *GestureRequest) (bool, error) {
	px := geo.Pixel{X: req.X, Y: req.Y}

	var consumed bool
	switch req.Kind {
	case GestureTouchDown:
		consumed = s.view.Touch(overlay.TouchEvent{Action: overlay.TouchDown, Pixel: px})
	case GestureTouchMove:
		consumed = s.view.Touch(overlay.TouchEvent{Action: overlay.TouchMove, Pixel: px})
		if !consumed && (req.DX != 0 || req.DY != 0) {
			s.view.ScrollBy(req.DX, req.DY)
		}
	case GestureTouchUp:
		consumed = s.view.Touch(overlay.TouchEvent{Action: overlay.TouchUp, Pixel: px})
	case GestureTouchCancel:
		consumed = s.view.Touch(overlay.TouchEvent{Action: overlay.TouchCancel, Pixel: px})
	case GestureTap:
		consumed = s.view.Tap(px)
	case GestureDoubleTap:
		consumed = s.view.DoubleTap(px)
	case GestureLongPress:
		consumed = s.view.LongPress(px)
	default:
		return false, fmt.Errorf("%w: unknown gesture %q", ErrInvalidArgument, req.Kind)
	}

	metrics.ObserveGesture(req.Kind, consumed)
	return consumed, nil
}

// annotations returns the GeoJSON of the shown annotations. It must run on
// the looper.
func (s *Session) annotations(all bool) *AnnotationsResponse {
	vp := s.view.Viewport()
	r := vp.Region()

	items := s.view.Annotations()
	fc := cluster.ToGeoJSON(items, vp)
	if !all {
		visible := fc.Features[:0]
		for i, item := range items {
			if r.Contains(item.Point) {
				visible = append(visible, fc.Features[i])
			}
		}
		fc.Features = visible
	}

	return &AnnotationsResponse{
		Region:        r,
		Zoom:          vp.Zoom,
		SelectedIndex: s.view.SelectedIndex(),
		Features:      fc,
	}
}

func (s *Session) close() {
	_ = s.looper.Do(s.view.Close)
	s.looper.Close()
	s.publish(events.Event{Type: events.SessionClosed, Index: overlay.InvalidPosition})
}

func (s *Session) publish(ev events.Event) {
	ev.SessionID = s.ID
	ev.Time = time.Now()
	metrics.EventsPublished.WithLabelValues(string(ev.Type)).Inc()
	if err := s.sink.Publish(context.Background(), ev); err != nil {
		s.logger.Error("publish event failed", "type", string(ev.Type), "error", err)
	}
}

func (s *Session) OnRegionChanged(mv *mapview.MapView) {
	r := mv.Region()
	s.publish(events.Event{Type: events.RegionChanged, Index: overlay.InvalidPosition, Region: &r})
}

func (s *Session) OnRegionChangeConfirmed(mv *mapview.MapView) {
	metrics.RegionConfirmations.Inc()
	r := mv.Region()
	if r != s.clustered {
		if err := s.recluster(); err != nil {
			s.logger.Error("recluster failed", "error", err)
		}
	}
	s.publish(events.Event{Type: events.RegionConfirmed, Index: overlay.InvalidPosition, Region: &r})
}

func (s *Session) OnAnnotationSelected(_ *mapview.MapView, _ *mapview.Callout, index int, a *annotation.Annotation) {
	metrics.Selections.WithLabelValues("selected").Inc()
	s.publish(events.Event{Type: events.AnnotationSelected, Index: index, Annotation: a, Count: a.Count()})
}

func (s *Session) OnAnnotationDeselected(_ *mapview.MapView, _ *mapview.Callout, index int, a *annotation.Annotation) {
	metrics.Selections.WithLabelValues("deselected").Inc()
	s.publish(events.Event{Type: events.AnnotationDeselected, Index: index, Annotation: a})
}

func (s *Session) OnAnnotationClicked(_ *mapview.MapView, _ *mapview.Callout, index int, a *annotation.Annotation) {
	metrics.Selections.WithLabelValues("clicked").Inc()
	s.publish(events.Event{Type: events.AnnotationClicked, Index: index, Annotation: a, Count: a.Count()})
}

func (s *Session) OnBackgroundTap(_ *mapview.MapView, p geo.GeoPoint) {
	s.publish(events.Event{Type: events.BackgroundTap, Index: overlay.InvalidPosition, Point: &p})
}

func (s *Session) OnBackgroundDoubleTap(_ *mapview.MapView, p geo.GeoPoint) {
	s.publish(events.Event{Type: events.BackgroundDoubleTap, Index: overlay.InvalidPosition, Point: &p})
}

func (s *Session) OnBackgroundLongPress(_ *mapview.MapView, p geo.GeoPoint) {
	s.publish(events.Event{Type: events.BackgroundLongPress, Index: overlay.InvalidPosition, Point: &p})
}

func (s *Session) ShowCallout(c *mapview.Callout) {
	s.publish(events.Event{Type: events.CalloutShown, Index: c.Index, Annotation: c.Annotation})
}

func (s *Session) DismissCallout(c *mapview.Callout) {
	s.publish(events.Event{Type: events.CalloutDismissed, Index: c.Index, Annotation: c.Annotation})
}
