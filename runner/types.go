package runner

import (
	"context"
	"time"

	"web/polaris/annotation"
	"web/polaris/cluster"
	"web/polaris/geo"
	"web/polaris/mapview"
	"web/polaris/store"
)

// SessionService is the runner API. Runner implements it in process and
// Client implements it over gRPC.
type SessionService interface {
	CreateDataset(ctx context.Context, req *CreateDatasetRequest) (*DatasetResponse, error)
	ListDatasets(ctx context.Context, req *ListDatasetsRequest) (*ListDatasetsResponse, error)
	CreateSession(ctx context.Context, req *CreateSessionRequest) (*SessionResponse, error)
	CloseSession(ctx context.Context, req *SessionRequest) (*Empty, error)
	ListSessions(ctx context.Context, req *ListSessionsRequest) (*ListSessionsResponse, error)
	SetViewport(ctx context.Context, req *SetViewportRequest) (*SessionResponse, error)
	GetAnnotations(ctx context.Context, req *AnnotationsRequest) (*AnnotationsResponse, error)
	GetSummary(ctx context.Context, req *SessionRequest) (*SummaryResponse, error)
	Gesture(ctx context.Context, req *GestureRequest) (*GestureResponse, error)
	Select(ctx context.Context, req *SelectRequest) (*SessionResponse, error)
	ClickCallout(ctx context.Context, req *SessionRequest) (*ClickResponse, error)
}

type Empty struct{}

// CreateDatasetRequest either carries annotations or asks for NumPoints
// random ones inside Bounds (whole world when nil).
type CreateDatasetRequest struct {
	NumPoints   int                      `json:"numPoints"`
	Seed        int64                    `json:"seed,omitempty"`
	Bounds      *cluster.Bounds          `json:"bounds,omitempty"`
	Annotations []*annotation.Annotation `json:"annotations,omitempty"`
}

type DatasetResponse struct {
	Dataset store.DatasetInfo `json:"dataset"`
}

type ListDatasetsRequest struct{}

type ListDatasetsResponse struct {
	Datasets []store.DatasetInfo `json:"datasets"`
}

// CreateSessionRequest opens a map on a dataset. Zero fields take the
// runner defaults.
type CreateSessionRequest struct {
	DatasetID string        `json:"datasetId"`
	Center    *geo.GeoPoint `json:"center,omitempty"`
	Zoom      int           `json:"zoom,omitempty"`
	Width     int           `json:"width,omitempty"`
	Height    int           `json:"height,omitempty"`
	GridSize  int           `json:"gridSize,omitempty"`
	Density   float32       `json:"density,omitempty"`
	Low       int           `json:"low,omitempty"`
	Medium    int           `json:"medium,omitempty"`
}

type SessionRequest struct {
	SessionID string `json:"sessionId"`
}

type ListSessionsRequest struct{}

type ListSessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// SessionInfo is a snapshot of a map session.
type SessionInfo struct {
	ID             string           `json:"id"`
	DatasetID      string           `json:"datasetId"`
	Center         geo.GeoPoint     `json:"center"`
	Zoom           int              `json:"zoom"`
	Width          int              `json:"width"`
	Height         int              `json:"height"`
	Region         geo.Region       `json:"region"`
	NumAnnotations int              `json:"numAnnotations"`
	NumShown       int              `json:"numShown"`
	SelectedIndex  int              `json:"selectedIndex"`
	Callout        *mapview.Callout `json:"callout,omitempty"`
	Created        time.Time        `json:"created"`
	LastAccessed   time.Time        `json:"lastAccessed"`
}

type SessionResponse struct {
	Session SessionInfo `json:"session"`
}

// SetViewportRequest moves the camera. Scroll is applied after the other
// fields, like a drag.
type SetViewportRequest struct {
	SessionID string        `json:"sessionId"`
	Center    *geo.GeoPoint `json:"center,omitempty"`
	Zoom      *int          `json:"zoom,omitempty"`
	Width     int           `json:"width,omitempty"`
	Height    int           `json:"height,omitempty"`
	ScrollX   int           `json:"scrollX,omitempty"`
	ScrollY   int           `json:"scrollY,omitempty"`
}

// AnnotationsRequest asks for the annotations currently shown. Unless All
// is set only those inside the visible region are returned.
type AnnotationsRequest struct {
	SessionID string `json:"sessionId"`
	All       bool   `json:"all,omitempty"`
}

type AnnotationsResponse struct {
	Region        geo.Region                 `json:"region"`
	Zoom          int                        `json:"zoom"`
	SelectedIndex int                        `json:"selectedIndex"`
	Features      *cluster.FeatureCollection `json:"features"`
}

type SummaryResponse struct {
	Summary cluster.Summary `json:"summary"`
}

// Gesture kinds.
const (
	GestureTouchDown   = "touch_down"
	GestureTouchMove   = "touch_move"
	GestureTouchUp     = "touch_up"
	GestureTouchCancel = "touch_cancel"
	GestureTap         = "tap"
	GestureDoubleTap   = "double_tap"
	GestureLongPress   = "long_press"
)

// GestureRequest delivers one gesture at screen position (X, Y). A
// touch_move also pans the map by (DX, DY).
type GestureRequest struct {
	SessionID string `json:"sessionId"`
	Kind      string `json:"kind"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	DX        int    `json:"dx,omitempty"`
	DY        int    `json:"dy,omitempty"`
}

type GestureResponse struct {
	Consumed bool        `json:"consumed"`
	Session  SessionInfo `json:"session"`
}

type SelectRequest struct {
	SessionID string `json:"sessionId"`
	Index     int    `json:"index"`
}

type ClickResponse struct {
	Clicked bool `json:"clicked"`
}
