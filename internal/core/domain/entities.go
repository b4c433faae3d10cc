package domain

import (
	"time"

	"github.com/chalkin/chalkin/internal/pkg/shapetrack"
)

// ShapeSource tells where a shape definition comes from.
type ShapeSource string

const (
	ShapeBuiltin ShapeSource = "builtin"
	ShapeUpload  ShapeSource = "upload"
)

// Shape is a named path description that can be drawn as a track.
type Shape struct {
	ID          string      `json:"id,omitempty"`
	Slug        string      `json:"slug"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Path        string      `json:"path"`
	Source      ShapeSource `json:"source"`
	CreatedAt   time.Time   `json:"created_at,omitempty"`
}

// ConvertRequest asks for a path or a named shape to be drawn on the map.
// Nil fields take the configured defaults.
type ConvertRequest struct {
	Path            string     `json:"path,omitempty"`
	ShapeSlug       string     `json:"shape,omitempty"`
	CenterLat       *float64   `json:"center_lat,omitempty"`
	CenterLon       *float64   `json:"center_lon,omitempty"`
	ScaleMeters     *float64   `json:"scale_meters,omitempty"`
	NumPoints       *int       `json:"num_points,omitempty"`
	Start           *time.Time `json:"start_time,omitempty"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	Name            string     `json:"name,omitempty"`
	Description     string     `json:"description,omitempty"`
}

// RenderedTrack is a converted track together with its GPX encoding.
type RenderedTrack struct {
	Name           string           `json:"name"`
	Track          shapetrack.Track `json:"track"`
	GPX            []byte           `json:"-"`
	DistanceMeters float64          `json:"distance_meters"`
	PointCount     int              `json:"point_count"`
	Bounds         Bounds           `json:"bounds"`
	Center         GeoPoint         `json:"center"`
	Cached         bool             `json:"cached"`
}

// ExportStatus is the lifecycle state of a Strava export.
type ExportStatus string

const (
	ExportPending   ExportStatus = "pending"
	ExportRendered  ExportStatus = "rendered"
	ExportUploading ExportStatus = "uploading"
	ExportCompleted ExportStatus = "completed"
	ExportFailed    ExportStatus = "failed"
)

// Final reports whether no further transitions happen from s.
func (s ExportStatus) Final() bool {
	return s == ExportCompleted || s == ExportFailed
}

// Export tracks one rendered track on its way to Strava.
type Export struct {
	ID               string         `json:"id"`
	UserID           string         `json:"user_id"`
	SessionRef       string         `json:"session_ref,omitempty"`
	Name             string         `json:"name"`
	Request          ConvertRequest `json:"request"`
	Status           ExportStatus   `json:"status"`
	ObjectKey        string         `json:"object_key,omitempty"`
	StravaUploadID   int64          `json:"strava_upload_id,omitempty"`
	StravaActivityID int64          `json:"strava_activity_id,omitempty"`
	Error            string         `json:"error,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// ExportEvent is published on every export status change.
type ExportEvent struct {
	ExportID         string       `json:"export_id"`
	UserID           string       `json:"user_id"`
	Status           ExportStatus `json:"status"`
	StravaActivityID int64        `json:"strava_activity_id,omitempty"`
	Error            string       `json:"error,omitempty"`
	Time             time.Time    `json:"time"`
}

// StravaConnection holds a user's Strava OAuth tokens.
type StravaConnection struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	AthleteID    int64     `json:"athlete_id"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        string    `json:"scope"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Expired reports whether the access token is no longer valid at now.
func (c *StravaConnection) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// StravaStatus is the public view of a user's connection.
type StravaStatus struct {
	Connected bool       `json:"connected"`
	AthleteID int64      `json:"athlete_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	IsExpired bool       `json:"is_expired"`
	Scope     string     `json:"scope,omitempty"`
}

// StravaUpload is the state of an activity upload on Strava's side.
type StravaUpload struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	ActivityID int64  `json:"activity_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Done reports whether Strava finished processing the upload.
func (u *StravaUpload) Done() bool {
	return u.ActivityID != 0 || u.Error != ""
}
