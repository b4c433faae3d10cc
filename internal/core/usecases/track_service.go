package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chalkin/chalkin/internal/core/domain"
	"github.com/chalkin/chalkin/internal/core/ports"
	"github.com/chalkin/chalkin/internal/pkg/metrics"
	"github.com/chalkin/chalkin/internal/pkg/shapetrack"
	"github.com/chalkin/chalkin/internal/pkg/telemetry"
)

const defaultTrackName = "Chalkin Session"

// TrackDefaults fill in whatever a ConvertRequest leaves out.
type TrackDefaults struct {
	CenterLat       float64
	CenterLon       float64
	ScaleMeters     float64
	NumPoints       int
	DurationSeconds int
	CurveSteps      int
	MaxPoints       int
	CacheTTL        time.Duration
}

// TrackService turns paths and named shapes into GPX tracks.
type TrackService struct {
	shapes   *ShapeService
	cache    ports.CacheService
	defaults TrackDefaults
	tracer   trace.Tracer
	now      func() time.Time
}

// NewTrackService creates a new TrackService. cache may be nil.
func NewTrackService(shapes *ShapeService, cache ports.CacheService, defaults TrackDefaults) *TrackService {
	return &TrackService{
		shapes:   shapes,
		cache:    cache,
		defaults: defaults,
		tracer:   telemetry.Tracer("chalkin/tracks"),
		now:      time.Now,
	}
}

// cachedTrack is what the GPX cache stores.
type cachedTrack struct {
	Name  string           `json:"name"`
	Track shapetrack.Track `json:"track"`
	GPX   []byte           `json:"gpx"`
}

// Convert renders req. Requests with an explicit start time are deterministic
// and are served from the cache when possible.
func (s *TrackService) Convert(ctx context.Context, req domain.ConvertRequest) (*domain.RenderedTrack, error) {
	ctx, span := s.tracer.Start(ctx, "TrackService.Convert")
	defer span.End()

	started := time.Now()
	rt, source, err := s.convert(ctx, req, span)
	if err != nil {
		kind := shapetrack.ErrorKind(err)
		if kind == "" {
			kind = "internal"
		}
		metrics.ConversionErrors.WithLabelValues(kind).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		return nil, err
	}

	metrics.ConversionsTotal.WithLabelValues(source).Inc()
	metrics.ConversionDuration.Observe(time.Since(started).Seconds())
	metrics.TrackPoints.Observe(float64(rt.PointCount))
	return rt, nil
}

func (s *TrackService) convert(ctx context.Context, req domain.ConvertRequest, span trace.Span) (*domain.RenderedTrack, string, error) {
	path, name, source, err := s.resolve(ctx, req)
	if err != nil {
		return nil, source, err
	}
	span.SetAttributes(attribute.String(telemetry.AttrShapeSlug, req.ShapeSlug))

	p, err := s.params(req)
	if err != nil {
		return nil, source, err
	}
	if err := p.Validate(); err != nil {
		return nil, source, err
	}
	span.SetAttributes(attribute.Int(telemetry.AttrNumPoints, p.NumPoints))

	meta := shapetrack.Metadata{Name: name, Description: req.Description, Time: p.Start}

	var key string
	if req.Start != nil && s.cache != nil {
		key = cacheKey(path, p, meta)
		if rt, ok := s.fromCache(ctx, key); ok {
			span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
			return rt, source, nil
		}
	}

	tr, err := shapetrack.Convert(path, p)
	if err != nil {
		return nil, source, err
	}
	gpx, err := shapetrack.EncodeGPX(tr, meta)
	if err != nil {
		return nil, source, fmt.Errorf("encode track: %w", err)
	}

	if key != "" {
		if data, err := json.Marshal(cachedTrack{Name: name, Track: tr, GPX: gpx}); err == nil {
			if err := s.cache.Set(ctx, key, data, int(s.defaults.CacheTTL.Seconds())); err != nil {
				slog.Debug("track cache write failed", "error", err)
			}
		}
	}

	return rendered(name, tr, gpx, false), source, nil
}

// resolve picks the path description and a display name for req.
func (s *TrackService) resolve(ctx context.Context, req domain.ConvertRequest) (path, name, source string, err error) {
	switch {
	case req.Path != "" && req.ShapeSlug != "":
		return "", "", "path", fmt.Errorf("%w: give either path or shape, not both", domain.ErrInvalidInput)
	case req.Path != "":
		name = req.Name
		if name == "" {
			name = defaultTrackName
		}
		return req.Path, name, "path", nil
	case req.ShapeSlug != "":
		sh, err := s.shapes.Get(ctx, req.ShapeSlug)
		if err != nil {
			return "", "", "shape", err
		}
		name = req.Name
		if name == "" {
			name = sh.Name
		}
		return sh.Path, name, "shape", nil
	}
	return "", "", "path", fmt.Errorf("%w: path or shape is required", domain.ErrInvalidInput)
}

// params merges req over the configured defaults.
func (s *TrackService) params(req domain.ConvertRequest) (shapetrack.Params, error) {
	d := s.defaults
	p := shapetrack.Params{
		CenterLat:   d.CenterLat,
		CenterLon:   d.CenterLon,
		ScaleMeters: d.ScaleMeters,
		NumPoints:   d.NumPoints,
		Duration:    time.Duration(d.DurationSeconds) * time.Second,
		CurveSteps:  d.CurveSteps,
	}
	if req.CenterLat != nil {
		p.CenterLat = *req.CenterLat
	}
	if req.CenterLon != nil {
		p.CenterLon = *req.CenterLon
	}
	if req.ScaleMeters != nil {
		p.ScaleMeters = *req.ScaleMeters
	}
	if req.NumPoints != nil {
		p.NumPoints = *req.NumPoints
	}
	if req.DurationSeconds != nil {
		secs := *req.DurationSeconds
		if secs > int(shapetrack.MaxDuration/time.Second) {
			return p, &shapetrack.InvalidParameterError{
				Name:   "duration",
				Value:  secs,
				Reason: fmt.Sprintf("must not exceed %s", shapetrack.MaxDuration),
			}
		}
		p.Duration = time.Duration(secs) * time.Second
	}
	if req.Start != nil {
		p.Start = req.Start.UTC()
	} else {
		p.Start = s.now().UTC().Truncate(time.Second)
	}

	if d.MaxPoints > 0 && p.NumPoints > d.MaxPoints {
		return p, &shapetrack.InvalidParameterError{
			Name:   "num_points",
			Value:  p.NumPoints,
			Reason: fmt.Sprintf("must not exceed %d", d.MaxPoints),
		}
	}
	return p, nil
}

func (s *TrackService) fromCache(ctx context.Context, key string) (*domain.RenderedTrack, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("tracks.gpx").Inc()
		return nil, false
	}
	var ct cachedTrack
	if err := json.Unmarshal(data, &ct); err != nil {
		metrics.CacheMisses.WithLabelValues("tracks.gpx").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("tracks.gpx").Inc()
	return rendered(ct.Name, ct.Track, ct.GPX, true), true
}

func rendered(name string, tr shapetrack.Track, gpx []byte, cached bool) *domain.RenderedTrack {
	sw, ne := tr.Bounds()
	bounds := domain.Bounds{MinLat: sw.Lat, MinLon: sw.Lon, MaxLat: ne.Lat, MaxLon: ne.Lon}
	return &domain.RenderedTrack{
		Name:           name,
		Track:          tr,
		GPX:            gpx,
		DistanceMeters: tr.Distance(),
		PointCount:     len(tr.Points),
		Bounds:         bounds,
		Center:         bounds.Center(),
		Cached:         cached,
	}
}

// cacheKey hashes everything that influences the rendered bytes.
func cacheKey(path string, p shapetrack.Params, meta shapetrack.Metadata) string {
	canonical, _ := json.Marshal(struct {
		Path   string
		Params shapetrack.Params
		Meta   shapetrack.Metadata
	}{path, p, meta})
	sum := sha256.Sum256(canonical)
	return "tracks:gpx:" + hex.EncodeToString(sum[:])
}
