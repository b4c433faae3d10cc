package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"
	MetricConversions    = "tracks.conversions_per_second"

	// Export pipeline
	MetricExportLatency = "exports.end_to_end_seconds"
	MetricUploadLatency = "exports.strava_upload_seconds"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricExportsCompleted = "business.exports_completed"
	MetricStravaConnected  = "business.strava_connections"
)

// Span attribute keys shared by conversion spans.
const (
	AttrShapeSlug = "chalkin.shape.slug"
	AttrNumPoints = "chalkin.track.num_points"
	AttrCacheHit  = "chalkin.cache.hit"
	AttrExportID  = "chalkin.export.id"
)
