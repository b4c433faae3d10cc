package shapetrack

import (
	"fmt"
	"time"

	"github.com/tkrajina/gpxgo/gpx"
)

const (
	DefaultCreator   = "Chalkin"
	DefaultTrackType = "RockClimbing"
)

// Metadata describes the GPX document wrapping a track.
type Metadata struct {
	Name        string
	Description string
	Creator     string // defaults to DefaultCreator
	TrackName   string // defaults to Name
	TrackType   string // defaults to DefaultTrackType
	Time        time.Time
}

// EncodeGPX renders a track as an indented GPX 1.1 document with a single
// track and a single segment.
func EncodeGPX(t Track, meta Metadata) ([]byte, error) {
	if len(t.Points) == 0 {
		return nil, fmt.Errorf("encode gpx: empty track")
	}

	doc := GPXDocument(t, meta)
	b, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, fmt.Errorf("encode gpx: %w", err)
	}
	return b, nil
}

// GPXDocument builds the gpx document for t without serializing it.
func GPXDocument(t Track, meta Metadata) *gpx.GPX {
	creator := meta.Creator
	if creator == "" {
		creator = DefaultCreator
	}
	trackName := meta.TrackName
	if trackName == "" {
		trackName = meta.Name
	}
	trackType := meta.TrackType
	if trackType == "" {
		trackType = DefaultTrackType
	}
	stamp := meta.Time
	if stamp.IsZero() {
		stamp = t.Start()
	}
	stamp = stamp.UTC()

	seg := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, len(t.Points))}
	for i, p := range t.Points {
		seg.Points[i] = gpx.GPXPoint{
			Point:     gpx.Point{Latitude: p.Lat, Longitude: p.Lon},
			Timestamp: p.Time.UTC(),
		}
	}

	return &gpx.GPX{
		Version:     "1.1",
		Creator:     creator,
		Name:        meta.Name,
		Description: meta.Description,
		Time:        &stamp,
		Tracks: []gpx.GPXTrack{{
			Name:     trackName,
			Type:     trackType,
			Segments: []gpx.GPXTrackSegment{seg},
		}},
	}
}

// DecodeGPX reads the first track segment of a GPX document.
func DecodeGPX(data []byte) (Track, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return Track{}, fmt.Errorf("decode gpx: %w", err)
	}
	if len(doc.Tracks) == 0 || len(doc.Tracks[0].Segments) == 0 {
		return Track{}, fmt.Errorf("decode gpx: no track segment")
	}

	src := doc.Tracks[0].Segments[0].Points
	out := make([]TrackPoint, len(src))
	for i, p := range src {
		out[i] = TrackPoint{LatLon: LatLon{Lat: p.Latitude, Lon: p.Longitude}, Time: p.Timestamp}
	}
	return Track{Points: out}, nil
}
