// Package shapetrack converts vector path descriptions into timestamped
// geographic tracks.
//
// The pipeline runs in five pure stages:
//
//	Parse     -> []Command   path-local, absolute coordinates
//	Sample    -> []Point     exactly N points, curves flattened
//	Normalize -> []Point     centred, longer side spans [-1, 1], Y up
//	Project   -> []LatLon    equirectangular offset around a centre
//	ToTrack   -> Track       evenly spaced timestamps
//
// Convert chains them. EncodeGPX renders the result as GPX 1.1, and
// ExtractPaths pulls path descriptions out of an SVG document.
//
// Every function is deterministic and safe for concurrent use.
package shapetrack
