package valkey

import "testing"

func TestOperation(t *testing.T) {
	tests := map[string]string{
		"tracks:gpx:abc123": "tracks:gpx",
		"shapes:list":       "shapes",
		"plain":             "plain",
	}
	for key, want := range tests {
		if got := operation(key); got != want {
			t.Errorf("operation(%q) = %q, want %q", key, got, want)
		}
	}
}
