package storage

import "testing"

func TestNormalizeURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		publicHost string
		want       string
	}{
		{
			name: "storage scheme rewritten",
			uri:  "gs://bucket/videos/x.mp4",
			want: "https://storage.googleapis.com/bucket/videos/x.mp4",
		},
		{
			name: "already public unchanged",
			uri:  "https://already/public",
			want: "https://already/public",
		},
		{
			name:       "custom public host",
			uri:        "gs://bucket/key",
			publicHost: "cdn.example.com",
			want:       "https://cdn.example.com/bucket/key",
		},
		{
			name: "plain path unchanged",
			uri:  "videos/local.mp4",
			want: "videos/local.mp4",
		},
		{
			name: "empty string unchanged",
			uri:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURI(tt.uri, tt.publicHost); got != tt.want {
				t.Errorf("NormalizeURI(%q, %q) = %q, want %q", tt.uri, tt.publicHost, got, tt.want)
			}
		})
	}
}
