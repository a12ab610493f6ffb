package music

import "testing"

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch url extra params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short url with params", "https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ"},
		{"shorts url", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"no scheme", "youtube.com/watch?v=dQw4w9WgXcQ", ""},
		{"plain search terms", "never gonna give you up", ""},
		{"empty", "", ""},
		{"bad id length", "https://youtu.be/short", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractVideoID(tt.query); got != tt.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}
