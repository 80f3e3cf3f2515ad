package readiness

import (
	"strings"
	"testing"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name   string
		chunk  string
		want   string
		wantOK bool
	}{
		{
			name:   "streamlit banner",
			chunk:  "\n  You can now view your Streamlit app in your browser.\n\n  Local URL: http://localhost:8501\n",
			want:   "http://localhost:8501",
			wantOK: true,
		},
		{
			name:   "first of two urls",
			chunk:  "http://localhost:8501 and http://localhost:8502",
			want:   "http://localhost:8501",
			wantOK: true,
		},
		{
			name:   "url with path keeps only host and port",
			chunk:  "open http://localhost:3000/app now",
			want:   "http://localhost:3000",
			wantOK: true,
		},
		{name: "network url is not local", chunk: "Network URL: http://192.168.1.4:8501", wantOK: false},
		{name: "https is not matched", chunk: "https://localhost:8501", wantOK: false},
		{name: "missing port", chunk: "http://localhost/", wantOK: false},
		{name: "empty", chunk: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Match([]byte(tt.chunk))
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Match(%q) = (%q, %v), want (%q, %v)", tt.chunk, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// A URL split across two chunks is not reassembled: matching is per chunk.
func TestMatch_SplitAcrossChunks(t *testing.T) {
	const full = "http://localhost:8501"
	output := "You can now view your app at:\n" + full + "\n"
	urlStart := strings.Index(output, full)
	portStart := urlStart + len("http://localhost:")
	urlEnd := urlStart + len(full)

	for cut := urlStart + 1; cut < urlEnd; cut++ {
		var d Detector
		d.Observe([]byte(output[:cut]))
		d.Observe([]byte(output[cut:]))
		url, found := d.URL()

		switch {
		case cut <= portStart:
			// Neither half carries a port: nothing is detected.
			if found {
				t.Errorf("cut %d: URL() = %q, want no match", cut, url)
			}
		default:
			// The first half ends inside the port, so only a truncated
			// port is seen.
			want := output[urlStart:cut]
			if !found || url != want {
				t.Errorf("cut %d: URL() = (%q, %v), want (%q, true)", cut, url, found, want)
			}
		}
	}

	// Splitting right after the port digits keeps the URL intact.
	var d Detector
	d.Observe([]byte(output[:urlEnd]))
	d.Observe([]byte(output[urlEnd:]))
	if url, found := d.URL(); !found || url != full {
		t.Errorf("URL() = (%q, %v), want (%q, true)", url, found, full)
	}
}

func TestDetector_FirstMatchWins(t *testing.T) {
	var d Detector

	if _, first := d.Observe([]byte("starting...")); first {
		t.Fatal("Observe reported first match for chunk without URL")
	}

	url, first := d.Observe([]byte("Local URL: http://localhost:8501"))
	if !first || url != "http://localhost:8501" {
		t.Fatalf("Observe = (%q, %v), want (%q, true)", url, first, "http://localhost:8501")
	}

	url, first = d.Observe([]byte("Local URL: http://localhost:9999"))
	if first {
		t.Errorf("second match reported as first")
	}
	if url != "http://localhost:9999" {
		t.Errorf("Observe = %q, want later URL to still be reported", url)
	}

	if got, _ := d.URL(); got != "http://localhost:8501" {
		t.Errorf("URL() = %q, want first match", got)
	}

	d.Reset()
	if _, found := d.URL(); found {
		t.Error("URL() found after Reset")
	}
}
