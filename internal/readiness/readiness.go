// Package readiness detects the local URL a web server prints once it is listening.
package readiness

import "regexp"

// URLPattern matches the address the server announces on stdout.
var URLPattern = regexp.MustCompile(`http://localhost:\d+`)

// Match searches a single output chunk for the readiness URL.
// Text is not carried over between chunks, so a URL split across two
// writes is never reported.
func Match(chunk []byte) (string, bool) {
	loc := URLPattern.FindIndex(chunk)
	if loc == nil {
		return "", false
	}
	return string(chunk[loc[0]:loc[1]]), true
}

// Detector remembers the first URL observed across a stream of chunks.
type Detector struct {
	url   string
	found bool
}

// Observe matches one chunk. first is true only for the chunk that produced
// the first match of the stream.
func (d *Detector) Observe(chunk []byte) (url string, first bool) {
	url, ok := Match(chunk)
	if !ok {
		return "", false
	}
	if d.found {
		return url, false
	}
	d.url = url
	d.found = true
	return url, true
}

// URL returns the first matched URL, if any.
func (d *Detector) URL() (string, bool) {
	return d.url, d.found
}

// Reset forgets the first match, used when a new child is spawned.
func (d *Detector) Reset() {
	d.url = ""
	d.found = false
}
