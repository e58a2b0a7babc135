// Package sse reassembles server-sent event frames from a stream of raw
// byte chunks.
//
// For SSE the blank line, not the TCP/HTTP chunk boundary, is the event
// boundary: a single frame may arrive split across many chunks, and a
// single chunk may carry many frames. The [Assembler] buffers at most one
// partial frame worth of text between chunks and drains every complete
// frame as soon as its terminator has been seen.
package sse

import "strings"

// terminator separates frames on the wire. Carriage returns are
// normalized away on input, so a single form suffices.
const terminator = "\n\n"

// dataPrefix marks the payload field of a frame. Other fields (event, id,
// retry) carry metadata the client does not need.
const dataPrefix = "data: "

// Assembler accumulates byte chunks and produces complete frames.
// The zero value is ready to use. An Assembler is not safe for concurrent
// use; each stream owns exactly one.
type Assembler struct {
	buf strings.Builder
	// pendingCR holds back a chunk-final '\r' so a "\r\n" pair split
	// across two chunks still normalizes to a single newline.
	pendingCR bool
}

// Feed appends one chunk to the internal buffer and returns all frames the
// chunk completed, in arrival order. The returned slice is nil when the
// buffered text does not yet contain a full frame. Feed never fails: it
// reshapes byte boundaries and performs no interpretation of the content.
//
// Both "\n" and "\r\n" line endings are accepted and treated identically,
// regardless of where chunk boundaries fall.
func (a *Assembler) Feed(chunk []byte) []string {
	text := string(chunk)
	if a.pendingCR {
		text = "\r" + text
		a.pendingCR = false
	}
	if strings.HasSuffix(text, "\r") {
		text = text[:len(text)-1]
		a.pendingCR = true
	}
	a.buf.WriteString(strings.ReplaceAll(text, "\r\n", "\n"))

	buffered := a.buf.String()
	if !strings.Contains(buffered, terminator) {
		return nil
	}

	var frames []string
	for {
		i := strings.Index(buffered, terminator)
		if i < 0 {
			break
		}
		frames = append(frames, buffered[:i])
		buffered = buffered[i+len(terminator):]
	}
	a.buf.Reset()
	a.buf.WriteString(buffered)
	return frames
}

// Pending reports whether the assembler holds partial, not-yet-framed text.
func (a *Assembler) Pending() bool {
	return a.buf.Len() > 0 || a.pendingCR
}

// Data extracts the payload of a frame: the content of its first data
// field. It returns ok=false for frames that carry no data field, which is
// valid SSE (comment or metadata-only frames) and should be skipped.
func Data(frame string) (payload string, ok bool) {
	for _, line := range strings.Split(frame, "\n") {
		if p, found := strings.CutPrefix(line, dataPrefix); found {
			return p, true
		}
	}
	return "", false
}
