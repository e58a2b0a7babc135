package lumen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/lumenlabs/lumen-go/sse"
)

// doneSentinel is the payload value that signals normal end-of-stream.
const doneSentinel = "[DONE]"

// readBufferSize is the size of the chunk buffer used to pull bytes from
// the response body. Frames larger than this simply span multiple reads.
const readBufferSize = 4096

// EventStream is a pull-based sequence of task events decoded from an
// in-flight SSE response. No work happens until Next is called.
//
// Next returns io.EOF once the stream has ended normally (terminator
// payload or end of body). A *DecodeError return is recoverable: it
// reports one malformed payload and the caller may keep calling Next to
// consume the remaining events. Any other error is terminal.
//
// An EventStream is owned by a single goroutine; it holds no shared state
// and requires no locking. Callers that stop early must Close the stream
// to release the underlying connection.
type EventStream[E any] struct {
	ctx       context.Context
	body      io.ReadCloser
	cancel    context.CancelFunc
	translate func(payload []byte) (E, bool, error)

	asm   sse.Assembler
	buf   []byte
	queue []string // extracted payloads not yet decoded

	done bool  // terminator seen or body exhausted
	err  error // terminal error, if any
}

func newEventStream[E any](ctx context.Context, body io.ReadCloser, cancel context.CancelFunc, translate func([]byte) (E, bool, error)) *EventStream[E] {
	return &EventStream[E]{
		ctx:       ctx,
		body:      body,
		cancel:    cancel,
		translate: translate,
		buf:       make([]byte, readBufferSize),
	}
}

// Next returns the next event. Events appear in the exact order their
// frames arrived on the wire.
func (s *EventStream[E]) Next() (E, error) {
	var zero E
	if s.err != nil {
		return zero, s.err
	}

	for {
		// Drain payloads already extracted before reading more bytes.
		// Frames assembled from a chunk that also carried the
		// terminator are still delivered; everything after the
		// terminator is not.
		for len(s.queue) > 0 {
			payload := s.queue[0]
			s.queue = s.queue[1:]

			if payload == doneSentinel {
				s.done = true
				s.queue = nil
				return zero, io.EOF
			}

			evt, ok, err := s.translate([]byte(payload))
			if err != nil {
				// Recoverable: report this payload, keep the
				// rest of the stream intact.
				return zero, err
			}
			if !ok {
				continue
			}
			return evt, nil
		}

		if s.done {
			return zero, io.EOF
		}

		n, err := s.body.Read(s.buf)
		if n > 0 {
			for _, frame := range s.asm.Feed(s.buf[:n]) {
				if payload, ok := sse.Data(frame); ok {
					s.queue = append(s.queue, payload)
				}
			}
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			s.done = true
		default:
			// Reads aborted by context expiry do not always surface
			// the context error; prefer it when present.
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			s.err = classifyTransport(err)
			return zero, s.err
		}
	}
}

// Close releases the underlying response body and cancels the request.
// It is safe to call at any point, including before the stream is drained.
func (s *EventStream[E]) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.body.Close()
}

// Collect drains the stream into a slice of events, skipping recoverable
// decode errors. It returns the events read so far alongside any terminal
// error other than io.EOF.
func (s *EventStream[E]) Collect() ([]E, error) {
	var events []E
	for {
		evt, err := s.Next()
		if err == io.EOF {
			return events, nil
		}
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			continue
		}
		if err != nil {
			return events, err
		}
		events = append(events, evt)
	}
}

// classifyTransport distinguishes deadline expiry from other transport
// failures so callers can tell "server too slow" from "connection broken".
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("reading stream: %w", err)
}

// decodeAndTranslate builds the translate step for a task: JSON-decode the
// payload into the task's body shape, then apply the task's translator.
func decodeAndTranslate[B, E any](task StreamTask[B, E]) func([]byte) (E, bool, error) {
	return func(payload []byte) (E, bool, error) {
		var zero E
		var body B
		if err := json.Unmarshal(payload, &body); err != nil {
			return zero, false, &DecodeError{Raw: string(payload), cause: err}
		}
		evt, ok := task.Translate(body)
		return evt, ok, nil
	}
}
