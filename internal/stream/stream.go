package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/multichat-ai/multichat/pkg/types"
)

// ErrCanceled is returned by Recv after the stream has been canceled.
var ErrCanceled = errors.New("stream canceled")

// deltaFrame is the payload of a "delta" event.
type deltaFrame struct {
	Text string `json:"text"`
}

// errorFrame is the payload of an "error" event.
type errorFrame struct {
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

// Stream is one live token-delta stream. Deltas are delivered in arrival
// order via Recv; the closing event's usage and finish reason are available
// through Completion once Recv has returned io.EOF.
type Stream struct {
	body    io.ReadCloser
	cancel  context.CancelFunc
	scanner *bufio.Scanner

	stallTimeout time.Duration
	stallTimer   *time.Timer
	stalled      atomic.Bool
	canceled     atomic.Bool

	releaseOnce sync.Once
	completion  *types.Completion
}

func newStream(body io.ReadCloser, cancel context.CancelFunc, stallTimeout time.Duration) *Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	s := &Stream{
		body:         body,
		cancel:       cancel,
		scanner:      scanner,
		stallTimeout: stallTimeout,
	}

	// A stall mid-stream severs the connection, which unblocks the reader.
	s.stallTimer = time.AfterFunc(stallTimeout, func() {
		s.stalled.Store(true)
		s.release()
	})

	return s
}

// Recv returns the next text delta. It returns io.EOF after the finish
// event, ErrCanceled after Cancel, and a classified *Error on failure.
func (s *Stream) Recv() (string, error) {
	for {
		name, data, err := s.nextFrame()
		if err != nil {
			return "", err
		}

		switch name {
		case "delta":
			var frame deltaFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				return "", &Error{Kind: KindParse, Message: err.Error()}
			}
			s.stallTimer.Reset(s.stallTimeout)
			return frame.Text, nil

		case "finish":
			var completion types.Completion
			if err := json.Unmarshal(data, &completion); err != nil {
				return "", &Error{Kind: KindParse, Message: err.Error()}
			}
			s.completion = &completion
			s.release()
			return "", io.EOF

		case "error":
			var frame errorFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				return "", &Error{Kind: KindParse, Message: err.Error()}
			}
			s.release()
			kind := KindProvider
			if frame.Status > 0 {
				kind = ClassifyStatus(frame.Status)
			}
			return "", &Error{Kind: kind, Status: frame.Status, Message: frame.Message}

		default:
			// Unknown event types and heartbeats are skipped
			s.stallTimer.Reset(s.stallTimeout)
		}
	}
}

// nextFrame reads one SSE frame (event name + data) from the wire.
func (s *Stream) nextFrame() (string, []byte, error) {
	var name string
	var data []byte

	for s.scanner.Scan() {
		line := s.scanner.Text()

		switch {
		case line == "":
			if name != "" || len(data) > 0 {
				return name, data, nil
			}
		case strings.HasPrefix(line, ":"):
			// comment/heartbeat
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:"))...)
		}
	}

	return "", nil, s.readError()
}

// readError maps a terminated read to the right classified error.
func (s *Stream) readError() error {
	if s.canceled.Load() {
		return ErrCanceled
	}
	if s.stalled.Load() {
		return &Error{Kind: KindNetwork, Message: "stream stalled: no data within timeout window"}
	}
	if err := s.scanner.Err(); err != nil {
		return &Error{Kind: KindNetwork, Message: err.Error()}
	}
	// Server closed the stream without a finish event
	return &Error{Kind: KindProvider, Message: "stream ended without finish event"}
}

// Completion returns the closing event's payload, or nil if the stream has
// not finished cleanly.
func (s *Stream) Completion() *types.Completion {
	return s.completion
}

// Cancel terminates the transport immediately. It is idempotent, releases
// all resources, and never rolls back already-received content.
func (s *Stream) Cancel() {
	s.canceled.Store(true)
	s.release()
}

// Close releases the stream's resources. Safe after EOF and after Cancel.
func (s *Stream) Close() {
	s.release()
}

func (s *Stream) release() {
	s.releaseOnce.Do(func() {
		s.stallTimer.Stop()
		s.cancel()
		s.body.Close()
	})
}
