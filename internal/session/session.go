// Package session implements the per-session streaming state machine and
// the registry that owns the ordered session collection.
package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/multichat-ai/multichat/internal/event"
	"github.com/multichat-ai/multichat/internal/logging"
	"github.com/multichat-ai/multichat/internal/request"
	"github.com/multichat-ai/multichat/internal/settings"
	"github.com/multichat-ai/multichat/internal/stream"
	"github.com/multichat-ai/multichat/pkg/types"
)

// Handle is one live token stream as the session consumes it.
type Handle interface {
	Recv() (string, error)
	Completion() *types.Completion
	Cancel()
}

// Streamer opens token streams against the inference endpoint.
type Streamer interface {
	Start(ctx context.Context, req types.InferenceRequest, auth stream.Auth) (Handle, error)
}

// ClientStreamer adapts a stream.Client to the Streamer interface.
type ClientStreamer struct {
	Client *stream.Client
}

func (s ClientStreamer) Start(ctx context.Context, req types.InferenceRequest, auth stream.Auth) (Handle, error) {
	handle, err := s.Client.Start(ctx, req, auth)
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// UsageRecorder delivers usage records to the telemetry collaborator.
type UsageRecorder interface {
	Record(ctx context.Context, record types.UsageRecord) error
}

// ChatSession is one independent conversation: its messages, settings,
// selected deployment, and at most one in-flight stream. All state is
// guarded by the session's own mutex; sessions share no locks.
type ChatSession struct {
	mu sync.Mutex

	session    *types.Session
	deployment *types.Deployment
	messages   []*types.Message

	bearerToken string
	lastError   *types.MessageError
	lastRequest *types.InferenceRequest

	current *flight

	streamer Streamer
	recorder UsageRecorder
	saver    Saver
}

// flight is one attempt to stream an assistant turn. Cancellation runs at
// most once per flight regardless of how many paths request it.
type flight struct {
	ctx       context.Context
	cancelCtx context.CancelFunc
	once      sync.Once

	mu       sync.Mutex
	handle   Handle
	canceled bool

	request   types.InferenceRequest
	prompt    string
	assistant *types.Message
	started   time.Time
}

func newFlight(req types.InferenceRequest, prompt string) *flight {
	ctx, cancel := context.WithCancel(context.Background())
	return &flight{
		ctx:       ctx,
		cancelCtx: cancel,
		request:   req,
		prompt:    prompt,
		started:   time.Now(),
	}
}

// cancel aborts the flight exactly once: the context covers the connecting
// phase, the handle covers an established stream.
func (f *flight) cancel() {
	f.once.Do(func() {
		f.mu.Lock()
		f.canceled = true
		handle := f.handle
		f.mu.Unlock()

		f.cancelCtx()
		if handle != nil {
			handle.Cancel()
		}
	})
}

func (f *flight) setHandle(h Handle) {
	f.mu.Lock()
	f.handle = h
	canceled := f.canceled
	f.mu.Unlock()

	// Cancel raced the connect; the handle must not outlive the flight.
	if canceled {
		h.Cancel()
	}
}

func newChatSession(sess *types.Session, streamer Streamer, recorder UsageRecorder, saver Saver) *ChatSession {
	return &ChatSession{
		session:  sess,
		streamer: streamer,
		recorder: recorder,
		saver:    saver,
	}
}

// ID returns the session's immutable identifier.
func (c *ChatSession) ID() string {
	return c.session.ID
}

// Snapshot returns a copy of the session record.
func (c *ChatSession) Snapshot() types.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := *c.session
	snap.Settings = c.session.Settings.Clone()
	return snap
}

// Status returns the session's current lifecycle state.
func (c *ChatSession) Status() types.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Status
}

// Messages returns the message history in append order. Each entry is a
// copy taken under the session mutex, so renderers never observe the
// in-flight assistant message mid-growth.
func (c *ChatSession) Messages() []*types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*types.Message, len(c.messages))
	for i, msg := range c.messages {
		copied := *msg
		out[i] = &copied
	}
	return out
}

// LastError returns the classified error of the last failed turn, or nil.
func (c *ChatSession) LastError() *types.MessageError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// SelectDeployment binds the session to a deployment. Sessions hold a
// read-only reference; the deployment itself is owned externally.
func (c *ChatSession) SelectDeployment(d *types.Deployment) {
	c.mu.Lock()
	c.deployment = d
	if d != nil {
		c.session.DeploymentID = d.ID
	} else {
		c.session.DeploymentID = ""
	}
	c.touchLocked()
	snap := *c.session
	c.mu.Unlock()

	event.Publish(event.Event{Type: event.SessionUpdated, Data: event.SessionUpdatedData{Session: &snap}})
	c.save(&snap)
}

// SetBearerToken installs a session-scoped bearer token. When set it takes
// precedence over the deployment API key.
func (c *ChatSession) SetBearerToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bearerToken = token
}

// UpdateSetting validates and commits one settings field change through the
// synchronizer, into this session's settings only.
func (c *ChatSession) UpdateSetting(ctx context.Context, synchronizer *settings.Synchronizer, field settings.Field, value any) error {
	c.mu.Lock()
	err := synchronizer.UpdateField(ctx, c.session, field, value)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.touchLocked()
	snap := *c.session
	c.mu.Unlock()

	event.Publish(event.Event{Type: event.SessionUpdated, Data: event.SessionUpdatedData{Session: &snap}})
	return nil
}

// BuildRequest derives the request body the next submit would send.
func (c *ChatSession) BuildRequest() types.InferenceRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return request.Build(c.deployment, c.session.Settings, request.Messages(c.messages))
}

// Submit appends a user message and starts streaming the assistant reply.
// An in-flight stream from a previous submit is canceled exactly once
// before the new one starts.
func (c *ChatSession) Submit(ctx context.Context, text string) error {
	c.mu.Lock()

	if c.deployment == nil {
		c.mu.Unlock()
		return &stream.Error{Kind: stream.KindValidation, Message: "no deployment selected"}
	}
	if text == "" {
		c.mu.Unlock()
		return &stream.Error{Kind: stream.KindValidation, Message: "empty message"}
	}

	prev := c.current
	c.current = nil

	userMsg := &types.Message{
		ID:        generateID(),
		SessionID: c.session.ID,
		Role:      "user",
		Content:   text,
		Time:      types.MessageTime{Created: time.Now().UnixMilli()},
	}
	c.messages = append(c.messages, userMsg)

	req := request.Build(c.deployment, c.session.Settings, request.Messages(c.messages))
	c.lastRequest = &req
	c.lastError = nil

	f := newFlight(req, text)
	c.current = f

	c.session.Status = types.StatusSubmitted
	c.touchLocked()
	snap := *c.session
	c.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}

	event.Publish(event.Event{Type: event.MessageCreated, Data: event.MessageCreatedData{Message: userMsg}})
	event.Publish(event.Event{Type: event.SessionUpdated, Data: event.SessionUpdatedData{Session: &snap}})
	c.save(&snap)
	c.saveMessage(userMsg)

	go c.run(f)
	return nil
}

// Retry re-issues the identical failed request. Valid only from the error
// state; the original prompt is preserved in the history, never re-appended.
func (c *ChatSession) Retry(ctx context.Context) error {
	c.mu.Lock()

	if c.session.Status != types.StatusError {
		c.mu.Unlock()
		return errors.New("retry is only valid after a failed turn")
	}
	if c.lastRequest == nil {
		c.mu.Unlock()
		return errors.New("no request to retry")
	}

	prompt := ""
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == "user" {
			prompt = c.messages[i].Content
			break
		}
	}

	f := newFlight(*c.lastRequest, prompt)
	c.current = f
	c.lastError = nil

	c.session.Status = types.StatusSubmitted
	c.touchLocked()
	snap := *c.session
	c.mu.Unlock()

	event.Publish(event.Event{Type: event.SessionUpdated, Data: event.SessionUpdatedData{Session: &snap}})

	go c.run(f)
	return nil
}

// Stop aborts the in-flight stream, keeping any partial assistant content.
// The session ends done, or idle when no bytes arrived. Safe to call any
// number of times.
func (c *ChatSession) Stop() {
	c.mu.Lock()
	f := c.current
	if f == nil {
		c.mu.Unlock()
		return
	}
	c.current = nil

	if f.assistant != nil {
		c.session.Status = types.StatusDone
	} else {
		c.session.Status = types.StatusIdle
	}
	c.touchLocked()
	snap := *c.session
	c.mu.Unlock()

	f.cancel()

	event.Publish(event.Event{Type: event.SessionUpdated, Data: event.SessionUpdatedData{Session: &snap}})
	c.save(&snap)
}

// run consumes one stream from connect to terminal event.
func (c *ChatSession) run(f *flight) {
	auth := c.authContext()

	handle, err := c.streamer.Start(f.ctx, f.request, auth)
	if err != nil {
		c.onError(f, err)
		return
	}
	f.setHandle(handle)

	for {
		delta, err := handle.Recv()
		switch {
		case err == nil:
			c.onDelta(f, delta)
		case errors.Is(err, io.EOF):
			c.onFinish(f, handle.Completion())
			return
		case errors.Is(err, stream.ErrCanceled):
			return
		default:
			c.onError(f, err)
			return
		}
	}
}

func (c *ChatSession) authContext() stream.Auth {
	c.mu.Lock()
	defer c.mu.Unlock()

	auth := stream.Auth{BearerToken: c.bearerToken}
	if c.deployment != nil {
		auth.APIKey = c.deployment.APIKey
	}
	return auth
}

// onDelta appends one chunk to the in-progress assistant message. The first
// delta moves the session from submitted to streaming and creates the
// assistant message.
func (c *ChatSession) onDelta(f *flight, text string) {
	c.mu.Lock()
	if c.current != f {
		c.mu.Unlock()
		return
	}

	var created *types.Message
	if f.assistant == nil {
		f.assistant = &types.Message{
			ID:           generateID(),
			SessionID:    c.session.ID,
			Role:         "assistant",
			DeploymentID: c.session.DeploymentID,
			Time:         types.MessageTime{Created: time.Now().UnixMilli()},
		}
		c.messages = append(c.messages, f.assistant)
		c.session.Status = types.StatusStreaming
		// Subscribers get a copy; the live message keeps growing under
		// the session mutex.
		copied := *f.assistant
		created = &copied
	}

	f.assistant.Content += text
	messageID := f.assistant.ID
	var snap *types.Session
	if created != nil {
		s := *c.session
		snap = &s
	}
	c.mu.Unlock()

	if created != nil {
		event.Publish(event.Event{Type: event.MessageCreated, Data: event.MessageCreatedData{Message: created}})
		event.Publish(event.Event{Type: event.SessionUpdated, Data: event.SessionUpdatedData{Session: snap}})
	}
	event.Publish(event.Event{Type: event.StreamDelta, Data: event.StreamDeltaData{
		SessionID: c.session.ID,
		MessageID: messageID,
		Delta:     text,
	}})
}

// onFinish completes the turn: records usage on the assistant message and
// hands the usage record to telemetry off the hot path.
func (c *ChatSession) onFinish(f *flight, completion *types.Completion) {
	if completion == nil {
		completion = &types.Completion{}
	}

	c.mu.Lock()
	if c.current != f {
		c.mu.Unlock()
		return
	}
	c.current = nil

	if f.assistant == nil {
		f.assistant = &types.Message{
			ID:           generateID(),
			SessionID:    c.session.ID,
			Role:         "assistant",
			DeploymentID: c.session.DeploymentID,
			Time:         types.MessageTime{Created: time.Now().UnixMilli()},
		}
		c.messages = append(c.messages, f.assistant)
	}

	reason := completion.FinishReason
	usage := completion.Usage
	f.assistant.Finish = &reason
	f.assistant.Usage = &usage
	now := time.Now().UnixMilli()
	f.assistant.Time.Updated = &now

	c.session.Status = types.StatusDone
	c.session.TotalTokens += usage.TotalTokens
	c.touchLocked()

	snap := *c.session
	assistant := f.assistant
	record := types.UsageRecord{
		ChatSessionID: c.session.ID,
		DeploymentID:  c.session.DeploymentID,
		E2ELatency:    usage.E2ELatency,
		InputTokens:   usage.InputTokens,
		OutputTokens:  usage.OutputTokens,
		Prompt:        f.prompt,
		Response:      f.assistant.Content,
		TokenPerSec:   usage.TokenPerSec,
		TotalTokens:   usage.TotalTokens,
		TPOT:          usage.TPOT,
		TTFT:          usage.TTFT,
	}
	c.mu.Unlock()

	event.Publish(event.Event{Type: event.StreamFinished, Data: event.StreamFinishedData{
		SessionID:  snap.ID,
		MessageID:  assistant.ID,
		Completion: *completion,
	}})
	event.Publish(event.Event{Type: event.SessionUpdated, Data: event.SessionUpdatedData{Session: &snap}})

	c.save(&snap)
	c.saveMessage(assistant)

	if c.recorder != nil {
		go c.recordUsage(record)
	}
}

// onError moves the session to the error state with a classified reason.
// Partial assistant content stays in the history.
func (c *ChatSession) onError(f *flight, err error) {
	classified := stream.AsError(err)

	c.mu.Lock()
	if c.current != f {
		c.mu.Unlock()
		return
	}
	c.current = nil

	c.lastError = &types.MessageError{
		Kind:      string(classified.Kind),
		Message:   classified.Message,
		Retryable: classified.Retryable(),
	}
	if f.assistant != nil {
		f.assistant.Error = c.lastError
	}

	c.session.Status = types.StatusError
	c.touchLocked()
	snap := *c.session
	c.mu.Unlock()

	logging.Warn().
		Str("sessionID", snap.ID).
		Str("kind", string(classified.Kind)).
		Str("error", classified.Message).
		Msg("stream failed")

	event.Publish(event.Event{Type: event.StreamError, Data: event.StreamErrorData{
		SessionID: snap.ID,
		Kind:      string(classified.Kind),
		Message:   classified.Message,
		Retryable: classified.Retryable(),
	}})
	event.Publish(event.Event{Type: event.SessionUpdated, Data: event.SessionUpdatedData{Session: &snap}})
	c.save(&snap)
}

// recordUsage delivers one usage record, retrying briefly before dropping
// it. Telemetry failure never alters the session's done status.
func (c *ChatSession) recordUsage(record types.UsageRecord) {
	op := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return c.recorder.Record(ctx, record)
	}

	if err := retryBriefly(op); err != nil {
		logging.Warn().
			Err(err).
			Str("sessionID", record.ChatSessionID).
			Msg("usage record dropped")
	}
}

func (c *ChatSession) touchLocked() {
	now := time.Now().UnixMilli()
	c.session.Time.Updated = &now
}

func (c *ChatSession) save(snap *types.Session) {
	if c.saver == nil {
		return
	}
	go c.saver.SaveSession(snap)
}

func (c *ChatSession) saveMessage(msg *types.Message) {
	if c.saver == nil {
		return
	}
	copied := *msg
	go c.saver.SaveMessage(&copied)
}

// generateID returns a new ULID.
func generateID() string {
	return ulid.Make().String()
}
