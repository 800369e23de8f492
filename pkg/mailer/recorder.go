package mailer

import (
	"context"
	"sync"
)

// Recorder is an in-memory Mailer for tests and local development.
type Recorder struct {
	mtx  sync.Mutex
	sent []Message

	// FailFor lists recipients whose sends should fail.
	FailFor map[string]error
}

// NewRecorder builds an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{FailFor: make(map[string]error)}
}

// Send records the message, failing only for configured recipients.
func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if err, ok := r.FailFor[msg.To]; ok {
		return err
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (r *Recorder) Sent() []Message {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}
