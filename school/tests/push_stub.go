package tests

import (
	"context"
	"errors"
	"school_platform/school/email"
	"school_platform/school/push"
	"sync"
)

// PushStub records multicast calls so tests can assert on fan-out, and can be
// told to fail every send to verify that primary writes never depend on push
// delivery.
type PushStub struct {
	mu    sync.Mutex
	calls [][]string
	fail  bool
}

func (p *PushStub) SendMulticast(ctx context.Context, tokens []string, note push.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, tokens)
	if p.fail {
		return errors.New("push delivery failed")
	}
	return nil
}

func (p *PushStub) Calls() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *PushStub) FailAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = true
}

type EmailStub struct {
	mu   sync.Mutex
	sent []email.Message
}

func (e *EmailStub) Send(msg email.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, msg)
}

func (e *EmailStub) Sent() []email.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sent
}
