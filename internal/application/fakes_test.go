package application

import (
	"context"
	"sync"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []AccountEvent
}

func (n *recordingNotifier) Notify(_ context.Context, ev AccountEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakePublisher struct {
	bodies []any
	err    error
}

func (p *fakePublisher) PublishJSON(_ context.Context, body any) error {
	if p.err != nil {
		return p.err
	}
	p.bodies = append(p.bodies, body)
	return nil
}
