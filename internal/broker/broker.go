// Package broker correlates outbound GS↔LS requests with their eventual
// replies. A handler on one side of a long-lived peer connection calls
// Send/Ask to push a packet at a peer (or all peers); the matching inbound
// reply, once decoded and dispatched by the caller's own packet loop, is
// handed back to the broker via Respond so the waiting goroutine can resume.
//
// The broker keeps a single inbox map keyed by receiver and request id,
// sweeps stale entries inline on every send (no separate ticker goroutine),
// and closes a pre-existing entry sharing the new key before the new one is
// installed.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Sink is whatever the caller's transport uses to push bytes at a peer.
// login.Client, gslistener.GSConnection, etc. all qualify.
type Sink interface {
	Send(body []byte) error
}

// Registry resolves a receiver id to its current sink and enumerates all of
// them for fan-out. Implemented by registry.HandlerRegistry.
type Registry[K comparable] interface {
	Get(id K) (Sink, bool)
	Snapshot() map[K]Sink
}

// request is a single in-flight delivery awaiting a reply.
type request struct {
	id      string
	sentAt  time.Time
	reply   chan *Reply
}

// Reply is what a successful Ask/AskAll resolves with. ReceiverID names
// which peer actually answered (useful for AskAll, where any of several
// peers may reply to the same correlation id); Body is the decoded packet
// the caller's handler passed to Respond.
type Reply struct {
	ReceiverID any
	Body       any
}

// Broker owns the inbox of in-flight requests for one logical set of peers
// (e.g. "all registered game servers"). One Broker instance is shared by
// every session on that side of the connection.
type Broker[K comparable] struct {
	mu      sync.Mutex
	inbox   map[string]*request
	timeout time.Duration
	peers   Registry[K]
}

// New creates a Broker whose entries expire after timeout if unanswered.
func New[K comparable](peers Registry[K], timeout time.Duration) *Broker[K] {
	return &Broker[K]{
		inbox:   make(map[string]*request),
		timeout: timeout,
		peers:   peers,
	}
}

// sweep evicts inbox entries older than the configured timeout, resolving
// their waiters with nil. Must be called with mu held.
func (b *Broker[K]) sweep() {
	now := time.Now()
	for id, req := range b.inbox {
		if now.Sub(req.sentAt) > b.timeout {
			delete(b.inbox, id)
			if req.reply != nil {
				req.reply <- nil
				close(req.reply)
			}
		}
	}
}

// closeExisting removes and closes any inbox entry already using id,
// resolving its waiter with nil. Must be called with mu held.
func (b *Broker[K]) closeExisting(id string) {
	if old, ok := b.inbox[id]; ok {
		delete(b.inbox, id)
		if old.reply != nil {
			old.reply <- nil
			close(old.reply)
		}
	}
}

// inboxKey names the inbox slot for one receiver's answer to id, so an
// AskAll fan-out sharing one correlation id keeps a slot per peer.
func inboxKey[K comparable](receiver K, id string) string {
	return fmt.Sprintf("%v/%s", receiver, id)
}

// Send delivers body to receiver fire-and-forget; no reply is awaited.
func (b *Broker[K]) Send(receiver K, body []byte) error {
	sink, ok := b.peers.Get(receiver)
	if !ok {
		return fmt.Errorf("broker: no sink registered for receiver %v", receiver)
	}
	b.mu.Lock()
	b.sweep()
	b.mu.Unlock()
	return sink.Send(body)
}

// Ask delivers body to receiver and blocks until a matching
// Respond(receiver, id, ...) arrives, the context is cancelled, or the
// broker's timeout elapses — in which case it returns (nil, nil): a timeout
// is not an error, it is a valid "no answer" outcome the caller must handle.
func (b *Broker[K]) Ask(ctx context.Context, receiver K, id string, body []byte) (*Reply, error) {
	sink, ok := b.peers.Get(receiver)
	if !ok {
		return nil, fmt.Errorf("broker: no sink registered for receiver %v", receiver)
	}

	key := inboxKey(receiver, id)
	replyCh := make(chan *Reply, 1)
	b.mu.Lock()
	b.sweep()
	b.closeExisting(key)
	b.inbox[key] = &request{id: id, sentAt: time.Now(), reply: replyCh}
	b.mu.Unlock()

	if err := sink.Send(body); err != nil {
		b.mu.Lock()
		delete(b.inbox, key)
		b.mu.Unlock()
		return nil, err
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()
	select {
	case r := <-replyCh:
		return r, nil
	case <-timer.C:
		b.mu.Lock()
		delete(b.inbox, key)
		b.mu.Unlock()
		return nil, nil
	case <-ctx.Done():
		b.mu.Lock()
		delete(b.inbox, key)
		b.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Respond resolves receiver's pending request named id with reply, handing
// it to whichever goroutine is blocked in Ask/AskAll. A missing entry
// (already timed out, already answered, or never asked) is silently ignored.
func (b *Broker[K]) Respond(receiver K, id string, body any) {
	key := inboxKey(receiver, id)
	b.mu.Lock()
	req, ok := b.inbox[key]
	if ok {
		delete(b.inbox, key)
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	req.reply <- &Reply{ReceiverID: receiver, Body: body}
	close(req.reply)
}

// SendToAll fans body out to every currently-registered peer,
// fire-and-forget. Errors from individual sinks are collected but do not
// stop delivery to the rest.
func (b *Broker[K]) SendToAll(body []byte) []error {
	snapshot := b.peers.Snapshot()
	var mu sync.Mutex
	var errs []error
	var wg sync.WaitGroup
	for id, sink := range snapshot {
		wg.Add(1)
		go func(id K, sink Sink) {
			defer wg.Done()
			if err := sink.Send(body); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("receiver %v: %w", id, err))
				mu.Unlock()
			}
		}(id, sink)
	}
	wg.Wait()
	return errs
}

// AskAll fans the same correlation id out to every currently-registered
// peer and collects whichever replies arrive before the broker timeout.
// Peers that never answer contribute a nil entry rather than failing the
// whole call, so a ServerList assembled from a RequestChars fan-out just
// omits the silent GS. One errgroup per call runs one goroutine per peer,
// so a single slow peer does not stall the others.
func (b *Broker[K]) AskAll(ctx context.Context, correlationID string, bodyFor func(K) []byte) []*Reply {
	snapshot := b.peers.Snapshot()
	replies := make([]*Reply, len(snapshot))
	ids := make([]K, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			r, err := b.Ask(gctx, id, correlationID, bodyFor(id))
			if err != nil {
				return nil // per-peer error is not fatal to the fan-out
			}
			replies[i] = r
			return nil
		})
	}
	_ = g.Wait()
	return replies
}

// NewCorrelationID mints a fresh id for a non-correlated notify.
func NewCorrelationID() string {
	return uuid.NewString()
}
