// Package bot provides the engine's worker primitive: an addressable
// goroutine with a single inbound message queue, plus a registry of
// worker handles owned by a zone supervisor.
//
// Every concurrent activity in the engine — writer, reader, cache, file,
// and GC workers — is modeled as a Bot. Callers never share mutable state
// directly with a worker; they send it a job and wait for the job's own
// completion signal.
package bot

import (
	"context"

	"ozonedb/internal/errs"
)

// Job is one unit of work delivered to a Bot's inbound queue. A Bot
// executes jobs strictly in the order they are received.
type Job func()

// Bot is a single-goroutine worker with a bounded inbound queue.
type Bot struct {
	inbox chan Job
	done  chan struct{}
}

// New creates a Bot whose inbox holds up to capacity queued jobs. Send
// blocks while the inbox is full; a capacity of 0 makes every Send wait
// until the worker receives the job. The queue never grows past capacity.
func New(capacity int) *Bot {
	return &Bot{
		inbox: make(chan Job, capacity),
		done:  make(chan struct{}),
	}
}

// Run processes jobs from the inbox until ctx is cancelled or Close is
// called. It is meant to be launched once per Bot in its own goroutine.
func (b *Bot) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-b.inbox:
			if !ok {
				return
			}
			job()
		}
	}
}

// Send enqueues a job. It does not wait for the job to run; callers that
// need a reply build it into the job itself (e.g. via a response channel
// captured in the closure).
func (b *Bot) Send(job Job) {
	b.inbox <- job
}

// TrySend enqueues a job without blocking, reporting whether it was
// accepted. Useful for periodic housekeeping jobs that should be skipped
// rather than pile up if the worker is behind.
func (b *Bot) TrySend(job Job) bool {
	select {
	case b.inbox <- job:
		return true
	default:
		return false
	}
}

// Close stops accepting new jobs; Run drains what remains then exits
// once the channel is closed and emptied, or exits immediately if the
// context passed to Run is cancelled first.
func (b *Bot) Close() {
	close(b.inbox)
}

// Done returns a channel closed once Run has returned.
func (b *Bot) Done() <-chan struct{} {
	return b.done
}

// Pending reports the number of jobs currently queued, for the
// `pending_messages` state the database API exposes per zone.
func (b *Bot) Pending() int {
	return len(b.inbox)
}

// Call sends a job and blocks until it has executed, returning the value
// fn returned.
func Call[T any](b *Bot, fn func() T) T {
	replyCh := make(chan T, 1)
	b.Send(func() {
		replyCh <- fn()
	})
	return <-replyCh
}

// CallContext sends a job and waits for its result or ctx's cancellation,
// whichever comes first. On timeout it returns errs.Timeout immediately;
// the job still runs and its reply is simply discarded by the now-stale
// responder channel, per the orphaned-request behavior the design calls
// for (the reply channel is buffered so the worker never blocks on a
// caller that gave up).
func CallContext[T any](ctx context.Context, b *Bot, fn func() T) (T, error) {
	replyCh := make(chan T, 1)
	b.Send(func() {
		replyCh <- fn()
	})
	select {
	case v := <-replyCh:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, errs.Wrap(errs.KindTimeout, "bot: call exceeded wait budget", ctx.Err())
	}
}

// Registry holds named worker handles owned by a zone supervisor, so
// workers reference each other by handle lookup rather than by holding
// direct pointers that would form ownership cycles.
type Registry struct {
	bots map[string]*Bot
}

// NewRegistry creates an empty worker registry.
func NewRegistry() *Registry {
	return &Registry{bots: make(map[string]*Bot)}
}

// Register adds a named Bot handle. Re-registering a name replaces the
// previous handle.
func (r *Registry) Register(name string, b *Bot) {
	r.bots[name] = b
}

// Lookup returns the Bot registered under name, or nil if absent.
func (r *Registry) Lookup(name string) *Bot {
	return r.bots[name]
}

// All returns every registered Bot, for bulk lifecycle operations such as
// starting every worker's Run loop at boot.
func (r *Registry) All() []*Bot {
	out := make([]*Bot, 0, len(r.bots))
	for _, b := range r.bots {
		out = append(out, b)
	}
	return out
}
