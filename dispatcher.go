package ernie

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// defaultEventBacklog is the buffer on the dispatcher's event channel.
const defaultEventBacklog = 1024

// eventKind enumerates the dispatcher's serialized inputs.
type eventKind int

const (
	evAdmit eventKind = iota // a routed request entering admission
	evFreed                  // an executor returned its asset to the pool
)

type event struct {
	kind eventKind
	req  *Request
}

// Dispatcher is the admission controller: a single goroutine owns the
// pending queue and the dispatch counter, and processes admission and
// asset-freed events strictly one at a time in arrival order. The acceptor
// and the executors communicate with it exclusively through events.
type Dispatcher struct {
	pools     PoolManager
	transport Transport
	logger    zerolog.Logger

	events chan event
	quit   chan struct{}
	done   chan struct{}

	stopOnce sync.Once

	pending *pendingQueue

	// Written only by the dispatcher goroutine; read by the admin handler.
	dispatched atomic.Uint64
	pendingLen atomic.Int64
}

// NewDispatcher creates a dispatcher over the given pools and transport.
// Run must be called for admission to make progress.
func NewDispatcher(pools PoolManager, transport Transport, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		pools:     pools,
		transport: transport,
		logger:    logger.With().Str("component", "dispatcher").Logger(),
		events:    make(chan event, defaultEventBacklog),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		pending:   newPendingQueue(64),
	}
}

// Run processes events until Stop is called. It never blocks inside an
// event: every admission decision is lease-or-enqueue.
func (d *Dispatcher) Run() error {
	defer close(d.done)

	for {
		select {
		case <-d.quit:
			return nil
		case ev := <-d.events:
			switch ev.kind {
			case evAdmit:
				d.admit(ev.req)
			case evFreed:
				d.onFreed()
			default:
				d.logger.Warn().Int("kind", int(ev.kind)).Msg("ignoring unrecognized event")
			}
		}
	}
}

// Stop terminates the event loop and waits for it to exit. Queued requests
// are abandoned; their connections die with the process.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.quit)
		<-d.done
	})
}

// Admit hands a routed request to the admission path.
func (d *Dispatcher) Admit(req *Request) {
	select {
	case d.events <- event{kind: evAdmit, req: req}:
	case <-d.quit:
		req.Close()
	}
}

// assetFreed signals that an executor returned its asset to the pool.
func (d *Dispatcher) assetFreed() {
	select {
	case d.events <- event{kind: evFreed}:
	case <-d.quit:
	}
}

// Dispatched returns the lifetime count of requests that reached a
// successful lease. It only ever grows; it is not an in-flight gauge.
func (d *Dispatcher) Dispatched() uint64 {
	return d.dispatched.Load()
}

// PendingLen returns the current length of the shared pending queue.
func (d *Dispatcher) PendingLen() int {
	return int(d.pendingLen.Load())
}

// admit enqueues req unless the queue is empty and a lease is immediately
// available. A non-empty queue always wins: a new arrival must not jump
// ahead of requests already waiting, even for a different, idle pool.
func (d *Dispatcher) admit(req *Request) {
	if d.pending.len() > 0 {
		d.enqueue(req)
		return
	}
	d.tryLease(req)
}

// onFreed re-runs admission for the queue head, if any. The freed slot may
// belong to a different pool than the head's target; on a failed lease the
// head cycles to the tail.
func (d *Dispatcher) onFreed() {
	req, ok := d.pending.pop()
	if !ok {
		return
	}
	d.pendingLen.Store(int64(d.pending.len()))
	d.tryLease(req)
}

func (d *Dispatcher) tryLease(req *Request) {
	asset, ok := d.pools.Lease(req.PoolID)
	if !ok {
		d.enqueue(req)
		return
	}

	d.dispatched.Add(1)
	go d.execute(req, asset)
}

func (d *Dispatcher) enqueue(req *Request) {
	d.pending.push(req)
	d.pendingLen.Store(int64(d.pending.len()))
}
