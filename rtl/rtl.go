// File: rtl/rtl.go
// License: Apache-2.0
//
// Layer construction, submission, lifecycle. The queue and pending set
// have independent locks; no code path holds both at once.

package rtl

import (
	"container/list"
	"errors"
	"math"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/eapache/queue"
	"github.com/rs/zerolog"
	"golang.org/x/sys/cpu"

	"github.com/embedlink/eclink/api"
	"github.com/embedlink/eclink/control"
	"github.com/embedlink/eclink/internal/concurrency"
	"github.com/embedlink/eclink/protocol"
)

// Layer state bits.
const layerShutdown uint32 = 1 << 0

// Ops are the layer's upward callbacks.
type Ops struct {
	// HandleEvent receives unsolicited events (request ids in the
	// reserved event range). Runs on the transport's receive context;
	// it must not block.
	HandleEvent func(cmd *protocol.Command, data []byte)
}

// Layer is the request transmission layer. Create with New, then Start.
type Layer struct {
	tp  api.Transport
	ops Ops
	cfg control.Config
	log zerolog.Logger

	state atomix.Uint32

	queue struct {
		mu   sync.Mutex
		list *list.List
	}

	pending struct {
		mu    sync.Mutex
		list  *list.List
		count atomix.Uint32
		_     cpu.CacheLinePad
	}

	exec *concurrency.Executor
	tx   *concurrency.WorkItem

	rtx struct {
		timeout    int64 // response deadline, nanos
		resolution int64 // coalescing window, nanos
		expires    atomix.Int64
		reaper     *concurrency.DelayedItem
	}

	ids     protocol.IDAllocator
	metrics control.Metrics
}

// New builds a layer on top of the given transport. The transport is
// bound to the layer's frame sink; call Start to begin transmission.
func New(tp api.Transport, ops Ops, cfg control.Config, log zerolog.Logger) *Layer {
	l := &Layer{
		tp:  tp,
		ops: ops,
		cfg: cfg,
		log: log,
	}
	l.queue.list = list.New()
	l.pending.list = list.New()

	l.exec = concurrency.NewExecutor(cfg.Workers)
	l.tx = concurrency.NewWorkItem(l.exec, l.txWork)

	l.rtx.timeout = int64(cfg.RequestTimeout())
	l.rtx.resolution = int64(cfg.TimeoutResolution())
	l.rtx.expires.Store(math.MaxInt64)
	l.rtx.reaper = concurrency.NewDelayedItem(l.exec, l.reap)

	tp.Bind(l)
	return l
}

// Metrics exposes the layer's counters.
func (l *Layer) Metrics() *control.Metrics {
	return &l.metrics
}

// Pending returns the current pending-set size.
func (l *Layer) Pending() int {
	return int(l.pending.count.Load())
}

// Queued returns the current submission-queue length.
func (l *Layer) Queued() int {
	l.queue.mu.Lock()
	defer l.queue.mu.Unlock()
	return l.queue.list.Len()
}

// Start brings up the transport and resumes transmission of anything
// still queued from before a transport restart.
func (l *Layer) Start() error {
	if err := l.tp.Start(); err != nil {
		return err
	}
	if !l.queueEmpty() {
		l.txSchedule()
	}
	return nil
}

// Submit queues a request for transmission. Non-blocking. The layer
// assigns the request id and patches it into the command payload.
func (l *Layer) Submit(r *Request) error {
	// requests expecting a response rely on the ack ordering guarantee
	// of sequenced packets
	if r.testBit(tyHasResponse) && !r.testBit(tySequenced) {
		return api.ErrInvalidState
	}
	// non-flush requests carry at least a command header
	if len(r.packet.Payload) < protocol.HeaderLen && !r.testBit(tyFlush) {
		return api.ErrInvalidState
	}

	// binding the layer doubles as the single-submission guard
	if !r.layer.CompareAndSwap(nil, l) {
		return api.ErrAlreadySubmitted
	}

	if len(r.packet.Payload) >= protocol.HeaderLen {
		protocol.SetRequestID(r.packet.Payload, l.ids.Next())
	}

	l.queue.mu.Lock()
	if l.state.Load()&layerShutdown != 0 {
		l.queue.mu.Unlock()
		return api.ErrShutdown
	}
	if r.testBit(stLocked) {
		l.queue.mu.Unlock()
		return api.ErrInvalidState
	}
	r.setBits(stQueued)
	r.node = l.queue.list.PushBack(r.get())
	l.queue.mu.Unlock()

	l.metrics.IncSubmitted()
	l.txSchedule()
	return nil
}

// Shutdown stops the layer: no new submissions are accepted, the queue
// is drained, the transport is shut down and every outstanding request
// completes with ErrShutdown. After Shutdown returns, queue and pending
// set are empty.
func (l *Layer) Shutdown() {
	l.state.Or(layerShutdown)

	claimed := queue.New()

	l.queue.mu.Lock()
	var next *list.Element
	for e := l.queue.list.Front(); e != nil; e = next {
		next = e.Next()
		r := e.Value.(*Request)
		r.setBits(stLocked)
		r.clearBit(stQueued)
		l.queue.list.Remove(e)
		r.node = nil
		claimed.Add(r)
	}
	l.queue.mu.Unlock()

	// The queue is empty and stays empty, so txSchedule cannot requeue
	// the work item once the current run drains.
	l.tx.CancelSync()

	// Shutting down the transport completes all submitted packets,
	// which completes their pending requests.
	l.tp.Shutdown()
	l.rtx.reaper.CancelSync()

	// The transport shutdown should have emptied the pending set;
	// drain whatever is left anyway.
	if l.pending.count.Load() > 0 {
		l.pending.mu.Lock()
		for e := l.pending.list.Front(); e != nil; e = next {
			next = e.Next()
			r := e.Value.(*Request)
			r.setBits(stLocked)
			r.clearBit(stPending)
			l.pending.count.Add(^uint32(0))
			l.pending.list.Remove(e)
			r.node = nil
			claimed.Add(r)
		}
		l.pending.mu.Unlock()
	}

	for claimed.Length() > 0 {
		r := claimed.Remove().(*Request)
		// completion may still race with cancellation
		if !r.testAndSetBit(stCompleted) {
			r.completeWithStatus(api.ErrShutdown)
		}
		r.put()
	}

	l.exec.Close()
}

// noteCompletion records logging and counters for a terminal outcome.
func (l *Layer) noteCompletion(r *Request, status error) {
	l.metrics.IncCompleted()
	id, _ := r.requestID()
	if status != nil && !errors.Is(status, api.ErrCanceled) {
		l.log.Debug().Uint16("rqid", id).Err(status).Msg("rtl: request error")
		return
	}
	l.log.Debug().Uint16("rqid", id).Msg("rtl: completing request")
}

// now returns the current time in unix nanos.
func now() int64 {
	return time.Now().UnixNano()
}
