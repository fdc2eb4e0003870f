package router

import (
	"context"
	"time"

	"chatrelay/internal/domain"
)

// flushJob is one pending persistence write. Jobs carry deep-copied snapshots
// taken under the key lock; the write itself happens on the flusher goroutine
// so disk latency never holds a conversation's lock.
type flushJob struct {
	describe string
	run      func(ctx context.Context) error
}

const flushTimeout = 10 * time.Second

// Run executes queued persistence flushes in submission order until ctx is
// cancelled, then drains whatever is still pending. A single worker keeps
// rewrites of the same document ordered. I/O failures are logged and do not
// roll back the in-memory mutation; durability is best-effort relative to
// live-state correctness.
func (r *Router) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case job := <-r.flushes:
					r.runFlush(job)
				default:
					return nil
				}
			}
		case job := <-r.flushes:
			r.runFlush(job)
		}
	}
}

func (r *Router) runFlush(job flushJob) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := job.run(ctx); err != nil {
		r.log.Error().Err(err).Str("flush", job.describe).Msg("persistence flush failed")
	}
}

// flushDirect snapshots a pair's sequence and queues the rewrite.
func (r *Router) flushDirect(pairKey string) {
	msgs := r.store.SnapshotDirect(pairKey)
	r.enqueue(flushJob{
		describe: "direct:" + pairKey,
		run: func(ctx context.Context) error {
			return r.gateway.SaveDirect(ctx, pairKey, msgs)
		},
	})
}

// flushGroup snapshots a group's directory entry plus messages and queues the
// rewrite of the combined document.
func (r *Router) flushGroup(name string) {
	g := r.groups.Get(name)
	if g == nil {
		return
	}
	msgs := r.store.SnapshotGroup(name)
	r.enqueue(flushJob{
		describe: "group:" + name,
		run: func(ctx context.Context) error {
			return r.gateway.SaveGroup(ctx, &domain.GroupDocument{Group: g, Messages: msgs})
		},
	})
}

// flushGroupDelete queues removal of a dissolved group's document.
func (r *Router) flushGroupDelete(name string) {
	r.enqueue(flushJob{
		describe: "group-delete:" + name,
		run: func(ctx context.Context) error {
			return r.gateway.DeleteGroup(ctx, name)
		},
	})
}

func (r *Router) enqueue(job flushJob) {
	select {
	case r.flushes <- job:
	default:
		// Queue saturated. Callers hold a conversation's key lock, so no disk
		// I/O may happen here; the next mutation rewrites the whole document.
		r.log.Error().Str("flush", job.describe).Msg("flush queue full, dropping write")
	}
}
