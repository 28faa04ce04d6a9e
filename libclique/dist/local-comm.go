package dist

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/pkg/errors"
)

// localHub is the shared state of an in-process group.
type localHub struct {
	size     int
	timeout  time.Duration
	bcast    []chan []byte // bcast[r] carries rank 0's broadcasts to rank r
	gather   chan gathered
	lastSeen []atomic.Int64 // unix nanos of each rank's latest heartbeat
}

type gathered struct {
	rank    int
	payload []byte
	err     error
}

// localComm is one rank's handle on a localHub.
type localComm struct {
	hub    *localHub
	rank   int
	joined sync.Once
	done   chan struct{}
	closed atomic.Bool
}

// NewLocalGroup returns size Comms, indexed by rank, that exchange messages over in-process channels.
// Each rank is meant to be driven by its own goroutine.
//
// A rank starts a heartbeat on its first Broadcast or Gather and stops it on Close.  A rank that is still searching
// therefore never times out, while one that never shows up or closes without sending its result does.
func NewLocalGroup(size int, timeout time.Duration) ([]Comm, error) {
	if size < 1 {
		return nil, errors.Wrapf(goclique.ErrBadGroup, "group size %d", size)
	}

	hub := &localHub{
		size:     size,
		timeout:  timeout,
		bcast:    make([]chan []byte, size),
		gather:   make(chan gathered, size),
		lastSeen: make([]atomic.Int64, size),
	}
	now := time.Now().UnixNano()
	comms := make([]Comm, size)
	for r := range comms {
		hub.bcast[r] = make(chan []byte, 4)
		hub.lastSeen[r].Store(now)
		comms[r] = &localComm{
			hub:  hub,
			rank: r,
			done: make(chan struct{}),
		}
	}
	return comms, nil
}

func (c *localComm) Rank() int { return c.rank }
func (c *localComm) Size() int { return c.hub.size }

// expiry returns a channel that fires once timeout has elapsed (never if timeout is 0) and its cleanup.
func expiry(timeout time.Duration) (<-chan time.Time, func()) {
	if timeout <= 0 {
		return nil, func() {}
	}
	timer := time.NewTimer(timeout)
	return timer.C, func() { timer.Stop() }
}

// heartbeatPeriod is how often a live rank signals while a timeout is in force.
func heartbeatPeriod(timeout time.Duration) time.Duration {
	return max(timeout/4, time.Millisecond)
}

// livenessCheck returns a channel that fires every heartbeat period (never if the hub has no timeout) and its cleanup.
func (hub *localHub) livenessCheck() (<-chan time.Time, func()) {
	if hub.timeout <= 0 {
		return nil, func() {}
	}
	ticker := time.NewTicker(heartbeatPeriod(hub.timeout))
	return ticker.C, ticker.Stop
}

// silent returns the ranks among the given ones whose last heartbeat is older than the hub's timeout.
func (hub *localHub) silent(ranks ...int) []int {
	cutoff := time.Now().Add(-hub.timeout).UnixNano()
	var quiet []int
	for _, r := range ranks {
		if hub.lastSeen[r].Load() < cutoff {
			quiet = append(quiet, r)
		}
	}
	return quiet
}

func (c *localComm) join() {
	c.joined.Do(func() {
		c.hub.lastSeen[c.rank].Store(time.Now().UnixNano())
		if c.hub.timeout > 0 {
			go c.heartbeat()
		}
	})
}

func (c *localComm) heartbeat() {
	ticker := time.NewTicker(heartbeatPeriod(c.hub.timeout))
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.hub.lastSeen[c.rank].Store(time.Now().UnixNano())
		case <-c.done:
			return
		}
	}
}

func (c *localComm) Broadcast(ctx context.Context, payload []byte) ([]byte, error) {
	if c.closed.Load() {
		return nil, errors.Wrapf(goclique.ErrBadGroup, "rank %d is closed", c.rank)
	}
	c.join()
	check, stop := c.hub.livenessCheck()
	defer stop()

	if c.rank == 0 {
		for r := 1; r < c.hub.size; r++ {
			for sent := false; !sent; {
				select {
				case c.hub.bcast[r] <- payload:
					sent = true
				case <-check:
					if quiet := c.hub.silent(r); len(quiet) > 0 {
						return nil, errors.Wrapf(goclique.ErrWorkerUnresponsive, "rank %d did not accept broadcast", r)
					}
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		}
		return payload, nil
	}

	for {
		select {
		case msg := <-c.hub.bcast[c.rank]:
			return msg, nil
		case <-check:
			if quiet := c.hub.silent(0); len(quiet) > 0 {
				return nil, errors.Wrap(goclique.ErrWorkerUnresponsive, "rank 0 sent no broadcast")
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *localComm) Gather(ctx context.Context, payload []byte) ([][]byte, error) {
	if c.closed.Load() {
		return nil, errors.Wrapf(goclique.ErrBadGroup, "rank %d is closed", c.rank)
	}
	c.join()

	// gather holds one slot per rank so a worker's send never waits on rank 0.
	if c.rank != 0 {
		select {
		case c.hub.gather <- gathered{rank: c.rank, payload: payload}:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	check, stop := c.hub.livenessCheck()
	defer stop()

	all := make([][]byte, c.hub.size)
	all[0] = payload
	for remain := c.hub.size - 1; remain > 0; {
		select {
		case msg := <-c.hub.gather:
			if all[msg.rank] != nil {
				return nil, errors.Wrapf(goclique.ErrBadGroup, "rank %d sent more than one result", msg.rank)
			}
			all[msg.rank] = msg.payload
			remain--
		case <-check:
			if quiet := c.hub.silent(missingRanks(all)...); len(quiet) > 0 {
				return nil, errors.Wrapf(goclique.ErrWorkerUnresponsive, "no result from rank(s) %v", quiet)
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return all, nil
}

func (c *localComm) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		close(c.done)
	}
	return nil
}

func missingRanks(all [][]byte) []int {
	var missing []int
	for r := 1; r < len(all); r++ {
		if all[r] == nil {
			missing = append(missing, r)
		}
	}
	return missing
}
