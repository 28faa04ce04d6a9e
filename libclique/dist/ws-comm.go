package dist

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/2x3systems/maxclique/goclique"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1 << 16,
	WriteBufferSize: 1 << 16,
}

// deadlineFor returns the earlier of now+timeout and ctx's deadline (zero for none).
func deadlineFor(ctx context.Context, timeout time.Duration) time.Time {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (deadline.IsZero() || ctxDeadline.Before(deadline)) {
		deadline = ctxDeadline
	}
	return deadline
}

// keepAlive pings conn every heartbeat period until done is closed or a write fails.
func keepAlive(conn *websocket.Conn, timeout time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(heartbeatPeriod(timeout))
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// extendOnPing pushes conn's read deadline out by timeout whenever the peer pings, so a read only expires once the
// peer has been silent for that long.  A failed pong surfaces on the next read or write.
func extendOnPing(conn *websocket.Conn, timeout time.Duration) {
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(timeout))
		conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(timeout))
		return nil
	})
}

// WSHub is rank 0 of a websocket group.  Workers connect to it and announce their rank with a hello message.
//
// Once admitted, the hub and each worker ping one another every quarter timeout, so a peer busy searching stays live
// for as long as it takes.
//
// WSHub is an http.Handler so it can be mounted on any server; Listen runs one on its own.
type WSHub struct {
	size    int
	timeout time.Duration

	mu     sync.Mutex
	peers  []*websocket.Conn // indexed by rank; peers[0] is always nil
	joined int
	ready  chan struct{}
	done   chan struct{}
	closed bool
	srv    *http.Server
}

// NewWSHub returns the coordinator side of a group of the given size.
func NewWSHub(size int, timeout time.Duration) (*WSHub, error) {
	if size < 1 {
		return nil, errors.Wrapf(goclique.ErrBadGroup, "group size %d", size)
	}
	hub := &WSHub{
		size:    size,
		timeout: timeout,
		peers:   make([]*websocket.Conn, size),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	if size == 1 {
		close(hub.ready)
	}
	return hub, nil
}

// Listen serves a WSHub on addr and returns once every worker rank has joined.
func Listen(ctx context.Context, addr string, size int, timeout time.Duration) (*WSHub, error) {
	hub, err := NewWSHub(size, timeout)
	if err != nil {
		return nil, err
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listening on %q", addr)
	}
	hub.srv = &http.Server{
		Handler:           hub,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := hub.srv.Serve(lis); err != nil && err != http.ErrServerClosed {
			klog.Errorf("coordinator server: %v", err)
		}
	}()
	klog.Infof("coordinator listening on %v for %d worker(s)", lis.Addr(), size-1)

	if err := hub.WaitForWorkers(ctx); err != nil {
		hub.Close()
		return nil, err
	}
	return hub, nil
}

func (hub *WSHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		klog.Errorf("failed to upgrade worker connection from %v: %v", r.RemoteAddr, err)
		return
	}

	if err = hub.admit(conn); err != nil {
		klog.Warningf("rejecting worker from %v: %v", r.RemoteAddr, err)
		conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()), time.Now().Add(time.Second))
		conn.Close()
	}
}

func (hub *WSHub) admit(conn *websocket.Conn) error {
	conn.SetReadDeadline(deadlineFor(context.Background(), hub.timeout))
	msgType, msg, err := conn.ReadMessage()
	if err != nil {
		return errors.Wrap(goclique.ErrWorkerUnresponsive, "no hello from worker")
	}
	if msgType != websocket.BinaryMessage {
		return errors.Wrap(goclique.ErrBadMessage, "hello must be a binary message")
	}
	rank, size, err := decodeHello(msg)
	if err != nil {
		return err
	}
	conn.SetReadDeadline(time.Time{})

	hub.mu.Lock()
	defer hub.mu.Unlock()

	switch {
	case size != hub.size:
		return errors.Wrapf(goclique.ErrBadGroup, "worker expects group size %d, coordinator has %d", size, hub.size)
	case rank < 1 || rank >= hub.size:
		return errors.Wrapf(goclique.ErrBadGroup, "worker rank %d outside 1..%d", rank, hub.size-1)
	case hub.peers[rank] != nil:
		return errors.Wrapf(goclique.ErrBadGroup, "rank %d already joined", rank)
	case hub.closed:
		return errors.Wrap(goclique.ErrBadGroup, "coordinator is closed")
	}

	if hub.timeout > 0 {
		extendOnPing(conn, hub.timeout)
		go keepAlive(conn, hub.timeout, hub.done)
	}
	hub.peers[rank] = conn
	hub.joined++
	klog.V(1).Infof("worker rank %d joined (%d of %d)", rank, hub.joined, hub.size-1)
	if hub.joined == hub.size-1 {
		close(hub.ready)
	}
	return nil
}

// WaitForWorkers blocks until every worker rank has joined.
func (hub *WSHub) WaitForWorkers(ctx context.Context) error {
	expired, stop := expiry(hub.timeout)
	defer stop()

	select {
	case <-hub.ready:
		return nil
	case <-expired:
	case <-ctx.Done():
		return ctx.Err()
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	var missing []int
	for r := 1; r < hub.size; r++ {
		if hub.peers[r] == nil {
			missing = append(missing, r)
		}
	}
	return errors.Wrapf(goclique.ErrWorkerUnresponsive, "rank(s) %v never joined", missing)
}

func (hub *WSHub) Rank() int { return 0 }
func (hub *WSHub) Size() int { return hub.size }

func (hub *WSHub) peer(rank int) (*websocket.Conn, error) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if conn := hub.peers[rank]; conn != nil {
		return conn, nil
	}
	return nil, errors.Wrapf(goclique.ErrWorkerUnresponsive, "rank %d is not connected", rank)
}

func (hub *WSHub) Broadcast(ctx context.Context, payload []byte) ([]byte, error) {
	for r := 1; r < hub.size; r++ {
		conn, err := hub.peer(r)
		if err != nil {
			return nil, err
		}
		conn.SetWriteDeadline(deadlineFor(ctx, hub.timeout))
		if err = conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
			klog.Errorf("broadcast to rank %d: %v", r, err)
			return nil, errors.Wrapf(goclique.ErrWorkerUnresponsive, "rank %d: %v", r, err)
		}
	}
	return payload, nil
}

// Gather reads every worker's result concurrently, in whatever order they arrive.
func (hub *WSHub) Gather(ctx context.Context, payload []byte) ([][]byte, error) {
	all := make([][]byte, hub.size)
	all[0] = payload

	arrivals := make(chan gathered, hub.size)
	for r := 1; r < hub.size; r++ {
		conn, err := hub.peer(r)
		if err != nil {
			return nil, err
		}
		r := r
		go func() {
			msg, err := hub.receive(conn, r)
			arrivals <- gathered{rank: r, payload: msg, err: err}
		}()
	}

	for remain := hub.size - 1; remain > 0; remain-- {
		select {
		case got := <-arrivals:
			if got.err != nil {
				return nil, got.err
			}
			all[got.rank] = got.payload
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return all, nil
}

// receive reads rank r's next binary message.
func (hub *WSHub) receive(conn *websocket.Conn, r int) ([]byte, error) {
	var deadline time.Time
	if hub.timeout > 0 {
		deadline = time.Now().Add(hub.timeout)
	}
	conn.SetReadDeadline(deadline)
	msgType, msg, err := conn.ReadMessage()
	if err != nil {
		klog.Errorf("gather from rank %d: %v", r, err)
		return nil, errors.Wrapf(goclique.ErrWorkerUnresponsive, "rank %d: %v", r, err)
	}
	if msgType != websocket.BinaryMessage {
		return nil, errors.Wrapf(goclique.ErrBadMessage, "rank %d sent a non-binary message", r)
	}
	return msg, nil
}

// Close disconnects every worker and stops the server started by Listen, if any.
func (hub *WSHub) Close() error {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if !hub.closed {
		hub.closed = true
		close(hub.done)
	}
	for r, conn := range hub.peers {
		if conn != nil {
			conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
			hub.peers[r] = nil
		}
	}
	if hub.srv != nil {
		return hub.srv.Close()
	}
	return nil
}

// wsWorker is a non-zero rank connected to a WSHub.
type wsWorker struct {
	conn    *websocket.Conn
	rank    int
	size    int
	timeout time.Duration
	done    chan struct{}
	closing sync.Once
}

// Dial connects to the coordinator at url (ws://host:port/...) and joins the group as the given rank.
func Dial(ctx context.Context, url string, rank, size int, timeout time.Duration) (Comm, error) {
	if size < 2 || rank < 1 || rank >= size {
		return nil, errors.Wrapf(goclique.ErrBadGroup, "worker rank %d of group size %d", rank, size)
	}

	dialCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(goclique.ErrWorkerUnresponsive, "rank 0 at %q: %v", url, err)
	}

	c := &wsWorker{
		conn:    conn,
		rank:    rank,
		size:    size,
		timeout: timeout,
		done:    make(chan struct{}),
	}
	conn.SetWriteDeadline(deadlineFor(ctx, timeout))
	if err = conn.WriteMessage(websocket.BinaryMessage, encodeHello(rank, size)); err != nil {
		conn.Close()
		return nil, errors.Wrapf(goclique.ErrWorkerUnresponsive, "sending hello to rank 0: %v", err)
	}
	if timeout > 0 {
		extendOnPing(conn, timeout)
		go keepAlive(conn, timeout, c.done)
	}
	return c, nil
}

func (c *wsWorker) Rank() int { return c.rank }
func (c *wsWorker) Size() int { return c.size }

func (c *wsWorker) Broadcast(ctx context.Context, payload []byte) ([]byte, error) {
	c.conn.SetReadDeadline(deadlineFor(ctx, c.timeout))
	msgType, msg, err := c.conn.ReadMessage()
	if err != nil {
		return nil, errors.Wrapf(goclique.ErrWorkerUnresponsive, "rank 0: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		return nil, errors.Wrap(goclique.ErrBadMessage, "rank 0 sent a non-binary message")
	}
	return msg, nil
}

func (c *wsWorker) Gather(ctx context.Context, payload []byte) ([][]byte, error) {
	c.conn.SetWriteDeadline(deadlineFor(ctx, c.timeout))
	if err := c.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return nil, errors.Wrapf(goclique.ErrWorkerUnresponsive, "rank 0: %v", err)
	}
	return nil, nil
}

func (c *wsWorker) Close() error {
	c.closing.Do(func() { close(c.done) })
	c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}
