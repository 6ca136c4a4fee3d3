package broadcaster

import (
	"bytes"
	"encoding/json"
	"sync"

	"overseerr-about/internal/about"
	"overseerr-about/internal/logging"

	ws "github.com/saveblush/gofiber3-contrib/websocket"
)

// Source produces the current panel snapshot and reports transitions.
type Source interface {
	Current() about.Snapshot
	OnChange(fn func())
}

// ClientObserver tracks broadcaster activity, typically a metrics recorder.
type ClientObserver interface {
	SetClients(n int)
	IncBroadcast()
}

// Conn is the part of a websocket connection the broadcaster writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// client owns one connection. Only the latest queued payload is kept and a
// single writer goroutine delivers it, so frames reach the client in the
// order they were queued.
type client struct {
	conn    Conn
	mu      sync.Mutex
	pending []byte
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newClient(conn Conn) *client {
	return &client{
		conn: conn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (c *client) enqueue(payload []byte) {
	c.mu.Lock()
	c.pending = payload
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *client) take() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.pending
	c.pending = nil
	return p
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

// Broadcaster pushes the About panel to websocket clients whenever either
// upstream resource transitions and the resulting view differs from the last
// one sent.
type Broadcaster struct {
	source   Source
	observer ClientObserver

	// mu covers reading the source, comparing against last and queueing,
	// so concurrent transitions are published in the order they were observed.
	mu      sync.Mutex
	clients map[Conn]*client
	last    []byte
}

// New creates a broadcaster and subscribes it to source.
func New(source Source, observer ClientObserver) *Broadcaster {
	b := &Broadcaster{
		source:   source,
		observer: observer,
		clients:  make(map[Conn]*client),
	}
	source.OnChange(b.Notify)
	return b
}

// AddClient registers a new WebSocket client and queues the current panel
// as its first frame.
func (b *Broadcaster) AddClient(conn Conn) {
	c := newClient(conn)

	b.mu.Lock()
	payload, err := b.encode()
	if err != nil {
		b.mu.Unlock()
		logging.Error("Encode panel snapshot failed", "error", err)
		return
	}
	b.clients[conn] = c
	n := len(b.clients)
	c.enqueue(payload)
	b.mu.Unlock()

	b.reportClients(n)
	go b.writeLoop(c)
}

// RemoveClient unregisters a WebSocket client
func (b *Broadcaster) RemoveClient(conn Conn) {
	b.mu.Lock()
	c, ok := b.clients[conn]
	delete(b.clients, conn)
	n := len(b.clients)
	b.mu.Unlock()

	if ok {
		c.stop()
		b.reportClients(n)
	}
}

// ClientCount returns the number of active WebSocket clients
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Notify recomputes the panel and queues it for every client if it changed.
func (b *Broadcaster) Notify() {
	b.mu.Lock()
	payload, err := b.encode()
	if err != nil {
		b.mu.Unlock()
		logging.Error("Encode panel snapshot failed", "error", err)
		return
	}
	if bytes.Equal(payload, b.last) {
		b.mu.Unlock()
		return
	}
	b.last = payload
	for _, c := range b.clients {
		c.enqueue(payload)
	}
	b.mu.Unlock()

	if b.observer != nil {
		b.observer.IncBroadcast()
	}
}

// Last returns the most recently published payload.
func (b *Broadcaster) Last() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Stop closes all client connections.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	clients := b.clients
	b.clients = make(map[Conn]*client)
	b.mu.Unlock()

	for conn, c := range clients {
		c.stop()
		_ = conn.Close()
	}
	b.reportClients(0)
}

// encode must be called with b.mu held.
func (b *Broadcaster) encode() ([]byte, error) {
	return json.Marshal(b.source.Current())
}

func (b *Broadcaster) writeLoop(c *client) {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}
		payload := c.take()
		if payload == nil {
			continue
		}
		if err := c.conn.WriteMessage(ws.TextMessage, payload); err != nil {
			// Client disconnected, remove it
			b.RemoveClient(c.conn)
			_ = c.conn.Close()
			return
		}
	}
}

func (b *Broadcaster) reportClients(n int) {
	if b.observer != nil {
		b.observer.SetClients(n)
	}
}

// Handler keeps the connection registered until the client goes away.
func (b *Broadcaster) Handler(conn *ws.Conn) {
	defer func() {
		b.RemoveClient(conn)
		_ = conn.Close()
	}()

	b.AddClient(conn)

	// Keep connection alive by listening for close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
