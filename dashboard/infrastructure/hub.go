package infrastructure

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	dashboardDomain "github.com/samoilenko/sensor_telemetry/dashboard/domain"
)

const (
	clientBuffer = 4
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingPeriod   = pongTimeout * 9 / 10
)

// ViewProvider builds the chart of a source.
type ViewProvider interface {
	View(id dashboardDomain.SourceID, q dashboardDomain.ViewQuery) (dashboardDomain.View, error)
}

type hubClient struct {
	conn   *websocket.Conn
	source dashboardDomain.SourceID
	query  dashboardDomain.ViewQuery
	// key groups clients that asked for the same view.
	key  string
	send chan []byte
}

// Hub pushes a fresh view to every websocket client watching a source
// after each poll that changed it.
type Hub struct {
	views    ViewProvider
	logger   dashboardDomain.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
}

// NewHub creates a hub serving views from the given provider.
func NewHub(views ViewProvider, logger dashboardDomain.Logger) *Hub {
	return &Hub{
		views:  views,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		clients: make(map[*hubClient]struct{}),
	}
}

// ServeHTTP upgrades GET /ws?source=&field=&range=&smoothing=&ymin=&ymax=
// and sends the current view straight away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, q, err := parseViewRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	initial, err := h.render(id, q)
	if errors.Is(err, dashboardDomain.ErrSourceNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed: %s", err.Error())
		return
	}

	c := &hubClient{
		conn:   conn,
		source: id,
		query:  q,
		key:    string(id) + "?" + r.URL.RawQuery,
		send:   make(chan []byte, clientBuffer),
	}
	c.send <- initial

	if !h.register(c) {
		_ = conn.Close()
		return
	}

	go h.writeLoop(c)
	h.readLoop(c)
}

// Notify implements dashboardDomain.Notifier.
func (h *Hub) Notify(ids []dashboardDomain.SourceID) {
	changed := make(map[dashboardDomain.SourceID]struct{}, len(ids))
	for _, id := range ids {
		changed[id] = struct{}{}
	}

	groups := make(map[string][]*hubClient)
	h.mu.Lock()
	for c := range h.clients {
		if _, ok := changed[c.source]; ok {
			groups[c.key] = append(groups[c.key], c)
		}
	}
	h.mu.Unlock()

	for _, group := range groups {
		data, err := h.render(group[0].source, group[0].query)
		if err != nil {
			// the source was removed; its clients keep the last view
			continue
		}
		h.publish(data, group)
	}
}

// publish offers data to every client still connected without waiting: a
// client that has not drained its buffer misses this view and gets the
// next one.
func (h *Hub) publish(data []byte, group []*hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	consumers := make([]chan<- []byte, 0, len(group))
	for _, c := range group {
		if _, ok := h.clients[c]; ok {
			consumers = append(consumers, c.send)
		}
	}
	sent := broadcast(data, consumers)
	wsMessagesTotal.WithLabelValues("sent").Add(float64(sent))
	wsMessagesTotal.WithLabelValues("skipped").Add(float64(len(consumers) - sent))
}

// broadcast sends data to each consumer that has room and returns how many
// accepted it.
func broadcast[T any](data T, consumers []chan<- T) int {
	sent := 0
	for _, consumer := range consumers {
		select {
		case consumer <- data:
			sent++
		default:
		}
	}
	return sent
}

// Close disconnects every client. Hijacked connections are not closed by
// http.Server.Shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.drop(c)
	}
}

func (h *Hub) render(id dashboardDomain.SourceID, q dashboardDomain.ViewQuery) ([]byte, error) {
	view, err := h.views.View(id, q)
	if err != nil {
		return nil, err
	}
	return json.Marshal(view)
}

func (h *Hub) register(c *hubClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	wsClients.Inc()
	return true
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(c)
}

// drop must be called with h.mu held. Closing send stops the write loop,
// which closes the connection.
func (h *Hub) drop(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	wsClients.Dec()
}

// readLoop discards client messages and returns when the connection fails.
func (h *Hub) readLoop(c *hubClient) {
	defer h.unregister(c)

	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop is the only writer of the connection.
func (h *Hub) writeLoop(c *hubClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Error("error on writing to websocket client: %s", err.Error())
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
