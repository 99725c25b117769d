package websocket

import (
	"sync"
	"time"

	"aerialdetect/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	// SendBufferSize is how many views may queue for one viewer before it is dropped.
	SendBufferSize = 16
	// WriteWait is the longest a single write to a viewer may take.
	WriteWait = 10 * time.Second
)

// client is one browser tab watching a session. Only its writer goroutine
// writes to conn.
type client struct {
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
	ready     chan struct{}
}

// HubService fans view updates out to the websocket connections of a session.
// Broadcast never blocks: each viewer has its own queue, and a viewer that
// falls SendBufferSize messages behind is disconnected.
type HubService struct {
	rooms      map[string]map[*websocket.Conn]*client
	register   chan *client
	unregister chan *client
	done       chan struct{}
	stopOnce   sync.Once
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		rooms:      make(map[string]map[*websocket.Conn]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *HubService) Run() {
	for {
		select {
		case c := <-h.register:
			h.mutex.Lock()
			room, ok := h.rooms[c.sessionID]
			if !ok {
				room = make(map[*websocket.Conn]*client)
				h.rooms[c.sessionID] = room
			}
			room[c.conn] = c
			count := len(room)
			h.mutex.Unlock()

			close(c.ready)
			go h.writePump(c)
			h.logger.Info("Viewer connected to session %s. Total: %d", c.sessionID, count)

		case c := <-h.unregister:
			h.mutex.Lock()
			removed := h.remove(c.sessionID, c.conn)
			h.mutex.Unlock()
			if removed {
				h.logger.Info("Viewer disconnected from session %s", c.sessionID)
			}

		case <-h.done:
			h.mutex.Lock()
			for sessionID, room := range h.rooms {
				for conn := range room {
					h.remove(sessionID, conn)
				}
			}
			h.mutex.Unlock()
			return
		}
	}
}

// writePump drains c.send into the connection until the queue is closed or a
// write fails. The connection is closed on exit, which ends the reader too.
func (h *HubService) writePump(c *client) {
	defer c.conn.Close()

	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Warning("Error sending view to session %s: %v", c.sessionID, err)
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// remove drops conn from its room and closes its queue. Caller holds the write lock.
func (h *HubService) remove(sessionID string, conn *websocket.Conn) bool {
	room, ok := h.rooms[sessionID]
	if !ok {
		return false
	}
	c, ok := room[conn]
	if !ok {
		return false
	}
	delete(room, conn)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, sessionID)
	}
	return true
}

// Register adds conn to the room of sessionID and returns once later
// broadcasts will reach it.
func (h *HubService) Register(sessionID string, conn *websocket.Conn) {
	c := &client{
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, SendBufferSize),
		ready:     make(chan struct{}),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	select {
	case <-c.ready:
	case <-h.done:
	}
}

func (h *HubService) Unregister(sessionID string, conn *websocket.Conn) {
	select {
	case h.unregister <- &client{sessionID: sessionID, conn: conn}:
	case <-h.done:
	}
}

// Broadcast queues data for every connection of sessionID. Viewers whose
// queue is full are disconnected instead of waited for.
func (h *HubService) Broadcast(sessionID string, data []byte) {
	h.mutex.RLock()
	var slow []*websocket.Conn
	for conn, c := range h.rooms[sessionID] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, conn)
		}
	}
	h.mutex.RUnlock()

	if len(slow) == 0 {
		return
	}

	h.mutex.Lock()
	for _, conn := range slow {
		if h.remove(sessionID, conn) {
			h.logger.Warning("Dropped slow viewer of session %s", sessionID)
		}
	}
	h.mutex.Unlock()
}

// Stop closes all connections and ends Run.
func (h *HubService) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *HubService) GetClientCount(sessionID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[sessionID])
}

func (h *HubService) GetSessionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms)
}
