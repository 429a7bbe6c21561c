package websocket

import (
	"net/http"
	"time"

	"novascp/types"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// WebSocket upgrader with CORS support
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origins are already filtered by the CORS middleware
		return true
	},
}

// Client represents a WebSocket client connection
type Client struct {
	hub   Hub
	conn  *websocket.Conn
	send  chan types.ProgressMessage
	jobID string

	// written before anything from send
	primed []types.ProgressMessage
	// last revision written per job
	written map[string]uint64
}

// NewClient creates a new WebSocket client following jobID, or every job
// when jobID is AllJobs
func NewClient(hub Hub, conn *websocket.Conn, jobID string) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan types.ProgressMessage, 256),
		jobID:   jobID,
		written: make(map[string]uint64),
	}
}

// Prime sets the messages written ahead of every broadcast. Register the
// client first and read the state to prime it with afterwards, so no
// change can fall between the two. It must be called before StartPumps.
func (c *Client) Prime(messages ...types.ProgressMessage) {
	c.primed = append(c.primed, messages...)
}

// fresh reports whether msg is newer than what was already written for its
// job, and records it if so. Messages without a revision always pass.
func (c *Client) fresh(msg types.ProgressMessage) bool {
	if msg.Revision == 0 {
		return true
	}
	if msg.Revision <= c.written[msg.JobID] {
		return false
	}
	c.written[msg.JobID] = msg.Revision
	return true
}

// StartPumps starts the read and write pumps for the client
func (c *Client) StartPumps() {
	go c.writePump()
	go c.readPump()
}

// readPump handles reading from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).WithField("job_id", c.jobID).Warn("WebSocket read error")
			}
			break
		}
	}
}

// writePump handles writing to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for _, message := range c.primed {
		if !c.write(message) {
			return
		}
	}
	c.primed = nil

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.write(message) {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// write sends message unless it is stale and reports whether the connection
// is still usable
func (c *Client) write(message types.ProgressMessage) bool {
	if !c.fresh(message) {
		return true
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(message); err != nil {
		logrus.WithError(err).WithField("job_id", c.jobID).Warn("WebSocket write error")
		return false
	}
	return true
}

// GetUpgrader returns the WebSocket upgrader
func GetUpgrader() websocket.Upgrader {
	return upgrader
}
