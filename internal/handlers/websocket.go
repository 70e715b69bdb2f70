package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/peerwire/signaling/config"
	"github.com/peerwire/signaling/internal/metrics"
	"github.com/peerwire/signaling/internal/models"
	redisstore "github.com/peerwire/signaling/internal/redis"
	"github.com/peerwire/signaling/internal/registry"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 54 * time.Second
	maxFrameSize    = 64 << 10
	sendBufferSize  = 256
	maxPeerIDLength = 128
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// Client is one signaling session. It implements registry.Conn so the
// registry, the sweeper, and other sessions can push frames to it or
// force it closed without touching the websocket directly.
type Client struct {
	ID      string
	conn    *websocket.Conn
	out     chan []byte
	limiter *rate.Limiter
}

// Send enqueues a frame without blocking. Returns false when the
// session is backed up, which callers treat as delivery failure.
func (c *Client) Send(data []byte) bool {
	select {
	case c.out <- data:
		return true
	default:
		return false
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// HandleSignaling upgrades the request into a signaling session. The
// client may propose its own peer id via ?peerId=; otherwise the
// server assigns one.
func HandleSignaling(reg *registry.Registry, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		peerID := c.Query("peerId")
		if len(peerID) > maxPeerIDLength {
			c.JSON(http.StatusBadRequest, gin.H{"error": "peerId too long"})
			return
		}
		if peerID == "" {
			peerID = uuid.New().String()
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Warn("failed to upgrade connection", "error", err)
			return
		}

		client := &Client{
			ID:      peerID,
			conn:    conn,
			out:     make(chan []byte, sendBufferSize),
			limiter: rate.NewLimiter(rate.Limit(cfg.MessageRate), cfg.MessageBurst),
		}

		if err := reg.Register(peerID, client); err != nil {
			// Duplicate id: reject the session before it ever joins.
			data, _ := json.Marshal(models.Envelope{
				Type:  models.TypeError,
				Code:  models.CodeDuplicateID,
				Error: "peer id already in use",
			})
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.TextMessage, data)
			conn.Close()
			return
		}

		metrics.ConnectedPeers.Inc()
		redisstore.AddPeer(peerID)
		slog.Info("peer registered", "peer", peerID, "peers", reg.Count())

		welcome, _ := json.Marshal(models.WelcomePayload{
			PeerID:    peerID,
			PeerCount: reg.Count(),
		})
		client.enqueue(models.Envelope{Type: models.TypeWelcome, Payload: welcome})

		go client.writePump()
		go client.readPump(reg)
	}
}

func (c *Client) readPump(reg *registry.Registry) {
	defer func() {
		unregister(reg, c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "peer", c.ID, "error", err)
			}
			return
		}

		// Any inbound frame counts as activity, even one the throttle
		// is about to drop.
		reg.Touch(c.ID)

		if !c.limiter.Allow() {
			metrics.MessagesDropped.WithLabelValues(metrics.DropOverRate).Inc()
			c.sendError(models.CodeRateExceeded, "message rate exceeded")
			continue
		}

		var msg models.Envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			metrics.MessagesDropped.WithLabelValues(metrics.DropBadMessage).Inc()
			c.sendError(models.CodeBadMessage, "malformed frame")
			continue
		}

		switch msg.Type {
		case models.TypeSignal:
			c.relaySignal(reg, msg)
		case models.TypeControl:
			if leave := c.handleControl(reg, msg); leave {
				return
			}
		default:
			metrics.MessagesDropped.WithLabelValues(metrics.DropBadMessage).Inc()
			c.sendError(models.CodeBadMessage, "unknown frame type")
		}
	}
}

// relaySignal forwards the payload verbatim to the target's session.
// The payload itself is never inspected.
func (c *Client) relaySignal(reg *registry.Registry, msg models.Envelope) {
	if msg.Target == "" {
		metrics.MessagesDropped.WithLabelValues(metrics.DropBadMessage).Inc()
		c.sendError(models.CodeBadMessage, "signal frame requires a target")
		return
	}

	rec, ok := reg.Lookup(msg.Target)
	if !ok {
		metrics.MessagesDropped.WithLabelValues(metrics.DropUnknownTarget).Inc()
		c.enqueue(models.Envelope{
			Type:   models.TypeError,
			Code:   models.CodeUnknownTarget,
			Target: msg.Target,
			Error:  "peer unavailable",
		})
		return
	}

	out, err := json.Marshal(models.Envelope{
		Type:    models.TypeSignal,
		From:    c.ID,
		Target:  msg.Target,
		Payload: msg.Payload,
	})
	if err != nil {
		slog.Error("failed to marshal frame", "peer", c.ID, "error", err)
		return
	}

	if !rec.Conn.Send(out) {
		// Target backed up or mid-close: best-effort failure, tell the
		// sender. The peer is still registered, so this is distinct
		// from unknown-target and worth retrying.
		metrics.MessagesDropped.WithLabelValues(metrics.DropBufferFull).Inc()
		c.enqueue(models.Envelope{
			Type:   models.TypeError,
			Code:   models.CodeDeliveryFailed,
			Target: msg.Target,
			Error:  "delivery failed",
		})
		return
	}
	metrics.MessagesForwarded.Inc()
}

// handleControl serves discovery and leave requests. Returns true when
// the session asked to leave.
func (c *Client) handleControl(reg *registry.Registry, msg models.Envelope) bool {
	var req models.ControlRequest
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			c.sendError(models.CodeBadMessage, "malformed control payload")
			return false
		}
	}

	switch req.Op {
	case models.ControlOpLeave:
		return true
	case "", models.ControlOpPeers:
		payload, _ := json.Marshal(models.PeerListPayload{
			Peers: reg.ListIDs(),
			Count: reg.Count(),
		})
		c.enqueue(models.Envelope{Type: models.TypePeers, Payload: payload})
	default:
		c.sendError(models.CodeBadMessage, "unknown control op")
	}
	return false
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

func (c *Client) sendError(code models.ErrorCode, message string) {
	c.enqueue(models.Envelope{Type: models.TypeError, Code: code, Error: message})
}

func (c *Client) enqueue(msg models.Envelope) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal frame", "peer", c.ID, "error", err)
		return
	}
	if !c.Send(data) {
		slog.Warn("send buffer full", "peer", c.ID)
	}
}

// unregister removes the session's own peer record and its presence
// mirror entry. Removal is keyed on connection identity, not just the
// id: if the sweeper or an operator already evicted this session and
// the id has been re-registered by a newer connection, the newer
// record is left untouched. Safe to call repeatedly.
func unregister(reg *registry.Registry, c *Client) bool {
	if _, ok := reg.RemoveConn(c.ID, c); !ok {
		return false
	}
	metrics.ConnectedPeers.Dec()
	redisstore.RemovePeer(c.ID)
	slog.Info("peer unregistered", "peer", c.ID, "peers", reg.Count())
	return true
}
