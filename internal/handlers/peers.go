package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/peerwire/signaling/internal/metrics"
	"github.com/peerwire/signaling/internal/models"
	redisstore "github.com/peerwire/signaling/internal/redis"
	"github.com/peerwire/signaling/internal/registry"
)

// Health reports service status, peer count and uptime.
func Health(reg *registry.Registry, startedAt time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.StatusResponse{
			Status:        "ok",
			PeerCount:     reg.Count(),
			UptimeSeconds: time.Since(startedAt).Seconds(),
		})
	}
}

// ListPeers returns a snapshot of registered peer ids (public).
func ListPeers(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.PeerListResponse{
			Peers: reg.ListIDs(),
			Count: reg.Count(),
		})
	}
}

// CountPeers returns only the current peer count (public).
func CountPeers(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"count": reg.Count()})
	}
}

// KickPeer force-disconnects a peer (requires authentication).
func KickPeer(reg *registry.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		peerID := c.Param("peerId")

		rec, ok := reg.Remove(peerID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Peer not found"})
			return
		}
		metrics.ConnectedPeers.Dec()
		redisstore.RemovePeer(peerID)
		if rec.Conn != nil {
			rec.Conn.Close()
		}

		userID, _ := c.Get("user_id")
		slog.Info("peer kicked", "peer", peerID, "by", userID)

		c.JSON(http.StatusOK, gin.H{"message": "peer disconnected"})
	}
}
