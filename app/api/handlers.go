package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-relay/app/relay"
)

func NewHandler(dispatcher DispatcherInterface, feeds FeedLister, version string) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		feeds:      feeds,
		version:    version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"feeds":     len(h.feeds.List("")),
		"version":   h.version,
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	feeds := h.feeds.List(c.Query("filter"))
	if feeds == nil {
		feeds = []relay.FeedInfo{}
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) APIGetFeedDetails(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing feed name parameter"})
		return
	}

	info, err := h.feeds.Feed(name)
	if errors.Is(err, relay.ErrFeedNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}
	if err != nil {
		slog.Error("Feed lookup failed", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Feed lookup failed"})
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *Handler) APIRunCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	var replies []string
	switch {
	case len(req.Args) > 0:
		replies = h.dispatcher.Execute(c.Request.Context(), req.Args)
	case strings.TrimSpace(req.Command) != "":
		replies = h.dispatcher.Run(c.Request.Context(), req.Command)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing command"})
		return
	}

	if replies == nil {
		replies = []string{}
	}

	c.JSON(http.StatusOK, CommandResponse{Replies: replies})
}
