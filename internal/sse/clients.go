// Package sse pushes reload events to open post pages over Server-Sent Events.
package sse

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/post-editor/internal/model"
)

var sseLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	sseLogger = l
}

// MsgReload asks a detail page to reload itself.
const MsgReload = "reload"

// Client is one open event stream watching a single post.
type Client struct {
	Msg    chan string
	PostID model.PostID
}

// Hub tracks open streams by the post they watch.
type Hub struct {
	mu      sync.RWMutex
	byPost  map[model.PostID]map[*Client]struct{}
	clients int
}

func NewHub() *Hub {
	return &Hub{
		byPost: make(map[model.PostID]map[*Client]struct{}),
	}
}

// Subscribe registers a new client for postID.
func (h *Hub) Subscribe(postID model.PostID) *Client {
	c := &Client{Msg: make(chan string, 1), PostID: postID}
	h.Add(c)
	return c
}

func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	watchers, ok := h.byPost[c.PostID]
	if !ok {
		watchers = make(map[*Client]struct{})
		h.byPost[c.PostID] = watchers
	}
	if _, dup := watchers[c]; !dup {
		watchers[c] = struct{}{}
		h.clients++
	}
}

// Delete unregisters c and closes its channel. Deleting twice is a no-op.
func (h *Hub) Delete(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	watchers := h.byPost[c.PostID]
	if _, ok := watchers[c]; !ok {
		return
	}
	delete(watchers, c)
	if len(watchers) == 0 {
		delete(h.byPost, c.PostID)
	}
	h.clients--
	close(c.Msg)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients
}

// Broadcast sends msg to every client watching postID and returns how many
// received it. Clients with a full buffer miss the message.
func (h *Hub) Broadcast(postID model.PostID, msg string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.byPost[postID] {
		select {
		case c.Msg <- msg:
			sent++
		default:
		}
	}
	return sent
}

// NotifyReload is a reload notifier for post repositories.
func (h *Hub) NotifyReload(postID model.PostID) {
	n := h.Broadcast(postID, MsgReload)
	sseLogger.Debug().Int64("post_id", int64(postID)).Int("clients", n).Msg("Reload broadcast")
}
