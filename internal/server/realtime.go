package server

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hjyouh/books/backend/internal/slides"
	"go.uber.org/zap"
)

const (
	RealtimeEventSlideChanged = "slide-change"
	realtimeEventHeartbeat    = "heartbeat"
	realtimeSourceBackend     = "books-backend"
	defaultHeartbeatInterval  = 25 * time.Second
)

// SlideEventDispatcher fans slide events out to admin stream subscribers.
// Slow subscribers miss events instead of blocking publishers.
type SlideEventDispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
}

type realtimeSubscriber struct {
	id     int64
	stream chan slides.SlideEvent
}

func NewSlideEventDispatcher() *SlideEventDispatcher {
	return &SlideEventDispatcher{
		subscribers: make(map[int64]*realtimeSubscriber),
		bufferSize:  16,
	}
}

func (d *SlideEventDispatcher) Subscribe(ctx context.Context) (<-chan slides.SlideEvent, func()) {
	subscriber := &realtimeSubscriber{
		stream: make(chan slides.SlideEvent, d.bufferSize),
	}
	d.mu.Lock()
	d.nextID++
	subscriber.id = d.nextID
	d.subscribers[subscriber.id] = subscriber
	d.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subscribers, subscriber.id)
			d.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// PublishSlideEvent satisfies slides.Notifier.
func (d *SlideEventDispatcher) PublishSlideEvent(event slides.SlideEvent) {
	if event.Action == "" {
		return
	}
	d.mu.RLock()
	copies := make([]*realtimeSubscriber, 0, len(d.subscribers))
	for _, subscriber := range d.subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- event:
		default:
		}
	}
}

func (d *SlideEventDispatcher) subscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

type slideEventPayload struct {
	Action    string   `json:"action"`
	SlideIDs  []string `json:"slideIds"`
	Timestamp string   `json:"timestamp"`
	Source    string   `json:"source"`
}

type heartbeatPayload struct {
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

func (h *httpHandler) handleSlideEvents(c *gin.Context) {
	ctx := c.Request.Context()
	stream, cleanup := h.dispatcher.Subscribe(ctx)
	defer cleanup()

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent(realtimeEventHeartbeat, heartbeatPayload{Timestamp: time.Now().UTC().Format(time.RFC3339), Source: realtimeSourceBackend})
	c.Writer.Flush()

	h.logger.Debug("slide event stream opened", zap.String("member_id", currentSession(c).Subject))
	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(RealtimeEventSlideChanged, slideEventPayload{
				Action:    string(event.Action),
				SlideIDs:  event.SlideIDs,
				Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
				Source:    realtimeSourceBackend,
			})
			return true
		case tick := <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, heartbeatPayload{Timestamp: tick.UTC().Format(time.RFC3339), Source: realtimeSourceBackend})
			return true
		}
	})
}
