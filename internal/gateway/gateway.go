// Package gateway is the transport seam: channels push inbound messages into
// the ingress queue, the handler produces reply chunks, and the gateway
// routes them back to the originating channel. Actual network transmission
// lives in the channel implementations.
package gateway

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrChannelNotFound is returned when a broadcast names an unregistered
// channel.
var ErrChannelNotFound = errors.New("gateway: channel not found")

// Message is one inbound user text or one outbound reply chunk.
type Message struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	Content   string
	Channel   string
}

// Channel is a communication medium. Start blocks until ctx is canceled.
type Channel interface {
	Name() string
	Start(ctx context.Context, ingress chan<- Message) error
	Send(msg Message) error
}

// Handler turns one inbound message into reply chunks.
type Handler func(ctx context.Context, msg Message) ([]string, error)

// Gateway manages channels and dispatches inbound messages to the handler.
// Each inbound event is handled by its own goroutine; per-user sequencing is
// whatever the transport delivers.
type Gateway struct {
	Log *zap.Logger

	mu       sync.RWMutex
	channels map[string]Channel
	ingress  chan Message
	handler  Handler
}

func New(handler Handler, log *zap.Logger) *Gateway {
	return &Gateway{
		Log:      log,
		channels: make(map[string]Channel),
		ingress:  make(chan Message, 100),
		handler:  handler,
	}
}

// Register adds a channel before StartAll.
func (g *Gateway) Register(c Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[c.Name()] = c
}

// StartAll runs every channel plus the ingress processor until ctx is
// canceled.
func (g *Gateway) StartAll(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		g.processIngress(ctx)
		return nil
	})

	g.mu.RLock()
	for _, c := range g.channels {
		c := c
		eg.Go(func() error {
			return c.Start(ctx, g.ingress)
		})
	}
	g.mu.RUnlock()

	return eg.Wait()
}

func (g *Gateway) processIngress(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-g.ingress:
			go func(m Message) {
				chunks, err := g.handler(ctx, m)
				if err != nil {
					g.Log.Error("handler failed",
						zap.Int64("user_id", m.UserID), zap.Error(err))
					chunks = []string{"Sorry, something went wrong on my side. Please try again in a moment."}
				}
				g.routeReply(m, chunks)
			}(msg)
		}
	}
}

func (g *Gateway) routeReply(original Message, chunks []string) {
	g.mu.RLock()
	ch, ok := g.channels[original.Channel]
	g.mu.RUnlock()
	if !ok {
		g.Log.Error("reply channel not found", zap.String("channel", original.Channel))
		return
	}
	for _, c := range chunks {
		if c == "" {
			continue
		}
		reply := Message{UserID: original.UserID, Content: c, Channel: original.Channel}
		if err := ch.Send(reply); err != nil {
			g.Log.Error("sending reply failed",
				zap.String("channel", ch.Name()), zap.Error(err))
		}
	}
}

// Broadcast sends a proactive message (e.g. a scheduled check-in) to a user
// via the named channel.
func (g *Gateway) Broadcast(channelName string, userID int64, content string) error {
	g.mu.RLock()
	ch, ok := g.channels[channelName]
	g.mu.RUnlock()
	if !ok {
		return ErrChannelNotFound
	}
	return ch.Send(Message{UserID: userID, Content: content, Channel: channelName})
}
