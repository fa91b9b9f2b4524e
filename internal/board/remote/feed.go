package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"

	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/logging"
)

// Change is an opaque notification that a collection changed remotely.
// Receivers reload the whole collection; the payload is informational.
type Change struct {
	Collection schema.Collection
	Type       string // INSERT, UPDATE, DELETE, or POLL
	At         time.Time
}

// Feed delivers change notifications for one collection.
// The returned channel is closed when ctx is done.
type Feed interface {
	Subscribe(ctx context.Context, col schema.Collection) (<-chan Change, error)
}

// RealtimeConfig holds realtime feed settings.
type RealtimeConfig struct {
	URL string
	Key string

	HeartbeatInterval time.Duration
	ReconnectDelay    time.Duration
	Logger            logrus.FieldLogger
}

// DefaultRealtimeConfig returns default realtime feed settings.
func DefaultRealtimeConfig() RealtimeConfig {
	return RealtimeConfig{
		HeartbeatInterval: 30 * time.Second,
		ReconnectDelay:    5 * time.Second,
	}
}

// RealtimeFeed subscribes to row changes over the realtime websocket
// endpoint using the phoenix channel protocol.
type RealtimeFeed struct {
	cfg    RealtimeConfig
	logger logrus.FieldLogger
	ref    atomic.Int64
}

// NewRealtimeFeed creates a realtime feed.
func NewRealtimeFeed(cfg RealtimeConfig) *RealtimeFeed {
	def := DefaultRealtimeConfig()
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	return &RealtimeFeed{cfg: cfg, logger: logging.Component(cfg.Logger, "realtime")}
}

// phxMessage is a phoenix channel frame.
type phxMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
}

// Endpoint returns the websocket URL for the feed.
func (f *RealtimeFeed) Endpoint() (string, error) {
	u, err := url.Parse(strings.TrimRight(f.cfg.URL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid realtime url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path += "/realtime/v1/websocket"
	q := url.Values{}
	q.Set("apikey", f.cfg.Key)
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe starts a subscription goroutine that reconnects after a fixed
// delay whenever the connection drops.
func (f *RealtimeFeed) Subscribe(ctx context.Context, col schema.Collection) (<-chan Change, error) {
	if f.cfg.URL == "" || f.cfg.Key == "" {
		return nil, ErrNotConfigured
	}
	endpoint, err := f.Endpoint()
	if err != nil {
		return nil, err
	}

	ch := make(chan Change, 16)
	go func() {
		defer close(ch)
		logger := f.logger.WithField("collection", col)
		for {
			err := f.session(ctx, endpoint, col, ch)
			if ctx.Err() != nil {
				return
			}
			logger.WithError(err).Warnf("realtime connection lost, reconnecting in %s", f.cfg.ReconnectDelay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(f.cfg.ReconnectDelay):
			}
		}
	}()
	return ch, nil
}

// session runs one connection until it fails or ctx is done.
func (f *RealtimeFeed) session(ctx context.Context, endpoint string, col schema.Collection, out chan<- Change) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, endpoint, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to dial realtime endpoint: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 << 20)

	topic := "realtime:public:" + string(col)
	join, _ := json.Marshal(map[string]any{
		"config": map[string]any{
			"postgres_changes": []map[string]string{
				{"event": "*", "schema": "public", "table": string(col)},
			},
		},
	})
	if err := wsjson.Write(ctx, conn, phxMessage{Topic: topic, Event: "phx_join", Payload: join, Ref: f.nextRef()}); err != nil {
		return fmt.Errorf("failed to join %s: %w", topic, err)
	}
	f.logger.WithField("collection", col).Debug("joined realtime channel")

	sessCtx, stop := context.WithCancel(ctx)
	defer stop()
	go f.heartbeat(sessCtx, conn)

	for {
		var msg phxMessage
		if err := wsjson.Read(sessCtx, conn, &msg); err != nil {
			return err
		}
		if msg.Topic != topic {
			continue
		}
		kind, ok := changeType(msg)
		if !ok {
			continue
		}
		select {
		case out <- Change{Collection: col, Type: kind, At: time.Now()}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *RealtimeFeed) heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(f.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msg := phxMessage{Topic: "phoenix", Event: "heartbeat", Payload: json.RawMessage(`{}`), Ref: f.nextRef()}
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				return
			}
		}
	}
}

func (f *RealtimeFeed) nextRef() string {
	return strconv.FormatInt(f.ref.Add(1), 10)
}

// changeType extracts the change kind from a channel frame. Newer servers
// send "postgres_changes" with the kind in the payload; older ones use the
// kind as the event name.
func changeType(msg phxMessage) (string, bool) {
	switch msg.Event {
	case "INSERT", "UPDATE", "DELETE":
		return msg.Event, true
	case "postgres_changes":
		var p struct {
			Data struct {
				Type string `json:"type"`
			} `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return "", false
		}
		switch p.Data.Type {
		case "INSERT", "UPDATE", "DELETE":
			return p.Data.Type, true
		}
	}
	return "", false
}
