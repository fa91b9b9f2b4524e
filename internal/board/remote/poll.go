package remote

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/focusboard/focusboard/internal/board/schema"
	"github.com/focusboard/focusboard/internal/logging"
)

// Lister is the subset of Client that PollFeed needs.
type Lister interface {
	List(ctx context.Context, col schema.Collection) ([]json.RawMessage, error)
}

// PollFeed emits a Change whenever a listing of the collection differs from
// the previous one. The first listing only sets the baseline.
type PollFeed struct {
	lister   Lister
	interval time.Duration
	logger   logrus.FieldLogger
}

// NewPollFeed creates a polling feed. A non-positive interval defaults to 15s.
func NewPollFeed(lister Lister, interval time.Duration, logger logrus.FieldLogger) *PollFeed {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &PollFeed{lister: lister, interval: interval, logger: logging.Component(logger, "poll")}
}

// Subscribe starts polling col until ctx is done.
func (p *PollFeed) Subscribe(ctx context.Context, col schema.Collection) (<-chan Change, error) {
	ch := make(chan Change, 16)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		var last uint64
		var primed bool
		for {
			rows, err := p.lister.List(ctx, col)
			switch {
			case err != nil:
				if ctx.Err() == nil {
					p.logger.WithError(err).WithField("collection", col).Debug("poll failed")
				}
			default:
				sum := fingerprint(rows)
				if primed && sum != last {
					select {
					case ch <- Change{Collection: col, Type: "POLL", At: time.Now()}:
					case <-ctx.Done():
						return
					}
				}
				last, primed = sum, true
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return ch, nil
}

func fingerprint(rows []json.RawMessage) uint64 {
	h := fnv.New64a()
	for _, r := range rows {
		h.Write(r)
		h.Write([]byte{0})
	}
	return h.Sum64()
}
