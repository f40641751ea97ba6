package opsboard

import (
	"context"
	"time"

	"github.com/jpalmerr/opsboard/internal/history"
	"github.com/jpalmerr/opsboard/internal/server"
)

// backend exposes a Board to the HTTP server.
type backend struct {
	*Board
}

var _ server.Backend = backend{}

func (b backend) StartSpeedTest(ctx context.Context) server.SpeedRun {
	return b.Board.StartSpeedTest(ctx)
}

func (b backend) Subscribe() <-chan history.Change {
	return b.store.Subscribe()
}

func (b backend) Unsubscribe(ch <-chan history.Change) {
	b.store.Unsubscribe(ch)
}

func (b backend) Now() time.Time {
	return b.clock.Now()
}
