package geo

import (
	"context"
	"time"

	"github.com/urbanalert/pkg/models"
)

// Locator is a one-shot device position source. There is no continuous
// tracking; each report flow requests at most one fix.
type Locator interface {
	Locate(ctx context.Context) (models.Coordinate, error)
}

// StaticLocator returns a fixed coordinate (or a scripted error) after an
// optional delay. It stands in for device GPS in the terminal session and in
// tests.
type StaticLocator struct {
	Coord models.Coordinate
	Err   error
	Delay time.Duration
}

func (l StaticLocator) Locate(ctx context.Context) (models.Coordinate, error) {
	if l.Delay > 0 {
		select {
		case <-ctx.Done():
			return models.Coordinate{}, ctx.Err()
		case <-time.After(l.Delay):
		}
	}
	if l.Err != nil {
		return models.Coordinate{}, l.Err
	}
	return l.Coord, nil
}
