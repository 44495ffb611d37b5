package flow

import (
	"context"
	"time"
)

// Clock paces the scripted multi-part bot replies. The real clock sleeps;
// tests inject an instant one so ordering stays verifiable without
// wall-clock waits.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration)
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// RealClock returns the wall-clock implementation
func RealClock() Clock {
	return realClock{}
}
