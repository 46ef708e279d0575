package metrics

import "time"

type Noop struct{}

func (Noop) IncOutcome(string, string) {}

func (Noop) ObserveLatency(string, string, time.Duration) {}
