// Package metrics defines the recorder the payment pipeline reports to.
package metrics

import "time"

// Recorder counts gate outcomes and observes pipeline latencies.
type Recorder interface {
	IncOutcome(outcome string, network string)
	ObserveLatency(operation string, network string, d time.Duration)
}

// Outcome label values recorded by the gate middleware.
const (
	OutcomeChallenged = "challenged"
	OutcomeVerified   = "verified"
	OutcomeRejected   = "rejected"
	OutcomeNotReady   = "not_ready"
)
