package services

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"novascp/types"
)

// ProgressStep is one advancement of a transfer
type ProgressStep struct {
	Increment int
	Speed     string
	// Fail ends the transfer in the error state instead of advancing it
	Fail   bool
	Reason string
}

// ProgressSource produces the next advancement of a running transfer.
// A real transport would report measured byte counts and throughput here.
type ProgressSource interface {
	Next(job types.TransferJob) ProgressStep
}

// ProgressSourceFunc adapts a function to ProgressSource
type ProgressSourceFunc func(job types.TransferJob) ProgressStep

// Next implements ProgressSource
func (f ProgressSourceFunc) Next(job types.TransferJob) ProgressStep {
	return f(job)
}

const (
	minIncrement   = 5
	incrementSpan  = 20
	minSpeedMBps   = 1.0
	speedSpanMBps  = 5.0
	failureMessage = "connection reset by remote host"
)

// randomProgressSource draws increments in [5, 24] and speeds in [1.0, 6.0) MB/s
type randomProgressSource struct {
	mu          sync.Mutex
	rng         *rand.Rand
	failureRate float64
}

// NewRandomProgressSource creates the simulated progress source.
// failureRate is the per-tick probability of the transfer breaking; zero
// disables failures. A zero seed seeds from the clock.
func NewRandomProgressSource(failureRate float64, seed int64) ProgressSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if failureRate < 0 {
		failureRate = 0
	}
	if failureRate > 1 {
		failureRate = 1
	}
	return &randomProgressSource{
		rng:         rand.New(rand.NewSource(seed)),
		failureRate: failureRate,
	}
}

// Next implements ProgressSource
func (s *randomProgressSource) Next(job types.TransferJob) ProgressStep {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failureRate > 0 && s.rng.Float64() < s.failureRate {
		return ProgressStep{Fail: true, Reason: failureMessage}
	}

	return ProgressStep{
		Increment: s.rng.Intn(incrementSpan) + minIncrement,
		Speed:     FormatSpeed(s.rng.Float64()*speedSpanMBps + minSpeedMBps),
	}
}

// FormatSpeed renders a throughput in MB/s with one decimal place
func FormatSpeed(mbps float64) string {
	return fmt.Sprintf("%.1f MB/s", mbps)
}
