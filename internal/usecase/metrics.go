package usecase

import "time"

// Metrics receives reconciliation and settlement counters.
type Metrics interface {
	ObservePass(job, status string, duration time.Duration)
	AddTransition(from, to, source string)
	AddSettlement(applied, skipped, failed int, points int64)
	AddProviderError(operation string)
	AddConflict()
}

type noopMetrics struct{}

func (noopMetrics) ObservePass(string, string, time.Duration) {}
func (noopMetrics) AddTransition(string, string, string)      {}
func (noopMetrics) AddSettlement(int, int, int, int64)        {}
func (noopMetrics) AddProviderError(string)                   {}
func (noopMetrics) AddConflict()                              {}

func NewNoopMetrics() Metrics {
	return noopMetrics{}
}
