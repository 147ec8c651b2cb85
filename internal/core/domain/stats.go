package domain

// RequestStats are the counters kept by the breaker for runtime calls.
type RequestStats struct {
	Total       uint64  `json:"total"`
	Timeouts    uint64  `json:"timeouts"`
	Success     uint64  `json:"success"`
	Failure     uint64  `json:"failure"`
	Concurrent  int64   `json:"concurrent"`
	AverageTime float64 `json:"averageTime"` // milliseconds
}

// BreakerStats describes the breaker position.
type BreakerStats struct {
	IsClosed bool   `json:"isClosed"`
	State    string `json:"state"`
}

// Stats is the snapshot returned by Executor.Stats.
type Stats struct {
	Requests RequestStats `json:"requests"`
	Breaker  BreakerStats `json:"breaker"`
}
