package utils

import (
	"sync"
	"time"
)

// Meter tracks an event rate since creation or the last Reset.
type Meter struct {
	count int64
	start time.Time
	lock  sync.Mutex
}

func NewMeter() *Meter {
	return &Meter{start: time.Now()}
}

func (m *Meter) Add(n int64) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.count += n
}

// PerSecond reports the average event rate over the measured window.
func (m *Meter) PerSecond() float64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	elapsed := time.Since(m.start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(m.count) / elapsed
}

func (m *Meter) Reset() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.count = 0
	m.start = time.Now()
}
