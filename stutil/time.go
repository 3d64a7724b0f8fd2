package stutil

import (
	"time"
)

func TimeFormatMilli(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000")
}

// TimeCost measures the time between successive calls of Escape.
type TimeCost struct {
	last time.Time
}

func NewTimeCost() *TimeCost {
	return &TimeCost{time.Now()}
}

// Escape returns the milliseconds since the previous call (or NewTimeCost).
func (c *TimeCost) Escape() int64 {
	now := time.Now()
	es := now.Sub(c.last)
	c.last = now
	return es.Milliseconds()
}

// Reset restarts the measurement without reading it.
func (c *TimeCost) Reset() {
	c.last = time.Now()
}
