// Package telemetry distributes decoded frame events to log output and to
// the web interface.
package telemetry

import "time"

// Event captures a single decoded frame for reporting and visualization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Offset    int       `json:"offset"`
	Type      int64     `json:"type"`
	Bits      int       `json:"bits"`
	Payload   string    `json:"payload"`
	Valid     bool      `json:"valid"`
}

// Reporter captures decoded frame events.
type Reporter interface {
	FrameDecoded(Event)
}

// MultiReporter fans out events to multiple destinations.
type MultiReporter []Reporter

// FrameDecoded forwards the event to each configured reporter.
func (m MultiReporter) FrameDecoded(ev Event) {
	for _, r := range m {
		if r != nil {
			r.FrameDecoded(ev)
		}
	}
}
