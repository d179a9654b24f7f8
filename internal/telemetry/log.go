package telemetry

import (
	"io"

	"github.com/charmbracelet/log"
)

// LogReporter prints decoded frames through the structured logger.
type LogReporter struct {
	logger *log.Logger
}

// NewLogReporter builds a log reporter with the provided logger.
func NewLogReporter(logger *log.Logger) LogReporter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return LogReporter{logger: logger}
}

func (r LogReporter) FrameDecoded(ev Event) {
	if ev.Valid {
		r.logger.Info("frame decoded",
			"offset", ev.Offset,
			"type", ev.Type,
			"bits", ev.Bits,
			"payload", ev.Payload,
		)
		return
	}
	r.logger.Warn("frame rejected, unexpected message type",
		"offset", ev.Offset,
		"type", ev.Type,
		"bits", ev.Bits,
	)
}
