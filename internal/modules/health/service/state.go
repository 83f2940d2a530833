package service

import (
	"time"
)

// Pipeline is what the health endpoints read from the running runner.
type Pipeline interface {
	Ready() bool
	LastScan() time.Time
	LastSweep() time.Time
	OpenPositions() int
	StateName() string
}

// Stream is an optional streaming discovery source.
type Stream interface {
	Connected() bool
}

type State struct {
	startedAt time.Time
	pipeline  Pipeline
	stream    Stream
}

func NewState(pipeline Pipeline, stream Stream) *State {
	return &State{startedAt: time.Now(), pipeline: pipeline, stream: stream}
}

// Ready turns true after the first completed scan.
func (s *State) Ready() bool { return s.pipeline != nil && s.pipeline.Ready() }

// StreamConnected is nil when no streaming source is enabled.
func (s *State) StreamConnected() *bool {
	if s.stream == nil {
		return nil
	}
	v := s.stream.Connected()
	return &v
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }

// Snapshot is the /healthz body.
type Snapshot struct {
	Ready           bool   `json:"ready"`
	State           string `json:"state"`
	UptimeSec       int64  `json:"uptimeSec"`
	LastScanUnix    int64  `json:"lastScanUnix"`
	LastSweepUnix   int64  `json:"lastSweepUnix"`
	OpenPositions   int    `json:"openPositions"`
	StreamConnected *bool  `json:"streamConnected,omitempty"`
}

func (s *State) Snapshot() Snapshot {
	out := Snapshot{
		Ready:           s.Ready(),
		UptimeSec:       int64(s.Uptime().Seconds()),
		StreamConnected: s.StreamConnected(),
	}
	if s.pipeline != nil {
		out.State = s.pipeline.StateName()
		out.LastScanUnix = unix(s.pipeline.LastScan())
		out.LastSweepUnix = unix(s.pipeline.LastSweep())
		out.OpenPositions = s.pipeline.OpenPositions()
	}
	return out
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
