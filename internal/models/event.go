package models

import "time"

type EventKind string

const (
	EventAcquisitionSucceeded EventKind = "AcquisitionSucceeded"
	EventAcquisitionFailed    EventKind = "AcquisitionFailed"
	EventExitTriggered        EventKind = "ExitTriggered"
	EventExitFailed           EventKind = "ExitFailed"
	EventPipelineError        EventKind = "PipelineError"
	EventReconciliationError  EventKind = "ReconciliationError"
	EventPortfolioSummary     EventKind = "PortfolioSummary"
)

// Event is what the pipeline reports to the notifier.
type Event struct {
	Kind       EventKind
	At         time.Time
	Instrument Instrument
	Position   Position
	Fill       Fill
	Report     *EligibilityReport
	Trigger    ExitTrigger
	PnL        float64 // SOL
	PnLPct     float64 // fraction of committed amount
	Residual   float64 // raw tokens left after a partial exit
	Fatal      bool    // retry bound exceeded / manual intervention needed
	Err        error
	Detail     string
	Summary    *PortfolioSummary
}

// PortfolioSummary aggregates the open positions at a point in time.
type PortfolioSummary struct {
	At              time.Time
	Invested        float64
	CurrentValue    float64
	PnL             float64
	PnLPct          float64
	Active          int
	Winning         int
	Losing          int
	BestPerformer   string
	BestPnLPct      float64
	WorstPerformer  string
	WorstPnLPct     float64
	SimulatedActive int
}
