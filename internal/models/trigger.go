package models

type ExitTrigger string

const (
	TriggerNone         ExitTrigger = ""
	TriggerTimeLimit    ExitTrigger = "TimeLimitExpired"
	TriggerStopLoss     ExitTrigger = "StopLossHit"
	TriggerTakeProfit   ExitTrigger = "TakeProfitHit"
	TriggerTrailingStop ExitTrigger = "TrailingStopHit"
)

// TriggerOrder is the fixed evaluation order; the first satisfied trigger wins.
var TriggerOrder = []ExitTrigger{
	TriggerTimeLimit,
	TriggerStopLoss,
	TriggerTakeProfit,
	TriggerTrailingStop,
}

// FullExit reports whether the trigger liquidates the whole position.
func (t ExitTrigger) FullExit() bool { return t == TriggerTimeLimit }
