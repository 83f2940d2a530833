package models

import "time"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Fill is the outcome of a successful acquire or liquidate call.
type Fill struct {
	Address          string
	Side             Side
	InputAmount      float64 // SOL for buys, raw tokens for sells
	OutputAmount     float64 // raw tokens for buys, SOL for sells
	Price            float64 // SOL per raw token unit
	SlippageFraction float64
	Endpoint         string
	Route            string
	Signature        string
	Simulated        bool
	At               time.Time
}
