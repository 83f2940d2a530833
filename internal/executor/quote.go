package executor

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"solana_sniper/internal/helper"
)

type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      uint64 // lamports for buys, raw token units for sells
	SlippageBps int
}

// Quote is a usable answer from one endpoint.
type Quote struct {
	Endpoint             string
	InputMint            string
	OutputMint           string
	InAmount             uint64
	OutAmount            uint64
	OtherAmountThreshold uint64
	PriceImpact          float64 // fraction
	SlippageBps          int
	Route                string
}

// RealizedSlippage is the worse of the reported price impact and the threshold haircut.
func (q Quote) RealizedSlippage() float64 {
	s := q.PriceImpact
	if q.OutAmount > 0 && q.OtherAmountThreshold > 0 && q.OtherAmountThreshold < q.OutAmount {
		if haircut := 1 - float64(q.OtherAmountThreshold)/float64(q.OutAmount); haircut > s {
			s = haircut
		}
	}
	return s
}

type jupiterQuote struct {
	InputMint            string `json:"inputMint"`
	InAmount             string `json:"inAmount"`
	OutputMint           string `json:"outputMint"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	SlippageBps          int    `json:"slippageBps"`
	PriceImpactPct       string `json:"priceImpactPct"`
	RoutePlan            []struct {
		SwapInfo struct {
			AmmKey string `json:"ammKey"`
			Label  string `json:"label"`
		} `json:"swapInfo"`
		Percent int `json:"percent"`
	} `json:"routePlan"`
}

// attempt asks one endpoint for a quote under its own timeout.
func (e *Executor) attempt(ctx context.Context, op, endpoint string, req QuoteRequest, timeout time.Duration) (q Quote, err error) {
	span, ctx := opentracing.StartSpanFromContextWithTracer(ctx, e.tracer, "executor.attempt")
	span.SetTag("op", op)
	span.SetTag("endpoint", endpoint)
	started := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = Classify(err)
			ext.Error.Set(span, true)
			span.SetTag("error.message", err.Error())
		}
		e.metrics.RecordEndpoint(op, result, time.Since(started))
		span.Finish()
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u, err := url.Parse(endpoint)
	if err != nil {
		return Quote{}, fmt.Errorf("endpoint url: %w", err)
	}
	qs := u.Query()
	qs.Set("inputMint", req.InputMint)
	qs.Set("outputMint", req.OutputMint)
	qs.Set("amount", strconv.FormatUint(req.Amount, 10))
	qs.Set("slippageBps", strconv.Itoa(req.SlippageBps))
	u.RawQuery = qs.Encode()

	headers := map[string]string{}
	if key := e.settings.Current().APIs.JupiterAPIKey; key != "" {
		headers["x-api-key"] = key
	}

	var raw jupiterQuote
	if err := helper.GetJSON(ctx, e.http, u.String(), headers, &raw); err != nil {
		return Quote{}, err
	}
	return parseQuote(endpoint, raw)
}

func parseQuote(endpoint string, raw jupiterQuote) (Quote, error) {
	out, err := strconv.ParseUint(raw.OutAmount, 10, 64)
	if err != nil || out == 0 {
		return Quote{}, fmt.Errorf("%w: outAmount %q", helper.ErrMalformed, raw.OutAmount)
	}
	in, _ := strconv.ParseUint(raw.InAmount, 10, 64)
	threshold, _ := strconv.ParseUint(raw.OtherAmountThreshold, 10, 64)

	labels := make([]string, 0, len(raw.RoutePlan))
	for _, leg := range raw.RoutePlan {
		if leg.SwapInfo.Label != "" {
			labels = append(labels, leg.SwapInfo.Label)
		}
	}

	return Quote{
		Endpoint:             endpoint,
		InputMint:            raw.InputMint,
		OutputMint:           raw.OutputMint,
		InAmount:             in,
		OutAmount:            out,
		OtherAmountThreshold: threshold,
		PriceImpact:          helper.ParseFloat(raw.PriceImpactPct),
		SlippageBps:          raw.SlippageBps,
		Route:                strings.Join(labels, " > "),
	}, nil
}

func slippageBps(fraction float64) int {
	return int(fraction*10_000 + 0.5)
}
