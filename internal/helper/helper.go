package helper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

const LamportsPerSOL = 1_000_000_000

// ErrMalformed marks a 2xx response whose body could not be decoded.
var ErrMalformed = errors.New("malformed response")

// StatusError is a non-2xx HTTP answer.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// GetJSON performs a GET and decodes a 2xx body into out.
func GetJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return DoJSON(client, req, out)
}

// DoJSON sends req and decodes a 2xx body into out.
func DoJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	rb, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return &StatusError{Code: resp.StatusCode, Body: Truncate(string(rb), 200)}
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(rb, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// ParseFloat is lenient: empty or garbage reads as 0.
func ParseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// SOLToLamports converts with decimal math so 0.1 SOL is exactly 100000000 lamports.
func SOLToLamports(sol float64) uint64 {
	d := decimal.NewFromFloat(sol).Mul(decimal.NewFromInt(LamportsPerSOL)).Floor()
	if d.IsNegative() {
		return 0
	}
	return uint64(d.IntPart())
}

func LamportsToSOL(lamports uint64) float64 {
	f, _ := decimal.NewFromInt(int64(lamports)).Div(decimal.NewFromInt(LamportsPerSOL)).Float64()
	return f
}

// RawUnits floors a token quantity to whole raw units.
func RawUnits(qty float64) uint64 {
	if qty <= 0 || math.IsNaN(qty) {
		return 0
	}
	return uint64(decimal.NewFromFloat(qty).Floor().IntPart())
}

// Fraction of total, rounded down to whole raw units.
func FractionOf(total float64, fraction float64) float64 {
	return decimal.NewFromFloat(total).Mul(decimal.NewFromFloat(fraction)).Floor().InexactFloat64()
}

func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
