package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"solana_sniper/internal/models"
)

const (
	pumpPortalBuffer = 256
	pumpPortalPing   = 20 * time.Second
)

type pumpNewToken struct {
	Signature          string  `json:"signature"`
	Mint               string  `json:"mint"`
	TxType             string  `json:"txType"`
	Name               string  `json:"name"`
	Symbol             string  `json:"symbol"`
	BondingCurveKey    string  `json:"bondingCurveKey"`
	VSolInBondingCurve float64 `json:"vSolInBondingCurve"`
	MarketCapSol       float64 `json:"marketCapSol"`
	Pool               string  `json:"pool"`
}

// PumpPortal streams token creations over a websocket and buffers them until the next Query.
// When the buffer is full the oldest entry is dropped.
type PumpPortal struct {
	url    string
	dialer *websocket.Dialer
	log    *zap.Logger

	mu      sync.Mutex
	pending []models.Instrument
	dropped int

	connected bool
	now       func() time.Time
}

func NewPumpPortal(url string, log *zap.Logger) *PumpPortal {
	if log == nil {
		log = zap.NewNop()
	}
	return &PumpPortal{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:    log.Named("pumpportal"),
		now:    time.Now,
	}
}

func (p *PumpPortal) Name() string { return "pumpportal" }

// Query drains everything received since the previous call.
func (p *PumpPortal) Query(ctx context.Context) ([]models.Instrument, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.pending
	p.pending = nil
	if p.dropped > 0 {
		p.log.Warn("stream buffer overflowed", zap.Int("dropped", p.dropped))
		p.dropped = 0
	}
	return out, nil
}

func (p *PumpPortal) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Run keeps the subscription alive until ctx is done, reconnecting after a second on any failure.
func (p *PumpPortal) Run(ctx context.Context) {
	for {
		if err := p.session(ctx); err != nil && ctx.Err() == nil {
			p.log.Warn("stream session ended", zap.Error(err))
		}
		p.setConnected(false)

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (p *PumpPortal) session(ctx context.Context) error {
	conn, _, err := p.dialer.DialContext(ctx, p.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"method": "subscribeNewToken"}); err != nil {
		return err
	}
	p.setConnected(true)
	p.log.Info("subscribed to new tokens", zap.String("url", p.url))

	var writeMu sync.Mutex
	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		t := time.NewTicker(pumpPortalPing)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				writeMu.Lock()
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				writeMu.Unlock()
				_ = conn.Close()
				return
			case <-stopPing:
				return
			case <-t.C:
				writeMu.Lock()
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				writeMu.Unlock()
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		p.handle(msg)
	}
}

func (p *PumpPortal) handle(msg []byte) {
	var ev pumpNewToken
	if err := sonic.Unmarshal(msg, &ev); err != nil {
		return
	}
	// subscription acks and other frames carry no mint
	if ev.Mint == "" || (ev.TxType != "" && ev.TxType != "create") {
		return
	}

	inst := models.Instrument{
		Address:      ev.Mint,
		Symbol:       ev.Symbol,
		Name:         ev.Name,
		PoolAddress:  ev.BondingCurveKey,
		Dex:          "PumpPortal/" + ev.Pool,
		LiquiditySOL: ev.VSolInBondingCurve,
		DiscoveredAt: p.now(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) >= pumpPortalBuffer {
		p.pending = p.pending[1:]
		p.dropped++
	}
	p.pending = append(p.pending, inst)
}

func (p *PumpPortal) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
