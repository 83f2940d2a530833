// Package journal keeps a Postgres record of opened and closed positions and their fills.
package journal

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"solana_sniper/internal/models"
	"solana_sniper/pkg/db"
)

//go:embed schema.sql
var schema string

type Journal struct {
	db  db.TxRunner
	log *zap.Logger
}

func New(tx db.TxRunner, log *zap.Logger) *Journal {
	if log == nil {
		log = zap.NewNop()
	}
	return &Journal{db: tx, log: log.Named("journal")}
}

// Migrate creates the journal tables when missing.
func (j *Journal) Migrate(ctx context.Context) error {
	_, err := j.db.Querier().Exec(ctx, schema)
	return errors.Wrap(err, "journal migrate")
}

// Send persists the events that change position state. It lets the journal sit behind a notify.Queue.
func (j *Journal) Send(ctx context.Context, ev models.Event) error {
	switch ev.Kind {
	case models.EventAcquisitionSucceeded:
		return j.RecordOpen(ctx, ev.Position, ev.Fill)
	case models.EventExitTriggered:
		return j.RecordExit(ctx, ev)
	case models.EventExitFailed:
		return j.RecordExitAttempt(ctx, ev.Position)
	default:
		return nil
	}
}

// RecordOpen inserts the position row and its buy fill in one transaction.
func (j *Journal) RecordOpen(ctx context.Context, pos models.Position, fill models.Fill) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrapf(err, "journal.RecordOpen %s", pos.Address)
		}
	}()
	if _, err = uuid.Parse(pos.ID); err != nil {
		return err
	}
	payload, err := sonic.Marshal(fill)
	if err != nil {
		return err
	}
	return j.db.InTx(ctx, func(ctxTx context.Context, tx db.Querier) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO positions (id, address, symbol, opened_at, quote_amount, quantity, entry_price,
			                       anchored, simulated, synthetic)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			pos.ID, pos.Address, pos.Symbol, pos.OpenedAt, pos.QuoteAmount, pos.Quantity, pos.EntryPrice,
			pos.Anchored, pos.Simulated, pos.Synthetic)
		if err != nil {
			return err
		}
		return insertFill(ctxTx, tx, pos.ID, fill, payload)
	})
}

// RecordExit closes the position row and stores the sell fill.
func (j *Journal) RecordExit(ctx context.Context, ev models.Event) (err error) {
	pos := ev.Position
	defer func() {
		if err != nil {
			err = errors.Wrapf(err, "journal.RecordExit %s", pos.Address)
		}
	}()
	payload, err := sonic.Marshal(ev.Fill)
	if err != nil {
		return err
	}
	closedAt := ev.At
	if closedAt.IsZero() {
		closedAt = time.Now()
	}
	return j.db.InTx(ctx, func(ctxTx context.Context, tx db.Querier) error {
		tag, err := tx.Exec(ctxTx, `
			UPDATE positions
			SET closed_at = $2, exit_trigger = $3, pnl_sol = $4, pnl_pct = $5, residual = $6,
			    exit_attempts = $7, entry_price = $8, anchored = $9
			WHERE id = $1 AND closed_at IS NULL`,
			pos.ID, closedAt, string(ev.Trigger), ev.PnL, ev.PnLPct, ev.Residual,
			pos.ExitAttempts, pos.EntryPrice, pos.Anchored)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("no open position %s", pos.ID)
		}
		return insertFill(ctxTx, tx, pos.ID, ev.Fill, payload)
	})
}

// RecordExitAttempt stores the failed attempt count and the last error.
func (j *Journal) RecordExitAttempt(ctx context.Context, pos models.Position) error {
	_, err := j.db.Querier().Exec(ctx, `
		UPDATE positions SET exit_attempts = $2, last_error = $3
		WHERE id = $1 AND closed_at IS NULL`,
		pos.ID, pos.ExitAttempts, pos.LastExitError)
	return errors.Wrapf(err, "journal.RecordExitAttempt %s", pos.Address)
}

// OpenPositions returns the positions without a recorded exit, oldest first.
func (j *Journal) OpenPositions(ctx context.Context) ([]models.Position, error) {
	rows, err := j.db.Querier().Query(ctx, `
		SELECT id::text, address, symbol, opened_at, quote_amount, quantity, entry_price,
		       anchored, simulated, synthetic, exit_attempts, last_error
		FROM positions
		WHERE closed_at IS NULL
		ORDER BY opened_at`)
	if err != nil {
		return nil, errors.Wrap(err, "journal.OpenPositions")
	}
	defer rows.Close()

	var out []models.Position
	for rows.Next() {
		var p models.Position
		if err := rows.Scan(&p.ID, &p.Address, &p.Symbol, &p.OpenedAt, &p.QuoteAmount, &p.Quantity,
			&p.EntryPrice, &p.Anchored, &p.Simulated, &p.Synthetic, &p.ExitAttempts, &p.LastExitError); err != nil {
			return nil, errors.Wrap(err, "journal.OpenPositions scan")
		}
		p.HighWater = p.EntryPrice
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "journal.OpenPositions rows")
}

func insertFill(ctx context.Context, tx db.Querier, positionID string, f models.Fill, payload []byte) error {
	at := f.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO fills (id, position_id, side, input_amount, output_amount, price, slippage,
		                   endpoint, signature, simulated, filled_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.NewString(), positionID, string(f.Side), f.InputAmount, f.OutputAmount, f.Price,
		f.SlippageFraction, f.Endpoint, f.Signature, f.Simulated, at, string(payload))
	return err
}
