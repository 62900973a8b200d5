package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"signal_bot/internal/models"
	"signal_bot/pkg/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS signals (
	id          UUID PRIMARY KEY,
	run_id      UUID NOT NULL,
	signal_id   TEXT NOT NULL,
	symbol      TEXT NOT NULL,
	timeframe   TEXT NOT NULL,
	side        TEXT NOT NULL,
	entry_price DOUBLE PRECISION NOT NULL,
	take_profit DOUBLE PRECISION NOT NULL,
	stop_loss   DOUBLE PRECISION NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	entered_at  TIMESTAMPTZ,
	exited_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS signals_symbol_created_idx ON signals (symbol, created_at DESC);
CREATE TABLE IF NOT EXISTS user_actions (
	id         UUID PRIMARY KEY,
	run_id     UUID NOT NULL,
	symbol     TEXT NOT NULL,
	action     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);`

const insertSignal = `INSERT INTO signals
	(id, run_id, signal_id, symbol, timeframe, side, entry_price, take_profit, stop_loss, reason, payload, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const insertAction = `INSERT INTO user_actions (id, run_id, symbol, action, created_at) VALUES ($1, $2, $3, $4, $5)`

// отметка ставится на последний сигнал по символу
const markEntered = `UPDATE signals SET entered_at = $2
	WHERE id = (SELECT id FROM signals WHERE symbol = $1 ORDER BY created_at DESC LIMIT 1)`

const markExited = `UPDATE signals SET exited_at = $2
	WHERE id = (SELECT id FROM signals WHERE symbol = $1 AND entered_at IS NOT NULL ORDER BY created_at DESC LIMIT 1)`

// TxRunner: подмножество db.PgTxManager.
type TxRunner interface {
	RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx db.Transaction) error) error
}

// Journal пишет сигналы и отметки пользователя в Postgres.
type Journal struct {
	db    TxRunner
	runID uuid.UUID
	now   func() time.Time
}

func NewJournal(db TxRunner) *Journal {
	return &Journal{db: db, runID: uuid.New(), now: time.Now}
}

func (j *Journal) EnsureSchema(ctx context.Context) error {
	return j.db.RunMaster(ctx, func(ctx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctx, schema)
		return err
	})
}

func (j *Journal) RecordSignal(ctx context.Context, sig models.Signal) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Journal.RecordSignal: %w", err)
		}
	}()

	payload, err := sonic.Marshal(sig)
	if err != nil {
		return err
	}
	return j.db.RunMaster(ctx, func(ctx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctx, insertSignal,
			uuid.New(), j.runID, sig.ID, sig.Symbol, sig.Timeframe, string(sig.Side),
			sig.EntryPrice, sig.TakeProfit, sig.StopLoss, sig.Reason, payload, sig.CreatedAt,
		)
		return err
	})
}

func (j *Journal) RecordAction(ctx context.Context, a models.UserAction) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Journal.RecordAction: %w", err)
		}
	}()

	at := a.At
	if at.IsZero() {
		at = j.now()
	}
	mark := markEntered
	if a.Action == models.ActionExit {
		mark = markExited
	}

	return j.db.RunMaster(ctx, func(ctx context.Context, tx db.Transaction) error {
		if _, err := tx.Exec(ctx, insertAction, uuid.New(), j.runID, a.Symbol, string(a.Action), at); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, mark, a.Symbol, at)
		return err
	})
}

// Nop: журнал без базы (DSN не задан).
type Nop struct{}

func (Nop) RecordSignal(context.Context, models.Signal) error     { return nil }
func (Nop) RecordAction(context.Context, models.UserAction) error { return nil }
