package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_bot/internal/models"
	"signal_bot/pkg/db"
)

type execCall struct {
	sql  string
	args []any
}

// fakeTx пишет Exec-вызовы; RunMaster откатывает их при ошибке, как настоящая транзакция.
type fakeTx struct {
	committed []execCall
	pending   []execCall
	failOn    string
}

func (f *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return pgconn.CommandTag{}, errors.New("boom")
	}
	f.pending = append(f.pending, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeTx) Query(context.Context, string, ...interface{}) (pgx.Rows, error) { return nil, nil }
func (f *fakeTx) QueryRow(context.Context, string, ...interface{}) pgx.Row        { return nil }

func (f *fakeTx) RunMaster(ctx context.Context, fn func(context.Context, db.Transaction) error) error {
	f.pending = nil
	if err := fn(ctx, f); err != nil {
		f.pending = nil
		return err
	}
	f.committed = append(f.committed, f.pending...)
	return nil
}

func TestRecordSignal(t *testing.T) {
	tx := &fakeTx{}
	j := NewJournal(tx)

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sig := models.Signal{
		ID: "BTCUSDT-1m-100", Symbol: "BTCUSDT", Timeframe: "1m", Side: models.SideLong,
		EntryPrice: 100, TakeProfit: 101.5, StopLoss: 99.5, Reason: "ADX=30", CreatedAt: at,
	}
	require.NoError(t, j.RecordSignal(context.Background(), sig))

	require.Len(t, tx.committed, 1)
	call := tx.committed[0]
	assert.Contains(t, call.sql, "INSERT INTO signals")
	require.Len(t, call.args, 12)
	assert.Equal(t, j.runID, call.args[1])
	assert.Equal(t, "BTCUSDT-1m-100", call.args[2])
	assert.Equal(t, "LONG", call.args[5])
	assert.Contains(t, string(call.args[10].([]byte)), `"TakeProfit":101.5`)
	assert.Equal(t, at, call.args[11])
}

func TestRecordActionIsTransactional(t *testing.T) {
	tx := &fakeTx{}
	j := NewJournal(tx)

	require.NoError(t, j.RecordAction(context.Background(), models.UserAction{Symbol: "ETHUSDT", Action: models.ActionEnter}))
	require.Len(t, tx.committed, 2)
	assert.Contains(t, tx.committed[0].sql, "INSERT INTO user_actions")
	assert.Equal(t, "enter", tx.committed[0].args[3])
	assert.Contains(t, tx.committed[1].sql, "entered_at")

	tx.failOn = "exited_at"
	err := j.RecordAction(context.Background(), models.UserAction{Symbol: "ETHUSDT", Action: models.ActionExit})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Journal.RecordAction")
	assert.Len(t, tx.committed, 2, "failed action is rolled back")
}

func TestEnsureSchema(t *testing.T) {
	tx := &fakeTx{}
	require.NoError(t, NewJournal(tx).EnsureSchema(context.Background()))
	require.Len(t, tx.committed, 1)
	assert.Contains(t, tx.committed[0].sql, "CREATE TABLE IF NOT EXISTS signals")
	assert.Contains(t, tx.committed[0].sql, "CREATE TABLE IF NOT EXISTS user_actions")
}

func TestNop(t *testing.T) {
	var n Nop
	assert.NoError(t, n.RecordSignal(context.Background(), models.Signal{}))
	assert.NoError(t, n.RecordAction(context.Background(), models.UserAction{}))
}
