package shared

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type captureExec struct {
	sql  string
	args []any
}

func (c *captureExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.sql = sql
	c.args = args
	return pgconn.CommandTag{}, nil
}

func TestRecordStampsZeroTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	exec := &captureExec{}
	logger := &AuditLogger{db: exec, now: func() time.Time { return now }}

	err := logger.Record(context.Background(), AuditLog{
		ActorID:  7,
		Action:   "journal.post",
		Entity:   "journal_entry",
		EntityID: "JE-2025-0000001",
	})
	require.NoError(t, err)
	require.Len(t, exec.args, 6)
	require.Equal(t, now, exec.args[5], "zero At must be stamped with the clock")
}

func TestRecordKeepsExplicitTime(t *testing.T) {
	at := time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)
	exec := &captureExec{}
	logger := &AuditLogger{db: exec, now: time.Now}

	err := logger.Record(context.Background(), AuditLog{
		ActorID:  7,
		Action:   "ledger.close",
		Entity:   "fiscal_period",
		EntityID: "1",
		At:       at,
	})
	require.NoError(t, err)
	require.Equal(t, at, exec.args[5])
}

func TestRecordRequiresIdentity(t *testing.T) {
	logger := &AuditLogger{db: &captureExec{}, now: time.Now}
	err := logger.Record(context.Background(), AuditLog{Action: "x"})
	require.Error(t, err)
}
