package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID    int64
	Value string
}

func TestTx_RollbackRestoresSnapshot(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Do(ctx, func() error {
		rows := GetTable[row](s, "rows")
		id := rows.NextID()
		rows.Put(id, row{ID: id, Value: "before"})
		return nil
	}))

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	rows := GetTable[row](s, "rows")
	rows.Put(1, row{ID: 1, Value: "after"})
	id := rows.NextID()
	rows.Put(id, row{ID: id, Value: "new"})
	GetTable[row](s, "created_in_tx").Put(1, row{ID: 1})

	require.NoError(t, tx.Rollback())

	got, ok := rows.Get(1)
	require.True(t, ok)
	assert.Equal(t, "before", got.Value)
	assert.Equal(t, 1, rows.Len())
	assert.Equal(t, int64(2), rows.NextID())
	assert.Equal(t, 0, GetTable[row](s, "created_in_tx").Len())
}

func TestTx_CommitKeepsChangesAndReleasesLock(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	GetTable[row](s, "rows").Put(7, row{ID: 7, Value: "x"})
	require.NoError(t, tx.Commit())

	assert.ErrorIs(t, tx.Rollback(), ErrTxDone)
	assert.ErrorIs(t, tx.Check(ctx), ErrTxDone)

	_, ok := GetTable[row](s, "rows").Get(7)
	assert.True(t, ok)

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx2.Commit())
}

func TestStore_BeginWaitsForContext(t *testing.T) {
	s := NewStore()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = s.Begin(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = s.Do(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTable_ScanOrdersByID(t *testing.T) {
	s := NewStore()
	rows := GetTable[row](s, "rows")
	for _, id := range []int64{5, 2, 9} {
		rows.Put(id, row{ID: id})
	}

	got := rows.Scan(func(r row) bool { return r.ID != 9 })
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(5), got[1].ID)
}
