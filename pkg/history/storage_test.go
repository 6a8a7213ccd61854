package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridge-swap/pkg/types"
)

func record(id string, status types.LifecycleStatus, created time.Time) Record {
	return Record{
		TxLifecycle: types.TxLifecycle{
			ID:          id,
			FromChainID: 1,
			ToChainID:   8453,
			FromTxHash:  "0xhash-" + id,
			Status:      status,
			CreatedAt:   created,
		},
		RequestID: "0xorder-" + id,
		FromToken: "ETH@1",
		ToToken:   "ETH@8453",
		Amount:    "1",
	}
}

func TestPutPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	s, err := NewStorage(path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count())

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.Put(record("a", types.StatusSubmitted, now)))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")

	reopened, err := NewStorage(path)
	require.NoError(t, err)
	got, err := reopened.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "0xorder-a", got.RequestID)
	assert.Equal(t, types.StatusSubmitted, got.Status)
	assert.True(t, now.Equal(got.CreatedAt))
}

func TestUpdateLifecycleKeepsMetadata(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "h.json"))
	require.NoError(t, err)
	require.NoError(t, s.Put(record("a", types.StatusSubmitted, time.Now())))

	lc := types.TxLifecycle{ID: "a", FromChainID: 1, ToChainID: 8453, FromTxHash: "0xhash-a", ToTxHash: "0xfill", Status: types.StatusFilled}
	require.NoError(t, s.UpdateLifecycle(lc))

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, types.StatusFilled, got.Status)
	assert.Equal(t, "0xfill", got.ToTxHash)
	assert.Equal(t, "0xorder-a", got.RequestID)
	assert.Equal(t, "ETH@1", got.FromToken)

	assert.Error(t, s.UpdateLifecycle(types.TxLifecycle{ID: "missing"}))
}

func TestGetByHashAndList(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "h.json"))
	require.NoError(t, err)

	base := time.Now()
	require.NoError(t, s.Put(record("old", types.StatusFilled, base.Add(-time.Hour))))
	require.NoError(t, s.Put(record("new", types.StatusAwaitingFill, base)))

	got, err := s.Get("0xhash-old")
	require.NoError(t, err)
	assert.Equal(t, "old", got.ID)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)

	pending := s.ListPending()
	require.Len(t, pending, 1)
	assert.Equal(t, "new", pending[0].ID)

	require.NoError(t, s.Delete("old"))
	assert.Error(t, s.Delete("old"))
	_, err = s.Get("old")
	assert.Error(t, err)
}

func TestPutRequiresID(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "h.json"))
	require.NoError(t, err)
	assert.Error(t, s.Put(Record{}))
}

func TestCorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	_, err := NewStorage(path)
	assert.Error(t, err)
}
