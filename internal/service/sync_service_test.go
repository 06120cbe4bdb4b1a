package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/luvproxy/chat-proxy-api/internal/ierr"
	"github.com/luvproxy/chat-proxy-api/internal/storage/memstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const syncTestKey = "AB12-CD34-EF56-GH78"

func newSyncService() *SyncService {
	return NewSyncService(memstorage.NewHistoryRepository(), zap.NewNop())
}

func TestSync_SaveLoadRoundTrip(t *testing.T) {
	svc := newSyncService()
	ctx := context.Background()

	transcript := json.RawMessage(`[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]`)

	saved, err := svc.Save(ctx, syncTestKey, "proj-1", transcript)
	require.NoError(t, err)
	assert.Equal(t, 2, saved)

	messages, count, updatedAt, err := svc.Load(ctx, syncTestKey, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.JSONEq(t, string(transcript), string(messages))
	require.NotNil(t, updatedAt)
}

func TestSync_SaveReplacesWholesale(t *testing.T) {
	svc := newSyncService()
	ctx := context.Background()

	_, err := svc.Save(ctx, syncTestKey, "proj-1", json.RawMessage(`[{"role":"user","content":"one"},{"role":"assistant","content":"two"}]`))
	require.NoError(t, err)

	saved, err := svc.Save(ctx, syncTestKey, "proj-1", json.RawMessage(`[{"role":"user","content":"three"}]`))
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	messages, count, _, err := svc.Load(ctx, syncTestKey, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.JSONEq(t, `[{"role":"user","content":"three"}]`, string(messages))
}

func TestSync_LoadMissingIsEmpty(t *testing.T) {
	svc := newSyncService()

	messages, count, updatedAt, err := svc.Load(context.Background(), syncTestKey, "never-saved")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.JSONEq(t, `[]`, string(messages))
	assert.Nil(t, updatedAt)
}

func TestSync_ProjectsAreIsolated(t *testing.T) {
	svc := newSyncService()
	ctx := context.Background()

	_, err := svc.Save(ctx, syncTestKey, "proj-1", json.RawMessage(`[{"role":"user","content":"a"}]`))
	require.NoError(t, err)
	_, err = svc.Save(ctx, syncTestKey, "proj-2", json.RawMessage(`[{"role":"user","content":"b"},{"role":"user","content":"c"}]`))
	require.NoError(t, err)

	_, count1, _, err := svc.Load(ctx, syncTestKey, "proj-1")
	require.NoError(t, err)
	_, count2, _, err := svc.Load(ctx, syncTestKey, "proj-2")
	require.NoError(t, err)

	assert.Equal(t, 1, count1)
	assert.Equal(t, 2, count2)
}

func TestSync_ClearIsIdempotent(t *testing.T) {
	svc := newSyncService()
	ctx := context.Background()

	_, err := svc.Save(ctx, syncTestKey, "proj-1", json.RawMessage(`[{"role":"user","content":"a"}]`))
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, syncTestKey, "proj-1"))
	require.NoError(t, svc.Clear(ctx, syncTestKey, "proj-1"))

	_, count, updatedAt, err := svc.Load(ctx, syncTestKey, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Nil(t, updatedAt)
}

func TestSync_SaveRejectsNonArray(t *testing.T) {
	svc := newSyncService()
	ctx := context.Background()

	for _, payload := range []string{``, `null`, `{"role":"user"}`, `"messages"`, `42`} {
		_, err := svc.Save(ctx, syncTestKey, "proj-1", json.RawMessage(payload))
		assert.True(t, errors.Is(err, ierr.ErrValidation), "payload %q must be rejected", payload)
	}
}

func TestSync_SaveEmptyArray(t *testing.T) {
	svc := newSyncService()
	ctx := context.Background()

	saved, err := svc.Save(ctx, syncTestKey, "proj-1", json.RawMessage(`[]`))
	require.NoError(t, err)
	assert.Equal(t, 0, saved)

	messages, count, _, err := svc.Load(ctx, syncTestKey, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.JSONEq(t, `[]`, string(messages))
}
