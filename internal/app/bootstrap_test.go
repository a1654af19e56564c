package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"docrag/backend/internal/app"
)

type mockSchemaStore struct {
	err       error
	callCount int
	failUntil int
}

func (m *mockSchemaStore) EnsureSchema(ctx context.Context) error {
	m.callCount++
	if m.err != nil {
		return m.err
	}
	if m.callCount <= m.failUntil {
		return errors.New("schema error")
	}
	return nil
}

func TestEnsureSchemaWithRetry_Success(t *testing.T) {
	store := &mockSchemaStore{}
	err := app.EnsureSchemaWithRetry(context.Background(), store, 1, 1*time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, 1, store.callCount)
}

func TestEnsureSchemaWithRetry_Retries(t *testing.T) {
	store := &mockSchemaStore{failUntil: 2}
	err := app.EnsureSchemaWithRetry(context.Background(), store, 5, 1*time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, 3, store.callCount)
}

func TestEnsureSchemaWithRetry_Fail(t *testing.T) {
	store := &mockSchemaStore{err: errors.New("permanent error")}
	err := app.EnsureSchemaWithRetry(context.Background(), store, 3, 1*time.Millisecond)
	assert.Error(t, err)
	assert.Equal(t, 3, store.callCount)
}
