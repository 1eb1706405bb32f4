package store

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mmkdev/account-factory/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJob(t *testing.T, s Store, total int) *models.CreationJob {
	t.Helper()
	job := &models.CreationJob{
		ID:     uuid.New(),
		Total:  total,
		Status: models.JobStatusProcessing,
	}
	require.NoError(t, s.CreateJob(context.Background(), job))
	return job
}

func TestJobUpdateIntents(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	job := newJob(t, s, 3)

	require.NoError(t, s.UpdateJob(ctx, job.ID.String(), JobUpdate{
		Increment:     map[string]int{FieldCompleted: 1},
		AppendAccount: "acc-1",
	}))
	require.NoError(t, s.UpdateJob(ctx, job.ID.String(), JobUpdate{
		Increment: map[string]int{FieldFailed: 1},
	}))
	require.NoError(t, s.UpdateJob(ctx, job.ID.String(), JobUpdate{
		Increment:     map[string]int{FieldCompleted: 1},
		AppendAccount: "acc-2",
	}))
	require.NoError(t, s.UpdateJob(ctx, job.ID.String(), JobUpdate{
		Set: map[string]any{FieldStatus: models.JobStatusCompleted},
	}))

	got, err := s.GetJob(ctx, job.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Completed)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, []string{"acc-1", "acc-2"}, got.AccountIDs())
}

func TestJobUpdateUnknownField(t *testing.T) {
	s := NewMemoryStore()
	job := newJob(t, s, 1)

	err := s.UpdateJob(context.Background(), job.ID.String(), JobUpdate{
		Increment: map[string]int{"total": 1},
	})
	assert.Error(t, err)

	err = s.UpdateJob(context.Background(), job.ID.String(), JobUpdate{
		Set: map[string]any{"completed": 5},
	})
	assert.Error(t, err)
}

func TestJobUpdateNotFound(t *testing.T) {
	s := NewMemoryStore()
	err := s.UpdateJob(context.Background(), uuid.NewString(), JobUpdate{
		Increment: map[string]int{FieldCompleted: 1},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentJobUpdates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	job := newJob(t, s, 100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.UpdateJob(ctx, job.ID.String(), JobUpdate{
				Increment: map[string]int{FieldCompleted: 1},
			})
		}()
	}
	wg.Wait()

	got, err := s.GetJob(ctx, job.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 100, got.Completed)
}

func TestAccountsByIDsPreservesOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		a := &models.Account{ID: uuid.New(), Username: "u", Email: "e", Password: "p"}
		require.NoError(t, s.CreateAccount(ctx, a))
		ids = append(ids, a.ID.String())
	}

	// request in reverse, with one missing id mixed in
	request := []string{ids[2], uuid.NewString(), ids[0]}
	accounts, err := s.AccountsByIDs(ctx, request)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, ids[2], accounts[0].ID.String())
	assert.Equal(t, ids[0], accounts[1].ID.String())
}

func TestAccountCRUD(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a := &models.Account{ID: uuid.New(), Username: "gamer1", Email: "g@mail.tm", Password: "pw", Status: models.AccountStatusCreated}
	require.NoError(t, s.CreateAccount(ctx, a))

	got, err := s.GetAccount(ctx, a.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "gamer1", got.Username)

	got.Status = models.AccountStatusPendingVerification
	require.NoError(t, s.UpdateAccount(ctx, got))

	got, err = s.GetAccount(ctx, a.ID.String())
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusPendingVerification, got.Status)

	require.NoError(t, s.DeleteAccount(ctx, a.ID.String()))
	_, err = s.GetAccount(ctx, a.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteAccount(ctx, a.ID.String()), ErrNotFound)
}

func TestDeleteAllAccounts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.CreateAccount(ctx, &models.Account{ID: uuid.New()}))
	}

	deleted, err := s.DeleteAllAccounts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, deleted)

	accounts, err := s.ListAccounts(ctx, 1000)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}
