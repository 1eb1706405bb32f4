// Package store persists accounts and creation jobs. Job mutations go
// through typed update intents applied atomically per job id, so callers
// never hand the storage engine raw operator maps.
package store

import (
	"context"
	"errors"

	"github.com/mmkdev/account-factory/internal/models"
)

var ErrNotFound = errors.New("record not found")

// Job fields addressable by JobUpdate intents.
const (
	FieldCompleted = "completed"
	FieldFailed    = "failed"
	FieldStatus    = "status"
)

// JobUpdate is a composable set of mutation intents for one job record.
// All intents in one update are applied atomically with respect to other
// updates on the same job id.
type JobUpdate struct {
	Increment     map[string]int // FieldCompleted / FieldFailed
	Set           map[string]any // FieldStatus
	AppendAccount string         // account id appended to the ordered list
}

type Store interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context, limit int) ([]models.Account, error)
	// AccountsByIDs returns accounts in the order the ids are given,
	// skipping ids that no longer exist.
	AccountsByIDs(ctx context.Context, ids []string) ([]models.Account, error)
	UpdateAccount(ctx context.Context, account *models.Account) error
	DeleteAccount(ctx context.Context, id string) error
	DeleteAccounts(ctx context.Context, ids []string) (int64, error)
	DeleteAllAccounts(ctx context.Context) (int64, error)

	CreateJob(ctx context.Context, job *models.CreationJob) error
	GetJob(ctx context.Context, id string) (*models.CreationJob, error)
	UpdateJob(ctx context.Context, id string, update JobUpdate) error
	JobsByStatus(ctx context.Context, status string) ([]models.CreationJob, error)
}
