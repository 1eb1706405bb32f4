package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mmkdev/account-factory/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore backs the Store interface with a relational database. It works
// against both the postgres and mysql drivers; the accounts list lives in a
// JSON column and is appended under a row lock.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateAccount(ctx context.Context, account *models.Account) error {
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *GormStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (s *GormStore) ListAccounts(ctx context.Context, limit int) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.WithContext(ctx).Order("created_at ASC").Limit(limit).Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (s *GormStore) AccountsByIDs(ctx context.Context, ids []string) ([]models.Account, error) {
	if len(ids) == 0 {
		return []models.Account{}, nil
	}

	var rows []models.Account
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}

	byID := make(map[string]models.Account, len(rows))
	for _, a := range rows {
		byID[a.ID.String()] = a
	}

	ordered := make([]models.Account, 0, len(ids))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			ordered = append(ordered, a)
		}
	}
	return ordered, nil
}

func (s *GormStore) UpdateAccount(ctx context.Context, account *models.Account) error {
	result := s.db.WithContext(ctx).Save(account)
	if result.Error != nil {
		return fmt.Errorf("failed to update account: %w", result.Error)
	}
	return nil
}

func (s *GormStore) DeleteAccount(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.Account{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteAccounts(ctx context.Context, ids []string) (int64, error) {
	result := s.db.WithContext(ctx).Delete(&models.Account{}, "id IN ?", ids)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete accounts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormStore) DeleteAllAccounts(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("1 = 1").Delete(&models.Account{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete accounts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormStore) CreateJob(ctx context.Context, job *models.CreationJob) error {
	if len(job.Accounts) == 0 {
		job.Accounts = datatypes.JSON([]byte("[]"))
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *GormStore) GetJob(ctx context.Context, id string) (*models.CreationJob, error) {
	var job models.CreationJob
	err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// UpdateJob applies the update intents inside a transaction holding a row
// lock, so concurrent updates on the same job id serialize.
func (s *GormStore) UpdateJob(ctx context.Context, id string, update JobUpdate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job models.CreationJob
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&job, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock job: %w", err)
		}

		if err := applyJobUpdate(&job, update); err != nil {
			return err
		}
		return tx.Save(&job).Error
	})
}

func (s *GormStore) JobsByStatus(ctx context.Context, status string) ([]models.CreationJob, error) {
	var jobs []models.CreationJob
	err := s.db.WithContext(ctx).Where("status = ?", status).Order("created_at ASC").Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func applyJobUpdate(job *models.CreationJob, update JobUpdate) error {
	for field, amount := range update.Increment {
		switch field {
		case FieldCompleted:
			job.Completed += amount
		case FieldFailed:
			job.Failed += amount
		default:
			return fmt.Errorf("unknown increment field %q", field)
		}
	}

	for field, value := range update.Set {
		switch field {
		case FieldStatus:
			status, ok := value.(string)
			if !ok {
				return fmt.Errorf("status must be a string, got %T", value)
			}
			job.Status = status
		default:
			return fmt.Errorf("unknown set field %q", field)
		}
	}

	if update.AppendAccount != "" {
		ids := job.AccountIDs()
		ids = append(ids, update.AppendAccount)
		raw, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("failed to encode account list: %w", err)
		}
		job.Accounts = datatypes.JSON(raw)
	}
	return nil
}
