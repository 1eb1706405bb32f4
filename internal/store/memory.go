package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mmkdev/account-factory/internal/models"
)

// MemoryStore is a mutex-guarded in-memory Store used by tests and local
// development. It mirrors the relational implementation's semantics,
// including atomic per-job update intents.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	jobs     map[string]models.CreationJob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]models.Account),
		jobs:     make(map[string]models.CreationJob),
	}
}

func (s *MemoryStore) CreateAccount(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	s.accounts[account.ID.String()] = *account
	return nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &account, nil
}

func (s *MemoryStore) ListAccounts(_ context.Context, limit int) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accounts := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	if limit > 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

func (s *MemoryStore) AccountsByIDs(_ context.Context, ids []string) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ordered := make([]models.Account, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.accounts[id]; ok {
			ordered = append(ordered, a)
		}
	}
	return ordered, nil
}

func (s *MemoryStore) UpdateAccount(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID.String()]; !ok {
		return ErrNotFound
	}
	account.UpdatedAt = time.Now().UTC()
	s.accounts[account.ID.String()] = *account
	return nil
}

func (s *MemoryStore) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *MemoryStore) DeleteAccounts(_ context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for _, id := range ids {
		if _, ok := s.accounts[id]; ok {
			delete(s.accounts, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) DeleteAllAccounts(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := int64(len(s.accounts))
	s.accounts = make(map[string]models.Account)
	return deleted, nil
}

func (s *MemoryStore) CreateJob(_ context.Context, job *models.CreationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(job.Accounts) == 0 {
		job.Accounts = []byte("[]")
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	s.jobs[job.ID.String()] = *job
	return nil
}

func (s *MemoryStore) GetJob(_ context.Context, id string) (*models.CreationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &job, nil
}

func (s *MemoryStore) UpdateJob(_ context.Context, id string, update JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if err := applyJobUpdate(&job, update); err != nil {
		return err
	}
	job.UpdatedAt = time.Now().UTC()
	s.jobs[id] = job
	return nil
}

func (s *MemoryStore) JobsByStatus(_ context.Context, status string) ([]models.CreationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var jobs []models.CreationJob
	for _, j := range s.jobs {
		if j.Status == status {
			jobs = append(jobs, j)
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs, nil
}
