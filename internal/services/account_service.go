package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mmkdev/account-factory/internal/dto"
	"github.com/mmkdev/account-factory/internal/generator"
	"github.com/mmkdev/account-factory/internal/mailprovider"
	"github.com/mmkdev/account-factory/internal/models"
	"github.com/mmkdev/account-factory/internal/store"
	"github.com/mmkdev/account-factory/internal/worker"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be between 1 and 100")
	ErrInvalidSeparator  = errors.New("invalid username separator")
	ErrAccountNotFound   = errors.New("account not found")
	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRateLimited       = errors.New("rate limited, try again later")
)

var validSeparators = map[string]bool{
	".": true, "-": true, "_": true, "*": true, "/": true, "+": true,
}

// AccountService owns account/job reads and writes issued by the API
// layer. Job progress fields are written only by the orchestrator.
type AccountService struct {
	store        store.Store
	registry     *mailprovider.Registry
	orchestrator *worker.Orchestrator
}

func NewAccountService(st store.Store, registry *mailprovider.Registry, orchestrator *worker.Orchestrator) *AccountService {
	return &AccountService{store: st, registry: registry, orchestrator: orchestrator}
}

// CreateBatch validates the request, persists the job record and schedules
// the orchestrator. Unknown providers are coerced to the default, not
// rejected; the job is created only after all validation passes.
func (s *AccountService) CreateBatch(ctx context.Context, req *dto.CreateAccountsRequest) (*models.CreationJob, error) {
	if req.Quantity < 1 || req.Quantity > 100 {
		return nil, ErrInvalidQuantity
	}

	separator := req.UsernameSeparator
	if separator == "" {
		separator = "."
	}
	if !validSeparators[separator] {
		return nil, ErrInvalidSeparator
	}

	provider := s.registry.Resolve(req.EmailProvider)

	job := &models.CreationJob{
		ID:                uuid.New(),
		Total:             req.Quantity,
		Status:            models.JobStatusProcessing,
		EmailProvider:     provider.Name(),
		UsernamePrefix:    req.UsernamePrefix,
		UsernameSeparator: separator,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	s.orchestrator.Schedule(job)
	return job, nil
}

// JobStatus hydrates the job's account list in append order.
func (s *AccountService) JobStatus(ctx context.Context, jobID string) (*dto.JobStatusResponse, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	accounts, err := s.store.AccountsByIDs(ctx, job.AccountIDs())
	if err != nil {
		return nil, err
	}

	return &dto.JobStatusResponse{
		JobID:              job.ID.String(),
		Total:              job.Total,
		Completed:          job.Completed,
		Failed:             job.Failed,
		Status:             job.Status,
		ProgressPercentage: job.Progress(),
		Accounts:           accounts,
	}, nil
}

func (s *AccountService) List(ctx context.Context) ([]models.Account, error) {
	return s.store.ListAccounts(ctx, 1000)
}

func (s *AccountService) Get(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.store.GetAccount(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	return account, err
}

func (s *AccountService) Delete(ctx context.Context, id string) error {
	err := s.store.DeleteAccount(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAccountNotFound
	}
	return err
}

func (s *AccountService) DeleteAll(ctx context.Context) (int64, error) {
	return s.store.DeleteAllAccounts(ctx)
}

func (s *AccountService) DeleteMultiple(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, errors.New("no account IDs provided")
	}
	deleted, err := s.store.DeleteAccounts(ctx, ids)
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, ErrAccountNotFound
	}
	return deleted, nil
}

// UpdateStatus applies a forward-only status transition.
func (s *AccountService) UpdateStatus(ctx context.Context, id, status string) (*models.Account, error) {
	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.ValidStatusTransition(account.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, account.Status, status)
	}
	account.Status = status
	if err := s.store.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// VerifyLogin marks the account pending verification and returns the
// credentials alongside the upstream login URL.
func (s *AccountService) VerifyLogin(ctx context.Context, id string) (*dto.VerifyLoginResponse, error) {
	account, err := s.UpdateStatus(ctx, id, models.AccountStatusPendingVerification)
	if err != nil {
		return nil, err
	}
	return &dto.VerifyLoginResponse{
		Message:  "Account ready for verification",
		LoginURL: "https://sso.garena.com/universal/login?app_id=10100&redirect_uri=https://account.garena.com/?locale_name=SG&locale=vi-VN",
		Account: dto.AccountCredentials{
			Username: account.Username,
			Email:    account.Email,
			Phone:    account.Phone,
			Password: account.Password,
		},
	}, nil
}

// Regenerate replaces the account's mailbox and credentials with fresh
// ones. Refused while the global rate-limit cooldown is active.
func (s *AccountService) Regenerate(ctx context.Context, id string) (*dto.RegenerateResponse, error) {
	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.orchestrator.Guard().InCooldown() {
		return nil, ErrRateLimited
	}

	provider := s.registry.Resolve(account.EmailProvider)
	mailbox, err := provider.CreateMailbox(ctx)
	if err != nil {
		if errors.Is(err, mailprovider.ErrRateLimited) {
			s.orchestrator.Guard().MarkLimited()
		}
		return nil, ErrRateLimited
	}

	oldEmail := account.Email
	account.Username = generator.Username("", ".", 0)
	account.Password = generator.Password()
	account.Email = mailbox.Email
	account.EmailProvider = provider.Name()

	session, err := json.Marshal(mailbox.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	account.EmailSessionData = session

	if err := s.store.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}

	return &dto.RegenerateResponse{
		Message:     "Email regenerated successfully",
		AccountID:   account.ID.String(),
		OldEmail:    oldEmail,
		NewEmail:    account.Email,
		NewUsername: account.Username,
	}, nil
}

// Inbox proxies the provider's message list using the account's stored
// session. Provider problems surface inside the response body, never as
// transport errors.
func (s *AccountService) Inbox(ctx context.Context, id string) (*dto.InboxResponse, error) {
	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &dto.InboxResponse{
		AccountID: account.ID.String(),
		Email:     account.Email,
		Provider:  account.EmailProvider,
		Messages:  []mailprovider.MessageSummary{},
	}

	session := s.session(account)
	if session.Token() == "" {
		resp.Error = "No session data available"
		return resp, nil
	}

	provider := s.registry.Resolve(account.EmailProvider)
	messages, err := provider.ListMessages(ctx, session)
	if err != nil {
		resp.Error = err.Error()
		return resp, nil
	}
	resp.Messages = messages
	resp.Count = len(messages)
	return resp, nil
}

// Message fetches one full message from the account's inbox.
func (s *AccountService) Message(ctx context.Context, id, messageID string) (*dto.MessageContentResponse, error) {
	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	session := s.session(account)
	if session.Token() == "" {
		return nil, errors.New("no session data")
	}

	provider := s.registry.Resolve(account.EmailProvider)
	message, err := provider.GetMessage(ctx, session, messageID)
	if err != nil {
		return nil, err
	}
	return &dto.MessageContentResponse{
		AccountID: account.ID.String(),
		Message:   message,
	}, nil
}

func (s *AccountService) session(account *models.Account) mailprovider.Session {
	if len(account.EmailSessionData) == 0 {
		return mailprovider.Session{}
	}
	var session mailprovider.Session
	if err := json.Unmarshal(account.EmailSessionData, &session); err != nil {
		return mailprovider.Session{}
	}
	return session
}

// RateLimitStatus reports the shared cooldown window for the status
// endpoint.
func (s *AccountService) RateLimitStatus() *dto.RateLimitStatusResponse {
	guard := s.orchestrator.Guard()
	remaining := int(guard.Remaining().Seconds() + 0.999)
	if guard.InCooldown() {
		return &dto.RateLimitStatusResponse{
			Status:           "rate_limited",
			InCooldown:       true,
			RemainingSeconds: remaining,
			Message:          fmt.Sprintf("Vui lòng đợi %d giây trước khi tạo tài khoản mới", remaining),
			Recommendation:   "Tạo 1-3 accounts mỗi lần để tránh rate limiting",
		}
	}
	return &dto.RateLimitStatusResponse{
		Status:         "ready",
		Message:        "Sẵn sàng tạo tài khoản",
		Recommendation: "Khuyên tạo 2-3 accounts mỗi lần",
	}
}
