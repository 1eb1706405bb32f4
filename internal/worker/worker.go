// Package worker drives batch account creation. One goroutine per job,
// strictly sequential units within a job, fire-and-forget scheduling.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmkdev/account-factory/internal/config"
	"github.com/mmkdev/account-factory/internal/generator"
	"github.com/mmkdev/account-factory/internal/mailprovider"
	"github.com/mmkdev/account-factory/internal/models"
	"github.com/mmkdev/account-factory/internal/registration"
	"github.com/mmkdev/account-factory/internal/store"
)

var errRegistrationRejected = errors.New("registration rejected by upstream")

// Orchestrator runs creation jobs against the store, the mail provider
// registry and the registration call. It is the sole writer of job
// progress fields.
type Orchestrator struct {
	store          store.Store
	providers      *mailprovider.Registry
	register       registration.Func
	guard          *RateGuard
	cfg            config.WorkerConfig
	mailboxTimeout time.Duration

	wg sync.WaitGroup
}

func New(
	st store.Store,
	providers *mailprovider.Registry,
	register registration.Func,
	guard *RateGuard,
	cfg config.WorkerConfig,
	mailboxTimeout time.Duration,
) *Orchestrator {
	return &Orchestrator{
		store:          st,
		providers:      providers,
		register:       register,
		guard:          guard,
		cfg:            cfg,
		mailboxTimeout: mailboxTimeout,
	}
}

func (o *Orchestrator) Guard() *RateGuard { return o.guard }

// Schedule launches the job in the background and returns immediately.
// There is no cancellation: once scheduled, a job runs to completion.
func (o *Orchestrator) Schedule(job *models.CreationJob) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.Run(context.Background(), job)
	}()
}

// Wait blocks until all scheduled jobs finish. Used by tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// ResumePending re-schedules every job still in processing state. Remaining
// work is re-derived from total - completed - failed, so a restart picks up
// where the previous process stopped.
func (o *Orchestrator) ResumePending(ctx context.Context) (int, error) {
	jobs, err := o.store.JobsByStatus(ctx, models.JobStatusProcessing)
	if err != nil {
		return 0, err
	}
	for i := range jobs {
		job := jobs[i]
		slog.Info("resuming interrupted job",
			"job_id", job.ID.String(), "remaining", job.Remaining())
		o.Schedule(&job)
	}
	return len(jobs), nil
}

// Run processes the job's remaining units in order and finally marks the
// job completed, no matter how many units failed.
func (o *Orchestrator) Run(ctx context.Context, job *models.CreationJob) {
	jobID := job.ID.String()
	provider := o.providers.Resolve(job.EmailProvider)
	log := slog.With("job_id", jobID)

	// Honor the global cooldown before the first attempt.
	if remaining := o.guard.Remaining(); remaining > 0 {
		log.Info("rate-limit cooldown active, waiting", "wait", remaining.String())
		if err := o.sleep(ctx, remaining); err != nil {
			return
		}
	}

	start := job.Completed + job.Failed + 1
	for i := start; i <= job.Total; i++ {
		if err := o.processUnit(ctx, job, provider, i); err != nil {
			if ctx.Err() != nil {
				return
			}
		}
		if i < job.Total {
			if err := o.sleep(ctx, o.pacing(job.Total)); err != nil {
				return
			}
		}
	}

	err := o.store.UpdateJob(ctx, jobID, store.JobUpdate{
		Set: map[string]any{store.FieldStatus: models.JobStatusCompleted},
	})
	if err != nil {
		log.Error("failed to mark job completed", "error", err)
		return
	}
	log.Info("job completed")
}

// processUnit runs the retry loop for one unit. Any error during an
// attempt, expected or not, counts against the retry budget; after the
// budget is exhausted the unit is recorded as failed.
func (o *Orchestrator) processUnit(ctx context.Context, job *models.CreationJob, provider mailprovider.Provider, unit int) error {
	jobID := job.ID.String()
	log := slog.With("job_id", jobID, "unit", unit)

	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxRetries; attempt++ {
		err := o.attemptUnit(ctx, job, provider, unit)
		if err == nil {
			log.Info("account created", "attempt", attempt)
			return nil
		}
		lastErr = err
		log.Warn("account creation attempt failed", "attempt", attempt, "error", err)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < o.cfg.MaxRetries {
			if serr := o.sleep(ctx, o.cfg.RetryDelay); serr != nil {
				return serr
			}
		}
	}

	if err := o.store.UpdateJob(ctx, jobID, store.JobUpdate{
		Increment: map[string]int{store.FieldFailed: 1},
	}); err != nil {
		log.Error("failed to record unit failure", "error", err)
	}
	return fmt.Errorf("unit %d failed after %d attempts: %w", unit, o.cfg.MaxRetries, lastErr)
}

func (o *Orchestrator) attemptUnit(ctx context.Context, job *models.CreationJob, provider mailprovider.Provider, unit int) error {
	counter := 0
	if job.UsernamePrefix != "" {
		counter = unit
	}
	username := generator.Username(job.UsernamePrefix, job.UsernameSeparator, counter)

	mailbox, err := o.acquireMailbox(ctx, provider)
	if err != nil {
		return err
	}

	password := generator.Password()
	phone := generator.Phone()

	ok, err := o.register(ctx, username, mailbox.Email, phone, password)
	if err != nil {
		return fmt.Errorf("registration call: %w", err)
	}
	if !ok {
		return errRegistrationRejected
	}

	session, err := json.Marshal(mailbox.Session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	account := &models.Account{
		ID:               uuid.New(),
		Username:         username,
		Email:            mailbox.Email,
		Password:         password,
		Phone:            phone,
		Status:           models.AccountStatusCreated,
		EmailProvider:    provider.Name(),
		EmailSessionData: session,
		CreatedAt:        time.Now().UTC(),
	}
	if err := o.store.CreateAccount(ctx, account); err != nil {
		return fmt.Errorf("failed to persist account: %w", err)
	}

	// A failure here leaves the account row without a counter bump; the
	// drift is logged rather than compensated.
	if err := o.store.UpdateJob(ctx, job.ID.String(), store.JobUpdate{
		Increment:     map[string]int{store.FieldCompleted: 1},
		AppendAccount: account.ID.String(),
	}); err != nil {
		slog.Error("failed to record unit success",
			"job_id", job.ID.String(), "account_id", account.ID.String(), "error", err)
	}
	return nil
}

// acquireMailbox retries on rate-limit signals with a linearly growing
// backoff, recording each signal in the shared guard. A timed-out provider
// yields a synthetic fallback mailbox so the batch keeps moving; any other
// provider error propagates as an attempt failure.
func (o *Orchestrator) acquireMailbox(ctx context.Context, provider mailprovider.Provider) (*mailprovider.Mailbox, error) {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.MailboxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, o.mailboxTimeout)
		mailbox, err := provider.CreateMailbox(callCtx)
		cancel()

		if err == nil {
			return mailbox, nil
		}

		switch {
		case errors.Is(err, mailprovider.ErrTimeout) || errors.Is(err, context.DeadlineExceeded):
			slog.Warn("mailbox acquisition timed out, using fallback address",
				"provider", provider.Name())
			return mailprovider.FallbackMailbox(), nil
		case errors.Is(err, mailprovider.ErrRateLimited):
			o.guard.MarkLimited()
			lastErr = err
			if attempt < o.cfg.MailboxRetries {
				backoff := o.cfg.RateLimitBackoff * time.Duration(attempt)
				slog.Warn("mail provider rate limited, backing off",
					"provider", provider.Name(), "backoff", backoff.String())
				if serr := o.sleep(ctx, backoff); serr != nil {
					return nil, serr
				}
			}
		default:
			return nil, err
		}
	}
	return nil, fmt.Errorf("mailbox acquisition exhausted %d attempts: %w", o.cfg.MailboxRetries, lastErr)
}

// pacing returns the inter-unit delay; shorter batches wait less. This
// exists only to stay under the upstream provider's abuse radar.
func (o *Orchestrator) pacing(total int) time.Duration {
	switch {
	case total <= 2:
		return o.cfg.PacingSmall
	case total <= 5:
		return o.cfg.PacingMedium
	default:
		return o.cfg.PacingLarge
	}
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
