// Package mailprovider acquires disposable mailboxes from temporary-email
// services. Providers are pluggable behind a small capability interface so
// the worker can be tested without network access.
package mailprovider

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

var (
	// ErrUnavailable: the provider could not be reached or answered with
	// an unexpected shape. Treated by the worker as an attempt failure.
	ErrUnavailable = errors.New("mail provider unavailable")
	// ErrRateLimited: the provider returned a rate-limit signal. The
	// worker backs off and records a global cooldown.
	ErrRateLimited = errors.New("mail provider rate limited")
	// ErrTimeout: the bounded per-call timeout elapsed. The worker
	// substitutes a fallback mailbox so the batch does not stall.
	ErrTimeout = errors.New("mail provider timed out")

	ErrMessageNotFound = errors.New("message not found")
)

// Session is the opaque provider-specific auth material persisted with an
// account (token, cookies, whatever the provider issued).
type Session map[string]any

// Token extracts the bearer token, if the provider issued one.
func (s Session) Token() string {
	if s == nil {
		return ""
	}
	t, _ := s["token"].(string)
	return t
}

type Mailbox struct {
	Email    string
	Password string
	Session  Session
}

type MessageSummary struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	Subject   string    `json:"subject"`
	Preview   string    `json:"preview"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	MessageSummary
	Text string `json:"text"`
	HTML string `json:"html,omitempty"`
}

// Provider is the capability set every temp-mail adapter implements.
// ListMessages is best-effort: adapters return an empty slice instead of
// an error for provider-side failures, so inbox checks never abort a batch.
type Provider interface {
	Name() string
	CreateMailbox(ctx context.Context) (*Mailbox, error)
	ListMessages(ctx context.Context, session Session) ([]MessageSummary, error)
	GetMessage(ctx context.Context, session Session, messageID string) (*Message, error)
}

// FallbackMailbox builds a synthetic address with an empty session. Used
// when mailbox acquisition times out so the unit can still proceed.
func FallbackMailbox() *Mailbox {
	return &Mailbox{
		Email:   fmt.Sprintf("fallback%06d@fallback.mail", rand.Intn(900000)+100000),
		Session: Session{},
	}
}
