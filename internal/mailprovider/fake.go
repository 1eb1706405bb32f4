package mailprovider

import (
	"context"
	"sync"
)

// Fake is the injectable test double for the Provider interface. Behavior
// defaults to a working mailbox and an empty inbox; override the Fn fields
// to script failures.
type Fake struct {
	ProviderName string

	CreateFn func(call int) (*Mailbox, error)
	ListFn   func(session Session) ([]MessageSummary, error)
	GetFn    func(session Session, messageID string) (*Message, error)

	mu      sync.Mutex
	creates int
}

func (f *Fake) Name() string {
	if f.ProviderName == "" {
		return "fake.mail"
	}
	return f.ProviderName
}

func (f *Fake) CreateMailbox(_ context.Context) (*Mailbox, error) {
	f.mu.Lock()
	f.creates++
	call := f.creates
	f.mu.Unlock()

	if f.CreateFn != nil {
		return f.CreateFn(call)
	}
	return &Mailbox{
		Email:   "box@fake.mail",
		Session: Session{"token": "tok"},
	}, nil
}

func (f *Fake) ListMessages(_ context.Context, session Session) ([]MessageSummary, error) {
	if f.ListFn != nil {
		return f.ListFn(session)
	}
	return []MessageSummary{}, nil
}

func (f *Fake) GetMessage(_ context.Context, session Session, messageID string) (*Message, error) {
	if f.GetFn != nil {
		return f.GetFn(session, messageID)
	}
	return nil, ErrMessageNotFound
}

// CreateCalls reports how many times CreateMailbox ran.
func (f *Fake) CreateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}
