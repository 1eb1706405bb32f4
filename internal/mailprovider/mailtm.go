package mailprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const mailTMName = "mail.tm"

// MailTM talks to the mail.tm REST API (https://api.mail.tm). Account and
// token creation follow the documented flow: pick a domain from /domains,
// register a random address via /accounts, then exchange the credentials
// for a bearer token via /token.
type MailTM struct {
	baseURL    string
	httpClient *http.Client
}

func NewMailTM(baseURL string, timeout time.Duration) *MailTM {
	return &MailTM{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (m *MailTM) Name() string { return mailTMName }

type hydraMember[T any] struct {
	Member []T `json:"hydra:member"`
}

type mailTMDomain struct {
	Domain string `json:"domain"`
}

type mailTMAddress struct {
	From struct {
		Address string `json:"address"`
	} `json:"from"`
}

type mailTMMessage struct {
	ID      string   `json:"id"`
	Subject string   `json:"subject"`
	Intro   string   `json:"intro"`
	Text    string   `json:"text"`
	HTML    []string `json:"html"`
	From    struct {
		Address string `json:"address"`
	} `json:"from"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateMailbox registers a fresh random address and returns it together
// with the session material (credentials + bearer token) needed to read
// the inbox later.
func (m *MailTM) CreateMailbox(ctx context.Context) (*Mailbox, error) {
	domain, err := m.pickDomain(ctx)
	if err != nil {
		return nil, err
	}

	username := randomString(10, "abcdefghijklmnopqrstuvwxyz0123456789")
	password := randomString(12, "abcdefghijklmnopqrstuvwxyz0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	email := username + "@" + domain

	payload := map[string]string{"address": email, "password": password}

	if err := m.post(ctx, "/accounts", payload, nil); err != nil {
		return nil, err
	}

	var tokenResp struct {
		Token string `json:"token"`
	}
	if err := m.post(ctx, "/token", payload, &tokenResp); err != nil {
		return nil, err
	}
	if tokenResp.Token == "" {
		return nil, fmt.Errorf("%w: empty token response", ErrUnavailable)
	}

	return &Mailbox{
		Email:    email,
		Password: password,
		Session: Session{
			"email":      email,
			"password":   password,
			"token":      tokenResp.Token,
			"created_at": time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

// ListMessages is best-effort: any provider failure yields an empty slice,
// never an error. Messages from example.com senders (mail.tm's own demo
// mail) are filtered out.
func (m *MailTM) ListMessages(ctx context.Context, session Session) ([]MessageSummary, error) {
	token := session.Token()
	if token == "" {
		return []MessageSummary{}, nil
	}

	var resp hydraMember[mailTMMessage]
	if err := m.get(ctx, "/messages", token, &resp); err != nil {
		return []MessageSummary{}, nil
	}

	summaries := make([]MessageSummary, 0, len(resp.Member))
	for _, msg := range resp.Member {
		if strings.HasSuffix(msg.From.Address, "@example.com") {
			continue
		}
		summaries = append(summaries, MessageSummary{
			ID:        msg.ID,
			From:      msg.From.Address,
			Subject:   msg.Subject,
			Preview:   msg.Intro,
			CreatedAt: msg.CreatedAt,
		})
	}
	return summaries, nil
}

func (m *MailTM) GetMessage(ctx context.Context, session Session, messageID string) (*Message, error) {
	token := session.Token()
	if token == "" {
		return nil, ErrMessageNotFound
	}

	var msg mailTMMessage
	if err := m.get(ctx, "/messages/"+url.PathEscape(messageID), token, &msg); err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	full := &Message{
		MessageSummary: MessageSummary{
			ID:        msg.ID,
			From:      msg.From.Address,
			Subject:   msg.Subject,
			Preview:   msg.Intro,
			CreatedAt: msg.CreatedAt,
		},
		Text: msg.Text,
	}
	if len(msg.HTML) > 0 {
		full.HTML = strings.Join(msg.HTML, "")
	}
	return full, nil
}

func (m *MailTM) pickDomain(ctx context.Context) (string, error) {
	var resp hydraMember[mailTMDomain]
	if err := m.get(ctx, "/domains", "", &resp); err != nil {
		return "", err
	}
	if len(resp.Member) == 0 {
		return mailTMName, nil
	}
	return resp.Member[rand.Intn(len(resp.Member))].Domain, nil
}

func (m *MailTM) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return m.do(req, out)
}

func (m *MailTM) get(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return m.do(req, out)
}

func (m *MailTM) do(req *http.Request, out any) error {
	resp, err := m.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s %s", ErrRateLimited, req.Method, req.URL.Path)
	case resp.StatusCode == http.StatusNotFound:
		return ErrMessageNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: %s %s returned status %d", ErrUnavailable, req.Method, req.URL.Path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}
	return nil
}

func isTimeout(err error) bool {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func randomString(length int, charset string) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
