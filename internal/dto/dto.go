package dto

import (
	"time"

	"github.com/mmkdev/account-factory/internal/mailprovider"
	"github.com/mmkdev/account-factory/internal/models"
)

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type CreateAccountsRequest struct {
	Quantity          int    `json:"quantity"`
	EmailProvider     string `json:"email_provider"`
	UsernamePrefix    string `json:"username_prefix"`
	UsernameSeparator string `json:"username_separator"`
}

type CreateAccountsResponse struct {
	JobID         string `json:"job_id"`
	Message       string `json:"message"`
	Status        string `json:"status"`
	EmailProvider string `json:"email_provider"`
}

type JobStatusResponse struct {
	JobID              string           `json:"job_id"`
	Total              int              `json:"total"`
	Completed          int              `json:"completed"`
	Failed             int              `json:"failed"`
	Status             string           `json:"status"`
	ProgressPercentage float64          `json:"progress_percentage"`
	Accounts           []models.Account `json:"accounts"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type VerifyLoginResponse struct {
	Message  string             `json:"message"`
	LoginURL string             `json:"login_url"`
	Account  AccountCredentials `json:"account"`
}

type AccountCredentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type RegenerateResponse struct {
	Message     string `json:"message"`
	AccountID   string `json:"account_id"`
	OldEmail    string `json:"old_email"`
	NewEmail    string `json:"new_email"`
	NewUsername string `json:"new_username"`
}

type InboxResponse struct {
	AccountID string                        `json:"account_id"`
	Email     string                        `json:"email"`
	Provider  string                        `json:"provider,omitempty"`
	Messages  []mailprovider.MessageSummary `json:"messages"`
	Count     int                           `json:"count"`
	Error     string                        `json:"error,omitempty"`
}

type MessageContentResponse struct {
	AccountID string                `json:"account_id"`
	Message   *mailprovider.Message `json:"message"`
}

type DeleteResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count,omitempty"`
}

type LoginRequest struct {
	Token string `json:"token"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RateLimitStatusResponse struct {
	Status           string `json:"status"`
	InCooldown       bool   `json:"in_cooldown"`
	RemainingSeconds int    `json:"remaining_seconds"`
	Message          string `json:"message"`
	Recommendation   string `json:"recommendation"`
}
