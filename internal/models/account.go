package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Account statuses. Transitions only move forward:
// created -> pending_verification -> verified, or created -> failed.
const (
	AccountStatusCreated             = "created"
	AccountStatusPendingVerification = "pending_verification"
	AccountStatusVerified            = "verified"
	AccountStatusFailed              = "failed"
)

// Account is one generated service account together with the disposable
// mailbox that backs it. EmailSessionData holds whatever opaque auth
// material the mail provider issued (token, cookies, ...).
type Account struct {
	ID               uuid.UUID      `gorm:"type:varchar(36);primaryKey" json:"id"`
	Username         string         `gorm:"size:100;not null;index" json:"username"`
	Email            string         `gorm:"size:255;not null" json:"email"`
	Password         string         `gorm:"size:100;not null" json:"password"`
	Phone            string         `gorm:"size:30" json:"phone"`
	Status           string         `gorm:"size:30;default:'created';index" json:"status"`
	EmailProvider    string         `gorm:"size:50" json:"email_provider"`
	EmailSessionData datatypes.JSON `json:"email_session_data"`
	ErrorMessage     string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// ValidStatusTransition reports whether status may move from old to new.
func ValidStatusTransition(old, new string) bool {
	switch old {
	case AccountStatusCreated:
		return new == AccountStatusPendingVerification || new == AccountStatusVerified || new == AccountStatusFailed
	case AccountStatusPendingVerification:
		return new == AccountStatusVerified || new == AccountStatusFailed
	default:
		return false
	}
}
