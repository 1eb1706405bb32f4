package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
)

// CreationJob tracks one batch request. Accounts is the ordered JSON list
// of account ids produced so far; Completed + Failed never exceeds Total.
// The request parameters are persisted so an interrupted job can be resumed
// with the remaining unit count after a restart.
type CreationJob struct {
	ID                uuid.UUID      `gorm:"type:varchar(36);primaryKey" json:"job_id"`
	Total             int            `gorm:"not null" json:"total"`
	Completed         int            `gorm:"default:0" json:"completed"`
	Failed            int            `gorm:"default:0" json:"failed"`
	Status            string         `gorm:"size:20;default:'processing';index" json:"status"`
	Accounts          datatypes.JSON `json:"accounts"`
	EmailProvider     string         `gorm:"size:50" json:"email_provider"`
	UsernamePrefix    string         `gorm:"size:50" json:"username_prefix,omitempty"`
	UsernameSeparator string         `gorm:"size:5" json:"username_separator,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// AccountIDs decodes the ordered account id list. A null or empty column
// decodes to an empty slice.
func (j *CreationJob) AccountIDs() []string {
	if len(j.Accounts) == 0 {
		return []string{}
	}
	var ids []string
	if err := json.Unmarshal(j.Accounts, &ids); err != nil {
		return []string{}
	}
	return ids
}

// Remaining is the number of units not yet resolved.
func (j *CreationJob) Remaining() int {
	r := j.Total - j.Completed - j.Failed
	if r < 0 {
		return 0
	}
	return r
}

// Progress is the completion percentage used by the job status endpoint.
func (j *CreationJob) Progress() float64 {
	if j.Total == 0 {
		return 0
	}
	return float64(j.Completed) / float64(j.Total) * 100
}
