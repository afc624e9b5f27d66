package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ReviewFlag is a locally persisted conflict awaiting manual review: an
// ambiguous identity match or a returner event with no existing record.
// The engine only creates these; resolution happens out of band.
type ReviewFlag struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Channel        string         `gorm:"not null;column:channel" json:"channel"`
	SourceRecordID string         `gorm:"not null;column:source_record_id" json:"source_record_id"`
	Phone          string         `gorm:"column:phone" json:"phone"`
	Email          string         `gorm:"column:email" json:"email"`
	Reason         string         `gorm:"not null;column:reason" json:"reason"`
	CandidateIDs   string         `gorm:"column:candidate_ids" json:"candidate_ids"`
	Payload        datatypes.JSON `gorm:"column:payload" json:"payload"`
	Resolved       bool           `gorm:"not null;default:false;column:resolved" json:"resolved"`
	CreatedAt      time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (ReviewFlag) TableName() string {
	return "review_flag"
}

// EventLog records the terminal outcome of one intake event. Doubles as the
// engine-side idempotency bookkeeping and the dashboard's processing audit.
type EventLog struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Channel         string    `gorm:"not null;column:channel" json:"channel"`
	SourceRecordID  string    `gorm:"index;column:source_record_id" json:"source_record_id"`
	Outcome         string    `gorm:"not null;column:outcome" json:"outcome"`
	PersonID        string    `gorm:"column:person_id" json:"person_id"`
	Error           string    `gorm:"column:error" json:"error"`
	CapacityWarning bool      `gorm:"not null;default:false;column:capacity_warning" json:"capacity_warning"`
	CreatedAt       time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (EventLog) TableName() string {
	return "event_log"
}
