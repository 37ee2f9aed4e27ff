package models

import (
	"encoding/json"
	"time"
)

// Outbox task kinds
const (
	TaskAttachImages                = "attach_images"
	TaskEmailOpsBookingCreated      = "email_ops_booking_created"
	TaskEmailCustomerBookingCreated = "email_customer_booking_created"
	TaskEmailBookingAccepted        = "email_booking_accepted"
	TaskEmailBookingRejected        = "email_booking_rejected"
	TaskSMSBookingDecision          = "sms_booking_decision"
)

// Outbox task statuses
const (
	TaskStatusPending = "pending"
	TaskStatusDone    = "done"
	TaskStatusFailed  = "failed"
)

// OutboxTask is a side effect recorded in the same transaction as the write
// that caused it and executed later by the outbox worker
type OutboxTask struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Kind          string     `gorm:"size:64;not null;index" json:"kind"`
	Payload       string     `gorm:"type:text;not null" json:"payload"`
	Status        string     `gorm:"size:16;not null;default:pending;index:idx_outbox_due" json:"status"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	LastError     string     `gorm:"type:text" json:"last_error,omitempty"`
	NextAttemptAt time.Time  `gorm:"not null;index:idx_outbox_due" json:"next_attempt_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (OutboxTask) TableName() string { return "outbox_tasks" }

// TaskPayload is the JSON body of every outbox task
type TaskPayload struct {
	BookingID uint         `json:"booking_id"`
	Reason    string       `json:"reason,omitempty"`
	Status    string       `json:"status,omitempty"`
	Files     []StoredFile `json:"files,omitempty"`
}

// NewOutboxTask builds a pending task due immediately.
func NewOutboxTask(kind string, payload TaskPayload, now time.Time) (*OutboxTask, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &OutboxTask{
		Kind:          kind,
		Payload:       string(data),
		Status:        TaskStatusPending,
		NextAttemptAt: now,
	}, nil
}

// DecodePayload parses the task body.
func (t *OutboxTask) DecodePayload() (TaskPayload, error) {
	var p TaskPayload
	err := json.Unmarshal([]byte(t.Payload), &p)
	return p, err
}
