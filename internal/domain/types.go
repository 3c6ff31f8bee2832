// Package domain defines the timesheet entities and the entry status set.
package domain

import "time"

// EntryStatus is the lifecycle state of a time entry.
type EntryStatus string

const (
	StatusDraft     EntryStatus = "DRAFT"
	StatusSubmitted EntryStatus = "SUBMITTED"
	StatusApproved  EntryStatus = "APPROVED"
	StatusRejected  EntryStatus = "REJECTED"
	StatusLocked    EntryStatus = "LOCKED"
	StatusBilled    EntryStatus = "BILLED"
)

// AllStatuses lists every entry status. Adding a status requires updating the
// transition table in the policy package.
var AllStatuses = []EntryStatus{
	StatusDraft, StatusSubmitted, StatusApproved,
	StatusRejected, StatusLocked, StatusBilled,
}

// RoundingInterval is a duration-rounding granularity in minutes.
// Zero disables rounding.
type RoundingInterval int

const (
	NoRounding     RoundingInterval = 0
	OneMinute      RoundingInterval = 1
	FiveMinutes    RoundingInterval = 5
	SixMinutes     RoundingInterval = 6
	FifteenMinutes RoundingInterval = 15
)

// TimeEntry is a single time-tracking record.
//
// The interval is [StartAt, EndAt). Status-dependent fields (ApprovedBy/At,
// RejectedBy/At/Reason, LockedAt, BilledAt/InvoiceID) are populated only once
// the entry reaches the corresponding stage and never regress.
type TimeEntry struct {
	ID              string      `json:"id"`
	ProjectID       string      `json:"projectId"`
	TaskID          *string     `json:"taskId,omitempty"`
	DeveloperID     string      `json:"developerId"`
	ClientID        string      `json:"clientId"`
	StartAt         time.Time   `json:"startAt"`
	EndAt           time.Time   `json:"endAt"`
	DurationMinutes int         `json:"durationMinutes"`
	Billable        bool        `json:"billable"`
	Category        string      `json:"category"`
	Tags            []string    `json:"tags,omitempty"`
	Status          EntryStatus `json:"status"`
	ApprovedBy      *string     `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time  `json:"approvedAt,omitempty"`
	RejectedBy      *string     `json:"rejectedBy,omitempty"`
	RejectedAt      *time.Time  `json:"rejectedAt,omitempty"`
	RejectionReason *string     `json:"rejectionReason,omitempty"`
	LockedAt        *time.Time  `json:"lockedAt,omitempty"`
	BilledAt        *time.Time  `json:"billedAt,omitempty"`
	InvoiceID       *string     `json:"invoiceId,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// RateCard prices a scope (developer / project / client) over an effective
// window. A developer default card has neither ProjectID nor ClientID set.
type RateCard struct {
	ID            string     `json:"id"`
	DeveloperID   *string    `json:"developerId,omitempty"`
	ProjectID     *string    `json:"projectId,omitempty"`
	ClientID      *string    `json:"clientId,omitempty"`
	HourlyRate    float64    `json:"hourlyRate"`
	Currency      string     `json:"currency"` // 3-letter ISO code
	EffectiveFrom time.Time  `json:"effectiveFrom"`
	EffectiveTo   *time.Time `json:"effectiveTo,omitempty"` // nil = open-ended
	IsActive      bool       `json:"isActive"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TimeLock is an administrative hold over a project or client period.
// Exactly one of ProjectID / ClientID is set. Locks are deactivated via
// unlock, never deleted.
type TimeLock struct {
	ID          string     `json:"id"`
	ProjectID   *string    `json:"projectId,omitempty"`
	ClientID    *string    `json:"clientId,omitempty"`
	PeriodStart time.Time  `json:"periodStart"`
	PeriodEnd   time.Time  `json:"periodEnd"`
	Reason      string     `json:"reason"`
	LockedBy    string     `json:"lockedBy"`
	LockedAt    time.Time  `json:"lockedAt"`
	UnlockedBy  *string    `json:"unlockedBy,omitempty"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
	IsActive    bool       `json:"isActive"`
}

// AuditAction identifies a workflow action in the audit log.
type AuditAction string

const (
	ActionSubmit  AuditAction = "SUBMIT"
	ActionApprove AuditAction = "APPROVE"
	ActionReject  AuditAction = "REJECT"
	ActionLock    AuditAction = "LOCK"
	ActionUnlock  AuditAction = "UNLOCK"
	ActionBill    AuditAction = "BILL"
)

// AuditLog is one immutable record of a workflow action. The core returns
// these; persistence is the caller's concern.
type AuditLog struct {
	ID         string                 `json:"id"`
	EntityType string                 `json:"entityType"` // TimeEntry | Timesheet | TimeLock
	EntityID   string                 `json:"entityId"`
	Action     AuditAction            `json:"action"`
	UserID     string                 `json:"userId"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
}

// Timesheet aggregates a developer's entries for a period. The denormalized
// minute totals are recomputed by the caller, not self-maintained.
type Timesheet struct {
	ID                 string      `json:"id"`
	DeveloperID        string      `json:"developerId"`
	PeriodStart        time.Time   `json:"periodStart"`
	PeriodEnd          time.Time   `json:"periodEnd"`
	Status             EntryStatus `json:"status"`
	Entries            []TimeEntry `json:"entries"`
	TotalMinutes       int         `json:"totalMinutes"`
	BillableMinutes    int         `json:"billableMinutes"`
	NonBillableMinutes int         `json:"nonBillableMinutes"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// WorkflowContext identifies the actor and instant of a workflow call.
type WorkflowContext struct {
	UserID    string
	UserRole  string
	Timestamp time.Time
}
