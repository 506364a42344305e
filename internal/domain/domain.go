package domain

// Status is the canonical dossier workflow status. There is exactly one
// status enum; presentation labels are derived elsewhere.
type Status string

const (
	StatusCreated     Status = "created"
	StatusInProgress  Status = "in_progress"
	StatusUnderReview Status = "under_review"
	StatusCompleted   Status = "completed"
	StatusClosed      Status = "closed"
)

// AllStatuses lists every valid status in workflow order.
var AllStatuses = []Status{StatusCreated, StatusInProgress, StatusUnderReview, StatusCompleted, StatusClosed}

func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// FlowType selects which template catalog applies to a dossier.
type FlowType string

const (
	FlowLocal        FlowType = "local"
	FlowRepatriation FlowType = "repatriation"
	FlowUnset        FlowType = "unset"
)

func (f FlowType) Valid() bool {
	return f == FlowLocal || f == FlowRepatriation || f == FlowUnset
}

// Phase is the seeding taxonomy. Several statuses may map to one phase so
// re-entering a phase does not re-seed already satisfied tasks.
type Phase string

const (
	PhaseRegistration Phase = "registration"
	PhaseIntake       Phase = "intake"
	PhaseReview       Phase = "review"
	PhaseClosure      Phase = "closure"
)

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh || p == PriorityUrgent
}

// Column is a board column (workflow stage) for tasks.
type Column string

const (
	ColumnTodo  Column = "todo"
	ColumnDoing Column = "doing"
	ColumnDone  Column = "done"
)

func (c Column) Valid() bool {
	return c == ColumnTodo || c == ColumnDoing || c == ColumnDone
}

// Dossier is a case record. Status changes only go through the engine's
// transition gate; dossiers are closed, never deleted.
type Dossier struct {
	ID              string   `json:"id"`
	Ref             string   `json:"ref"`
	Flow            FlowType `json:"flow" enum:"local,repatriation,unset"`
	Status          Status   `json:"status" enum:"created,in_progress,under_review,completed,closed"`
	LegalHold       bool     `json:"legal_hold"`
	LegalHoldReason *string  `json:"legal_hold_reason,omitempty"`
	CreatedAt       string   `json:"created_at" format:"date-time"`
	UpdatedAt       string   `json:"updated_at" format:"date-time"`
}

// Task is a concrete work item. DossierID is nil for loose tasks that are
// not attached to a case. (dossier_id, type) is unique for attached tasks;
// it is the seeder's idempotency key.
type Task struct {
	ID             string   `json:"id"`
	DossierID      *string  `json:"dossier_id,omitempty"`
	Type           string   `json:"type"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Priority       Priority `json:"priority" enum:"low,medium,high,urgent"`
	Column         Column   `json:"column" enum:"todo,doing,done"`
	Position       int      `json:"position"`
	AssigneeID     *string  `json:"assignee_id,omitempty"`
	Labels         []string `json:"labels,omitempty"`
	DueDate        *string  `json:"due_date,omitempty" format:"date-time"`
	Blocked        bool     `json:"blocked"`
	BlockedReason  *string  `json:"blocked_reason,omitempty"`
	AutoRuleJSON   *string  `json:"auto_rule_json,omitempty"`
	CompletionNote *string  `json:"completion_note,omitempty"`
	CatalogVersion *int     `json:"catalog_version,omitempty"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
	CompletedAt    *string  `json:"completed_at,omitempty" format:"date-time"`
	ArchivedAt     *string  `json:"archived_at,omitempty" format:"date-time"`
}

// Open reports whether the task still gates a transition.
func (t Task) Open() bool {
	return t.Column != ColumnDone && t.ArchivedAt == nil
}

// StatusHistoryEvent is the append-only record of one status change. It is
// written in the same transaction as the dossier update.
type StatusHistoryEvent struct {
	ID         int64   `json:"id"`
	DossierID  string  `json:"dossier_id"`
	FromStatus Status  `json:"from_status" enum:"created,in_progress,under_review,completed,closed"`
	ToStatus   Status  `json:"to_status" enum:"created,in_progress,under_review,completed,closed"`
	ActorID    string  `json:"actor_id"`
	Reason     *string `json:"reason,omitempty"`
	TS         string  `json:"ts" format:"date-time"`
}

// APIKey authenticates a service or user against the HTTP API. Privileged
// keys may request transitions outside the allowed graph.
type APIKey struct {
	ID         string `json:"id"`
	ActorID    string `json:"actor_id"`
	Name       string `json:"name,omitempty"`
	KeyHash    string `json:"key_hash"`
	Privileged bool   `json:"privileged"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

// AuditEntry is a generic append-only audit record (hold changes, overrides,
// auto-completions, board moves).
type AuditEntry struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Action     string `json:"action"`
	DossierID  string `json:"dossier_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
