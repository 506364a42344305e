package server

import (
	"caseline/internal/domain"
)

// Request payloads

type CreateDossierRequest struct {
	ID   *string `json:"id,omitempty"`
	Ref  string  `json:"ref"`
	Flow *string `json:"flow,omitempty" enum:"local,repatriation,unset"`
}

type SetFlowRequest struct {
	Flow string `json:"flow" enum:"local,repatriation"`
}

type TransitionRequest struct {
	Target string `json:"target" enum:"created,in_progress,under_review,completed,closed"`
	Reason string `json:"reason,omitempty"`
}

type PlaceHoldRequest struct {
	Reason string `json:"reason"`
}

type MoveTaskRequest struct {
	Column string `json:"column" enum:"todo,doing,done"`
}

type CompleteTaskRequest struct {
	Note string `json:"note,omitempty"`
}

type BlockTaskRequest struct {
	Blocked bool    `json:"blocked"`
	Reason  *string `json:"reason,omitempty"`
}

type AssignTaskRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// Response payloads. Domain types carry their own JSON shape; composites
// below exist where an operation returns more than one thing.

type SeedResponse struct {
	Created int `json:"created"`
}

type EvaluateResponse struct {
	Completed []string `json:"completed,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

type TransitionResponse struct {
	Dossier domain.Dossier            `json:"dossier"`
	Event   domain.StatusHistoryEvent `json:"event"`
}
