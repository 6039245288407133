package models

import "time"

// DisputeType names the part of the marketplace a dispute arose from.
type DisputeType string

const (
	DisputeService     DisputeType = "service"
	DisputeMarketplace DisputeType = "marketplace"
	DisputeDelivery    DisputeType = "delivery"
)

// DisputeStatus is the handling state of a dispute.
type DisputeStatus string

const (
	DisputeOpen          DisputeStatus = "open"
	DisputeInvestigating DisputeStatus = "investigating"
	DisputeResolved      DisputeStatus = "resolved"
	DisputeClosed        DisputeStatus = "closed"
)

// Priority orders disputes in the admin queue.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// PartyType identifies who raised or answers a dispute.
type PartyType string

const (
	PartyAdmin        PartyType = "admin"
	PartyClient       PartyType = "client"
	PartyProfessional PartyType = "professional"
	PartyRider        PartyType = "rider"
)

// Evidence is a file or record attached to a dispute.
type Evidence struct {
	ID          string    `json:"id"`
	DisputeID   string    `json:"disputeId"`
	Type        string    `json:"type"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	UploadedBy  string    `json:"uploadedBy"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Dispute is a complaint between two parties that an admin arbitrates.
type Dispute struct {
	ID              string        `json:"id"`
	Type            DisputeType   `json:"type"`
	RelatedID       string        `json:"relatedId"`
	ComplainantID   string        `json:"complainantId"`
	ComplainantName string        `json:"complainantName"`
	ComplainantType PartyType     `json:"complainantType"`
	RespondentID    string        `json:"respondentId"`
	RespondentName  string        `json:"respondentName"`
	RespondentType  PartyType     `json:"respondentType"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Status          DisputeStatus `json:"status"`
	Priority        Priority      `json:"priority"`
	Resolution      string        `json:"resolution,omitempty"`
	RefundAmount    *float64      `json:"refundAmount,omitempty"`
	Evidence        []Evidence    `json:"evidence"`
	AdminNotes      string        `json:"adminNotes,omitempty"`
	AssignedAdminID string        `json:"assignedAdminId,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	ResolvedAt      *time.Time    `json:"resolvedAt,omitempty"`
}
