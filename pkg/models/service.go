package models

import "time"

// ServiceStatus is the availability of a professional's offering.
type ServiceStatus string

const (
	ServiceActive    ServiceStatus = "active"
	ServiceInactive  ServiceStatus = "inactive"
	ServiceSuspended ServiceStatus = "suspended"
)

// Service is an offering published by a professional.
type Service struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Price            float64       `json:"price"`
	DurationMinutes  int           `json:"duration"`
	Category         string        `json:"category"`
	ProfessionalID   string        `json:"professionalId"`
	ProfessionalName string        `json:"professionalName"`
	Status           ServiceStatus `json:"status"`
	Rating           float64       `json:"rating"`
	TotalBookings    int           `json:"totalBookings"`
	Images           []string      `json:"images"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// ServiceRequestStatus tracks a booking through its lifecycle.
type ServiceRequestStatus string

const (
	RequestPending    ServiceRequestStatus = "pending"
	RequestAccepted   ServiceRequestStatus = "accepted"
	RequestInProgress ServiceRequestStatus = "in_progress"
	RequestCompleted  ServiceRequestStatus = "completed"
	RequestCancelled  ServiceRequestStatus = "cancelled"
	RequestDisputed   ServiceRequestStatus = "disputed"
	RequestResolved   ServiceRequestStatus = "resolved"
)

// PaymentStatus is the settlement state of a booking.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// ServiceRequest is a client's booking of a service.
type ServiceRequest struct {
	ID               string               `json:"id"`
	ServiceID        string               `json:"serviceId"`
	ClientID         string               `json:"clientId"`
	ProfessionalID   string               `json:"professionalId"`
	Status           ServiceRequestStatus `json:"status"`
	ScheduledDate    time.Time            `json:"scheduledDate"`
	Amount           float64              `json:"amount"`
	PaymentStatus    PaymentStatus        `json:"paymentStatus"`
	ClientName       string               `json:"clientName"`
	ProfessionalName string               `json:"professionalName"`
	ServiceTitle     string               `json:"serviceTitle"`
	Notes            string               `json:"notes,omitempty"`
	Resolution       string               `json:"resolution,omitempty"`
	RefundAmount     *float64             `json:"refundAmount,omitempty"`
	CreatedAt        time.Time            `json:"createdAt"`
	CompletedAt      *time.Time           `json:"completedAt,omitempty"`
}
