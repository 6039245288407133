package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/marketdesk/pkg/models"
)

// fixtureTime is the creation time of every fixture.
var fixtureTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// NewDispute returns an open Dispute with sensible defaults, suitable for
// test fixtures.
func NewDispute(opts ...func(*models.Dispute)) models.Dispute {
	d := models.Dispute{
		ID:              uuid.New().String(),
		Type:            models.DisputeMarketplace,
		ComplainantName: "Test Client",
		ComplainantType: models.PartyClient,
		RespondentName:  "Test Seller",
		RespondentType:  models.PartyProfessional,
		Title:           "test dispute",
		Status:          models.DisputeOpen,
		Priority:        models.PriorityMedium,
		Evidence:        []models.Evidence{},
		CreatedAt:       fixtureTime,
		UpdatedAt:       fixtureTime,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithDisputeID sets the dispute identifier.
func WithDisputeID(id string) func(*models.Dispute) {
	return func(d *models.Dispute) { d.ID = id }
}

// WithDisputeStatus sets the dispute status.
func WithDisputeStatus(s models.DisputeStatus) func(*models.Dispute) {
	return func(d *models.Dispute) { d.Status = s }
}

// WithPriority sets the dispute priority.
func WithPriority(p models.Priority) func(*models.Dispute) {
	return func(d *models.Dispute) { d.Priority = p }
}

// NewProduct returns a pending Product.
func NewProduct(opts ...func(*models.Product)) models.Product {
	p := models.Product{
		ID:         uuid.New().String(),
		Title:      "test product",
		Price:      1000,
		Images:     []string{},
		Category:   "tools",
		SellerName: "Test Seller",
		Status:     models.ProductStatusPending,
		Stock:      1,
		Condition:  models.ConditionNew,
		CreatedAt:  fixtureTime,
		UpdatedAt:  fixtureTime,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// WithProductID sets the product identifier.
func WithProductID(id string) func(*models.Product) {
	return func(p *models.Product) { p.ID = id }
}

// WithProductStatus sets the product status.
func WithProductStatus(s models.ProductStatus) func(*models.Product) {
	return func(p *models.Product) { p.Status = s }
}

// NewUser returns an active, unverified account of the given role.
func NewUser(role models.UserRole, opts ...func(*models.User)) models.User {
	id := uuid.New().String()
	u := models.User{
		ID:        id,
		Email:     id[:8] + "@example.com",
		Status:    models.UserStatusActive,
		Role:      role,
		Agreed:    true,
		CreatedAt: fixtureTime,
		UpdatedAt: fixtureTime,
		Profile:   models.UserProfile{FirstName: "Test", LastName: string(role), UserID: id},
	}
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

// WithUserStatus sets the account status.
func WithUserStatus(s models.UserStatus) func(*models.User) {
	return func(u *models.User) { u.Status = s }
}
