package models

import "time"

// ActivityStatus is the outcome of a logged platform action.
type ActivityStatus string

const (
	ActivitySuccess    ActivityStatus = "success"
	ActivityFailed     ActivityStatus = "failed"
	ActivityPending    ActivityStatus = "pending"
	ActivityProcessing ActivityStatus = "processing"
)

// Activity is one entry of the admin dashboard feed.
type Activity struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Action    string         `json:"action"`
	Status    ActivityStatus `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
}

// DashboardOverview holds the headline counters of the admin dashboard.
type DashboardOverview struct {
	TotalUsers         int     `json:"totalUsers"`
	ActiveOrders       int     `json:"activeOrders"`
	ActiveDeliveries   int     `json:"activeDeliveries"`
	MonthlyRevenue     float64 `json:"monthlyRevenue"`
	TotalClients       int     `json:"clients"`
	TotalProfessionals int     `json:"professionals"`
	TotalRiders        int     `json:"riders"`
}

// TopPerformer is a professional or rider ranked by rating.
type TopPerformer struct {
	ID        string      `json:"id"`
	Role      UserRole    `json:"role"`
	Email     string      `json:"email,omitempty"`
	Phone     string      `json:"phone,omitempty"`
	Status    UserStatus  `json:"status,omitempty"`
	AvgRating float64     `json:"avgRating"`
	Profile   UserProfile `json:"profile"`
}

// Name joins the profile names.
func (p TopPerformer) Name() string {
	return User{Email: p.Email, Profile: p.Profile}.DisplayName()
}
