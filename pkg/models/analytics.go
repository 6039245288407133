package models

// DashboardStats is the platform-wide analytics summary.
type DashboardStats struct {
	TotalUsers         int     `json:"totalUsers"`
	TotalClients       int     `json:"totalClients"`
	TotalProfessionals int     `json:"totalProfessionals"`
	TotalRiders        int     `json:"totalRiders"`
	ActiveUsers        int     `json:"activeUsers"`
	TotalOrders        int     `json:"totalOrders"`
	TotalServices      int     `json:"totalServices"`
	TotalDeliveries    int     `json:"totalDeliveries"`
	TotalRevenue       float64 `json:"totalRevenue"`
	MonthlyRevenue     float64 `json:"monthlyRevenue"`
	PendingDisputes    int     `json:"pendingDisputes"`
	ActiveDeliveries   int     `json:"activeDeliveries"`
}

// RankedUser is a user with an activity score.
type RankedUser struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	ActivityScore float64 `json:"activityScore"`
}

// UserAnalytics reports sign-ups and retention over a date range.
type UserAnalytics struct {
	NewUsersToday     int          `json:"newUsersToday"`
	NewUsersThisWeek  int          `json:"newUsersThisWeek"`
	NewUsersThisMonth int          `json:"newUsersThisMonth"`
	UserGrowthRate    float64      `json:"userGrowthRate"`
	UserRetentionRate float64      `json:"userRetentionRate"`
	MostActiveUsers   []RankedUser `json:"mostActiveUsers"`
}

// DatedAmount is a revenue figure for one day.
type DatedAmount struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// MonthlyAmount is a revenue figure for one month.
type MonthlyAmount struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

// CategoryShare is an amount or count attributed to a category.
type CategoryShare struct {
	Category   string  `json:"category"`
	Amount     float64 `json:"amount,omitempty"`
	Count      int     `json:"count,omitempty"`
	Percentage float64 `json:"percentage"`
}

// Earner is a professional ranked by earnings.
type Earner struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Earnings float64 `json:"earnings"`
	Services int     `json:"services"`
}

// RevenueAnalytics breaks revenue down by day, month and category.
type RevenueAnalytics struct {
	DailyRevenue            []DatedAmount   `json:"dailyRevenue"`
	MonthlyRevenue          []MonthlyAmount `json:"monthlyRevenue"`
	RevenueByCategory       []CategoryShare `json:"revenueByCategory"`
	TopEarningProfessionals []Earner        `json:"topEarningProfessionals"`
}

// ServiceAnalytics summarizes service outcomes.
type ServiceAnalytics struct {
	TotalServices         int             `json:"totalServices"`
	CompletedServices     int             `json:"completedServices"`
	CancelledServices     int             `json:"cancelledServices"`
	AverageRating         float64         `json:"averageRating"`
	PopularCategories     []CategoryShare `json:"popularCategories"`
	ServiceCompletionRate float64         `json:"serviceCompletionRate"`
}

// RankedRider is a rider ranked by completed deliveries.
type RankedRider struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Deliveries int     `json:"deliveries"`
	Rating     float64 `json:"rating"`
}

// DeliveryAnalytics summarizes delivery performance.
type DeliveryAnalytics struct {
	TotalDeliveries     int           `json:"totalDeliveries"`
	CompletedDeliveries int           `json:"completedDeliveries"`
	AverageDeliveryTime float64       `json:"averageDeliveryTime"`
	OnTimeDeliveryRate  float64       `json:"onTimeDeliveryRate"`
	TopPerformingRiders []RankedRider `json:"topPerformingRiders"`
}
