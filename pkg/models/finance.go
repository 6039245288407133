package models

import "time"

// InvoiceStatus is shared by receivables and payables.
type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// Receivable is money owed to the platform.
type Receivable struct {
	ID               string        `json:"id"`
	InvoiceNumber    string        `json:"invoiceNumber"`
	ClientID         string        `json:"clientId"`
	ClientName       string        `json:"clientName"`
	Amount           float64       `json:"amount"`
	DueDate          time.Time     `json:"dueDate"`
	Status           InvoiceStatus `json:"status"`
	Description      string        `json:"description"`
	RelatedOrderID   string        `json:"relatedOrderId,omitempty"`
	RelatedServiceID string        `json:"relatedServiceId,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	PaidAt           *time.Time    `json:"paidAt,omitempty"`
}

// Payable is money the platform owes a vendor.
type Payable struct {
	ID                string        `json:"id"`
	VendorID          string        `json:"vendorId"`
	VendorName        string        `json:"vendorName"`
	VendorType        string        `json:"vendorType"`
	Amount            float64       `json:"amount"`
	DueDate           time.Time     `json:"dueDate"`
	Status            InvoiceStatus `json:"status"`
	Description       string        `json:"description"`
	RelatedOrderID    string        `json:"relatedOrderId,omitempty"`
	RelatedServiceID  string        `json:"relatedServiceId,omitempty"`
	RelatedDeliveryID string        `json:"relatedDeliveryId,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	PaidAt            *time.Time    `json:"paidAt,omitempty"`
}

// LedgerEntry is a single line of the platform's financial ledger.
type LedgerEntry struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	RelatedID   string    `json:"relatedId,omitempty"`
	RelatedType string    `json:"relatedType,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FinancialSummary is the platform's cash position.
type FinancialSummary struct {
	TotalReceivables   float64 `json:"totalReceivables"`
	OverdueReceivables float64 `json:"overdueReceivables"`
	TotalPayables      float64 `json:"totalPayables"`
	OverduePayables    float64 `json:"overduePayables"`
	NetCashFlow        float64 `json:"netCashFlow"`
	MonthlyRevenue     float64 `json:"monthlyRevenue"`
	MonthlyExpenses    float64 `json:"monthlyExpenses"`
	ProfitMargin       float64 `json:"profitMargin"`
	TotalRevenue       float64 `json:"totalRevenue"`
	TotalExpenses      float64 `json:"totalExpenses"`
	NetProfit          float64 `json:"netProfit"`
}

// NewReceivable is the body of a create-receivable request.
type NewReceivable struct {
	ClientID         string    `json:"clientId"`
	ClientName       string    `json:"clientName,omitempty"`
	Amount           float64   `json:"amount"`
	DueDate          time.Time `json:"dueDate"`
	Description      string    `json:"description"`
	RelatedOrderID   string    `json:"relatedOrderId,omitempty"`
	RelatedServiceID string    `json:"relatedServiceId,omitempty"`
}

// NewPayable is the body of a create-payable request.
type NewPayable struct {
	VendorID          string    `json:"vendorId"`
	VendorName        string    `json:"vendorName,omitempty"`
	VendorType        string    `json:"vendorType"`
	Amount            float64   `json:"amount"`
	DueDate           time.Time `json:"dueDate"`
	Description       string    `json:"description"`
	RelatedOrderID    string    `json:"relatedOrderId,omitempty"`
	RelatedServiceID  string    `json:"relatedServiceId,omitempty"`
	RelatedDeliveryID string    `json:"relatedDeliveryId,omitempty"`
}
