package models

import "time"

// ProductStatus is the moderation state of a marketplace listing.
type ProductStatus string

const (
	ProductStatusPending   ProductStatus = "pending"
	ProductStatusApproved  ProductStatus = "approved"
	ProductStatusRejected  ProductStatus = "rejected"
	ProductStatusSuspended ProductStatus = "suspended"
)

// ProductCondition describes the physical state of the listed item.
type ProductCondition string

const (
	ConditionNew         ProductCondition = "new"
	ConditionUsed        ProductCondition = "used"
	ConditionRefurbished ProductCondition = "refurbished"
)

// Product is a marketplace listing awaiting or past moderation.
type Product struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Price       float64          `json:"price"`
	Images      []string         `json:"images"`
	Category    string           `json:"category"`
	SellerID    string           `json:"sellerId"`
	SellerName  string           `json:"sellerName"`
	Status      ProductStatus    `json:"status"`
	Stock       int              `json:"stock"`
	Condition   ProductCondition `json:"condition"`
	Location    string           `json:"location"`
	Reason      string           `json:"reason,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// TransactionStatus tracks a marketplace order from payment to delivery.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionConfirmed TransactionStatus = "confirmed"
	TransactionShipped   TransactionStatus = "shipped"
	TransactionDelivered TransactionStatus = "delivered"
	TransactionCancelled TransactionStatus = "cancelled"
	TransactionDisputed  TransactionStatus = "disputed"
)

// Transaction is a purchase of a marketplace product.
type Transaction struct {
	ID              string            `json:"id"`
	ProductID       string            `json:"productId"`
	BuyerID         string            `json:"buyerId"`
	SellerID        string            `json:"sellerId"`
	RiderID         string            `json:"riderId,omitempty"`
	Amount          float64           `json:"amount"`
	Status          TransactionStatus `json:"status"`
	DeliveryAddress string            `json:"deliveryAddress"`
	PaymentMethod   string            `json:"paymentMethod"`
	CreatedAt       time.Time         `json:"createdAt"`
}
