package models

import "time"

// DeliveryStatus tracks a parcel from request to drop-off.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryAssigned  DeliveryStatus = "assigned"
	DeliveryPickedUp  DeliveryStatus = "picked_up"
	DeliveryInTransit DeliveryStatus = "in_transit"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryCancelled DeliveryStatus = "cancelled"
)

// Delivery is a rider job created for a marketplace order.
type Delivery struct {
	ID                string         `json:"id"`
	OrderID           string         `json:"orderId"`
	RiderID           string         `json:"riderId,omitempty"`
	RiderName         string         `json:"riderName,omitempty"`
	ClientID          string         `json:"clientId"`
	ClientName        string         `json:"clientName"`
	SellerID          string         `json:"sellerId"`
	SellerName        string         `json:"sellerName"`
	Status            DeliveryStatus `json:"status"`
	PickupAddress     string         `json:"pickupAddress"`
	DeliveryAddress   string         `json:"deliveryAddress"`
	EstimatedDelivery time.Time      `json:"estimatedDelivery"`
	ActualDelivery    *time.Time     `json:"actualDelivery,omitempty"`
	AssignedAt        *time.Time     `json:"assignedAt,omitempty"`
	DeliveryFee       float64        `json:"deliveryFee"`
	DistanceKM        float64        `json:"distance"`
	TrackingNumber    string         `json:"trackingNumber"`
	Notes             string         `json:"notes,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
}
