package sandbox

import (
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/marketdesk/internal/admin"
)

// effect changes doc in place for one operation.
type effect func(kind string, doc Document, payload map[string]any, now time.Time) error

var effects = map[string]effect{
	admin.OpApprove:       approve,
	admin.OpReject:        reject,
	admin.OpSuspend:       suspend,
	admin.OpUpdateStatus:  updateStatus,
	admin.OpVerify:        verify,
	admin.OpToggleSuspend: toggleSuspend,
	admin.OpResolve:       resolve,
	admin.OpAssign:        assign,
	admin.OpPay:           pay,
}

// applyOperation runs the named operation against doc and stamps updatedAt.
func applyOperation(op, kind string, doc Document, payload map[string]any, now time.Time) error {
	fn, ok := effects[op]
	if !ok {
		return fmt.Errorf("operation %q: %w", op, ErrInvalidPayload)
	}
	if err := fn(kind, doc, payload, now); err != nil {
		return err
	}
	if _, ok := doc["updatedAt"]; ok {
		doc["updatedAt"] = timestamp(now)
	}
	return nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return strings.TrimSpace(s)
}

func requireField(payload map[string]any, key string) (string, error) {
	s := stringField(payload, key)
	if s == "" {
		return "", fmt.Errorf("%s is required: %w", key, ErrInvalidPayload)
	}
	return s, nil
}

func approve(_ string, doc Document, _ map[string]any, _ time.Time) error {
	doc["status"] = "approved"
	delete(doc, "reason")
	return nil
}

func reject(_ string, doc Document, payload map[string]any, _ time.Time) error {
	reason, err := requireField(payload, "reason")
	if err != nil {
		return err
	}
	doc["status"] = "rejected"
	doc["reason"] = reason
	return nil
}

func suspend(_ string, doc Document, payload map[string]any, _ time.Time) error {
	doc["status"] = "suspended"
	if reason := stringField(payload, "reason"); reason != "" {
		doc["reason"] = reason
	}
	return nil
}

func updateStatus(kind string, doc Document, payload map[string]any, now time.Time) error {
	status, err := requireField(payload, "status")
	if err != nil {
		return err
	}
	doc["status"] = status
	if kind == admin.Deliveries && status == "delivered" {
		doc["actualDelivery"] = timestamp(now)
	}
	if notes := stringField(payload, "notes"); notes != "" {
		if kind == admin.Disputes {
			doc["adminNotes"] = notes
		} else {
			doc["notes"] = notes
		}
	}
	return nil
}

func verify(_ string, doc Document, payload map[string]any, _ time.Time) error {
	verified := true
	if v, ok := payload["verified"].(bool); ok {
		verified = v
	}
	profile, _ := doc["profile"].(map[string]any)
	if profile == nil {
		profile = map[string]any{}
	}
	profile["verified"] = verified
	doc["profile"] = profile
	return nil
}

func toggleSuspend(_ string, doc Document, _ map[string]any, _ time.Time) error {
	if strings.EqualFold(doc.Status(), "SUSPENDED") {
		doc["status"] = "ACTIVE"
	} else {
		doc["status"] = "SUSPENDED"
	}
	return nil
}

func resolve(kind string, doc Document, payload map[string]any, now time.Time) error {
	if doc.Status() == "resolved" || doc.Status() == "closed" {
		return fmt.Errorf("already %s: %w", doc.Status(), ErrConflict)
	}
	resolution, err := requireField(payload, "resolution")
	if err != nil {
		return err
	}
	doc["status"] = "resolved"
	doc["resolution"] = resolution
	if amount, ok := payload["refundAmount"].(float64); ok {
		if amount < 0 {
			return fmt.Errorf("refundAmount must not be negative: %w", ErrInvalidPayload)
		}
		doc["refundAmount"] = amount
	}
	if kind == admin.Disputes {
		doc["resolvedAt"] = timestamp(now)
	}
	return nil
}

func assign(kind string, doc Document, payload map[string]any, now time.Time) error {
	switch kind {
	case admin.Deliveries:
		riderID, err := requireField(payload, "riderId")
		if err != nil {
			return err
		}
		doc["riderId"] = riderID
		if name := stringField(payload, "riderName"); name != "" {
			doc["riderName"] = name
		}
		doc["status"] = "assigned"
		doc["assignedAt"] = timestamp(now)
	default:
		adminID, err := requireField(payload, "adminId")
		if err != nil {
			return err
		}
		doc["assignedAdminId"] = adminID
		if doc.Status() == "open" {
			doc["status"] = "investigating"
		}
	}
	return nil
}

func pay(_ string, doc Document, _ map[string]any, now time.Time) error {
	switch doc.Status() {
	case "paid":
		return fmt.Errorf("already paid: %w", ErrConflict)
	case "cancelled":
		return fmt.Errorf("cancelled invoice: %w", ErrConflict)
	}
	doc["status"] = "paid"
	doc["paidAt"] = timestamp(now)
	return nil
}
