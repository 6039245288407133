package sandbox

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/marketdesk/internal/admin"
	"github.com/HerbHall/marketdesk/internal/apiclient"
	"github.com/HerbHall/marketdesk/internal/server"
	"github.com/HerbHall/marketdesk/pkg/models"
)

// The sandbox answers as a single support desk.
const (
	supportID   = "adm-001"
	supportName = "Support"
)

var accountKinds = []string{admin.Clients, admin.Professionals, admin.Riders, admin.Corporates}

// creator builds a new document from a create request body.
type creator func(s *Sandbox, ctx context.Context, body []byte, now time.Time) (Document, error)

var creators = map[string]creator{
	admin.Receivables:   (*Sandbox).newReceivable,
	admin.Payables:      (*Sandbox).newPayable,
	admin.Conversations: (*Sandbox).newConversation,
	admin.CallLogs:      (*Sandbox).newCallLog,
}

func (s *Sandbox) handleCreate(def admin.Definition) http.HandlerFunc {
	ep := def.Endpoints.WithDefaults()
	build := creators[def.Name]
	return func(w http.ResponseWriter, r *http.Request) {
		if build == nil {
			server.NotFound(w, def.Name+" cannot be created", r.URL.Path)
			return
		}
		body, err := readBody(r)
		if err != nil {
			server.BadRequest(w, err.Error(), r.URL.Path)
			return
		}
		doc, err := build(s, r.Context(), body, s.now())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.repo.Put(r.Context(), def.Name, doc); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.logger.Info("resource created", zap.String("resource", def.Name), zap.String("id", doc.ID()))
		s.publish(r.Context(), def.Name, doc)
		s.record(r.Context(), def.Name, "create")

		envelope := ep.Envelope
		if ep.Create.Item != "" {
			envelope.Item = ep.Create.Item
		}
		out, err := envelope.WrapItem(doc)
		if err != nil {
			server.InternalError(w, err.Error(), r.URL.Path)
			return
		}
		server.WriteJSON(w, http.StatusCreated, out)
	}
}

// account returns the marketplace user with id and the party type it
// talks to support as.
func (s *Sandbox) account(ctx context.Context, id string) (models.User, models.PartyType, error) {
	if id == "" {
		return models.User{}, "", fmt.Errorf("account id is required: %w", ErrInvalidPayload)
	}
	doc, _, err := s.repo.Find(ctx, id, accountKinds...)
	if err != nil {
		return models.User{}, "", err
	}
	var u models.User
	if err := convert(doc, &u); err != nil {
		return models.User{}, "", err
	}
	party := models.PartyClient
	switch u.Role {
	case models.RoleProfessional:
		party = models.PartyProfessional
	case models.RoleDelivery:
		party = models.PartyRider
	}
	return u, party, nil
}

func (s *Sandbox) newConversation(ctx context.Context, body []byte, now time.Time) (Document, error) {
	var req models.NewConversation
	if err := unmarshalBody(body, &req); err != nil {
		return nil, err
	}
	u, party, err := s.account(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if req.UserType != "" {
		party = req.UserType
	}
	return toDocument(models.Conversation{
		ID: "cnv-" + uuid.NewString()[:8],
		Participants: []models.Participant{
			{ID: supportID, Name: supportName, Type: models.PartyAdmin},
			{ID: u.ID, Name: u.DisplayName(), Type: party},
		},
		LastMessageTime: now.UTC(),
		Status:          "active",
		Subject:         req.Subject,
		RelatedOrderID:  req.RelatedID,
	})
}

func (s *Sandbox) newCallLog(ctx context.Context, body []byte, now time.Time) (Document, error) {
	var req models.CallRequest
	if err := unmarshalBody(body, &req); err != nil {
		return nil, err
	}
	u, party, err := s.account(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if req.UserType != "" {
		party = req.UserType
	}
	return toDocument(models.CallLog{
		ID:           "call-" + uuid.NewString()[:8],
		CallerID:     supportID,
		CallerName:   supportName,
		CallerType:   models.PartyAdmin,
		ReceiverID:   u.ID,
		ReceiverName: u.DisplayName(),
		ReceiverType: party,
		Status:       "initiated",
		Timestamp:    now.UTC(),
	})
}

// invoiceTerm is the due date offset of an invoice created without one.
const invoiceTerm = 30 * 24 * time.Hour

func (s *Sandbox) newReceivable(ctx context.Context, body []byte, now time.Time) (Document, error) {
	var req models.NewReceivable
	if err := unmarshalBody(body, &req); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", ErrInvalidPayload)
	}
	u, _, err := s.account(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	n, err := s.repo.Count(ctx, admin.Receivables)
	if err != nil {
		return nil, err
	}
	name := req.ClientName
	if name == "" {
		name = u.DisplayName()
	}
	return toDocument(models.Receivable{
		ID:               "ar-" + uuid.NewString()[:8],
		InvoiceNumber:    fmt.Sprintf("INV-%d-%04d", now.UTC().Year(), n+1),
		ClientID:         u.ID,
		ClientName:       name,
		Amount:           req.Amount,
		DueDate:          dueDate(req.DueDate, now),
		Status:           models.InvoicePending,
		Description:      req.Description,
		RelatedOrderID:   req.RelatedOrderID,
		RelatedServiceID: req.RelatedServiceID,
		CreatedAt:        now.UTC(),
	})
}

func (s *Sandbox) newPayable(ctx context.Context, body []byte, now time.Time) (Document, error) {
	var req models.NewPayable
	if err := unmarshalBody(body, &req); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", ErrInvalidPayload)
	}
	u, party, err := s.account(ctx, req.VendorID)
	if err != nil {
		return nil, err
	}
	name, vendorType := req.VendorName, req.VendorType
	if name == "" {
		name = u.DisplayName()
	}
	if vendorType == "" {
		vendorType = string(party)
	}
	return toDocument(models.Payable{
		ID:                "ap-" + uuid.NewString()[:8],
		VendorID:          u.ID,
		VendorName:        name,
		VendorType:        vendorType,
		Amount:            req.Amount,
		DueDate:           dueDate(req.DueDate, now),
		Status:            models.InvoicePending,
		Description:       req.Description,
		RelatedOrderID:    req.RelatedOrderID,
		RelatedServiceID:  req.RelatedServiceID,
		RelatedDeliveryID: req.RelatedDeliveryID,
		CreatedAt:         now.UTC(),
	})
}

func dueDate(due, now time.Time) time.Time {
	if due.IsZero() {
		return now.UTC().Add(invoiceTerm)
	}
	return due.UTC()
}

// handleMessages lists one conversation's messages, oldest first.
func (s *Sandbox) handleMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.repo.Get(r.Context(), admin.Conversations, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	ep := admin.MessagesDefinition(id).Endpoints.WithDefaults()
	q := r.URL.Query()
	res, err := s.repo.List(r.Context(), admin.Messages, Filter{"conversationId": id}, ListOptions{
		Page:  atoi(q.Get(ep.PageParam)),
		Limit: atoi(q.Get(ep.LimitParam)),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := ep.Envelope.Wrap(res.Items, res.Total, res.Page, res.Limit)
	if err != nil {
		server.InternalError(w, err.Error(), r.URL.Path)
		return
	}
	server.WriteJSON(w, http.StatusOK, body)
}

// handleSendMessage appends a support message to a conversation and moves
// the conversation's last message along with it.
func (s *Sandbox) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	var req models.NewMessage
	if err := decodeBody(r, &req); err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		s.writeError(w, r, fmt.Errorf("message is required: %w", ErrInvalidPayload))
		return
	}
	conv, err := s.repo.Get(ctx, admin.Conversations, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	now := s.now()
	msg, err := toDocument(models.Message{
		ID:             "msg-" + uuid.NewString()[:8],
		ConversationID: id,
		SenderID:       supportID,
		SenderName:     supportName,
		SenderType:     models.PartyAdmin,
		Body:           text,
		Timestamp:      now.UTC(),
		Read:           true,
		Type:           models.MessageText,
	})
	if err != nil {
		server.InternalError(w, err.Error(), r.URL.Path)
		return
	}
	if err := s.repo.Put(ctx, admin.Messages, msg); err != nil {
		s.writeError(w, r, err)
		return
	}
	conv["lastMessage"] = text
	conv["lastMessageTime"] = timestamp(now)
	if err := s.repo.Put(ctx, admin.Conversations, conv); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.publish(ctx, admin.Messages, msg)
	s.publish(ctx, admin.Conversations, conv)
	s.logger.Debug("message sent", zap.String("conversation", id))

	ep := admin.MessagesDefinition(id).Endpoints.WithDefaults()
	out, err := apiclient.Envelope{Item: ep.Create.Item}.WrapItem(msg)
	if err != nil {
		server.InternalError(w, err.Error(), r.URL.Path)
		return
	}
	server.WriteJSON(w, http.StatusCreated, out)
}

// record adds an entry to the activity feed and announces it. Failures are
// logged; the change itself already succeeded.
func (s *Sandbox) record(ctx context.Context, kind, action string) {
	doc, err := toDocument(models.Activity{
		ID:        "act-" + uuid.NewString()[:8],
		Type:      kind,
		Action:    action,
		Status:    models.ActivitySuccess,
		CreatedAt: s.now().UTC(),
	})
	if err == nil {
		err = s.repo.Put(ctx, admin.Activities, doc)
	}
	if err != nil {
		s.logger.Warn("record activity", zap.String("resource", kind), zap.Error(err))
		return
	}
	s.publish(ctx, admin.Activities, doc)
}

// toDocument converts a model into its stored JSON form.
func toDocument(v any) (Document, error) {
	var doc Document
	if err := convert(v, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// convert round-trips src through JSON into dst.
func convert(src, dst any) error {
	b, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func unmarshalBody(body []byte, v any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode body: %v: %w", err, ErrInvalidPayload)
	}
	return nil
}
