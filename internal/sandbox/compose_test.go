package sandbox

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/marketdesk/internal/admin"
	"github.com/HerbHall/marketdesk/internal/apiclient"
	"github.com/HerbHall/marketdesk/pkg/models"
)

func TestHub_CreateConversation(t *testing.T) {
	h := newHarness(t)
	hub := h.hub(t)
	ctx := context.Background()

	_, err := hub.Conversations.FetchList(ctx, nil, 1, 10)
	require.NoError(t, err)

	conv, err := hub.Conversations.Create(ctx, models.NewConversation{
		UserID:    "usr-p-001",
		Subject:   "Payout query",
		RelatedID: "ap-002",
	})
	require.NoError(t, err)
	require.Len(t, conv.Participants, 2)
	assert.Equal(t, "Kemi Adeyemi", conv.Participants[1].Name)
	assert.Equal(t, models.PartyProfessional, conv.Participants[1].Type)
	assert.Equal(t, "ap-002", conv.RelatedOrderID)

	snap := hub.Conversations.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, conv.ID, snap.Items[0].ID, "new conversations lead")
	assert.Equal(t, 2, snap.TotalCount)

	// The server agrees on the order.
	list, err := hub.Conversations.FetchList(ctx, nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, list.Items[0].ID)

	feed, err := hub.Activities.FetchList(ctx, nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, admin.Conversations, feed.Items[0].Type)
	assert.Equal(t, "create", feed.Items[0].Action)
}

func TestHub_CreateConversationErrors(t *testing.T) {
	h := newHarness(t)
	hub := h.hub(t)
	ctx := context.Background()

	_, err := hub.Conversations.Create(ctx, models.NewConversation{UserID: "usr-x-404"})
	assert.True(t, apiclient.IsNotFound(err), "err = %v", err)

	_, err = hub.Conversations.Create(ctx, models.NewConversation{})
	assert.True(t, apiclient.IsStatus(err, http.StatusBadRequest), "err = %v", err)

	n, err := h.repo.Count(ctx, admin.Conversations)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHub_InitiateCall(t *testing.T) {
	h := newHarness(t)
	hub := h.hub(t)

	call, err := hub.CallLogs.Create(context.Background(), models.CallRequest{UserID: "usr-r-001"})
	require.NoError(t, err)
	assert.Equal(t, "Musa Ibrahim", call.ReceiverName)
	assert.Equal(t, models.PartyRider, call.ReceiverType)
	assert.Equal(t, models.PartyAdmin, call.CallerType)
	assert.Equal(t, "initiated", call.Status)
	assert.True(t, call.Timestamp.Equal(h.clock.Now()))

	stored, err := h.repo.Get(context.Background(), admin.CallLogs, call.ID)
	require.NoError(t, err)
	assert.Equal(t, "initiated", stored.Status())
}

func TestHub_MessageThread(t *testing.T) {
	h := newHarness(t)
	hub := h.hub(t)
	ctx := context.Background()

	thread, err := hub.Messages("cnv-001")
	require.NoError(t, err)
	list, err := thread.FetchList(ctx, nil, 1, 50)
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "msg-001", list.Items[0].ID, "oldest first")

	sent, err := thread.Create(ctx, models.NewMessage{Message: "  Refund approved.  "})
	require.NoError(t, err)
	assert.Equal(t, "Refund approved.", sent.Body)
	assert.Equal(t, models.PartyAdmin, sent.SenderType)
	assert.Equal(t, "cnv-001", sent.ConversationID)

	snap := thread.Snapshot()
	require.Len(t, snap.Items, 3)
	assert.Equal(t, sent.ID, snap.Items[2].ID)

	conv, err := h.repo.Get(ctx, admin.Conversations, "cnv-001")
	require.NoError(t, err)
	assert.Equal(t, "Refund approved.", conv["lastMessage"])

	_, err = thread.Create(ctx, models.NewMessage{Message: "   "})
	assert.True(t, apiclient.IsStatus(err, http.StatusBadRequest), "err = %v", err)

	missing, err := hub.Messages("cnv-404")
	require.NoError(t, err)
	_, err = missing.FetchList(ctx, nil, 1, 10)
	assert.True(t, apiclient.IsNotFound(err), "err = %v", err)
}

func TestHub_ActivityFeedNewestFirst(t *testing.T) {
	h := newHarness(t)
	hub := h.hub(t)
	ctx := context.Background()

	feed, err := hub.Activities.FetchList(ctx, nil, 1, 10)
	require.NoError(t, err)
	require.Len(t, feed.Items, 3)
	assert.Equal(t, "act-001", feed.Items[0].ID)
	assert.Equal(t, 3, feed.TotalCount)

	_, err = hub.Disputes.Mutate(ctx, "dsp-001", admin.OpAssign, map[string]string{"adminId": "adm-002"})
	require.NoError(t, err)

	feed, err = hub.Activities.FetchList(ctx, nil, 1, 10)
	require.NoError(t, err)
	require.Len(t, feed.Items, 4)
	assert.Equal(t, admin.Disputes, feed.Items[0].Type)
	assert.Equal(t, admin.OpAssign, feed.Items[0].Action)
	assert.Equal(t, models.ActivitySuccess, feed.Items[0].Status)
}

func TestHub_CreateReceivable(t *testing.T) {
	h := newHarness(t)
	hub := h.hub(t)
	ctx := context.Background()

	_, err := hub.Receivables.FetchList(ctx, nil, 1, 10)
	require.NoError(t, err)

	inv, err := hub.Receivables.Create(ctx, models.NewReceivable{
		ClientID:    "usr-c-001",
		Amount:      42000,
		Description: "Kitchen rewiring",
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0003", inv.InvoiceNumber)
	assert.Equal(t, "Ada Obi", inv.ClientName)
	assert.Equal(t, models.InvoicePending, inv.Status)
	assert.True(t, inv.DueDate.Equal(h.clock.Now().Add(invoiceTerm)))

	snap := hub.Receivables.Snapshot()
	require.Len(t, snap.Items, 3)
	assert.Equal(t, inv.ID, snap.Items[0].ID, "new invoices lead")
	assert.Equal(t, 3, snap.TotalCount)

	_, err = hub.Receivables.Create(ctx, models.NewReceivable{ClientID: "usr-c-001"})
	assert.True(t, apiclient.IsStatus(err, http.StatusBadRequest), "err = %v", err)
}

func TestHub_CreatePayable(t *testing.T) {
	h := newHarness(t)
	hub := h.hub(t)
	ctx := context.Background()

	due := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	bill, err := hub.Payables.Create(ctx, models.NewPayable{
		VendorID:          "usr-r-002",
		Amount:            2800,
		DueDate:           due,
		Description:       "Delivery payout",
		RelatedDeliveryID: "dlv-002",
	})
	require.NoError(t, err)
	assert.Equal(t, string(models.PartyRider), bill.VendorType)
	assert.True(t, bill.DueDate.Equal(due))
	assert.NotEmpty(t, bill.VendorName)

	_, err = hub.Payables.Create(ctx, models.NewPayable{VendorID: "usr-x-404", Amount: 10})
	assert.True(t, apiclient.IsNotFound(err), "err = %v", err)

	n, err := h.repo.Count(ctx, admin.Payables)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
