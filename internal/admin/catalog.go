// Package admin wires one resource store per marketplace resource type.
// The catalog is the single endpoint table shared by the HTTP client and the
// sandbox API.
package admin

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/HerbHall/marketdesk/internal/apiclient"
)

// Resource names.
const (
	Clients             = "clients"
	Professionals       = "professionals"
	Riders              = "riders"
	Corporates          = "corporates"
	Products            = "products"
	Transactions        = "transactions"
	Services            = "services"
	ServiceRequests     = "service-requests"
	Deliveries          = "deliveries"
	Disputes            = "disputes"
	Receivables         = "receivables"
	Payables            = "payables"
	FinanceTransactions = "finance-transactions"
	Conversations       = "conversations"
	CallLogs            = "call-logs"
	Activities          = "activities"

	// Messages is the per-conversation thread. It is not in the catalog;
	// see MessagesDefinition.
	Messages = "messages"
)

// MessagesPath is the thread endpoint of one conversation.
const MessagesPath = "/api/communication/conversations/{id}/messages"

// Operation names.
const (
	OpUpdateStatus  = "update-status"
	OpVerify        = "verify"
	OpToggleSuspend = "toggle-suspend"
	OpApprove       = "approve"
	OpReject        = "reject"
	OpSuspend       = "suspend"
	OpResolve       = "resolve"
	OpAssign        = "assign"
	OpPay           = "pay"
)

// Definition describes one resource type: where it lives and which filters
// its list endpoint understands. NewestFirst resources show created items at
// the head of the page. LiveInsert resources take items they have not seen
// from the live feed instead of ignoring them.
type Definition struct {
	Name        string
	Title       string
	Endpoints   apiclient.Endpoints
	Filters     []string
	NewestFirst bool
	LiveInsert  bool
}

// Creatable reports whether the resource has a create endpoint.
func (d Definition) Creatable() bool {
	return d.Endpoints.Create.Path != ""
}

// Operations returns the sorted operation names.
func (d Definition) Operations() []string {
	names := d.Endpoints.OperationNames()
	slices.Sort(names)
	return names
}

// HasOperation reports whether op is defined for this resource.
func (d Definition) HasOperation(op string) bool {
	_, ok := d.Endpoints.Operations[op]
	return ok
}

// userDefinition builds the shared endpoint table of the four account kinds.
// kind is the path segment the API uses (client, professional, delivery,
// corporate).
func userDefinition(name, title, kind string) Definition {
	base := "/api/admin/" + kind
	return Definition{
		Name:  name,
		Title: title,
		Endpoints: apiclient.Endpoints{
			List:   base + "/all",
			Detail: base + "/{id}",
			Operations: map[string]apiclient.Operation{
				OpUpdateStatus: {Method: http.MethodPatch, Path: base + "/{id}/status"},
				OpVerify:       {Method: http.MethodPatch, Path: base + "/{id}/verify"},
				// The API serves this path with the extra "g".
				OpToggleSuspend: {Method: http.MethodPost, Path: "/api/admin/user/togggle-suspend/{id}", Item: "$"},
			},
			Envelope: apiclient.Envelope{Items: "$.data", Item: "$.user"},
		},
		Filters: []string{"search", "status"},
	}
}

var catalog = []Definition{
	userDefinition(Clients, "Clients", "client"),
	userDefinition(Professionals, "Professionals", "professional"),
	userDefinition(Riders, "Riders", "delivery"),
	userDefinition(Corporates, "Corporates", "corporate"),
	{
		Name:  Products,
		Title: "Marketplace products",
		Endpoints: apiclient.Endpoints{
			List:   "/api/marketplace/products",
			Detail: "/api/marketplace/products/{id}",
			Operations: map[string]apiclient.Operation{
				OpApprove: {Method: http.MethodPatch, Path: "/api/marketplace/products/{id}/approve"},
				OpReject:  {Method: http.MethodPatch, Path: "/api/marketplace/products/{id}/reject"},
				OpSuspend: {Method: http.MethodPatch, Path: "/api/marketplace/products/{id}/suspend"},
			},
			Envelope: apiclient.Envelope{Items: "$.products", Item: "$.product"},
		},
		Filters: []string{"search", "status", "category"},
	},
	{
		Name:  Transactions,
		Title: "Marketplace transactions",
		Endpoints: apiclient.Endpoints{
			List:     "/api/marketplace/transactions",
			Detail:   "/api/marketplace/transactions/{id}",
			Envelope: apiclient.Envelope{Items: "$.transactions", Item: "$.transaction"},
		},
		Filters: []string{"search", "status"},
	},
	{
		Name:  Services,
		Title: "Services",
		Endpoints: apiclient.Endpoints{
			List:   "/api/services",
			Detail: "/api/services/{id}",
			Operations: map[string]apiclient.Operation{
				OpUpdateStatus: {Method: http.MethodPatch, Path: "/api/services/{id}/status"},
			},
			Envelope: apiclient.Envelope{Items: "$.services", Item: "$.service"},
		},
		Filters: []string{"search", "status", "category"},
	},
	{
		Name:  ServiceRequests,
		Title: "Service requests",
		Endpoints: apiclient.Endpoints{
			List:   "/api/services/requests",
			Detail: "/api/services/requests/{id}",
			Operations: map[string]apiclient.Operation{
				OpResolve: {Method: http.MethodPatch, Path: "/api/services/requests/{id}/resolve"},
			},
			Envelope: apiclient.Envelope{Items: "$.requests", Item: "$.request"},
		},
		Filters: []string{"search", "status", "paymentStatus"},
	},
	{
		Name:  Deliveries,
		Title: "Deliveries",
		Endpoints: apiclient.Endpoints{
			List:   "/api/delivery/requests",
			Detail: "/api/delivery/requests/{id}",
			Operations: map[string]apiclient.Operation{
				OpAssign:       {Method: http.MethodPatch, Path: "/api/delivery/requests/{id}/assign"},
				OpUpdateStatus: {Method: http.MethodPatch, Path: "/api/delivery/requests/{id}/status"},
			},
			Envelope: apiclient.Envelope{Items: "$.requests", Item: "$.delivery"},
		},
		Filters: []string{"search", "status", "riderId"},
	},
	{
		Name:  Disputes,
		Title: "Disputes",
		Endpoints: apiclient.Endpoints{
			List:   "/api/disputes",
			Detail: "/api/disputes/{id}",
			Operations: map[string]apiclient.Operation{
				OpUpdateStatus: {Method: http.MethodPatch, Path: "/api/disputes/{id}/status"},
				OpResolve:      {Method: http.MethodPatch, Path: "/api/disputes/{id}/resolve"},
				OpAssign:       {Method: http.MethodPatch, Path: "/api/disputes/{id}/assign"},
			},
			Envelope: apiclient.Envelope{Items: "$.disputes", Item: "$.dispute"},
		},
		Filters: []string{"search", "status", "type", "priority"},
	},
	{
		Name:  Receivables,
		Title: "Accounts receivable",
		Endpoints: apiclient.Endpoints{
			List:   "/api/finance/accounts-receivable",
			Detail: "/api/finance/accounts-receivable/{id}",
			Create: apiclient.Operation{Method: http.MethodPost, Path: "/api/finance/accounts-receivable"},
			Operations: map[string]apiclient.Operation{
				OpPay: {Method: http.MethodPatch, Path: "/api/finance/accounts-receivable/{id}/pay"},
			},
			Envelope: apiclient.Envelope{Items: "$.receivables", Item: "$.receivable"},
		},
		Filters:     []string{"search", "status"},
		NewestFirst: true,
	},
	{
		Name:  Payables,
		Title: "Accounts payable",
		Endpoints: apiclient.Endpoints{
			List:   "/api/finance/accounts-payable",
			Detail: "/api/finance/accounts-payable/{id}",
			Create: apiclient.Operation{Method: http.MethodPost, Path: "/api/finance/accounts-payable"},
			Operations: map[string]apiclient.Operation{
				OpPay: {Method: http.MethodPatch, Path: "/api/finance/accounts-payable/{id}/pay"},
			},
			Envelope: apiclient.Envelope{Items: "$.payables", Item: "$.payable"},
		},
		Filters:     []string{"search", "status", "vendorType"},
		NewestFirst: true,
	},
	{
		Name:  FinanceTransactions,
		Title: "Ledger",
		Endpoints: apiclient.Endpoints{
			List:     "/api/finance/transactions",
			Detail:   "/api/finance/transactions/{id}",
			Envelope: apiclient.Envelope{Items: "$.transactions", Item: "$.transaction"},
		},
		Filters: []string{"search", "status", "type", "category"},
	},
	{
		Name:  Conversations,
		Title: "Conversations",
		Endpoints: apiclient.Endpoints{
			List:     "/api/communication/conversations",
			Detail:   "/api/communication/conversations/{id}",
			Create:   apiclient.Operation{Method: http.MethodPost, Path: "/api/communication/conversations", Item: "$.conversation"},
			Envelope: apiclient.Envelope{Items: "$.conversations", Item: "$.conversation"},
		},
		Filters:     []string{"search", "status"},
		NewestFirst: true,
	},
	{
		Name:  CallLogs,
		Title: "Call logs",
		Endpoints: apiclient.Endpoints{
			List:   "/api/communication/calls/logs",
			Detail: "/api/communication/calls/logs/{id}",
			// Initiating a call answers with the bare call log.
			Create:   apiclient.Operation{Method: http.MethodPost, Path: "/api/communication/calls/initiate", Item: "$"},
			Envelope: apiclient.Envelope{Items: "$.callLogs", Item: "$.callLog"},
		},
		Filters:     []string{"search", "status", "callerType"},
		NewestFirst: true,
	},
	{
		Name:  Activities,
		Title: "Activity feed",
		Endpoints: apiclient.Endpoints{
			List:     "/api/admin/dashboard/activities",
			Envelope: apiclient.Envelope{Items: "$.data.rows", Total: "$.data.count"},
		},
		Filters:     []string{"status"},
		NewestFirst: true,
		LiveInsert:  true,
	},
}

// MessagesDefinition returns the thread definition of one conversation.
func MessagesDefinition(conversationID string) Definition {
	path := strings.ReplaceAll(MessagesPath, "{id}", url.PathEscape(conversationID))
	return Definition{
		Name:  Messages,
		Title: "Messages",
		Endpoints: apiclient.Endpoints{
			List:     path,
			Create:   apiclient.Operation{Method: http.MethodPost, Path: path, Item: "$.message"},
			Envelope: apiclient.Envelope{Items: "$.messages", Item: "$.message"},
		},
		LiveInsert: true,
	}
}

// Catalog returns every resource definition in display order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the definition for name.
func Lookup(name string) (Definition, bool) {
	for _, d := range catalog {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}
