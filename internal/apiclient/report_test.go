package apiclient

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/marketdesk/internal/resource"
)

type counters struct {
	TotalUsers   int `json:"totalUsers"`
	ActiveOrders int `json:"activeOrders"`
}

func TestReport_FetchNestedItem(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/dashboard/overview", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		writeBody(w, map[string]any{"success": true, "data": counters{TotalUsers: 12, ActiveOrders: 3}})
	})
	rep, err := NewReport[counters](c, "overview", "/api/admin/dashboard/overview", "$.data")
	require.NoError(t, err)

	got, err := rep.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, counters{TotalUsers: 12, ActiveOrders: 3}, got)
}

func TestReport_SendsParamsAndReadsWholeBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2026-01-01", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2026-01-31", r.URL.Query().Get("endDate"))
		assert.False(t, r.URL.Query().Has("category"))
		writeBody(w, counters{TotalUsers: 7})
	})
	rep, err := NewReport[counters](c, "users", "/api/analytics/users", "")
	require.NoError(t, err)

	got, err := rep.Fetch(context.Background(), resource.Filters{
		"startDate": "2026-01-01",
		"endDate":   "2026-01-31",
		"category":  "",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got.TotalUsers)
}

func TestReport_MissingItem(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, map[string]any{"success": false})
	})
	rep, err := NewReport[counters](c, "overview", "/x", "$.data")
	require.NoError(t, err)

	_, err = rep.Fetch(context.Background(), nil)
	assert.ErrorContains(t, err, "nothing at $.data")
}

func TestReport_ServerError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	rep, err := NewReport[[]counters](c, "top", "/x", "$.data")
	require.NoError(t, err)

	_, err = rep.Fetch(context.Background(), nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
}

func TestNewReport_BadItemPath(t *testing.T) {
	_, err := NewReport[counters](nil, "x", "/x", "$[[[")
	assert.Error(t, err)
}
