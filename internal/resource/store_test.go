package resource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiendc/go-deepcopy"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	mdtest "github.com/HerbHall/marketdesk/internal/testutil"
)

type item struct {
	ID        string
	Status    string
	Tags      []string
	UpdatedAt time.Time
}

func itemID(it item) string { return it.ID }

type listCall struct {
	q     Query
	reply chan listReply
}

type listReply struct {
	page Page[item]
	err  error
}

// fakeTransport answers List from a queue of gated calls when gated is set,
// otherwise from listFn.
type fakeTransport struct {
	gated  bool
	calls  chan listCall
	listFn func(Query) (Page[item], error)

	mu       sync.Mutex
	items    map[string]item
	getErr   error
	mutErr   error
	mutated  []string
	payloads []any
}

func newFake() *fakeTransport {
	return &fakeTransport{
		calls: make(chan listCall),
		items: make(map[string]item),
	}
}

func (f *fakeTransport) List(ctx context.Context, q Query) (Page[item], error) {
	if !f.gated {
		return f.listFn(q)
	}
	c := listCall{q: q, reply: make(chan listReply, 1)}
	select {
	case f.calls <- c:
	case <-ctx.Done():
		return Page[item]{}, ctx.Err()
	}
	r := <-c.reply
	return r.page, r.err
}

func (f *fakeTransport) Get(_ context.Context, id string) (item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return item{}, f.getErr
	}
	it, ok := f.items[id]
	if !ok {
		return item{}, fmt.Errorf("item %q not found", id)
	}
	return it, nil
}

func (f *fakeTransport) Mutate(_ context.Context, id, operation string, payload any) (item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutated = append(f.mutated, operation)
	f.payloads = append(f.payloads, payload)
	if f.mutErr != nil {
		return item{}, f.mutErr
	}
	it := f.items[id]
	it.ID = id
	switch operation {
	case "approve":
		it.Status = "approved"
	case "reject":
		it.Status = "rejected"
	default:
		it.Status = operation
	}
	f.items[id] = it
	return it, nil
}

func pendingItems(n int) []item {
	out := make([]item, n)
	for i := range out {
		out[i] = item{
			ID:        fmt.Sprintf("item-%d", i+1),
			Status:    "pending",
			Tags:      []string{"new"},
			UpdatedAt: time.Date(2025, 1, 1, 0, 0, i, 0, time.UTC),
		}
	}
	return out
}

func staticList(items []item, total int) func(Query) (Page[item], error) {
	return func(q Query) (Page[item], error) {
		return Page[item]{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
	}
}

func newTestStore(t *testing.T, f *fakeTransport, opts ...Option) *Store[item] {
	t.Helper()
	return New("items", itemID, f, opts...)
}

func TestNew_StartsIdleAndEmpty(t *testing.T) {
	s := newTestStore(t, newFake())
	snap := s.Snapshot()

	if snap.Status != StatusIdle {
		t.Errorf("Status = %s, want idle", snap.Status)
	}
	if len(snap.Items) != 0 {
		t.Errorf("len(Items) = %d, want 0", len(snap.Items))
	}
	if snap.Items == nil {
		t.Error("Items should be empty, not nil")
	}
	if snap.Page != 1 || snap.PageSize != DefaultPageSize {
		t.Errorf("Page/PageSize = %d/%d, want 1/%d", snap.Page, snap.PageSize, DefaultPageSize)
	}
	if snap.Selected != nil {
		t.Error("Selected should be nil")
	}
	if s.Name() != "items" {
		t.Errorf("Name() = %q, want items", s.Name())
	}
}

func TestFetchList_Success(t *testing.T) {
	f := newFake()
	f.listFn = staticList(pendingItems(3), 3)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, f, WithClock(func() time.Time { return clock }))

	list, err := s.FetchList(context.Background(), Filters{"status": "pending"}, 1, 10)
	require.NoError(t, err)

	assert.Len(t, list.Items, 3)
	assert.Equal(t, 3, list.TotalCount)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 10, list.PageSize)
	assert.Equal(t, Filters{"status": "pending"}, list.Filters)

	snap := s.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	assert.NoError(t, snap.Err)
	assert.Equal(t, clock, snap.FetchedAt)
	if diff := cmp.Diff(pendingItems(3), snap.Items); diff != "" {
		t.Errorf("Items mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchList_TotalIsServerCount(t *testing.T) {
	f := newFake()
	f.listFn = staticList(pendingItems(10), 57)
	s := newTestStore(t, f)

	list, err := s.FetchList(context.Background(), nil, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 57, list.TotalCount)
	assert.Equal(t, 2, list.Page)
}

func TestFetchList_NormalizesPaging(t *testing.T) {
	tests := []struct {
		name         string
		page, size   int
		opts         []Option
		wantPage     int
		wantPageSize int
	}{
		{"zero values", 0, 0, nil, 1, DefaultPageSize},
		{"negative", -3, -1, nil, 1, DefaultPageSize},
		{"capped", 2, 5000, nil, 2, MaxPageSize},
		{"custom default", 0, 0, []Option{WithDefaultPageSize(25)}, 1, 25},
		{"explicit wins over default", 3, 50, []Option{WithDefaultPageSize(25)}, 3, 50},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got Query
			f := newFake()
			f.listFn = func(q Query) (Page[item], error) {
				got = q
				return Page[item]{}, nil
			}
			s := newTestStore(t, f, tc.opts...)

			list, err := s.FetchList(context.Background(), nil, tc.page, tc.size)
			require.NoError(t, err)
			assert.Equal(t, tc.wantPage, got.Page)
			assert.Equal(t, tc.wantPageSize, got.PageSize)
			assert.Equal(t, tc.wantPage, list.Page)
			assert.Equal(t, tc.wantPageSize, list.PageSize)
			assert.NotNil(t, got.Filters, "transport should always get a filter map")
		})
	}
}

func TestFetchList_ServerPagingWins(t *testing.T) {
	f := newFake()
	f.listFn = func(Query) (Page[item], error) {
		return Page[item]{Items: pendingItems(2), Total: 2, Page: 4, PageSize: 20}, nil
	}
	s := newTestStore(t, f)

	list, err := s.FetchList(context.Background(), nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, list.Page)
	assert.Equal(t, 20, list.PageSize)
}

func TestFetchList_FiltersAreCopied(t *testing.T) {
	f := newFake()
	f.listFn = staticList(nil, 0)
	s := newTestStore(t, f)

	filters := Filters{"search": "acme"}
	_, err := s.FetchList(context.Background(), filters, 1, 10)
	require.NoError(t, err)

	filters["search"] = "changed"
	assert.Equal(t, "acme", s.Snapshot().Filters["search"])
}

// A failed fetch keeps the previous items and records the failure.
func TestFetchList_FailurePreservesItems(t *testing.T) {
	f := newFake()
	f.listFn = staticList(pendingItems(3), 3)
	s := newTestStore(t, f)

	_, err := s.FetchList(context.Background(), Filters{"status": "pending"}, 1, 10)
	require.NoError(t, err)
	before := s.Snapshot()

	boom := errors.New("connection refused")
	f.listFn = func(Query) (Page[item], error) { return Page[item]{}, boom }

	_, err = s.FetchList(context.Background(), Filters{"status": "approved"}, 2, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "items", ferr.Resource)
	assert.Equal(t, "list", ferr.Op)

	after := s.Snapshot()
	assert.Equal(t, StatusFailed, after.Status)
	assert.True(t, after.Failed())
	assert.ErrorIs(t, after.Err, boom)
	if diff := cmp.Diff(before.List, after.List); diff != "" {
		t.Errorf("list changed after failed fetch (-before +after):\n%s", diff)
	}
}

func TestFetchList_RecoversAfterFailure(t *testing.T) {
	f := newFake()
	f.listFn = func(Query) (Page[item], error) { return Page[item]{}, errors.New("timeout") }
	s := newTestStore(t, f)

	_, err := s.FetchList(context.Background(), nil, 1, 10)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, s.Status())

	f.listFn = staticList(pendingItems(1), 1)
	_, err = s.FetchList(context.Background(), nil, 1, 10)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	assert.Nil(t, snap.Err, "Err is cleared once a fetch succeeds")
}

func TestFetchList_PageOverflowIsFailure(t *testing.T) {
	f := newFake()
	f.listFn = func(Query) (Page[item], error) {
		return Page[item]{Items: pendingItems(5), Total: 5}, nil
	}
	s := newTestStore(t, f)

	_, err := s.FetchList(context.Background(), nil, 1, 3)
	assert.ErrorIs(t, err, ErrPageOverflow)
	assert.Equal(t, StatusFailed, s.Status())
	assert.Empty(t, s.Snapshot().Items)
}

func TestFetchList_ContextCanceled(t *testing.T) {
	f := newFake()
	f.gated = true
	s := newTestStore(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FetchList(ctx, nil, 1, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusFailed, s.Status())
}

// B issued after A settles first; A's late response is discarded.
func TestFetchList_LastSettledWins(t *testing.T) {
	f := newFake()
	f.gated = true
	s := newTestStore(t, f)
	ctx := context.Background()

	type result struct {
		list List[item]
		err  error
	}
	resA := make(chan result, 1)
	resB := make(chan result, 1)

	go func() {
		l, err := s.FetchList(ctx, Filters{"status": "pending"}, 1, 10)
		resA <- result{l, err}
	}()
	callA := <-f.calls
	assert.Equal(t, StatusLoading, s.Status())

	go func() {
		l, err := s.FetchList(ctx, Filters{"status": "approved"}, 1, 10)
		resB <- result{l, err}
	}()
	callB := <-f.calls
	assert.Equal(t, "approved", callB.q.Filters["status"])

	bItems := []item{{ID: "b-1", Status: "approved"}}
	callB.reply <- listReply{page: Page[item]{Items: bItems, Total: 1}}
	rb := <-resB
	require.NoError(t, rb.err)

	callA.reply <- listReply{page: Page[item]{Items: pendingItems(3), Total: 3}}
	ra := <-resA
	assert.ErrorIs(t, ra.err, ErrSuperseded)

	snap := s.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	assert.Equal(t, 1, snap.TotalCount)
	assert.Equal(t, "approved", snap.Filters["status"])
	if diff := cmp.Diff(bItems, snap.Items); diff != "" {
		t.Errorf("Items mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchList_LateFailureDoesNotClobber(t *testing.T) {
	f := newFake()
	f.gated = true
	s := newTestStore(t, f)
	ctx := context.Background()

	errA := make(chan error, 1)
	errB := make(chan error, 1)
	go func() {
		_, err := s.FetchList(ctx, nil, 1, 10)
		errA <- err
	}()
	callA := <-f.calls
	go func() {
		_, err := s.FetchList(ctx, nil, 1, 10)
		errB <- err
	}()
	callB := <-f.calls

	callB.reply <- listReply{page: Page[item]{Items: pendingItems(2), Total: 2}}
	require.NoError(t, <-errB)

	callA.reply <- listReply{err: errors.New("slow failure")}
	assert.ErrorIs(t, <-errA, ErrSuperseded)

	snap := s.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	assert.Len(t, snap.Items, 2)
}

// Responses that settle in issue order are all applied; the last one is visible.
func TestFetchList_InOrderSettleAppliesLast(t *testing.T) {
	f := newFake()
	f.gated = true
	s := newTestStore(t, f)
	ctx := context.Background()

	errA := make(chan error, 1)
	errB := make(chan error, 1)
	go func() {
		_, err := s.FetchList(ctx, nil, 1, 10)
		errA <- err
	}()
	callA := <-f.calls
	go func() {
		_, err := s.FetchList(ctx, nil, 2, 10)
		errB <- err
	}()
	callB := <-f.calls

	callA.reply <- listReply{page: Page[item]{Items: pendingItems(1), Total: 11, Page: 1}}
	require.NoError(t, <-errA)
	callB.reply <- listReply{page: Page[item]{Items: pendingItems(1), Total: 11, Page: 2}}
	require.NoError(t, <-errB)

	assert.Equal(t, 2, s.Snapshot().Page)
}

// Overlapping fetches do not emit a second Loading transition.
func TestFetchList_OverlapDoesNotRenotifyLoading(t *testing.T) {
	f := newFake()
	f.gated = true
	s := newTestStore(t, f)
	ctx := context.Background()

	var mu sync.Mutex
	var statuses []Status
	unsub := s.Subscribe(func(snap Snapshot[item]) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, snap.Status)
	})
	defer unsub()

	done := make(chan struct{}, 2)
	go func() {
		_, _ = s.FetchList(ctx, nil, 1, 10)
		done <- struct{}{}
	}()
	callA := <-f.calls
	go func() {
		_, _ = s.FetchList(ctx, nil, 1, 10)
		done <- struct{}{}
	}()
	callB := <-f.calls

	callA.reply <- listReply{page: Page[item]{Items: pendingItems(1), Total: 1}}
	<-done
	callB.reply <- listReply{page: Page[item]{Items: pendingItems(2), Total: 2}}
	<-done

	mu.Lock()
	defer mu.Unlock()
	want := []Status{StatusLoading, StatusReady, StatusReady}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
}

// Observers never see a new items slice paired with an old total.
func TestFetchList_AtomicUpdate(t *testing.T) {
	f := newFake()
	var mu sync.Mutex
	n := 0
	f.listFn = func(q Query) (Page[item], error) {
		mu.Lock()
		n++
		size := n%5 + 1
		mu.Unlock()
		items := make([]item, size)
		for i := range items {
			items[i] = item{ID: fmt.Sprintf("%d-%d", size, i)}
		}
		return Page[item]{Items: items, Total: size * 100, Page: size}, nil
	}
	s := newTestStore(t, f)

	check := func(snap Snapshot[item]) {
		if snap.Status != StatusReady {
			return
		}
		size := len(snap.Items)
		if snap.TotalCount != size*100 || snap.Page != size {
			t.Errorf("torn snapshot: %d items, total %d, page %d", size, snap.TotalCount, snap.Page)
		}
	}
	unsub := s.Subscribe(check)
	defer unsub()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 20 {
				_, _ = s.FetchList(context.Background(), nil, 1, 10)
			}
		}()
		go func() {
			defer wg.Done()
			for range 20 {
				check(s.Snapshot())
			}
		}()
	}
	wg.Wait()
}

func TestFetchOne_DoesNotTouchList(t *testing.T) {
	f := newFake()
	f.listFn = staticList(pendingItems(2), 2)
	f.items["other"] = item{ID: "other", Status: "active"}
	s := newTestStore(t, f)

	_, err := s.FetchList(context.Background(), nil, 1, 10)
	require.NoError(t, err)
	before := s.Snapshot()

	got, err := s.FetchOne(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, "active", got.Status)

	after := s.Snapshot()
	if diff := cmp.Diff(before.List, after.List); diff != "" {
		t.Errorf("list changed (-before +after):\n%s", diff)
	}
	assert.Nil(t, after.Selected)
	assert.Equal(t, StatusReady, after.Status)
}

func TestFetchOne_FailureRecordsFailed(t *testing.T) {
	f := newFake()
	f.listFn = staticList(pendingItems(2), 2)
	s := newTestStore(t, f)

	_, err := s.FetchList(context.Background(), nil, 1, 10)
	require.NoError(t, err)

	_, err = s.FetchOne(context.Background(), "missing")
	require.Error(t, err)

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "get", ferr.Op)
	assert.Equal(t, "missing", ferr.ID)

	snap := s.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Len(t, snap.Items, 2)
}

func TestOpen_SelectsItem(t *testing.T) {
	f := newFake()
	f.items["x"] = item{ID: "x", Status: "open"}
	s := newTestStore(t, f)

	got, err := s.Open(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "x", got.ID)

	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "open", sel.Status)
}

func TestOpen_FailureKeepsSelection(t *testing.T) {
	f := newFake()
	s := newTestStore(t, f)
	prev := item{ID: "prev"}
	s.Select(&prev)

	_, err := s.Open(context.Background(), "missing")
	require.Error(t, err)

	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "prev", sel.ID)
}

// Select(x) then select(nil) restores the earlier selection state.
func TestSelect_Idempotent(t *testing.T) {
	s := newTestStore(t, newFake())

	_, ok := s.Selected()
	require.False(t, ok)

	x := item{ID: "x"}
	s.Select(&x)
	s.Select(nil)
	_, ok = s.Selected()
	assert.False(t, ok)

	s.Select(nil)
	s.Select(nil)
	_, ok = s.Selected()
	assert.False(t, ok)
}

func TestSelect_CopiesValue(t *testing.T) {
	s := newTestStore(t, newFake())

	x := item{ID: "x", Tags: []string{"a"}}
	s.Select(&x)
	x.Tags[0] = "mutated"
	x.Status = "mutated"

	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, sel.Tags)
	assert.Empty(t, sel.Status)
}

func TestSelect_SurvivesRefetch(t *testing.T) {
	f := newFake()
	f.listFn = staticList(pendingItems(2), 2)
	s := newTestStore(t, f)

	x := item{ID: "not-in-list"}
	s.Select(&x)

	_, err := s.FetchList(context.Background(), nil, 1, 10)
	require.NoError(t, err)

	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "not-in-list", sel.ID)
}

// The approve scenario: the item leaves the "pending" filter logically but
// stays on the page until the next fetch.
func TestMutate_ApproveKeepsPage(t *testing.T) {
	f := newFake()
	items := pendingItems(3)
	f.listFn = staticList(items, 3)
	for _, it := range items {
		f.items[it.ID] = it
	}
	s := newTestStore(t, f)

	list, err := s.FetchList(context.Background(), Filters{"status": "pending"}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, StatusReady, s.Status())
	require.Len(t, list.Items, 3)

	got, err := s.Mutate(context.Background(), list.Items[0].ID, "approve", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "approved", got.Status)

	snap := s.Snapshot()
	assert.Equal(t, "approved", snap.Items[0].Status)
	assert.Len(t, snap.Items, 3)
	assert.Equal(t, 3, snap.TotalCount)
	assert.Equal(t, Filters{"status": "pending"}, snap.Filters)
}

// Only the element with the mutated id changes, and it equals the result.
func TestMutate_MergesByReplacement(t *testing.T) {
	f := newFake()
	items := pendingItems(4)
	f.listFn = staticList(items, 4)
	s := newTestStore(t, f)

	_, err := s.FetchList(context.Background(), nil, 1, 10)
	require.NoError(t, err)

	// The server drops tags on the replaced item; replacement must not patch.
	f.items["item-3"] = item{ID: "item-3", UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	result, err := s.Mutate(context.Background(), "item-3", "reject", map[string]string{"reason": "dup"})
	require.NoError(t, err)

	want := make([]item, len(items))
	copy(want, items)
	want[2] = result
	if diff := cmp.Diff(want, s.Snapshot().Items); diff != "" {
		t.Errorf("Items mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, s.Snapshot().Items[2].Tags)
	assert.Equal(t, []any{map[string]string{"reason": "dup"}}, f.payloads)
}

// Absent id leaves the list alone but still updates the selection.
func TestMutate_AbsentIDUpdatesSelectionOnly(t *testing.T) {
	f := newFake()
	f.listFn = staticList(pendingItems(2), 2)
	s := newTestStore(t, f)

	_, err := s.FetchList(context.Background(), nil, 1, 10)
	require.NoError(t, err)
	before := s.Snapshot().Items

	sel := item{ID: "elsewhere", Status: "pending"}
	s.Select(&sel)

	_, err = s.Mutate(context.Background(), "elsewhere", "approve", nil)
	require.NoError(t, err)

	if diff := cmp.Diff(before, s.Snapshot().Items); diff != "" {
		t.Errorf("Items changed (-before +after):\n%s", diff)
	}
	got, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "approved", got.Status)
}

func TestMutate_UpdatesListAndSelection(t *testing.T) {
	f := newFake()
	items := pendingItems(2)
	f.listFn = staticList(items, 2)
	s := newTestStore(t, f)

	_, err := s.FetchList(context.Background(), nil, 1, 10)
	require.NoError(t, err)
	s.Select(&items[1])

	_, err = s.Mutate(context.Background(), "item-2", "approve", nil)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, "approved", snap.Items[1].Status)
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "approved", snap.Selected.Status)
}

func TestMutate_FailureLeavesStateUntouched(t *testing.T) {
	f := newFake()
	items := pendingItems(2)
	f.listFn = staticList(items, 2)
	s := newTestStore(t, f)

	_, err := s.FetchList(context.Background(), nil, 1, 10)
	require.NoError(t, err)
	s.Select(&items[0])
	before := s.Snapshot()

	boom := errors.New("403 forbidden")
	f.mutErr = boom
	_, err = s.Mutate(context.Background(), "item-1", "approve", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var merr *MutationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "items", merr.Resource)
	assert.Equal(t, "item-1", merr.ID)
	assert.Equal(t, "approve", merr.Operation)

	after := s.Snapshot()
	assert.Equal(t, StatusReady, after.Status, "mutation errors are not stored")
	assert.NoError(t, after.Err)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("snapshot changed (-before +after):\n%s", diff)
	}
}

func TestMutate_AppliesOnFailedStore(t *testing.T) {
	f := newFake()
	items := pendingItems(2)
	f.listFn = staticList(items, 2)
	s := newTestStore(t, f)

	_, err := s.FetchList(context.Background(), nil, 1, 10)
	require.NoError(t, err)
	f.listFn = func(Query) (Page[item], error) { return Page[item]{}, errors.New("down") }
	_, err = s.FetchList(context.Background(), nil, 1, 10)
	require.Error(t, err)

	_, err = s.Mutate(context.Background(), "item-1", "approve", nil)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status, "mutations do not move the status machine")
	assert.Equal(t, "approved", snap.Items[0].Status)
}

// creatingFake adds Create to fakeTransport.
type creatingFake struct {
	*fakeTransport
	createErr error
	created   []any
}

func (c *creatingFake) Create(_ context.Context, payload any) (item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, payload)
	if c.createErr != nil {
		return item{}, c.createErr
	}
	return item{ID: fmt.Sprintf("new-%d", len(c.created)), Status: "active"}, nil
}

func newCreatingStore(t *testing.T, opts ...Option) (*Store[item], *creatingFake) {
	t.Helper()
	f := &creatingFake{fakeTransport: newFake()}
	f.listFn = staticList(pendingItems(3), 7)
	s := New("items", itemID, Transport[item](f), opts...)
	_, err := s.FetchList(context.Background(), nil, 1, 10)
	require.NoError(t, err)
	return s, f
}

func TestCreate_AppendsAndCounts(t *testing.T) {
	s, f := newCreatingStore(t)

	got, err := s.Create(context.Background(), map[string]string{"subject": "refund"})
	require.NoError(t, err)
	assert.Equal(t, "new-1", got.ID)
	assert.Equal(t, []any{map[string]string{"subject": "refund"}}, f.created)

	snap := s.Snapshot()
	require.Len(t, snap.Items, 4)
	assert.Equal(t, "item-1", snap.Items[0].ID)
	assert.Equal(t, "new-1", snap.Items[3].ID)
	assert.Equal(t, 8, snap.TotalCount)
	assert.Equal(t, StatusReady, snap.Status)
}

func TestCreate_NewestFirst(t *testing.T) {
	s, _ := newCreatingStore(t, WithNewestFirst())

	_, err := s.Create(context.Background(), nil)
	require.NoError(t, err)

	snap := s.Snapshot()
	require.Len(t, snap.Items, 4)
	assert.Equal(t, "new-1", snap.Items[0].ID)
	assert.Equal(t, "item-1", snap.Items[1].ID)
}

func TestCreate_FailureLeavesState(t *testing.T) {
	s, f := newCreatingStore(t)
	f.createErr = errors.New("422 subject required")
	before := s.Snapshot()

	_, err := s.Create(context.Background(), nil)
	var merr *MutationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, OperationCreate, merr.Operation)
	assert.Equal(t, "items: create: 422 subject required", err.Error())
	assert.Equal(t, before, s.Snapshot())
}

func TestCreate_TransportWithoutCreate(t *testing.T) {
	s := newTestStore(t, newFake())

	_, err := s.Create(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotCreatable)
}

func TestInsert_KnownIDReplaces(t *testing.T) {
	s, _ := newCreatingStore(t)

	added := s.Insert(item{ID: "item-2", Status: "approved"})
	assert.False(t, added)
	snap := s.Snapshot()
	assert.Len(t, snap.Items, 3)
	assert.Equal(t, 7, snap.TotalCount)
	assert.Equal(t, "approved", snap.Items[1].Status)

	assert.True(t, s.Insert(item{ID: "item-9"}))
	assert.Equal(t, 8, s.Snapshot().TotalCount)
}

func TestApply_ReportsChange(t *testing.T) {
	f := newFake()
	f.listFn = staticList(pendingItems(1), 1)
	s := newTestStore(t, f)
	_, err := s.FetchList(context.Background(), nil, 1, 10)
	require.NoError(t, err)

	assert.True(t, s.Apply(item{ID: "item-1", Status: "live"}))
	assert.False(t, s.Apply(item{ID: "unknown", Status: "live"}))
	assert.Equal(t, "live", s.Snapshot().Items[0].Status)
}

func TestSnapshot_IsIsolated(t *testing.T) {
	f := newFake()
	f.listFn = staticList(pendingItems(2), 2)
	s := newTestStore(t, f)
	_, err := s.FetchList(context.Background(), Filters{"type": "a"}, 1, 10)
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.Items[0].Status = "tampered"
	snap.Items[0].Tags[0] = "tampered"
	snap.Filters["type"] = "tampered"

	fresh := s.Snapshot()
	assert.Equal(t, "pending", fresh.Items[0].Status)
	assert.Equal(t, "new", fresh.Items[0].Tags[0])
	assert.Equal(t, "a", fresh.Filters["type"])
}

func TestSubscribe_ReceivesChangesUntilUnsubscribed(t *testing.T) {
	f := newFake()
	f.listFn = staticList(pendingItems(1), 1)
	s := newTestStore(t, f)

	var got []Snapshot[item]
	unsub := s.Subscribe(func(snap Snapshot[item]) { got = append(got, snap) })

	_, err := s.FetchList(context.Background(), nil, 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, StatusLoading, got[0].Status)
	assert.Equal(t, StatusReady, got[1].Status)
	assert.Less(t, got[0].Version, got[1].Version)

	unsub()
	s.Reset()
	assert.Len(t, got, 2)
}

func TestSubscribe_CallbackCanReenterStore(t *testing.T) {
	f := newFake()
	f.listFn = staticList(pendingItems(3), 3)
	s := newTestStore(t, f)

	var (
		statuses []Status
		unsub    func()
	)
	unsub = s.Subscribe(func(snap Snapshot[item]) {
		statuses = append(statuses, snap.Status)
		if snap.Status == StatusReady && snap.Selected == nil {
			s.Select(&snap.Items[0])
			unsub()
		}
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.FetchList(context.Background(), nil, 1, 10)
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("FetchList did not return: subscriber re-entering the store blocked delivery")
	}

	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "item-1", sel.ID)
	assert.Equal(t, []Status{StatusLoading, StatusReady}, statuses)

	// The store keeps notifying after an unsubscribe from inside a callback.
	var later int
	s.Subscribe(func(Snapshot[item]) { later++ })
	s.Select(nil)
	assert.Equal(t, 1, later)
}

func TestSubscribe_CallbackCanSubscribe(t *testing.T) {
	s := newTestStore(t, newFake())

	var inner int
	var once sync.Once
	s.Subscribe(func(Snapshot[item]) {
		once.Do(func() {
			s.Subscribe(func(Snapshot[item]) { inner++ })
		})
	})

	a, b := item{ID: "a"}, item{ID: "b"}
	s.Select(&a)
	s.Select(&b)
	assert.Equal(t, 1, inner)
}

func TestSubscribe_ConcurrentDeliveryIsOrdered(t *testing.T) {
	s := newTestStore(t, newFake())

	var versions []uint64
	s.Subscribe(func(snap Snapshot[item]) { versions = append(versions, snap.Version) })

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				it := item{ID: fmt.Sprintf("g%d-%d", g, i)}
				s.Select(&it)
			}
		}()
	}
	wg.Wait()

	require.NotEmpty(t, versions)
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Fatalf("versions[%d] = %d after %d, want increasing", i, versions[i], versions[i-1])
		}
	}
	assert.Equal(t, s.Snapshot().Version, versions[len(versions)-1])
}

func TestSubscribe_PanickingCallbackDoesNotWedgeDelivery(t *testing.T) {
	s := newTestStore(t, newFake())

	boom := true
	var calls int
	s.Subscribe(func(Snapshot[item]) {
		calls++
		if boom {
			boom = false
			panic("subscriber failed")
		}
	})

	a, b := item{ID: "a"}, item{ID: "b"}
	assert.Panics(t, func() { s.Select(&a) })
	s.Select(&b)
	assert.Equal(t, 2, calls)
}

func TestNew_WarnsWhenItemsCannotBeCopied(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := New("pipes", func(chan int) string { return "pipe" }, nil, WithLogger(zap.New(core)))

	require.ErrorIs(t, s.CopyErr(), deepcopy.ErrTypeNonCopyable)
	require.Equal(t, 1, logs.FilterMessageSnippet("cannot be deep copied").Len())

	ch := make(chan int)
	s.Select(&ch)
	got, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, ch, got, "uncopyable items are shared, not copied")

	assert.NoError(t, newTestStore(t, newFake()).CopyErr())
}

func TestReset_DiscardsInflight(t *testing.T) {
	f := newFake()
	f.gated = true
	s := newTestStore(t, f)
	sel := item{ID: "sel"}
	s.Select(&sel)

	errc := make(chan error, 1)
	go func() {
		_, err := s.FetchList(context.Background(), nil, 1, 10)
		errc <- err
	}()
	call := <-f.calls

	s.Reset()
	snap := s.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Nil(t, snap.Selected)

	call.reply <- listReply{page: Page[item]{Items: pendingItems(1), Total: 1}}
	assert.ErrorIs(t, <-errc, ErrSuperseded)
	assert.Equal(t, StatusIdle, s.Status())
	assert.Empty(t, s.Snapshot().Items)
}

func TestMetrics_RecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	f := newFake()
	f.listFn = staticList(pendingItems(1), 1)
	s := newTestStore(t, f, WithMetrics(m))

	_, err := s.FetchList(context.Background(), nil, 1, 10)
	require.NoError(t, err)
	f.listFn = func(Query) (Page[item], error) { return Page[item]{}, errors.New("x") }
	_, _ = s.FetchList(context.Background(), nil, 1, 10)
	_, err = s.Mutate(context.Background(), "item-1", "approve", nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("items", resultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("items", resultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("items", "approve", resultOK)))
}

func TestMetrics_ObservesFetchDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	clock := mdtest.NewClock()
	clock.Step(250 * time.Millisecond)
	start := clock.Now()

	f := newFake()
	f.listFn = staticList(pendingItems(2), 2)
	s := newTestStore(t, f, WithMetrics(m), WithClock(clock.Now))

	_, err := s.FetchList(context.Background(), nil, 1, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, testutil.CollectAndCount(m.fetchDuration))
	assert.True(t, s.Snapshot().FetchedAt.After(start))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.observeFetch("items", resultOK, time.Second)
	m.observeMutation("items", "approve", resultOK)
}
