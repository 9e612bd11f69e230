package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/tabkeeper/internal/domain/tabs"
	"github.com/GriffinCanCode/tabkeeper/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tabkeeper/internal/shared/types"
	"github.com/GriffinCanCode/tabkeeper/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	manager *tabs.Manager
	store   *testutil.MemoryStore
	metrics *monitoring.Metrics
}

func newTestServer(t *testing.T, store *testutil.MemoryStore) *testServer {
	t.Helper()
	if store == nil {
		store = testutil.NewMemoryStore()
	}
	manager := tabs.NewManager(store, tabs.Options{PreserveDelay: 5 * time.Millisecond})
	t.Cleanup(func() { manager.Close(context.Background()) })

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	router := gin.New()
	router.Use(monitoring.Middleware(metrics))
	NewHandlers(manager, store, metrics, nil).Register(router)

	return &testServer{router: router, manager: manager, store: store, metrics: metrics}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type listResponse struct {
	Tabs          []types.Tab `json:"tabs"`
	Count         int         `json:"count"`
	SelectedTabID *uuid.UUID  `json:"selected_tab_id"`
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"service":"tabkeeper"`)

	w = s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]any](t, w)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, s.manager.WindowID().String(), health["window_id"])
}

func TestCreateAndListTabs(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/tabs", CreateTabRequest{URL: "https://example.com", Title: "Example"})
	require.Equal(t, http.StatusCreated, w.Code)
	first := decode[types.Tab](t, w)
	assert.Equal(t, "https://example.com", first.URL)
	assert.Equal(t, types.TabCreated, first.State)

	w = s.do(t, http.MethodPost, "/api/tabs", CreateTabRequest{IsPrivate: true, Select: true})
	require.Equal(t, http.StatusCreated, w.Code)
	second := decode[types.Tab](t, w)
	assert.Equal(t, types.TabActive, second.State)

	w = s.do(t, http.MethodGet, "/api/tabs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[listResponse](t, w)
	assert.Equal(t, 2, list.Count)
	require.Len(t, list.Tabs, 2)
	assert.Equal(t, first.ID, list.Tabs[0].ID)
	require.NotNil(t, list.SelectedTabID)
	assert.Equal(t, second.ID, *list.SelectedTabID)

	counts := map[string]int{"": 2, "?private=true": 1, "?private=false": 1}
	for query, want := range counts {
		w = s.do(t, http.MethodGet, "/api/tabs/count"+query, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(want), decode[map[string]any](t, w)["count"], "query %q", query)
	}

	w = s.do(t, http.MethodGet, "/api/tabs/count?private=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateTabWithParentJoinsGroup(t *testing.T) {
	s := newTestServer(t, nil)
	parent, err := s.manager.AddTab(tabs.AddTabOptions{})
	require.NoError(t, err)
	require.NoError(t, s.manager.UpdateTab(parent.ID, tabs.TabUpdate{
		GroupData: &types.TabGroupData{SearchTerm: "gophers", SearchURL: "https://search.example/?q=gophers"},
	}))

	w := s.do(t, http.MethodPost, "/api/tabs", CreateTabRequest{ParentID: &parent.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	child := decode[types.Tab](t, w)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, parent.ID, *child.ParentID)
	require.NotNil(t, child.GroupData)
	assert.Equal(t, "gophers", child.GroupData.SearchTerm)
}

func TestCreateTabValidation(t *testing.T) {
	s := newTestServer(t, nil)
	missing := uuid.New()

	cases := []struct {
		name string
		body any
	}{
		{"malformed json", `{"url":`},
		{"unsupported scheme", CreateTabRequest{URL: "javascript:alert(1)"}},
		{"unknown parent", CreateTabRequest{ParentID: &missing}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/tabs", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Equal(t, 0, s.manager.Count())
}

func TestGetTab(t *testing.T) {
	s := newTestServer(t, nil)
	tab, err := s.manager.AddTab(tabs.AddTabOptions{Title: "Docs"})
	require.NoError(t, err)

	w := s.do(t, http.MethodGet, "/api/tabs/"+tab.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Docs", decode[types.Tab](t, w).Title)

	w = s.do(t, http.MethodGet, "/api/tabs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/tabs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSelectTab(t *testing.T) {
	s := newTestServer(t, nil)
	tab, err := s.manager.AddTab(tabs.AddTabOptions{})
	require.NoError(t, err)

	w := s.do(t, http.MethodPost, "/api/tabs/"+tab.ID.String()+"/select", nil)
	require.Equal(t, http.StatusOK, w.Code)
	selected, ok := s.manager.SelectedTab()
	require.True(t, ok)
	assert.Equal(t, tab.ID, selected.ID)

	w = s.do(t, http.MethodPost, "/api/tabs/"+uuid.NewString()+"/select", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	selected, _ = s.manager.SelectedTab()
	assert.Equal(t, tab.ID, selected.ID)
}

func TestUpdateTab(t *testing.T) {
	s := newTestServer(t, nil)
	tab, err := s.manager.AddTab(tabs.AddTabOptions{})
	require.NoError(t, err)
	path := "/api/tabs/" + tab.ID.String()

	title := "Go Packages"
	url := "https://pkg.go.dev"
	w := s.do(t, http.MethodPatch, path, UpdateTabRequest{Title: &title, URL: &url})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[types.Tab](t, w)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, url, updated.URL)

	bad := "ftp://files.example"
	w = s.do(t, http.MethodPatch, path, UpdateTabRequest{URL: &bad})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	got, _ := s.manager.Get(tab.ID)
	assert.Equal(t, url, got.URL)

	w = s.do(t, http.MethodPatch, "/api/tabs/"+uuid.NewString(), UpdateTabRequest{Title: &title})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateTabRemovedConcurrently(t *testing.T) {
	s := newTestServer(t, nil)
	tab, err := s.manager.AddTab(tabs.AddTabOptions{})
	require.NoError(t, err)

	s.manager.AddObserver(tabs.ObserverFunc(func(ev tabs.Event) {
		if ev.Type != tabs.EventUpdated {
			return
		}
		done := make(chan error, 1)
		go func() { done <- s.manager.RemoveTab(ev.Tab.ID) }()
		assert.NoError(t, <-done)
	}))

	title := "Gone"
	w := s.do(t, http.MethodPatch, "/api/tabs/"+tab.ID.String(), UpdateTabRequest{Title: &title})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), tabs.ErrTabNotFound.Error())
	assert.Zero(t, s.manager.Count())
}

func TestMoveTab(t *testing.T) {
	s := newTestServer(t, nil)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		tab, err := s.manager.AddTab(tabs.AddTabOptions{})
		require.NoError(t, err)
		ids = append(ids, tab.ID)
	}
	path := "/api/tabs/" + ids[2].String() + "/move"

	w := s.do(t, http.MethodPost, path, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "index is required")

	w = s.do(t, http.MethodPost, path, map[string]any{"index": 0})
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[listResponse](t, w)
	require.Len(t, list.Tabs, 3)
	assert.Equal(t, []uuid.UUID{ids[2], ids[0], ids[1]},
		[]uuid.UUID{list.Tabs[0].ID, list.Tabs[1].ID, list.Tabs[2].ID})
}

func TestRemoveTab(t *testing.T) {
	s := newTestServer(t, nil)
	older, err := s.manager.AddTab(tabs.AddTabOptions{})
	require.NoError(t, err)
	active, err := s.manager.AddTab(tabs.AddTabOptions{})
	require.NoError(t, err)
	require.NoError(t, s.manager.SelectTab(older.ID))
	require.NoError(t, s.manager.SelectTab(active.ID))
	require.NoError(t, s.store.SaveImage(context.Background(), active.ID, testutil.Thumbnail(color.White)))

	w := s.do(t, http.MethodDelete, "/api/tabs/"+active.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]any](t, w)
	assert.Equal(t, older.ID.String(), resp["selected_tab_id"])
	assert.Equal(t, 1, s.manager.Count())

	_, err = s.store.FetchImage(context.Background(), active.ID)
	assert.Error(t, err, "thumbnail removed with the tab")

	w = s.do(t, http.MethodDelete, "/api/tabs/"+active.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestThumbnailRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)
	tab, err := s.manager.AddTab(tabs.AddTabOptions{})
	require.NoError(t, err)
	path := "/api/tabs/" + tab.ID.String() + "/thumbnail"

	w := s.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testutil.Thumbnail(color.RGBA{R: 200, A: 255})))

	req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(buf.Bytes()))
	req.Header.Set("Content-Type", "image/png")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())

	w = s.do(t, http.MethodPut, path, []byte("definitely not a png"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/tabs/"+uuid.NewString()+"/thumbnail", buf.Bytes())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreserveAndRestore(t *testing.T) {
	store := testutil.NewMemoryStore()
	s := newTestServer(t, store)
	for i := 0; i < 3; i++ {
		_, err := s.manager.AddTab(tabs.AddTabOptions{URL: "https://example.com"})
		require.NoError(t, err)
	}

	w := s.do(t, http.MethodPost, "/api/session/preserve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	saved, ok := store.LastSaved()
	require.True(t, ok)
	assert.Len(t, saved.Tabs, 3)

	// A fresh process over the same store picks the window back up.
	restarted := newTestServer(t, store)
	w = restarted.do(t, http.MethodPost, "/api/session/restore", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]any](t, w)
	assert.Equal(t, float64(3), resp["tab_count"])
	assert.Equal(t, s.manager.WindowID().String(), resp["window_id"])

	w = restarted.do(t, http.MethodPost, "/api/session/restore", RestoreRequest{Forced: true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, restarted.manager.Count())
}

func TestPreserveFailure(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.FailSaves(errors.New("disk full"))
	s := newTestServer(t, store)

	w := s.do(t, http.MethodPost, "/api/session/preserve", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "disk full")
}

func TestMutationDuringRestoreConflicts(t *testing.T) {
	store := testutil.NewMemoryStore(testutil.Window(testutil.TabData(2)))
	s := newTestServer(t, store)

	release := store.HoldFetches()
	task := s.manager.RestoreTabs(context.Background(), false)
	require.Eventually(t, s.manager.Restoring, time.Second, time.Millisecond)

	w := s.do(t, http.MethodPost, "/api/tabs", CreateTabRequest{})
	assert.Equal(t, http.StatusConflict, w.Code)

	release()
	require.NoError(t, task.Wait(context.Background()))
	assert.Equal(t, 2, s.manager.Count())
}

func TestListWindows(t *testing.T) {
	primary := testutil.Window(testutil.TabData(3))
	secondary := testutil.Window(testutil.TabData(1))
	secondary.IsPrimary = false
	s := newTestServer(t, testutil.NewMemoryStore(primary, secondary))

	w := s.do(t, http.MethodGet, "/api/session/windows", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Windows []types.WindowSummary `json:"windows"`
		Count   int                   `json:"count"`
	}](t, w)
	assert.Equal(t, 2, resp.Count)

	byID := make(map[uuid.UUID]types.WindowSummary)
	for _, summary := range resp.Windows {
		byID[summary.ID] = summary
	}
	assert.Equal(t, 3, byID[primary.ID].TabCount)
	assert.True(t, byID[primary.ID].IsPrimary)
	assert.Equal(t, 1, byID[secondary.ID].TabCount)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.manager.AddObserver(s.metrics)
	_, err := s.manager.AddTab(tabs.AddTabOptions{IsPrivate: true})
	require.NoError(t, err)

	s.do(t, http.MethodGet, "/api/tabs/"+uuid.NewString(), nil)

	w := s.do(t, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[monitoring.MetricsSnapshot](t, w)
	assert.EqualValues(t, 1, snap.OpenTabs)
	assert.EqualValues(t, 1, snap.PrivateTabs)
	assert.EqualValues(t, 1, snap.TotalErrors)
}
