package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"homekeys/server/internal/calls"
	"homekeys/server/internal/catalog"
	"homekeys/server/internal/conversation"
	"homekeys/server/internal/mapview"
	"homekeys/server/internal/models"
	"homekeys/server/internal/selection"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCalls struct {
	mock.Mock
}

func (m *MockCalls) Request(ctx context.Context, req models.CallRequest) (models.CallOutcome, error) {
	args := m.Called(req)
	return args.Get(0).(models.CallOutcome), args.Error(1)
}

var testRegion = mapview.Viewport{South: 37.2, West: -122.55, North: 37.85, East: -121.85, CenterLat: 37.44, CenterLng: -122.14, Zoom: 11}

type testServer struct {
	router  *gin.Engine
	handler *Handler
	journal *conversation.Journal
	calls   *MockCalls
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := catalog.Load(catalog.Bundled())
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	journal := conversation.NewJournal(10)
	mockCalls := new(MockCalls)
	handler := NewHandler(Dependencies{
		Store:    store,
		Sessions: selection.NewManager(store, 4, logger),
		Journal:  journal,
		Calls:    mockCalls,
		Region:   testRegion,
		PageSize: 4,
		Interval: time.Millisecond,
	}, logger)

	return &testServer{
		router:  NewRouter(handler, []string{"http://localhost:5173"}),
		handler: handler,
		journal: journal,
		calls:   mockCalls,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
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
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

type pageResponse struct {
	Items []struct {
		ID    string `json:"id"`
		Price int    `json:"price"`
	} `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
	TotalItems int `json:"total_items"`
}

func (p pageResponse) ids() []string {
	ids := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		ids = append(ids, it.ID)
	}
	return ids
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(8), body["properties"])
}

func TestListProperties(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		status     int
		ids        []string
		totalPages int
	}{
		{"First page", "", http.StatusOK, []string{"1", "2", "3", "4"}, 2},
		{"Second page", "?page=2", http.StatusOK, []string{"5", "6", "7", "8"}, 2},
		{"Beyond last page", "?page=3", http.StatusOK, []string{}, 2},
		{"Huge page", "?page=4611686018427387903", http.StatusOK, []string{}, 2},
		{"Max int page", "?page=9223372036854775807", http.StatusOK, []string{}, 2},
		{"Custom page size", "?page_size=3&page=3", http.StatusOK, []string{"7", "8"}, 3},
		{"Condos", "?type=condo", http.StatusOK, []string{"1", "4", "8"}, 1},
		{"City", "?city=palo%20alto", http.StatusOK, []string{"3", "6", "7"}, 1},
		{"Price range sorted", "?min_price=1000000&max_price=2300000&sort=price_desc", http.StatusOK, []string{"3", "5", "8"}, 1},
		{"Cheapest first", "?sort=price_asc&page_size=2", http.StatusOK, []string{"1", "4"}, 4},
		{"No matches", "?city=Fresno", http.StatusOK, []string{}, 1},
		{"Negative page", "?page=-1", http.StatusBadRequest, nil, 0},
		{"Oversized page", "?page_size=500", http.StatusBadRequest, nil, 0},
		{"Unknown sort", "?sort=random", http.StatusBadRequest, nil, 0},
		{"Non-numeric price", "?min_price=cheap", http.StatusBadRequest, nil, 0},
	}

	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/api/properties"+tt.query, nil)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				assert.Contains(t, decode[map[string]string](t, w), "error")
				return
			}
			page := decode[pageResponse](t, w)
			assert.Equal(t, tt.ids, page.ids())
			assert.Equal(t, tt.totalPages, page.TotalPages)
		})
	}
}

func TestGetProperty(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/properties/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[models.Property](t, w)
	assert.Equal(t, "1450 University Avenue", p.Address)
	assert.Equal(t, 4, p.Bedrooms)

	w = s.do(t, http.MethodGet, "/api/properties/404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Property not found", decode[map[string]string](t, w)["error"])
}

func TestGetSimilarProperties(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/properties/1/similar", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Properties []models.Property `json:"properties"`
	}](t, w)
	require.Len(t, body.Properties, 3)
	assert.Equal(t, "2", body.Properties[0].ID)

	w = s.do(t, http.MethodGet, "/api/properties/1/similar?limit=10", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/properties/zzz/similar", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type stateResponse struct {
	ID       string          `json:"id"`
	State    selection.State `json:"state"`
	Selected bool            `json:"selected"`
	Moved    bool            `json:"moved"`
}

func createSession(t *testing.T, s *testServer) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode[stateResponse](t, w)
	require.NotEmpty(t, resp.ID)
	assert.Equal(t, selection.State{Page: 1}, resp.State)
	return resp.ID
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)
	base := "/api/sessions/" + id

	// Select opens the overlay
	w := s.do(t, http.MethodPost, base+"/select", gin.H{"id": "4"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[stateResponse](t, w)
	assert.True(t, resp.Selected)
	assert.Equal(t, selection.State{SelectedID: "4", OverlayOpen: true, Page: 1}, resp.State)

	// Next crosses onto the second page's first listing
	w = s.do(t, http.MethodPost, base+"/next", nil)
	resp = decode[stateResponse](t, w)
	assert.True(t, resp.Moved)
	assert.Equal(t, "5", resp.State.SelectedID)

	w = s.do(t, http.MethodPost, base+"/previous", nil)
	assert.Equal(t, "4", decode[stateResponse](t, w).State.SelectedID)

	// Page change is clamped
	w = s.do(t, http.MethodPut, base+"/page", gin.H{"page": 9})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[stateResponse](t, w).State.Page)

	w = s.do(t, http.MethodPut, base+"/page", gin.H{"page": math.MaxInt})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[stateResponse](t, w).State.Page)

	w = s.do(t, http.MethodGet, base, nil)
	assert.Equal(t, selection.State{SelectedID: "4", OverlayOpen: true, Page: 2}, decode[stateResponse](t, w).State)

	// Clear returns to the initial selection
	w = s.do(t, http.MethodPost, base+"/clear", nil)
	assert.Equal(t, selection.State{Page: 2}, decode[stateResponse](t, w).State)

	w = s.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSelectUnknownPropertyClears(t *testing.T) {
	s := newTestServer(t)
	base := "/api/sessions/" + createSession(t, s)

	s.do(t, http.MethodPost, base+"/select", gin.H{"id": "2"})
	w := s.do(t, http.MethodPost, base+"/select", gin.H{"id": "nope"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[stateResponse](t, w)
	assert.False(t, resp.Selected)
	assert.Equal(t, selection.State{Page: 1}, resp.State)
}

func TestSessionBoundaries(t *testing.T) {
	s := newTestServer(t)
	base := "/api/sessions/" + createSession(t, s)

	// Nothing selected
	w := s.do(t, http.MethodPost, base+"/next", nil)
	assert.False(t, decode[stateResponse](t, w).Moved)

	s.do(t, http.MethodPost, base+"/select", gin.H{"id": "8"})
	w = s.do(t, http.MethodPost, base+"/next", nil)
	resp := decode[stateResponse](t, w)
	assert.False(t, resp.Moved)
	assert.Equal(t, "8", resp.State.SelectedID)

	s.do(t, http.MethodPost, base+"/select", gin.H{"id": "1"})
	w = s.do(t, http.MethodPost, base+"/previous", nil)
	resp = decode[stateResponse](t, w)
	assert.False(t, resp.Moved)
	assert.Equal(t, "1", resp.State.SelectedID)
}

func TestSessionBadRequests(t *testing.T) {
	s := newTestServer(t)
	base := "/api/sessions/" + createSession(t, s)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"Select without id", http.MethodPost, base + "/select", gin.H{}, http.StatusBadRequest},
		{"Page without number", http.MethodPut, base + "/page", gin.H{}, http.StatusBadRequest},
		{"Unknown session select", http.MethodPost, "/api/sessions/missing/select", gin.H{"id": "1"}, http.StatusNotFound},
		{"Unknown session view", http.MethodGet, "/api/sessions/missing/view", nil, http.StatusNotFound},
		{"Unknown session stream", http.MethodGet, "/api/sessions/missing/conversation", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestGetView(t *testing.T) {
	s := newTestServer(t)
	base := "/api/sessions/" + createSession(t, s)
	s.do(t, http.MethodPost, base+"/select", gin.H{"id": "3"})

	w := s.do(t, http.MethodGet, base+"/view", nil)
	require.Equal(t, http.StatusOK, w.Code)

	view := decode[selection.View](t, w)
	require.Len(t, view.Items, 4)
	for _, it := range view.Items {
		assert.Equal(t, it.ID == "3", it.Highlighted, it.ID)
	}
	require.NotNil(t, view.Overlay)
	assert.Equal(t, "2254 Oberlin Street", view.Overlay.Address)
	assert.True(t, view.HasNext)
	assert.True(t, view.HasPrevious)
	assert.Equal(t, 2, view.TotalPages)
}

func TestMapEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)
	s.do(t, http.MethodPost, "/api/sessions/"+id+"/select", gin.H{"id": "2"})

	t.Run("Markers", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/map/markers?session="+id, nil)
		require.Equal(t, http.StatusOK, w.Code)
		layer := decode[mapview.Layer](t, w)
		require.Len(t, layer.Markers, 6)
		assert.Equal(t, []string{"7", "8"}, layer.Unplaced)
		for _, m := range layer.Markers {
			assert.Equal(t, m.ID == "2", m.Selected, m.ID)
		}
	})

	t.Run("Markers without session", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/map/markers", nil)
		layer := decode[mapview.Layer](t, w)
		for _, m := range layer.Markers {
			assert.False(t, m.Selected)
		}
	})

	t.Run("Unknown session", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/map/markers?session=ghost", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("GeoJSON", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/map/geojson", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/geo+json")
		body := decode[map[string]interface{}](t, w)
		assert.Equal(t, "FeatureCollection", body["type"])
		assert.Len(t, body["features"], 6)
	})

	t.Run("Clusters", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/map/clusters?precision=1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode[struct {
			Precision int               `json:"precision"`
			Clusters  []mapview.Cluster `json:"clusters"`
		}](t, w)
		assert.Equal(t, 1, body.Precision)
		require.Len(t, body.Clusters, 1)
		assert.Equal(t, 6, body.Clusters[0].Count)

		w = s.do(t, http.MethodGet, "/api/map/clusters?precision=13", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRequestCall(t *testing.T) {
	s := newTestServer(t)
	sessionID := createSession(t, s)

	tests := []struct {
		name    string
		body    interface{}
		outcome models.CallOutcome
		err     error
		status  int
	}{
		{
			name:    "Accepted",
			body:    gin.H{"phone": "+16505550123", "session_id": sessionID},
			outcome: models.CallOutcome{Accepted: true, CallID: "c1", Message: "Call started successfully"},
			status:  http.StatusOK,
		},
		{
			name:    "Invalid phone",
			body:    gin.H{"phone": "12"},
			outcome: models.CallOutcome{Message: "Invalid phone number"},
			err:     calls.ErrInvalidPhone,
			status:  http.StatusBadRequest,
		},
		{
			name:    "Rate limited",
			body:    gin.H{"phone": "+16505550124"},
			outcome: models.CallOutcome{Message: "Too many call requests, please try again later"},
			err:     calls.ErrRateLimited,
			status:  http.StatusTooManyRequests,
		},
		{
			name:    "Provider failure",
			body:    gin.H{"phone": "+16505550125"},
			outcome: models.CallOutcome{Message: "Failed to start call"},
			err:     calls.ErrProvider,
			status:  http.StatusBadGateway,
		},
		{
			name:    "Not configured",
			body:    gin.H{"phone": "+16505550126"},
			outcome: models.CallOutcome{Message: "Calling is not available right now"},
			err:     calls.ErrNotConfigured,
			status:  http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req models.CallRequest
			data, _ := json.Marshal(tt.body)
			require.NoError(t, json.Unmarshal(data, &req))
			s.calls.On("Request", req).Return(tt.outcome, tt.err).Once()

			w := s.do(t, http.MethodPost, "/api/calls", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.outcome, decode[models.CallOutcome](t, w))
		})
	}
	s.calls.AssertExpectations(t)
}

func TestRequestCall_Rejections(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/calls", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Phone number is required", decode[models.CallOutcome](t, w).Message)

	w = s.do(t, http.MethodPost, "/api/calls", gin.H{"phone": "+16505550123", "session_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.calls.AssertNotCalled(t, "Request", mock.Anything)

	s.handler.calls = nil
	w = s.do(t, http.MethodPost, "/api/calls", gin.H{"phone": "+16505550123"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStreamConversation(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	read := func(sessionID string) string {
		resp, err := http.Get(srv.URL + "/api/sessions/" + sessionID + "/conversation")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}

	t.Run("Demo transcript for a fresh session", func(t *testing.T) {
		body := read(createSession(t, s))
		assert.Equal(t, len(conversation.DemoTranscript()), strings.Count(body, "event:message"))
		assert.Equal(t, 1, strings.Count(body, "event:complete"))
		assert.Less(t, strings.Index(body, "property assistant"), strings.Index(body, "Narrowing"))
	})

	t.Run("Journal replaces the demo", func(t *testing.T) {
		id := createSession(t, s)
		require.NoError(t, s.journal.HandleCallEvent(models.CallEvent{
			Phone:     "+16505550123",
			SessionID: id,
			Outcome:   models.CallOutcome{Accepted: true},
		}))

		body := read(id)
		assert.Equal(t, 2, strings.Count(body, "event:message"))
		assert.Contains(t, body, "Calling +16505550123 now")
		assert.Contains(t, body, `"count":2`)
	})
}

func TestDeleteSessionForgetsConversation(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)
	s.journal.Record(id, models.Message{Role: models.RoleUser, Text: "hello"})

	w := s.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, s.journal.Transcript(id))
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/properties", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
