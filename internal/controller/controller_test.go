package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"versalex-ingest/internal/dto"
	"versalex-ingest/internal/model"
	"versalex-ingest/internal/service"
	"versalex-ingest/internal/threads"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubEventService struct {
	got dto.EventSearchRequest
}

func (s *stubEventService) SearchEvents(_ context.Context, req dto.EventSearchRequest) (*dto.EventSearchResponse, error) {
	s.got = req
	return &dto.EventSearchResponse{Events: []model.Record{{EventID: "7", Type: "Result"}}, TotalCount: 1, Page: req.Page, Size: req.Size}, nil
}

type stubShipper struct {
	mu      sync.Mutex
	watch   chan model.Record
	watched chan struct{}
}

func (s *stubShipper) Run(context.Context, *sync.WaitGroup) {}

func (s *stubShipper) Status() service.ShipperStatus {
	return service.ShipperStatus{
		Path:    "/opt/harmony/logs/Harmony.xml",
		Running: true,
		Shipped: 3,
		Threads: []threads.Thread{{ID: "1", Name: "Local Listener"}},
	}
}

func (s *stubShipper) Watch(int) (<-chan model.Record, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.watched)
	return s.watch, func() {}
}

func TestGetEvents(t *testing.T) {
	svc := &stubEventService{}
	router := gin.New()
	RegisterEventRoutes(router, NewEventController(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?startTime=2024-03-05T00:00:00Z&endTime=1709625600000&types=Result,%20Transfer&threads=Local%20Listener&size=5000", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Result", "Transfer"}, svc.got.Types)
	assert.Equal(t, []string{"Local Listener"}, svc.got.Threads)
	assert.Equal(t, 50, svc.got.Size)
	assert.Equal(t, time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC), svc.got.EndTime)

	var body struct {
		Events     []map[string]string `json:"events"`
		TotalCount int64               `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.TotalCount)
	assert.Equal(t, "7", body.Events[0]["eventid"])
}

func TestGetEventsBadTime(t *testing.T) {
	router := gin.New()
	RegisterEventRoutes(router, NewEventController(&stubEventService{}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/events?startTime=soon&endTime=later", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusAndThreads(t *testing.T) {
	router := gin.New()
	RegisterStatusRoutes(router, NewStatusController(&stubShipper{}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"path":"/opt/harmony/logs/Harmony.xml"`)
	assert.Contains(t, w.Body.String(), `"shipped":3`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/threads", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":"1","name":"Local Listener"}]`, w.Body.String())
}

func TestStreamEvents(t *testing.T) {
	shipper := &stubShipper{watch: make(chan model.Record, 1), watched: make(chan struct{})}
	router := gin.New()
	RegisterStatusRoutes(router, NewStatusController(shipper))
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/events/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-shipper.watched:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher was not registered")
	}
	shipper.watch <- model.Record{EventID: "42", Type: "Transfer"}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "42", got["eventid"])
	assert.Equal(t, "Transfer", got["type"])
}
