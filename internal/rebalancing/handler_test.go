package rebalancing

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/richxcame/fleet-engine/internal/stations"
	"github.com/richxcame/fleet-engine/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTestContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var req *http.Request
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	c.Request = req

	return c, w
}

func parseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &response)
	return response
}

func TestHandler_CreateTask(t *testing.T) {
	svc, repo, st := newTestService()
	handler := NewHandler(svc)
	stationID := uuid.New()

	st.On("GetStation", mock.Anything, stationID).Return(&stations.Station{ID: stationID}, nil)
	repo.On("CreateTask", mock.Anything, mock.Anything).Return(nil)

	c, w := setupTestContext(http.MethodPost, "/api/v1/rebalancing/tasks", map[string]interface{}{
		"station_id":     stationID,
		"required_count": -3,
		"priority":       "CRITICAL",
	})

	handler.CreateTask(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := parseResponse(w)["data"].(map[string]interface{})
	assert.Equal(t, "PENDING", data["status"])
	assert.Equal(t, float64(0), data["current_count"])
}

func TestHandler_CreateTask_MissingFields(t *testing.T) {
	svc, _, _ := newTestService()
	handler := NewHandler(svc)

	c, w := setupTestContext(http.MethodPost, "/api/v1/rebalancing/tasks", map[string]interface{}{
		"priority": "LOW",
	})

	handler.CreateTask(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_UpdateTask_NotFound(t *testing.T) {
	svc, repo, _ := newTestService()
	handler := NewHandler(svc)
	id := uuid.New()

	repo.On("GetTaskByID", mock.Anything, id).Return(nil, pgx.ErrNoRows)

	c, w := setupTestContext(http.MethodPatch, "/api/v1/rebalancing/tasks/"+id.String(), map[string]interface{}{
		"status": "IN_PROGRESS",
	})
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	handler.UpdateTask(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_GetMetrics(t *testing.T) {
	svc, repo, _ := newTestService()
	handler := NewHandler(svc)

	repo.On("ListTasks", mock.Anything, (*string)(nil)).Return([]*Task{
		{Status: StatusCompleted},
		{Status: StatusPending},
	}, nil)

	c, w := setupTestContext(http.MethodGet, "/api/v1/rebalancing/metrics", nil)

	handler.GetMetrics(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := parseResponse(w)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["total_tasks"])
	assert.Equal(t, float64(50), data["completion_rate"])
	assert.Nil(t, data["average_completion_time_minutes"])
}

func TestHandler_Optimize(t *testing.T) {
	svc, repo, _ := newTestService()
	handler := NewHandler(svc)

	a := routable(-4, 0.01, 0)
	b := routable(3, 0.02, 0)
	ids := []uuid.UUID{a.ID, b.ID}
	repo.On("GetRoutableTasks", mock.Anything, ids).Return([]*RoutableTask{a, b}, nil)

	c, w := setupTestContext(http.MethodPost, "/api/v1/rebalancing/routes/optimize", OptimizeRequest{
		TaskIDs:         ids,
		VehicleLocation: geo.GeoPoint{Latitude: 0, Longitude: 0},
		VehicleCapacity: 20,
	})

	handler.Optimize(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := parseResponse(w)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["route_count"])
	assert.Equal(t, float64(2), data["task_count"])
}

func TestHandler_Optimize_InvalidLocation(t *testing.T) {
	svc, _, _ := newTestService()
	handler := NewHandler(svc)

	c, w := setupTestContext(http.MethodPost, "/api/v1/rebalancing/routes/optimize", OptimizeRequest{
		TaskIDs:         []uuid.UUID{uuid.New()},
		VehicleLocation: geo.GeoPoint{Latitude: 120, Longitude: 0},
	})

	handler.Optimize(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
