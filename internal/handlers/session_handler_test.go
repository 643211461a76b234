package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitescope/sitescope/internal/backend"
	"github.com/sitescope/sitescope/internal/logger"
	"github.com/sitescope/sitescope/internal/models"
	"github.com/sitescope/sitescope/internal/services"
)

// newProjectAPI serves a minimal project API for the handler tests.
func newProjectAPI(t *testing.T) *backend.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/projects/p1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.Project{
			ID:   "p1",
			Name: "Test Project",
			Location: &models.Location{
				Latitude:  51.5,
				Longitude: -0.12,
			},
			ConstructionPhases: []models.ConstructionPhase{
				{Number: 0, Name: "Existing"},
				{Number: 1, Name: "Final"},
			},
		})
	})
	mux.HandleFunc("/api/v1/projects/p1/zones", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var zone models.Zone
			require.NoError(t, json.NewDecoder(r.Body).Decode(&zone))
			zone.ID = "z-new"
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(zone)
			return
		}
		json.NewEncoder(w).Encode([]models.Zone{})
	})
	mux.HandleFunc("/api/v1/projects/p1/annotations", func(w http.ResponseWriter, r *http.Request) {
		var a models.Annotation
		require.NoError(t, json.NewDecoder(r.Body).Decode(&a))
		a.ID = "a-new"
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(a)
	})
	mux.HandleFunc("/api/v1/context", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.ContextData{})
	})
	mux.HandleFunc("/api/v1/buildings/b1/model", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("glb-bytes"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL, "", logger.New("test"))
}

// newSessionRouter wires a SessionHandler the way the server does.
func newSessionRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := services.NewSessionService(newProjectAPI(t), services.SessionTuning{}, logger.New("test"))
	t.Cleanup(svc.Shutdown)

	handler := NewSessionHandler(svc)

	router := gin.New()
	v1 := router.Group("/api/v1")
	sessions := v1.Group("/sessions")
	{
		sessions.POST("", handler.Create)
		sessions.GET("/:id", handler.Get)
		sessions.GET("/:id/scene", handler.Scene)
		sessions.GET("/:id/stream", handler.Stream)
		sessions.DELETE("/:id", handler.Delete)
		sessions.POST("/:id/camera", handler.Camera)
		sessions.POST("/:id/input", handler.Input)
		sessions.POST("/:id/phase", handler.Phase)
		sessions.POST("/:id/compare", handler.Compare)
		sessions.POST("/:id/compare/phase", handler.ComparePhase)
		sessions.POST("/:id/map", handler.MapSync)
		sessions.POST("/:id/measure", handler.Measure)
		sessions.POST("/:id/planner", handler.Planner)
		sessions.POST("/:id/select", handler.Select)
		sessions.POST("/:id/hover", handler.Hover)
		sessions.POST("/:id/annotations", handler.CreateAnnotation)
		sessions.POST("/:id/directives", handler.Directive)
		sessions.GET("/:id/buildings/:buildingID/model", handler.Model)
	}
	return router
}

// doJSON posts a JSON body and returns the recorder.
func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// createSession creates a session through the API and returns its state.
func createSession(t *testing.T, router *gin.Engine) SessionResponse {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions", CreateSessionRequest{ProjectID: "p1"})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp SessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.ID)
	return resp
}

func TestSessionHandler_Create(t *testing.T) {
	router := newSessionRouter(t)

	resp := createSession(t, router)
	assert.Equal(t, "p1", resp.ProjectID)
	assert.Equal(t, "orbit", resp.CameraMode)
	assert.Equal(t, 0, resp.ActivePhase)
}

func TestSessionHandler_Create_MissingProjectID(t *testing.T) {
	router := newSessionRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_Get_NotFound(t *testing.T) {
	router := newSessionRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_Delete(t *testing.T) {
	router := newSessionRouter(t)
	sess := createSession(t, router)

	w := doJSON(t, router, http.MethodDelete, "/api/v1/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_CameraMode(t *testing.T) {
	router := newSessionRouter(t)
	sess := createSession(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/camera",
		CameraCommandRequest{Action: "mode", Mode: "firstPerson"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp SessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "firstPerson", resp.CameraMode)
}

func TestSessionHandler_CameraMode_Invalid(t *testing.T) {
	router := newSessionRouter(t)
	sess := createSession(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/camera",
		map[string]string{"action": "mode", "mode": "helicopter"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_Phase(t *testing.T) {
	router := newSessionRouter(t)
	sess := createSession(t, router)

	phase := 1
	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/phase",
		PhaseRequest{Phase: &phase})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]int
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 1, resp["active_phase"])
}

func TestSessionHandler_Measure_Distance(t *testing.T) {
	router := newSessionRouter(t)
	sess := createSession(t, router)
	base := "/api/v1/sessions/" + sess.ID + "/measure"

	w := doJSON(t, router, http.MethodPost, base, MeasureRequest{Action: "mode", Mode: "distance"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, base,
		MeasureRequest{Action: "point", Point: &PointRequest{X: 0, Y: 0, Z: 0}})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, base,
		MeasureRequest{Action: "point", Point: &PointRequest{X: 3, Y: 0, Z: 4}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp MeasureResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.True(t, resp.Completed)
	assert.InDelta(t, 5.0, resp.Measurement.Value, 1e-9)
	assert.Len(t, resp.All, 1)
}

func TestSessionHandler_Planner_Finish(t *testing.T) {
	router := newSessionRouter(t)
	sess := createSession(t, router)
	base := "/api/v1/sessions/" + sess.ID + "/planner"

	w := doJSON(t, router, http.MethodPost, base, PlannerRequest{Action: "tool", Tool: "green_space"})
	require.Equal(t, http.StatusOK, w.Code)

	for _, p := range []PointRequest{{X: 0, Z: 0}, {X: 20, Z: 0}, {X: 20, Z: 20}} {
		v := p
		w = doJSON(t, router, http.MethodPost, base, PlannerRequest{Action: "vertex", Vertex: &v})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = doJSON(t, router, http.MethodPost, base, PlannerRequest{Action: "finish"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp PlannerResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.True(t, resp.Finished)
	assert.Equal(t, "z-new", resp.Zone.ID)
}

func TestSessionHandler_Planner_FinishWithoutVertices(t *testing.T) {
	router := newSessionRouter(t)
	sess := createSession(t, router)
	base := "/api/v1/sessions/" + sess.ID + "/planner"

	w := doJSON(t, router, http.MethodPost, base, PlannerRequest{Action: "tool", Tool: "green_space"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, base, PlannerRequest{Action: "finish"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_ComparePhase(t *testing.T) {
	router := newSessionRouter(t)
	sess := createSession(t, router)

	enabled := true
	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/compare",
		CompareRequest{Enabled: &enabled, LeftPhase: 0, RightPhase: 1})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/compare/phase",
		PointRequest{X: 0, Y: 0, Z: 0})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ComparePhaseResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, []int{0, 1}, resp.Phase)
}

func TestSessionHandler_Annotations(t *testing.T) {
	router := newSessionRouter(t)
	sess := createSession(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/annotations",
		AnnotationRequest{Position: [3]float64{1, 2, 3}, Label: "Lobby entrance"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Annotation
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, "a-new", created.ID)
	assert.Equal(t, "p1", created.ProjectID)
}

func TestSessionHandler_BuildingModel(t *testing.T) {
	router := newSessionRouter(t)
	sess := createSession(t, router)

	w := doJSON(t, router, http.MethodGet,
		"/api/v1/sessions/"+sess.ID+"/buildings/b1/model?lod=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "glb-bytes", w.Body.String())
	assert.Equal(t, "model/gltf-binary", w.Header().Get("Content-Type"))

	w = doJSON(t, router, http.MethodGet,
		"/api/v1/sessions/"+sess.ID+"/buildings/b1/model?lod=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_Directives(t *testing.T) {
	router := newSessionRouter(t)
	sess := createSession(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/directives",
		DirectiveRequest{Type: "screenshot"})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+sess.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp SessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, []string{"screenshot"}, resp.Directives)

	// Directives are drained on read.
	w = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+sess.ID, nil)
	var again SessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&again))
	assert.Empty(t, again.Directives)
}

func TestSessionHandler_Scene(t *testing.T) {
	router := newSessionRouter(t)
	sess := createSession(t, router)

	w := doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+sess.ID+"/scene", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var frame StreamFrame
	require.NoError(t, json.NewDecoder(w.Body).Decode(&frame))
	assert.Equal(t, FrameScene, frame.Type)
	require.NotNil(t, frame.Scene)
	assert.InDelta(t, 51.5, frame.Scene.Origin.Latitude, 1e-9)

	w = doJSON(t, router, http.MethodGet, "/api/v1/sessions/nope/scene", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_Stream_SceneThenMapPoses(t *testing.T) {
	router := newSessionRouter(t)
	sess := createSession(t, router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/api/v1/sessions/" + sess.ID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// The scene arrives first, before any per-frame traffic.
	var first StreamFrame
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, FrameScene, first.Type)
	require.NotNil(t, first.Scene)

	// The session's frame loop is already running; map poses follow on
	// their own once the renderer is attached.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var frame StreamFrame
		require.NoError(t, conn.ReadJSON(&frame), "no map pose arrived on the stream")
		if frame.Type != FrameMapPose {
			continue
		}
		require.NotNil(t, frame.MapPose)
		assert.InDelta(t, 51.5, frame.MapPose.CenterLat, 1.0)
		break
	}
}

