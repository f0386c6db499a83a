package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/clock/testclock"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/infrastructure/router"
	"jeeptrack-service/internal/interface/api"
	repo "jeeptrack-service/internal/interface/repository"
	"jeeptrack-service/internal/usecase"
	"jeeptrack-service/pkg/logger"
	"jeeptrack-service/pkg/metrics"
	"jeeptrack-service/templates"
)

var t0 = time.Date(2024, 3, 4, 7, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *api.ErrorBody  `json:"error"`
}

type server struct {
	c       *qt.C
	clock   *testclock.Clock
	handler http.Handler
}

func newServer(c *qt.C) *server {
	log := logger.NewNopLogger()
	m := metrics.NewNopMetrics()
	clk := testclock.NewClock(t0)

	dir, err := repo.NewYAMLDirectoryRepository("../repository/testdata/directory.yml")
	c.Assert(err, qt.IsNil)

	eventRouter := router.NewEventRouter(log)
	eventRouter.Register(templates.NewCheckpointAdvanceHandler())
	eventRouter.Register(templates.NewShiftEventHandler())

	store := usecase.NewLocationStore(repo.NewMemoryLocationRepository(), clk, m, log)
	registry := usecase.NewSubscriptionRegistry(repo.NewMemorySubscriptionRepository(), dir, clk, log)
	dispatcher := usecase.NewNotificationDispatcher(repo.NewMemoryNotificationRepository(), registry, eventRouter, nil, clk, m, log)
	eta := usecase.NewETAEstimator(2*time.Minute, 25, 5*time.Minute)
	ingestor := usecase.NewScanIngestor(store, dir, usecase.NewChangeDetector(true), eta, dispatcher, clk, m, log, usecase.IngestConfig{
		Budget:                 time.Second,
		RestartMinBackwardJump: 2,
		RestartMinGap:          15 * time.Minute,
	})
	staleness := usecase.NewStalenessClassifier(2*time.Minute, 10*time.Minute, 30*time.Minute)
	aggregator := usecase.NewPollingAggregator(store, dir, eta, staleness, nil, 0, clk, m, log)

	h := api.NewHandler(ingestor, aggregator, registry, dispatcher, log)
	return &server{c: c, clock: clk, handler: api.RegisterRoutes(h, nil)}
}

func (s *server) do(method, path string, body interface{}) (int, envelope) {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.c.Assert(err, qt.IsNil)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	s.c.Assert(json.Unmarshal(rec.Body.Bytes(), &env), qt.IsNil, qt.Commentf("body: %s", rec.Body.String()))
	return rec.Code, env
}

func (s *server) data(env envelope, v interface{}) {
	s.c.Assert(json.Unmarshal(env.Data, v), qt.IsNil)
}

func TestHealth(t *testing.T) {
	c := qt.New(t)
	s := newServer(c)
	code, env := s.do("GET", "/health", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(env.Success, qt.IsTrue)
}

func TestScanFlow(t *testing.T) {
	c := qt.New(t)
	s := newServer(c)

	code, env := s.do("POST", "/api/v1/subscriptions", map[string]string{
		"passenger_id": "p1",
		"route_id":     "r1",
	})
	c.Assert(code, qt.Equals, http.StatusOK)
	var sub entity.Subscription
	s.data(env, &sub)
	c.Assert(sub.Preference, qt.Equals, entity.PreferenceAll)

	code, env = s.do("POST", "/api/v1/drivers/d1/shift/start", map[string]string{
		"route_id":      "r1",
		"jeepney_id":    "j1",
		"checkpoint_id": "a",
	})
	c.Assert(code, qt.Equals, http.StatusOK, qt.Commentf("%+v", env.Error))
	var result entity.ScanResult
	s.data(env, &result)
	c.Assert(result.Outcome, qt.Equals, entity.OutcomeShiftStart)
	c.Assert(result.NextCheckpointETA, qt.Equals, "5–7 mins")

	scan := map[string]interface{}{
		"driver_id":     "d1",
		"route_id":      "r1",
		"checkpoint_id": "b",
		"timestamp":     t0.Add(5 * time.Minute),
	}
	code, env = s.do("POST", "/api/v1/scans", scan)
	c.Assert(code, qt.Equals, http.StatusOK)
	result = entity.ScanResult{}
	s.data(env, &result)
	c.Assert(result.Outcome, qt.Equals, entity.OutcomeAdvanced)
	c.Assert(result.NotifyWorthy, qt.IsTrue)
	c.Assert(result.NotificationsCreated, qt.Equals, 1)

	// A retry of the same scan is a benign duplicate.
	code, env = s.do("POST", "/api/v1/scans", scan)
	c.Assert(code, qt.Equals, http.StatusOK)
	result = entity.ScanResult{}
	s.data(env, &result)
	c.Assert(result.Outcome, qt.Equals, entity.OutcomeDuplicate)
	c.Assert(result.NotifyWorthy, qt.IsFalse)

	code, env = s.do("GET", "/api/v1/drivers/d1/location", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	var loc entity.DriverLocationRecord
	s.data(env, &loc)
	c.Assert(loc.CheckpointID, qt.Equals, "b")

	code, env = s.do("GET", "/api/v1/passengers/p1/notifications?page=1&page_size=10", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	var page entity.NotificationPage
	s.data(env, &page)
	c.Assert(page.Total, qt.Equals, int64(2))
	c.Assert(page.Unread, qt.Equals, int64(2))
	c.Assert(page.Items[0].Type, qt.Equals, entity.EventCheckpointAdvance)

	code, _ = s.do("PUT", "/api/v1/passengers/p1/notifications/"+page.Items[0].ID+"/read", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	code, env = s.do("PUT", "/api/v1/passengers/p2/notifications/"+page.Items[0].ID+"/read", nil)
	c.Assert(code, qt.Equals, http.StatusNotFound)
	c.Assert(env.Error.Code, qt.Equals, api.CodeNotFound)

	code, _ = s.do("POST", "/api/v1/drivers/d1/shift/end", nil)
	c.Assert(code, qt.Equals, http.StatusOK)

	scan["checkpoint_id"] = "c"
	scan["timestamp"] = t0.Add(10 * time.Minute)
	code, env = s.do("POST", "/api/v1/scans", scan)
	c.Assert(code, qt.Equals, http.StatusConflict)
	c.Assert(env.Error.Code, qt.Equals, api.CodeRejected)

	code, _ = s.do("GET", "/api/v1/drivers/d1/location", nil)
	c.Assert(code, qt.Equals, http.StatusNotFound)
}

func TestScanErrors(t *testing.T) {
	c := qt.New(t)
	s := newServer(c)

	code, env := s.do("POST", "/api/v1/scans", map[string]string{"route_id": "r1", "checkpoint_id": "a"})
	c.Assert(code, qt.Equals, http.StatusBadRequest)
	c.Assert(env.Error.Code, qt.Equals, api.CodeValidation)

	code, env = s.do("POST", "/api/v1/scans", map[string]string{"driver_id": "d1", "route_id": "r1", "checkpoint_id": "zz"})
	c.Assert(code, qt.Equals, http.StatusNotFound)
	c.Assert(env.Error.Code, qt.Equals, api.CodeNotFound)

	code, env = s.do("POST", "/api/v1/scans", map[string]string{"driver_id": "d1", "route_id": "r1", "checkpoint_id": "a"})
	c.Assert(code, qt.Equals, http.StatusConflict)
	c.Assert(env.Error.Code, qt.Equals, api.CodeRejected)

	req := httptest.NewRequest("POST", "/api/v1/scans", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
}

func TestSubscriptionEndpoints(t *testing.T) {
	c := qt.New(t)
	s := newServer(c)

	code, env := s.do("POST", "/api/v1/subscriptions", map[string]string{
		"passenger_id":  "p1",
		"route_id":      "r1",
		"preference":    "arrivals_only",
		"checkpoint_id": "c",
	})
	c.Assert(code, qt.Equals, http.StatusOK, qt.Commentf("%+v", env.Error))

	code, env = s.do("POST", "/api/v1/subscriptions", map[string]string{"passenger_id": "p1", "route_id": "r9"})
	c.Assert(code, qt.Equals, http.StatusNotFound)

	code, env = s.do("GET", "/api/v1/passengers/p1/subscriptions", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	var subs []entity.Subscription
	s.data(env, &subs)
	c.Assert(subs, qt.HasLen, 1)
	c.Assert(subs[0].CheckpointID, qt.Equals, "c")

	code, _ = s.do("DELETE", "/api/v1/subscriptions?passenger_id=p1&route_id=r1", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	code, env = s.do("DELETE", "/api/v1/subscriptions", map[string]string{"passenger_id": "p1", "route_id": "r1"})
	c.Assert(code, qt.Equals, http.StatusNotFound)

	code, env = s.do("GET", "/api/v1/passengers/p1/subscriptions", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(string(env.Data), qt.Equals, "[]")
}

func TestRouteEndpoints(t *testing.T) {
	c := qt.New(t)
	s := newServer(c)

	code, env := s.do("GET", "/api/v1/routes/r1/eta?from=1", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	var eta map[string]interface{}
	s.data(env, &eta)
	c.Assert(eta["eta"], qt.Equals, "5–7 mins")
	c.Assert(eta["to_sequence"], qt.Equals, float64(2))

	code, _ = s.do("GET", "/api/v1/routes/r1/eta?from=x", nil)
	c.Assert(code, qt.Equals, http.StatusBadRequest)
	code, _ = s.do("GET", "/api/v1/routes/r1/eta?from=3&to=1", nil)
	c.Assert(code, qt.Equals, http.StatusBadRequest)

	code, _ = s.do("POST", "/api/v1/drivers/d1/shift/start", map[string]string{"route_id": "r1", "jeepney_id": "j1"})
	c.Assert(code, qt.Equals, http.StatusOK)
	code, env = s.do("GET", "/api/v1/routes/r1/snapshot", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	var snap entity.RouteSnapshot
	s.data(env, &snap)
	c.Assert(snap.Vehicles, qt.HasLen, 1)
	c.Assert(snap.Vehicles[0].JeepneyNumber, qt.Equals, "TXY-123")
	c.Assert(snap.Vehicles[0].CurrentCheckpointName, qt.Equals, "Not yet scanned")

	code, env = s.do("GET", "/api/v1/routes/r9/snapshot", nil)
	c.Assert(code, qt.Equals, http.StatusNotFound)
	c.Assert(env.Success, qt.IsFalse)
}

func TestDutyStatus(t *testing.T) {
	c := qt.New(t)
	s := newServer(c)

	code, _ := s.do("PUT", "/api/v1/drivers/d1/status", map[string]string{"status": "busy"})
	c.Assert(code, qt.Equals, http.StatusConflict)

	code, _ = s.do("POST", "/api/v1/drivers/d1/shift/start", map[string]string{"route_id": "r1", "jeepney_id": "j1"})
	c.Assert(code, qt.Equals, http.StatusOK)

	code, env := s.do("PUT", "/api/v1/drivers/d1/status", map[string]string{"status": "busy"})
	c.Assert(code, qt.Equals, http.StatusOK)
	var result entity.ScanResult
	s.data(env, &result)
	c.Assert(result.Current.ShiftStatus, qt.Equals, entity.ShiftBusy)

	code, _ = s.do("PUT", "/api/v1/drivers/d1/status", map[string]string{"status": "asleep"})
	c.Assert(code, qt.Equals, http.StatusBadRequest)
}
