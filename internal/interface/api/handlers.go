package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/usecase"
	"jeeptrack-service/pkg/logger"
)

// Handler exposes the tracking use cases over HTTP.
type Handler struct {
	ingestor   *usecase.ScanIngestor
	aggregator *usecase.PollingAggregator
	registry   *usecase.SubscriptionRegistry
	dispatcher *usecase.NotificationDispatcher
	logger     logger.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	ingestor *usecase.ScanIngestor,
	aggregator *usecase.PollingAggregator,
	registry *usecase.SubscriptionRegistry,
	dispatcher *usecase.NotificationDispatcher,
	logger logger.Logger,
) *Handler {
	return &Handler{
		ingestor:   ingestor,
		aggregator: aggregator,
		registry:   registry,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		h.logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeFailure(w, status, code, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeFailure(w, http.StatusBadRequest, CodeValidation, "Invalid request payload")
		return false
	}
	return true
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// IngestScan handles a driver's checkpoint scan. Duplicates and out-of-order
// scans are successful no-ops.
func (h *Handler) IngestScan(w http.ResponseWriter, r *http.Request) {
	var req entity.ScanRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.ingestor.Ingest(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (h *Handler) StartShift(w http.ResponseWriter, r *http.Request) {
	var req entity.ShiftStartRequest
	if !decode(w, r, &req) {
		return
	}
	req.DriverID = mux.Vars(r)["driver_id"]
	result, err := h.ingestor.StartShift(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (h *Handler) EndShift(w http.ResponseWriter, r *http.Request) {
	result, err := h.ingestor.EndShift(r.Context(), mux.Vars(r)["driver_id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (h *Handler) SetDutyStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status entity.ShiftStatus `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	result, err := h.ingestor.SetDutyStatus(r.Context(), mux.Vars(r)["driver_id"], req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (h *Handler) GetDriverLocation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ingestor.Location(r.Context(), mux.Vars(r)["driver_id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, rec)
}

func (h *Handler) GetRouteSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.aggregator.GetRouteSnapshot(r.Context(), mux.Vars(r)["route_id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, snapshot)
}

// GetRouteETA estimates the window between ?from= and ?to= sequence indexes.
// Without to, the next checkpoint is the target.
func (h *Handler) GetRouteETA(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := strconv.Atoi(q.Get("from"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, CodeValidation, "from must be a sequence index")
		return
	}
	to := 0
	if raw := q.Get("to"); raw != "" {
		if to, err = strconv.Atoi(raw); err != nil {
			writeFailure(w, http.StatusBadRequest, CodeValidation, "to must be a sequence index")
			return
		}
	}

	window, err := h.aggregator.RouteETA(r.Context(), mux.Vars(r)["route_id"], from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{
		"from_sequence": window.From,
		"to_sequence":   window.To,
		"lower_minutes": window.Lower,
		"upper_minutes": window.Upper,
		"eta":           window.String(),
	})
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req usecase.SubscribeRequest
	if !decode(w, r, &req) {
		return
	}
	sub, err := h.registry.Subscribe(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, sub)
}

// Unsubscribe reads passenger_id and route_id from the body, falling back to
// the query string for clients that cannot send a DELETE body.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req usecase.SubscribeRequest
	if r.ContentLength != 0 {
		if !decode(w, r, &req) {
			return
		}
	}
	q := r.URL.Query()
	if req.PassengerID == "" {
		req.PassengerID = q.Get("passenger_id")
	}
	if req.RouteID == "" {
		req.RouteID = q.Get("route_id")
	}

	if err := h.registry.Unsubscribe(r.Context(), req.PassengerID, req.RouteID); err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{
		"passenger_id": req.PassengerID,
		"route_id":     req.RouteID,
	})
}

func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.registry.ListByPassenger(r.Context(), mux.Vars(r)["passenger_id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if subs == nil {
		subs = []*entity.Subscription{}
	}
	writeData(w, http.StatusOK, subs)
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	result, err := h.dispatcher.History(r.Context(), mux.Vars(r)["passenger_id"], page, pageSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if result.Items == nil {
		result.Items = []*entity.NotificationRecord{}
	}
	writeData(w, http.StatusOK, result)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	record, err := h.dispatcher.MarkRead(r.Context(), vars["passenger_id"], vars["notification_id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, record)
}
