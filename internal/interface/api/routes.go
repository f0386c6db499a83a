package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// RegisterRoutes builds the public router. extra handlers such as /metrics
// are mounted at their path outside the /api/v1 prefix.
func RegisterRoutes(h *Handler, extra map[string]http.Handler) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.Health).Methods("GET")
	for path, handler := range extra {
		router.Handle(path, handler)
	}

	v1 := router.PathPrefix("/api/v1").Subrouter()

	// Driver endpoints
	v1.HandleFunc("/scans", h.IngestScan).Methods("POST")
	v1.HandleFunc("/drivers/{driver_id}/shift/start", h.StartShift).Methods("POST")
	v1.HandleFunc("/drivers/{driver_id}/shift/end", h.EndShift).Methods("POST")
	v1.HandleFunc("/drivers/{driver_id}/status", h.SetDutyStatus).Methods("PUT")
	v1.HandleFunc("/drivers/{driver_id}/location", h.GetDriverLocation).Methods("GET")

	// Route endpoints
	v1.HandleFunc("/routes/{route_id}/snapshot", h.GetRouteSnapshot).Methods("GET")
	v1.HandleFunc("/routes/{route_id}/eta", h.GetRouteETA).Methods("GET")

	// Passenger endpoints
	v1.HandleFunc("/subscriptions", h.Subscribe).Methods("POST")
	v1.HandleFunc("/subscriptions", h.Unsubscribe).Methods("DELETE")
	v1.HandleFunc("/passengers/{passenger_id}/subscriptions", h.ListSubscriptions).Methods("GET")
	v1.HandleFunc("/passengers/{passenger_id}/notifications", h.ListNotifications).Methods("GET")
	v1.HandleFunc("/passengers/{passenger_id}/notifications/{notification_id}/read", h.MarkRead).Methods("PUT")

	// Add CORS support
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	return cors(router)
}
