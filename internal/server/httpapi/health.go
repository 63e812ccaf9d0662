package httpapi

import (
	"net/http"
	"time"
)

type HealthResponse struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	DBStatus  DBStatus `json:"dbStatus"`
	Timestamp string   `json:"timestamp"`
}

type DBStatus struct {
	Connected bool `json:"connected"`
}

// health pings storage. The process itself being up is not enough for a
// 200: without a database no route but this one can succeed.
func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Message:   "Server is healthy",
		DBStatus:  DBStatus{Connected: true},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if err := s.svc.Health.Ping(ctx); err != nil {
		s.logger.Warn(r.Context(), "health check failed", "error", err)
		resp.Status = "unavailable"
		resp.Message = msgUnavailable
		resp.DBStatus.Connected = false
		status = http.StatusServiceUnavailable
	}

	respond(w, r, status, resp)
}
