package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/linkkeeper/internal/common"
	"github.com/dmitrijs2005/linkkeeper/internal/server/auth"
	"github.com/go-chi/chi/middleware"
)

// TokenVerifier resolves a session token to the id of a live user.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// Gate rejects requests without a valid session and passes the rest on
// with the user id in the request context. Handlers behind the gate read
// the acting user from there and nowhere else.
func Gate(verifier TokenVerifier, s *HTTPServer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "httpapi.Gate"

			token := bearerToken(r)

			ctx, cancel := s.withTimeout(r.Context())
			userID, err := verifier.VerifyToken(ctx, token)
			cancel()

			if err != nil {
				status, msg := statusFor(err)
				s.logger.Warn(r.Context(), "authentication failed",
					"op", op, "request_id", middleware.GetReqID(r.Context()), "status", status, "error", err)

				resp := Response{Message: msg, Timestamp: time.Now().UTC().Format(time.RFC3339)}
				if status == http.StatusInternalServerError {
					resp.Message = common.ErrUnauthenticated.Error()
					status = http.StatusUnauthorized
				}
				respond(w, r, status, resp)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get(common.AuthorizationHeaderName)
	return strings.TrimSpace(strings.TrimPrefix(h, common.BearerPrefix))
}

// userID reads the id the gate stored. A missing id means the route was
// mounted outside the gate, which is a wiring bug.
func userID(r *http.Request) (string, bool) {
	return auth.UserIDFromContext(r.Context())
}
