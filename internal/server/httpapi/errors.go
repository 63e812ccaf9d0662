package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/linkkeeper/internal/common"
	"github.com/dmitrijs2005/linkkeeper/internal/logging"
	"github.com/go-chi/chi/middleware"
)

// Messages shown to clients. Some are deliberately shared by several
// errors so responses do not reveal which one happened.
const (
	msgInternal           = "internal error"
	msgUnavailable        = "database connection failed, please try again later"
	msgBadRequest         = "failed to decode request"
	msgInvalidCredentials = "invalid email or password"
	msgFolderNotFound     = "folder not found or access denied"
	msgLinkNotFound       = "link not found"
	msgLinkForbidden      = "no permission to modify this link"
	msgResetSent          = "if the email exists, a password reset link has been sent"
)

// statusFor maps a service error to an HTTP status and the message the
// client sees. Unknown errors are 500 with a generic message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, msgUnavailable

	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrDuplicateIdentity),
		errors.Is(err, common.ErrDuplicateName),
		errors.Is(err, common.ErrInvalidOrExpiredToken):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, common.ErrUnauthenticated),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrUserNotFound),
		errors.Is(err, common.ErrWrongCurrentPassword):
		return http.StatusUnauthorized, rootMessage(err)

	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, msgLinkForbidden

	case errors.Is(err, common.ErrNotFoundOrForbidden):
		return http.StatusNotFound, msgFolderNotFound
	case errors.Is(err, common.ErrLinkNotFound):
		return http.StatusNotFound, msgLinkNotFound
	}

	return http.StatusInternalServerError, msgInternal
}

// rootMessage returns the message of the first sentinel err wraps, so
// token parse details stay in the log.
func rootMessage(err error) string {
	for _, s := range []error{
		common.ErrUnauthenticated,
		common.ErrInvalidToken,
		common.ErrUserNotFound,
		common.ErrWrongCurrentPassword,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return err.Error()
}

// writeError logs err and sends the mapped status. Server-side failures are
// logged at error level, client mistakes at debug.
func writeError(w http.ResponseWriter, r *http.Request, log logging.Logger, op string, err error) {
	status, msg := statusFor(err)

	ctx := r.Context()
	args := []any{"op", op, "request_id", middleware.GetReqID(ctx), "status", status, "error", err}
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", args...)
	} else {
		log.Debug(ctx, "request rejected", args...)
	}

	respond(w, r, status, Response{Message: msg})
}
