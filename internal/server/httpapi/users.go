package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// decode reads a JSON body into req and validates it. On failure the
// response has been written and false is returned.
func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, op string, req any) bool {
	if err := render.DecodeJSON(r.Body, req); err != nil {
		s.logger.Debug(r.Context(), "failed to decode request body", "op", op, "error", err)
		respondMessage(w, r, http.StatusBadRequest, msgBadRequest)
		return false
	}

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			s.logger.Debug(r.Context(), "invalid request", "op", op, "error", err)
			respondMessage(w, r, http.StatusBadRequest, validationMessage(verrs))
			return false
		}
		writeError(w, r, s.logger, op, err)
		return false
	}
	return true
}

func (s *HTTPServer) register(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.register"

	var req RegisterRequest
	if !s.decode(w, r, op, &req) {
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	user, token, err := s.svc.Identity.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, r, s.logger, op, err)
		return
	}

	s.logger.Info(r.Context(), "user registered", "op", op, "user_id", user.ID)

	respond(w, r, http.StatusCreated, AuthResponse{
		Response: Response{Message: "registration successful"},
		Token:    token,
		User:     newUserView(user),
	})
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.login"

	var req LoginRequest
	if !s.decode(w, r, op, &req) {
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	token, user, err := s.svc.Identity.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeError(w, r, s.logger, op, err)
		return
	}

	respond(w, r, http.StatusOK, AuthResponse{
		Response: Response{Message: "login successful"},
		Token:    token,
		User:     newUserView(user),
	})
}

func (s *HTTPServer) getProfile(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.getProfile"

	uid, _ := userID(r)

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	user, err := s.svc.Identity.GetProfile(ctx, uid)
	if err != nil {
		writeError(w, r, s.logger, op, err)
		return
	}

	respond(w, r, http.StatusOK, newUserView(user))
}

func (s *HTTPServer) updateProfile(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.updateProfile"

	var req UpdateProfileRequest
	if !s.decode(w, r, op, &req) {
		return
	}
	uid, _ := userID(r)

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	user, err := s.svc.Identity.UpdateProfile(ctx, uid, req.Username, req.Email)
	if err != nil {
		writeError(w, r, s.logger, op, err)
		return
	}

	respond(w, r, http.StatusOK, ProfileResponse{
		Response: Response{Message: "profile updated"},
		User:     newUserView(user),
	})
}

func (s *HTTPServer) changePassword(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.changePassword"

	var req ChangePasswordRequest
	if !s.decode(w, r, op, &req) {
		return
	}
	uid, _ := userID(r)

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	if err := s.svc.Identity.ChangePassword(ctx, uid, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, s.logger, op, err)
		return
	}

	respondMessage(w, r, http.StatusOK, "password changed")
}

// forgotPassword answers the same message whether or not the email is
// registered.
func (s *HTTPServer) forgotPassword(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.forgotPassword"

	var req ForgotPasswordRequest
	if !s.decode(w, r, op, &req) {
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	if err := s.svc.Identity.ForgotPassword(ctx, req.Email); err != nil {
		writeError(w, r, s.logger, op, err)
		return
	}

	respondMessage(w, r, http.StatusOK, msgResetSent)
}

func (s *HTTPServer) resetPassword(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.resetPassword"

	var req ResetPasswordRequest
	if !s.decode(w, r, op, &req) {
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	if err := s.svc.Identity.ResetPassword(ctx, chi.URLParam(r, "token"), req.Password); err != nil {
		writeError(w, r, s.logger, op, err)
		return
	}

	respondMessage(w, r, http.StatusOK, "password has been reset")
}
