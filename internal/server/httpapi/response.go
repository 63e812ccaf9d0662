package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/linkkeeper/internal/server/models"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// Response is the envelope for messages and errors. Successful reads of a
// single entity or a list return the entity itself, without the envelope.
type Response struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// UserView is the public part of a user.
type UserView struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

func newUserView(u *models.User) UserView {
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

// AuthResponse answers register and login.
type AuthResponse struct {
	Response
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

type ProfileResponse struct {
	Response
	User UserView `json:"user"`
}

func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func respondMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respond(w, r, status, Response{Message: msg})
}

// validationMessage renders validator errors as one line, field by field.
func validationMessage(errs validator.ValidationErrors) string {
	var msgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("field %s must be at most %s characters", err.Field(), err.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("field %s must be at least %s characters", err.Field(), err.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}

	return strings.Join(msgs, ", ")
}
