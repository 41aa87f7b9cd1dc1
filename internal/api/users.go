package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/tphakala/trainwatch-go/internal/datastore"
	"github.com/tphakala/trainwatch-go/internal/errors"
)

// RegisterUserRequest is the payload of POST /users/register.
type RegisterUserRequest struct {
	Email     string `json:"email"`
	PushToken string `json:"push_token"`
}

// UserResponse is the public shape of a user.
type UserResponse struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	HasToken bool   `json:"has_push_token"`
}

// RegisterUser creates a user or updates the push token of an existing
// one, keyed by email. Registering again with a new token replaces the
// old target.
func (c *Controller) RegisterUser(ctx echo.Context) error {
	var req RegisterUserRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		return c.HandleError(ctx, nil, "Email is required", http.StatusBadRequest)
	}

	user, err := c.DS.GetUserByEmail(req.Email)
	switch {
	case err == nil:
		user.PushToken = req.PushToken
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = datastore.User{Email: req.Email, PushToken: req.PushToken}
	default:
		return c.HandleError(ctx, err, "Failed to look up user", http.StatusInternalServerError)
	}

	if err := c.DS.SaveUser(&user); err != nil {
		return c.HandleError(ctx, err, "Failed to save user", http.StatusInternalServerError)
	}

	c.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	return ctx.JSON(http.StatusOK, UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		HasToken: user.PushToken != "",
	})
}
