package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ayvaro/resource-reservation/internal/availability"
	"github.com/ayvaro/resource-reservation/internal/booking"
	"github.com/ayvaro/resource-reservation/internal/model"
	"github.com/ayvaro/resource-reservation/internal/repository"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
// JWT numeric claims arrive as float64; tolerate the other encodings too.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// isAdmin reports whether the authenticated request carries the admin role.
func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleAdmin
}

// serviceError maps booking-layer and repository errors to HTTP responses.
// Unknown resource and reservation ids map to 404, ownership violations to
// 403, terminal-state transitions and overlap conflicts to 409, and all
// other availability rejections to 400 with a machine-readable reason.
func serviceError(c echo.Context, err error) error {
	var rej *booking.RejectionError
	switch {
	case errors.Is(err, repository.ErrResourceNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
	case errors.Is(err, repository.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrAlreadyTerminal):
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation already finalized"})
	case errors.As(err, &rej):
		body := echo.Map{"error": err.Error(), "reason": string(rej.Reason)}
		if rej.ConflictID != "" {
			body["conflicting_reservation_id"] = rej.ConflictID
		}
		status := http.StatusBadRequest
		if rej.Reason == availability.ReasonOverlaps {
			status = http.StatusConflict
		}
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// parseDateParam reads a required YYYY-MM-DD query parameter.
func parseDateParam(c echo.Context, name string) (model.Date, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return model.Date{}, false
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return model.Date{}, false
	}
	return d, true
}
