package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ayvaro/resource-reservation/internal/booking"
	"github.com/ayvaro/resource-reservation/internal/model"
	"github.com/ayvaro/resource-reservation/internal/repository"
)

// ReservationHandler exposes the booking operations: create, inspect,
// cancel and list reservations, plus the administrative status
// transitions.  All routes require authentication; admin-only routes are
// gated in the router and double-checked here where ownership matters.
type ReservationHandler struct {
	Svc *booking.Service
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(svc *booking.Service) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Svc: svc}
}

type createReservationReq struct {
	ResourceID string          `json:"resource_id"`
	Date       model.Date      `json:"date"`
	StartTime  model.TimeOfDay `json:"start_time"`
	EndTime    model.TimeOfDay `json:"end_time"`
	Purpose    string          `json:"purpose"`
	Notes      string          `json:"notes"`
}

type cancelReservationReq struct {
	Reason string `json:"reason"`
}

// reservationView is the outbound representation of a reservation.
type reservationView struct {
	ID                 string          `json:"id"`
	ResourceID         string          `json:"resource_id"`
	ResourceName       string          `json:"resource_name"`
	UserID             uint64          `json:"user_id"`
	Username           string          `json:"username"`
	Date               model.Date      `json:"date"`
	StartTime          model.TimeOfDay `json:"start_time"`
	EndTime            model.TimeOfDay `json:"end_time"`
	Purpose            string          `json:"purpose,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	Status             string          `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          *time.Time      `json:"updated_at,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
}

func reservationViewOf(r *model.Reservation) reservationView {
	return reservationView{
		ID:                 r.ID,
		ResourceID:         r.ResourceID,
		ResourceName:       r.ResourceName,
		UserID:             r.UserID,
		Username:           r.Username,
		Date:               r.Date,
		StartTime:          r.StartTime,
		EndTime:            r.EndTime,
		Purpose:            r.Purpose,
		Notes:              r.Notes,
		Status:             string(r.Status),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		CancelledAt:        r.CancelledAt,
		CancellationReason: r.CancellationReason,
	}
}

func reservationViewsOf(list []model.Reservation) []reservationView {
	out := make([]reservationView, 0, len(list))
	for i := range list {
		out = append(out, reservationViewOf(&list[i]))
	}
	return out
}

// Create handles POST /v1/reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.ResourceID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource_id is required"})
	}
	if req.Date.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	// Zero TimeOfDay is midnight, so a body that omits both times would
	// otherwise read as a 00:00-00:00 request and fail with a confusing
	// operating-hours rejection.
	if req.StartTime == 0 && req.EndTime == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time and end_time are required"})
	}
	username, _ := c.Get("username").(string)

	r, err := h.Svc.Book(c.Request().Context(), booking.BookRequest{
		ResourceID: req.ResourceID,
		UserID:     userID,
		Username:   username,
		Date:       req.Date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Purpose:    strings.TrimSpace(req.Purpose),
		Notes:      strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, reservationViewOf(r))
}

// Get handles GET /v1/reservations/:id.  Owners see their own records;
// admins see everything.
func (h *ReservationHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	r, err := h.Svc.Get(c.Request().Context(), c.Param("id"), userID, isAdmin(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, reservationViewOf(r))
}

// Cancel handles POST /v1/reservations/:id/cancel.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req cancelReservationReq
	_ = c.Bind(&req) // reason is optional; ignore malformed bodies
	r, err := h.Svc.Cancel(c.Request().Context(), c.Param("id"), userID, isAdmin(c), strings.TrimSpace(req.Reason))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, reservationViewOf(r))
}

// ListMine handles GET /v1/reservations.  Optional query parameters:
// status narrows to one lifecycle state, upcoming=true drops past dates.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	f, ok := listFilter(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}
	list, err := h.Svc.ListMine(c.Request().Context(), userID, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list reservations failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": reservationViewsOf(list)})
}

// ListForResource handles GET /v1/resources/:id/reservations (admin).
// An optional date parameter narrows to one day.
func (h *ReservationHandler) ListForResource(c echo.Context) error {
	var date *model.Date
	if raw := c.QueryParam("date"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		date = &d
	}
	list, err := h.Svc.ListForResource(c.Request().Context(), c.Param("id"), date)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": reservationViewsOf(list)})
}

// ListAll handles GET /v1/admin/reservations (admin).
func (h *ReservationHandler) ListAll(c echo.Context) error {
	f, ok := listFilter(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}
	list, err := h.Svc.ListAll(c.Request().Context(), f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list reservations failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": reservationViewsOf(list)})
}

// Complete handles POST /v1/reservations/:id/complete (admin).
func (h *ReservationHandler) Complete(c echo.Context) error {
	r, err := h.Svc.Complete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, reservationViewOf(r))
}

// NoShow handles POST /v1/reservations/:id/no-show (admin).
func (h *ReservationHandler) NoShow(c echo.Context) error {
	r, err := h.Svc.MarkNoShow(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, reservationViewOf(r))
}

// listFilter builds a repository.ListFilter from query parameters.
func listFilter(c echo.Context) (repository.ListFilter, bool) {
	var f repository.ListFilter
	if s := c.QueryParam("status"); s != "" {
		status := model.ReservationStatus(s)
		if !model.ValidReservationStatus(status) {
			return f, false
		}
		f.Status = status
	}
	if c.QueryParam("upcoming") == "true" {
		f.UpcomingFrom = model.DateOf(time.Now())
	}
	return f, true
}
