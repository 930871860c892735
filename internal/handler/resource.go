package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ayvaro/resource-reservation/internal/booking"
	"github.com/ayvaro/resource-reservation/internal/model"
	"github.com/ayvaro/resource-reservation/internal/repository"
)

// ResourceHandler exposes the resource registry: public browsing and
// availability views, plus administrative create/update/delete.  Role
// enforcement is done in the router; handlers only need identity.
type ResourceHandler struct {
	Resources *repository.ResourceRepo
	Booking   *booking.Service
}

// NewResourceHandler constructs a ResourceHandler.
func NewResourceHandler(resources *repository.ResourceRepo, svc *booking.Service) *ResourceHandler {
	if resources == nil || svc == nil {
		panic("nil dependency passed to NewResourceHandler")
	}
	return &ResourceHandler{Resources: resources, Booking: svc}
}

// resourceReq is the create/update payload.  Times come in as "HH:MM"
// strings and weekdays as integers with Sunday == 0.
type resourceReq struct {
	Name                string          `json:"name"`
	Type                string          `json:"type"`
	Description         string          `json:"description"`
	Location            string          `json:"location"`
	Building            string          `json:"building"`
	Floor               int             `json:"floor"`
	Capacity            int             `json:"capacity"`
	Amenities           []string        `json:"amenities"`
	AvailableDays       []int           `json:"available_days"`
	OpenTime            model.TimeOfDay `json:"open_time"`
	CloseTime           model.TimeOfDay `json:"close_time"`
	SlotDurationMinutes int             `json:"slot_duration_minutes"`
	MaxBookingHours     int             `json:"max_booking_hours"`
	RequiresApproval    bool            `json:"requires_approval"`
	Status              string          `json:"status"`
}

// resourceView is the outbound representation.
type resourceView struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Type                string          `json:"type"`
	Description         string          `json:"description,omitempty"`
	Location            string          `json:"location"`
	Building            string          `json:"building,omitempty"`
	Floor               int             `json:"floor"`
	Capacity            int             `json:"capacity"`
	Amenities           []string        `json:"amenities,omitempty"`
	AvailableDays       []int           `json:"available_days"`
	OpenTime            model.TimeOfDay `json:"open_time"`
	CloseTime           model.TimeOfDay `json:"close_time"`
	SlotDurationMinutes int             `json:"slot_duration_minutes"`
	MaxBookingHours     int             `json:"max_booking_hours"`
	RequiresApproval    bool            `json:"requires_approval"`
	Status              string          `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           *time.Time      `json:"updated_at,omitempty"`
}

func viewOf(r *model.Resource) resourceView {
	days := make([]int, 0, len(r.AvailableDays))
	for _, d := range r.AvailableDays {
		days = append(days, int(d))
	}
	return resourceView{
		ID:                  r.ID,
		Name:                r.Name,
		Type:                string(r.Type),
		Description:         r.Description,
		Location:            r.Location,
		Building:            r.Building,
		Floor:               r.Floor,
		Capacity:            r.Capacity,
		Amenities:           r.Amenities,
		AvailableDays:       days,
		OpenTime:            r.OpenTime,
		CloseTime:           r.CloseTime,
		SlotDurationMinutes: r.SlotDurationMinutes,
		MaxBookingHours:     r.MaxBookingHours,
		RequiresApproval:    r.RequiresApproval,
		Status:              string(r.Status),
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

// toModel validates the payload and converts it into a Resource.  The
// returned message is empty when the payload is valid.
func (req *resourceReq) toModel() (*model.Resource, string) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, "name is required"
	}
	rtype := model.ResourceType(req.Type)
	if !model.ValidResourceType(rtype) {
		return nil, "invalid resource type"
	}
	status := model.ResourceStatus(req.Status)
	if req.Status == "" {
		status = model.ResourceAvailable
	} else if !model.ValidResourceStatus(status) {
		return nil, "invalid resource status"
	}
	if req.Capacity <= 0 {
		return nil, "capacity must be positive"
	}
	if !req.OpenTime.Valid() || !req.CloseTime.Valid() || req.OpenTime >= req.CloseTime {
		return nil, "operating window must satisfy open_time < close_time"
	}
	if req.SlotDurationMinutes <= 0 {
		return nil, "slot_duration_minutes must be positive"
	}
	if req.MaxBookingHours <= 0 {
		return nil, "max_booking_hours must be positive"
	}
	if len(req.AvailableDays) == 0 {
		return nil, "available_days is required"
	}
	days := make([]time.Weekday, 0, len(req.AvailableDays))
	seen := map[int]bool{}
	for _, d := range req.AvailableDays {
		if d < 0 || d > 6 {
			return nil, "available_days entries must be 0 (Sunday) through 6 (Saturday)"
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, time.Weekday(d))
		}
	}
	return &model.Resource{
		Name:                req.Name,
		Type:                rtype,
		Description:         strings.TrimSpace(req.Description),
		Location:            strings.TrimSpace(req.Location),
		Building:            strings.TrimSpace(req.Building),
		Floor:               req.Floor,
		Capacity:            req.Capacity,
		Amenities:           req.Amenities,
		AvailableDays:       days,
		OpenTime:            req.OpenTime,
		CloseTime:           req.CloseTime,
		SlotDurationMinutes: req.SlotDurationMinutes,
		MaxBookingHours:     req.MaxBookingHours,
		RequiresApproval:    req.RequiresApproval,
		Status:              status,
	}, ""
}

// Create handles POST /v1/resources (admin).
func (h *ResourceHandler) Create(c echo.Context) error {
	var req resourceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	res, msg := req.toModel()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	res.ID = uuid.NewString()
	res.CreatedAt = time.Now().UTC()
	if err := h.Resources.Create(c.Request().Context(), res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create resource failed"})
	}
	return c.JSON(http.StatusCreated, viewOf(res))
}

// Update handles PUT /v1/resources/:id (admin).
func (h *ResourceHandler) Update(c echo.Context) error {
	id := c.Param("id")
	var req resourceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	res, msg := req.toModel()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	res.ID = id
	if err := h.Resources.Update(c.Request().Context(), res); err != nil {
		if err == repository.ErrResourceNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update resource failed"})
	}
	updated, err := h.Resources.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load resource failed"})
	}
	return c.JSON(http.StatusOK, viewOf(updated))
}

// Delete handles DELETE /v1/resources/:id (admin).
func (h *ResourceHandler) Delete(c echo.Context) error {
	if err := h.Resources.Delete(c.Request().Context(), c.Param("id")); err != nil {
		if err == repository.ErrResourceNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete resource failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Get handles GET /v1/resources/:id.
func (h *ResourceHandler) Get(c echo.Context) error {
	res, err := h.Resources.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(res))
}

// List handles GET /v1/resources with optional type/status filters and
// limit/offset pagination.
func (h *ResourceHandler) List(c echo.Context) error {
	limit, offset := pagination(c)
	list, err := h.Resources.List(c.Request().Context(), c.QueryParam("type"), c.QueryParam("status"), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list resources failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"resources": viewsOf(list)})
}

// Search handles GET /v1/resources/search?q=...
func (h *ResourceHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "q is required"})
	}
	limit, offset := pagination(c)
	list, err := h.Resources.Search(c.Request().Context(), q, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search resources failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"resources": viewsOf(list)})
}

// Availability handles GET /v1/resources/:id/availability?date=YYYY-MM-DD.
// It returns the resource's slot grid for the day with per-slot flags.
func (h *ResourceHandler) Availability(c echo.Context) error {
	date, ok := parseDateParam(c, "date")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date query parameter (YYYY-MM-DD) is required"})
	}
	res, slots, err := h.Booking.DayView(c.Request().Context(), c.Param("id"), date)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"resource_id":   res.ID,
		"resource_name": res.Name,
		"date":          date,
		"slots":         slots,
	})
}

// CheckAvailability handles GET /v1/resources/:id/availability/check with
// date, start_time and end_time query parameters.  It runs the availability
// engine without committing anything.
func (h *ResourceHandler) CheckAvailability(c echo.Context) error {
	date, ok := parseDateParam(c, "date")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date query parameter (YYYY-MM-DD) is required"})
	}
	start, err := model.ParseClock(c.QueryParam("start_time"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be HH:MM"})
	}
	end, err := model.ParseClock(c.QueryParam("end_time"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_time must be HH:MM"})
	}
	v, err := h.Booking.Check(c.Request().Context(), c.Param("id"), date, start, end)
	if err != nil {
		return serviceError(c, err)
	}
	body := echo.Map{"available": v.Available}
	if !v.Available {
		body["reason"] = string(v.Reason)
		if v.ConflictID != "" {
			body["conflicting_reservation_id"] = v.ConflictID
		}
	}
	return c.JSON(http.StatusOK, body)
}

func viewsOf(list []model.Resource) []resourceView {
	out := make([]resourceView, 0, len(list))
	for i := range list {
		out = append(out, viewOf(&list[i]))
	}
	return out
}

// pagination reads limit/offset query parameters with sane defaults.
func pagination(c echo.Context) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
