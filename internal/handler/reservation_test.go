package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayvaro/resource-reservation/internal/booking"
	"github.com/ayvaro/resource-reservation/internal/model"
	"github.com/ayvaro/resource-reservation/internal/repository"
)

// emptyRegistry knows no resources at all.
type emptyRegistry struct{}

func (emptyRegistry) Get(ctx context.Context, id string) (*model.Resource, error) {
	return nil, repository.ErrResourceNotFound
}

// emptyLedger satisfies the store contract for handler tests that must be
// rejected before any ledger access.
type emptyLedger struct{}

func (emptyLedger) Insert(ctx context.Context, r *model.Reservation) error { return nil }
func (emptyLedger) Get(ctx context.Context, id string) (*model.Reservation, error) {
	return nil, repository.ErrReservationNotFound
}
func (emptyLedger) Cancel(ctx context.Context, id string, at time.Time, reason string) (*model.Reservation, error) {
	return nil, repository.ErrReservationNotFound
}
func (emptyLedger) SetStatus(ctx context.Context, id string, status model.ReservationStatus, at time.Time) (*model.Reservation, error) {
	return nil, repository.ErrReservationNotFound
}
func (emptyLedger) ListActiveByResourceAndDate(ctx context.Context, resourceID string, date model.Date) ([]model.Reservation, error) {
	return nil, nil
}
func (emptyLedger) ListByUser(ctx context.Context, userID uint64, f repository.ListFilter) ([]model.Reservation, error) {
	return nil, nil
}
func (emptyLedger) ListByResource(ctx context.Context, resourceID string, date *model.Date) ([]model.Reservation, error) {
	return nil, nil
}
func (emptyLedger) ListAll(ctx context.Context, f repository.ListFilter) ([]model.Reservation, error) {
	return nil, nil
}
func (emptyLedger) MarkElapsed(ctx context.Context, today model.Date, now model.TimeOfDay) (int64, int64, error) {
	return 0, 0, nil
}

func postReservation(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/reservations", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(7))
	c.Set("username", "dana")
	c.Set("role", model.RoleMember)
	return c, rec
}

func TestCreateRequiresStartAndEndTime(t *testing.T) {
	h := NewReservationHandler(booking.NewService(emptyRegistry{}, emptyLedger{}, nil))

	// Omitting both times must be a validation error, not a midnight
	// interval that trips the operating-hours check.
	c, rec := postReservation(t, `{"resource_id":"room-1","date":"2024-06-10"}`)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "start_time and end_time are required")
	assert.NotContains(t, rec.Body.String(), "outside_operating_hours")
}

func TestCreateWithTimesReachesService(t *testing.T) {
	h := NewReservationHandler(booking.NewService(emptyRegistry{}, emptyLedger{}, nil))

	c, rec := postReservation(t,
		`{"resource_id":"room-1","date":"2024-06-10","start_time":"10:00","end_time":"11:00"}`)
	require.NoError(t, h.Create(c))

	// Validation passes; the empty registry then reports the resource
	// as unknown.
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
