package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/ayvaro/resource-reservation/internal/model"
)

// ResourceRepo is the resource registry: it owns the 'resources' table.
// The booking path only reads from it; create/update/delete are
// administrative operations.  Weekday sets and amenity lists are stored as
// comma-separated values, clock times as minutes from midnight.
type ResourceRepo struct {
	db *sql.DB
}

// NewResourceRepo returns a ResourceRepo bound to the given database.
func NewResourceRepo(db *sql.DB) *ResourceRepo { return &ResourceRepo{db: db} }

const resourceColumns = `id, name, type, description, location, building, floor, capacity,
	amenities, available_days, open_time, close_time, slot_minutes, max_booking_hours,
	requires_approval, status, created_at, updated_at`

// Create inserts a new resource.  The caller supplies the generated UUID.
func (r *ResourceRepo) Create(ctx context.Context, res *model.Resource) error {
	const q = `INSERT INTO resources
		(id, name, type, description, location, building, floor, capacity, amenities,
		 available_days, open_time, close_time, slot_minutes, max_booking_hours,
		 requires_approval, status)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q,
		res.ID, res.Name, string(res.Type), res.Description, res.Location, res.Building,
		res.Floor, res.Capacity, joinAmenities(res.Amenities), joinDays(res.AvailableDays),
		int(res.OpenTime), int(res.CloseTime), res.SlotDurationMinutes, res.MaxBookingHours,
		res.RequiresApproval, string(res.Status))
	return err
}

// Get returns the resource with the given id, or ErrResourceNotFound.
func (r *ResourceRepo) Get(ctx context.Context, id string) (*model.Resource, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = ? LIMIT 1`, id)
	res, err := scanResource(row)
	if err == sql.ErrNoRows {
		return nil, ErrResourceNotFound
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// List returns resources matching the optional type and status filters,
// ordered by name.  Empty filter strings match everything.
func (r *ResourceRepo) List(ctx context.Context, rtype, status string, limit, offset int) ([]model.Resource, error) {
	q := `SELECT ` + resourceColumns + ` FROM resources WHERE 1=1`
	args := make([]interface{}, 0, 4)
	if rtype != "" {
		q += ` AND type = ?`
		args = append(args, rtype)
	}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY name LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	return r.queryResources(ctx, q, args...)
}

// Search returns resources whose name, description or location contains
// the query string, case-insensitively.
func (r *ResourceRepo) Search(ctx context.Context, query string, limit, offset int) ([]model.Resource, error) {
	like := "%" + query + "%"
	q := `SELECT ` + resourceColumns + ` FROM resources
		WHERE name LIKE ? OR description LIKE ? OR location LIKE ?
		ORDER BY name LIMIT ? OFFSET ?`
	return r.queryResources(ctx, q, like, like, like, limit, offset)
}

// Update overwrites the mutable fields of an existing resource and stamps
// updated_at.  Returns ErrResourceNotFound when the id is unknown.
func (r *ResourceRepo) Update(ctx context.Context, res *model.Resource) error {
	const q = `UPDATE resources SET
		name=?, type=?, description=?, location=?, building=?, floor=?, capacity=?,
		amenities=?, available_days=?, open_time=?, close_time=?, slot_minutes=?,
		max_booking_hours=?, requires_approval=?, status=?, updated_at=UTC_TIMESTAMP()
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q,
		res.Name, string(res.Type), res.Description, res.Location, res.Building,
		res.Floor, res.Capacity, joinAmenities(res.Amenities), joinDays(res.AvailableDays),
		int(res.OpenTime), int(res.CloseTime), res.SlotDurationMinutes, res.MaxBookingHours,
		res.RequiresApproval, string(res.Status), res.ID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish missing row from a no-op update.
		var one int
		if scanErr := r.db.QueryRowContext(ctx, `SELECT 1 FROM resources WHERE id=?`, res.ID).Scan(&one); scanErr == sql.ErrNoRows {
			return ErrResourceNotFound
		}
	}
	return nil
}

// Delete removes a resource.  Returns ErrResourceNotFound when absent.
func (r *ResourceRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrResourceNotFound
	}
	return nil
}

func (r *ResourceRepo) queryResources(ctx context.Context, q string, args ...interface{}) ([]model.Resource, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResource(row rowScanner) (*model.Resource, error) {
	var (
		res               model.Resource
		rtype             string
		status            string
		amenities         string
		days              string
		openMin, closeMin int
		updatedAt         sql.NullTime
	)
	err := row.Scan(&res.ID, &res.Name, &rtype, &res.Description, &res.Location,
		&res.Building, &res.Floor, &res.Capacity, &amenities, &days, &openMin, &closeMin,
		&res.SlotDurationMinutes, &res.MaxBookingHours, &res.RequiresApproval,
		&status, &res.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	res.Type = model.ResourceType(rtype)
	res.Status = model.ResourceStatus(status)
	res.Amenities = splitAmenities(amenities)
	res.AvailableDays = splitDays(days)
	res.OpenTime = model.TimeOfDay(openMin)
	res.CloseTime = model.TimeOfDay(closeMin)
	if updatedAt.Valid {
		t := updatedAt.Time
		res.UpdatedAt = &t
	}
	return &res, nil
}

func joinDays(days []time.Weekday) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(int(d)))
	}
	return strings.Join(parts, ",")
}

func splitDays(s string) []time.Weekday {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 6 {
			continue
		}
		days = append(days, time.Weekday(n))
	}
	return days
}

func joinAmenities(a []string) string { return strings.Join(a, ",") }

func splitAmenities(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
