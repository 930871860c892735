package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ayvaro/resource-reservation/internal/model"
)

// ListFilter narrows reservation listings.  The zero value means no
// filtering: any status, any date.
type ListFilter struct {
	Status       model.ReservationStatus // empty = any status
	UpcomingFrom model.Date              // zero = include past dates
}

// ReservationRepo is the reservation ledger: the single source of truth for
// conflict state.  It owns the 'reservations' table.  Dates are stored as
// 'YYYY-MM-DD' strings and clock times as minutes from midnight, so the
// overlap predicate and the elapsed sweep are plain integer and string
// comparisons with no time zone involved.
//
// The ledger's safety invariant: no two active (pending/confirmed)
// reservations for the same resource may overlap on the same date.  Insert
// enforces it by re-running the overlap predicate with SELECT ... FOR
// UPDATE inside the same transaction as the INSERT, so a check-then-insert
// race between two writers on one resource cannot commit both.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle for health checks.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `id, resource_id, resource_name, user_id, username, date,
	start_min, end_min, purpose, notes, status, created_at, updated_at,
	cancelled_at, cancellation_reason`

// activeStatuses is inlined into queries that must only see reservations
// that still occupy their slot.
const activeStatuses = `('pending','confirmed')`

// Insert appends a new reservation.  The overlap check and the insert run
// in one transaction: candidate conflicting rows are locked FOR UPDATE, so
// a concurrent insert on the same resource blocks until this transaction
// finishes and then sees the new row.  When an active overlapping
// reservation exists the insert fails with *OverlapError naming it.
func (r *ReservationRepo) Insert(ctx context.Context, res *model.Reservation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var conflictID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM reservations
		 WHERE resource_id = ? AND date = ? AND status IN `+activeStatuses+`
		   AND start_min < ? AND end_min > ?
		 ORDER BY start_min, seq LIMIT 1 FOR UPDATE`,
		res.ResourceID, res.Date.String(), int(res.EndTime), int(res.StartTime),
	).Scan(&conflictID)
	if err == nil {
		return &OverlapError{ConflictingID: conflictID}
	}
	if err != sql.ErrNoRows {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reservations
		 (id, resource_id, resource_name, user_id, username, date, start_min, end_min,
		  purpose, notes, status, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		res.ID, res.ResourceID, res.ResourceName, res.UserID, res.Username,
		res.Date.String(), int(res.StartTime), int(res.EndTime),
		res.Purpose, res.Notes, string(res.Status), res.CreatedAt)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Get returns the reservation with the given id, or ErrReservationNotFound.
func (r *ReservationRepo) Get(ctx context.Context, id string) (*model.Reservation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ? LIMIT 1`, id)
	res, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Cancel transitions a reservation to cancelled, recording the timestamp
// and reason.  The status check and the update share one transaction with
// the row locked, so a concurrent cancel or sweep cannot interleave: the
// loser sees the terminal state and fails with ErrAlreadyTerminal, leaving
// cancelled_at untouched.
func (r *ReservationRepo) Cancel(ctx context.Context, id string, at time.Time, reason string) (*model.Reservation, error) {
	return r.transition(ctx, id, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE reservations
			 SET status='cancelled', cancelled_at=?, cancellation_reason=?, updated_at=UTC_TIMESTAMP()
			 WHERE id = ?`,
			at, nullIfEmpty(reason), id)
		return err
	})
}

// SetStatus moves an active reservation to the given terminal status
// (completed or no_show).  Same locking discipline as Cancel.
func (r *ReservationRepo) SetStatus(ctx context.Context, id string, status model.ReservationStatus, at time.Time) (*model.Reservation, error) {
	return r.transition(ctx, id, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE reservations SET status=?, updated_at=? WHERE id = ?`,
			string(status), at, id)
		return err
	})
}

// transition locks the row, verifies it is still active, applies the
// caller's update and returns the final record.
func (r *ReservationRepo) transition(ctx context.Context, id string, update func(tx *sql.Tx) error) (*model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM reservations WHERE id = ? FOR UPDATE`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	if model.ReservationStatus(status).Terminal() {
		return nil, ErrAlreadyTerminal
	}

	if err := update(tx); err != nil {
		return nil, err
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ? LIMIT 1`, id)
	res, err := scanReservation(row)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}

// ListActiveByResourceAndDate returns the active reservations for a
// resource on one date, ordered by start time with insertion order as the
// tiebreak.  This is the read the availability engine consumes.
func (r *ReservationRepo) ListActiveByResourceAndDate(ctx context.Context, resourceID string, date model.Date) ([]model.Reservation, error) {
	return r.queryReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE resource_id = ? AND date = ? AND status IN `+activeStatuses+`
		 ORDER BY start_min, seq`,
		resourceID, date.String())
}

// ListByUser returns a user's reservations, optionally filtered by status
// and restricted to dates on or after f.UpcomingFrom.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64, f ListFilter) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = ?`
	args := []interface{}{userID}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if !f.UpcomingFrom.IsZero() {
		q += ` AND date >= ?`
		args = append(args, f.UpcomingFrom.String())
	}
	q += ` ORDER BY date, start_min`
	return r.queryReservations(ctx, q, args...)
}

// ListByResource returns all reservations for a resource, optionally
// narrowed to one date, in chronological order.
func (r *ReservationRepo) ListByResource(ctx context.Context, resourceID string, date *model.Date) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE resource_id = ?`
	args := []interface{}{resourceID}
	if date != nil {
		q += ` AND date = ?`
		args = append(args, date.String())
	}
	q += ` ORDER BY date, start_min, seq`
	return r.queryReservations(ctx, q, args...)
}

// ListAll returns every reservation matching the filter, newest dates
// first.  Used by the admin listing.
func (r *ReservationRepo) ListAll(ctx context.Context, f ListFilter) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE 1=1`
	args := make([]interface{}, 0, 2)
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if !f.UpcomingFrom.IsZero() {
		q += ` AND date >= ?`
		args = append(args, f.UpcomingFrom.String())
	}
	q += ` ORDER BY date DESC, start_min`
	return r.queryReservations(ctx, q, args...)
}

// MarkElapsed finalises reservations whose end instant has passed:
// confirmed ones become completed and pending ones become no_show.  The
// string date comparison is safe because dates are stored as YYYY-MM-DD.
func (r *ReservationRepo) MarkElapsed(ctx context.Context, today model.Date, now model.TimeOfDay) (completed, noShows int64, err error) {
	day := today.String()
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET status='completed', updated_at=UTC_TIMESTAMP()
		 WHERE status='confirmed' AND (date < ? OR (date = ? AND end_min <= ?))`,
		day, day, int(now))
	if err != nil {
		return 0, 0, err
	}
	completed, _ = res.RowsAffected()

	res, err = r.db.ExecContext(ctx,
		`UPDATE reservations SET status='no_show', updated_at=UTC_TIMESTAMP()
		 WHERE status='pending' AND (date < ? OR (date = ? AND end_min <= ?))`,
		day, day, int(now))
	if err != nil {
		return completed, 0, err
	}
	noShows, _ = res.RowsAffected()
	return completed, noShows, nil
}

func (r *ReservationRepo) queryReservations(ctx context.Context, q string, args ...interface{}) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var (
		res          model.Reservation
		date         string
		startMin     int
		endMin       int
		status       string
		updatedAt    sql.NullTime
		cancelledAt  sql.NullTime
		cancelReason sql.NullString
	)
	err := row.Scan(&res.ID, &res.ResourceID, &res.ResourceName, &res.UserID,
		&res.Username, &date, &startMin, &endMin, &res.Purpose, &res.Notes,
		&status, &res.CreatedAt, &updatedAt, &cancelledAt, &cancelReason)
	if err != nil {
		return nil, err
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return nil, err
	}
	res.Date = d
	res.StartTime = model.TimeOfDay(startMin)
	res.EndTime = model.TimeOfDay(endMin)
	res.Status = model.ReservationStatus(status)
	if updatedAt.Valid {
		t := updatedAt.Time
		res.UpdatedAt = &t
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		res.CancelledAt = &t
	}
	if cancelReason.Valid {
		res.CancellationReason = cancelReason.String
	}
	return &res, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
