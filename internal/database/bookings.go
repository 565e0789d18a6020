package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorental/internal/models"
)

// overlapPredicate keeps the explicit three-case formulation: an existing
// reservation that straddles the candidate range, one fully inside it,
// and one fully containing it. Case 1 alone is sufficient; the other two
// are retained deliberately and proven equivalent by test.
const overlapPredicate = `(
        (start_date <= ? AND end_date >= ?)
        OR (start_date >= ? AND end_date <= ?)
        OR (start_date <= ? AND end_date >= ?)
    )`

// holdingStates restricts overlap checks to reservations that still hold
// the car. Exclusion happens here at the query boundary, not client-side,
// so a row removed by the reaper can never win a race with a reader.
const holdingStates = `payment_status IN ('pending', 'paid')`

func overlapArgs(start, end time.Time) []any {
	s := start.Format(models.DateOnly)
	e := end.Format(models.DateOnly)
	return []any{e, s, s, e, s, e}
}

const reservationColumns = `id, car_id, car_name, user_id, start_date, end_date,
        customer_name, customer_email, customer_phone,
        amount_rent, amount_discount, amount_tax, amount_total,
        days_of_rent, rent_per_day,
        payment_id, payment_status, payment_method,
        additional_notes, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var startStr, endStr string
	err := row.Scan(
		&b.ID, &b.CarID, &b.CarName, &b.UserID, &startStr, &endStr,
		&b.Customer.Name, &b.Customer.Email, &b.Customer.Phone,
		&b.Amount.Rent, &b.Amount.Discount, &b.Amount.Tax, &b.Amount.Total,
		&b.DaysOfRent, &b.RentPerDay,
		&b.PaymentInfo.ID, &b.PaymentInfo.Status, &b.PaymentInfo.Method,
		&b.AdditionalNotes, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}

	if b.StartDate, err = time.Parse(models.DateOnly, startStr); err != nil {
		return nil, fmt.Errorf("failed to parse start date %s: %w", startStr, err)
	}
	if b.EndDate, err = time.Parse(models.DateOnly, endStr); err != nil {
		return nil, fmt.Errorf("failed to parse end date %s: %w", endStr, err)
	}
	return &b, nil
}

// OverlappingReservations returns the holding reservations for a car
// whose date range overlaps [start, end]. Used as the booking-time
// pre-check.
func (db *DB) OverlappingReservations(ctx context.Context, carID int64, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + reservationColumns + ` FROM bookings
              WHERE car_id = ? AND ` + holdingStates + ` AND ` + overlapPredicate + `
              ORDER BY start_date ASC`

	args := append([]any{carID}, overlapArgs(start, end)...)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping reservations: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ConflictingCarIDs computes, in a single aggregate pass, the set of cars
// with any holding reservation overlapping the window. Used for bulk
// exclusion during catalog search.
func (db *DB) ConflictingCarIDs(ctx context.Context, start, end time.Time) ([]int64, error) {
	query := `SELECT DISTINCT car_id FROM bookings
              WHERE ` + holdingStates + ` AND ` + overlapPredicate

	rows, err := db.QueryContext(ctx, query, overlapArgs(start, end)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conflicting cars: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func insertReservation(ctx context.Context, ex interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, b *models.Booking) error {
	query := `INSERT INTO bookings (
                car_id, car_name, user_id, start_date, end_date,
                customer_name, customer_email, customer_phone,
                amount_rent, amount_discount, amount_tax, amount_total,
                days_of_rent, rent_per_day,
                payment_id, payment_status, payment_method,
                additional_notes, created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC()
	if b.PaymentInfo.Status == "" {
		b.PaymentInfo.Status = models.PaymentStatusPending
	}

	result, err := ex.ExecContext(ctx, query,
		b.CarID,
		b.CarName,
		b.UserID,
		b.StartDate.Format(models.DateOnly),
		b.EndDate.Format(models.DateOnly),
		b.Customer.Name,
		b.Customer.Email,
		b.Customer.Phone,
		b.Amount.Rent,
		b.Amount.Discount,
		b.Amount.Tax,
		b.Amount.Total,
		b.DaysOfRent,
		b.RentPerDay,
		b.PaymentInfo.ID,
		b.PaymentInfo.Status,
		b.PaymentInfo.Method,
		b.AdditionalNotes,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Version = 1
	return nil
}

// CreateReservation inserts without an availability check. Callers that
// care about double-booking use CreateReservationTx.
func (db *DB) CreateReservation(ctx context.Context, b *models.Booking) error {
	return insertReservation(ctx, db.DB, b)
}

// CreateReservationTx closes the check-then-insert race: the overlap
// predicate is re-validated inside the write transaction, so of two
// concurrent requests for overlapping dates exactly one commits and the
// other surfaces ErrNotAvailable.
func (db *DB) CreateReservationTx(ctx context.Context, b *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	queryCount := `SELECT COUNT(*) FROM bookings
                   WHERE car_id = ? AND ` + holdingStates + ` AND ` + overlapPredicate
	args := append([]any{b.CarID}, overlapArgs(b.StartDate, b.EndDate)...)

	var conflicts int
	if err := tx.QueryRowContext(ctx, queryCount, args...).Scan(&conflicts); err != nil {
		return fmt.Errorf("failed to check availability in tx: %w", err)
	}
	if conflicts > 0 {
		return ErrNotAvailable
	}

	if err := insertReservation(ctx, tx, b); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + reservationColumns + ` FROM bookings WHERE id = ?`
	b, err := scanReservation(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return b, nil
}

// UpdateReservationWithVersion rewrites the mutable fields (notes and
// payment info) guarded by optimistic locking.
func (db *DB) UpdateReservationWithVersion(ctx context.Context, id, fromVersion int64, notes string, pay models.PaymentInfo) error {
	query := `UPDATE bookings
              SET additional_notes = ?, payment_id = ?, payment_status = ?, payment_method = ?,
                  version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query,
		notes, pay.ID, pay.Status, pay.Method, time.Now().UTC(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// ApplyPaymentUpdate is the webhook write path: forward-only, keyed by
// the reservation id carried in the notification. Returns applied=false
// without error when the reservation is already paid, which makes replay
// deliveries a no-op.
func (db *DB) ApplyPaymentUpdate(ctx context.Context, id int64, paymentID, status, method string) (bool, error) {
	query := `UPDATE bookings
              SET payment_id = ?, payment_status = ?, payment_method = ?,
                  version = version + 1, updated_at = ?
              WHERE id = ? AND payment_status <> ?`
	result, err := db.ExecContext(ctx, query,
		paymentID, status, method, time.Now().UTC(), id, models.PaymentStatusPaid)
	if err != nil {
		return false, fmt.Errorf("failed to apply payment update: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		return true, nil
	}

	// Nothing matched: either the reservation does not exist or it is
	// already paid. Only the former is an error.
	var exists int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check reservation existence: %w", err)
	}
	if exists == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

func (db *DB) DeleteReservation(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ReapStalePending deletes pending reservations created before the
// cutoff. The status condition lives in the DELETE itself, so a
// reservation that turned paid between a sweep's query and its delete is
// never removed, and concurrent sweeps are idempotent.
func (db *DB) ReapStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM bookings WHERE payment_status = ? AND created_at < ?`
	result, err := db.ExecContext(ctx, query, models.PaymentStatusPending, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to reap stale reservations: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

func (db *DB) reservationPage(ctx context.Context, where string, args []any, page, perPage int) ([]*models.Booking, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM bookings ` + where
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	if page < 1 {
		page = 1
	}
	offset := perPage * (page - 1)

	query := `SELECT ` + reservationColumns + ` FROM bookings ` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, perPage, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanReservation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan reservation: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, total, rows.Err()
}

// UserReservations returns one page of a user's reservations plus the
// post-filter total count.
func (db *DB) UserReservations(ctx context.Context, userID int64, page, perPage int) ([]*models.Booking, int, error) {
	return db.reservationPage(ctx, `WHERE user_id = ?`, []any{userID}, page, perPage)
}

// AllReservations returns one page across all users (back office).
func (db *DB) AllReservations(ctx context.Context, page, perPage int) ([]*models.Booking, int, error) {
	return db.reservationPage(ctx, ``, nil, page, perPage)
}

// UserReservationSummary aggregates a user's reservations regardless of
// pagination.
func (db *DB) UserReservationSummary(ctx context.Context, userID int64) (models.BookingSummary, error) {
	query := `SELECT COALESCE(SUM(amount_total), 0), COUNT(*),
                     COALESCE(SUM(CASE WHEN payment_status <> 'paid' THEN 1 ELSE 0 END), 0)
              FROM bookings WHERE user_id = ?`

	var s models.BookingSummary
	err := db.QueryRowContext(ctx, query, userID).Scan(&s.TotalAmount, &s.TotalBookings, &s.TotalUnpaidBookings)
	if err != nil {
		return models.BookingSummary{}, fmt.Errorf("failed to summarize reservations: %w", err)
	}
	return s, nil
}

// BookedDates expands the holding reservations of a car into the flat
// list of occupied calendar days, for date-picker clients.
func (db *DB) BookedDates(ctx context.Context, carID int64) ([]time.Time, error) {
	query := `SELECT start_date, end_date FROM bookings
              WHERE car_id = ? AND ` + holdingStates + ` ORDER BY start_date ASC`
	rows, err := db.QueryContext(ctx, query, carID)
	if err != nil {
		return nil, fmt.Errorf("failed to query booked dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var startStr, endStr string
		if err := rows.Scan(&startStr, &endStr); err != nil {
			return nil, err
		}
		start, err := time.Parse(models.DateOnly, startStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse start date %s: %w", startStr, err)
		}
		end, err := time.Parse(models.DateOnly, endStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse end date %s: %w", endStr, err)
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			dates = append(dates, d)
		}
	}
	return dates, rows.Err()
}
