package database

import (
	"context"
	"fmt"
	"time"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
)

const bookingSelect = `
	SELECT b.id, b.userid, b.counselorid, b.sessiondate, b.duration, b.status, b.notes,
		b.meetinglink, b.googleeventid, b.createdat, b.updatedat,
		u.id, u.firstname, u.lastname, u.email,
		c.id, c.fullname, c.title, c.avatarurl
	FROM bookings b
	JOIN users u ON u.id = b.userid
	JOIN counselors c ON c.id = b.counselorid`

// Cancelled bookings never hold a slot.
const bookingHoldsSlot = `b.status <> 'cancelled'`

type BookingRepository struct {
	db      DBPool
	dialect Dialect
}

func NewBookingRepository(db DBPool) *BookingRepository {
	return &BookingRepository{db: db, dialect: DialectOf(db)}
}

func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	status := b.Status
	if status == "" {
		status = models.BookingStatusPending
	}

	query := fmt.Sprintf(`
		INSERT INTO bookings (userid, counselorid, sessiondate, duration, status, notes, meetinglink, googleeventid, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, %s, %s)
		RETURNING id`, r.dialect.Now(), r.dialect.Now())

	var id int64
	err := r.db.QueryRow(ctx, query,
		b.UserID, b.CounselorID, r.dialect.Time(b.SessionDate), b.Duration, string(status),
		b.Notes, b.MeetingLink, b.GoogleEventID,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", translateError(err))
	}
	return r.GetByID(ctx, id)
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, bookingSelect+` WHERE b.id = $1`, id))
	if err != nil {
		return nil, translateError(err)
	}
	return b, nil
}

// FindByCounselorAndDate returns a live booking of the counselor starting
// exactly at sessionDate, ignoring excludeID (0 excludes nothing).
func (r *BookingRepository) FindByCounselorAndDate(ctx context.Context, counselorID int64, sessionDate time.Time, excludeID int64) (*models.Booking, error) {
	query := bookingSelect + ` WHERE b.counselorid = $1 AND b.sessiondate = $2 AND b.id <> $3 AND ` + bookingHoldsSlot + ` LIMIT 1`
	b, err := scanBooking(r.db.QueryRow(ctx, query, counselorID, r.dialect.Time(sessionDate), excludeID))
	if err != nil {
		return nil, translateError(err)
	}
	return b, nil
}

// FindByUserAndDate is FindByCounselorAndDate for the booking user.
func (r *BookingRepository) FindByUserAndDate(ctx context.Context, userID int64, sessionDate time.Time, excludeID int64) (*models.Booking, error) {
	query := bookingSelect + ` WHERE b.userid = $1 AND b.sessiondate = $2 AND b.id <> $3 AND ` + bookingHoldsSlot + ` LIMIT 1`
	b, err := scanBooking(r.db.QueryRow(ctx, query, userID, r.dialect.Time(sessionDate), excludeID))
	if err != nil {
		return nil, translateError(err)
	}
	return b, nil
}

// FindOverlapping returns the counselor's live bookings whose
// [sessionDate, sessionDate+duration) intersects [start, end).
func (r *BookingRepository) FindOverlapping(ctx context.Context, counselorID int64, start, end time.Time, excludeID int64) ([]models.Booking, error) {
	query := bookingSelect + ` WHERE b.counselorid = $1 AND b.sessiondate < $2 AND ` +
		r.dialect.AddMinutes("b.sessiondate", "b.duration") + ` > $3 AND b.id <> $4 AND ` + bookingHoldsSlot +
		` ORDER BY b.sessiondate ASC`
	return r.queryBookings(ctx, query, counselorID, r.dialect.Time(end), r.dialect.Time(start), excludeID)
}

// Upcoming lists pending and confirmed bookings from now on, soonest first.
// Zero ids do not filter.
func (r *BookingRepository) Upcoming(ctx context.Context, counselorID, userID int64) ([]models.Booking, error) {
	var q queryArgs
	conds := []string{
		"b.sessiondate >= " + r.dialect.Now(),
		"b.status IN ('pending', 'confirmed')",
	}
	if counselorID > 0 {
		conds = append(conds, "b.counselorid = "+q.next(counselorID))
	}
	if userID > 0 {
		conds = append(conds, "b.userid = "+q.next(userID))
	}
	return r.queryBookings(ctx, bookingSelect+whereSQL(conds)+` ORDER BY b.sessiondate ASC`, q.args...)
}

// BookingListFilter is the parsed form of models.BookingFilter.
type BookingListFilter struct {
	UserID      int64
	CounselorID int64
	Status      models.BookingStatus
	StartDate   *time.Time
	EndDate     *time.Time
	Search      string
}

func (r *BookingRepository) List(ctx context.Context, page models.Page, filter BookingListFilter) ([]models.Booking, int64, error) {
	var q queryArgs
	var conds []string
	if filter.UserID > 0 {
		conds = append(conds, "b.userid = "+q.next(filter.UserID))
	}
	if filter.CounselorID > 0 {
		conds = append(conds, "b.counselorid = "+q.next(filter.CounselorID))
	}
	if filter.Status != "" {
		conds = append(conds, "b.status = "+q.next(string(filter.Status)))
	}
	if filter.StartDate != nil {
		conds = append(conds, "b.sessiondate >= "+q.next(r.dialect.Time(*filter.StartDate)))
	}
	if filter.EndDate != nil {
		conds = append(conds, "b.sessiondate <= "+q.next(r.dialect.Time(*filter.EndDate)))
	}
	if filter.Search != "" {
		p := q.next("%" + filter.Search + "%")
		conds = append(conds, "("+
			r.dialect.ContainsFold("u.firstname", p)+" OR "+
			r.dialect.ContainsFold("u.lastname", p)+" OR "+
			r.dialect.ContainsFold("c.fullname", p)+" OR "+
			r.dialect.ContainsFold("b.notes", p)+")")
	}
	where := whereSQL(conds)

	var total int64
	countQuery := `SELECT COUNT(*) FROM bookings b JOIN users u ON u.id = b.userid JOIN counselors c ON c.id = b.counselorid` + where
	if err := r.db.QueryRow(ctx, countQuery, q.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	query := bookingSelect + where + ` ORDER BY b.sessiondate DESC, b.createdat DESC LIMIT ` + q.next(page.Limit) + ` OFFSET ` + q.next(page.Offset())
	bookings, err := r.queryBookings(ctx, query, q.args...)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (r *BookingRepository) Update(ctx context.Context, id int64, upd models.BookingUpdate) (*models.Booking, error) {
	var set setClause
	if upd.SessionDate != nil {
		set.add("sessiondate", r.dialect.Time(*upd.SessionDate))
	}
	if upd.Duration != nil {
		set.add("duration", *upd.Duration)
	}
	if upd.Status != nil {
		set.add("status", string(*upd.Status))
	}
	if upd.Notes != nil {
		set.add("notes", *upd.Notes)
	}
	if upd.MeetingLink != nil {
		set.add("meetinglink", *upd.MeetingLink)
	}
	if upd.ClearGoogleEvent {
		set.raw("googleeventid = NULL")
	} else if upd.GoogleEventID != nil {
		set.add("googleeventid", *upd.GoogleEventID)
	}
	set.raw("updatedat = " + r.dialect.Now())

	result, err := r.db.Exec(ctx, `UPDATE bookings SET `+set.String()+` WHERE id = `+set.next(id), set.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", translateError(err))
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *BookingRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func scanBooking(row Row) (*models.Booking, error) {
	var b models.Booking
	var status string
	user := &models.BookingUser{}
	counselor := &models.CounselorSummary{}

	err := row.Scan(
		&b.ID, &b.UserID, &b.CounselorID, &b.SessionDate, &b.Duration, &status, &b.Notes,
		&b.MeetingLink, &b.GoogleEventID, &b.CreatedAt, &b.UpdatedAt,
		&user.ID, &user.FirstName, &user.LastName, &user.Email,
		&counselor.ID, &counselor.FullName, &counselor.Title, &counselor.AvatarURL,
	)
	if err != nil {
		return nil, err
	}
	b.Status = models.BookingStatus(status)
	b.User = user
	b.Counselor = counselor
	return &b, nil
}
