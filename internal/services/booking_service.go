package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/database"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/logging"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/services/distributedlock"
	"go.uber.org/zap"
)

const pendingMeetingLink = "Meeting link will be provided by counselor"

// Actor is the authenticated caller a booking operation runs for.
type Actor struct {
	UserID      int64
	Role        string
	CounselorID *int64
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

func (a Actor) counsels(counselorID int64) bool {
	return a.CounselorID != nil && *a.CounselorID == counselorID
}

type BookingService struct {
	bookings   *database.BookingRepository
	counselors *database.CounselorRepository
	calendar   CalendarClient
	locker     *distributedlock.Locker
	lockOpts   distributedlock.LockOptions
	logger     *logging.StandardLogger
	now        func() time.Time
}

// NewBookingService wires the booking rules. calendar may be nil for no
// sync; locker may be nil when no Redis is configured.
func NewBookingService(bookings *database.BookingRepository, counselors *database.CounselorRepository, calendar CalendarClient, locker *distributedlock.Locker, logger *logging.StandardLogger) *BookingService {
	if calendar == nil {
		calendar = NoopCalendar{}
	}
	if logger == nil {
		logger = logging.NewFromZap(nil)
	}
	return &BookingService{
		bookings:   bookings,
		counselors: counselors,
		calendar:   calendar,
		locker:     locker,
		lockOpts:   distributedlock.DefaultLockOptions(),
		logger:     logger.WithComponent("booking_service"),
		now:        time.Now,
	}
}

func (s *BookingService) Create(ctx context.Context, actor Actor, req models.CreateBookingRequest) (*models.Booking, error) {
	sessionDate, err := time.Parse(time.RFC3339, req.SessionDate)
	if err != nil {
		return nil, NewBadRequest("Invalid session date")
	}
	sessionDate = sessionDate.UTC()
	if !sessionDate.After(s.now()) {
		return nil, NewBadRequest("Session date must be in the future")
	}
	if req.Duration < models.MinBookingDuration || req.Duration > models.MaxBookingDuration {
		return nil, NewBadRequest(fmt.Sprintf("Duration must be between %d and %d minutes", models.MinBookingDuration, models.MaxBookingDuration))
	}

	exists, err := s.counselors.Exists(ctx, req.CounselorID)
	if err != nil {
		return nil, NewInternal("Failed to create booking", err)
	}
	if !exists {
		return nil, NewNotFound("Counselor not found")
	}

	var created *models.Booking
	err = s.withSlot(ctx, req.CounselorID, sessionDate, func() error {
		if err := s.checkAvailability(ctx, req.CounselorID, actor.UserID, sessionDate, 0, "Counselor is not available at this time slot"); err != nil {
			return err
		}
		var err error
		created, err = s.bookings.Create(ctx, &models.Booking{
			UserID:      actor.UserID,
			CounselorID: req.CounselorID,
			SessionDate: sessionDate,
			Duration:    req.Duration,
			Status:      models.BookingStatusPending,
			Notes:       optionalString(deref(req.Notes)),
		})
		if err != nil {
			return NewInternal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogBusinessEvent("booking_created", map[string]interface{}{
		"booking_id":   created.ID,
		"counselor_id": created.CounselorID,
		"user_id":      created.UserID,
	})
	return s.attachCalendarEvent(ctx, created), nil
}

// attachCalendarEvent creates the calendar entry for a new booking. The
// booking stands whether or not the calendar call succeeds.
func (s *BookingService) attachCalendarEvent(ctx context.Context, b *models.Booking) *models.Booking {
	event, err := s.calendar.CreateEvent(ctx, sessionEvent(b))
	if err != nil {
		s.logger.WithError(err).Warn("failed to create calendar event", zap.Int64("booking_id", b.ID))
		return b
	}
	if event == nil || event.ID == "" {
		return b
	}

	link := event.Link
	if link == "" {
		link = fmt.Sprintf(calendarEventLinkFormat, event.ID)
	}
	updated, err := s.bookings.Update(ctx, b.ID, models.BookingUpdate{GoogleEventID: &event.ID, MeetingLink: &link})
	if err != nil {
		s.logger.WithError(err).Warn("failed to store calendar event on booking", zap.Int64("booking_id", b.ID))
		return b
	}
	return updated
}

func (s *BookingService) Update(ctx context.Context, actor Actor, id int64, req models.UpdateBookingRequest) (*models.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && booking.UserID != actor.UserID {
		return nil, NewForbidden("You can only update your own bookings")
	}

	upd := models.BookingUpdate{Notes: req.Notes, MeetingLink: req.MeetingLink}
	if req.Duration != nil {
		if *req.Duration < models.MinBookingDuration || *req.Duration > models.MaxBookingDuration {
			return nil, NewBadRequest(fmt.Sprintf("Duration must be between %d and %d minutes", models.MinBookingDuration, models.MaxBookingDuration))
		}
		upd.Duration = req.Duration
	}

	sessionDate := booking.SessionDate
	if req.SessionDate != nil {
		parsed, err := time.Parse(time.RFC3339, *req.SessionDate)
		if err != nil {
			return nil, NewBadRequest("Invalid session date")
		}
		sessionDate = parsed.UTC()
		if !sessionDate.After(s.now()) {
			return nil, NewBadRequest("New session date must be in the future")
		}
		upd.SessionDate = &sessionDate
	}

	var updated *models.Booking
	err = s.withSlot(ctx, booking.CounselorID, sessionDate, func() error {
		if upd.SessionDate != nil {
			if err := s.checkAvailability(ctx, booking.CounselorID, booking.UserID, sessionDate, id, "Counselor is not available at the new time slot"); err != nil {
				return err
			}
		}
		if upd.Duration != nil {
			end := sessionDate.Add(time.Duration(*upd.Duration) * time.Minute)
			overlapping, err := s.bookings.FindOverlapping(ctx, booking.CounselorID, sessionDate, end, id)
			if err != nil {
				return NewInternal("Failed to update booking", err)
			}
			if len(overlapping) > 0 {
				return NewConflict("New duration conflicts with existing bookings")
			}
		}

		var err error
		updated, err = s.bookings.Update(ctx, id, upd)
		if err != nil {
			if database.IsNotFound(err) {
				return NewNotFound("Booking not found")
			}
			return NewInternal("Failed to update booking", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if (upd.SessionDate != nil || upd.Duration != nil) && updated.GoogleEventID != nil {
		if err := s.calendar.UpdateEvent(ctx, *updated.GoogleEventID, sessionEvent(updated)); err != nil {
			s.logger.WithError(err).Warn("failed to update calendar event", zap.Int64("booking_id", id))
		}
	}
	return updated, nil
}

// Confirm moves a pending booking to confirmed. Only the assigned counselor
// or an admin may do it.
func (s *BookingService) Confirm(ctx context.Context, actor Actor, id int64) (*models.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.counsels(booking.CounselorID) {
		return nil, NewForbidden("Only the assigned counselor can confirm this booking")
	}
	if booking.Status != models.BookingStatusPending {
		return nil, NewBadRequest("Only pending bookings can be confirmed")
	}

	link := pendingMeetingLink
	switch {
	case booking.MeetingLink != nil && *booking.MeetingLink != "":
		link = *booking.MeetingLink
	case booking.GoogleEventID != nil:
		link = fmt.Sprintf(calendarEventLinkFormat, *booking.GoogleEventID)
	}

	status := models.BookingStatusConfirmed
	return s.update(ctx, id, models.BookingUpdate{Status: &status, MeetingLink: &link})
}

func (s *BookingService) Complete(ctx context.Context, actor Actor, id int64) (*models.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.counsels(booking.CounselorID) {
		return nil, NewForbidden("Only the assigned counselor can complete this booking")
	}
	if booking.Status != models.BookingStatusConfirmed {
		return nil, NewBadRequest("Only confirmed bookings can be completed")
	}

	status := models.BookingStatusCompleted
	return s.update(ctx, id, models.BookingUpdate{Status: &status})
}

// Cancel frees the slot and drops the calendar entry.
func (s *BookingService) Cancel(ctx context.Context, actor Actor, id int64) (*models.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && booking.UserID != actor.UserID && !actor.counsels(booking.CounselorID) {
		return nil, NewForbidden("You don't have permission to cancel this booking")
	}
	if booking.Status == models.BookingStatusCompleted {
		return nil, NewBadRequest("Completed bookings cannot be cancelled")
	}
	if booking.Status == models.BookingStatusCancelled {
		return booking, nil
	}

	s.dropCalendarEvent(ctx, booking)
	status := models.BookingStatusCancelled
	return s.update(ctx, id, models.BookingUpdate{Status: &status, ClearGoogleEvent: true})
}

func (s *BookingService) Delete(ctx context.Context, actor Actor, id int64) error {
	booking, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && booking.UserID != actor.UserID {
		return NewForbidden("You can only delete your own bookings")
	}
	if booking.Status == models.BookingStatusConfirmed || booking.Status == models.BookingStatusCompleted {
		return NewBadRequest("Cannot delete confirmed or completed bookings")
	}

	s.dropCalendarEvent(ctx, booking)
	if err := s.bookings.Delete(ctx, id); err != nil {
		if database.IsNotFound(err) {
			return NewNotFound("Booking not found")
		}
		return NewInternal("Failed to delete booking", err)
	}
	return nil
}

// GetByID returns a booking to its owner, its counselor or an admin.
func (s *BookingService) GetByID(ctx context.Context, actor Actor, id int64) (*models.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && booking.UserID != actor.UserID && !actor.counsels(booking.CounselorID) {
		return nil, NewForbidden("You can only view your own bookings")
	}
	return booking, nil
}

// List pages through bookings. Admins see everything the filter allows;
// counselors may list their own sessions; everyone else sees their own.
func (s *BookingService) List(ctx context.Context, actor Actor, page models.Page, filter models.BookingFilter) ([]models.Booking, models.Pagination, error) {
	page = page.Normalize()

	lf := database.BookingListFilter{
		Status: filter.Status,
		Search: strings.TrimSpace(filter.Search),
	}
	if filter.UserID != nil {
		lf.UserID = *filter.UserID
	}
	if filter.CounselorID != nil {
		lf.CounselorID = *filter.CounselorID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, models.Pagination{}, NewBadRequest("Invalid booking status")
	}
	for _, bound := range []struct {
		raw  string
		dest **time.Time
	}{{filter.StartDate, &lf.StartDate}, {filter.EndDate, &lf.EndDate}} {
		if bound.raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, bound.raw)
		if err != nil {
			return nil, models.Pagination{}, NewBadRequest("Invalid date filter")
		}
		t = t.UTC()
		*bound.dest = &t
	}

	if !actor.IsAdmin() {
		if lf.CounselorID > 0 && actor.counsels(lf.CounselorID) {
			lf.UserID = 0
		} else {
			lf.UserID = actor.UserID
		}
	}

	bookings, total, err := s.bookings.List(ctx, page, lf)
	if err != nil {
		return nil, models.Pagination{}, NewInternal("Failed to fetch bookings", err)
	}
	return bookings, models.NewPagination(page, total), nil
}

// Upcoming lists pending and confirmed sessions from now on. Counselors see
// the sessions they host, other users the ones they booked. Admins may
// narrow by either id or see everything.
func (s *BookingService) Upcoming(ctx context.Context, actor Actor, counselorID, userID int64) ([]models.Booking, error) {
	if !actor.IsAdmin() {
		counselorID, userID = 0, actor.UserID
		if actor.CounselorID != nil {
			counselorID, userID = *actor.CounselorID, 0
		}
	}

	bookings, err := s.bookings.Upcoming(ctx, counselorID, userID)
	if err != nil {
		return nil, NewInternal("Failed to fetch upcoming bookings", err)
	}
	return bookings, nil
}

// checkAvailability rejects a start time already held by the counselor or
// by the user. excludeID lets a booking keep its own slot.
func (s *BookingService) checkAvailability(ctx context.Context, counselorID, userID int64, sessionDate time.Time, excludeID int64, counselorBusy string) error {
	if _, err := s.bookings.FindByCounselorAndDate(ctx, counselorID, sessionDate, excludeID); err == nil {
		return NewConflict(counselorBusy)
	} else if !database.IsNotFound(err) {
		return NewInternal("Failed to check availability", err)
	}

	if _, err := s.bookings.FindByUserAndDate(ctx, userID, sessionDate, excludeID); err == nil {
		return NewConflict("You already have a booking at this time")
	} else if !database.IsNotFound(err) {
		return NewInternal("Failed to check availability", err)
	}
	return nil
}

// withSlot serializes check-then-write sequences on one counselor start time
// across instances.
func (s *BookingService) withSlot(ctx context.Context, counselorID int64, sessionDate time.Time, fn func() error) error {
	err := s.locker.WithLock(ctx, distributedlock.BookingSlotKey(counselorID, sessionDate), s.lockOpts, fn)
	if errors.Is(err, distributedlock.ErrLockHeld) {
		return NewConflict("This time slot is being booked, please try again")
	}
	var appErr *AppError
	if err != nil && !errors.As(err, &appErr) {
		return NewInternal("Failed to reserve time slot", err)
	}
	return err
}

func (s *BookingService) dropCalendarEvent(ctx context.Context, b *models.Booking) {
	if b.GoogleEventID == nil || *b.GoogleEventID == "" {
		return
	}
	if err := s.calendar.DeleteEvent(ctx, *b.GoogleEventID); err != nil {
		s.logger.WithError(err).Warn("failed to delete calendar event", zap.Int64("booking_id", b.ID))
	}
}

func (s *BookingService) load(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, NewNotFound("Booking not found")
		}
		return nil, NewInternal("Failed to fetch booking", err)
	}
	return booking, nil
}

func (s *BookingService) update(ctx context.Context, id int64, upd models.BookingUpdate) (*models.Booking, error) {
	updated, err := s.bookings.Update(ctx, id, upd)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, NewNotFound("Booking not found")
		}
		return nil, NewInternal("Failed to update booking", err)
	}
	return updated, nil
}

func sessionEvent(b *models.Booking) SessionEvent {
	return SessionEvent{
		BookingID: b.ID,
		Start:     b.SessionDate,
		Duration:  b.Duration,
		Notes:     deref(b.Notes),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
