package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"fleetbook/internal/catalog"
	reservationserrors "fleetbook/internal/reservations/errors"
	"fleetbook/internal/reservations/events"
	"fleetbook/internal/reservations/repository"
	"fleetbook/internal/reservations/validator"
	"fleetbook/pkg/config"
	apperrors "fleetbook/pkg/errors"
	"fleetbook/pkg/model"
	"fleetbook/pkg/money"
)

// Loyalty discount tiers, by number of live reservations the user holds.
const (
	discountTierGold   = 10
	discountTierSilver = 5

	discountPercentGold   = 10
	discountPercentSilver = 5
)

type ReservationService interface {
	Create(ctx context.Context, requester model.Requester, req *model.ReservationRequest) (*model.Reservation, error)
	Cancel(ctx context.Context, requester model.Requester, id string) error
	HistoryForUser(ctx context.Context, userID string) ([]model.ReservationHistoryEntry, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, int64, error)
	UpcomingForCar(ctx context.Context, carID string) ([]model.ReservationPeriod, error)
	DiscountForUser(ctx context.Context, userID string) (percent int, reservations int64, err error)
}

type reservationService struct {
	repo      repository.ReservationRepository
	lockRepo  repository.CarLockRepository
	auditRepo repository.AuditLogRepository
	carRepo   catalog.CarRepository
	validator *validator.ReservationValidator
	publisher *events.Publisher
	cfg       *config.Config
}

func NewReservationService(
	repo repository.ReservationRepository,
	lockRepo repository.CarLockRepository,
	auditRepo repository.AuditLogRepository,
	carRepo catalog.CarRepository,
	validator *validator.ReservationValidator,
	publisher *events.Publisher,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:      repo,
		lockRepo:  lockRepo,
		auditRepo: auditRepo,
		carRepo:   carRepo,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Create books a car for the requester. Checks run in a fixed order so a
// request failing several of them always gets the same answer: interval
// shape, then past start, then car existence, then availability. The
// availability check and the insert run inside one transaction, guarded by a
// per-car advisory lock, so two concurrent requests for overlapping windows
// can never both commit.
func (s *reservationService) Create(ctx context.Context, requester model.Requester, req *model.ReservationRequest) (*model.Reservation, error) {
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "error", err)
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			for _, ve := range validationErrs {
				if ve.Field == "EndTime" {
					return nil, apperrors.InvalidInterval("End time must be after start time")
				}
			}
		}
		return nil, apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.checkNotPast(req.StartTime); err != nil {
		return nil, err
	}

	car, err := s.carRepo.FindByID(ctx, req.CarID)
	if err != nil {
		if errors.Is(err, catalog.ErrCarNotFound) {
			return nil, apperrors.NotFoundWithID("Car", req.CarID)
		}
		if errors.Is(err, catalog.ErrInvalidCarID) {
			return nil, apperrors.InvalidInput("Invalid car ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve car", err)
	}

	reservation := &model.Reservation{
		CarID:      car.ID,
		UserID:     requester.ID,
		CarBrand:   car.Brand,
		CarModel:   car.Model,
		StartTime:  req.StartTime.UTC(),
		EndTime:    req.EndTime.UTC(),
		TotalPrice: money.PriceFor(car.PricePerDay, req.EndTime.Sub(req.StartTime)),
	}

	// Advisory lock serializes writers per car so the overlap check below
	// cannot race with a concurrent insert for the same car.
	lockID, err := s.acquireCarLock(ctx, car.ID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.releaseCarLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release car lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		taken, err := s.repo.ExistsOverlap(sessCtx, reservation.CarID, reservation.StartTime, reservation.EndTime)
		if err != nil {
			return apperrors.Internal("Failed to check car availability", err)
		}
		if taken {
			return apperrors.ResourceUnavailable("Car is already reserved for the requested period")
		}
		if err := s.repo.Create(sessCtx, reservation); err != nil {
			return apperrors.Internal("Failed to create reservation", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create reservation", "car_id", reservation.CarID, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Reservation created successfully",
		"id", reservation.ID,
		"car_id", reservation.CarID,
		"user_id", reservation.UserID,
		"start_time", reservation.StartTime,
		"end_time", reservation.EndTime,
		"total_price", reservation.TotalPrice,
	)

	s.publisher.PublishCreated(ctx, reservation)
	return reservation, nil
}

// Cancel deletes a reservation and appends the audit record in one
// transaction. Non-owners get the same answer as a missing id, so callers
// cannot probe which reservation ids exist.
func (s *reservationService) Cancel(ctx context.Context, requester model.Requester, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) || errors.Is(err, reservationserrors.ErrInvalidID) {
			return apperrors.NotFoundOrForbidden("Reservation")
		}
		return apperrors.Internal("Failed to retrieve reservation", err)
	}

	if reservation.UserID != requester.ID && !requester.IsAdmin() {
		return apperrors.NotFoundOrForbidden("Reservation")
	}

	if !reservation.EndTime.After(time.Now().UTC()) {
		return apperrors.AlreadyCompleted("Completed reservations cannot be cancelled")
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Delete(sessCtx, id); err != nil {
			if errors.Is(err, reservationserrors.ErrNotFound) {
				return apperrors.NotFoundOrForbidden("Reservation")
			}
			return apperrors.Internal("Failed to delete reservation", err)
		}

		// The audit row carries the reservation owner's id, not the
		// caller's: an admin cancellation is still logged against the
		// user whose reservation disappeared.
		entry := &model.ReservationLog{
			ReservationID: id,
			UserID:        reservation.UserID,
			Action:        model.ActionDeleted,
		}
		if err := s.auditRepo.Append(sessCtx, entry); err != nil {
			return apperrors.Internal("Failed to record reservation deletion", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to cancel reservation", "id", id, "error", err)
		return err
	}

	s.cfg.Log.Info("Reservation cancelled successfully",
		"id", id,
		"user_id", reservation.UserID,
		"cancelled_by", requester.ID,
	)

	s.publisher.PublishCancelled(ctx, reservation, requester.ID)
	return nil
}

func (s *reservationService) HistoryForUser(ctx context.Context, userID string) ([]model.ReservationHistoryEntry, error) {
	reservations, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		s.cfg.Log.Error("Failed to list reservations for user", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve reservation history", err)
	}

	now := time.Now().UTC()
	history := make([]model.ReservationHistoryEntry, 0, len(reservations))
	for _, r := range reservations {
		history = append(history, model.ReservationHistoryEntry{
			Reservation: *r,
			Status:      r.StatusAt(now),
		})
	}

	return history, nil
}

func (s *reservationService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, int64, error) {
	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count reservations", "error", errCount)
			errCount = apperrors.Internal("Failed to count reservations", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list reservations", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve reservations", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return reservations, count, nil
}

// UpcomingForCar returns the occupied windows of a car that have not yet
// ended, for availability displays. Only the periods are exposed.
func (s *reservationService) UpcomingForCar(ctx context.Context, carID string) ([]model.ReservationPeriod, error) {
	if _, err := s.carRepo.FindByID(ctx, carID); err != nil {
		if errors.Is(err, catalog.ErrCarNotFound) {
			return nil, apperrors.NotFoundWithID("Car", carID)
		}
		if errors.Is(err, catalog.ErrInvalidCarID) {
			return nil, apperrors.InvalidInput("Invalid car ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve car", err)
	}

	reservations, err := s.repo.FindUpcomingByCar(ctx, carID, time.Now().UTC())
	if err != nil {
		s.cfg.Log.Error("Failed to list upcoming reservations", "car_id", carID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve upcoming reservations", err)
	}

	periods := make([]model.ReservationPeriod, 0, len(reservations))
	for _, r := range reservations {
		periods = append(periods, model.ReservationPeriod{
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
		})
	}

	return periods, nil
}

// DiscountForUser computes the loyalty percentage from the user's live
// reservation count. Cancelled reservations are deleted rows, so they no
// longer count toward the tiers.
func (s *reservationService) DiscountForUser(ctx context.Context, userID string) (int, int64, error) {
	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		s.cfg.Log.Error("Failed to count reservations for discount", "user_id", userID, "error", err)
		return 0, 0, apperrors.Internal("Failed to compute discount", err)
	}

	switch {
	case count >= discountTierGold:
		return discountPercentGold, count, nil
	case count >= discountTierSilver:
		return discountPercentSilver, count, nil
	default:
		return 0, count, nil
	}
}

// --- Helpers ---

// checkNotPast rejects reservations starting before today. The cutoff is the
// current UTC day boundary, so booking "today" stays valid for the whole day
// regardless of the hour the request lands.
func (s *reservationService) checkNotPast(start time.Time) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if start.UTC().Before(today) {
		return apperrors.PastDate("Reservation start date cannot be in the past")
	}
	return nil
}

// acquireCarLock creates an advisory lock for the car.
// Returns the lock ID if successful, or an availability error if another
// request holds the lock.
func (s *reservationService) acquireCarLock(ctx context.Context, carID string) (string, error) {
	lockID := fmt.Sprintf("car_lock_%s", carID)

	lock := &model.CarLock{
		ID: lockID,
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.ResourceUnavailable("This car is currently being reserved by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire car lock", err)
	}

	return lockID, nil
}

// releaseCarLock removes the advisory lock
func (s *reservationService) releaseCarLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}
