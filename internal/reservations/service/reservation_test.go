package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"fleetbook/internal/catalog"
	reservationserrors "fleetbook/internal/reservations/errors"
	"fleetbook/internal/reservations/events"
	"fleetbook/internal/reservations/validator"
	"fleetbook/pkg/config"
	mongotx "fleetbook/pkg/db/mongo"
	apperrors "fleetbook/pkg/errors"
	"fleetbook/pkg/logger"
	"fleetbook/pkg/model"
	"fleetbook/pkg/money"
)

const (
	testCarID  = "64b0c8c2a1b2c3d4e5f60718"
	testUserID = "f4d1f9a0-1b2c-4d5e-8f90-1a2b3c4d5e6f"
	adminID    = "a1a1a1a1-b2b2-4c3c-8d4d-e5e5e5e5e5e5"
)

// ────────────────────────────────────────────────
// Mock repositories
// ────────────────────────────────────────────────

type mockReservationRepository struct {
	createFunc            func(ctx context.Context, r *model.Reservation) error
	findByIDFunc          func(ctx context.Context, id string) (*model.Reservation, error)
	findAllFunc           func(ctx context.Context, limit int, offset int64) ([]*model.Reservation, error)
	findByUserFunc        func(ctx context.Context, userID string) ([]*model.Reservation, error)
	findUpcomingFunc      func(ctx context.Context, carID string, after time.Time) ([]*model.Reservation, error)
	existsOverlapFunc     func(ctx context.Context, carID string, start, end time.Time) (bool, error)
	countByUserFunc       func(ctx context.Context, userID string) (int64, error)
	countFunc             func(ctx context.Context) (int64, error)
	deleteFunc            func(ctx context.Context, id string) error
	executeTransactionErr error
}

func (m *mockReservationRepository) Create(ctx context.Context, r *model.Reservation) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, r)
	}
	r.ID = "65aaaaaaaaaaaaaaaaaaaaaa"
	return nil
}

func (m *mockReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, reservationserrors.ErrNotFound
}

func (m *mockReservationRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, limit, offset)
	}
	return []*model.Reservation{}, nil
}

func (m *mockReservationRepository) FindByUser(ctx context.Context, userID string) ([]*model.Reservation, error) {
	if m.findByUserFunc != nil {
		return m.findByUserFunc(ctx, userID)
	}
	return []*model.Reservation{}, nil
}

func (m *mockReservationRepository) FindUpcomingByCar(ctx context.Context, carID string, after time.Time) ([]*model.Reservation, error) {
	if m.findUpcomingFunc != nil {
		return m.findUpcomingFunc(ctx, carID, after)
	}
	return []*model.Reservation{}, nil
}

func (m *mockReservationRepository) ExistsOverlap(ctx context.Context, carID string, start, end time.Time) (bool, error) {
	if m.existsOverlapFunc != nil {
		return m.existsOverlapFunc(ctx, carID, start, end)
	}
	return false, nil
}

func (m *mockReservationRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	if m.countByUserFunc != nil {
		return m.countByUserFunc(ctx, userID)
	}
	return 0, nil
}

func (m *mockReservationRepository) Count(ctx context.Context) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

func (m *mockReservationRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if m.executeTransactionErr != nil {
		return m.executeTransactionErr
	}
	return fn(nil)
}

type mockCarLockRepository struct {
	mu        sync.Mutex
	held      map[string]bool
	createErr error
	creates   int
	deletes   int
}

func (m *mockCarLockRepository) Create(ctx context.Context, lock *model.CarLock) (*model.CarLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return nil, m.createErr
	}
	if m.held == nil {
		m.held = map[string]bool{}
	}
	if m.held[lock.ID] {
		return nil, duplicateKeyError()
	}
	m.held[lock.ID] = true
	return lock, nil
}

func (m *mockCarLockRepository) Delete(ctx context.Context, lockID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.held, lockID)
	return nil
}

func duplicateKeyError() error {
	return mongo.WriteException{
		WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}},
	}
}

type mockAuditLogRepository struct {
	mu        sync.Mutex
	entries   []*model.ReservationLog
	appendErr error
}

func (m *mockAuditLogRepository) Append(ctx context.Context, entry *model.ReservationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditLogRepository) FindByReservationID(ctx context.Context, reservationID string) ([]*model.ReservationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ReservationLog
	for _, e := range m.entries {
		if e.ReservationID == reservationID {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockCarRepository struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Car, error)
}

func (m *mockCarRepository) FindByID(ctx context.Context, id string) (*model.Car, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return &model.Car{
		ID:          id,
		Brand:       "Toyota",
		Model:       "Camry",
		Year:        2023,
		PricePerDay: money.Cents(4500),
	}, nil
}

func (m *mockCarRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Car, error) {
	return []*model.Car{}, nil
}

func (m *mockCarRepository) Count(ctx context.Context) (int64, error) {
	return 0, nil
}

// ────────────────────────────────────────────────
// Test fixtures
// ────────────────────────────────────────────────

type testDeps struct {
	repo     *mockReservationRepository
	lockRepo *mockCarLockRepository
	audit    *mockAuditLogRepository
	cars     *mockCarRepository
}

func newTestService(t *testing.T, deps *testDeps) ReservationService {
	t.Helper()

	log := logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	cfg := &config.Config{
		Log:          log,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		CarLockTTL:   10 * time.Second,
	}

	return NewReservationService(
		deps.repo,
		deps.lockRepo,
		deps.audit,
		deps.cars,
		validator.NewReservationValidator(log),
		events.NewPublisher(nil, log),
		cfg,
	)
}

func futureDay(n int) time.Time {
	return time.Now().UTC().Truncate(time.Hour).AddDate(0, 0, n)
}

func requester() model.Requester {
	return model.Requester{ID: testUserID, Role: model.RoleUser}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, appErr.Code, err)
	}
}

// ────────────────────────────────────────────────
// Create
// ────────────────────────────────────────────────

func TestCreate_Success(t *testing.T) {
	deps := &testDeps{
		repo:     &mockReservationRepository{},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	req := &model.ReservationRequest{
		CarID:     testCarID,
		StartTime: futureDay(1),
		EndTime:   futureDay(3),
	}

	reservation, err := svc.Create(context.Background(), requester(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reservation.ID == "" {
		t.Error("expected reservation ID to be set")
	}
	if reservation.UserID != testUserID {
		t.Errorf("expected owner %s, got %s", testUserID, reservation.UserID)
	}
	if reservation.CarBrand != "Toyota" || reservation.CarModel != "Camry" {
		t.Errorf("expected car snapshot Toyota Camry, got %s %s", reservation.CarBrand, reservation.CarModel)
	}
	if reservation.TotalPrice != money.Cents(9000) {
		t.Errorf("expected total price 90.00 for 2 days at 45.00, got %s", reservation.TotalPrice)
	}
	if deps.lockRepo.creates != 1 || deps.lockRepo.deletes != 1 {
		t.Errorf("expected lock acquired and released once, got creates=%d deletes=%d",
			deps.lockRepo.creates, deps.lockRepo.deletes)
	}
}

func TestCreate_FractionalDayPricing(t *testing.T) {
	deps := &testDeps{
		repo:     &mockReservationRepository{},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	start := futureDay(1)
	req := &model.ReservationRequest{
		CarID:     testCarID,
		StartTime: start,
		EndTime:   start.Add(36 * time.Hour),
	}

	reservation, err := svc.Create(context.Background(), requester(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reservation.TotalPrice != money.Cents(6750) {
		t.Errorf("expected 67.50 for 1.5 days at 45.00, got %s", reservation.TotalPrice)
	}
}

func TestCreate_InvalidInterval(t *testing.T) {
	deps := &testDeps{
		repo:     &mockReservationRepository{},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{"end before start", futureDay(3), futureDay(1)},
		{"zero-length interval", futureDay(1), futureDay(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), requester(), &model.ReservationRequest{
				CarID:     testCarID,
				StartTime: tt.start,
				EndTime:   tt.end,
			})
			assertCode(t, err, apperrors.CodeInvalidInterval)
		})
	}

	if deps.lockRepo.creates != 0 {
		t.Errorf("invalid interval must be rejected before locking, got %d lock attempts", deps.lockRepo.creates)
	}
}

func TestCreate_IntervalCheckedBeforePastDate(t *testing.T) {
	// A request that is both inverted and in the past must report the
	// interval problem, not the past-date one.
	deps := &testDeps{
		repo:     &mockReservationRepository{},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	_, err := svc.Create(context.Background(), requester(), &model.ReservationRequest{
		CarID:     testCarID,
		StartTime: futureDay(-2),
		EndTime:   futureDay(-5),
	})
	assertCode(t, err, apperrors.CodeInvalidInterval)
}

func TestCreate_PastDateRejected(t *testing.T) {
	deps := &testDeps{
		repo:     &mockReservationRepository{},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars: &mockCarRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Car, error) {
				t.Error("car lookup must not run for past-dated requests")
				return nil, catalog.ErrCarNotFound
			},
		},
	}
	svc := newTestService(t, deps)

	_, err := svc.Create(context.Background(), requester(), &model.ReservationRequest{
		CarID:     testCarID,
		StartTime: futureDay(-2),
		EndTime:   futureDay(2),
	})
	assertCode(t, err, apperrors.CodePastDate)
}

func TestCreate_StartingTodayIsAllowed(t *testing.T) {
	deps := &testDeps{
		repo:     &mockReservationRepository{},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	// Start of the current UTC day: earlier than now, but still "today".
	today := time.Now().UTC().Truncate(24 * time.Hour)
	_, err := svc.Create(context.Background(), requester(), &model.ReservationRequest{
		CarID:     testCarID,
		StartTime: today,
		EndTime:   today.AddDate(0, 0, 2),
	})
	if err != nil {
		t.Fatalf("reservation starting today should be accepted, got %v", err)
	}
}

func TestCreate_CarNotFound(t *testing.T) {
	deps := &testDeps{
		repo:     &mockReservationRepository{},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars: &mockCarRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Car, error) {
				return nil, catalog.ErrCarNotFound
			},
		},
	}
	svc := newTestService(t, deps)

	_, err := svc.Create(context.Background(), requester(), &model.ReservationRequest{
		CarID:     testCarID,
		StartTime: futureDay(1),
		EndTime:   futureDay(3),
	})
	assertCode(t, err, apperrors.CodeNotFound)

	if deps.lockRepo.creates != 0 {
		t.Error("missing car must be rejected before locking")
	}
}

func TestCreate_OverlapConflict(t *testing.T) {
	inserted := false
	deps := &testDeps{
		repo: &mockReservationRepository{
			existsOverlapFunc: func(ctx context.Context, carID string, start, end time.Time) (bool, error) {
				return true, nil
			},
			createFunc: func(ctx context.Context, r *model.Reservation) error {
				inserted = true
				return nil
			},
		},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	_, err := svc.Create(context.Background(), requester(), &model.ReservationRequest{
		CarID:     testCarID,
		StartTime: futureDay(1),
		EndTime:   futureDay(3),
	})
	assertCode(t, err, apperrors.CodeResourceUnavailable)

	if inserted {
		t.Error("no reservation may be inserted when the window is taken")
	}
	if deps.lockRepo.deletes != 1 {
		t.Error("lock must be released after a conflict")
	}
}

func TestCreate_AdjacentIntervalsBothSucceed(t *testing.T) {
	// Back-to-back windows sharing an endpoint never conflict. A tiny
	// in-memory store stands in for the collection.
	var mu sync.Mutex
	var stored []*model.Reservation

	deps := &testDeps{
		repo: &mockReservationRepository{
			existsOverlapFunc: func(ctx context.Context, carID string, start, end time.Time) (bool, error) {
				mu.Lock()
				defer mu.Unlock()
				for _, r := range stored {
					if r.CarID == carID && model.Overlaps(r.StartTime, r.EndTime, start, end) {
						return true, nil
					}
				}
				return false, nil
			},
			createFunc: func(ctx context.Context, r *model.Reservation) error {
				mu.Lock()
				defer mu.Unlock()
				r.ID = "65aaaaaaaaaaaaaaaaaaaaaa"
				stored = append(stored, r)
				return nil
			},
		},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	first := &model.ReservationRequest{CarID: testCarID, StartTime: futureDay(1), EndTime: futureDay(3)}
	second := &model.ReservationRequest{CarID: testCarID, StartTime: futureDay(3), EndTime: futureDay(5)}

	if _, err := svc.Create(context.Background(), requester(), first); err != nil {
		t.Fatalf("first reservation failed: %v", err)
	}
	if _, err := svc.Create(context.Background(), requester(), second); err != nil {
		t.Fatalf("adjacent reservation should succeed, got: %v", err)
	}

	overlapping := &model.ReservationRequest{CarID: testCarID, StartTime: futureDay(2), EndTime: futureDay(4)}
	_, err := svc.Create(context.Background(), requester(), overlapping)
	assertCode(t, err, apperrors.CodeResourceUnavailable)

	if len(stored) != 2 {
		t.Errorf("expected 2 stored reservations, got %d", len(stored))
	}
}

func TestCreate_LockHeldByAnotherRequest(t *testing.T) {
	deps := &testDeps{
		repo:     &mockReservationRepository{},
		lockRepo: &mockCarLockRepository{held: map[string]bool{"car_lock_" + testCarID: true}},
		audit:    &mockAuditLogRepository{},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	_, err := svc.Create(context.Background(), requester(), &model.ReservationRequest{
		CarID:     testCarID,
		StartTime: futureDay(1),
		EndTime:   futureDay(3),
	})
	assertCode(t, err, apperrors.CodeResourceUnavailable)
}

func TestCreate_ConcurrentSameWindow(t *testing.T) {
	// Two racing requests for the same car and window: the advisory lock
	// serializes them and the overlap check stops the loser.
	var mu sync.Mutex
	var stored []*model.Reservation

	deps := &testDeps{
		repo: &mockReservationRepository{
			existsOverlapFunc: func(ctx context.Context, carID string, start, end time.Time) (bool, error) {
				mu.Lock()
				defer mu.Unlock()
				for _, r := range stored {
					if r.CarID == carID && model.Overlaps(r.StartTime, r.EndTime, start, end) {
						return true, nil
					}
				}
				return false, nil
			},
			createFunc: func(ctx context.Context, r *model.Reservation) error {
				mu.Lock()
				defer mu.Unlock()
				r.ID = "65aaaaaaaaaaaaaaaaaaaaaa"
				stored = append(stored, r)
				return nil
			},
		},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), requester(), &model.ReservationRequest{
				CarID:     testCarID,
				StartTime: futureDay(1),
				EndTime:   futureDay(3),
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		assertCode(t, err, apperrors.CodeResourceUnavailable)
	}

	if successes != 1 {
		t.Errorf("expected exactly one winning reservation, got %d", successes)
	}
	if len(stored) != 1 {
		t.Errorf("expected exactly one stored reservation, got %d", len(stored))
	}
}

// ────────────────────────────────────────────────
// Cancel
// ────────────────────────────────────────────────

func liveReservation() *model.Reservation {
	return &model.Reservation{
		ID:        "65aaaaaaaaaaaaaaaaaaaaaa",
		CarID:     testCarID,
		UserID:    testUserID,
		StartTime: futureDay(1),
		EndTime:   futureDay(3),
	}
}

func TestCancel_Owner(t *testing.T) {
	deleted := false
	existing := liveReservation()
	deps := &testDeps{
		repo: &mockReservationRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
				return existing, nil
			},
			deleteFunc: func(ctx context.Context, id string) error {
				deleted = true
				return nil
			},
		},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	if err := svc.Cancel(context.Background(), requester(), existing.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !deleted {
		t.Error("reservation was not deleted")
	}
	if len(deps.audit.entries) != 1 {
		t.Fatalf("expected exactly one audit entry, got %d", len(deps.audit.entries))
	}
	entry := deps.audit.entries[0]
	if entry.ReservationID != existing.ID {
		t.Errorf("audit entry references %s, want %s", entry.ReservationID, existing.ID)
	}
	if entry.UserID != testUserID {
		t.Errorf("audit entry user %s, want owner %s", entry.UserID, testUserID)
	}
	if entry.Action != model.ActionDeleted {
		t.Errorf("audit action %s, want %s", entry.Action, model.ActionDeleted)
	}
}

func TestCancel_AdminOverrideLogsOwner(t *testing.T) {
	existing := liveReservation()
	deps := &testDeps{
		repo: &mockReservationRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
				return existing, nil
			},
		},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	admin := model.Requester{ID: adminID, Role: model.RoleAdmin}
	if err := svc.Cancel(context.Background(), admin, existing.ID); err != nil {
		t.Fatalf("admin cancel failed: %v", err)
	}

	if len(deps.audit.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(deps.audit.entries))
	}
	if got := deps.audit.entries[0].UserID; got != testUserID {
		t.Errorf("audit entry must carry the owner's id, got %s", got)
	}
}

func TestCancel_ForeignReservationIsOpaque(t *testing.T) {
	existing := liveReservation()
	deps := &testDeps{
		repo: &mockReservationRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
				return existing, nil
			},
		},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	stranger := model.Requester{ID: "00000000-0000-4000-8000-000000000000", Role: model.RoleUser}
	errForeign := svc.Cancel(context.Background(), stranger, existing.ID)
	assertCode(t, errForeign, apperrors.CodeNotFound)

	deps.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Reservation, error) {
		return nil, reservationserrors.ErrNotFound
	}
	errMissing := svc.Cancel(context.Background(), stranger, "65bbbbbbbbbbbbbbbbbbbbbb")
	assertCode(t, errMissing, apperrors.CodeNotFound)

	// A probing caller must not be able to tell the two cases apart.
	if apperrors.AsAppError(errForeign).Message != apperrors.AsAppError(errMissing).Message {
		t.Error("foreign and missing reservations must yield identical errors")
	}
	if len(deps.audit.entries) != 0 {
		t.Error("rejected cancellations must not write audit entries")
	}
}

func TestCancel_AlreadyCompleted(t *testing.T) {
	past := liveReservation()
	past.StartTime = futureDay(-5)
	past.EndTime = futureDay(-3)

	deps := &testDeps{
		repo: &mockReservationRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
				return past, nil
			},
		},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	err := svc.Cancel(context.Background(), requester(), past.ID)
	assertCode(t, err, apperrors.CodeAlreadyCompleted)

	if len(deps.audit.entries) != 0 {
		t.Error("completed reservations must not be deleted or logged")
	}
}

func TestCancel_ActiveReservationCanBeCancelled(t *testing.T) {
	active := liveReservation()
	active.StartTime = futureDay(-1)
	active.EndTime = futureDay(1)

	deps := &testDeps{
		repo: &mockReservationRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
				return active, nil
			},
		},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	if err := svc.Cancel(context.Background(), requester(), active.ID); err != nil {
		t.Fatalf("cancelling a running reservation should work, got %v", err)
	}
}

func TestCancel_AuditFailureAbortsCancellation(t *testing.T) {
	existing := liveReservation()
	deps := &testDeps{
		repo: &mockReservationRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
				return existing, nil
			},
		},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{appendErr: apperrors.Internal("audit write failed", nil)},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	if err := svc.Cancel(context.Background(), requester(), existing.ID); err == nil {
		t.Fatal("cancellation must fail when the audit append fails")
	}
}

// ────────────────────────────────────────────────
// History, listing, availability
// ────────────────────────────────────────────────

func TestHistoryForUser_StatusDerivation(t *testing.T) {
	deps := &testDeps{
		repo: &mockReservationRepository{
			findByUserFunc: func(ctx context.Context, userID string) ([]*model.Reservation, error) {
				return []*model.Reservation{
					{ID: "1", UserID: userID, StartTime: futureDay(-5), EndTime: futureDay(-3)},
					{ID: "2", UserID: userID, StartTime: futureDay(-1), EndTime: futureDay(1)},
					{ID: "3", UserID: userID, StartTime: futureDay(2), EndTime: futureDay(4)},
				}, nil
			},
		},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	history, err := svc.HistoryForUser(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(history))
	}

	want := []model.ReservationStatus{model.StatusCompleted, model.StatusActive, model.StatusUpcoming}
	for i, entry := range history {
		if entry.Status != want[i] {
			t.Errorf("entry %d: status %s, want %s", i, entry.Status, want[i])
		}
	}
}

func TestGetAll_ConcurrentCountAndFind(t *testing.T) {
	deps := &testDeps{
		repo: &mockReservationRepository{
			countFunc: func(ctx context.Context) (int64, error) {
				time.Sleep(10 * time.Millisecond)
				return 42, nil
			},
			findAllFunc: func(ctx context.Context, limit int, offset int64) ([]*model.Reservation, error) {
				time.Sleep(10 * time.Millisecond)
				return []*model.Reservation{liveReservation()}, nil
			},
		},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	for i := 0; i < 5; i++ {
		reservations, count, err := svc.GetAll(context.Background(), 10, 0)
		if err != nil {
			t.Fatalf("iteration %d: unexpected error: %v", i, err)
		}
		if count != 42 {
			t.Errorf("iteration %d: count = %d, want 42", i, count)
		}
		if len(reservations) != 1 {
			t.Errorf("iteration %d: got %d reservations, want 1", i, len(reservations))
		}
	}
}

func TestUpcomingForCar(t *testing.T) {
	deps := &testDeps{
		repo: &mockReservationRepository{
			findUpcomingFunc: func(ctx context.Context, carID string, after time.Time) ([]*model.Reservation, error) {
				return []*model.Reservation{
					{ID: "1", CarID: carID, UserID: testUserID, TotalPrice: 9000,
						StartTime: futureDay(1), EndTime: futureDay(3)},
				}, nil
			},
		},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars:     &mockCarRepository{},
	}
	svc := newTestService(t, deps)

	periods, err := svc.UpcomingForCar(context.Background(), testCarID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(periods) != 1 {
		t.Fatalf("expected 1 period, got %d", len(periods))
	}
	if !periods[0].StartTime.Equal(futureDay(1)) || !periods[0].EndTime.Equal(futureDay(3)) {
		t.Errorf("unexpected period %+v", periods[0])
	}
}

func TestUpcomingForCar_UnknownCar(t *testing.T) {
	deps := &testDeps{
		repo:     &mockReservationRepository{},
		lockRepo: &mockCarLockRepository{},
		audit:    &mockAuditLogRepository{},
		cars: &mockCarRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Car, error) {
				return nil, catalog.ErrCarNotFound
			},
		},
	}
	svc := newTestService(t, deps)

	_, err := svc.UpcomingForCar(context.Background(), testCarID)
	assertCode(t, err, apperrors.CodeNotFound)
}

// ────────────────────────────────────────────────
// Discount
// ────────────────────────────────────────────────

func TestDiscountForUser_Tiers(t *testing.T) {
	tests := []struct {
		count       int64
		wantPercent int
	}{
		{0, 0},
		{4, 0},
		{5, 5},
		{9, 5},
		{10, 10},
		{15, 10},
	}

	for _, tt := range tests {
		deps := &testDeps{
			repo: &mockReservationRepository{
				countByUserFunc: func(ctx context.Context, userID string) (int64, error) {
					return tt.count, nil
				},
			},
			lockRepo: &mockCarLockRepository{},
			audit:    &mockAuditLogRepository{},
			cars:     &mockCarRepository{},
		}
		svc := newTestService(t, deps)

		percent, count, err := svc.DiscountForUser(context.Background(), testUserID)
		if err != nil {
			t.Fatalf("count %d: unexpected error: %v", tt.count, err)
		}
		if percent != tt.wantPercent {
			t.Errorf("count %d: percent = %d, want %d", tt.count, percent, tt.wantPercent)
		}
		if count != tt.count {
			t.Errorf("count %d: reported count = %d", tt.count, count)
		}
	}
}
