package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/chronus-app/chronus/internal/models"
	"github.com/chronus-app/chronus/internal/store"
)

// setupTestStore connects to the database named by TEST_DATABASE_URL and
// runs migrations. Tests are skipped when the variable is unset.
func setupTestStore(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	st, err := NewPostgresStore(DefaultConfig(dsn), slog.Default())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := Migrate(context.Background(), st.DB()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return st
}

func createTestStudent(t *testing.T, st *PostgresStore, budget models.Hours) *models.Student {
	t.Helper()

	student := &models.Student{
		UserID:        uuid.New().String(),
		Email:         uuid.New().String() + "@example.edu",
		FirstName:     "Test",
		LastName:      "Student",
		AvailableTime: budget,
	}
	if err := st.Students().Create(context.Background(), student, "password123"); err != nil {
		t.Fatalf("failed to create student: %v", err)
	}
	return student
}

// Property: the debit guard keeps the balance non-negative under any
// sequence of debits; a rejected debit leaves the balance untouched.
func TestStudentDebitGuard(t *testing.T) {
	st := setupTestStore(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("balance = initial - successful debits, never negative", prop.ForAll(
		func(initialQuarters int, debits []int) bool {
			ctx := context.Background()
			initial := models.Hours(float64(initialQuarters) * 0.25)
			student := createTestStudent(t, st, initial)

			expected := initial
			for _, q := range debits {
				amount := models.Hours(float64(q) * 0.25)
				err := st.Students().Debit(ctx, student.UserID, amount)
				if err == nil {
					expected -= amount
				} else if !errors.Is(err, store.ErrInsufficientBudget) {
					return false
				}
			}
			if expected < 0 {
				return false
			}

			got, err := st.Students().Get(ctx, student.UserID)
			if err != nil {
				return false
			}
			return got.AvailableTime == expected
		},
		gen.IntRange(0, 20),
		gen.SliceOfN(6, gen.IntRange(1, 10)),
	))

	properties.TestingRun(t)
}

func TestStudentAuthenticate(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	student := createTestStudent(t, st, 1)

	got, err := st.Students().Authenticate(ctx, student.Email, "password123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.UserID != student.UserID {
		t.Errorf("UserID = %q, want %q", got.UserID, student.UserID)
	}

	if _, err := st.Students().Authenticate(ctx, student.Email, "wrong-password"); err == nil {
		t.Error("expected wrong password to be rejected")
	}
	if _, err := st.Students().Authenticate(ctx, "nobody@example.edu", "password123"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown email: got %v, want ErrNotFound", err)
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	student := createTestStudent(t, st, 1)

	dup := &models.Student{
		UserID:    uuid.New().String(),
		Email:     student.Email,
		FirstName: "Other",
		LastName:  "Student",
	}
	if err := st.Students().Create(ctx, dup, "password123"); !errors.Is(err, store.ErrDuplicateKey) {
		t.Errorf("duplicate email: got %v, want ErrDuplicateKey", err)
	}
}

func TestRequestOffererUniqueness(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	applicant := createTestStudent(t, st, 10)
	offerer := createTestStudent(t, st, 1)

	req := &models.CollaborationRequest{
		ID:              uuid.New().String(),
		Title:           "help wanted",
		RequestedTime:   0.5,
		Deadline:        time.Now().AddDate(0, 0, 7),
		PublicationDate: time.Now().UTC(),
		ApplicantID:     applicant.UserID,
	}
	if err := st.Requests().Create(ctx, req); err != nil {
		t.Fatalf("create request: %v", err)
	}

	if err := st.Requests().AddOfferer(ctx, req.ID, offerer.UserID); err != nil {
		t.Fatalf("first offer: %v", err)
	}
	if err := st.Requests().AddOfferer(ctx, req.ID, offerer.UserID); !errors.Is(err, store.ErrDuplicateKey) {
		t.Errorf("second offer: got %v, want ErrDuplicateKey", err)
	}

	got, err := st.Requests().Get(ctx, req.ID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if len(got.Offerers) != 1 || got.Offerers[0] != offerer.UserID {
		t.Errorf("offerers = %v, want exactly the one offerer", got.Offerers)
	}

	// Deleting the request cascades to its offer rows
	if err := st.Requests().Delete(ctx, req.ID); err != nil {
		t.Fatalf("delete request: %v", err)
	}
	if _, err := st.Requests().Get(ctx, req.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get after delete: got %v, want ErrNotFound", err)
	}
}

func TestTransactionRollback(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	student := createTestStudent(t, st, 2)

	wantErr := errors.New("boom")
	err := st.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Students().Debit(ctx, student.UserID, 1); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("WithTx: got %v, want the inner error", err)
	}

	got, err := st.Students().Get(ctx, student.UserID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AvailableTime != 2 {
		t.Errorf("balance = %v, want 2 after rollback", got.AvailableTime)
	}
}
