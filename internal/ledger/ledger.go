// Package ledger tracks each student's available collaboration time. It is
// the only code allowed to mutate a student's balance, and every debit or
// credit runs inside the same transaction as the state change that caused it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chronus-app/chronus/internal/models"
	"github.com/chronus-app/chronus/internal/store"
)

// Errors returned by ledger operations.
var (
	// ErrInvalidDuration is returned when an amount is negative or not
	// quantized to a quarter hour.
	ErrInvalidDuration = errors.New("duration must be a non-negative multiple of a quarter hour")

	// ErrInsufficientBudget is returned when a debit exceeds the student's
	// available time.
	ErrInsufficientBudget = errors.New("insufficient available time")
)

// ValidateAmount checks that the amount is quantized to the allowed set:
// whole hours plus a fractional part of 0, 0.25, 0.50 or 0.75.
func ValidateAmount(amount models.Hours) error {
	if !amount.Quantized() {
		return ErrInvalidDuration
	}
	return nil
}

// Ledger performs budget mutations against a store. Callers pass the
// transaction-scoped store so the mutation commits or rolls back together
// with the state change it belongs to.
type Ledger struct {
	logger *slog.Logger
}

// New creates a new Ledger.
func New(logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{logger: logger}
}

// Debit subtracts amount from the student's available time. Fails with
// ErrInvalidDuration for unquantized amounts and ErrInsufficientBudget when
// the balance cannot cover the amount. The store keeps the balance
// non-negative; no balance is ever read-modify-written in memory.
func (l *Ledger) Debit(ctx context.Context, s store.Store, studentID string, amount models.Hours) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}

	err := s.Students().Debit(ctx, studentID, amount)
	if errors.Is(err, store.ErrInsufficientBudget) {
		return ErrInsufficientBudget
	}
	if err != nil {
		return fmt.Errorf("debiting %v hours from student %s: %w", amount, studentID, err)
	}

	l.logger.Debug("ledger debit", "student_id", studentID, "hours", amount)
	return nil
}

// Credit adds amount to the student's available time. There is no upper
// bound. A committed credit is final; refunds are explicit compensating
// credits, never rollbacks.
func (l *Ledger) Credit(ctx context.Context, s store.Store, studentID string, amount models.Hours) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}

	if err := s.Students().Credit(ctx, studentID, amount); err != nil {
		return fmt.Errorf("crediting %v hours to student %s: %w", amount, studentID, err)
	}

	l.logger.Debug("ledger credit", "student_id", studentID, "hours", amount)
	return nil
}
