package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/iliyamo/market-sales/internal/lifecycle"
	"github.com/iliyamo/market-sales/internal/model"
	"github.com/iliyamo/market-sales/internal/repository"
)

// BalanceService carries the final balance of a closed-out mercadillo over
// to the initial balance of another one, either directly (Transfer) or by
// saving it first and consuming it later.
type BalanceService struct {
	saved       SavedBalanceStore
	mercadillos *MercadilloService
	log         *slog.Logger
}

func NewBalanceService(saved SavedBalanceStore, mercadillos *MercadilloService, log *slog.Logger) *BalanceService {
	if log == nil {
		log = slog.Default()
	}
	return &BalanceService{saved: saved, mercadillos: mercadillos, log: log}
}

// origin loads an event whose final balance is waiting to be assigned.
func (s *BalanceService) origin(ctx context.Context, userID uint64, id string) (*model.Mercadillo, error) {
	m, err := s.mercadillos.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if m.State != lifecycle.PendingBalanceAssignment || !m.FinalBalance.Valid {
		return nil, fmt.Errorf("%w: mercadillo %s has no balance to carry over", ErrInvalidState, id)
	}
	return m, nil
}

// target loads an event able to receive a carried-over balance: one without
// an initial balance that has not finished yet.
func (s *BalanceService) target(ctx context.Context, userID uint64, id, originID string) (*model.Mercadillo, error) {
	if id == originID {
		return nil, fmt.Errorf("%w: target must differ from origin", ErrValidation)
	}
	m, err := s.mercadillos.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if m.InitialBalance.Valid {
		return nil, fmt.Errorf("%w: mercadillo %s already has an initial balance", repository.ErrConflict, id)
	}
	switch m.State {
	case lifecycle.PartiallyScheduled, lifecycle.InProgress:
		return m, nil
	}
	return nil, fmt.Errorf("%w: a %s mercadillo cannot receive a balance", ErrInvalidState, m.State)
}

// Save keeps the origin's final balance aside. The origin stays pending
// until the balance is consumed.
func (s *BalanceService) Save(ctx context.Context, userID uint64, originID string) (*model.SavedBalance, error) {
	m, err := s.origin(ctx, userID, originID)
	if err != nil {
		return nil, err
	}
	if _, err := s.saved.ActiveForOrigin(ctx, userID, originID); err == nil {
		return nil, fmt.Errorf("%w: balance of %s is already saved", repository.ErrConflict, originID)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	b := &model.SavedBalance{
		ID:                 uuid.New().String(),
		UserID:             userID,
		OriginMercadilloID: originID,
		Amount:             m.FinalBalance.Decimal,
		Version:            1,
		SyncPending:        true,
	}
	if err := s.saved.Create(ctx, b); err != nil {
		return nil, err
	}
	s.log.Info("balance saved", "user_id", userID, "origin_id", originID, "amount", b.Amount.String())
	return b, nil
}

// Active returns the most recent unconsumed saved balance.
func (s *BalanceService) Active(ctx context.Context, userID uint64) (*model.SavedBalance, error) {
	return s.saved.Active(ctx, userID)
}

// Consume applies a saved balance to target in three steps: mark the record
// consumed, assign the amount as the target's initial balance, close the
// origin. The steps are not transactional; a failure names the step that
// failed and leaves the earlier ones applied.
func (s *BalanceService) Consume(ctx context.Context, userID uint64, savedID, targetID string) (*model.Mercadillo, error) {
	b, err := s.saved.GetByID(ctx, userID, savedID)
	if err != nil {
		return nil, err
	}
	if b.Consumed {
		return nil, fmt.Errorf("%w: saved balance %s was already consumed", repository.ErrConflict, savedID)
	}
	if _, err := s.origin(ctx, userID, b.OriginMercadilloID); err != nil {
		return nil, err
	}
	if _, err := s.target(ctx, userID, targetID, b.OriginMercadilloID); err != nil {
		return nil, err
	}

	if err := s.saved.MarkConsumed(ctx, userID, savedID, targetID); err != nil {
		return nil, fmt.Errorf("carry-over step 1: %w", err)
	}
	t, err := s.mercadillos.AssignInitialBalance(ctx, userID, targetID, b.Amount)
	if err != nil {
		s.log.Error("carry-over left saved balance consumed", "saved_id", savedID, "target_id", targetID, "error", err)
		return nil, fmt.Errorf("carry-over step 2: %w", err)
	}
	if err := s.closeOrigin(ctx, userID, b.OriginMercadilloID); err != nil {
		s.log.Error("carry-over left origin open", "origin_id", b.OriginMercadilloID, "error", err)
		return t, fmt.Errorf("carry-over step 3: %w", err)
	}
	s.log.Info("balance carried over", "user_id", userID, "origin_id", b.OriginMercadilloID, "target_id", targetID, "amount", b.Amount.String())
	return t, nil
}

// closeOrigin closes the origin if it is still waiting for its balance.
func (s *BalanceService) closeOrigin(ctx context.Context, userID uint64, originID string) error {
	m, err := s.mercadillos.Get(ctx, userID, originID)
	if err != nil {
		return err
	}
	if m.State != lifecycle.PendingBalanceAssignment {
		return nil
	}
	_, err = s.mercadillos.CloseWithoutCarryOver(ctx, userID, originID)
	return err
}

// Transfer carries the origin's final balance straight to target without
// saving it, then closes the origin.
func (s *BalanceService) Transfer(ctx context.Context, userID uint64, originID, targetID string) (*model.Mercadillo, error) {
	o, err := s.origin(ctx, userID, originID)
	if err != nil {
		return nil, err
	}
	if _, err := s.target(ctx, userID, targetID, originID); err != nil {
		return nil, err
	}
	if _, err := s.saved.ActiveForOrigin(ctx, userID, originID); err == nil {
		return nil, fmt.Errorf("%w: balance of %s is saved, consume it instead", repository.ErrConflict, originID)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	t, err := s.mercadillos.AssignInitialBalance(ctx, userID, targetID, o.FinalBalance.Decimal)
	if err != nil {
		return nil, err
	}
	if _, err := s.mercadillos.CloseWithoutCarryOver(ctx, userID, originID); err != nil {
		return t, fmt.Errorf("close origin: %w", err)
	}
	return t, nil
}
