package inventory

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ParseQuantity interpreta la cantidad cruda del body (número JSON o string numérico).
// Ausente, nula o no numérica devuelve domain.ErrInvalidQuantity.
func ParseQuantity(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Zero, domain.ErrInvalidQuantity
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	q, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, domain.ErrInvalidQuantity
	}
	return q, nil
}

// RecordMovementFromRequest adapta el request HTTP al caso de uso RecordMovement.
// organizationID y userID vienen del token, nunca del body.
func (uc *LedgerUseCase) RecordMovementFromRequest(ctx context.Context, organizationID, userID string, in dto.RecordMovementRequest) (*MovementResult, error) {
	qty, err := ParseQuantity(in.Quantity)
	if err != nil {
		return nil, err
	}
	t, ok := entity.ParseMovementType(in.Type)
	if !ok {
		return nil, domain.ErrInvalidMovementType
	}
	return uc.RecordMovement(ctx, RecordMovementInput{
		OrganizationID: organizationID,
		ProductID:      strings.TrimSpace(in.ProductID),
		UserID:         userID,
		Type:           t,
		Quantity:       qty,
		UnitOfMeasure:  strings.TrimSpace(in.UnitOfMeasure),
		Observation:    strings.TrimSpace(in.Observation),
		OccurredAt:     in.OccurredAt,
	})
}

// QuickEntryFromRequest adapta el request de entrada rápida.
func (q *QuickActions) QuickEntryFromRequest(ctx context.Context, organizationID, userID string, in dto.QuickMovementRequest) (*MovementResult, error) {
	input, err := quickInput(organizationID, userID, in)
	if err != nil {
		return nil, err
	}
	return q.QuickEntry(ctx, input)
}

// QuickExitFromRequest adapta el request de salida rápida.
func (q *QuickActions) QuickExitFromRequest(ctx context.Context, organizationID, userID string, in dto.QuickMovementRequest) (*MovementResult, error) {
	input, err := quickInput(organizationID, userID, in)
	if err != nil {
		return nil, err
	}
	return q.QuickExit(ctx, input)
}

func quickInput(organizationID, userID string, in dto.QuickMovementRequest) (QuickMovementInput, error) {
	qty, err := ParseQuantity(in.Quantity)
	if err != nil {
		return QuickMovementInput{}, err
	}
	return QuickMovementInput{
		OrganizationID: organizationID,
		ProductID:      strings.TrimSpace(in.ProductID),
		UserID:         userID,
		Quantity:       qty,
		UnitOfMeasure:  strings.TrimSpace(in.UnitOfMeasure),
		Observation:    strings.TrimSpace(in.Observation),
	}, nil
}
