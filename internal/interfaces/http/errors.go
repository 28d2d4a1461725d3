package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/rs/zerolog"
)

// retryAfterSeconds sugerencia al cliente tras un conflicto de concurrencia.
const retryAfterSeconds = "1"

// writeError traduce errores de dominio a HTTP. Los errores no tipados se registran
// y se responden como 500 sin exponer el detalle.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	status, body := errorBody(err)
	switch status {
	case fiber.StatusConflict:
		if body.Code == "CONCURRENCY_CONFLICT" {
			c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
		}
	case fiber.StatusInternalServerError:
		log.Error().Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("organization_id", GetOrganizationID(c)).
			Msg("error interno")
	}
	return c.Status(status).JSON(body)
}

func errorBody(err error) (int, dto.ErrorResponse) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "INVALID_QUANTITY", Message: domain.ErrInvalidQuantity.Error()}
	case errors.Is(err, domain.ErrInvalidMovementType):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "INVALID_MOVEMENT_TYPE", Message: domain.ErrInvalidMovementType.Error()}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"}
	case errors.Is(err, domain.ErrProductNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "PRODUCT_NOT_FOUND", Message: domain.ErrProductNotFound.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: domain.ErrNotFound.Error()}
	case errors.Is(err, domain.ErrInsufficientStock):
		body := dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: domain.ErrInsufficientStock.Error()}
		if available, ok := domain.AvailableFrom(err); ok {
			body.Message = err.Error()
			body.Available = available.String()
		}
		return fiber.StatusConflict, body
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "CONCURRENCY_CONFLICT", Message: domain.ErrConcurrencyConflict.Error()}
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"}
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno, intente más tarde"}
}
