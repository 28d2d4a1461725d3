package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// Códigos SQLSTATE que indican contención entre transacciones.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isConcurrencyError serialización, deadlock, lock_timeout o deadline del contexto.
func isConcurrencyError(err error) bool {
	switch pgCode(err) {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// classifyTxError traduce errores de pgx a errores de dominio.
// Los errores de dominio ya tipados se devuelven sin cambios.
func classifyTxError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isConcurrencyError(err):
		return fmt.Errorf("%w: %s: %v", domain.ErrConcurrencyConflict, op, err)
	case pgCode(err) != "":
		return fmt.Errorf("%w: %s: %v", domain.ErrInternal, op, err)
	}
	return err
}

// escapeLike escapa comodines de LIKE para búsquedas por subcadena.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
