package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/spf13/cobra"
)

var (
	reconcileOrg     string
	reconcileTimeout time.Duration
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compara cada snapshot con la suma de sus movimientos",
	Long: "Recorre los snapshots de una organización (o de todas) y reporta los productos cuyo " +
		"saldo no coincide con la suma con signo de sus movimientos. Termina con código 1 si hay diferencias.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), reconcileTimeout)
		defer cancel()

		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer pool.Close()

		uc := inventory.NewReconcileUseCase(postgres.NewTxRunner(pool, 0))

		var reports []dto.ReconcileReport
		if reconcileOrg != "" {
			r, err := uc.Reconcile(ctx, reconcileOrg)
			if err != nil {
				return err
			}
			reports = append(reports, *r)
		} else {
			reports, err = uc.ReconcileAll(ctx)
			if err != nil {
				return err
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}

		inconsistent := 0
		for _, r := range reports {
			if !r.Consistent() {
				inconsistent++
				log.Warn().
					Str("organization_id", r.OrganizationID).
					Int("discrepancies", len(r.Discrepancies)).
					Msg("snapshots inconsistentes")
			}
		}
		if inconsistent > 0 {
			return fmt.Errorf("%d organización(es) con diferencias", inconsistent)
		}
		log.Info().Int("organizations", len(reports)).Msg("conciliación sin diferencias")
		return nil
	},
}

func init() {
	reconcileCmd.Flags().StringVarP(&reconcileOrg, "org", "o", "", "organización a conciliar (vacío = todas)")
	reconcileCmd.Flags().DurationVar(&reconcileTimeout, "timeout", 5*time.Minute, "tiempo máximo de la conciliación")
	rootCmd.AddCommand(reconcileCmd)
}
