package main

import (
	"fmt"

	"github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/spf13/cobra"
)

var (
	tokenUser string
	tokenOrg  string
	tokenRole string
	tokenTTL  int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Emite un JWT firmado con JWT_SECRET para pruebas locales",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenUser == "" || tokenOrg == "" {
			return fmt.Errorf("--user y --org son obligatorios")
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.JWT.Expiration
		}
		tok, err := jwt.Generate(cfg.JWT.Secret, tokenUser, tokenOrg, tokenRole, cfg.JWT.Issuer, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user_id del token")
	tokenCmd.Flags().StringVar(&tokenOrg, "org", "", "organization_id del token")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "admin", "rol: admin | bodeguero | cocina")
	tokenCmd.Flags().IntVar(&tokenTTL, "ttl", 0, "minutos de validez (0 = JWT_EXPIRATION)")
	rootCmd.AddCommand(tokenCmd)
}
