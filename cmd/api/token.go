package main

import (
	"errors"
	"fmt"
	"time"

	"pet-health-tracker/internal/adapters/auth/jwtauth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

var (
	tokenUserID string
	tokenEmail  string
	tokenTTL    time.Duration

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Emite un JWT firmado con auth.jwt.secret (desarrollo)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tokenUserID == "" {
				return errors.New("--user is required")
			}
			now := time.Now()
			tok, err := jwtauth.Sign(cfg.Auth.JWT.Secret, jwtauth.Claims{
				UserID: tokenUserID,
				Email:  tokenEmail,
				RegisteredClaims: jwt.RegisteredClaims{
					Issuer:    cfg.Auth.JWT.Issuer,
					Subject:   tokenUserID,
					IssuedAt:  jwt.NewNumericDate(now),
					ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
				},
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
)

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "user ID del token")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email opcional")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "vigencia del token")
}
