package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/cv-builder/internal/config"
	"github.com/jonathan/cv-builder/internal/server"
)

var tokenUserID string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for local testing",
	Long:  "Signs a token with JWT_SECRET the way the auth service does, so the API can be exercised without it.",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "User ID to embed (default: a new random ID)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	userID := uuid.New()
	if tokenUserID != "" {
		parsed, err := uuid.Parse(tokenUserID)
		if err != nil {
			return fmt.Errorf("invalid user ID: %w", err)
		}
		userID = parsed
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	token, err := server.NewJWTService(jwtConfig).GenerateToken(userID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
