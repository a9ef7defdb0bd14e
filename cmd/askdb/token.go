package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jonathan/askdb/internal/server"
	"github.com/spf13/cobra"
)

var tokenUser string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the API server",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User name carried by the token")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveSettings(flagConfig, configPath, os.Getenv)
	if err != nil {
		return err
	}
	jwtConfig, err := cfg.JWT()
	if err != nil {
		return err
	}
	if jwtConfig == nil {
		return errors.New("JWT_SECRET is not set")
	}

	token, err := server.NewJWTService(jwtConfig).GenerateToken(tokenUser)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
