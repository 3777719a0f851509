package main

import (
	"fmt"
	"os"

	"go-clinic-queue/cmd/bootstrap"
	"go-clinic-queue/config"
	"go-clinic-queue/internal/domain/entity"
	"go-clinic-queue/pkg/jwt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "clinicq",
		Short:        "Clinic appointment and queue service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return bootstrap.Migrate(cfg)
		},
	}
}

// tokenCmd issues an access token for an existing user, for local testing
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a user id and role",
		RunE: func(cmd *cobra.Command, args []string) error {
			rawUserID, _ := cmd.Flags().GetString("user")
			role, _ := cmd.Flags().GetString("role")

			userID, err := uuid.Parse(rawUserID)
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}
			roleID := roleIDFor(role)
			if roleID == 0 {
				return fmt.Errorf("unknown role %q", role)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			token, _, err := jwt.NewJWTService(cfg.JWT).GenerateAccessToken(userID, roleID)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("user", "", "user id (uuid)")
	cmd.Flags().String("role", entity.RolePatient, "admin, doctor, patient or staff")
	cmd.MarkFlagRequired("user")
	return cmd
}

func roleIDFor(name string) int {
	for _, id := range []int{entity.RoleIDAdmin, entity.RoleIDDoctor, entity.RoleIDPatient, entity.RoleIDStaff} {
		if entity.RoleName(id) == name {
			return id
		}
	}
	return 0
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	bootstrap.SetupLogger(cfg.App)
	logrus.Info("Configuration loaded successfully")
	return cfg, nil
}

func serve() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize application with all dependencies
	app, err := bootstrap.New(cfg)
	if err != nil {
		return err
	}

	// Run the application
	return app.Run()
}
