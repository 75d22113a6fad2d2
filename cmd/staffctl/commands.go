package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/playzone-reservation/internal/config"
	"github.com/iliyamo/playzone-reservation/internal/database"
	"github.com/iliyamo/playzone-reservation/internal/model"
	"github.com/iliyamo/playzone-reservation/internal/repository"
	"github.com/iliyamo/playzone-reservation/internal/utils"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "staffctl",
		Short:         "Staff account administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff users",
	}
	userCmd.AddCommand(newUserCreateCommand())
	root.AddCommand(userCmd)
	return root
}

func newUserCreateCommand() *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff or admin account",
		Long:  "Create a staff or admin account. The password is read from STAFFCTL_PASSWORD.",
		RunE: func(cmd *cobra.Command, args []string) error {
			role = strings.ToUpper(strings.TrimSpace(role))
			if err := validateUser(email, role); err != nil {
				return err
			}
			password := os.Getenv("STAFFCTL_PASSWORD")
			if password == "" {
				return errors.New("STAFFCTL_PASSWORD is not set")
			}

			cfg := config.Load()
			db, err := database.Open(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			id, err := repository.NewUserRepo(db).Create(ctx, email, password, role, cfg.BcryptCost)
			if errors.Is(err, repository.ErrEmailExists) {
				return fmt.Errorf("user %s already exists", email)
			}
			if errors.Is(err, utils.ErrInvalidPassword) {
				return fmt.Errorf("STAFFCTL_PASSWORD: %w", err)
			}
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (id %d)\n", role, email, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&role, "role", model.RoleStaff, "ADMIN or STAFF")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func validateUser(email, role string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q", email)
	}
	if role != model.RoleAdmin && role != model.RoleStaff {
		return fmt.Errorf("invalid role %q: want %s or %s", role, model.RoleAdmin, model.RoleStaff)
	}
	return nil
}
