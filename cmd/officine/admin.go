package main

import (
	"context"
	"errors"
	"fmt"

	"officine/internal/config"
	"officine/internal/repository"
	"officine/internal/service"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the first admin account unless the e-mail is already taken",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		password, _ := cmd.Flags().GetString("password")
		if email == "" || password == "" {
			return errors.New("--email and --password are required")
		}

		return withDB(func(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
			auth := service.NewAuthService(repository.NewUserRepository(db), cfg)
			created, err := auth.EnsureAdmin(ctx, email, name, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s created\n", email)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, nothing to do\n", email)
			}
			return nil
		})(cmd, args)
	},
}

var hashCmd = &cobra.Command{
	Use:   "hash <password>",
	Short: "Print a bcrypt hash for a password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(h))
		return nil
	},
}

func init() {
	seedAdminCmd.Flags().String("email", "", "admin e-mail")
	seedAdminCmd.Flags().String("name", "Administrator", "admin full name")
	seedAdminCmd.Flags().String("password", "", "admin password (min 8 characters)")
}
