// Command admin is the operator tool for the group-buy API: password hashing,
// account creation and datastore exports.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/groupbuy_api/internal/config"
	"github.com/GTDGit/groupbuy_api/internal/datastore"
	"github.com/GTDGit/groupbuy_api/internal/models"
	"github.com/GTDGit/groupbuy_api/internal/repository"
	"github.com/GTDGit/groupbuy_api/internal/service"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "admin",
		Short:        "Operator commands for the group-buy API",
		SilenceUsage: true,
	}
	root.AddCommand(newHashPasswordCmd(), newCreateUserCmd(), newExportCmd())
	return root
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <plain>",
		Short: "Print a bcrypt hash for a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
}

func newCreateUserCmd() *cobra.Command {
	var username, password, role string
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a back-office account",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			users := service.NewUserService(store, repository.NewUserRepository(store))
			view, err := users.Create(ctx, service.CreateUserInput{
				Username: username,
				Password: password,
				Role:     models.Role(role),
			})
			if err != nil {
				return err
			}
			log.Info().Str("username", view.Username).Str("role", string(view.Role)).Msg("User created")
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&role, "role", string(models.RoleStaff), "admin or staff")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole datastore as a JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			data, err := store.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(out, data, 0o600)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "-", "destination file, - for stdout")
	return cmd
}

// openStore opens the datastore named by the environment. Postgres schemas
// are expected to be migrated by the API server. A file datastore can only
// be opened while the API server is stopped, since the server keeps the
// whole document in memory and would overwrite changes made here.
func openStore() (datastore.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Datastore.Driver == "postgres" {
		return datastore.OpenPostgres(&cfg.DB)
	}
	store, err := datastore.OpenFile(cfg.Datastore.Path)
	if errors.Is(err, datastore.ErrLocked) {
		return nil, fmt.Errorf("%s is in use, stop the API server first: %w", cfg.Datastore.Path, err)
	}
	return store, err
}
