package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"insightportal/internal/auth"
	"insightportal/internal/models"
	"insightportal/internal/redis"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage portal accounts",
	Long: `Manage portal accounts in the credential store.

Available subcommands:
  import - Load pre-hashed accounts from a username,password_hash,role file
  seed   - Register the accounts listed in a YAML seed file
  add    - Register a single account
  revoke - Log an account out everywhere by deleting its tokens`,
}

var usersImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import pre-hashed accounts",
	Long: `Import newline-delimited username,password_hash,role lines.

Hashes must already be bcrypt hashes and are stored as given. Malformed lines
and usernames that already exist are skipped and reported.`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersImport,
}

var usersSeedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Register accounts from a YAML seed file",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersSeed,
}

var addPassword string

var usersAddCmd = &cobra.Command{
	Use:   "add <username> <role>",
	Short: "Register a single account",
	Args:  cobra.ExactArgs(2),
	RunE:  runUsersAdd,
}

var usersRevokeCmd = &cobra.Command{
	Use:   "revoke <username>",
	Short: "Delete every login token of an account",
	Long: `Delete every login token of an account. Open sessions stop working on
their next request and the chat history bound to those tokens is removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersRevoke,
}

func init() {
	usersAddCmd.Flags().StringVarP(&addPassword, "password", "p", "", "password for the new account")
	usersAddCmd.MarkFlagRequired("password")
	usersCmd.AddCommand(usersImportCmd, usersSeedCmd, usersAddCmd, usersRevokeCmd)
}

func runUsersImport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.store().ImportFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	for _, s := range report.Skipped {
		a.logger.Warn("skipped import line", zap.Int("line", s.Line), zap.String("username", s.Username), zap.Error(s.Reason))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d users, skipped %d (%d duplicates)\n",
		report.Inserted, len(report.Skipped), report.Duplicates())
	return nil
}

func runUsersSeed(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.store().SeedFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users\n", n)
	return nil
}

func runUsersAdd(cmd *cobra.Command, args []string) error {
	role, ok := models.ParseRole(args[1])
	if !ok {
		return fmt.Errorf("unknown role %q (want one of %v)", args[1], models.Roles)
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.store().Register(cmd.Context(), args[0], addPassword, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d, role %s)\n", user.Username, user.ID, user.Role)
	return nil
}

func runUsersRevoke(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.store().GetUser(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	var cache *redis.Client
	if a.cfg.Redis.Enabled {
		cache, err = redis.NewRedisClient(a.cfg.Redis)
		if err != nil {
			return fmt.Errorf("create redis client: %w", err)
		}
		defer cache.Close()
	}
	authService := auth.NewService(a.db, cache, time.Duration(a.cfg.BasicConfig.TokenTTL)*time.Minute, a.logger.Named("auth"))
	n, err := authService.RevokeUserTokens(cmd.Context(), user.ID)
	if err != nil {
		return err
	}
	a.logger.Info("revoked user tokens", zap.String("username", user.Username), zap.Int64("tokens", n))
	fmt.Fprintf(cmd.OutOrStdout(), "revoked %d tokens for %s\n", n, user.Username)
	return nil
}
