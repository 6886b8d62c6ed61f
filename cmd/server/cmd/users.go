package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bomanihosts/backend/internal/config"
	"github.com/bomanihosts/backend/internal/domain/users"
	"github.com/spf13/cobra"
)

type accountAdmin interface {
	SetActive(ctx context.Context, id int64, active bool) error
}

// openAccounts is swapped in tests.
var openAccounts = func(ctx context.Context, cfg config.Config) (accountAdmin, func(), error) {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return store.Users(), closeStore, nil
}

func newUsersCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
		Long: `Lock or unlock user accounts. A deactivated account can no longer log in,
refresh tokens or read its profile.`,
	}
	cmd.AddCommand(
		setActiveCommand(root, "activate", "Allow an account to authenticate again", true),
		setActiveCommand(root, "deactivate", "Lock an account out", false),
	)
	return cmd
}

func setActiveCommand(root *rootOptions, use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			cfg, err := loadConfig(root)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			admin, closeFn, err := openAccounts(commandContext(cmd), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			auditLog := newAuditLogger(cmd)
			resourceID := strconv.FormatInt(id, 10)
			if err := admin.SetActive(commandContext(cmd), id, active); err != nil {
				auditLog.LogFailure("user."+use, auditActor(), "user", resourceID, err)
				if errors.Is(err, users.ErrUserNotFound) {
					return fmt.Errorf("user %d not found", id)
				}
				return fmt.Errorf("%s user: %w", use, err)
			}
			auditLog.LogSuccess("user."+use, auditActor(), "user", resourceID, nil)
			fmt.Fprintf(cmd.OutOrStdout(), "user %d %sd\n", id, use)
			return nil
		},
	}
}
