package main

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/pscheid92/arenadesk/internal/adapter/directus"
	"github.com/spf13/cobra"
)

var bookingActions = []string{"create", "read", "update"}

func newGrantPermissionsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "grant-permissions",
		Short: "Let the role create, read and update bookings of its own arena",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireAdmin(); err != nil {
				return err
			}
			return c.grantBookingPermissions(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

// ownArenaFilter restricts rows to the arena assigned to the current user.
func ownArenaFilter(action string) map[string]any {
	rule := map[string]any{"arena": map[string]any{"_eq": "$CURRENT_USER.arena"}}
	if action == "create" {
		return map[string]any{"_and": []any{rule}}
	}
	return rule
}

func (c *cli) grantBookingPermissions(ctx context.Context, out io.Writer) error {
	role, err := c.admin.RoleByName(ctx, c.role)
	if err != nil {
		return fmt.Errorf("failed to look up role: %w", err)
	}
	if role == nil {
		return fmt.Errorf("role %s not found; create it under Settings > Access Control", c.role)
	}
	fmt.Fprintf(out, "Role %s (%s)\n", role.Name, role.ID)

	existing, err := c.admin.Permissions(ctx, role.ID, "bookings")
	if err != nil {
		return fmt.Errorf("failed to list permissions: %w", err)
	}
	have := make([]string, 0, len(existing))
	for _, p := range existing {
		have = append(have, p.Action)
	}

	for _, action := range bookingActions {
		if slices.Contains(have, action) {
			fmt.Fprintf(out, "  bookings %s already granted\n", action)
			continue
		}
		err := c.admin.CreatePermission(ctx, map[string]any{
			"role":        role.ID,
			"collection":  "bookings",
			"action":      action,
			"fields":      []string{"*"},
			"permissions": ownArenaFilter(action),
			"validation":  nil,
			"presets":     nil,
		})
		if err != nil {
			return fmt.Errorf("failed to grant bookings %s: %w", action, err)
		}
		fmt.Fprintf(out, "  bookings %s granted\n", action)
	}

	field, err := c.userArenaField(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(out, "could not inspect directus_users fields: %v\n", err)
	case field == nil:
		fmt.Fprintln(out, "warning: directus_users has no arena field; the filter will match nothing")
	}
	return nil
}

// grantRead adds a read permission on collection unless one exists.
func (c *cli) grantRead(ctx context.Context, role *directus.Role, collection string) (bool, error) {
	existing, err := c.admin.Permissions(ctx, role.ID, collection)
	if err != nil {
		return false, err
	}
	for _, p := range existing {
		if p.Action == "read" {
			return false, nil
		}
	}
	err = c.admin.CreatePermission(ctx, map[string]any{
		"role":       role.ID,
		"collection": collection,
		"action":     "read",
		"fields":     []string{"*"},
	})
	return err == nil, err
}
