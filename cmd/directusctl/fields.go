package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pscheid92/arenadesk/internal/adapter/directus"
	"github.com/spf13/cobra"
)

var gameFields = map[string]directus.FieldSpec{
	"price": {
		Field: "price_per_player",
		Type:  "integer",
		Meta: map[string]any{
			"interface": "input",
			"required":  false,
			"note":      "Price per player",
		},
		Schema: map[string]any{
			"name":        "price_per_player",
			"table":       "games",
			"data_type":   "integer",
			"is_nullable": true,
		},
	},
	"category": {
		Field: "category",
		Type:  "string",
		Meta: map[string]any{
			"interface": "input",
			"required":  false,
			"note":      "Game category",
		},
		Schema: map[string]any{
			"name":        "category",
			"table":       "games",
			"data_type":   "character varying",
			"max_length":  255,
			"is_nullable": true,
		},
	},
}

func newAddFieldCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "add-field price|category",
		Short:     "Add price_per_player or category to the games collection",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"price", "category"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireAdmin(); err != nil {
				return err
			}
			return c.addGameField(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}
}

func (c *cli) addGameField(ctx context.Context, out io.Writer, name string) error {
	spec, ok := gameFields[name]
	if !ok {
		return fmt.Errorf("unknown field %q", name)
	}

	err := c.admin.CreateField(ctx, "games", spec)
	switch {
	case errors.Is(err, directus.ErrFieldExists):
		fmt.Fprintf(out, "Field %s already exists\n", spec.Field)
	case err != nil:
		return fmt.Errorf("failed to create field %s: %w", spec.Field, err)
	default:
		fmt.Fprintf(out, "Field %s created\n", spec.Field)
	}

	if _, err := c.admin.Sample(ctx, "games", "", 1, "id", "name", spec.Field); err != nil {
		fmt.Fprintf(out, "warning: field not readable yet, check permissions: %v\n", err)
	} else {
		fmt.Fprintf(out, "Field %s readable\n", spec.Field)
	}

	if name != "price" {
		return nil
	}

	// Branch admins need to read prices to compute booking totals.
	role, err := c.admin.RoleByName(ctx, c.role)
	if err != nil || role == nil {
		fmt.Fprintf(out, "warning: role %s not found, grant games read manually\n", c.role)
		return nil
	}
	granted, err := c.grantRead(ctx, role, "games")
	switch {
	case err != nil:
		fmt.Fprintf(out, "warning: failed to grant games read: %v\n", err)
	case granted:
		fmt.Fprintf(out, "games read granted to %s\n", c.role)
	default:
		fmt.Fprintf(out, "games read already granted to %s\n", c.role)
	}
	return nil
}
