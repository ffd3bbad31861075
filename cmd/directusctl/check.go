package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/pscheid92/arenadesk/internal/adapter/directus"
	"github.com/spf13/cobra"
)

func newCheckCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report what the Directus project is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := &checkReport{out: cmd.OutOrStdout()}
			c.runCheck(cmd.Context(), r)
			if r.failures > 0 {
				return fmt.Errorf("%d check(s) failed", r.failures)
			}
			return nil
		},
	}
}

type checkReport struct {
	out      io.Writer
	failures int
}

func (r *checkReport) section(title string) { fmt.Fprintf(r.out, "\n%s\n", title) }
func (r *checkReport) ok(format string, args ...any) {
	fmt.Fprintf(r.out, "  ok    %s\n", fmt.Sprintf(format, args...))
}
func (r *checkReport) warn(format string, args ...any) {
	fmt.Fprintf(r.out, "  warn  %s\n", fmt.Sprintf(format, args...))
}
func (r *checkReport) fail(format string, args ...any) {
	r.failures++
	fmt.Fprintf(r.out, "  FAIL  %s\n", fmt.Sprintf(format, args...))
}

func (c *cli) runCheck(ctx context.Context, r *checkReport) {
	fmt.Fprintf(r.out, "Directus: %s\n", c.cfg.DirectusURL)

	r.section("Server")
	if err := c.admin.ServerHealth(ctx); err != nil {
		r.fail("server unreachable: %v", err)
		return
	}
	r.ok("server reachable")

	if c.cfg.AdminToken == "" {
		r.warn("DIRECTUS_ADMIN_TOKEN not set, skipping collection, role and field checks")
	} else {
		c.checkGames(ctx, r)
		c.checkBookings(ctx, r)
		roleID := c.checkRoles(ctx, r)
		if roleID != "" {
			c.checkPermissions(ctx, r, roleID)
		}
		c.checkUserArenaField(ctx, r)
	}

	if c.cfg.UserToken != "" {
		r.section("User token")
		if _, err := c.admin.Sample(ctx, "bookings", c.cfg.UserToken, 1); err != nil {
			r.fail("user token cannot read bookings: %v", err)
		} else {
			r.ok("user token can read bookings")
		}
	}
}

func (c *cli) checkGames(ctx context.Context, r *checkReport) {
	r.section("Games")
	games, err := c.admin.Sample(ctx, "games", "", 3, "id", "name", "price_per_player", "category")
	if err != nil {
		r.fail("games not readable: %v", err)
		return
	}
	r.ok("games readable (%d sampled)", len(games))
	if len(games) == 0 {
		return
	}
	for _, field := range []string{"id", "name", "price_per_player", "category"} {
		if _, ok := games[0][field]; ok {
			r.ok("field %s present", field)
		} else {
			r.warn("field %s missing, see `directusctl add-field`", field)
		}
	}
}

func (c *cli) checkBookings(ctx context.Context, r *checkReport) {
	r.section("Bookings")
	_, err := c.admin.Sample(ctx, "bookings", "", 1)
	switch {
	case err == nil:
		r.ok("bookings readable")
	case directus.StatusOf(err) == http.StatusForbidden:
		r.fail("no access to bookings (403)")
	default:
		r.fail("bookings not readable: %v", err)
	}
}

func (c *cli) checkRoles(ctx context.Context, r *checkReport) string {
	r.section("Roles")
	roles, err := c.admin.Roles(ctx)
	if err != nil {
		r.fail("roles not readable: %v", err)
		return ""
	}

	var roleID string
	for _, role := range roles {
		marker := ""
		if role.Name == c.role {
			roleID, marker = role.ID, " <-"
		}
		fmt.Fprintf(r.out, "        %s%s\n", role.Name, marker)
	}
	if roleID == "" {
		r.fail("role %s not found", c.role)
	}
	return roleID
}

func (c *cli) checkPermissions(ctx context.Context, r *checkReport, roleID string) {
	r.section("Permissions for " + c.role)
	perms, err := c.admin.Permissions(ctx, roleID, "")
	if err != nil {
		r.fail("permissions not readable: %v", err)
		return
	}

	byCollection := make(map[string][]string)
	for _, p := range perms {
		byCollection[p.Collection] = append(byCollection[p.Collection], p.Action)
	}
	collections := make([]string, 0, len(byCollection))
	for name := range byCollection {
		collections = append(collections, name)
	}
	sort.Strings(collections)
	for _, name := range collections {
		fmt.Fprintf(r.out, "        %s: %s\n", name, strings.Join(byCollection[name], ", "))
	}

	for _, need := range []struct{ collection, action string }{
		{"bookings", "create"},
		{"bookings", "read"},
		{"clients", "create"},
		{"clients", "read"},
	} {
		if slices.Contains(byCollection[need.collection], need.action) {
			r.ok("%s %s", need.collection, need.action)
		} else {
			r.fail("%s %s missing", need.collection, need.action)
		}
	}
}

func (c *cli) checkUserArenaField(ctx context.Context, r *checkReport) {
	r.section("User arena field")
	field, err := c.userArenaField(ctx)
	switch {
	case err != nil:
		r.fail("directus_users fields not readable: %v", err)
	case field == nil:
		r.fail("field arena missing on directus_users; add a many-to-one field related to arenas")
	default:
		special := "none"
		if field.Meta != nil && len(field.Meta.Special) > 0 {
			special = strings.Join(field.Meta.Special, ", ")
		}
		r.ok("field arena present (type %s, special %s)", field.Type, special)
	}
}

func (c *cli) userArenaField(ctx context.Context) (*directus.Field, error) {
	fields, err := c.admin.Fields(ctx, "directus_users")
	if err != nil {
		return nil, err
	}
	for i := range fields {
		if fields[i].Field == "arena" {
			return &fields[i], nil
		}
	}
	return nil, nil
}
