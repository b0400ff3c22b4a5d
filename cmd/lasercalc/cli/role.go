package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/readyluo/lasercalcpro-sub004/internal/audit"
	"github.com/readyluo/lasercalcpro-sub004/internal/model"
	"github.com/readyluo/lasercalcpro-sub004/internal/validation"
)

func newRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage roles and permission matrices",
		Long:  "List and create roles, and grant or revoke single module:action cells of a role's matrix.",
	}

	cmd.AddCommand(newRoleListCmd())
	cmd.AddCommand(newRoleCreateCmd())
	cmd.AddCommand(newRoleCellCmd("grant", "Grant an action on a module to a role", true))
	cmd.AddCommand(newRoleCellCmd("revoke", "Revoke an action on a module from a role", false))

	return cmd
}

// ---------- role list ----------

func newRoleListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoleList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runRoleList(jsonOutput bool) error {
	svc, _, err := openServices()
	if err != nil {
		return err
	}
	defer svc.close()

	roles, err := svc.store.ListRoles(context.Background())
	if err != nil {
		return fmt.Errorf("list roles: %w", err)
	}

	if jsonOutput {
		return printJSON(os.Stdout, roles)
	}

	if len(roles) == 0 {
		fmt.Println("No roles configured. Use 'lasercalc role create' to create one.")
		return nil
	}

	fmt.Printf("%-6s %-16s %-24s %s\n", "ID", "SLUG", "NAME", "PERMISSIONS")
	fmt.Printf("%-6s %-16s %-24s %s\n", "--", "----", "----", "-----------")
	for _, r := range roles {
		fmt.Printf("%-6d %-16s %-24s %s\n", r.ID, r.Slug, truncate(r.Name, 24), formatMatrix(r.Permissions))
	}

	return nil
}

// formatMatrix renders a matrix as "module:a,b; module:c".
func formatMatrix(m model.Matrix) string {
	if len(m) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(m))
	for _, module := range m.SortedModules() {
		parts = append(parts, module+":"+strings.Join(m[module], ","))
	}
	return strings.Join(parts, "; ")
}

// parseCells parses "module:action" pairs into a matrix.
func parseCells(cells []string) (model.Matrix, error) {
	m := model.Matrix{}
	for _, cell := range cells {
		module, action, ok := strings.Cut(cell, ":")
		if !ok || module == "" || action == "" {
			return nil, fmt.Errorf("invalid permission %q: expected module:action", cell)
		}
		m = m.Grant(module, action)
	}
	if unknown := m.Unknown(); len(unknown) > 0 {
		return nil, fmt.Errorf("unknown permissions: %s", strings.Join(unknown, ", "))
	}
	return m.Normalize(), nil
}

// ---------- role create ----------

func newRoleCreateCmd() *cobra.Command {
	var (
		name  string
		slug  string
		cells []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new role",
		Example: `  lasercalc role create --name "Content Auditor" --slug auditor --grant settings:view --grant settings:export
  lasercalc role create --name Writer --slug writer --grant articles:view,articles:create`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoleCreate(name, slug, cells)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Role name (required)")
	cmd.Flags().StringVar(&slug, "slug", "", "Role slug (required)")
	cmd.Flags().StringSliceVar(&cells, "grant", nil, "Permissions as module:action (repeatable)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("slug")

	return cmd
}

func runRoleCreate(name, slug string, cells []string) error {
	perms, err := parseCells(cells)
	if err != nil {
		return err
	}

	role := &model.Role{Name: name, Slug: slug, Permissions: perms}
	if err := validation.Struct(role); err != nil {
		return err
	}

	svc, _, err := openServices()
	if err != nil {
		return err
	}
	defer svc.close()

	ctx := context.Background()
	if err := svc.store.CreateRole(ctx, role); err != nil {
		return fmt.Errorf("create role: %w", err)
	}

	svc.audit.Record(ctx, model.AuditEntry{
		Action:      model.AuditCreate,
		Module:      model.AuditModuleRoles,
		Description: "Created role: " + role.Name,
		Payload:     audit.Payload(map[string]interface{}{"id": role.ID, "slug": role.Slug, "permissions": role.Permissions, "source": "cli"}),
		IPAddress:   cliIP,
	})

	fmt.Printf("Created role %q (id=%d)\n", slug, role.ID)
	fmt.Printf("  permissions: %s\n", formatMatrix(role.Permissions))
	return nil
}

// ---------- role grant / revoke ----------

func newRoleCellCmd(use, short string, grant bool) *cobra.Command {
	return &cobra.Command{
		Use:     use + " <slug> <module> <action>",
		Short:   short,
		Example: "  lasercalc role " + use + " editor settings view",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoleCell(args[0], args[1], args[2], grant)
		},
	}
}

func runRoleCell(slug, module, action string, grant bool) error {
	if !model.IsModule(module) {
		return fmt.Errorf("unknown module %q (valid: %s)", module, strings.Join(model.Modules, ", "))
	}
	if !model.IsAction(action) {
		return fmt.Errorf("unknown action %q (valid: %s)", action, strings.Join(model.Actions, ", "))
	}

	svc, _, err := openServices()
	if err != nil {
		return err
	}
	defer svc.close()

	ctx := context.Background()
	role, err := svc.store.GetRoleBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("role %q: %w", slug, err)
	}

	var perms model.Matrix
	verb := "Granted"
	if grant {
		perms = role.Permissions.Grant(module, action)
	} else {
		perms = role.Permissions.Revoke(module, action)
		verb = "Revoked"
	}
	if err := svc.store.UpdateRole(ctx, role.ID, model.RoleUpdate{Permissions: perms.Normalize()}); err != nil {
		return fmt.Errorf("update role: %w", err)
	}

	svc.audit.Record(ctx, model.AuditEntry{
		Action:      model.AuditEdit,
		Module:      model.AuditModuleRoles,
		Description: fmt.Sprintf("%s %s:%s on role %s", verb, module, action, slug),
		Payload:     audit.Payload(map[string]interface{}{"id": role.ID, "permissions": perms, "source": "cli"}),
		IPAddress:   cliIP,
	})

	fmt.Printf("%s %s:%s on role %q\n", verb, module, action, slug)
	return nil
}
