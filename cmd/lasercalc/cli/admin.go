package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/readyluo/lasercalcpro-sub004/internal/audit"
	"github.com/readyluo/lasercalcpro-sub004/internal/model"
	"github.com/readyluo/lasercalcpro-sub004/internal/store"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin users",
		Long:  "Create, list, re-password and delete back-office accounts.",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminListCmd())
	cmd.AddCommand(newAdminPasswdCmd())
	cmd.AddCommand(newAdminDeleteCmd())

	return cmd
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var in model.NewAdmin

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin user",
		Example: `  lasercalc admin create --username admin --email admin@example.com --password secret
  lasercalc admin create --username editor1 --email ed@example.com --role editor  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCreate(in)
		},
	}

	cmd.Flags().StringVar(&in.Username, "username", "", "Login name (required)")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (prompted if omitted)")
	cmd.Flags().StringVar(&in.DisplayName, "name", "", "Display name")
	cmd.Flags().StringVar(&in.Role, "role", model.RoleAdmin, "Role tag: admin or editor")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runAdminCreate(in model.NewAdmin) error {
	if in.Password == "" {
		pw, err := readPassword("Password: ", true)
		if err != nil {
			return err
		}
		in.Password = pw
	}

	svc, _, err := openServices()
	if err != nil {
		return err
	}
	defer svc.close()

	ctx := context.Background()
	admin, err := svc.creds.Create(ctx, in)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("username or email already in use")
		}
		return fmt.Errorf("create admin: %w", err)
	}

	svc.audit.Record(ctx, model.AuditEntry{
		Action:      model.AuditCreate,
		Module:      model.AuditModuleUsers,
		Description: "Created admin user: " + admin.Username,
		Payload:     audit.Payload(map[string]interface{}{"id": admin.ID, "role": admin.Role, "source": "cli"}),
		IPAddress:   cliIP,
	})

	fmt.Printf("Created admin user %q (id=%d, role=%s)\n", admin.Username, admin.ID, admin.Role)
	return nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all admin users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminList(jsonOutput bool) error {
	svc, _, err := openServices()
	if err != nil {
		return err
	}
	defer svc.close()

	admins, err := svc.creds.List(context.Background())
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}

	if jsonOutput {
		return printJSON(os.Stdout, admins)
	}

	if len(admins) == 0 {
		fmt.Println("No admin users configured. Use 'lasercalc admin create' to create one.")
		return nil
	}

	fmt.Printf("%-6s %-20s %-30s %-8s %-8s %-20s\n", "ID", "USERNAME", "EMAIL", "ROLE", "ACTIVE", "LAST LOGIN")
	fmt.Printf("%-6s %-20s %-30s %-8s %-8s %-20s\n", "--", "--------", "-----", "----", "------", "----------")
	for _, a := range admins {
		active := "yes"
		if !a.IsActive {
			active = "no"
		}
		last := "never"
		if a.LastLogin != nil {
			last = a.LastLogin.Format("2006-01-02 15:04")
		}
		fmt.Printf("%-6d %-20s %-30s %-8s %-8s %-20s\n",
			a.ID, truncate(a.Username, 20), truncate(a.Email, 30), a.Role, active, last)
	}

	return nil
}

// ---------- admin passwd ----------

func newAdminPasswdCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Set a new password for an admin user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminPasswd(args[0], password)
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "New password (prompted if omitted)")

	return cmd
}

func runAdminPasswd(username, password string) error {
	if password == "" {
		pw, err := readPassword("New password: ", true)
		if err != nil {
			return err
		}
		password = pw
	}

	svc, _, err := openServices()
	if err != nil {
		return err
	}
	defer svc.close()

	ctx := context.Background()
	admin, err := svc.store.GetAdminByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("admin %q: %w", username, err)
	}
	if err := svc.creds.ChangePassword(ctx, admin.ID, password); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	svc.audit.Record(ctx, model.AuditEntry{
		Action:      model.AuditEdit,
		Module:      model.AuditModuleUsers,
		Description: "Changed admin password",
		Payload:     audit.Payload(map[string]interface{}{"id": admin.ID, "source": "cli"}),
		IPAddress:   cliIP,
	})

	fmt.Printf("Password updated for %q\n", username)
	return nil
}

// ---------- admin delete ----------

func newAdminDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <username>",
		Aliases: []string{"rm"},
		Short:   "Delete an admin user",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminDelete(args[0])
		},
	}
	return cmd
}

func runAdminDelete(username string) error {
	svc, _, err := openServices()
	if err != nil {
		return err
	}
	defer svc.close()

	ctx := context.Background()
	admin, err := svc.store.GetAdminByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("admin %q: %w", username, err)
	}
	if err := svc.creds.Delete(ctx, admin.ID); err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}

	svc.audit.Record(ctx, model.AuditEntry{
		Action:      model.AuditDelete,
		Module:      model.AuditModuleUsers,
		Description: "Deleted admin user",
		Payload:     audit.Payload(map[string]interface{}{"id": admin.ID, "username": admin.Username, "source": "cli"}),
		IPAddress:   cliIP,
	})

	fmt.Printf("Deleted admin user %q\n", username)
	return nil
}
