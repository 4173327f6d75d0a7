package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/spf13/cobra"
)

// principalView adds the explicit grants that domain.Principal keeps out of JSON
type principalView struct {
	domain.Principal
	Capabilities []domain.Capability `json:"capabilities"`
}

func viewPrincipal(p domain.Principal) principalView {
	return principalView{Principal: p, Capabilities: p.Capabilities.List()}
}

func newPrincipalCmd(e *env) *cobra.Command {
	principalCmd := &cobra.Command{
		Use:   "principal",
		Short: "Manage principals",
	}

	principalCmd.AddCommand(newPrincipalAddCmd(e))
	principalCmd.AddCommand(newPrincipalListCmd(e))
	return principalCmd
}

func newPrincipalAddCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a principal",
		Long:  `Add a user with a role and optional extra capabilities.`,
		Args:  cobra.NoArgs,
		RunE: e.runE(func(cmd *cobra.Command, _ []string) error {
			if err := e.requireSQL("principal add"); err != nil {
				return err
			}

			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			rawRole, _ := cmd.Flags().GetString("role")
			rawCaps, _ := cmd.Flags().GetStringSlice("capability")

			if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
				return fmt.Errorf("name and email must not be empty")
			}
			role, err := domain.ParseRole(rawRole)
			if err != nil {
				return err
			}
			caps := make([]domain.Capability, 0, len(rawCaps))
			for _, raw := range rawCaps {
				c, err := domain.ParseCapability(raw)
				if err != nil {
					return err
				}
				caps = append(caps, c)
			}

			p := &domain.Principal{
				Name:         strings.TrimSpace(name),
				Email:        strings.TrimSpace(email),
				Role:         role,
				Capabilities: domain.NewCapabilitySet(caps...),
				CreatedAt:    time.Now().UTC(),
			}
			if err := e.services.SQL.CreatePrincipal(cmd.Context(), p); err != nil {
				return fmt.Errorf("error creating principal: %w", err)
			}

			return printJSON(cmd, viewPrincipal(*p))
		}),
	}

	cmd.Flags().StringP("name", "n", "", "display name")
	cmd.Flags().StringP("email", "e", "", "unique email address")
	cmd.Flags().StringP("role", "r", string(domain.RoleStaff), "admin, manager or staff")
	cmd.Flags().StringSlice("capability", nil, "extra capability, repeatable (e.g. dashboard.view)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newPrincipalListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List principals",
		Args:  cobra.NoArgs,
		RunE: e.runE(func(cmd *cobra.Command, _ []string) error {
			if err := e.requireSQL("principal list"); err != nil {
				return err
			}

			principals, err := e.services.SQL.ListPrincipals(cmd.Context())
			if err != nil {
				return fmt.Errorf("error fetching principals: %w", err)
			}

			views := make([]principalView, len(principals))
			for i, p := range principals {
				views[i] = viewPrincipal(p)
			}
			return printJSON(cmd, views)
		}),
	}
}
