package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/edudash/credential-service/internal/core/domain"
)

func newTenantsCmd(c *cli) *cobra.Command {
	var email, endpoint string

	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "List tenants or resolve one by email or endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config(cmd.Context())
			if err != nil {
				return err
			}
			reg, err := c.registry(cfg)
			if err != nil {
				return err
			}

			var projects []domain.TenantProject
			switch {
			case email != "":
				p, ok := reg.ResolveByEmail(email)
				if !ok {
					return fmt.Errorf("no tenant serves %s", email)
				}
				projects = append(projects, p)
			case endpoint != "":
				p, ok := reg.ResolveByConnection(endpoint)
				if !ok {
					return fmt.Errorf("no tenant uses endpoint %s", endpoint)
				}
				projects = append(projects, p)
			default:
				projects = reg.Projects()
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DOMAIN\tNAME\tDATABASE")
			for _, p := range projects {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Domain, p.DisplayName, p.Connection.Database)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "resolve the tenant serving this email address")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "resolve the tenant using this connection endpoint")
	cmd.MarkFlagsMutuallyExclusive("email", "endpoint")
	return cmd
}
