package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edudash/credential-service/internal/pkg/hashcodec"
)

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <password>",
		Short: "Print the canonical hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return fmt.Errorf("password must not be empty")
			}
			h, err := hashcodec.New().Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <password> <stored-hash>",
		Short: "Check a password against a stored hash and explain the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := hashcodec.New().Check(args[0], args[1])
			fmt.Fprintf(cmd.OutOrStdout(), "valid=%t format=%s reason=%s\n", out.Valid(), out.Format, out.Reason)
			return nil
		},
	}
}
