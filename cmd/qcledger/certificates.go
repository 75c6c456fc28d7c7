package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCertificatesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "certificates",
		Aliases: []string{"certs"},
		Short:   "Material certificates of the current object",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List certificates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := newTable(cmd.OutOrStdout())
			for _, cert := range a.svc.CurrentScope(cmd.Context()).Certificates {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", cert.ID, cert.Number, cert.ValidUntil, strings.Join(cert.Materials, "; "), len(cert.Files))
			}
			return tw.Flush()
		},
	}

	trash := &cobra.Command{
		Use:   "trash ID...",
		Short: "Move certificates to the trash",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.svc.MoveCertificatesToTrash(cmd.Context(), splitIDs(args))
			return err
		},
	}

	restore := &cobra.Command{
		Use:   "restore ID...",
		Short: "Restore certificates from the trash",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.svc.RestoreCertificates(cmd.Context(), splitIDs(args))
			return err
		},
	}

	purge := &cobra.Command{
		Use:   "purge ID...",
		Short: "Permanently delete trashed certificates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.svc.PermanentlyDeleteCertificates(cmd.Context(), splitIDs(args))
			return err
		},
	}

	cmd.AddCommand(list, trash, restore, purge)
	return cmd
}
