package main

import (
	"fmt"
	"qcledger/pkg/domain"

	"github.com/spf13/cobra"
)

func newObjectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "objects",
		Short: "Manage construction objects",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List construction objects; the current one is marked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := newTable(cmd.OutOrStdout())
			current := a.svc.CurrentObjectID()
			for _, obj := range a.svc.Objects(cmd.Context()) {
				marker := " "
				if obj.ID == current {
					marker = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", marker, obj.ID, obj.Name)
			}
			return tw.Flush()
		},
	}

	var short string
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a construction object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, _, err := a.svc.CreateObject(cmd.Context(), domain.ConstructionObject{Name: args[0], ShortName: short})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), obj.ID)
			return nil
		},
	}
	create.Flags().StringVar(&short, "short", "", "short display name")

	rename := &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a construction object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, obj := range a.svc.Objects(cmd.Context()) {
				if obj.ID == args[0] {
					obj.Name = args[1]
					_, _, err := a.svc.UpdateObject(cmd.Context(), obj)
					return err
				}
			}
			return domain.NotFoundError{Entity: domain.EntityObject, ID: args[0]}
		},
	}

	use := &cobra.Command{
		Use:   "use ID",
		Short: "Switch the current construction object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.svc.SetCurrentObject(cmd.Context(), args[0])
		},
	}

	var cloneName string
	clone := &cobra.Command{
		Use:   "clone ID",
		Short: "Deep-copy an object with all of its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, res, err := a.svc.CloneObject(cmd.Context(), args[0], cloneName)
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), res)
			fmt.Fprintln(cmd.OutOrStdout(), obj.ID)
			return nil
		},
	}
	clone.Flags().StringVar(&cloneName, "name", "", "name of the copy (default: source name with a copy suffix)")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an object and every record scoped to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.svc.DeleteObject(cmd.Context(), args[0])
			return err
		},
	}

	cmd.AddCommand(list, create, rename, use, clone, del)
	return cmd
}
