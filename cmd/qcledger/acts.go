package main

import (
	"fmt"
	"qcledger/internal/core"
	"strconv"

	"github.com/spf13/cobra"
)

func newActsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acts",
		Short: "Work-acceptance acts of the current object",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List acts in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := newTable(cmd.OutOrStdout())
			for i, act := range a.svc.CurrentScope(cmd.Context()).Acts {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, act.ID, act.Number, act.WorkName, act.NextWork)
			}
			return tw.Flush()
		},
	}

	trashed := &cobra.Command{
		Use:   "trash-list",
		Short: "List trashed acts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := newTable(cmd.OutOrStdout())
			for _, entry := range a.svc.CurrentScope(cmd.Context()).DeletedActs {
				group := ""
				if entry.AssociatedGroup != nil {
					group = entry.AssociatedGroup.Name
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", entry.Act.ID, entry.Act.Number, entry.DeletedOn.Format("2006-01-02 15:04"), group)
			}
			return tw.Flush()
		},
	}

	trash := &cobra.Command{
		Use:   "trash ID...",
		Short: "Move acts to the trash",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.MoveActsToTrash(cmd.Context(), splitIDs(args))
			printWarnings(cmd.ErrOrStderr(), res)
			return err
		},
	}

	var groups string
	restore := &cobra.Command{
		Use:   "restore ID...",
		Short: "Restore acts from the trash",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decision, err := parseGroupDecision(groups)
			if err != nil {
				return err
			}
			res, err := a.svc.RestoreActs(cmd.Context(), splitIDs(args), decision)
			printWarnings(cmd.ErrOrStderr(), res)
			return err
		},
	}
	restore.Flags().StringVar(&groups, "groups", "", "what to do with deleted commission groups: restore or skip")

	purge := &cobra.Command{
		Use:   "purge ID...",
		Short: "Permanently delete trashed acts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.svc.PermanentlyDeleteActs(cmd.Context(), splitIDs(args))
			return err
		},
	}

	del := &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete acts without the trash",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.svc.DeleteActs(cmd.Context(), splitIDs(args))
			return err
		},
	}

	move := &cobra.Command{
		Use:   "move ID INDEX",
		Short: "Move an act to a new position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[1], err)
			}
			_, err = a.svc.MoveAct(cmd.Context(), args[0], index)
			return err
		},
	}

	undo := &cobra.Command{
		Use:   "undo",
		Short: "Undo the last change to the act list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := a.svc.Undo(cmd.Context())
			return err
		},
	}

	redo := &cobra.Command{
		Use:   "redo",
		Short: "Redo the last undone change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := a.svc.Redo(cmd.Context())
			return err
		},
	}

	cmd.AddCommand(list, trashed, trash, restore, purge, del, move, undo, redo)
	return cmd
}

func parseGroupDecision(v string) (core.GroupDecision, error) {
	switch v {
	case "":
		return core.GroupsUndecided, nil
	case "restore":
		return core.RestoreGroups, nil
	case "skip":
		return core.SkipGroups, nil
	default:
		return core.GroupsUndecided, fmt.Errorf("unknown group decision %q (want restore or skip)", v)
	}
}
