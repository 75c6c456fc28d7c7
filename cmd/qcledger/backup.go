package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"qcledger/internal/backup"
	"qcledger/internal/core"
	"qcledger/pkg/domain"
	"time"

	"github.com/spf13/cobra"
)

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export and import ledger backups",
	}

	var (
		prefix string
		flat   string
	)
	export := &cobra.Command{
		Use:   "export",
		Short: "Export every collection to the blob store or a flat JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data := a.svc.Export(cmd.Context())
			if flat != "" {
				return writeFlat(cmd.OutOrStdout(), flat, data)
			}
			if prefix == "" {
				prefix = time.Now().UTC().Format("20060102T150405Z")
			}
			if err := backup.WriteTree(cmd.Context(), a.blobStore(), prefix, data); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prefix)
			return nil
		},
	}
	export.Flags().StringVar(&prefix, "prefix", "", "blob key prefix of the archive tree (default: UTC timestamp)")
	export.Flags().StringVar(&flat, "flat", "", "write a flat JSON backup to this file instead (- for stdout)")

	var (
		from     string
		flatIn   string
		merge    bool
		resort   bool
		selected []string
	)
	imp := &cobra.Command{
		Use:   "import",
		Short: "Import a backup from the blob store or a flat JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, decodeErr := readBackup(cmd, a, from, flatIn)
			var invalid domain.ImportValidationError
			if decodeErr != nil && !errors.As(decodeErr, &invalid) {
				return decodeErr
			}
			policy := core.ImportPolicy{Mode: core.ImportReplace, SelectedIDs: splitIDs(selected), Resort: resort}
			if merge {
				policy.Mode = core.ImportMerge
				if len(policy.SelectedIDs) == 0 {
					policy.SelectedIDs = recordIDs(data)
				}
			}
			res, err := a.svc.Import(cmd.Context(), data, policy)
			printWarnings(cmd.ErrOrStderr(), res)
			return errors.Join(decodeErr, err)
		},
	}
	imp.Flags().StringVar(&from, "prefix", "", "blob key prefix of the archive tree")
	imp.Flags().StringVar(&flatIn, "flat", "", "read a flat JSON backup from this file (- for stdin)")
	imp.Flags().BoolVar(&merge, "merge", false, "merge selected records instead of replacing collections")
	imp.Flags().BoolVar(&resort, "resort", false, "re-sort imported collections into display order")
	imp.Flags().StringSliceVar(&selected, "select", nil, "record ids to take in merge mode (default: all)")
	imp.MarkFlagsMutuallyExclusive("prefix", "flat")

	cmd.AddCommand(export, imp)
	return cmd
}

func writeFlat(stdout io.Writer, target string, data domain.ImportData) error {
	if target == "-" {
		return backup.EncodeFlat(stdout, data)
	}
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	if err := backup.EncodeFlat(f, data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readBackup(cmd *cobra.Command, a *app, prefix, flat string) (domain.ImportData, error) {
	switch {
	case flat == "-":
		return backup.DecodeFlat(cmd.InOrStdin())
	case flat != "":
		f, err := os.Open(flat)
		if err != nil {
			return domain.ImportData{}, fmt.Errorf("open backup file: %w", err)
		}
		defer f.Close()
		return backup.DecodeFlat(f)
	case prefix != "":
		return backup.ReadTree(cmd.Context(), a.blobStore(), prefix)
	default:
		return domain.ImportData{}, errors.New("either --prefix or --flat is required")
	}
}

// recordIDs lists the ids of every incoming record.
func recordIDs(data domain.ImportData) []string {
	var ids []string
	ids = appendIDs(ids, data.Objects)
	ids = appendIDs(ids, data.Organizations)
	ids = appendIDs(ids, data.People)
	ids = appendIDs(ids, data.Groups)
	ids = appendIDs(ids, data.Acts)
	ids = appendIDs(ids, data.DeletedActs)
	ids = appendIDs(ids, data.Certificates)
	ids = appendIDs(ids, data.DeletedCertificates)
	return appendIDs(ids, data.Regulations)
}

func appendIDs[T domain.Record[T]](ids []string, records []T) []string {
	for _, r := range records {
		ids = append(ids, r.RecordID())
	}
	return ids
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print record counts of the current object and operation metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope := a.svc.CurrentScope(cmd.Context())
			out := map[string]any{
				"object":              scope.Object.Name,
				"people":              len(scope.People),
				"organizations":       len(scope.Organizations),
				"groups":              len(scope.Groups),
				"acts":                len(scope.Acts),
				"certificates":        len(scope.Certificates),
				"regulations":         len(scope.Regulations),
				"deletedActs":         len(scope.DeletedActs),
				"deletedCertificates": len(scope.DeletedCertificates),
				"canUndo":             a.svc.CanUndo(),
				"canRedo":             a.svc.CanRedo(),
			}
			metrics, err := a.metricsSnapshot()
			if err != nil {
				return err
			}
			if metrics != nil {
				out["metrics"] = metrics
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
