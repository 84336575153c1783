package cli

import (
	"fmt"
	"livechat/infrastructure/storage"
	"livechat/internal"

	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"
)

type InspectOptions struct {
	*RootOptions
	Database string
	Prefix   string
}

func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Dump the raw content of a badger store",
		Long: `Read a badger store offline and list its keys.

Message keys sort chronologically, index keys point to them.
The store is opened read-only and may be inspected while the server runs.

Examples:
  chatctl inspect --db data/badger
  chatctl inspect --db data/badger --prefix idx:`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the badger directory (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "msg:", "key prefix to scan, empty for every key")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command) error {
	db, err := badger.Open(badger.DefaultOptions(opts.Database).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return fmt.Errorf("open badger: %w", err)
	}
	defer db.Close()

	table := newTable(cmd.OutOrStdout(), []string{"Key", "Type", "Timestamp", "Entity ID", "Detail"})
	count := 0
	err = storage.ScanEntries(db, opts.Prefix, func(e storage.Entry) error {
		count++
		row := internal.DefaultMapper(e)
		table.Append([]string{row.Key, row.Type, row.Timestamp, row.EntityID, row.Detail})
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "%d keys under %q\n", count, opts.Prefix)
	return nil
}
