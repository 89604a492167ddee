package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/kgbuilder/internal/config"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Manage stored graph snapshots",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotsList,
}

var snapshotsDeleteCmd = &cobra.Command{
	Use:   "delete <snapshot>...",
	Short: "Delete stored snapshots",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSnapshotsDelete,
}

func init() {
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsDeleteCmd)
}

func runSnapshotsList(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(config.ValidationContextMerge).Err(); err != nil {
		return err
	}
	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	infos, err := store.ListSnapshots(cmd.Context())
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No snapshots")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "ID\tLABEL\tNODES\tEDGES\tNODE TYPES\tCREATED")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			info.ID, info.Label, info.NodeCount, info.EdgeCount, info.NodeTypes,
			info.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runSnapshotsDelete(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(config.ValidationContextMerge).Err(); err != nil {
		return err
	}
	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, id := range args {
		if err := store.DeleteSnapshot(cmd.Context(), id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		logger.WithField("snapshot", id).Info("Snapshot deleted")
	}
	return nil
}
