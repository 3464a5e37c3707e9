/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/riskmap/pkg/storage"
)

var errNoContainer = errors.New("dependency container not initialized")

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the versioned map archive",
	Long: `Store, list and retrieve map revisions in the local archive. Every stored
blob is verified on the way in and again on the way out.`,
}

var archivePutCmd = &cobra.Command{
	Use:   "put <file.rkm>...",
	Short: "Store maps as new revisions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withArchive(cmd, func(a *storage.Archive) error {
			for _, path := range args {
				blob, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				rev, err := a.Put(cmd.Context(), blob)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if rev.Deduplicated {
					cmd.Printf("%s unchanged at revision %s\n", rev.Codename, rev.ID)
					continue
				}
				cmd.Printf("%s stored as revision %s\n", rev.Codename, rev.ID)
			}
			return nil
		})
	},
}

var archiveGetCmd = &cobra.Command{
	Use:   "get <codename>",
	Short: "Write the latest (or a given) revision of a map to a file",
	Long: `Write a stored map to a file. Without --revision the latest revision of
the codename is used.

Examples:
  rkm archive get abc -o abc.rkm
  rkm archive get abc --revision 2Dp7BsCAwQYkUXYvvLjZnPvO1Ag -o abc-old.rkm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		revision, _ := cmd.Flags().GetString("revision")
		out, _ := cmd.Flags().GetString("output")

		return withArchive(cmd, func(a *storage.Archive) error {
			if revision == "" {
				rev, err := a.Latest(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				revision = rev.ID
			}
			blob, err := a.Blob(cmd.Context(), revision)
			if err != nil {
				return err
			}
			if out == "" {
				out = args[0] + ".rkm"
			}
			if err := os.WriteFile(out, blob, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			cmd.Printf("Wrote revision %s to %s\n", revision, out)
			return nil
		})
	},
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the latest revision of every map",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withArchive(cmd, func(a *storage.Archive) error {
			revs, err := a.List(cmd.Context())
			if err != nil {
				return err
			}
			return printRevisions(cmd, revs)
		})
	},
}

var archiveHistoryCmd = &cobra.Command{
	Use:   "history <codename>",
	Short: "List every revision of a map, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withArchive(cmd, func(a *storage.Archive) error {
			revs, err := a.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRevisions(cmd, revs)
		})
	},
}

// withArchive opens the configured archive for the duration of fn.
func withArchive(cmd *cobra.Command, fn func(a *storage.Archive) error) error {
	if container == nil {
		return errNoContainer
	}
	cfg := configFrom(cmd)
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	a, err := container.OpenArchive(cfg.DataDir)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printRevisions(cmd *cobra.Command, revs []*storage.Revision) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODENAME\tREVISION\tCREATED\tSIZE\tTERRITORIES\tDISPLAY NAME")
	for _, rev := range revs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			rev.Codename, rev.ID, rev.CreatedAt.Format(time.RFC3339), rev.Size, rev.Territories, rev.DisplayName)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archivePutCmd, archiveGetCmd, archiveListCmd, archiveHistoryCmd)
	archiveGetCmd.Flags().String("revision", "", "Revision id (default latest)")
	archiveGetCmd.Flags().StringP("output", "o", "", "Output file (default <codename>.rkm)")
}
