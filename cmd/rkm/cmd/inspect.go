/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ssargent/riskmap/pkg/codec"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <file.rkm>",
	Short: "List the records of an .rkm file",
	Long: `Walk the record framing of an .rkm file without interpreting payloads and
print each record's tag, field, offset and length along with checksum validity.

Examples:
  rkm inspect abc.rkm
  rkm inspect abc.rkm --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}

		layout, err := codec.Inspect(f, info.Size())
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(layout)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TAG\tFIELD\tOFFSET\tLENGTH")
		for _, rec := range layout.Records {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", rec.Tag, rec.Field, rec.Offset, rec.Length)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		cmd.Printf("size: %d bytes, checksum valid: %t\n", layout.Size, layout.ChecksumValid)
		if !layout.ChecksumValid {
			return fmt.Errorf("%s: %w", args[0], codec.ErrChecksumMismatch)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("json", false, "Print the layout as JSON")
}
