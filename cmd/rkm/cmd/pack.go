/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/riskmap/pkg/codec"
	"github.com/ssargent/riskmap/pkg/manifest"
)

// packCmd represents the pack command
var packCmd = &cobra.Command{
	Use:   "pack <manifest.yaml>",
	Short: "Encode a map manifest and its layers into an .rkm file",
	Long: `Read a YAML map manifest, load the PNG layers it references and write
the encoded .rkm container.

Examples:
  rkm pack ./abc/map.yaml
  rkm pack ./abc/map.yaml -o abc.rkm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		cfg := configFrom(cmd)

		m, err := manifest.Load(args[0])
		if err != nil {
			return err
		}
		if out == "" {
			out = filepath.Join(filepath.Dir(args[0]), m.Codename()+".rkm")
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		if !cfg.Codec.CloseSink {
			defer f.Close()
		}

		enc := codec.NewEncoder(codec.WithCloseSink(cfg.Codec.CloseSink))
		if err := enc.Encode(m, f); err != nil {
			_ = os.Remove(out)
			return err
		}
		cmd.Printf("Packed %s (%d territories, %d borders) -> %s\n",
			m.Codename(), len(m.Territories()), len(m.Borders()), out)
		return nil
	},
}

// unpackCmd represents the unpack command
var unpackCmd = &cobra.Command{
	Use:   "unpack <file.rkm|url>",
	Short: "Decode an .rkm file into a manifest and PNG layers",
	Long: `Decode and verify an .rkm container, then write its manifest and the two
PNG layers into a directory.

Examples:
  rkm unpack abc.rkm -o ./abc
  rkm unpack https://maps.example.com/abc.rkm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")

		m, err := decodeSource(cmd.Context(), configFrom(cmd), args[0])
		if err != nil {
			return err
		}
		if out == "" {
			base := filepath.Base(args[0])
			out = strings.TrimSuffix(base, filepath.Ext(base))
		}

		path, err := manifest.Export(m, out)
		if err != nil {
			return err
		}
		cmd.Printf("Unpacked %s -> %s\n", m.Codename(), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(unpackCmd)
	packCmd.Flags().StringP("output", "o", "", "Output file (default <codename>.rkm next to the manifest)")
	unpackCmd.Flags().StringP("output", "o", "", "Output directory (default named after the input)")
}
