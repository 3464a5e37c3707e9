/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/riskmap/pkg/raster"
	"github.com/ssargent/riskmap/pkg/rkmap"
)

var errVerifyFailed = errors.New("verification failed")

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <file.rkm|url>...",
	Short: "Decode and verify one or more .rkm files",
	Long: `Decode every argument concurrently, checking framing, checksum and
payloads. With --against, each map must also match a reference map in names,
territories, borders and layer pixels.

Examples:
  rkm verify maps/*.rkm --jobs 8
  rkm verify copy.rkm --against original.rkm`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobs, _ := cmd.Flags().GetInt("jobs")
		against, _ := cmd.Flags().GetString("against")
		cfg := configFrom(cmd)

		var reference *rkmap.Map
		if against != "" {
			var err error
			if reference, err = decodeSource(cmd.Context(), cfg, against); err != nil {
				return fmt.Errorf("reference %s: %w", against, err)
			}
		}

		if jobs < 1 {
			jobs = 1
		}

		results := make([]error, len(args))
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(jobs)
		for i, src := range args {
			i, src := i, src
			g.Go(func() error {
				m, err := decodeSource(ctx, cfg, src)
				if err == nil && reference != nil {
					err = sameMap(reference, m)
				}
				results[i] = err
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		failed := 0
		for i, src := range args {
			if results[i] != nil {
				failed++
				cmd.Printf("FAIL %s: %v\n", src, results[i])
				continue
			}
			cmd.Printf("OK   %s\n", src)
		}
		if failed > 0 {
			return fmt.Errorf("%w: %d of %d", errVerifyFailed, failed, len(args))
		}
		return nil
	},
}

// sameMap reports how got differs from want, or nil when they are equivalent.
func sameMap(want, got *rkmap.Map) error {
	switch {
	case want.Codename() != got.Codename():
		return fmt.Errorf("codename %q, want %q", got.Codename(), want.Codename())
	case want.DisplayName() != got.DisplayName():
		return fmt.Errorf("display name %q, want %q", got.DisplayName(), want.DisplayName())
	case want.Author() != got.Author():
		return fmt.Errorf("author %q, want %q", got.Author(), want.Author())
	}

	wt, gt := want.Territories(), got.Territories()
	if len(wt) != len(gt) {
		return fmt.Errorf("%d territories, want %d", len(gt), len(wt))
	}
	for i := range wt {
		if wt[i].Identity() != gt[i].Identity() {
			return fmt.Errorf("territory %q, want %q", gt[i].Identity(), wt[i].Identity())
		}
		wn, gn := wt[i].Nuclei(), gt[i].Nuclei()
		if len(wn) != len(gn) {
			return fmt.Errorf("territory %q has %d nuclei, want %d", wt[i].Identity(), len(gn), len(wn))
		}
		for j := range wn {
			if wn[j] != gn[j] {
				return fmt.Errorf("territory %q nucleus %v, want %v", wt[i].Identity(), gn[j], wn[j])
			}
		}
	}

	wb, gb := want.Borders(), got.Borders()
	if len(wb) != len(gb) {
		return fmt.Errorf("%d borders, want %d", len(gb), len(wb))
	}
	for i := range wb {
		if wb[i] != gb[i] {
			return fmt.Errorf("border %s, want %s", gb[i], wb[i])
		}
	}

	if !raster.Equal(want.BaseLayer(), got.BaseLayer()) {
		return errors.New("base layer pixels differ")
	}
	if !raster.Equal(want.TextLayer(), got.TextLayer()) {
		return errors.New("text layer pixels differ")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().IntP("jobs", "j", runtime.NumCPU(), "Maximum number of files verified at once")
	verifyCmd.Flags().String("against", "", "Reference map every input must match")
}
