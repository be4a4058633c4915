package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"recaudo-reconciliation-service/internal/fixtures"
	"recaudo-reconciliation-service/pkg/errors"
)

var sampleDir string

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write a demo input set",
	Long: `Sample writes a small, consistent set of input files. The ledger has one
identity booked short, one booked without payment, one payment never booked
and one line without a reference, so every section of the report has content.

Example:
  recaudo sample --dir muestra`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSample(afero.NewOsFs(), sampleDir, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(sampleCmd)
	sampleCmd.Flags().StringVar(&sampleDir, "dir", "muestra", "directory for the sample files")
}

func runSample(fs afero.Fs, dir string, out io.Writer) error {
	paths, err := fixtures.WriteScenario(fs, dir)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, dir, err)
	}

	fmt.Fprintf(out, "Sample inputs written to %s\n", dir)
	for _, name := range []string{fixtures.Settlement, fixtures.Orders, fixtures.Provision, fixtures.Ledger, fixtures.Cartera} {
		fmt.Fprintf(out, "  %-11s %s\n", name+":", paths[name])
	}

	fmt.Fprintf(out, "\nTry:\n")
	fmt.Fprintf(out, "  recaudo run --settlement %s --orders %s --provision %s --ledger %s --output-dir %s\n",
		paths[fixtures.Settlement], paths[fixtures.Orders], paths[fixtures.Provision], paths[fixtures.Ledger],
		filepath.Join(dir, "salida"))
	fmt.Fprintf(out, "  recaudo cartera --file %s --output-dir %s\n", paths[fixtures.Cartera], filepath.Join(dir, "salida"))
	return nil
}
