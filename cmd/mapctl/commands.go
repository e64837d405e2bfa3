package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/navojoa/electoral-map/internal/importer"
)

var (
	separator string
	latin1    bool
	overwrite bool
	format    string
)

var importCmd = &cobra.Command{
	Use:   "import <csv>",
	Short: "Load affiliates from a CSV export",
	Long: `Creates one person per row. Expected header:

  nombre,rol,latitud,longitud,seccion,clave_elector,colonia,telefono,clave_responsable

clave_responsable links a row to its coordinator by electoral key.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var assignCmd = &cobra.Command{
	Use:   "assign-sections",
	Short: "Fill missing section codes from the section polygons",
	RunE:  runAssign,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print per-section statistics",
	RunE:  runStats,
}

func init() {
	importCmd.Flags().StringVar(&separator, "sep", ",", "Field separator")
	importCmd.Flags().BoolVar(&latin1, "latin1", false, "Input is ISO-8859-1 encoded")
	assignCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Recompute sections that are already set")
	statsCmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json or yaml)")
}

func runImport(cmd *cobra.Command, args []string) error {
	sep, size := utf8.DecodeRuneInString(separator)
	if size == 0 || size != len(separator) {
		return fmt.Errorf("separator must be a single character, got %q", separator)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	var in io.Reader = f
	if latin1 {
		in = importer.Latin1(f)
	}
	res, err := importer.New(a.Persons, a.Logger).Import(ctx, in, sep)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d (linked %d), skipped %d\n", res.Imported, res.Linked, len(res.Skipped))
	for _, s := range res.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "  line %d: %s\n", s.Line, s.Reason)
	}
	return nil
}

func runAssign(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	loc, err := a.Sections.Locator(ctx)
	if err != nil {
		return fmt.Errorf("section polygons unavailable: %w", err)
	}
	res, err := a.Persons.AssignSections(ctx, loc, a.Config.SectionFallbackKm, overwrite)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "assigned %d, unmatched %d, without location %d, skipped %d\n",
		res.Assigned, res.Unmatched, res.NoLocation, res.Skipped)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	stats, err := a.Sections.Stats(ctx, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(stats)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
