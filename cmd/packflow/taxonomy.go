package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/packflow/internal/cli"
	"github.com/Veraticus/packflow/internal/config"
	"github.com/Veraticus/packflow/internal/engine"
	"github.com/Veraticus/packflow/internal/taxonomy"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func taxonomyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Inspect the product taxonomy",
		Long: `The taxonomy maps finished-product labels onto presentations and
groups, and gives the unit weight of each presentation.`,
	}

	cmd.PersistentFlags().String("file", "", "taxonomy YAML file (default: pipeline.taxonomy_file)")
	cmd.AddCommand(taxonomyValidateCmd())
	cmd.AddCommand(taxonomyListCmd())
	cmd.AddCommand(taxonomyResolveCmd())

	return cmd
}

func loadTaxonomy(cmd *cobra.Command) (*taxonomy.Taxonomy, string, error) {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		path = viper.GetString("pipeline.taxonomy_file")
	}
	if path == "" {
		return nil, "", fmt.Errorf("no taxonomy file: pass --file or set pipeline.taxonomy_file")
	}
	path = config.ExpandPath(path)
	tax, err := taxonomy.LoadFile(path)
	return tax, path, err
}

func taxonomyValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the taxonomy file is well formed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tax, path, err := loadTaxonomy(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s: %d presentations in %d groups",
				path, len(tax.Entries()), len(tax.Groups()))))
			return nil
		},
	}
}

func taxonomyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List presentations and the mass-balance columns they produce",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tax, _, err := loadTaxonomy(cmd)
			if err != nil {
				return err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%-24s %-12s %10s %10s\n", "PRESENTATION", "GROUP", "UNITS/BOX", "UNIT KG")
			for _, e := range tax.Entries() {
				fmt.Fprintf(&b, "%-24s %-12s %10.2f %10.3f\n", e.Presentation, e.Group, e.UnitsPerBox, e.UnitKg)
			}
			b.WriteString("\n" + cli.SubtleStyle.Render("Mass-balance columns: "+strings.Join(engine.MassBalanceColumns(tax), ", ")))
			fmt.Fprintln(cmd.OutOrStdout(), b.String())
			return nil
		},
	}
}

func taxonomyResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve LABEL...",
		Short: "Show how labels resolve",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tax, _, err := loadTaxonomy(cmd)
			if err != nil {
				return err
			}
			for _, label := range args {
				res := tax.Resolve(label)
				line := fmt.Sprintf("%q → %s (%s)", label, res.Presentation, res.Group)
				if res.Mapped {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(line))
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(line+" unmapped"))
				}
			}
			return nil
		},
	}
}
