package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/junkie765/saft-reporting/internal/saft"
)

// generate-specific flags
var (
	reportConfigPath string
	generateOutput   string
)

// generateCmd runs the full pipeline: extract, assemble, write XML.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Extract data and generate the SAF-T XML report",
	Long: `Extract the reporting period's data from Certinia Finance Cloud and
assemble the SAF-T audit file.

The report metadata (company details, tax table) comes from a YAML report
settings file, by default saft.yaml next to the config.

Examples:
  saft-reporting generate --start-date 2025-01-01 --end-date 2025-12-31
  saft-reporting generate --start-date 2025-01-01 --end-date 2025-03-31 \
      --company "Scalefocus AD" --output q1.xml`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	addExtractionFlags(generateCmd)
	generateCmd.Flags().StringVar(&reportConfigPath, "report-config", "saft.yaml", "Path to the report settings file")
	generateCmd.Flags().StringVar(&generateOutput, "output", "", "Output XML path (default saft_<start>_<end>.xml)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	start, end, err := parsePeriod()
	if err != nil {
		return err
	}

	settings, err := saft.LoadSettings(reportConfigPath)
	if err != nil {
		return err
	}

	store, file, err := loadConfig()
	if err != nil {
		return err
	}

	results, err := extractData(ctx, store, file, start, end)
	if err != nil {
		return err
	}
	printExtractionSummary(results)

	output := generateOutput
	if output == "" {
		output = fmt.Sprintf("saft_%s_%s.xml", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	generator := saft.NewGenerator(settings, GetVersion())
	if err := generator.WriteFile(output, results, start, end); err != nil {
		return err
	}

	fmt.Printf("SAF-T report written to %s\n", output)
	return nil
}
