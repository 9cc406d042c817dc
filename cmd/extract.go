package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/junkie765/saft-reporting/internal/config"
	"github.com/junkie765/saft-reporting/internal/salesforce"
)

// Extraction flags shared by extract and generate.
var (
	startDate string
	endDate   string
	company   string
	sections  []string
)

// extract-specific flags
var extractOutputDir string

// extractCmd pulls the raw section data without generating the report.
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract Certinia data without generating the report",
	Long: `Extract the SAF-T source data from Certinia Finance Cloud and write each
section as a JSON file, for inspection or downstream processing.

Examples:
  saft-reporting extract --start-date 2025-01-01 --end-date 2025-12-31
  saft-reporting extract --start-date 2025-01-01 --end-date 2025-03-31 \
      --company "Scalefocus AD" --sections gl,customers`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	addExtractionFlags(extractCmd)
	extractCmd.Flags().StringVar(&extractOutputDir, "output", "output", "Directory for the extracted JSON files")
}

// addExtractionFlags registers the flags common to extract and generate.
func addExtractionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&startDate, "start-date", "", "Start of the reporting period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "End of the reporting period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&company, "company", "", "Company name to filter data")
	cmd.Flags().StringSliceVar(&sections, "sections", nil, "Sections to extract (default all: gl,customers,suppliers,sales_invoices,purchase_invoices,payments)")
	_ = cmd.MarkFlagRequired("start-date")
	_ = cmd.MarkFlagRequired("end-date")
}

// parsePeriod validates the date range flags.
func parsePeriod() (start, end time.Time, err error) {
	start, err = time.Parse("2006-01-02", startDate)
	if err != nil {
		return start, end, fmt.Errorf("invalid --start-date %q: use YYYY-MM-DD", startDate)
	}
	end, err = time.Parse("2006-01-02", endDate)
	if err != nil {
		return start, end, fmt.Errorf("invalid --end-date %q: use YYYY-MM-DD", endDate)
	}
	if start.After(end) {
		return start, end, fmt.Errorf("start date %s is after end date %s", startDate, endDate)
	}
	return start, end, nil
}

// extractData authenticates and pulls the requested sections, with a
// progress spinner on the terminal.
func extractData(ctx context.Context, store *config.Store, file *config.File, start, end time.Time) (map[string][]salesforce.Record, error) {
	sess, err := newAuthManager(store, file).Token(ctx)
	if err != nil {
		return nil, err
	}

	rest := salesforce.NewClient(sess, file.Settings.APIVersion, nil)
	bulk := salesforce.NewBulkClient(rest,
		time.Duration(file.Bulk.PollingIntervalSeconds)*time.Second,
		time.Duration(file.Bulk.TimeoutSeconds)*time.Second,
	)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Extracting Certinia data..."
	s.Start()
	defer s.Stop()

	return salesforce.NewExtractor(rest, bulk).Extract(ctx, salesforce.ExtractOptions{
		Start:    start,
		End:      end,
		Company:  company,
		Sections: sections,
		Objects:  file.Certinia.Objects,
	})
}

// printExtractionSummary renders the per-section record counts.
func printExtractionSummary(results map[string][]salesforce.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Section", "Records"})

	total := 0
	for _, section := range salesforce.SectionOrder(results) {
		t.AppendRow(table.Row{section, len(results[section])})
		total += len(results[section])
	}
	t.AppendFooter(table.Row{"Total", total})
	t.Render()
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	start, end, err := parsePeriod()
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

	if err := os.MkdirAll(extractOutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for section, records := range results {
		path := filepath.Join(extractOutputDir, section+".json")
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", section, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	printExtractionSummary(results)
	fmt.Printf("Extracted data written to %s/\n", extractOutputDir)
	return nil
}
