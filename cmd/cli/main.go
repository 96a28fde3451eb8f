package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"screenscan/adapters/analysis"
	"screenscan/adapters/excel"
	"screenscan/app"
	"screenscan/domain/inspection"
	"screenscan/internal/config"
	"screenscan/internal/container"
	"screenscan/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "screenscan-cli",
		Short: "ScreenScan CLI for one-off analyses and record reports",
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newSummaryCmd(),
		newHistoryCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAnalyzeCmd() *cobra.Command {
	var device, serviceURL string
	var timeout time.Duration
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze [image]",
		Short: "Send one image to the analysis service and print the verdict",
		Long: `Send one device-screen image to the analysis service without storing anything.

Example: screenscan-cli analyze screen.jpg --device "Pixel 8"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if device == "" {
				return fmt.Errorf("--device is required")
			}
			if serviceURL == "" {
				return fmt.Errorf("--url or ANALYSIS_URL is required")
			}
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), args[0], device, serviceURL, timeout, asJSON)
		},
	}

	cmd.Flags().StringVar(&device, "device", "", "Device name hint")
	cmd.Flags().StringVar(&serviceURL, "url", os.Getenv("ANALYSIS_URL"), "Analysis service base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "Request timeout")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw verdict as JSON")

	return cmd
}

func runAnalyze(ctx context.Context, out io.Writer, path, device, serviceURL string, timeout time.Duration, asJSON bool) error {
	// the submitter applies the same rules to browser uploads
	selector := app.NewUploadSelector(app.NewPreviewStore())
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	pending, err := selector.SelectFile(filepath.Base(path), data)
	if err != nil {
		return err
	}
	defer selector.Clear()

	client := analysis.NewClient(serviceURL, timeout)
	verdict, err := client.Analyze(ctx, ports.AnalysisRequest{
		Image:       pending.Data,
		Filename:    pending.Filename,
		ContentType: pending.ContentType,
		DeviceName:  device,
	})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(verdict)
	}
	result := app.ProjectVerdict(verdict)
	fmt.Fprintf(out, "Status:     %s\n", result.StatusText)
	fmt.Fprintf(out, "Category:   %s\n", result.CategoryLabel)
	fmt.Fprintf(out, "Confidence: %s\n", result.ConfidenceText)
	return nil
}

// openAggregator connects the record store named by DB_DRIVER
func openAggregator(ctx context.Context, recent int) (*app.RecordAggregator, func() error, error) {
	dbConfig, err := config.LoadDatabase()
	if err != nil {
		return nil, nil, err
	}
	store, err := container.OpenRecordStore(ctx, *dbConfig)
	if err != nil {
		return nil, nil, err
	}
	return app.NewRecordAggregator(store.Records, recent, nil), store.Close, nil
}

func newSummaryCmd() *cobra.Command {
	var userID string
	var recent int

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard summary of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			agg, closeStore, err := openAggregator(cmd.Context(), recent)
			if err != nil {
				return err
			}
			defer closeStore()

			s, err := agg.LoadSummary(cmd.Context(), userID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:     %d\n", s.Total)
			fmt.Fprintf(out, "Defects:   %d\n", s.Defects)
			fmt.Fprintf(out, "Clean:     %d\n", s.Clean)
			fmt.Fprintf(out, "Pass rate: %s\n", s.PassRateText)
			fmt.Fprintf(out, "Avg conf:  %s\n", app.FormatConfidence(s.AverageConfidence, ""))
			return printRows(out, app.ProjectRecords(s.Recent))
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().IntVar(&recent, "recent", app.DefaultRecentLimit, "Number of recent inspections")

	return cmd
}

func newHistoryCmd() *cobra.Command {
	var userID, filter, query, xlsxPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List a user's inspections, optionally as an XLSX report",
		Long: `List a user's inspections newest first, filtered like the History page.

Example: screenscan-cli history --user 1b2c... --filter defect --q pixel --xlsx report.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			category, err := inspection.ParseCategory(filter)
			if err != nil {
				return err
			}
			agg, closeStore, err := openAggregator(cmd.Context(), app.DefaultRecentLimit)
			if err != nil {
				return err
			}
			defer closeStore()

			records, err := agg.LoadHistory(cmd.Context(), userID)
			if err != nil {
				return err
			}
			records = app.FilterHistory(records, category, query)

			if xlsxPath != "" {
				return writeReport(xlsxPath, records)
			}
			return printRows(cmd.OutOrStdout(), app.ProjectRecords(records))
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().StringVar(&filter, "filter", "all", "all, defect or clean")
	cmd.Flags().StringVar(&query, "q", "", "Match record ID or device name")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write an XLSX report to this path")

	return cmd
}

func writeReport(path string, records []inspection.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := excel.WriteHistory(f, records, time.Now()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printRows(out io.Writer, rows []app.RecordRow) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tDEVICE\tRESULT\tCONFIDENCE")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", strconv.FormatInt(r.ID, 10), r.Date, r.Device, r.Label, r.ConfidenceText)
	}
	return w.Flush()
}
