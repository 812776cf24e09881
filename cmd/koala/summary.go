package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rocjay1/koala-laundry/internal/csvparse"
	"github.com/rocjay1/koala-laundry/internal/models"
	"github.com/rocjay1/koala-laundry/internal/services"
	"github.com/spf13/cobra"
)

func newSummaryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary [csv-file]",
		Short: "Summarize a form responses CSV",
		Long: `Reads the form responses CSV ("-" for stdin, default env KOALA_CSV)
and prints total paid, total unpaid and total loads completed,
with payments by date and loads by staff.`,
		Args: cobra.MaximumNArgs(1),
	}

	flags := cmd.Flags()
	flags.Bool("json", false, "print the full report as JSON")
	flags.StringP("out", "o", "", "also write the metric,value summary CSV to this path")
	flags.Bool("publish", false, "upload the summary CSV to blob storage (env BLOB_SERVICE_URL)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		path := a.cfg.CSVPath
		if len(args) == 1 {
			path = args[0]
		}

		content, err := readInput(path, a.stdin)
		if err != nil {
			return err
		}

		entries, rowErrors := csvparse.ParseCSV(content)
		for _, e := range rowErrors {
			slog.Warn("skipped row", "path", path, "reason", e)
		}
		if len(entries) == 0 && len(rowErrors) > 0 {
			return fmt.Errorf("no usable rows in %s", path)
		}

		report := models.BuildReport(entries)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("failed to encode report: %w", err)
			}
		} else if err := printReport(a.stdout, report, len(rowErrors)); err != nil {
			return err
		}

		var summaryCSV bytes.Buffer
		if err := csvparse.WriteSummaryCSV(&summaryCSV, report.Summary); err != nil {
			return err
		}

		if out, _ := cmd.Flags().GetString("out"); out != "" {
			if err := os.WriteFile(out, summaryCSV.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write summary to %s: %w", out, err)
			}
			slog.Info("wrote summary", "path", out)
		}

		if publish, _ := cmd.Flags().GetBool("publish"); publish {
			blob, err := services.NewBlobServiceFromEnv()
			if err != nil {
				return err
			}
			blobName := fmt.Sprintf("summaries/%s-%s", time.Now().UTC().Format("20060102-150405"), csvparse.SummaryFilename)
			if err := blob.UploadText(cmd.Context(), services.DefaultContainer, blobName, summaryCSV.String()); err != nil {
				return err
			}
			slog.Info("published summary", "container", services.DefaultContainer, "blob_name", blobName)
		}

		return nil
	}

	return cmd
}

func readInput(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	if path == "" {
		return "", errors.New("no CSV path given")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("CSV not found at: %s", path)
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func printReport(w io.Writer, report models.Report, skipped int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	s := report.Summary

	fmt.Fprintf(tw, "Rows\t%d", report.Rows)
	if skipped > 0 {
		fmt.Fprintf(tw, " (%d skipped)", skipped)
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Total Paid\t%s\n", models.FormatCurrency(s.TotalPaid))
	fmt.Fprintf(tw, "Total Unpaid\t%s\n", models.FormatCurrency(s.TotalUnpaid))
	fmt.Fprintf(tw, "Total Loads Completed\t%s\n", models.FormatCount(s.TotalLoads))

	if len(report.Payments) > 0 {
		fmt.Fprintln(tw, "\nPayments by date\tPaid\tUnpaid")
		for _, p := range report.Payments {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Date, models.FormatCurrency(p.Paid), models.FormatCurrency(p.Unpaid))
		}
	}

	if len(report.LoadsByStaff) > 0 {
		fmt.Fprintln(tw, "\nLoads by staff\tLoads")
		for _, l := range report.LoadsByStaff {
			fmt.Fprintf(tw, "%s\t%s\n", l.Name, models.FormatCount(l.Loads))
		}
	}

	return tw.Flush()
}
