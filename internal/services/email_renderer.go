package services

import (
	"fmt"
	"html"
	"strings"

	"github.com/rocjay1/koala-laundry/internal/models"
)

// RenderErrorSection renders the skipped-rows warning block.
func RenderErrorSection(errors []string) string {
	if len(errors) == 0 {
		return ""
	}

	var errorItems strings.Builder
	for _, e := range errors {
		fmt.Fprintf(&errorItems, "<li>%s</li>", html.EscapeString(e))
	}

	return fmt.Sprintf(`
		<div style="background-color: #fff4f4; border-left: 5px solid #d13438; padding: 15px; margin-bottom: 20px;">
			<h3 style="color: #d13438; margin-top: 0; font-size: 18px;">Some rows were skipped</h3>
			<ul style="margin-bottom: 0; padding-left: 20px;">
				%s
			</ul>
		</div>
	`, errorItems.String())
}

// RenderErrorBody renders the full HTML body for an error email.
func RenderErrorBody(errors []string) string {
	return fmt.Sprintf(`
		<html>
		<body style="font-family: 'Segoe UI', sans-serif; color: #333; line-height: 1.6; background-color: #f4f4f4; margin: 0; padding: 20px;">
			<div style="max-width: 600px; margin: 0 auto; background: white; border-radius: 8px; overflow: hidden;">
				<div style="background-color: #d13438; padding: 20px; text-align: center; color: white;">
					<h2 style="margin: 0;">Upload Failed</h2>
				</div>
				<div style="padding: 20px;">
					<p>The uploaded sheet could not be processed due to the following errors:</p>
					%s
				</div>
			</div>
		</body>
		</html>
	`, RenderErrorSection(errors))
}

// RenderSummaryBody renders the KPI summary email, with the top staff by loads.
func RenderSummaryBody(record models.SummaryRecord) string {
	s := record.Report.Summary

	var staffRows strings.Builder
	for i, staff := range record.Report.LoadsByStaff {
		if i == 5 {
			break
		}
		fmt.Fprintf(&staffRows, `<tr><td style="padding: 4px 8px;">%s</td><td style="padding: 4px 8px; text-align: right;">%s</td></tr>`,
			html.EscapeString(staff.Name), models.FormatCount(staff.Loads))
	}

	var skipped string
	if record.SkippedRows > 0 {
		skipped = fmt.Sprintf(`<p style="color: #d13438;">%d rows were skipped.</p>`, record.SkippedRows)
	}

	return fmt.Sprintf(`
		<html>
		<body style="font-family: 'Segoe UI', sans-serif; color: #333; line-height: 1.6; background-color: #f4f4f4; margin: 0; padding: 20px;">
			<div style="max-width: 600px; margin: 0 auto; background: white; border-radius: 8px; overflow: hidden;">
				<div style="background-color: #2b7a78; padding: 20px; text-align: center; color: white;">
					<h2 style="margin: 0;">Koala Laundry Operations</h2>
					<p style="margin: 0;">%s</p>
				</div>
				<div style="padding: 20px;">
					<table style="width: 100%%;">
						<tr><td>Total Paid</td><td style="text-align: right;"><b>%s</b></td></tr>
						<tr><td>Total Unpaid</td><td style="text-align: right;"><b>%s</b></td></tr>
						<tr><td>Total Loads Completed</td><td style="text-align: right;"><b>%s</b></td></tr>
					</table>
					%s
					<h3>Loads by staff</h3>
					<table style="width: 100%%;">%s</table>
				</div>
			</div>
		</body>
		</html>
	`,
		html.EscapeString(record.Filename),
		models.FormatCurrency(s.TotalPaid),
		models.FormatCurrency(s.TotalUnpaid),
		models.FormatCount(s.TotalLoads),
		skipped,
		staffRows.String(),
	)
}

// RenderSummaryText is the plain-text alternative of RenderSummaryBody.
func RenderSummaryText(record models.SummaryRecord) string {
	s := record.Report.Summary

	var b strings.Builder
	fmt.Fprintf(&b, "Koala Laundry Operations: %s\n\n", record.Filename)
	fmt.Fprintf(&b, "Total Paid: %s\n", models.FormatCurrency(s.TotalPaid))
	fmt.Fprintf(&b, "Total Unpaid: %s\n", models.FormatCurrency(s.TotalUnpaid))
	fmt.Fprintf(&b, "Total Loads Completed: %s\n", models.FormatCount(s.TotalLoads))
	if record.SkippedRows > 0 {
		fmt.Fprintf(&b, "%d rows were skipped.\n", record.SkippedRows)
	}
	return b.String()
}
