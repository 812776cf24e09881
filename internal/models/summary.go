package models

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Summary holds the headline KPIs of a dataset.
type Summary struct {
	TotalPaid   decimal.Decimal `json:"total_paid"`
	TotalUnpaid decimal.Decimal `json:"total_unpaid"`
	TotalLoads  int             `json:"total_loads"`
}

// DailyPayments is the paid/unpaid amount for a single date.
type DailyPayments struct {
	Date   string          `json:"date"` // YYYY-MM-DD, or the raw column value when dates did not parse
	Paid   decimal.Decimal `json:"paid"`
	Unpaid decimal.Decimal `json:"unpaid"`
}

// StaffLoads is the number of loads completed by one staff member.
type StaffLoads struct {
	Name  string `json:"name"`
	Loads int    `json:"loads"`
}

// Report bundles the summary with its breakdowns.
type Report struct {
	Rows         int             `json:"rows"`
	Summary      Summary         `json:"summary"`
	Payments     []DailyPayments `json:"payments"`
	LoadsByStaff []StaffLoads    `json:"loads_by_staff"`
}

// Summarize totals the paid, unpaid and loads columns.
func Summarize(entries []Entry) Summary {
	s := Summary{TotalPaid: decimal.Zero, TotalUnpaid: decimal.Zero}
	for _, e := range entries {
		s.TotalPaid = s.TotalPaid.Add(e.TotalPaid)
		s.TotalUnpaid = s.TotalUnpaid.Add(e.TotalUnpaid)
		s.TotalLoads += e.Loads
	}
	return s
}

// BuildReport computes the summary plus payments by date and loads by staff.
// Payments group parsed dates; when no row has a parsed date they group the
// raw Date values instead. Loads only cover rows with a name.
func BuildReport(entries []Entry) Report {
	report := Report{
		Rows:         len(entries),
		Summary:      Summarize(entries),
		Payments:     []DailyPayments{},
		LoadsByStaff: []StaffLoads{},
	}

	parsed := false
	for _, e := range entries {
		if e.HasDate() {
			parsed = true
			break
		}
	}

	byDate := make(map[string]*DailyPayments)
	byName := make(map[string]int)

	for _, e := range entries {
		key := e.DateRaw
		if parsed {
			key = ""
			if e.HasDate() {
				key = e.Date.Format(time.DateOnly)
			}
		}
		if key != "" {
			p, ok := byDate[key]
			if !ok {
				p = &DailyPayments{Date: key, Paid: decimal.Zero, Unpaid: decimal.Zero}
				byDate[key] = p
			}
			p.Paid = p.Paid.Add(e.TotalPaid)
			p.Unpaid = p.Unpaid.Add(e.TotalUnpaid)
		}
		if e.Name != "" {
			byName[e.Name] += e.Loads
		}
	}

	// DateOnly keys sort chronologically as strings.
	for _, p := range byDate {
		report.Payments = append(report.Payments, *p)
	}
	sort.Slice(report.Payments, func(i, j int) bool { return report.Payments[i].Date < report.Payments[j].Date })

	for name, loads := range byName {
		report.LoadsByStaff = append(report.LoadsByStaff, StaffLoads{Name: name, Loads: loads})
	}
	sort.Slice(report.LoadsByStaff, func(i, j int) bool {
		a, b := report.LoadsByStaff[i], report.LoadsByStaff[j]
		if a.Loads != b.Loads {
			return a.Loads > b.Loads
		}
		return a.Name < b.Name
	})

	return report
}

// FormatCurrency renders an amount as $1,234.50.
func FormatCurrency(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + "$" + groupThousands(whole) + "." + frac
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int) string {
	digits := strconv.Itoa(n)
	if n < 0 {
		return "-" + groupThousands(digits[1:])
	}
	return groupThousands(digits)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
