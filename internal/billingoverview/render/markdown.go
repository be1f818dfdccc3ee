// Package render formats metric results as markdown reports.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
)

const dateLayout = "2006-01-02"

// Money formats minor units as "1,234.56 USD".
func Money(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	code := strings.ToUpper(strings.TrimSpace(currency))
	amount := fmt.Sprintf("%s%s.%02d", sign, humanize.Comma(minor/100), minor%100)
	if code == "" {
		return amount
	}
	return amount + " " + code
}

// Percent renders a rate with one decimal.
func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func QuickRatio(q overviewdomain.QuickRatio) string {
	if q.NoChurn {
		return "∞ (no churn)"
	}
	return fmt.Sprintf("%.2f", q.Ratio)
}

func period(p overviewdomain.PeriodBounds) string {
	return fmt.Sprintf("last %d days (%s to %s)", p.Days, p.Start.Format(dateLayout), p.End.Format(dateLayout))
}

type doc struct {
	b strings.Builder
}

func (d *doc) heading(level int, title string) {
	if d.b.Len() > 0 {
		d.b.WriteString("\n")
	}
	d.b.WriteString(strings.Repeat("#", level))
	d.b.WriteString(" ")
	d.b.WriteString(title)
	d.b.WriteString("\n\n")
}

func (d *doc) line(format string, args ...any) {
	fmt.Fprintf(&d.b, format, args...)
	d.b.WriteString("\n")
}

func (d *doc) table(header []string, rows [][]string) {
	d.b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	d.b.WriteString("|" + strings.Join(sep, "|") + "|\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = escapeCell(cell)
		}
		d.b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

// escapeCell keeps provider text from breaking the row layout.
func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}

func (d *doc) String() string {
	return d.b.String()
}

func RenderMRR(r overviewdomain.MRRResult) string {
	var d doc
	d.heading(1, "Monthly Recurring Revenue")
	d.line("**MRR:** %s", Money(r.Total, r.Currency))
	d.line("")
	d.table([]string{"Status", "Subscriptions"}, [][]string{
		{"Active", humanize.Comma(int64(r.Statuses.Active))},
		{"Trialing", humanize.Comma(int64(r.Statuses.Trialing))},
		{"Past due", humanize.Comma(int64(r.Statuses.PastDue))},
		{"Contributing", humanize.Comma(int64(r.ContributingCount))},
	})
	return d.String()
}

func RenderChurn(r overviewdomain.ChurnResult) string {
	var d doc
	d.heading(1, "Churn")
	d.line("Period: %s", period(r.Period))
	d.line("")
	d.table([]string{"Metric", "Value"}, [][]string{
		{"Customer churn rate", Percent(r.CustomerChurnRate)},
		{"Revenue churn rate", Percent(r.RevenueChurnRate)},
		{"Churned subscriptions", fmt.Sprintf("%s of %s", humanize.Comma(int64(r.ChurnedCount)), humanize.Comma(int64(r.StartingCount)))},
		{"Churned revenue", Money(r.ChurnedRevenue, r.Currency)},
		{"Starting revenue", Money(r.StartingRevenue, r.Currency)},
	})
	return d.String()
}

func RenderRevenueByPlan(r overviewdomain.RevenueByPlanResult) string {
	var d doc
	d.heading(1, "Revenue by Plan")
	if len(r.Plans) == 0 {
		d.line("No contributing subscriptions.")
		return d.String()
	}
	rows := make([][]string, 0, len(r.Plans)+1)
	for _, p := range r.Plans {
		rows = append(rows, []string{
			p.PlanName,
			humanize.Comma(int64(p.Subscribers)),
			Money(p.Revenue, r.Currency),
			Percent(p.Percentage),
		})
	}
	rows = append(rows, []string{"**Total**", "", Money(r.TotalRevenue, r.Currency), ""})
	d.table([]string{"Plan", "Subscribers", "MRR", "Share"}, rows)
	return d.String()
}

func RenderMovement(r overviewdomain.MovementResult) string {
	var d doc
	d.heading(1, "MRR Movement")
	d.line("Period: %s", period(r.Period))
	d.line("")
	writeMovement(&d, r)
	return d.String()
}

func writeMovement(d *doc, r overviewdomain.MovementResult) {
	d.table([]string{"Component", "Amount"}, [][]string{
		{"New", Money(r.NewRevenue, r.Currency)},
		{"Expansion", Money(r.ExpansionRevenue, r.Currency)},
		{"Contraction", Money(-r.ContractionRevenue, r.Currency)},
		{"Churned", Money(-r.ChurnedRevenue, r.Currency)},
		{"**Net new**", Money(r.NetNewRevenue, r.Currency)},
	})
}

func RenderSubscriberStats(r overviewdomain.SubscriberStats) string {
	var d doc
	d.heading(1, "Subscribers")
	d.line("Period: %s", period(r.Period))
	d.line("")
	d.table([]string{"Metric", "Count"}, [][]string{
		{"Active (incl. past due)", humanize.Comma(int64(r.TotalActive))},
		{"Trialing", humanize.Comma(int64(r.Trialing))},
		{"Past due", humanize.Comma(int64(r.PastDue))},
		{"New", humanize.Comma(int64(r.NewThisPeriod))},
		{"Churned", humanize.Comma(int64(r.ChurnedThisPeriod))},
		{"Net change", signed(r.NetChange)},
	})
	return d.String()
}

func signed(v int) string {
	if v > 0 {
		return "+" + humanize.Comma(int64(v))
	}
	return humanize.Comma(int64(v))
}

func RenderRecentChanges(r overviewdomain.RecentChanges) string {
	var d doc
	d.heading(1, fmt.Sprintf("Recent Changes (last %d days)", r.Days))

	summary := make([]string, 0, len(overviewdomain.ChangeCategories))
	for _, c := range overviewdomain.ChangeCategories {
		summary = append(summary, fmt.Sprintf("%s: %d", c, r.Counts[c]))
	}
	d.line("%s", strings.Join(summary, " · "))
	d.line("")

	if len(r.Changes) == 0 {
		d.line("No changes.")
		return d.String()
	}
	rows := make([][]string, 0, len(r.Changes))
	for _, c := range r.Changes {
		rows = append(rows, []string{
			c.OccurredAt.Format(dateLayout),
			c.Category.String(),
			customer(c.CustomerEmail, c.CustomerID),
			planChange(c),
			amountChange(c),
		})
	}
	d.table([]string{"Date", "Change", "Customer", "Plan", "Amount"}, rows)
	return d.String()
}

func customer(email, id string) string {
	if email != "" {
		return email
	}
	return id
}

func planChange(c overviewdomain.Change) string {
	if c.PreviousPlanName != "" && c.PreviousPlanName != c.PlanName {
		return c.PreviousPlanName + " → " + c.PlanName
	}
	return c.PlanName
}

func amountChange(c overviewdomain.Change) string {
	switch {
	case c.Amount != nil && c.PreviousAmount != nil:
		return Money(*c.PreviousAmount, c.Currency) + " → " + Money(*c.Amount, c.Currency)
	case c.Amount != nil:
		return Money(*c.Amount, c.Currency)
	default:
		return ""
	}
}

func RenderExpiringTrials(trials []overviewdomain.ExpiringTrial) string {
	var d doc
	d.heading(1, "Expiring Trials")
	writeTrials(&d, trials)
	return d.String()
}

func writeTrials(d *doc, trials []overviewdomain.ExpiringTrial) {
	if len(trials) == 0 {
		d.line("No trials expiring soon.")
		return
	}
	rows := make([][]string, 0, len(trials))
	for _, t := range trials {
		rows = append(rows, []string{
			customer(t.CustomerEmail, t.CustomerID),
			t.PlanName,
			t.TrialEnd.Format(dateLayout),
			english.Plural(t.DaysRemaining, "day", "days"),
			Money(t.MonthlyValue, t.Currency),
		})
	}
	d.table([]string{"Customer", "Plan", "Trial ends", "Remaining", "Value if converted"}, rows)
}

func writeFailedPayments(d *doc, failed []overviewdomain.FailedPayment) {
	if len(failed) == 0 {
		d.line("No failed payments.")
		return
	}
	rows := make([][]string, 0, len(failed))
	for _, f := range failed {
		next := ""
		if f.NextAttemptAt != nil {
			next = f.NextAttemptAt.Format(dateLayout)
		}
		rows = append(rows, []string{
			customer(f.CustomerEmail, f.CustomerID),
			Money(f.AmountDue, f.Currency),
			humanize.Comma(f.AttemptCount),
			f.FailedAt.Format(dateLayout),
			next,
		})
	}
	d.table([]string{"Customer", "Amount due", "Attempts", "Failed", "Next attempt"}, rows)
}

func RenderDashboard(r overviewdomain.Dashboard) string {
	var d doc
	d.heading(1, "Revenue Dashboard")
	d.line("**MRR:** %s", Money(r.MRR.Total, r.MRR.Currency))
	d.line("**Quick ratio:** %s", QuickRatio(r.QuickRatio))
	d.line("**Active subscriptions:** %s", humanize.Comma(int64(r.MRR.Statuses.Active+r.MRR.Statuses.PastDue)))

	d.heading(2, "Movement, "+period(r.Movement.Period))
	writeMovement(&d, r.Movement)

	d.heading(2, "Failed Payments")
	writeFailedPayments(&d, r.FailedPayments)

	d.heading(2, "Expiring Trials")
	writeTrials(&d, r.ExpiringTrials)
	return d.String()
}

// Generated is a footer line stamped with the report time.
func Generated(at time.Time) string {
	return fmt.Sprintf("\n_Generated %s_\n", at.UTC().Format(time.RFC3339))
}
