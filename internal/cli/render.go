package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

var (
	ColorBorder = lipgloss.Color("#575653")
	ColorText   = lipgloss.Color("#FFFCF0")
	ColorAccent = lipgloss.Color("#3AA99F")
	ColorOrange = lipgloss.Color("#DA702C")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorText).Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(ColorText)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorOrange)
	dimStyle    = lipgloss.NewStyle().Foreground(ColorBorder)
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)
	return border.Render(titleStyle.Render(title))
}

// RenderWarning renders a single highlighted line.
func RenderWarning(msg string) string {
	return warnStyle.Render(msg)
}

// RenderTable renders a bordered table. The first column is left-aligned and
// the rest, which hold amounts, are right-aligned.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = max(widths[i], lipgloss.Width(h))
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	rule := func(left, mid, right string) string {
		parts := make([]string, numCols)
		for i, w := range widths {
			parts[i] = strings.Repeat("─", w+2)
		}
		return dimStyle.Render(left+strings.Join(parts, mid)+right) + "\n"
	}
	line := func(cells []string, style lipgloss.Style, alignRight bool) string {
		var b strings.Builder
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			format := " %-*s "
			if alignRight && i > 0 {
				format = " %*s "
			}
			b.WriteString(style.Render(fmt.Sprintf(format, widths[i], cell)))
			b.WriteString(dimStyle.Render("│"))
		}
		b.WriteString("\n")
		return b.String()
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}
	b.WriteString(rule("╭", "┬", "╮"))
	if len(t.Headers) > 0 {
		b.WriteString(line(t.Headers, headerStyle, false))
		b.WriteString(rule("├", "┼", "┤"))
	}
	for _, row := range t.Rows {
		b.WriteString(line(row, valueStyle, true))
	}
	b.WriteString(rule("╰", "┴", "╯"))
	return b.String()
}

// ScheduleTable lays out an amortization schedule.
func ScheduleTable(debt core.Debt, schedule []core.ScheduleEntry) Table {
	t := Table{
		Title:   fmt.Sprintf("%s: %s over %d months, %s/month", debt.Name, debt.Principal.StringFixed(2), debt.TermMonths, debt.MonthlyPayment.StringFixed(2)),
		Headers: []string{"#", "Date", "Payment", "Principal", "Interest", "Balance"},
	}
	for _, e := range schedule {
		t.Rows = append(t.Rows, []string{
			fmt.Sprint(e.PaymentNumber),
			e.Date.String(),
			e.PaymentAmount.StringFixed(2),
			e.PrincipalPayment.StringFixed(2),
			e.InterestPayment.StringFixed(2),
			e.RemainingBalance.StringFixed(2),
		})
	}
	return t
}

// AlertTable lists the alerts raised by one check.
func AlertTable(owner string, result services.AlertCheck) Table {
	t := Table{
		Title:   fmt.Sprintf("%s: %d new alert(s)", owner, result.AlertsCreated),
		Headers: []string{"Budget", "Period", "Reached %", "Spent"},
	}
	for _, a := range result.Alerts {
		name := a.BudgetName
		if name == "" {
			name = fmt.Sprint(a.BudgetID)
		}
		t.Rows = append(t.Rows, []string{name, a.PeriodStart.String(), a.PercentageReached.StringFixed(2), a.AmountSpent.StringFixed(2)})
	}
	return t
}

// ReminderTable lists the reminders sent by one run.
func ReminderTable(owner string, run services.ReminderRun) Table {
	t := Table{
		Title:   fmt.Sprintf("%s: %d reminder(s) sent", owner, run.Sent),
		Headers: []string{"Event", "Occurs", "Reminder"},
	}
	for _, r := range run.Reminders {
		t.Rows = append(t.Rows, []string{r.Event.Title, r.OccurrenceDate.String(), r.ReminderDate.String()})
	}
	return t
}
