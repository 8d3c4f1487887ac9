package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cpunion/reply-bot/pkg/compose"
	"github.com/cpunion/reply-bot/pkg/store"
	"github.com/cpunion/reply-bot/pkg/types"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Padding(0, 1)

	replyStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#10B981")).
		Padding(0, 1).
		Width(72)

	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Width(16)

	silentStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B")).
		Bold(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))
)

func field(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func renderDecision(w io.Writer, d compose.Decision) {
	lines := []string{titleStyle.Render("decision")}
	if d.Response != nil {
		lines = append(lines, replyStyle.Render(d.Response.Text))
	} else {
		lines = append(lines, silentStyle.Render("no reply"))
	}
	lines = append(lines, field("outcome", d.Outcome))
	if d.Reason != "" {
		lines = append(lines, field("reason", d.Reason))
	}
	if d.Mode != "" {
		lines = append(lines, field("mode", string(d.Mode)))
	}
	if d.Strategy != nil {
		lines = append(lines, field("strategy", fmt.Sprintf("%s (%.2f) %s", d.Strategy.Strategy, d.Strategy.Confidence, d.Strategy.Reason)))
	}
	if d.Response != nil && d.Response.Meta.Source != "" {
		lines = append(lines, field("source", d.Response.Meta.Source))
	}
	if names := d.Classification.IntentNames(); len(names) > 0 {
		lines = append(lines, field("intents", strings.Join(names, ", ")))
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderClassification(w io.Writer, c types.ClassificationResult) {
	lines := []string{titleStyle.Render("intents")}
	if len(c.RankedIntents) == 0 {
		lines = append(lines, silentStyle.Render("no strong intent"))
	}
	for _, s := range c.RankedIntents {
		lines = append(lines, field(s.Name, fmt.Sprintf("%.2f", s.Score)))
	}
	if c.PrimaryIntent != "" {
		lines = append(lines, field("primary", fmt.Sprintf("%s (%.2f)", c.PrimaryIntent, c.Confidence)))
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderEvent(w io.Writer, v types.EventVerdict) {
	verdict := silentStyle.Render("not an event")
	if v.IsEvent {
		verdict = okStyle.Render("event")
	}
	r := v.Reasons
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("event"),
		verdict,
		field("day_of_week", fmt.Sprint(r.DayOfWeek)),
		field("time_of_day", fmt.Sprint(r.TimeOfDay)),
		field("entry_fee", fmt.Sprint(r.EntryFee)),
		field("venue", fmt.Sprint(r.Venue)),
		field("tournament", fmt.Sprint(r.Tournament)),
		field("signals", fmt.Sprint(r.Count())),
	))
}

func renderAudit(w io.Writer, rows []store.Decision, counts map[string]int) {
	lines := []string{titleStyle.Render("recent decisions")}
	if len(rows) == 0 {
		lines = append(lines, silentStyle.Render("none recorded"))
	}
	for _, r := range rows {
		head := fmt.Sprintf("%s  %-18s %s", r.CreatedAt.Format("2006-01-02 15:04:05"), r.Outcome, r.AuthorID)
		lines = append(lines, head)
		if r.Reply != "" {
			lines = append(lines, okStyle.Render("  > "+r.Reply))
		}
	}

	outcomes := make([]string, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	if len(outcomes) > 0 {
		lines = append(lines, "", titleStyle.Render("totals"))
	}
	for _, o := range outcomes {
		lines = append(lines, field(o, fmt.Sprint(counts[o])))
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}
