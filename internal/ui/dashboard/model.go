package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/guest-review/internal/api"
	"github.com/nhle/guest-review/internal/model"
	"github.com/nhle/guest-review/internal/sync"
	"github.com/nhle/guest-review/internal/theme"
	"github.com/nhle/guest-review/internal/ui"
)

// JobName is the poller job that refreshes the summary cards.
const JobName = "dashboard"

// recentCount is how many of the newest reviews the dashboard lists.
const recentCount = 5

// SummaryTask returns the poller task that fetches the summary cards.
func SummaryTask(backend *api.Backend) sync.Task {
	return func(ctx context.Context) (interface{}, error) {
		return backend.Analytics.Dashboard(ctx)
	}
}

// SummaryMsg carries a polled summary.
type SummaryMsg struct {
	Summary *model.DashboardSummary
	Err     error
}

// DetailsMsg carries the breakdowns that are fetched once per visit.
type DetailsMsg struct {
	Recent       []model.Review
	ByDepartment []model.DepartmentCount
	Ratings      []model.RatingCount
	Activity     []model.Activity
	Err          error
}

// Model is the dashboard screen.
type Model struct {
	backend *api.Backend

	summary    *model.DashboardSummary
	summaryErr error
	details    DetailsMsg
	loaded     bool
	width      int
	height     int
}

// New creates the dashboard screen.
func New(backend *api.Backend, width, height int) Model {
	return Model{backend: backend, width: width, height: height}
}

// Init loads the breakdowns.
func (m Model) Init() tea.Cmd {
	return m.LoadDetails()
}

// LoadDetails fetches recent reviews and the analytics breakdowns.
// Each part is independent; the first failure is reported.
func (m Model) LoadDetails() tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ui.RequestTimeout)
		defer cancel()

		var msg DetailsMsg
		var errs []error
		var err error
		if msg.Recent, err = b.LatestReviews(ctx, recentCount); err != nil {
			errs = append(errs, fmt.Errorf("recent reviews: %w", err))
		}
		if msg.ByDepartment, err = b.Analytics.ReviewsByDepartment(ctx); err != nil {
			errs = append(errs, fmt.Errorf("reviews by department: %w", err))
		}
		if msg.Ratings, err = b.Analytics.RatingDistribution(ctx); err != nil {
			errs = append(errs, fmt.Errorf("rating distribution: %w", err))
		}
		if msg.Activity, err = b.Analytics.RecentActivity(ctx); err != nil {
			errs = append(errs, fmt.Errorf("recent activity: %w", err))
		}
		if len(errs) > 0 {
			msg.Err = errs[0]
		}
		return msg
	}
}

// Summary returns the last polled summary.
func (m Model) Summary() *model.DashboardSummary {
	return m.summary
}

// Update handles messages for the dashboard.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SummaryMsg:
		// Poll failures stay on the cards; the next tick may recover.
		if msg.Err != nil {
			if !errors.Is(msg.Err, context.Canceled) {
				m.summaryErr = msg.Err
			}
			return m, nil
		}
		m.summary, m.summaryErr = msg.Summary, nil
		return m, nil

	case DetailsMsg:
		m.loaded = true
		m.details = msg
		if msg.Err != nil {
			return m, ui.Fail(msg.Err)
		}
		return m, nil
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	cards := m.renderCards()
	if !m.loaded {
		return lipgloss.JoinVertical(lipgloss.Left, cards, theme.HelpStyle.Render("Loading analytics..."))
	}

	colWidth := m.width/2 - 2
	if colWidth < 30 {
		colWidth = 30
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.section("Recent Reviews", m.renderRecent(), colWidth),
		m.section("Recent Activity", m.renderActivity(), colWidth),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.section("Reviews by Department", m.renderDepartments(colWidth-6), colWidth),
		m.section("Rating Distribution", m.renderRatings(colWidth-6), colWidth),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		cards,
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
	)
}

func (m Model) renderCards() string {
	s := m.summary
	if s == nil {
		s = &model.DashboardSummary{}
	}

	card := func(label, value string) string {
		return theme.PanelStyle.
			Padding(0, 2).
			Render(theme.HelpStyle.Render(label) + "\n" + lipgloss.NewStyle().Bold(true).Render(value))
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total Reviews", fmt.Sprintf("%d", s.TotalReviews)),
		card("Active Users", fmt.Sprintf("%d", s.ActiveUsers)),
		card("Active Promotions", fmt.Sprintf("%d", s.ActivePromotions)),
		card("Average Rating", theme.RatingStyle(s.AvgRating).Render(fmt.Sprintf("%.1f %s", s.AvgRating, model.Stars(s.AvgRating)))),
	)
	if m.summaryErr != nil {
		row += "\n" + theme.UrgentStyle.Render("Summary unavailable: "+api.Message(m.summaryErr))
	}
	return row
}

func (m Model) section(title, body string, width int) string {
	return theme.PanelStyle.
		Padding(0, 1).
		Width(width).
		Render(theme.TitleStyle.MarginBottom(0).Render(title) + "\n" + body)
}

func (m Model) renderRecent() string {
	if len(m.details.Recent) == 0 {
		return theme.HelpStyle.Render("No reviews yet.")
	}
	lines := make([]string, len(m.details.Recent))
	for i, r := range m.details.Recent {
		name := r.GuestName
		if name == "" {
			name = r.Username
		}
		stars := theme.RatingStyle(r.Rating).Render(model.Stars(r.Rating))
		lines[i] = fmt.Sprintf("%s %s · %s", stars, name, theme.DepartmentStyle(r.Department).Render(string(r.Department)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderActivity() string {
	if len(m.details.Activity) == 0 {
		return theme.HelpStyle.Render("Nothing recent.")
	}
	n := ui.Clamp(len(m.details.Activity), 0, recentCount)
	lines := make([]string, n)
	for i, a := range m.details.Activity[:n] {
		lines[i] = fmt.Sprintf("%s  %s", theme.HelpStyle.Render(model.FormatDate(a.Timestamp)), a.Message)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderDepartments(width int) string {
	rows := make([]bar, len(m.details.ByDepartment))
	for i, d := range m.details.ByDepartment {
		rows[i] = bar{label: d.Department, count: d.Count, style: theme.DepartmentStyle(model.Department(d.Department))}
	}
	return renderBars(rows, width)
}

func (m Model) renderRatings(width int) string {
	ratings := append([]model.RatingCount(nil), m.details.Ratings...)
	sort.Slice(ratings, func(i, j int) bool { return ratings[i].Rating > ratings[j].Rating })

	rows := make([]bar, len(ratings))
	for i, r := range ratings {
		rows[i] = bar{label: fmt.Sprintf("%d ★", r.Rating), count: r.Count, style: theme.RatingStyle(float64(r.Rating))}
	}
	return renderBars(rows, width)
}

type bar struct {
	label string
	count int
	style lipgloss.Style
}

// renderBars draws a horizontal bar chart scaled to the largest count.
func renderBars(rows []bar, width int) string {
	if len(rows) == 0 {
		return theme.HelpStyle.Render("No data.")
	}

	labelWidth, top := 0, 0
	for _, r := range rows {
		if w := lipgloss.Width(r.label); w > labelWidth {
			labelWidth = w
		}
		if r.count > top {
			top = r.count
		}
	}
	barWidth := width - labelWidth - 8
	if barWidth < 5 {
		barWidth = 5
	}

	lines := make([]string, len(rows))
	for i, r := range rows {
		n := 0
		if top > 0 {
			n = r.count * barWidth / top
		}
		label := lipgloss.NewStyle().Width(labelWidth).Render(r.label)
		lines[i] = fmt.Sprintf("%s %s %d", label, r.style.Render(strings.Repeat("█", n)), r.count)
	}
	return strings.Join(lines, "\n")
}

// SetSize updates the dashboard dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
