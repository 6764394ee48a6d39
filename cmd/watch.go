package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/withobsrvr/ttp-consumer/internal/client"
	"github.com/withobsrvr/ttp-consumer/internal/wire"
)

var (
	watchStart    uint32
	watchEnd      uint32
	watchAccounts []string
	watchTail     int
)

// watchCmd shows an interactive terminal UI for a live event stream
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Interactive live view of a token transfer event stream",
	Long: `Launch an interactive terminal UI that follows a token transfer event
stream, showing the most recent events and running totals per event type.

Keyboard shortcuts:
  q         - Quit (closes the stream)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		c, err := client.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		stream, err := c.Events(ctx, watchStart, watchEnd, watchAccounts)
		if err != nil {
			return err
		}
		defer stream.Close()

		// Pump the stream into a channel the TUI can poll with a Cmd
		events := make(chan tea.Msg)
		go func() {
			for {
				ev, err := stream.Recv()
				if err == io.EOF {
					events <- streamDoneMsg{}
					return
				}
				if err != nil {
					events <- streamDoneMsg{err: err}
					return
				}
				events <- eventMsg{event: ev}
			}
		}()

		p := tea.NewProgram(initialWatchModel(c.Info(), events), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running watch view: %w", err)
		}

		return nil
	},
}

// Model for the watch view
type watchModel struct {
	info       string
	events     <-chan tea.Msg
	recent     []*wire.TokenTransferEvent
	tail       int
	counts     map[wire.EventType]int
	total      int
	lastLedger uint32
	started    time.Time
	done       bool
	err        error
	quitting   bool
}

// Messages
type eventMsg struct {
	event *wire.TokenTransferEvent
}
type streamDoneMsg struct {
	err error
}

func initialWatchModel(info string, events <-chan tea.Msg) watchModel {
	return watchModel{
		info:    info,
		events:  events,
		tail:    watchTail,
		counts:  make(map[wire.EventType]int),
		started: time.Now(),
	}
}

func (m watchModel) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case eventMsg:
		m.total++
		m.counts[msg.event.Type]++
		m.lastLedger = msg.event.Meta.LedgerSequence
		m.recent = append(m.recent, msg.event)
		if len(m.recent) > m.tail {
			m.recent = m.recent[len(m.recent)-m.tail:]
		}
		return m, waitForEvent(m.events)

	case streamDoneMsg:
		m.done = true
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m watchModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var s strings.Builder

	// Header
	s.WriteString(headerStyle.Render("TTP EVENT STREAM"))
	s.WriteString("\n")
	s.WriteString(dimStyle.Render("  " + m.info))
	s.WriteString("\n\n")

	// Show error if any
	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %s", m.err)))
		s.WriteString("\n\n")
		s.WriteString(helpStyle.Render("Press 'q' to quit"))
		return s.String()
	}

	// Totals section
	s.WriteString(sectionTitleStyle.Render("TOTALS"))
	s.WriteString(fmt.Sprintf(" (%d events)", m.total))
	s.WriteString("\n")
	s.WriteString(boxStyle.Render(m.renderTotals()))
	s.WriteString("\n\n")

	// Recent events section
	s.WriteString(sectionTitleStyle.Render("RECENT EVENTS"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Render(m.renderRecent()))
	s.WriteString("\n\n")

	// Footer with status and help
	status := "streaming"
	if m.done {
		status = "range complete"
	}
	s.WriteString(helpStyle.Render(fmt.Sprintf("%s | elapsed: %s | [q]uit",
		status, time.Since(m.started).Round(time.Second))))

	return s.String()
}

// Commands

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

// Rendering helpers

func (m watchModel) renderTotals() string {
	if m.total == 0 {
		return dimStyle.Render("Waiting for events...")
	}

	var s strings.Builder

	order := []wire.EventType{
		wire.EventTypeTransfer,
		wire.EventTypeMint,
		wire.EventTypeBurn,
		wire.EventTypeClawback,
		wire.EventTypeFee,
	}
	for _, t := range order {
		if n := m.counts[t]; n > 0 {
			s.WriteString(fmt.Sprintf("%-10s %d\n", t.String(), n))
		}
	}
	s.WriteString(dimStyle.Render(fmt.Sprintf("last ledger: %d", m.lastLedger)))

	return s.String()
}

func (m watchModel) renderRecent() string {
	if len(m.recent) == 0 {
		return dimStyle.Render("No events yet")
	}

	var s strings.Builder

	for i, ev := range m.recent {
		if i > 0 {
			s.WriteString("\n")
		}

		s.WriteString(activeStyle.Render("●"))
		s.WriteString(" ")
		s.WriteString(boldStyle.Render(fmt.Sprintf("%-9s", ev.Type)))
		s.WriteString(fmt.Sprintf(" ledger %d", ev.Meta.LedgerSequence))

		parties := ""
		switch {
		case ev.From != "" && ev.To != "":
			parties = fmt.Sprintf("%s → %s", shortAccount(ev.From), shortAccount(ev.To))
		case ev.From != "":
			parties = shortAccount(ev.From)
		case ev.To != "":
			parties = shortAccount(ev.To)
		}

		s.WriteString(dimStyle.Render(fmt.Sprintf("  %s  %s %s", parties, ev.Amount, ev.Asset)))
	}

	return s.String()
}

// shortAccount abbreviates a Stellar account ID for display
func shortAccount(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:5] + "…" + id[len(id)-5:]
}

// Styles

var (
	// Colors
	primaryColor = lipgloss.Color("#7D56F4")
	successColor = lipgloss.Color("#04B575")
	failColor    = lipgloss.Color("#FF0000")
	mutedColor   = lipgloss.Color("#666666")

	// Text styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			PaddingLeft(2)

	sectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(primaryColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2).
			Width(80)

	boldStyle = lipgloss.NewStyle().
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	activeStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(failColor).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Uint32Var(&watchStart, "start", 0, "first ledger of the range (inclusive)")
	watchCmd.Flags().Uint32Var(&watchEnd, "end", 0, "last ledger of the range (inclusive)")
	watchCmd.Flags().StringArrayVarP(&watchAccounts, "account", "a", nil, "account ID to filter on (repeatable)")
	watchCmd.Flags().IntVar(&watchTail, "tail", 15, "number of recent events to keep on screen")
	watchCmd.MarkFlagRequired("start")
	watchCmd.MarkFlagRequired("end")
}
