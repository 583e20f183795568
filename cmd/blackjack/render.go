package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2E7D32")).
			Bold(true).
			Padding(0, 1)
	redCardStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E53935")).Bold(true)
	blackCardStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")).Bold(true)
	hiddenStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#757575"))
	winStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#66BB6A"))
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF5350"))
	pushStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
)

func renderCard(c deck.Card) string {
	if c.Hidden {
		return hiddenStyle.Render("??")
	}
	if c.IsRed() {
		return redCardStyle.Render(c.String())
	}
	return blackCardStyle.Render(c.String())
}

func renderCards(cards []deck.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = renderCard(c)
	}
	return strings.Join(parts, " ")
}

func renderOutcome(o game.WagerOutcomeType) string {
	switch o {
	case game.OutcomeWin:
		return winStyle.Render("win")
	case game.OutcomeLoss:
		return lossStyle.Render("loss")
	case game.OutcomePush:
		return pushStyle.Render("push")
	default:
		return ""
	}
}

func describeStatus(st *game.HandStatus) string {
	if st == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d", st.Value)
	switch {
	case st.IsBlackjack:
		b.WriteString(" blackjack")
	case st.IsBust:
		b.WriteString(" bust")
	case st.IsSoft:
		b.WriteString(" soft")
	}
	if st.WasDoubled {
		b.WriteString(" doubled")
	}
	if o := renderOutcome(st.Outcome); o != "" {
		b.WriteString(" ")
		b.WriteString(o)
	}
	return b.String()
}

// renderTable prints every seat and the dealer. The dealer's value is only
// shown once the hole card is face up.
func renderTable(w io.Writer, g *game.GameState) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Game %s  %s", g.ID, g.Status)))

	dealer := g.Players.DealerHand()
	hidden := false
	for _, c := range dealer.Cards {
		hidden = hidden || c.Hidden
	}
	line := fmt.Sprintf("  dealer    %s", renderCards(dealer.Cards))
	if !hidden {
		line += "  (" + describeStatus(dealer.Status) + ")"
	}
	fmt.Fprintln(w, line)

	g.Players.EachPlayerHand(func(seat *game.PlayerSeat, h *game.PlayerHand) {
		stake := "demo"
		if h.Wager != nil {
			stake = h.Wager.Amount.StringFixed(2)
		}
		fmt.Fprintf(w, "  %-8s  #%d %s  (%s) [%s]\n",
			seat.PlayerID, h.HandIndex, renderCards(h.Cards), describeStatus(h.Status), stake)
		if h.Wager == nil {
			return
		}
		for _, s := range h.Wager.Sides {
			fmt.Fprintf(w, "              %s %s %s\n", s.Type, s.Amount.StringFixed(2), renderOutcome(s.Outcome))
		}
	})
}
