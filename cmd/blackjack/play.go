package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/cmd/blackjack/shared"
	"github.com/lox/blackjack/internal/account"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/engine"
	"github.com/lox/blackjack/internal/fileutil"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/history"
)

// PlayCmd runs a single round at an in-process table.
type PlayCmd struct {
	Players            []string `arg:"" optional:"" default:"alice" help:"Player ids to seat, in seat order"`
	Seed               string   `help:"Client seed for the shoe (random when empty)"`
	Bet                string   `default:"10" help:"Main wager per seat"`
	Bankroll           string   `default:"100" help:"Starting cash balance per player"`
	PerfectPair        string   `name:"perfect-pair" help:"Perfect Pair side wager per seat"`
	TwentyOnePlusThree string   `name:"twenty-one-plus-three" help:"21+3 side wager per seat"`
	Interactive        bool     `short:"i" help:"Prompt for each action instead of playing basic strategy"`
	Export             string   `type:"path" help:"Write the archived round as TOML to this path"`
}

func (cmd *PlayCmd) Run(g *Globals) error {
	t, err := openTable(g)
	if err != nil {
		return err
	}
	defer t.close()

	ctx, stop := shared.SetupSignalHandler(t.logger)
	defer stop()

	var in io.Reader
	if cmd.Interactive {
		in = os.Stdin
	}
	rec, err := cmd.play(ctx, t, in, os.Stdout)
	if err != nil {
		return err
	}
	if cmd.Export != "" {
		if err := fileutil.WriteAtomic(cmd.Export, 0o644, func(w io.Writer) error {
			return history.Encode(w, rec)
		}); err != nil {
			return err
		}
		t.logger.Info().Str("path", cmd.Export).Str("game_id", rec.GameID).Msg("Exported round")
	}
	return nil
}

func (cmd *PlayCmd) wagers() (map[string]*game.Wager, error) {
	bet, err := decimal.NewFromString(cmd.Bet)
	if err != nil {
		return nil, fmt.Errorf("invalid bet %q: %w", cmd.Bet, err)
	}
	var sides []game.SideWager
	for _, s := range []struct {
		kind   game.HandWagerType
		amount string
	}{
		{game.WagerPerfectPair, cmd.PerfectPair},
		{game.WagerTwentyOnePlusThree, cmd.TwentyOnePlusThree},
	} {
		if s.amount == "" {
			continue
		}
		amount, err := decimal.NewFromString(s.amount)
		if err != nil {
			return nil, fmt.Errorf("invalid %s wager %q: %w", s.kind, s.amount, err)
		}
		sides = append(sides, game.SideWager{Type: s.kind, Amount: amount, Outcome: game.OutcomeUnknown})
	}

	wagers := make(map[string]*game.Wager, len(cmd.Players))
	for _, p := range cmd.Players {
		wagers[p] = &game.Wager{
			Type:   game.WagerMain,
			Amount: bet,
			Sides:  append([]game.SideWager(nil), sides...),
		}
	}
	return wagers, nil
}

// play seats the players, deals, drives every hand to completion and
// returns the archived record. A nil in plays basic strategy.
func (cmd *PlayCmd) play(ctx context.Context, t *table, in io.Reader, out io.Writer) (*history.Record, error) {
	if len(cmd.Players) == 0 {
		return nil, errors.New("at least one player is required")
	}
	bankroll, err := decimal.NewFromString(cmd.Bankroll)
	if err != nil {
		return nil, fmt.Errorf("invalid bankroll %q: %w", cmd.Bankroll, err)
	}
	wagers, err := cmd.wagers()
	if err != nil {
		return nil, err
	}
	for _, p := range cmd.Players {
		t.ledger.AddUser(p, map[string]decimal.Decimal{account.DefaultBalanceType: bankroll})
	}

	state, err := t.engine.CreateGame(ctx, cmd.Players[0], cmd.Seed)
	if err != nil {
		return nil, err
	}
	for _, p := range cmd.Players[1:] {
		if state, err = t.engine.JoinGame(ctx, state.ID, p); err != nil {
			return nil, err
		}
	}
	fmt.Fprintf(out, "seed %s\nhash %s\n", state.Seed, state.Hash)

	if state, err = t.engine.StartGame(ctx, state.ID, wagers); err != nil {
		return nil, err
	}
	renderTable(out, state)

	var prompt *bufio.Scanner
	if in != nil {
		prompt = bufio.NewScanner(in)
	}
	for state.Status == game.StatusActive {
		seat, hand := nextHand(state)
		if hand == nil {
			return nil, fmt.Errorf("game %s is active with no playable hand", state.ID)
		}
		c := engine.Command{PlayerID: seat.PlayerID, HandIndex: hand.HandIndex}
		upcard := state.Players.DealerHand().Cards[0]

		if prompt != nil {
			c.Type, c.Accept, err = ask(prompt, out, seat.PlayerID, hand)
			if err != nil {
				return nil, err
			}
		} else {
			c.Type, c.Accept = basicStrategy(hand, upcard)
		}

		next, err := t.engine.Apply(ctx, state.ID, c)
		if err != nil {
			kind, _ := engine.KindOf(err)
			if kind != engine.KindValidation && kind != engine.KindFunding {
				return nil, err
			}
			fmt.Fprintf(out, "  %s: %v\n", c.Type, err)
			if prompt != nil {
				continue
			}
			// Strategy asked for more than the bankroll covers.
			c.Type, c.Accept = fallback(hand)
			if next, err = t.engine.Apply(ctx, state.ID, c); err != nil {
				return nil, err
			}
		}
		state = next
		renderTable(out, state)
	}

	rec, err := t.store.GetHistory(ctx, state.ID)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", state.ID, err)
	}
	fmt.Fprintf(out, "wagered %s  paid %s\n", rec.TotalWager.StringFixed(2), rec.TotalPayout.StringFixed(2))
	for _, p := range cmd.Players {
		u, err := t.ledger.GetUser(ctx, p)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "  %-8s %s\n", p, u.Balance(account.DefaultBalanceType).StringFixed(2))
	}
	return rec, nil
}

// nextHand returns the first hand, in seat order, that can still act.
func nextHand(g *game.GameState) (*game.PlayerSeat, *game.PlayerHand) {
	for i := range g.Players.Players {
		seat := &g.Players.Players[i]
		for j := range seat.Hands {
			if seat.Hands[j].Status.Playable() {
				return seat, &seat.Hands[j]
			}
		}
	}
	return nil, nil
}

// basicStrategy is a simplified chart: decline insurance, split aces and
// eights, double hard 10 and 11, hit below 17 or on soft 17.
func basicStrategy(h *game.PlayerHand, upcard deck.Card) (engine.CommandType, bool) {
	st := h.Status
	if st.CanInsure && h.IsLive() && h.OnlyDealt() {
		return engine.CommandInsure, false
	}
	if st.CanSplit && h.IsLive() && (h.Cards[0].IsAce() || h.Cards[0].Rank == deck.Eight) {
		return engine.CommandSplit, false
	}
	if st.CanDoubleDown && h.IsLive() && !st.IsSoft && (st.Value == 10 || st.Value == 11) && upcard.AltValue() < st.Value {
		return engine.CommandDoubleDown, false
	}
	return fallback(h)
}

func fallback(h *game.PlayerHand) (engine.CommandType, bool) {
	st := h.Status
	if st.Value < 17 || (st.IsSoft && st.Value == 17) {
		return engine.CommandHit, false
	}
	return engine.CommandStand, false
}

func ask(s *bufio.Scanner, out io.Writer, player string, h *game.PlayerHand) (engine.CommandType, bool, error) {
	options := []string{"[h]it", "[s]tand"}
	if h.Status.CanDoubleDown {
		options = append(options, "[d]ouble")
	}
	if h.Status.CanSplit {
		options = append(options, "s[p]lit")
	}
	if h.Status.CanInsure {
		options = append(options, "[i]nsure", "[n]o insurance")
	}
	for {
		fmt.Fprintf(out, "%s #%d %s: ", player, h.HandIndex, strings.Join(options, " "))
		if !s.Scan() {
			if err := s.Err(); err != nil {
				return "", false, err
			}
			return "", false, io.ErrUnexpectedEOF
		}
		switch strings.ToLower(strings.TrimSpace(s.Text())) {
		case "h", "hit":
			return engine.CommandHit, false, nil
		case "s", "stand":
			return engine.CommandStand, false, nil
		case "d", "double":
			return engine.CommandDoubleDown, false, nil
		case "p", "split":
			return engine.CommandSplit, false, nil
		case "i", "insure":
			return engine.CommandInsure, true, nil
		case "n":
			return engine.CommandInsure, false, nil
		}
	}
}
