package main

import (
	"fmt"
	"os"

	"github.com/lox/blackjack/internal/deck"
)

// ShoeCmd reveals the commitment and shoe order for a seed.
type ShoeCmd struct {
	Seed   string `arg:"" help:"Client seed"`
	GameID string `arg:"" name:"game" help:"Game id the seed was committed for"`
	Cards  int    `short:"n" default:"20" help:"Number of cards to show"`
}

func (cmd *ShoeCmd) Run(g *Globals) error {
	cfg, _, err := loadSettings(g)
	if err != nil {
		return err
	}
	src := deck.NewProvableShoe(cfg.Engine.Decks)
	hash := src.Commit(cmd.Seed, cmd.GameID)
	cards, err := src.Shoe(hash)
	if err != nil {
		return err
	}

	n := cmd.Cards
	if n <= 0 || n > len(cards) {
		n = len(cards)
	}
	fmt.Fprintf(os.Stdout, "hash  %s\ndecks %d\n", hash, src.Decks)
	for i := 0; i < n; i++ {
		fmt.Fprintf(os.Stdout, "%4d  %s\n", i, renderCard(cards[i]))
	}
	return nil
}
