package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/fileutil"
	"github.com/lox/blackjack/internal/history"
)

// HistoryCmd is the root command for archived rounds.
type HistoryCmd struct {
	List   HistoryListCmd   `cmd:"" help:"List archived rounds"`
	Show   HistoryShowCmd   `cmd:"" help:"Print an archived round as TOML"`
	Export HistoryExportCmd `cmd:"" help:"Write an archived round to a TOML file"`
	Verify HistoryVerifyCmd `cmd:"" help:"Check an exported round against its shoe commitment"`
}

func openArchive(g *Globals) (tableStore, func() error, error) {
	cfg, logger, err := loadSettings(g)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Storage.Driver != config.DriverSQLite {
		logger.Warn().Str("driver", cfg.Storage.Driver).Msg("History is not persisted by this storage driver")
	}
	return openStore(cfg)
}

type HistoryListCmd struct{}

func (cmd *HistoryListCmd) Run(g *Globals) error {
	store, closeStore, err := openArchive(g)
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := store.ListHistory(context.Background())
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Fprintf(os.Stdout, "%s  %s  seats=%d  wagered=%s  paid=%s\n",
			rec.GameID, rec.CompletedAt.Format("2006-01-02 15:04:05"), len(rec.Seats),
			rec.TotalWager.StringFixed(2), rec.TotalPayout.StringFixed(2))
	}
	return nil
}

type HistoryShowCmd struct {
	GameID string `arg:"" name:"game" help:"Game id"`
}

func (cmd *HistoryShowCmd) Run(g *Globals) error {
	store, closeStore, err := openArchive(g)
	if err != nil {
		return err
	}
	defer closeStore()

	rec, err := store.GetHistory(context.Background(), cmd.GameID)
	if err != nil {
		return err
	}
	return history.Encode(os.Stdout, rec)
}

type HistoryExportCmd struct {
	GameID string `arg:"" name:"game" help:"Game id"`
	Output string `arg:"" type:"path" help:"Destination TOML file"`
}

func (cmd *HistoryExportCmd) Run(g *Globals) error {
	store, closeStore, err := openArchive(g)
	if err != nil {
		return err
	}
	defer closeStore()

	rec, err := store.GetHistory(context.Background(), cmd.GameID)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(cmd.Output, 0o644, func(w io.Writer) error {
		return history.Encode(w, rec)
	})
}

type HistoryVerifyCmd struct {
	File  string `arg:"" type:"existingfile" help:"Exported TOML round"`
	Decks int    `default:"6" help:"Decks in the shoe the round was dealt from"`
}

func (cmd *HistoryVerifyCmd) Run() error {
	f, err := os.Open(filepath.Clean(cmd.File))
	if err != nil {
		return err
	}
	defer f.Close()

	rec, err := history.Decode(f)
	if err != nil {
		return err
	}
	if err := verifyRecord(rec, deck.NewProvableShoe(cmd.Decks)); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s: commitment and dealt cards verified\n", rec.GameID)
	return nil
}

// verifyRecord checks that the hash commits to the seed and game id, and
// that the cards on the table are exactly the front of the committed shoe.
func verifyRecord(rec *history.Record, src deck.ProvableShoe) error {
	if want := src.Commit(rec.Seed, rec.GameID); want != rec.Hash {
		return fmt.Errorf("hash %s does not match seed commitment %s", rec.Hash, want)
	}

	dealt := map[string]int{}
	total := 0
	count := func(cards []string) {
		for _, c := range cards {
			dealt[c]++
			total++
		}
	}
	count(rec.Dealer.Cards)
	for _, seat := range rec.Seats {
		for _, h := range seat.Hands {
			count(h.Cards)
		}
	}

	shoe, err := src.Shoe(rec.Hash)
	if err != nil {
		return err
	}
	if total > len(shoe) {
		return fmt.Errorf("round dealt %d cards from a %d card shoe", total, len(shoe))
	}
	for _, c := range shoe[:total] {
		dealt[c.Code()]--
	}
	for code, n := range dealt {
		if n != 0 {
			return fmt.Errorf("card %s does not match the committed shoe", code)
		}
	}
	return nil
}
