package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mcdev12/rinklog/go/internal/config"
	"github.com/mcdev12/rinklog/go/internal/models"
	"github.com/mcdev12/rinklog/go/internal/session/store"
)

const defaultSeedPath = "go/internal/assets/sessions.json"

// GameSeed is one game's starting ownership, keyed by view name
type GameSeed struct {
	GameID  string                   `json:"game_id"`
	Loggers map[string]models.Logger `json:"loggers"`
}

type summary struct {
	total, seeded, skipped, errs int
}

func main() {
	path := defaultSeedPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load the JSON snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	var games []GameSeed
	if err := json.Unmarshal(data, &games); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal JSON: %v\n", err)
		os.Exit(1)
	}

	// 2) Open the configured store
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	kv, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer kv.Close()

	// 3) Seed games that have no holders yet
	sum := seed(ctx, store.NewSessionStore(kv, cfg.DeviceID), games)

	// 4) Print summary
	fmt.Printf(
		"Sessions seed complete: %d total, %d seeded, %d skipped, %d errors\n",
		sum.total, sum.seeded, sum.skipped, sum.errs,
	)
}

func openStore(ctx context.Context, cfg config.Config) (store.KV, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		return store.OpenPostgres(ctx, cfg.DB.DSN(), cfg.NotifyChannel)
	case config.StoreSQLite:
		return store.OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("store %q does not outlive this process", cfg.StoreBackend)
	}
}

func seed(ctx context.Context, st *store.SessionStore, games []GameSeed) summary {
	sum := summary{total: len(games)}
	for _, g := range games {
		assignments, err := g.assignments()
		if err != nil {
			fmt.Fprintf(os.Stderr, "game %s: %v\n", g.GameID, err)
			sum.errs++
			continue
		}

		existing, err := st.LoadGame(ctx, g.GameID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading game %s: %v\n", g.GameID, err)
			sum.errs++
			continue
		}
		if len(existing.Assignments) > 0 {
			sum.skipped++
			continue
		}

		if err := st.SaveGame(ctx, g.GameID, assignments, existing.Requests); err != nil {
			fmt.Fprintf(os.Stderr, "error saving game %s: %v\n", g.GameID, err)
			sum.errs++
			continue
		}
		sum.seeded++
	}
	return sum
}

func (g GameSeed) assignments() (models.Assignments, error) {
	if g.GameID == "" {
		return nil, fmt.Errorf("game_id is required")
	}
	out := make(models.Assignments, len(g.Loggers))
	for name, l := range g.Loggers {
		view, err := models.ParseViewID(name)
		if err != nil {
			return nil, err
		}
		if l.ID == "" {
			return nil, fmt.Errorf("view %s: logger id is required", view)
		}
		if l.Initials == "" {
			l.Initials = models.DeriveInitials(l.DisplayName)
		}
		out[view] = models.AssignmentFor(l)
	}
	return out, nil
}
