package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/tripsignal/tripsignal/internal/config"
	"github.com/tripsignal/tripsignal/internal/models"
	"github.com/tripsignal/tripsignal/internal/repository"
)

// seed loads signal definitions from a JSON fixture into the database.
// Signal editing normally lives in the user-facing CRUD layer; this tool
// exists for local setups and test environments.

type seedFile struct {
	Signals []seedSignal `json:"signals"`
}

type seedSignal struct {
	Name   string              `json:"name"`
	Config models.SignalConfig `json:"config"`
}

func main() {
	path := flag.String("file", "signals.json", "path to the signals fixture")
	flag.Parse()

	cfg := config.Load()

	b, err := os.ReadFile(*path)
	if err != nil {
		log.Fatal("read fixture:", err)
	}

	var fixture seedFile
	if err := json.Unmarshal(b, &fixture); err != nil {
		log.Fatal("parse fixture:", err)
	}
	if len(fixture.Signals) == 0 {
		log.Fatal("fixture contains no signals")
	}

	ctx := context.Background()
	pool, err := repository.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal("db:", err)
	}
	defer pool.Close()

	signalRepo := repository.NewSignalRepository(pool)

	for _, s := range fixture.Signals {
		sig, err := signalRepo.Create(ctx, s.Name, &s.Config)
		if err != nil {
			log.Fatalf("create signal %q: %v", s.Name, err)
		}
		log.Printf("created signal %s (%s)", sig.Name, sig.ID)
	}

	log.Printf("seeded %d signals", len(fixture.Signals))
}
