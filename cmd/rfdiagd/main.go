package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/wingedpig/rfdiag/pkg/config"
	"github.com/wingedpig/rfdiag/pkg/diagnose"
	"github.com/wingedpig/rfdiag/pkg/invdb"
	"github.com/wingedpig/rfdiag/pkg/inventory"
	"github.com/wingedpig/rfdiag/pkg/probe"
	"github.com/wingedpig/rfdiag/pkg/server"
	"github.com/wingedpig/rfdiag/pkg/sources/maxmind"
	"github.com/wingedpig/rfdiag/pkg/sources/snmp"
	"github.com/wingedpig/rfdiag/pkg/throttle"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	listen := flag.String("listen", "", "Listen address (overrides config)")
	source := flag.String("source", "", "Inventory sheet URL or path (overrides config)")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rfdiagd version %s\n", version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *source != "" {
		cfg.Source = *source
	}
	if cfg.Source == "" {
		log.Fatalf("ERROR: No inventory source configured (use -source or the config file)")
	}

	// Snapshot store, so a dead source at startup is survivable
	var store *invdb.DB
	if cfg.DBPath != "" {
		store, err = invdb.Open(cfg.DBPath)
		if err != nil {
			log.Fatalf("ERROR: Failed to open snapshot store: %v", err)
		}
		defer store.Close()
	}

	fetcher := inventory.NewFetcher(cfg.Source, cfg.CacheDir, 1)
	inv := &inventory.Handle{}

	refresh := func(ctx context.Context) error {
		path, err := fetcher.Fetch(ctx)
		if err != nil {
			return err
		}
		ix, err := inventory.LoadFile(path)
		if err != nil {
			return err
		}
		inv.Publish(ix)

		if store != nil {
			if err := store.SaveSnapshot(ix.Records(), cfg.Source, time.Now()); err != nil {
				log.Printf("WARN: Failed to save inventory snapshot: %v", err)
			}
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	if err := refresh(ctx); err != nil {
		log.Printf("WARN: Initial inventory load failed: %v", err)
		if store != nil {
			recs, info, serr := store.LoadSnapshot()
			if serr != nil {
				log.Printf("WARN: No usable snapshot: %v", serr)
			} else {
				inv.Publish(inventory.FromRecords(recs))
				log.Printf("INFO: Serving snapshot of %s from %s (%d records)",
					info.Source, info.FetchedAt.Format(time.RFC3339), info.Records)
			}
		}
	}
	cancel()

	prober := buildProber(cfg)

	var engineOpts []diagnose.Option
	if cfg.SNMP.Enabled {
		engineOpts = append(engineOpts, diagnose.WithRouterChecker(snmp.New(snmp.Config{
			Community: cfg.SNMP.Community,
			Port:      cfg.SNMP.Port,
		})))
	}
	engine := diagnose.New(inv, prober, engineOpts...)

	th := throttle.New(cfg.Cooldown())
	done := make(chan struct{})
	defer close(done)
	go th.Run(done)

	var serverOpts []server.Option
	if cfg.Geo.CityDBPath != "" {
		geo, err := maxmind.Open(cfg.Geo.CityDBPath)
		if err != nil {
			log.Printf("WARN: Geo enrichment disabled: %v", err)
		} else {
			defer geo.Close()
			serverOpts = append(serverOpts, server.WithGeo(geo))
		}
	}
	serverOpts = append(serverOpts, server.WithAllowOrigin(cfg.AllowOrigin))

	srv := server.New(inv, engine, th, refresh, serverOpts...)
	if ix := inv.Current(); ix != nil {
		srv.Metrics().InventoryRecords.Set(float64(ix.Len()))
	}

	log.Printf("INFO: rfdiagd %s listening on %s", version, cfg.Listen)
	log.Printf("INFO: Endpoints:")
	log.Printf("INFO:   POST /api/diagnose?search_query=<q>  - Run a diagnosis")
	log.Printf("INFO:   GET  /api/inventory                  - Grouped topology view")
	log.Printf("INFO:   GET  /api/refresh                    - Reload the inventory")
	log.Printf("INFO:   GET  /healthz, GET /metrics")

	if err := http.ListenAndServe(cfg.Listen, srv.Routes()); err != nil {
		log.Fatalf("ERROR: %v", err)
	}
}

func buildProber(cfg *config.Config) probe.Prober {
	switch cfg.Probe.Mode {
	case "icmp":
		p := probe.NewICMP(cfg.Probe.Privileged)
		p.Workers = cfg.Probe.Workers
		p.RateLimit = cfg.Probe.RateLimit
		return p
	default:
		f := probe.NewFping()
		f.Bin = cfg.Probe.Bin
		return f
	}
}
