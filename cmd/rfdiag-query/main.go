// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/wingedpig/rfdiag/pkg/diagnose"
	"github.com/wingedpig/rfdiag/pkg/inventory"
	"github.com/wingedpig/rfdiag/pkg/model"
	"github.com/wingedpig/rfdiag/pkg/probe"
)

const version = "1.0.0"

func main() {
	// Parse flags
	sheet := flag.String("sheet", "./radio_links.csv", "Path to the radio-links sheet")
	fpingBin := flag.String("fping", "fping", "fping binary")
	jsonOutput := flag.Bool("json", true, "Output as JSON")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall diagnosis deadline")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rfdiag-query version %s\n", version)
		return
	}

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: rfdiag-query [options] <client|ip|bts|pop>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  rfdiag-query 'Acme Hotel'\n")
		fmt.Fprintf(os.Stderr, "  rfdiag-query --sheet=/data/radio_links.csv 10.40.2.17\n")
		os.Exit(1)
	}
	query := flag.Arg(0)

	ix, err := inventory.LoadFile(*sheet)
	if err != nil {
		log.Fatalf("ERROR: Failed to load inventory: %v", err)
	}

	inv := &inventory.Handle{}
	inv.Publish(ix)

	prober := probe.NewFping()
	prober.Bin = *fpingBin
	engine := diagnose.New(inv, prober)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := engine.Diagnose(ctx, query)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "Target %q not found in inventory\n", query)
			os.Exit(1)
		}
		log.Fatalf("ERROR: %v", err)
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(result)
		return
	}

	fmt.Printf("Verdict: %s (root cause: %s)\n\n", result.FinalStatus, result.RootCauseLevel)
	for _, p := range result.ParallelCheck {
		fmt.Printf("  %-8s %-40s %-5s loss=%s\n", p.Level, p.IP, p.Status, p.PacketLoss)
	}
	if len(result.BTSPopScan) > 0 {
		fmt.Printf("\nSector scan:\n")
		for _, b := range result.BTSPopScan {
			fmt.Printf("  %-40s %s\n", b.BaseIP, b.Status)
		}
	}
	if result.Loopback != nil {
		fmt.Printf("\nLoopback: %s %s\n", result.Loopback.IP, result.Loopback.Status)
	}
}
