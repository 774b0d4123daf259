// Copyright (c) 2025-present Marko Kocić <marko@euptera.com>
// SPDX-License-Identifier: EPL-2.0
// See LICENSE for full license text.

// Command cryptogains computes realized capital gains/losses and ordinary
// income from Coinbase-format transaction CSV files, using FIFO lot matching
// per asset.
//
// Usage: cryptogains [--year YYYY] [--asset BTC,ETH] [--config FILE] [-v] file1.csv [file2.csv ...]
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"cryptogains/internal/common"
	"cryptogains/internal/engine"
	"cryptogains/internal/ingest"
	"cryptogains/internal/report"
)

func main() {
	year := flag.Int("year", 0, "tax year to report (e.g. 2024). 0 = all years")
	assets := flag.StringSlice("asset", nil, "asset symbols to include (default: all). Example: BTC,ETH")
	configPath := flag.String("config", "cryptogains.toml", "path to TOML config file")
	verbose := flag.BoolP("verbose", "v", false, "verbose logging")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] file1.csv [file2.csv ...]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[0], err)
		os.Exit(1)
	}

	level := cfg.Logging.Level
	if *verbose {
		level = "debug"
	}
	logger := common.NewLogger(level)

	// Flags override the config file.
	if *year == 0 {
		*year = cfg.Year
	}
	filter := *assets
	if len(filter) == 0 {
		filter = cfg.Assets
	}

	batches := make([][]engine.Transaction, 0, len(files))
	for _, file := range files {
		txs, err := ingest.ParseFile(file, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("file", file).Msg("parse failed")
		}
		batches = append(batches, txs)
	}
	all := ingest.MergeSort(batches...)
	all = ingest.FilterAssets(all, filter)
	logger.Info().Int("transactions", len(all)).Int("files", len(files)).Msg("processing")

	eng := engine.New(logger)
	if err := eng.Process(all); err != nil {
		logger.Fatal().Err(err).Msg("processing failed")
	}

	report.Write(os.Stdout, eng.Results(), eng.Balances(), *year)
}
