// Package main implements the rainbow-bench binary, which fills a table with
// random starts, writes it out and times lookups of sampled plaintexts.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"rainbow-table/common"
	_ "rainbow-table/plugins/hashes"
	"rainbow-table/plugins/reductions"
	rainbowLib "rainbow-table/rainbow"
)

func main() {
	var (
		configFilePath string
		rows           int
		lookups        int
		length         int
		seed           int64
		outDir         string
		both           bool
	)
	flag.StringVar(&configFilePath, "config", "", "path to the configuration file")
	flag.IntVar(&rows, "rows", 10000, "number of random starts")
	flag.IntVar(&lookups, "lookups", 20, "number of sampled lookups")
	flag.IntVar(&length, "length", 6, "length of random starts")
	flag.Int64Var(&seed, "seed", 1, "random seed")
	flag.StringVar(&outDir, "out", os.TempDir(), "directory for the written tables")
	flag.BoolVar(&both, "compare", false, "fill sequentially as well and compare")
	flag.Uint32("iterations", 0, "chain length")
	flag.Int("workers", 0, "worker pool size (0 = one per CPU)")
	flag.Parse()

	formatter := new(log.TextFormatter)
	formatter.FullTimestamp = true
	log.SetFormatter(formatter)

	config, err := rainbowLib.LoadConfig(configFilePath, flag.CommandLine)
	if err != nil {
		log.Fatal(err)
	}

	modes := []bool{true}
	if both {
		modes = []bool{false, true}
	}

	for _, parallel := range modes {
		config.Parallel = parallel
		table, err := config.Build()
		if err != nil {
			log.Fatal(err)
		}
		if err := run(config, table, rows, lookups, length, seed, outDir); err != nil {
			log.Fatal(err)
		}
	}
}

func run(config *rainbowLib.Config, table *rainbowLib.Table, rows, lookups, length int, seed int64, outDir string) error {
	rng := rand.New(rand.NewSource(seed))
	gen, err := common.RandomGenerator(rng, reductions.LowercaseAlphabet, length)
	if err != nil {
		return err
	}

	report, err := rainbowLib.Fill(context.Background(), table, rows, gen, config.FillOptions())
	if err != nil {
		return fmt.Errorf("unable to fill: %w", err)
	}
	fmt.Printf("Finished filling %d rows in %.3f seconds (parallel=%t, endpoints=%d, merges=%d)\n",
		rows, report.Elapsed.Seconds(), config.Parallel, table.Size(), table.Merges())

	path := filepath.Join(outDir, fmt.Sprintf("rainbow-bench-%d.table.zst", time.Now().UnixNano()))
	before := time.Now()
	if err := rainbowLib.Save(table, path); err != nil {
		return err
	}
	fmt.Printf("Saved table to %s in %.3f seconds\n", path, time.Since(before).Seconds())

	reloaded := rainbowLib.NewTable(table.Engine())
	before = time.Now()
	if err := rainbowLib.Load(reloaded, path, rainbowLib.LoadOptions{}); err != nil {
		return err
	}
	fmt.Printf("Loaded %d chains in %.3f seconds\n", reloaded.Chains(), time.Since(before).Seconds())
	_ = os.Remove(path)

	hits := 0
	var total time.Duration
	for i := 0; i < lookups; i++ {
		p, err := reloaded.SamplePlaintext(rng)
		if err != nil {
			return err
		}
		target, err := reloaded.Engine().Hash(p)
		if err != nil {
			return err
		}
		before := time.Now()
		found, err := rainbowLib.Lookup(reloaded, target)
		if err != nil {
			return err
		}
		elapsed := time.Since(before)
		total += elapsed
		if len(found) > 0 {
			hits++
		}
		fmt.Printf("%s %s: %d candidates in %.3f seconds\n", p, target, len(found), elapsed.Seconds())
	}
	if lookups > 0 {
		fmt.Printf("%d/%d lookups succeeded, %.3f seconds on average\n", hits, lookups, total.Seconds()/float64(lookups))
	}
	return nil
}
