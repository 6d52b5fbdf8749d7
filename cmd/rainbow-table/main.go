// Package main implements the rainbow-table binary to generate rainbow tables
// and to look up digests in them.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"rainbow-table/common"
	_ "rainbow-table/plugins/hashes"
	_ "rainbow-table/plugins/reductions"
	rainbowLib "rainbow-table/rainbow"
)

const usage = `Usage:
  rainbow-table [global flags] generate (--wordlist FILE | --count N [--alphabet A --length L])
  rainbow-table [global flags] lookup (--plaintext P | --digest HEX)
  rainbow-table [global flags] sample [--n N]

Global flags:`

func main() {
	var debug bool
	var configFilePath string
	var help bool

	global := flag.NewFlagSet("rainbow-table", flag.ExitOnError)
	global.BoolVar(&debug, "debug", false, "whether to enable debug logging")
	global.StringVar(&configFilePath, "config", "", "path to the configuration file")
	global.BoolVar(&help, "help", false, "Print usage.")
	global.Uint32("iterations", 0, "chain length")
	global.String("table-path", "", "table file, .zst/.gz/.lz4 suffixes are compressed")
	global.Bool("parallel", true, "fill the table on a worker pool")
	global.Int("workers", 0, "worker pool size (0 = one per CPU)")
	global.Bool("verify-on-load", false, "recompute every chain when loading the table")
	global.SetInterspersed(false)
	_ = global.Parse(os.Args[1:])

	if help || global.NArg() == 0 {
		fmt.Fprintln(os.Stderr, usage)
		global.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nHash drivers: %s\nReduction drivers: %s\n",
			strings.Join(rainbowLib.HashNames(), ", "), strings.Join(rainbowLib.ReductionNames(), ", "))
		os.Exit(0)
	}

	// Set up logging
	formatter := new(log.TextFormatter)
	formatter.FullTimestamp = true
	log.SetFormatter(formatter)
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	config, err := rainbowLib.LoadConfig(configFilePath, global)
	if err != nil {
		log.Fatal(err)
	}
	log.WithFields(log.Fields{
		"iterations": config.Iterations,
		"hash":       config.Hash.Name,
		"reduction":  config.Reduction.Name,
		"table":      config.TablePath,
	}).Debug("loaded configuration")

	table, err := config.Build()
	if err != nil {
		log.Fatal(fmt.Errorf("unable to set up table: %w", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := global.Args()
	switch args[0] {
	case "generate":
		err = generate(ctx, config, table, args[1:])
	case "lookup":
		err = lookup(config, table, args[1:])
	case "sample":
		err = sample(config, table, args[1:])
	default:
		err = fmt.Errorf("unknown command %q", args[0])
	}
	if err != nil {
		log.Fatal(err)
	}
}

func generate(ctx context.Context, config *rainbowLib.Config, table *rainbowLib.Table, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	wordlistPath := fs.String("wordlist", "", "path to a wordlist, one start per line")
	count := fs.Int("count", 0, "number of random starts to generate")
	alphabet := fs.String("alphabet", "abcdefghijklmnopqrstuvwxyz", "alphabet of random starts")
	length := fs.Int("length", 6, "length of random starts")
	noProgress := fs.Bool("no-progress", false, "do not draw a progress bar")
	_ = fs.Parse(args)

	var gen rainbowLib.Generator
	switch {
	case *wordlistPath != "":
		words, err := common.ReadWordlist(*wordlistPath)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"path": *wordlistPath, "words": len(words)}).Info("read wordlist")
		gen = common.SliceGenerator(words)
		*count = len(words)
	case *count > 0:
		var err error
		gen, err = common.RandomGenerator(rand.New(rand.NewSource(time.Now().UnixNano())), *alphabet, *length)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("generate needs --wordlist or --count")
	}

	log.WithFields(log.Fields{
		"iterations": config.Iterations,
		"candidates": *count,
		"parallel":   config.Parallel,
		"output":     config.TablePath,
	}).Info("Generating rainbow table")

	opts := config.FillOptions()
	opts.Events = rainbowLib.NewEventManager()
	stats := rainbowLib.NewStats()
	stats.Register(opts.Events)

	if !*noProgress {
		bar := pb.StartNew(*count)
		tick := rainbowLib.CallbackFunc(func(rainbowLib.Event) { bar.Increment() })
		for _, kind := range []rainbowLib.EventKind{
			rainbowLib.EventChainAdded, rainbowLib.EventChainMerged,
			rainbowLib.EventChainDuplicate, rainbowLib.EventCandidateFailed,
		} {
			opts.Events.Subscribe(kind, tick)
		}
		opts.Events.Subscribe(rainbowLib.EventFillFinished, rainbowLib.CallbackFunc(func(rainbowLib.Event) { bar.Finish() }))
	}

	report, err := rainbowLib.Fill(ctx, table, *count, gen, opts)
	if err != nil && !rainbowLib.IsCancelled(err) {
		return fmt.Errorf("unable to fill table: %w", err)
	}
	if err != nil {
		log.Warn("interrupted, saving the partially filled table")
	}
	stats.Print()
	for _, failure := range report.Failures() {
		log.WithError(failure).Warn("skipped candidate")
	}

	log.WithFields(log.Fields{
		"endpoints": table.Size(),
		"chains":    table.Chains(),
		"merges":    table.Merges(),
	}).Info("filled rainbow table")

	return rainbowLib.Save(table, config.TablePath)
}

func loadTable(config *rainbowLib.Config, table *rainbowLib.Table) error {
	err := rainbowLib.Load(table, config.TablePath, rainbowLib.LoadOptions{Verify: config.VerifyOnLoad})
	if err != nil {
		return fmt.Errorf("unable to load rainbow table: %w", err)
	}
	log.WithField("chains", table.Chains()).Info("Loaded chains into rainbow table")
	return nil
}

func lookup(config *rainbowLib.Config, table *rainbowLib.Table, args []string) error {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	plaintext := fs.String("plaintext", "", "plaintext whose digest is looked up")
	digestHex := fs.String("digest", "", "hex digest to look up")
	_ = fs.Parse(args)

	engine := table.Engine()
	var target rainbowLib.Digest
	switch {
	case *digestHex != "":
		var err error
		target, err = common.ParseDigest(*digestHex, engine.HashOracle().Size())
		if err != nil {
			return err
		}
	case *plaintext != "":
		var err error
		target, err = engine.Hash(*plaintext)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("lookup needs --plaintext or --digest")
	}

	if err := loadTable(config, table); err != nil {
		return err
	}

	log.WithField("digest", target.String()).Info("Looking for plaintext")
	before := time.Now()
	found, stats, err := rainbowLib.LookupWithStats(context.Background(), table, target)
	if err != nil {
		return err
	}
	elapsed := time.Since(before)

	if len(found) == 0 {
		log.WithFields(log.Fields{"digest": target.String(), "elapsed": elapsed}).Info("Found no plaintext")
		return nil
	}
	for _, p := range found {
		fmt.Println(p)
	}
	log.WithFields(log.Fields{
		"digest":          target.String(),
		"found":           len(found),
		"false_positives": stats.FalsePositives,
		"elapsed":         elapsed,
	}).Info("Found plaintext")
	return nil
}

func sample(config *rainbowLib.Config, table *rainbowLib.Table, args []string) error {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	n := fs.Int("n", 10, "number of sampled lookups")
	seed := fs.Int64("seed", time.Now().UnixNano(), "random seed")
	_ = fs.Parse(args)

	if err := loadTable(config, table); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))
	engine := table.Engine()
	hits := 0
	for i := 0; i < *n; i++ {
		p, err := table.SamplePlaintext(rng)
		if err != nil {
			return err
		}
		target, err := engine.Hash(p)
		if err != nil {
			return err
		}
		before := time.Now()
		found, err := rainbowLib.Lookup(table, target)
		if err != nil {
			return err
		}
		if len(found) > 0 {
			hits++
		}
		log.WithFields(log.Fields{
			"plaintext":  p,
			"digest":     target.String(),
			"candidates": len(found),
			"elapsed":    time.Since(before),
		}).Info("sampled lookup")
	}
	log.WithFields(log.Fields{"lookups": *n, "hits": hits}).Info("Finished self-test")
	return nil
}
