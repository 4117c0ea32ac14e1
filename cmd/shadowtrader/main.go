// Command shadowtrader is the process entry point: it wires the feed
// adapter, subscription manager, shadow-trading coordinator, scarcity
// controller, eligibility store, journal sink, and orchestrator together
// and runs a read-only status console alongside them. Session credentials
// and the FIX settings file path come from the environment and flags here
// rather than from a dedicated config-loading package, since the
// CLI/configuration loader is an explicit external collaborator (spec.md
// §1) — this file's job is wiring, not configuration management.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"shadowtrader/config"
	"shadowtrader/coordinator"
	"shadowtrader/eligibility"
	"shadowtrader/feed"
	"shadowtrader/feed/fixadapter"
	"shadowtrader/journal"
	"shadowtrader/orchestrator"
	"shadowtrader/scarcity"
	"shadowtrader/subscription"

	"github.com/quickfixgo/quickfix"
)

type app struct {
	cfg         config.Config
	feedAdapter feed.FeedAdapter
	subs        *subscription.Manager
	coordinator *coordinator.Coordinator
	books       *bookRegistry
	sink        journal.Sink
	supervisor  *orchestrator.Supervisor
}

func main() {
	sessionID := flag.String("session", "shadow-"+time.Now().UTC().Format("20060102T150405"), "session identifier recorded on every journal entry")
	fixSettingsPath := flag.String("fix-settings", "", "path to the quickfix session settings file")
	dbPath := flag.String("eligibility-db", "./shadowtrader_eligibility.db", "path to the eligibility cooldown SQLite file")
	journalPath := flag.String("journal", "./shadowtrader_journal.jsonl", "path to the append-only journal output file")
	symbolsCSV := flag.String("symbols", "", "comma-separated symbol universe to nominate for subscription")
	flag.Parse()

	if *fixSettingsPath == "" {
		log.Fatal("shadowtrader: -fix-settings is required")
	}
	symbols := splitSymbols(*symbolsCSV)

	cfg := config.Default(*sessionID)

	store, err := eligibility.Open(*dbPath)
	if err != nil {
		log.Fatalf("shadowtrader: opening eligibility store: %v", err)
	}
	defer store.Close()

	journalFile, err := os.OpenFile(*journalPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatalf("shadowtrader: opening journal file: %v", err)
	}
	defer journalFile.Close()
	sink := journal.NewChannelSink(journalFile, 4096)
	defer sink.Close()

	adapterCfg := &fixadapter.Config{
		ApiKey:       os.Getenv("SHADOWTRADER_API_KEY"),
		ApiSecret:    os.Getenv("SHADOWTRADER_API_SECRET"),
		Passphrase:   os.Getenv("SHADOWTRADER_PASSPHRASE"),
		SenderCompId: os.Getenv("SHADOWTRADER_SENDER_COMP_ID"),
		TargetCompId: os.Getenv("SHADOWTRADER_TARGET_COMP_ID"),
		PortfolioId:  os.Getenv("SHADOWTRADER_PORTFOLIO_ID"),
	}
	adapter := fixadapter.NewAdapter(adapterCfg, 4096)

	settings, err := loadFIXSettings(*fixSettingsPath)
	if err != nil {
		log.Fatalf("shadowtrader: loading FIX settings: %v", err)
	}
	logFactory, err := quickfix.NewScreenLogFactory(settings)
	if err != nil {
		log.Fatalf("shadowtrader: constructing FIX log factory: %v", err)
	}
	initiator, err := quickfix.NewInitiator(adapter, quickfix.NewMemoryStoreFactory(), settings, logFactory)
	if err != nil {
		log.Fatalf("shadowtrader: constructing FIX initiator: %v", err)
	}
	if err := initiator.Start(); err != nil {
		log.Fatalf("shadowtrader: starting FIX initiator: %v", err)
	}
	defer initiator.Stop()

	subs := subscription.New(cfg.MarketData, cfg.Focus, cfg.Broker, adapter, store)
	scarcityController := scarcity.New(cfg.Scarcity)
	validator := coordinator.NewDefaultValidator()
	decider := coordinator.New(*sessionID, cfg.TradingMode, cfg.ShadowTrading, cfg.TapeGate, cfg.Blueprint, subs, scarcityController, sink, validator)
	books := newBookRegistry(cfg.TapeGate.WarmupWindow)
	candidates := newStaticCandidates(symbols)

	supervisor := orchestrator.New(*sessionID, cfg.TradingMode, cfg.Orchestrator, cfg.Universe.MaxActiveSymbols,
		candidates, books, adapter, books, subs, decider, sink)

	a := &app{
		cfg:         cfg,
		feedAdapter: adapter,
		subs:        subs,
		coordinator: decider,
		books:       books,
		sink:        sink,
		supervisor:  supervisor,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return supervisor.Run(gctx) })
	g.Go(func() error { return consumeFeed(gctx, a) })

	runConsole(a)
	stop()

	if err := g.Wait(); err != nil {
		log.Printf("shadowtrader: shutdown with error: %v", err)
	}
}

// consumeFeed drains the feed adapter's depth/trade/error channels,
// updates each symbol's book and subscription telemetry, and drives the
// coordinator's per-event evaluation — the wiring-layer equivalent of the
// teacher's FromApp hot path, generalized across an arbitrary channel
// fan-in instead of one quickfix callback.
func consumeFeed(ctx context.Context, a *app) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case du := <-a.feedAdapter.Depth():
			b, _ := a.books.get(du.Symbol)
			b.ApplyDepth(du)
			a.subs.RecordDepthReceipt(du.Symbol, du.RecvTS)
			a.evaluate(du.Symbol, du.RecvTS)
		case tp := <-a.feedAdapter.Trades():
			b, _ := a.books.get(tp.Symbol)
			b.RecordTrade(tp)
			a.subs.RecordTapeReceipt(tp.Symbol, tp.RecvTS)
			a.evaluate(tp.Symbol, tp.RecvTS)
		case e := <-a.feedAdapter.Errors():
			log.Printf("shadowtrader: %s", feed.DescribeError(e))
			a.subs.HandleFeedError(e.Symbol, e.Class, time.Now())
		}
	}
}

// evaluate re-snapshots symbol's book at recvTS and runs it through the
// coordinator pipeline, mirroring bookRegistry.Snapshot's EvalInput
// construction for the event-driven (rather than watchlist-timer) trigger
// path spec.md §4.3 describes.
func (a *app) evaluate(symbol string, recvTS time.Time) {
	in, ok := a.books.Snapshot(symbol, recvTS)
	if !ok {
		return
	}
	a.coordinator.Evaluate(in)
}

func splitSymbols(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadFIXSettings(path string) (*quickfix.Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return quickfix.ParseSettings(f)
}
