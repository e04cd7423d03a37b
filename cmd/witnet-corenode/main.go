// Command witnet-corenode wires the consensus engine, persistence layer,
// cryptography provider, transaction pool and RADON evaluator together
// into a runnable node (SPEC_FULL.md §4: "cmd/witnet-corenode — CLI
// entrypoint wiring the above"). Mirrors the teacher's
// cmd/rubin-node/main.go shape: a flag.FlagSet parsed in run(args, stdout,
// stderr) so the binary stays testable without spawning a process, with
// os.Exit confined to main().
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/witnet-go/core/consensus"
	"github.com/witnet-go/core/cryptoutil"
	"github.com/witnet-go/core/radon"
	"github.com/witnet-go/core/store"
	"github.com/witnet-go/core/txpool"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	defaults := DefaultConfig()
	cfg := defaults

	fs := flag.NewFlagSet("witnet-corenode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Network, "network", defaults.Network, "network name (devnet/testnet/mainnet)")
	fs.StringVar(&cfg.DataDir, "datadir", defaults.DataDir, "node data directory")
	fs.StringVar(&cfg.BindAddr, "bind", defaults.BindAddr, "bind address host:port (RPC surface, not yet served)")
	fs.StringVar(&cfg.LogLevel, "log-level", defaults.LogLevel, "log level: debug|info|warn|error")
	mineBlocks := fs.Int("mine-blocks", 0, "mine N blocks locally (eligibility-gated, devnet only) after startup")
	mineExit := fs.Bool("mine-exit", false, "exit immediately after local mining")
	dryRun := fs.Bool("dry-run", false, "print effective config and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if err := ValidateConfig(cfg); err != nil {
		_, _ = fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return 2
	}

	logger := newLogger(stderr, cfg.LogLevel)

	if *dryRun {
		_, _ = fmt.Fprintf(stdout, "network=%s datadir=%s bind=%s log-level=%s\n", cfg.Network, cfg.DataDir, cfg.BindAddr, cfg.LogLevel)
		return 0
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		_, _ = fmt.Fprintf(stderr, "datadir create failed: %v\n", err)
		return 2
	}

	db, err := store.Open(filepath.Join(cfg.DataDir, "chain.db"))
	if err != nil {
		logger.Error("store open failed", "error", err)
		return 2
	}
	defer func() { _ = db.Close() }()

	params := consensus.DefaultMainnetParams()
	wips := consensus.NewActiveWips(nil)
	crypto := cryptoutil.Provider{}
	rad := radon.Evaluator{}

	cm := consensus.NewChainManager(params, wips, crypto, rad)

	if info, ok, err := db.GetChainInfo(); err != nil {
		logger.Error("chain info load failed", "error", err)
		return 2
	} else if ok {
		logger.Info("resumed chain state", "tip_checkpoint", info.Tip.Checkpoint, "tip_hash", info.Tip.HashPrevBlock.String())
	} else {
		if err := db.PutChainInfo(consensus.ChainInfo{GenesisHash: params.GenesisHash, Tip: cm.Tip()}); err != nil {
			logger.Error("chain info init failed", "error", err)
			return 2
		}
		logger.Info("initialized fresh chain state", "genesis_hash", params.GenesisHash.String())
	}

	pool := txpool.New(nil)
	logger.Info("node ready", "network", cfg.Network, "bind", cfg.BindAddr, "mempool_len", pool.Len())

	if *mineBlocks > 0 {
		signer, err := cryptoutil.GenerateSigner()
		if err != nil {
			logger.Error("signer generation failed", "error", err)
			return 2
		}
		mined, err := mineLocally(cm, db, pool, rad, params, wips, signer, *mineBlocks, logger)
		if err != nil {
			logger.Error("local mining failed", "error", err)
			return 2
		}
		for _, b := range mined {
			_, _ = fmt.Fprintf(stdout, "mined: checkpoint=%d hash=%s txs=%d\n", b.Header.Beacon.Checkpoint, b.Hash().String(), len(b.Txns.All()))
		}
		if *mineExit {
			return 0
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, _ = fmt.Fprintln(stdout, "witnet-corenode running")
	<-ctx.Done()
	_, _ = fmt.Fprintln(stdout, "witnet-corenode stopped")
	return 0
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}
