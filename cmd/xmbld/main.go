package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xmblvault/config"
	"xmblvault/core/events"
	coretypes "xmblvault/core/types"
	"xmblvault/integrations/journal"
	"xmblvault/mirror"
	"xmblvault/native/vault"
	"xmblvault/observability/logging"
	"xmblvault/observability/metrics"
	"xmblvault/rpc"
	"xmblvault/state"
	"xmblvault/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("XMBL_ENV"))
	logger := logging.Setup("xmbld", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		panic(fmt.Sprintf("Failed to create data dir: %v", err))
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	store := state.NewLedgerStore(db)
	ledger, ok, err := store.Load()
	if err != nil {
		logger.Error("Failed to restore ledger", slog.Any("error", err))
		os.Exit(1)
	}
	if !ok {
		ledger, err = vault.NewLedger(vault.DefaultCurveParams())
		if err != nil {
			logger.Error("Failed to initialise ledger", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Initialised empty ledger")
	} else {
		logger.Info("Restored ledger from disk",
			slog.Uint64("totalUnits", ledger.TotalUnitsIssued()),
			slog.String("totalValueLocked", ledger.TotalValueLocked().String()))
	}

	jrnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		logger.Error("Failed to open event journal", slog.Any("error", err))
		os.Exit(1)
	}
	defer jrnl.Close()

	readModel, err := mirror.Open(cfg.MirrorDSN)
	if err != nil {
		logger.Error("Failed to open mirror database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := catchUpMirror(readModel, jrnl); err != nil {
		logger.Error("Failed to catch up mirror", slog.Any("error", err))
		os.Exit(1)
	}

	server := rpc.NewServer(ledger, jrnl)
	vaultMetrics := metrics.Vault()

	// The emitter runs while the ledger lock is held, so the callback must not
	// call back into the ledger. Snapshot persistence and gauge refreshes run
	// through the RPC mutation hook below instead.
	ledger.SetEmitter(events.Fanout(
		events.EmitterFunc(func(evt events.Event) {
			payload, ok := evt.(interface{ Event() *coretypes.Event })
			if !ok {
				return
			}
			raw := payload.Event()
			entry, err := jrnl.Append(raw)
			if err != nil {
				logger.Error("Failed to journal event", slog.String("type", raw.Type), slog.Any("error", err))
				return
			}
			server.PublishEntry(entry)
			if err := readModel.ApplyEntry(entry); err != nil {
				logger.Error("Failed to mirror event", slog.String("type", raw.Type), slog.Any("error", err))
			}
			observe(vaultMetrics, raw)
		}),
	))

	server.SetOnMutation(func() {
		vaultMetrics.SetUnitsIssued(ledger.TotalUnitsIssued())
		vaultMetrics.SetValueLocked(bigFloat(ledger.TotalValueLocked().String()))
		if err := store.Save(ledger.Snapshot()); err != nil {
			logger.Error("Failed to persist ledger", slog.Any("error", err))
		}
	})

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("Serving metrics", slog.String("addr", cfg.MetricsAddress))
		if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
			logger.Error("Metrics server stopped", slog.Any("error", err))
		}
	}()

	go func() {
		logger.Info("Serving mirror API", slog.String("addr", cfg.MirrorAddress))
		if err := http.ListenAndServe(cfg.MirrorAddress, mirror.NewAPI(readModel).Handler()); err != nil {
			logger.Error("Mirror API stopped", slog.Any("error", err))
		}
	}()

	logger.Info("Starting JSON-RPC server",
		slog.String("addr", cfg.ListenAddress),
		slog.String("network", cfg.NetworkName))
	if err := server.Start(cfg.ListenAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// catchUpMirror replays journal entries the read model has not folded yet.
func catchUpMirror(m *mirror.Mirror, jrnl *journal.Journal) error {
	cursor, err := m.LastSeq()
	if err != nil {
		return err
	}
	return jrnl.ReplayFrom(cursor, m.ApplyEntry)
}

func observe(m *metrics.VaultMetrics, evt *coretypes.Event) {
	switch evt.Type {
	case vault.EventTypeShareIssued:
		m.ObserveShareIssued(evt.Attributes["kind"])
	case vault.EventTypeYieldDistributed:
		m.ObserveDistribution(
			bigFloat(evt.Attributes["credited"]),
			bigFloat(evt.Attributes["dust"]))
	case vault.EventTypeYieldClaimed:
		m.ObserveClaim(bigFloat(evt.Attributes["amount"]))
	case vault.EventTypeShareWithdrawn:
		m.ObserveWithdrawal()
	}
}

func bigFloat(raw string) float64 {
	value, ok := new(big.Float).SetString(raw)
	if !ok {
		return 0
	}
	out, _ := value.Float64()
	return out
}
