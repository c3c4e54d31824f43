package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"xmblvault/config"
	"xmblvault/integrations/journal"
	"xmblvault/native/vault"
	"xmblvault/state"
	"xmblvault/storage"
)

type auditReport struct {
	TotalUnits       uint64 `json:"totalUnits"`
	TotalValueLocked string `json:"totalValueLocked"`
	NextUnitPrice    string `json:"nextUnitPrice"`
	Shares           struct {
		Ordinary   int `json:"ordinary"`
		Meta       int `json:"meta"`
		ClosedMeta int `json:"closedMeta"`
	} `json:"shares"`
	AccruedYield     string `json:"accruedYield"`
	DepositSum       string `json:"depositSum"`
	LockedMatchesSum bool   `json:"lockedMatchesSum"`
	JournalEntries   uint64 `json:"journalEntries"`
	DistributionDust string `json:"distributionDust"`
}

func main() {
	configPath := flag.String("config", "./config.toml", "Path to node configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ledger, ok, err := state.NewLedgerStore(db).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load ledger: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "no persisted ledger found")
		os.Exit(1)
	}

	report := auditReport{
		TotalUnits:       ledger.TotalUnitsIssued(),
		TotalValueLocked: ledger.TotalValueLocked().String(),
	}
	next, err := ledger.NextUnitPrice()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to price next unit: %v\n", err)
		os.Exit(1)
	}
	report.NextUnitPrice = next.String()

	depositSum := big.NewInt(0)
	accrued := big.NewInt(0)
	for _, share := range ledger.Shares() {
		switch share.Kind {
		case vault.ShareKindOrdinary:
			report.Shares.Ordinary++
		case vault.ShareKindMeta:
			report.Shares.Meta++
		case vault.ShareKindClosedMeta:
			report.Shares.ClosedMeta++
		}
		depositSum.Add(depositSum, share.DepositValue)
		accrued.Add(accrued, share.AccruedYield)
	}
	report.DepositSum = depositSum.String()
	report.AccruedYield = accrued.String()
	report.LockedMatchesSum = depositSum.String() == report.TotalValueLocked

	dust := big.NewInt(0)
	if jrnl, err := journal.Open(cfg.JournalPath); err == nil {
		if last, err := jrnl.LastSeq(); err == nil {
			report.JournalEntries = last
		}
		// Dust is never persisted in ledger state; it only exists in the
		// distribution events, so the audit folds it back out of the log.
		_ = jrnl.ReplayFrom(0, func(entry *journal.Entry) error {
			if entry.Type != vault.EventTypeYieldDistributed {
				return nil
			}
			if value, ok := new(big.Int).SetString(entry.Attributes["dust"], 10); ok {
				dust.Add(dust, value)
			}
			return nil
		})
		_ = jrnl.Close()
	}
	report.DistributionDust = dust.String()

	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode report: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(output))
}
