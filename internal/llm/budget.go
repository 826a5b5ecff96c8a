package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrBudgetExceeded is returned when a completion would push the
// day's spend past the configured limit.
var ErrBudgetExceeded = errors.New("daily model budget exceeded")

// BudgetedProvider wraps a Provider with a daily USD spend cutoff.
// Spend is persisted to a small ledger file so separate invocations
// of the binary share the same budget.
type BudgetedProvider struct {
	provider   Provider
	limitUSD   float64
	ledgerPath string

	mu sync.Mutex
}

type spendLedger struct {
	Date     string  `json:"date"`
	SpentUSD float64 `json:"spent_usd"`
	Calls    int     `json:"calls"`
}

// NewBudgetedProvider wraps the given provider with a daily spend
// limit. A limit of zero or less disables the cutoff but still keeps
// the ledger. The ledger lives at dir/spend.json.
func NewBudgetedProvider(provider Provider, limitUSD float64, dir string) *BudgetedProvider {
	return &BudgetedProvider{
		provider:   provider,
		limitUSD:   limitUSD,
		ledgerPath: filepath.Join(dir, "spend.json"),
	}
}

func (b *BudgetedProvider) Name() string { return b.provider.Name() }

func (b *BudgetedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	b.mu.Lock()
	ledger, err := b.loadLedger()
	if err != nil {
		b.mu.Unlock()
		return nil, err
	}
	if b.limitUSD > 0 && ledger.SpentUSD >= b.limitUSD {
		b.mu.Unlock()
		return nil, fmt.Errorf("spent %.4f USD of %.2f today: %w", ledger.SpentUSD, b.limitUSD, ErrBudgetExceeded)
	}
	b.mu.Unlock()

	resp, err := b.provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	ledger, lerr := b.loadLedger()
	if lerr == nil {
		ledger.SpentUSD += EstimateCost(resp.Model, resp.InputTokens, resp.OutputTokens)
		ledger.Calls++
		if werr := b.saveLedger(ledger); werr != nil {
			return resp, fmt.Errorf("recording spend: %w", werr)
		}
	}
	return resp, nil
}

// SpentToday returns the ledger's spend for the current day.
func (b *BudgetedProvider) SpentToday() (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ledger, err := b.loadLedger()
	if err != nil {
		return 0, err
	}
	return ledger.SpentUSD, nil
}

// loadLedger reads the spend file, resetting it when the day rolls
// over. Caller holds the mutex.
func (b *BudgetedProvider) loadLedger() (spendLedger, error) {
	today := time.Now().UTC().Format("2006-01-02")
	data, err := os.ReadFile(b.ledgerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return spendLedger{Date: today}, nil
		}
		return spendLedger{}, fmt.Errorf("reading spend ledger: %w", err)
	}
	var ledger spendLedger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return spendLedger{}, fmt.Errorf("parsing spend ledger: %w", err)
	}
	if ledger.Date != today {
		return spendLedger{Date: today}, nil
	}
	return ledger, nil
}

func (b *BudgetedProvider) saveLedger(ledger spendLedger) error {
	if err := os.MkdirAll(filepath.Dir(b.ledgerPath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.ledgerPath, data, 0o644)
}
