package router

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quantrail/sor/pkg/types"
)

// LedgerStore optionally backs the ledger with durable per-key record
// lists. The store mirrors the in-memory append/trim contract; the
// in-memory ledger stays authoritative when the store fails.
type LedgerStore interface {
	Load(ctx context.Context, symbol, venue string) ([]types.PerformanceRecord, error)
	Append(ctx context.Context, symbol, venue string, rec types.PerformanceRecord, cap int) error
}

// PerformanceLedger keeps a bounded history of routing outcomes per
// (symbol, venue) key and derives a smoothed historical-performance
// score from it. The key map is guarded separately from the per-key
// record lists so concurrent calls on different keys never contend.
type PerformanceLedger struct {
	mu      sync.RWMutex
	entries map[string]*ledgerEntry
	store   LedgerStore
	logger  *logrus.Entry
}

type ledgerEntry struct {
	mu      sync.Mutex
	records []types.PerformanceRecord
	loaded  bool
}

// NewPerformanceLedger creates an in-memory ledger. store may be nil.
func NewPerformanceLedger(store LedgerStore) *PerformanceLedger {
	return &PerformanceLedger{
		entries: make(map[string]*ledgerEntry),
		store:   store,
		logger:  logrus.WithField("component", "performance-ledger"),
	}
}

// Score returns the historical-performance score for a (symbol, venue)
// key in [0,1]. With no history it returns the fixed default; otherwise
// performance degrades linearly with the mean slippage of the most
// recent records and floors at zero.
func (l *PerformanceLedger) Score(symbol, venue string) float64 {
	entry := l.entry(symbol, venue)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	l.hydrate(entry, symbol, venue)

	if len(entry.records) == 0 {
		return defaultHistoricalScore
	}

	recent := entry.records
	if len(recent) > scoreWindow {
		recent = recent[len(recent)-scoreWindow:]
	}

	total := 0.0
	for _, rec := range recent {
		total += rec.SlippageBps
	}
	mean := total / float64(len(recent))

	score := 1 - mean/100
	if score < 0 {
		score = 0
	}
	return score
}

// Record appends a routing outcome for a (symbol, venue) key, evicting
// the oldest records once the cap is exceeded.
func (l *PerformanceLedger) Record(ctx context.Context, symbol, venue string, slippageBps float64) {
	entry := l.entry(symbol, venue)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	l.hydrate(entry, symbol, venue)

	rec := types.PerformanceRecord{
		Timestamp:   time.Now(),
		Venue:       venue,
		SlippageBps: slippageBps,
	}
	entry.records = append(entry.records, rec)
	if len(entry.records) > ledgerCap {
		entry.records = entry.records[len(entry.records)-ledgerCap:]
	}

	if l.store != nil {
		if err := l.store.Append(ctx, symbol, venue, rec, ledgerCap); err != nil {
			l.logger.WithFields(logrus.Fields{
				"symbol": symbol,
				"venue":  venue,
			}).Warnf("ledger store append failed: %v", err)
		}
	}
}

// History returns a copy of the stored records for a key
func (l *PerformanceLedger) History(symbol, venue string) []types.PerformanceRecord {
	entry := l.entry(symbol, venue)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	l.hydrate(entry, symbol, venue)

	out := make([]types.PerformanceRecord, len(entry.records))
	copy(out, entry.records)
	return out
}

// entry returns the ledger entry for a key, creating it lazily on
// first touch. Keys are never deleted for the life of the process.
func (l *PerformanceLedger) entry(symbol, venue string) *ledgerEntry {
	key := symbol + ":" + venue

	l.mu.RLock()
	entry, ok := l.entries[key]
	l.mu.RUnlock()
	if ok {
		return entry
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok = l.entries[key]; ok {
		return entry
	}
	entry = &ledgerEntry{}
	l.entries[key] = entry
	return entry
}

// hydrate loads a key's history from the backing store once. Callers
// must hold entry.mu.
func (l *PerformanceLedger) hydrate(entry *ledgerEntry, symbol, venue string) {
	if entry.loaded || l.store == nil {
		entry.loaded = true
		return
	}
	entry.loaded = true

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	records, err := l.store.Load(ctx, symbol, venue)
	if err != nil {
		l.logger.WithFields(logrus.Fields{
			"symbol": symbol,
			"venue":  venue,
		}).Warnf("ledger store load failed, starting empty: %v", err)
		return
	}
	if len(records) > ledgerCap {
		records = records[len(records)-ledgerCap:]
	}
	entry.records = records
}
