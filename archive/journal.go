package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/bitfsorg/settle-go/account"
	"github.com/bitfsorg/settle-go/profitshare"
	"github.com/bitfsorg/settle-go/settlement"
)

const (
	receiptsDir = "receipts"
	rulesLog    = "rules.log"
)

// RuleChange is a journaled profit-sharing rule update.
type RuleChange struct {
	Collection    account.ID   `json:"collection"`
	Instance      string       `json:"instance"`
	Beneficiaries []account.ID `json:"beneficiaries"`
	Ratios        []uint64     `json:"ratios"`
	RecordedAt    time.Time    `json:"recorded_at"`
}

// Journal records settlement receipts and rule changes under a directory.
// Receipts are stored one file each in a FileStore; rule changes are
// appended to a JSON-lines log.
type Journal struct {
	dir      string
	receipts *FileStore
	logger   *slog.Logger
	now      func() time.Time

	mu sync.Mutex // guards the rule log
}

// Compile-time interface check.
var _ settlement.Recorder = (*Journal)(nil)

// OpenJournal opens or creates a journal in dir.
func OpenJournal(dir string, logger *slog.Logger) (*Journal, error) {
	if dir == "" {
		return nil, ErrInvalidBaseDir
	}
	fs, err := NewFileStore(filepath.Join(dir, receiptsDir))
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{dir: dir, receipts: fs, logger: logger, now: time.Now}, nil
}

// ReceiptKey returns the archive key of the receipt with the given id.
func ReceiptKey(id uuid.UUID) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(id[:])
	return h.Sum(nil)
}

// RecordSettlement stores r. It implements settlement.Recorder.
func (j *Journal) RecordSettlement(_ context.Context, r *settlement.Receipt) error {
	if r == nil {
		return ErrNilReceipt
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("archive: encode receipt: %w", err)
	}
	if err := j.receipts.Put(ReceiptKey(r.ID), data); err != nil {
		return err
	}
	j.logger.Debug("receipt archived", "receipt", r.ID, "digest", r.DigestHex())
	return nil
}

// Receipt loads the receipt with the given id.
func (j *Journal) Receipt(id uuid.UUID) (*settlement.Receipt, error) {
	data, err := j.receipts.Get(ReceiptKey(id))
	if err != nil {
		return nil, err
	}
	var r settlement.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return &r, nil
}

// Receipts loads every archived receipt, oldest first.
func (j *Journal) Receipts() ([]*settlement.Receipt, error) {
	keys, err := j.receipts.List()
	if err != nil {
		return nil, err
	}
	out := make([]*settlement.Receipt, 0, len(keys))
	for _, k := range keys {
		data, err := j.receipts.Get(k)
		if err != nil {
			return nil, err
		}
		var r settlement.Receipt
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
		}
		out = append(out, &r)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].SettledAt.Before(out[b].SettledAt) })
	return out, nil
}

// RecordRuleChange appends ev to the rule log.
func (j *Journal) RecordRuleChange(ev profitshare.ChangeEvent) error {
	rc := RuleChange{
		Collection:    ev.Collection,
		Beneficiaries: ev.Beneficiaries,
		Ratios:        ev.Ratios,
		RecordedAt:    j.now().UTC(),
	}
	if ev.Instance != nil {
		rc.Instance = ev.Instance.Dec()
	}
	line, err := json.Marshal(rc)
	if err != nil {
		return fmt.Errorf("archive: encode rule change: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(j.dir, rulesLog), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}

// Listener adapts RecordRuleChange to a profitshare.Listener. Write
// failures are logged.
func (j *Journal) Listener() profitshare.Listener {
	return func(ev profitshare.ChangeEvent) {
		if err := j.RecordRuleChange(ev); err != nil {
			j.logger.Error("journal rule change", "collection", ev.Collection, "error", err)
		}
	}
}

// RuleChanges reads the rule log in append order. A missing log yields no
// entries.
func (j *Journal) RuleChanges() ([]RuleChange, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(filepath.Join(j.dir, rulesLog))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	defer f.Close()

	var out []RuleChange
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		var rc RuleChange
		if err := json.Unmarshal(sc.Bytes(), &rc); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrCorruptRecord, line, err)
		}
		out = append(out, rc)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return out, nil
}
