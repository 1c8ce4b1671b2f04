// Package ledger persists per-run usage records (rounds, tool calls,
// token counts, stop reason) to a local BoltDB file. It stores no
// conversation content; transcripts live and die with the process.
package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var runsBucket = []byte("runs")

// RunRecord is one completed (or aborted) agent run.
type RunRecord struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
	Model      string        `json:"model"`
	Mode       string        `json:"mode"` // "ask", "chat" or "serve"
	Rounds     int           `json:"rounds"`
	ToolCalls  int           `json:"toolCalls"`
	TokensIn   int           `json:"tokensIn"`
	TokensOut  int           `json:"tokensOut"`
	StopReason string        `json:"stopReason"`
}

// Summary aggregates all recorded runs.
type Summary struct {
	Runs      int `json:"runs"`
	Rounds    int `json:"rounds"`
	ToolCalls int `json:"toolCalls"`
	TokensIn  int `json:"tokensIn"`
	TokensOut int `json:"tokensOut"`
	Aborted   int `json:"aborted"`
}

// Ledger is a BoltDB-backed run ledger.
type Ledger struct {
	db *bolt.DB
}

// Open opens (or creates) the ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening ledger at %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating runs bucket: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the database file handle.
func (l *Ledger) Close() error { return l.db.Close() }

// Append stores one run record. Keys sort chronologically so List
// returns runs in start order.
func (l *Ledger) Append(rec RunRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding run record: %w", err)
	}
	key := fmt.Sprintf("%s/%s", rec.StartedAt.UTC().Format(time.RFC3339Nano), rec.ID)
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).Put([]byte(key), raw)
	})
}

// List returns up to limit of the most recent runs, newest first.
// limit <= 0 returns everything.
func (l *Ledger) List(limit int) ([]RunRecord, error) {
	var records []RunRecord
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(runsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding run record %s: %w", k, err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Summarize aggregates every recorded run.
func (l *Ledger) Summarize() (Summary, error) {
	var sum Summary
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(k, v []byte) error {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding run record %s: %w", k, err)
			}
			sum.Runs++
			sum.Rounds += rec.Rounds
			sum.ToolCalls += rec.ToolCalls
			sum.TokensIn += rec.TokensIn
			sum.TokensOut += rec.TokensOut
			if rec.StopReason != "complete" {
				sum.Aborted++
			}
			return nil
		})
	})
	return sum, err
}
