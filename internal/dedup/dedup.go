// Package dedup merges raw search hits into canonical candidates.
package dedup

import (
	"fmt"
	"math"
	"sync"

	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/internal/textutil"
)

// Key returns the canonical key for r: the compacted name plus the
// coordinates rounded to three decimals (about 100 m). Without coordinates
// the compacted address is used as the location bucket.
func Key(r model.RawCandidate) string {
	name := textutil.Compact(r.Name)
	if r.Location != nil {
		lat := math.Round(r.Location.Lat*1000) / 1000
		lng := math.Round(r.Location.Lng*1000) / 1000
		return fmt.Sprintf("%s|%.3f,%.3f", name, lat, lng)
	}
	return name + "|" + textutil.Compact(r.Address)
}

// MergeResult reports what one Merge call did.
type MergeResult struct {
	// Added holds keys of candidates first seen in this batch.
	Added []string
	// Merged counts hits folded into an existing candidate.
	Merged int
}

// Deduplicator holds the canonical candidate set for one pipeline run. It is
// safe for concurrent use.
type Deduplicator struct {
	mu      sync.Mutex
	byKey   map[string]*model.CanonicalCandidate
	byPlace map[string]string
	order   []string
}

// New creates an empty Deduplicator.
func New() *Deduplicator {
	return &Deduplicator{
		byKey:   make(map[string]*model.CanonicalCandidate),
		byPlace: make(map[string]string),
	}
}

// Merge folds a batch of raw hits into the set. A hit joins an existing
// candidate when its key matches or when it carries a provider place id
// already seen. Hits without a name are dropped.
func (d *Deduplicator) Merge(batch []model.RawCandidate) MergeResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	var res MergeResult
	for _, r := range batch {
		if textutil.Compact(r.Name) == "" {
			continue
		}
		key := Key(r)
		if r.PlaceID != "" {
			if k, ok := d.byPlace[r.PlaceID]; ok {
				key = k
			}
		}

		if c, ok := d.byKey[key]; ok {
			c.Absorb(r)
			res.Merged++
		} else {
			c := model.NewCanonical(key, r)
			d.byKey[key] = &c
			d.order = append(d.order, key)
			res.Added = append(res.Added, key)
		}
		if r.PlaceID != "" {
			d.byPlace[r.PlaceID] = key
		}
	}
	return res
}

// Candidates returns copies of all candidates in first-seen order.
func (d *Deduplicator) Candidates() []model.CanonicalCandidate {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]model.CanonicalCandidate, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, d.byKey[k].Clone())
	}
	return out
}

// Get returns a copy of the candidate stored under key.
func (d *Deduplicator) Get(key string) (model.CanonicalCandidate, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.byKey[key]
	if !ok {
		return model.CanonicalCandidate{}, false
	}
	return c.Clone(), true
}

// Len returns the number of canonical candidates.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}
