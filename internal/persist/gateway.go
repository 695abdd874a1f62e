// Package persist writes verified establishments, skipping ones already
// stored.
package persist

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/internal/store"
	"github.com/sells-group/sourdough-cli/internal/verify"
)

// Outcome is the result of one Upsert.
type Outcome string

const (
	OutcomeInserted         Outcome = "inserted"
	OutcomeSkippedDuplicate Outcome = "skipped_duplicate"
	OutcomeFailed           Outcome = "failed"
)

// Gateway serializes the existence check and insert for one process. The
// store's unique (name, city) index covers other processes.
type Gateway struct {
	store store.Store
	mu    sync.Mutex
}

// NewGateway creates a Gateway over s.
func NewGateway(s store.Store) *Gateway {
	return &Gateway{store: s}
}

// Exists reports whether an establishment with the same name and city is
// already stored.
func (g *Gateway) Exists(ctx context.Context, name, city string) (bool, error) {
	ok, err := g.store.EstablishmentExists(ctx, strings.TrimSpace(name), strings.TrimSpace(city))
	return ok, eris.Wrap(err, "persist: exists")
}

// Upsert inserts e unless a row with the same name and city exists. Store
// failures return OutcomeFailed with the error.
func (g *Gateway) Upsert(ctx context.Context, e *model.Establishment) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	log := zap.L().With(zap.String("name", e.Name), zap.String("city", e.City))

	exists, err := g.store.EstablishmentExists(ctx, e.Name, e.City)
	if err != nil {
		return OutcomeFailed, eris.Wrap(err, "persist: existence check")
	}
	if exists {
		log.Debug("persist: establishment already stored")
		return OutcomeSkippedDuplicate, nil
	}

	id, err := g.store.InsertEstablishment(ctx, e)
	if errors.Is(err, store.ErrDuplicate) {
		log.Debug("persist: unique index rejected insert")
		return OutcomeSkippedDuplicate, nil
	}
	if err != nil {
		return OutcomeFailed, eris.Wrap(err, "persist: insert")
	}
	log.Info("persist: establishment inserted", zap.Int64("id", id))
	return OutcomeInserted, nil
}

// FromVerdict builds the row for a verified candidate. The description keeps
// the business description and appends the verification provenance. City
// and state fall back to the run target.
func FromVerdict(c model.CanonicalCandidate, target model.Target, v model.Verdict) *model.Establishment {
	e := &model.Establishment{
		Name:       strings.TrimSpace(c.Name),
		Address:    c.Address,
		City:       firstNonEmpty(c.City, target.City),
		State:      firstNonEmpty(c.State, target.State),
		Phone:      c.Phone,
		Website:    c.Website,
		Keywords:   append([]string(nil), v.Keywords...),
		Confidence: v.Confidence,
		Sources:    append([]model.SourceKind(nil), v.Sources...),
	}
	if c.Rating != nil {
		r := *c.Rating
		e.Rating = &r
	}
	if c.Location != nil {
		lat, lng := c.Location.Lat, c.Location.Lng
		e.Latitude = &lat
		e.Longitude = &lng
	}

	prov := verify.Provenance(v)
	if desc := strings.TrimSpace(c.Description); desc != "" {
		e.Description = desc + "\n\n" + prov
	} else {
		e.Description = prov
	}
	return e
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
