package evidence

import (
	"context"
	"strings"

	"github.com/sells-group/sourdough-cli/internal/model"
)

// ProfileFetcher reads the business description the search provider already
// returned. It makes no network call.
type ProfileFetcher struct{}

// NewProfileFetcher returns a ProfileFetcher.
func NewProfileFetcher() *ProfileFetcher { return &ProfileFetcher{} }

func (p *ProfileFetcher) Source() model.SourceKind { return model.SourceBusinessProfile }

// Fetch returns the description and category text.
func (p *ProfileFetcher) Fetch(_ context.Context, c model.CanonicalCandidate) (Document, error) {
	desc := strings.TrimSpace(c.Description)
	if desc == "" {
		return Document{}, unavailable(p.Source(), "", "no business description", nil)
	}
	text := desc
	if cat := strings.TrimSpace(c.Category); cat != "" {
		text += "\n" + cat
	}
	return Document{Text: text}, nil
}
