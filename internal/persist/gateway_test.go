package persist

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/internal/store"
)

// mockStore implements the establishment half of store.Store.
type mockStore struct {
	mock.Mock
	store.Store
}

func (m *mockStore) EstablishmentExists(ctx context.Context, name, city string) (bool, error) {
	args := m.Called(ctx, name, city)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) InsertEstablishment(ctx context.Context, e *model.Establishment) (int64, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(int64), args.Error(1)
}

func newSQLite(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "persist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestUpsert_InsertThenSkip(t *testing.T) {
	g := NewGateway(newSQLite(t))
	ctx := context.Background()

	out, err := g.Upsert(ctx, &model.Establishment{Name: "Apizza Scholls", City: "Portland", State: "OR", Confidence: model.ConfidenceLow})
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, out)

	out, err = g.Upsert(ctx, &model.Establishment{Name: "APIZZA SCHOLLS", City: "portland", State: "OR", Confidence: model.ConfidenceHigh})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkippedDuplicate, out)

	ok, err := g.Exists(ctx, "apizza scholls", "Portland")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpsert_ConcurrentSameCandidate(t *testing.T) {
	s := newSQLite(t)
	g := NewGateway(s)

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 10)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], _ = g.Upsert(context.Background(), &model.Establishment{
				Name: "Ken's Artisan Pizza", City: "Portland", State: "OR", Confidence: model.ConfidenceMedium,
			})
		}(i)
	}
	wg.Wait()

	inserted := 0
	for _, o := range outcomes {
		if o == OutcomeInserted {
			inserted++
		} else {
			assert.Equal(t, OutcomeSkippedDuplicate, o)
		}
	}
	assert.Equal(t, 1, inserted)

	rows, err := s.ListEstablishments(context.Background(), store.EstablishmentFilter{City: "Portland"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestUpsert_UniqueIndexBackstop(t *testing.T) {
	ms := &mockStore{}
	e := &model.Establishment{Name: "The Forge", City: "Sandpoint"}
	ms.On("EstablishmentExists", mock.Anything, "The Forge", "Sandpoint").Return(false, nil)
	ms.On("InsertEstablishment", mock.Anything, e).Return(int64(0), eris.Wrap(store.ErrDuplicate, "sqlite: The Forge"))

	out, err := NewGateway(ms).Upsert(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkippedDuplicate, out)
	ms.AssertExpectations(t)
}

func TestUpsert_StoreFailures(t *testing.T) {
	e := &model.Establishment{Name: "The Forge", City: "Sandpoint"}

	ms := &mockStore{}
	ms.On("EstablishmentExists", mock.Anything, "The Forge", "Sandpoint").Return(false, errors.New("database is locked"))
	out, err := NewGateway(ms).Upsert(context.Background(), e)
	assert.Equal(t, OutcomeFailed, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "existence check")
	ms.AssertNotCalled(t, "InsertEstablishment", mock.Anything, mock.Anything)

	ms = &mockStore{}
	ms.On("EstablishmentExists", mock.Anything, "The Forge", "Sandpoint").Return(false, nil)
	ms.On("InsertEstablishment", mock.Anything, e).Return(int64(0), errors.New("disk full"))
	out, err = NewGateway(ms).Upsert(context.Background(), e)
	assert.Equal(t, OutcomeFailed, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestExists_TrimsNameAndCity(t *testing.T) {
	ms := &mockStore{}
	ms.On("EstablishmentExists", mock.Anything, "The Forge", "Sandpoint").Return(true, nil)

	ok, err := NewGateway(ms).Exists(context.Background(), "  The Forge\t", " Sandpoint ")
	require.NoError(t, err)
	assert.True(t, ok)
	ms.AssertExpectations(t)
}

func TestFromVerdict(t *testing.T) {
	rating := 4.8
	c := model.CanonicalCandidate{
		Name:        "  The Forge Artisan Pizza ",
		Address:     "215 Cedar St, Sandpoint, ID 83864",
		Phone:       "(208) 555-0142",
		Website:     "https://forge.example",
		Description: "Our pizzas and breads are all naturally leavened 'sourdough'.",
		Location:    &model.LatLng{Lat: 48.2766, Lng: -116.5535},
		Rating:      &rating,
	}
	v := model.Verdict{
		Verified:   true,
		Confidence: model.ConfidenceMedium,
		Score:      10,
		Keywords:   []string{"sourdough", "naturally leavened"},
		Sources:    []model.SourceKind{model.SourceBusinessProfile},
		Evidence: []model.EvidenceResult{{
			Source:   model.SourceBusinessProfile,
			Fetched:  true,
			Keywords: []model.KeywordHit{{Term: "sourdough", Weight: 5, Count: 1}, {Term: "naturally leavened", Weight: 5, Count: 1}},
		}},
	}

	e := FromVerdict(c, model.Target{City: "Sandpoint", State: "ID"}, v)
	assert.Equal(t, "The Forge Artisan Pizza", e.Name)
	assert.Equal(t, "Sandpoint", e.City)
	assert.Equal(t, "ID", e.State)
	assert.Equal(t, model.ConfidenceMedium, e.Confidence)
	assert.Equal(t, []string{"sourdough", "naturally leavened"}, e.Keywords)
	require.NotNil(t, e.Latitude)
	assert.InDelta(t, 48.2766, *e.Latitude, 0.0001)
	require.NotNil(t, e.Rating)
	assert.InDelta(t, 4.8, *e.Rating, 0.0001)
	assert.Contains(t, e.Description, "Our pizzas and breads")
	assert.Contains(t, e.Description, "Sourdough verification: medium confidence")
	assert.Contains(t, e.Description, "Business profile: sourdough, naturally leavened")

	v.Keywords[0] = "mutated"
	assert.Equal(t, "sourdough", e.Keywords[0])
}
