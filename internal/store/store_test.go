package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sourdough-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func forge() *model.Establishment {
	rating := 4.7
	lat, lng := 48.2766, -116.5535
	return &model.Establishment{
		Name:        "The Forge Artisan Pizza",
		Address:     "215 Cedar St, Sandpoint, ID 83864",
		City:        "Sandpoint",
		State:       "ID",
		Phone:       "(208) 555-0142",
		Website:     "https://forge.example",
		Description: "Our pizzas and breads are all naturally leavened 'sourdough'.",
		Keywords:    []string{"sourdough", "naturally leavened"},
		Confidence:  model.ConfidenceMedium,
		Sources:     []model.SourceKind{model.SourceBusinessProfile},
		Rating:      &rating,
		Latitude:    &lat,
		Longitude:   &lng,
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	sandpoint := model.Target{City: "Sandpoint", State: "ID"}

	t.Run("InsertAndList", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		e := forge()
		id, err := s.InsertEstablishment(ctx, e)
		require.NoError(t, err)
		assert.Positive(t, id)
		assert.Equal(t, id, e.ID)

		got, err := s.ListEstablishments(ctx, EstablishmentFilter{City: "sandpoint", State: "id"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "The Forge Artisan Pizza", got[0].Name)
		assert.Equal(t, []string{"sourdough", "naturally leavened"}, got[0].Keywords)
		assert.Equal(t, []model.SourceKind{model.SourceBusinessProfile}, got[0].Sources)
		assert.Equal(t, model.ConfidenceMedium, got[0].Confidence)
		require.NotNil(t, got[0].Rating)
		assert.InDelta(t, 4.7, *got[0].Rating, 0.0001)
		require.NotNil(t, got[0].Latitude)
		assert.InDelta(t, 48.2766, *got[0].Latitude, 0.0001)

		other, err := s.ListEstablishments(ctx, EstablishmentFilter{City: "Boise"})
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("ExistsIsCaseInsensitive", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		ok, err := s.EstablishmentExists(ctx, "The Forge Artisan Pizza", "Sandpoint")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.InsertEstablishment(ctx, forge())
		require.NoError(t, err)

		ok, err = s.EstablishmentExists(ctx, "THE FORGE ARTISAN PIZZA", "sandpoint")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.EstablishmentExists(ctx, "The Forge Artisan Pizza", "Coeur d'Alene")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("UniqueIndexRejectsDuplicate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.InsertEstablishment(ctx, forge())
		require.NoError(t, err)

		dup := forge()
		dup.Name = "the forge artisan pizza"
		dup.City = "SANDPOINT"
		_, err = s.InsertEstablishment(ctx, dup)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicate)

		all, err := s.ListEstablishments(ctx, EstablishmentFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("DiacriticsFoldToSameKey", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		bianco := forge()
		bianco.Name = "Pizzería Bianco"
		bianco.City = "Phoenix"
		bianco.State = "AZ"
		_, err := s.InsertEstablishment(ctx, bianco)
		require.NoError(t, err)

		ok, err := s.EstablishmentExists(ctx, "PIZZERÍA BIANCO", "phoenix")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.EstablishmentExists(ctx, "  pizzeria bianco", "Phoenix ")
		require.NoError(t, err)
		assert.True(t, ok)

		dup := forge()
		dup.Name = "PIZZERÍA BIANCO"
		dup.City = "PHOENIX"
		_, err = s.InsertEstablishment(ctx, dup)
		assert.ErrorIs(t, err, ErrDuplicate)

		all, err := s.ListEstablishments(ctx, EstablishmentFilter{City: "Phoenix"})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("RunLifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, sandpoint)
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusRunning, run.Status)

		require.NoError(t, s.UpdateRunProgress(ctx, run.ID, model.RunSummary{Found: 12, Processed: 4}))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, sandpoint, got.Target)
		assert.Equal(t, model.RunStatusRunning, got.Status)
		assert.Equal(t, 12, got.Summary.Found)
		assert.Nil(t, got.CompletedAt)

		final := model.RunSummary{Found: 12, Processed: 12, Verified: 2, Inserted: 2}
		require.NoError(t, s.CompleteRun(ctx, run.ID, model.RunStatusCompleted, final))

		got, err = s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusCompleted, got.Status)
		assert.Equal(t, final, got.Summary)
		assert.NotNil(t, got.CompletedAt)

		last, err := s.LastCompletedRun(ctx, model.Target{City: "sandpoint", State: "id"})
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, run.ID, last.ID)
	})

	t.Run("FailRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, sandpoint)
		require.NoError(t, err)
		require.NoError(t, s.FailRun(ctx, run.ID, model.RunSummary{QueriesFailed: 3}, "store unavailable"))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, got.Status)
		assert.Equal(t, "store unavailable", got.Error)
		assert.Equal(t, 3, got.Summary.QueriesFailed)

		last, err := s.LastCompletedRun(ctx, sandpoint)
		require.NoError(t, err)
		assert.Nil(t, last)
	})

	t.Run("RunNotFound", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.GetRun(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)

		err = s.UpdateRunProgress(ctx, "missing", model.RunSummary{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ListRunsFilter", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, err := s.CreateRun(ctx, sandpoint)
		require.NoError(t, err)
		_, err = s.CreateRun(ctx, model.Target{City: "Portland", State: "OR"})
		require.NoError(t, err)
		require.NoError(t, s.CompleteRun(ctx, a.ID, model.RunStatusCompleted, model.RunSummary{}))

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		done, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusCompleted})
		require.NoError(t, err)
		require.Len(t, done, 1)
		assert.Equal(t, a.ID, done[0].ID)

		pdx, err := s.ListRuns(ctx, RunFilter{City: "portland"})
		require.NoError(t, err)
		require.Len(t, pdx, 1)
		assert.Equal(t, "OR", pdx[0].Target.State)

		limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("CandidateChecks", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		keys, err := s.CheckedKeys(ctx, sandpoint)
		require.NoError(t, err)
		assert.Empty(t, keys)

		require.NoError(t, s.RecordCheck(ctx, model.CandidateCheck{Target: sandpoint, Key: "theforge|48.277,-116.554", Name: "The Forge"}))
		require.NoError(t, s.RecordCheck(ctx, model.CandidateCheck{
			Target: sandpoint, Key: "theforge|48.277,-116.554", Name: "The Forge",
			Verified: true, Confidence: model.ConfidenceMedium,
		}))
		require.NoError(t, s.RecordCheck(ctx, model.CandidateCheck{Target: model.Target{City: "Boise", State: "ID"}, Key: "other"}))

		keys, err = s.CheckedKeys(ctx, sandpoint)
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"theforge|48.277,-116.554": true}, keys)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
