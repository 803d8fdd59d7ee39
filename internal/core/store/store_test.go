package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/solatis/formkeeper/internal/core/db"
	"github.com/solatis/formkeeper/internal/core/store"
	"github.com/solatis/formkeeper/internal/types"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() func() time.Time {
	return func() time.Time { return fixedNow }
}

func sampleForm(program string) *types.Form {
	return &types.Form{
		Name:      "Spring Registration",
		ProgramID: program,
		Columns:   2,
		Steps: []types.Step{{
			Key:            "step-1",
			Title:          "Contact",
			Columns:        2,
			InheritColumns: true,
			Fields: []types.Field{
				{ID: types.NewFieldID(), Name: "email", Label: "Email", Kind: types.FieldKindEmail, ColumnSpan: 2, Required: true},
				{ID: types.NewFieldID(), Name: "phone", Label: "Phone", Kind: types.FieldKindPhone, ColumnSpan: 1},
			},
		}},
	}
}

func runRepositoryTest(t *testing.T, newRepo func(t *testing.T) store.Repository) {
	t.Helper()
	ctx := context.Background()

	t.Run("Save assigns ID and ETag", func(t *testing.T) {
		repo := newRepo(t)
		rec, err := repo.Save(ctx, sampleForm("camp"), "")
		gt.NoError(t, err).Required()

		_, err = types.ParseFormID(string(rec.ID))
		gt.NoError(t, err)
		gt.Value(t, rec.Revision).Equal(1)
		gt.Value(t, rec.ETag).Equal(store.ComputeETag(rec.Payload))
		gt.Value(t, rec.Title).Equal("Spring Registration")
		gt.Value(t, rec.ProgramID).Equal("camp")
		gt.Bool(t, rec.CreatedAt.Equal(fixedNow)).True()
	})

	t.Run("Get round trips the form", func(t *testing.T) {
		repo := newRepo(t)
		saved, err := repo.Save(ctx, sampleForm("camp"), "")
		gt.NoError(t, err).Required()

		got, err := repo.Get(ctx, saved.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.ETag).Equal(saved.ETag)
		gt.Value(t, string(got.Payload)).Equal(string(saved.Payload))

		form, diags, err := got.Form()
		gt.NoError(t, err).Required()
		gt.Array(t, diags).Length(0)
		gt.Value(t, form.ID).Equal(saved.ID)
		gt.Array(t, form.Steps).Length(1).Required()
		gt.Array(t, form.Steps[0].Fields).Length(2).Required()
		gt.Value(t, form.Steps[0].Fields[0].Name).Equal("email")
		gt.Value(t, form.Steps[0].Fields[1].ColumnSpan).Equal(1)
	})

	t.Run("Save with current ETag bumps revision", func(t *testing.T) {
		repo := newRepo(t)
		first, err := repo.Save(ctx, sampleForm("camp"), "")
		gt.NoError(t, err).Required()

		form, _, err := first.Form()
		gt.NoError(t, err).Required()
		form.Name = "Spring Registration 2026"

		second, err := repo.Save(ctx, form, first.ETag)
		gt.NoError(t, err).Required()
		gt.Value(t, second.Revision).Equal(2)
		gt.Value(t, second.Title).Equal("Spring Registration 2026")
		gt.Value(t, second.ETag).NotEqual(first.ETag)

		revs, err := repo.Revisions(ctx, first.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, revs).Length(2).Required()
		gt.Value(t, revs[0].ETag).Equal(first.ETag)
		gt.Value(t, revs[1].Revision).Equal(2)
	})

	t.Run("Save with stale ETag conflicts", func(t *testing.T) {
		repo := newRepo(t)
		first, err := repo.Save(ctx, sampleForm("camp"), "")
		gt.NoError(t, err).Required()
		form, _, err := first.Form()
		gt.NoError(t, err).Required()

		form.Description = "edited elsewhere"
		_, err = repo.Save(ctx, form, first.ETag)
		gt.NoError(t, err).Required()

		form.Description = "edited here"
		_, err = repo.Save(ctx, form, first.ETag)
		gt.Error(t, err).Is(store.ErrConflict)

		// empty ETag overwrites
		rec, err := repo.Save(ctx, form, "")
		gt.NoError(t, err).Required()
		gt.Value(t, rec.Revision).Equal(3)
	})

	t.Run("Save of unknown ID with ETag conflicts", func(t *testing.T) {
		repo := newRepo(t)
		form := sampleForm("camp")
		form.ID = types.NewFormID()
		_, err := repo.Save(ctx, form, "deadbeef")
		gt.Error(t, err).Is(store.ErrConflict)

		rec, err := repo.Save(ctx, form, "")
		gt.NoError(t, err).Required()
		gt.Value(t, rec.ID).Equal(form.ID)
	})

	t.Run("Save rejects invalid forms", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Save(ctx, &types.Form{Name: "empty"}, "")
		gt.Error(t, err).Is(store.ErrInvalidForm)

		form := sampleForm("camp")
		form.ID = "not-a-uuid"
		_, err = repo.Save(ctx, form, "")
		gt.Error(t, err).Is(store.ErrInvalidForm)
	})

	t.Run("Save does not modify the caller's form", func(t *testing.T) {
		repo := newRepo(t)
		form := sampleForm("camp")
		_, err := repo.Save(ctx, form, "")
		gt.NoError(t, err).Required()
		gt.Value(t, form.ID).Equal(types.FormID(""))
	})

	t.Run("List filters by program", func(t *testing.T) {
		repo := newRepo(t)
		a, err := repo.Save(ctx, sampleForm("camp"), "")
		gt.NoError(t, err).Required()
		_, err = repo.Save(ctx, sampleForm("league"), "")
		gt.NoError(t, err).Required()
		c, err := repo.Save(ctx, sampleForm("camp"), "")
		gt.NoError(t, err).Required()

		all, err := repo.List(ctx, "")
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(3)

		camp, err := repo.List(ctx, "camp")
		gt.NoError(t, err).Required()
		gt.Array(t, camp).Length(2).Required()
		gt.Value(t, camp[0].ID).Equal(a.ID)
		gt.Value(t, camp[1].ID).Equal(c.ID)

		none, err := repo.List(ctx, "swim")
		gt.NoError(t, err).Required()
		gt.Array(t, none).Length(0)
	})

	t.Run("Delete removes form and history", func(t *testing.T) {
		repo := newRepo(t)
		rec, err := repo.Save(ctx, sampleForm("camp"), "")
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.Delete(ctx, rec.ID)).Required()
		_, err = repo.Get(ctx, rec.ID)
		gt.Error(t, err).Is(store.ErrNotFound)
		_, err = repo.Revisions(ctx, rec.ID)
		gt.Error(t, err).Is(store.ErrNotFound)
		gt.Error(t, repo.Delete(ctx, rec.ID)).Is(store.ErrNotFound)
	})

	t.Run("Get of unknown form", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get(ctx, types.NewFormID())
		gt.Bool(t, errors.Is(err, store.ErrNotFound)).True()
	})
}

func TestMemoryRepository(t *testing.T) {
	runRepositoryTest(t, func(t *testing.T) store.Repository {
		return store.NewMemory(store.WithClock(clock()))
	})
}

func TestSQLRepository(t *testing.T) {
	runRepositoryTest(t, func(t *testing.T) store.Repository {
		ctx := context.Background()
		url := "sqlite://" + filepath.Join(t.TempDir(), "forms.db")
		database, err := db.Open(ctx, url)
		gt.NoError(t, err).Required()
		t.Cleanup(func() { database.Close() })

		gt.NoError(t, db.MigrateUp(ctx, database)).Required()
		queries, err := db.LoadQueries(database)
		gt.NoError(t, err).Required()
		return store.NewSQL(database, queries, store.WithClock(clock()))
	})
}

func TestComputeETag(t *testing.T) {
	a := store.ComputeETag([]byte(`{"title":"x"}`))
	gt.Value(t, a).Equal(store.ComputeETag([]byte(`{"title":"x"}`)))
	gt.Value(t, a).NotEqual(store.ComputeETag([]byte(`{"title":"y"}`)))
	gt.Number(t, len(a)).Equal(64)
}
