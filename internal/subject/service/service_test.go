package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/railzwaylabs/metering/internal/nscontext"
	"github.com/railzwaylabs/metering/internal/subject/domain"
	"github.com/railzwaylabs/metering/internal/subject/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Subject{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, db
}

func nsCtx(ns string) context.Context {
	return nscontext.WithNamespace(context.Background(), ns)
}

func TestGetOrCreate_CreatesWithKeyAsDisplayName(t *testing.T) {
	svc, db := newTestService(t)
	ctx := nsCtx("ns-lazy")

	subject, err := svc.GetOrCreate(ctx, "customer-1")
	require.NoError(t, err)
	require.NotNil(t, subject.DisplayName)
	assert.Equal(t, "customer-1", *subject.DisplayName)

	again, err := svc.GetOrCreate(ctx, "customer-1")
	require.NoError(t, err)
	assert.Equal(t, subject.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&domain.Subject{}).
		Where("namespace = ? AND key = ?", "ns-lazy", "customer-1").
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetOrCreate_SurvivesDuplicateInsertRace(t *testing.T) {
	svc, db := newTestService(t)
	ctx := nsCtx("ns-race")

	// Simulate the losing writer: the row appears between the service's
	// lookup miss and its insert.
	first, err := svc.GetOrCreate(ctx, "racer")
	require.NoError(t, err)

	// A raw duplicate insert must surface the translated duplicate error,
	// which is what GetOrCreate relies on for its re-read path.
	dup := &domain.Subject{
		ID:        first.ID + 1,
		Namespace: "ns-race",
		Key:       "racer",
		CreatedAt: first.CreatedAt,
		UpdatedAt: first.UpdatedAt,
	}
	err = db.Create(dup).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	resolved, err := svc.GetOrCreate(ctx, "racer")
	require.NoError(t, err)
	assert.Equal(t, first.ID, resolved.ID)
}

func TestCreate_DuplicateKeyRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := nsCtx("ns-dup")

	_, err := svc.Create(ctx, domain.CreateRequest{Key: "acme"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateRequest{Key: "acme"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestUpdate_Metadata(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := nsCtx("ns-upd")

	created, err := svc.Create(ctx, domain.CreateRequest{
		Key:      "acme",
		Metadata: map[string]any{"tier": "free"},
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, domain.UpdateRequest{
		ID:       created.ID,
		Metadata: map[string]any{"tier": "pro"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pro", updated.Metadata["tier"])
}

func TestDelete_ExcludesFromListing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := nsCtx("ns-del")

	created, err := svc.Create(ctx, domain.CreateRequest{Key: "gone"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Subjects)
}
