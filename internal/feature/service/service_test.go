package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/railzwaylabs/metering/internal/feature/domain"
	"github.com/railzwaylabs/metering/internal/feature/repository"
	meterdomain "github.com/railzwaylabs/metering/internal/meter/domain"
	meterrepo "github.com/railzwaylabs/metering/internal/meter/repository"
	meterservice "github.com/railzwaylabs/metering/internal/meter/service"
	"github.com/railzwaylabs/metering/internal/nscontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (domain.Service, meterdomain.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&meterdomain.Meter{}, &domain.Feature{}))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	meterSvc := meterservice.New(meterservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  meterrepo.Provide(),
	})
	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.Provide(),
		MeterSvc: meterSvc,
	})
	return svc, meterSvc
}

func TestCreateFeature(t *testing.T) {
	svc, meterSvc := setupService(t)
	ctx := nscontext.WithNamespace(context.Background(), "ns-feature")

	meter, err := meterSvc.Create(ctx, meterdomain.CreateRequest{
		Key:         "api-calls",
		Name:        "API Calls",
		Aggregation: meterdomain.AggregationCount,
		EventType:   "api_call",
	})
	require.NoError(t, err)

	t.Run("metered feature bound to meter", func(t *testing.T) {
		resp, err := svc.Create(ctx, domain.CreateRequest{
			Key:         "API Access",
			Name:        "API Access",
			FeatureType: domain.FeatureTypeMetered,
			MeterID:     &meter.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, "api-access", resp.Key)
		assert.Equal(t, domain.FeatureTypeMetered, resp.FeatureType)
		require.NotNil(t, resp.MeterID)
		assert.Equal(t, meter.ID, *resp.MeterID)
	})

	t.Run("empty type defaults to boolean", func(t *testing.T) {
		resp, err := svc.Create(ctx, domain.CreateRequest{
			Key:  "sso",
			Name: "SSO",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.FeatureTypeBoolean, resp.FeatureType)
	})

	t.Run("unknown meter rejected", func(t *testing.T) {
		bogus := "123456789"
		_, err := svc.Create(ctx, domain.CreateRequest{
			Key:         "broken",
			Name:        "Broken",
			FeatureType: domain.FeatureTypeMetered,
			MeterID:     &bogus,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidMeterID)
	})

	t.Run("duplicate key rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateRequest{Key: "sso", Name: "SSO Again"})
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("invalid type rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateRequest{
			Key:         "weird",
			Name:        "Weird",
			FeatureType: domain.FeatureType("tiered"),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidType)
	})
}

func TestFeatureLifecycle(t *testing.T) {
	svc, _ := setupService(t)
	ctx := nscontext.WithNamespace(context.Background(), "ns-feature-life")

	created, err := svc.Create(ctx, domain.CreateRequest{Key: "exports", Name: "Exports"})
	require.NoError(t, err)

	newName := "Data Exports"
	updated, err := svc.Update(ctx, domain.UpdateRequest{ID: created.ID, Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "Data Exports", updated.Name)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Features)
}
