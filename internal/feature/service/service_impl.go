package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/railzwaylabs/metering/internal/feature/domain"
	meterdomain "github.com/railzwaylabs/metering/internal/meter/domain"
	"github.com/railzwaylabs/metering/internal/nscontext"
	"github.com/railzwaylabs/metering/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	MeterSvc meterdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	genID    *snowflake.Node
	meterSvc meterdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("feature.service"),
		repo:     p.Repo,
		genID:    p.GenID,
		meterSvc: p.MeterSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	namespace, ok := nscontext.NamespaceFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidNamespace
	}

	key := slug.Make(strings.TrimSpace(req.Key))
	if key == "" {
		return nil, domain.ErrInvalidKey
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	featureType, err := normalizeFeatureType(req.FeatureType)
	if err != nil {
		return nil, err
	}

	var meterID *snowflake.ID
	if req.MeterID != nil && strings.TrimSpace(*req.MeterID) != "" {
		// The meter must exist in the same namespace before binding.
		meterResp, err := s.meterSvc.GetByID(ctx, *req.MeterID)
		if err != nil {
			return nil, domain.ErrInvalidMeterID
		}
		parsed, err := snowflake.ParseString(meterResp.ID)
		if err != nil {
			return nil, domain.ErrInvalidMeterID
		}
		meterID = &parsed
	}

	existing, err := s.repo.FindByKey(ctx, s.db, namespace, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAlreadyExists
	}

	now := time.Now().UTC()
	record := &domain.Feature{
		ID:          s.genID.Generate(),
		Namespace:   namespace,
		Key:         key,
		Name:        name,
		Description: trimPtr(req.Description),
		Type:        featureType,
		MeterID:     meterID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Metadata != nil {
		record.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}

	resp := s.toResponse(record)
	return &resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Response, error) {
	namespace, ok := nscontext.NamespaceFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidNamespace
	}

	featureID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	feature, err := s.repo.FindByID(ctx, s.db, namespace, featureID)
	if err != nil {
		return nil, err
	}
	if feature == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(feature)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	namespace, ok := nscontext.NamespaceFromContext(ctx)
	if !ok {
		return domain.ListResponse{}, domain.ErrInvalidNamespace
	}

	pageSize := req.PageSize
	if pageSize < 0 {
		pageSize = 0
	} else if pageSize == 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, namespace, req, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.Feature) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, s.toResponse(item))
	}

	out := domain.ListResponse{Features: resp}
	if pageInfo != nil {
		out.PageInfo = *pageInfo
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	namespace, ok := nscontext.NamespaceFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidNamespace
	}

	featureID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	feature, err := s.repo.FindByID(ctx, s.db, namespace, featureID)
	if err != nil {
		return nil, err
	}
	if feature == nil {
		return nil, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		feature.Name = name
	}
	if req.Description != nil {
		feature.Description = trimPtr(req.Description)
	}
	if req.MeterID != nil {
		meterValue := strings.TrimSpace(*req.MeterID)
		if meterValue == "" {
			feature.MeterID = nil
		} else {
			meterResp, err := s.meterSvc.GetByID(ctx, meterValue)
			if err != nil {
				return nil, domain.ErrInvalidMeterID
			}
			parsed, err := snowflake.ParseString(meterResp.ID)
			if err != nil {
				return nil, domain.ErrInvalidMeterID
			}
			feature.MeterID = &parsed
		}
	}
	if req.Metadata != nil {
		feature.Metadata = datatypes.JSONMap(req.Metadata)
	}
	feature.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, feature); err != nil {
		return nil, err
	}

	resp := s.toResponse(feature)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	namespace, ok := nscontext.NamespaceFromContext(ctx)
	if !ok {
		return domain.ErrInvalidNamespace
	}

	featureID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}

	feature, err := s.repo.FindByID(ctx, s.db, namespace, featureID)
	if err != nil {
		return err
	}
	if feature == nil {
		return domain.ErrNotFound
	}

	return s.repo.Delete(ctx, s.db, namespace, featureID)
}

func (s *Service) toResponse(f *domain.Feature) domain.Response {
	resp := domain.Response{
		ID:          f.ID.String(),
		Namespace:   f.Namespace,
		Key:         f.Key,
		Name:        f.Name,
		Description: f.Description,
		FeatureType: f.Type,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
	if f.MeterID != nil {
		meterID := f.MeterID.String()
		resp.MeterID = &meterID
	}
	if len(f.Metadata) > 0 {
		resp.Metadata = map[string]any(f.Metadata)
	}
	return resp
}

func normalizeFeatureType(t domain.FeatureType) (domain.FeatureType, error) {
	switch domain.FeatureType(strings.ToLower(strings.TrimSpace(string(t)))) {
	case domain.FeatureTypeBoolean:
		return domain.FeatureTypeBoolean, nil
	case domain.FeatureTypeMetered:
		return domain.FeatureTypeMetered, nil
	case "":
		return domain.FeatureTypeBoolean, nil
	}
	return "", domain.ErrInvalidType
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
