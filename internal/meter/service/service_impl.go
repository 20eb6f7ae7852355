package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/railzwaylabs/metering/internal/meter/domain"
	"github.com/railzwaylabs/metering/internal/nscontext"
	"github.com/railzwaylabs/metering/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("meter.service"),
		repo:  p.Repo,
		genID: p.GenID,
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

	if !req.Aggregation.Valid() {
		return nil, domain.ErrInvalidAggregation
	}

	eventType := strings.TrimSpace(req.EventType)
	if eventType == "" {
		return nil, domain.ErrInvalidEventType
	}

	existing, err := s.repo.FindByKey(ctx, s.db, namespace, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAlreadyExists
	}

	description := trimPtr(req.Description)
	valueProperty := trimPtr(req.ValueProperty)

	now := time.Now().UTC()
	record := &domain.Meter{
		ID:            s.genID.Generate(),
		Namespace:     namespace,
		Key:           key,
		Name:          name,
		Description:   description,
		Aggregation:   req.Aggregation,
		EventType:     eventType,
		EventFrom:     req.EventFrom,
		ValueProperty: valueProperty,
		GroupBy:       toJSONMap(req.GroupBy),
		CreatedAt:     now,
		UpdatedAt:     now,
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

	meterID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	meter, err := s.repo.FindByID(ctx, s.db, namespace, meterID)
	if err != nil {
		return nil, err
	}
	if meter == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(meter)
	return &resp, nil
}

func (s *Service) GetByEventType(ctx context.Context, eventType string) (*domain.Meter, error) {
	namespace, ok := nscontext.NamespaceFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidNamespace
	}

	meter, err := s.repo.FindByEventType(ctx, s.db, namespace, strings.TrimSpace(eventType))
	if err != nil {
		return nil, err
	}
	if meter == nil {
		return nil, domain.ErrNoMeterForEvent
	}
	return meter, nil
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

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.Meter) string {
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

	out := domain.ListResponse{Meters: resp}
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

	meterID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	meter, err := s.repo.FindByID(ctx, s.db, namespace, meterID)
	if err != nil {
		return nil, err
	}
	if meter == nil {
		return nil, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		meter.Name = name
	}
	if req.Description != nil {
		meter.Description = trimPtr(req.Description)
	}
	if req.ValueProperty != nil {
		meter.ValueProperty = trimPtr(req.ValueProperty)
	}
	if req.GroupBy != nil {
		meter.GroupBy = toJSONMap(req.GroupBy)
	}
	meter.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, meter); err != nil {
		return nil, err
	}

	resp := s.toResponse(meter)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	namespace, ok := nscontext.NamespaceFromContext(ctx)
	if !ok {
		return domain.ErrInvalidNamespace
	}

	meterID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}

	meter, err := s.repo.FindByID(ctx, s.db, namespace, meterID)
	if err != nil {
		return err
	}
	if meter == nil {
		return domain.ErrNotFound
	}

	return s.repo.Delete(ctx, s.db, namespace, meterID)
}

func (s *Service) toResponse(m *domain.Meter) domain.Response {
	return domain.Response{
		ID:            m.ID.String(),
		Namespace:     m.Namespace,
		Key:           m.Key,
		Name:          m.Name,
		Description:   m.Description,
		Aggregation:   m.Aggregation,
		EventType:     m.EventType,
		EventFrom:     m.EventFrom,
		ValueProperty: m.ValueProperty,
		GroupBy:       fromJSONMap(m.GroupBy),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
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

func toJSONMap(in map[string]string) datatypes.JSONMap {
	if len(in) == 0 {
		return nil
	}
	out := datatypes.JSONMap{}
	for k, v := range in {
		out[k] = v
	}
	return out
}

func fromJSONMap(in datatypes.JSONMap) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
