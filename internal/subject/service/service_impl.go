package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/metering/internal/nscontext"
	"github.com/railzwaylabs/metering/internal/subject/domain"
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
		log:   p.Log.Named("subject.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	namespace, ok := nscontext.NamespaceFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidNamespace
	}

	key := strings.TrimSpace(req.Key)
	if key == "" {
		return nil, domain.ErrInvalidKey
	}

	existing, err := s.repo.FindByKey(ctx, s.db, namespace, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAlreadyExists
	}

	now := time.Now().UTC()
	record := &domain.Subject{
		ID:               s.genID.Generate(),
		Namespace:        namespace,
		Key:              key,
		DisplayName:      trimPtr(req.DisplayName),
		StripeCustomerID: trimPtr(req.StripeCustomerID),
		CreatedAt:        now,
		UpdatedAt:        now,
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

func (s *Service) GetOrCreate(ctx context.Context, key string) (*domain.Subject, error) {
	namespace, ok := nscontext.NamespaceFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidNamespace
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.ErrInvalidKey
	}

	existing, err := s.repo.FindByKey(ctx, s.db, namespace, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	displayName := key
	now := time.Now().UTC()
	record := &domain.Subject{
		ID:          s.genID.Generate(),
		Namespace:   namespace,
		Key:         key,
		DisplayName: &displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the first-writer race; the winner's row is authoritative.
			winner, findErr := s.repo.FindByKey(ctx, s.db, namespace, key)
			if findErr != nil {
				return nil, findErr
			}
			if winner != nil {
				return winner, nil
			}
		}
		return nil, err
	}

	return record, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Response, error) {
	namespace, ok := nscontext.NamespaceFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidNamespace
	}

	subjectID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	subject, err := s.repo.FindByID(ctx, s.db, namespace, subjectID)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(subject)
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

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.Subject) string {
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

	out := domain.ListResponse{Subjects: resp}
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

	subjectID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	subject, err := s.repo.FindByID(ctx, s.db, namespace, subjectID)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, domain.ErrNotFound
	}

	if req.DisplayName != nil {
		subject.DisplayName = trimPtr(req.DisplayName)
	}
	if req.StripeCustomerID != nil {
		subject.StripeCustomerID = trimPtr(req.StripeCustomerID)
	}
	if req.Metadata != nil {
		subject.Metadata = datatypes.JSONMap(req.Metadata)
	}
	subject.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, subject); err != nil {
		return nil, err
	}

	resp := s.toResponse(subject)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	namespace, ok := nscontext.NamespaceFromContext(ctx)
	if !ok {
		return domain.ErrInvalidNamespace
	}

	subjectID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}

	subject, err := s.repo.FindByID(ctx, s.db, namespace, subjectID)
	if err != nil {
		return err
	}
	if subject == nil {
		return domain.ErrNotFound
	}

	return s.repo.Delete(ctx, s.db, namespace, subjectID)
}

func (s *Service) toResponse(sub *domain.Subject) domain.Response {
	resp := domain.Response{
		ID:               sub.ID.String(),
		Namespace:        sub.Namespace,
		Key:              sub.Key,
		DisplayName:      sub.DisplayName,
		StripeCustomerID: sub.StripeCustomerID,
		CreatedAt:        sub.CreatedAt,
		UpdatedAt:        sub.UpdatedAt,
	}
	if len(sub.Metadata) > 0 {
		resp.Metadata = map[string]any(sub.Metadata)
	}
	return resp
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
