package service

import (
	"context"
	"fmt"
	"strings"

	"baz-car-admin/internal/event"
	"baz-car-admin/internal/model"
	"baz-car-admin/internal/repository"
)

const (
	DefaultAddonLimit = 100
	MaxAddonLimit     = 1000
)

// AddonService manages the catalog of optional add-on services.
type AddonService struct {
	services repository.AdditionalServiceStore
	events   event.Publisher
}

func NewAddonService(services repository.AdditionalServiceStore, events event.Publisher) *AddonService {
	if events == nil {
		events = event.Discard{}
	}
	return &AddonService{services: services, events: events}
}

// List returns one page of add-ons together with the total count. A
// non-positive limit means the default page size.
func (s *AddonService) List(ctx context.Context, skip int, limit int) ([]model.AdditionalService, int, error) {
	skip = max(skip, 0)
	if limit <= 0 {
		limit = DefaultAddonLimit
	}
	limit = min(limit, MaxAddonLimit)

	items, err := s.services.List(ctx, skip, limit)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.services.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (s *AddonService) Active(ctx context.Context) ([]model.AdditionalService, error) {
	return s.services.ListActive(ctx)
}

func (s *AddonService) Get(ctx context.Context, id int64) (model.AdditionalService, error) {
	return s.services.FindByID(ctx, id)
}

func (s *AddonService) Create(ctx context.Context, req model.CreateAdditionalServiceRequest, actor model.Actor) (model.AdditionalService, error) {
	serviceID := strings.TrimSpace(req.ServiceID)
	if serviceID == "" {
		return model.AdditionalService{}, fmt.Errorf("%w: service_id is required", model.ErrInvalidInput)
	}

	label := strings.TrimSpace(req.Label)
	if label == "" {
		return model.AdditionalService{}, fmt.Errorf("%w: label is required", model.ErrInvalidInput)
	}

	if req.Fee == nil {
		return model.AdditionalService{}, fmt.Errorf("%w: fee is required", model.ErrInvalidInput)
	}

	fee, err := model.ParseFee(req.FeeType, *req.Fee)
	if err != nil {
		return model.AdditionalService{}, fmt.Errorf("%w: %w", model.ErrInvalidInput, err)
	}

	svc := model.AdditionalService{
		ServiceID:   serviceID,
		Label:       label,
		Description: req.Description,
		Fee:         fee,
		IconKey:     req.IconKey,
		IsActive:    true,
	}
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}

	created, err := s.services.Create(ctx, svc)
	if err != nil {
		return model.AdditionalService{}, err
	}

	publishEvent(s.events, event.TypeAdditionalServiceCreated, created, actor)
	return created, nil
}

// Update applies the non-nil fields of req. A new fee or fee type is
// combined with the stored half of the pair.
func (s *AddonService) Update(ctx context.Context, id int64, req model.UpdateAdditionalServiceRequest, actor model.Actor) (model.AdditionalService, error) {
	svc, err := s.services.FindByID(ctx, id)
	if err != nil {
		return model.AdditionalService{}, err
	}

	if req.ServiceID != nil {
		serviceID := strings.TrimSpace(*req.ServiceID)
		if serviceID == "" {
			return model.AdditionalService{}, fmt.Errorf("%w: service_id cannot be empty", model.ErrInvalidInput)
		}
		svc.ServiceID = serviceID
	}

	if req.Label != nil {
		label := strings.TrimSpace(*req.Label)
		if label == "" {
			return model.AdditionalService{}, fmt.Errorf("%w: label cannot be empty", model.ErrInvalidInput)
		}
		svc.Label = label
	}

	assignIfSet(&svc.Description, req.Description)
	assignIfSet(&svc.IconKey, req.IconKey)
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}

	if req.Fee != nil || req.FeeType != nil {
		kind, amount := string(model.FeeKindFixed), 0.0
		if svc.Fee != nil {
			kind, amount = string(svc.Fee.Kind()), svc.Fee.Amount()
		}
		if req.FeeType != nil {
			kind = *req.FeeType
		}
		if req.Fee != nil {
			amount = *req.Fee
		}

		fee, err := model.ParseFee(kind, amount)
		if err != nil {
			return model.AdditionalService{}, fmt.Errorf("%w: %w", model.ErrInvalidInput, err)
		}
		svc.Fee = fee
	}

	updated, err := s.services.Update(ctx, svc)
	if err != nil {
		return model.AdditionalService{}, err
	}

	publishEvent(s.events, event.TypeAdditionalServiceUpdated, updated, actor)
	return updated, nil
}

func (s *AddonService) Delete(ctx context.Context, id int64, actor model.Actor) error {
	if err := s.services.Delete(ctx, id); err != nil {
		return err
	}

	publishEvent(s.events, event.TypeAdditionalServiceDeleted, map[string]int64{"id": id}, actor)
	return nil
}
