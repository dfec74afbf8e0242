package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"baz-car-admin/internal/event"
	"baz-car-admin/internal/model"
	"baz-car-admin/internal/repository"
)

const (
	defaultPopularLimit = 6
	maxPopularLimit     = 50
)

type CarService struct {
	cars     repository.CarStore
	services repository.AdditionalServiceStore
	files    *FileService
	events   event.Publisher
}

func NewCarService(cars repository.CarStore, services repository.AdditionalServiceStore, files *FileService, events event.Publisher) *CarService {
	if events == nil {
		events = event.Discard{}
	}
	return &CarService{cars: cars, services: services, files: files, events: events}
}

func (s *CarService) List(ctx context.Context) ([]model.Car, error) {
	return s.cars.List(ctx)
}

func (s *CarService) Get(ctx context.Context, id int64) (model.Car, error) {
	return s.cars.FindByID(ctx, id)
}

// Create stores a new car. Images pointing into the temp upload directory
// are moved into the car's own directory once its id is known.
func (s *CarService) Create(ctx context.Context, req model.CreateCarRequest, actor model.Actor) (model.Car, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Car{}, fmt.Errorf("%w: name is required", model.ErrInvalidInput)
	}

	car := model.Car{
		Name:               name,
		Category:           req.Category,
		CategoryRU:         req.CategoryRU,
		Price:              req.Price,
		Price3PlusDays:     req.Price3PlusDays,
		Images:             req.Images,
		Description:        req.Description,
		DescriptionRU:      req.DescriptionRU,
		Features:           req.Features,
		FeaturesRU:         req.FeaturesRU,
		Specifications:     req.Specifications,
		Available:          true,
		FuelType:           req.FuelType,
		Restrictions:       req.Restrictions,
		AdditionalServices: req.AdditionalServices,
	}
	if req.Available != nil {
		car.Available = *req.Available
	}
	if req.Rating != nil {
		car.Rating = *req.Rating
	}

	created, err := s.cars.Create(ctx, car)
	if err != nil {
		return model.Car{}, err
	}

	images, promotion, err := s.promoteImages(ctx, created.ID, created.Images)
	if err != nil {
		s.discardCreated(ctx, created.ID)
		return model.Car{}, err
	}
	if len(promotion.moves) > 0 || len(images) != len(created.Images) {
		if err := s.cars.UpdateImages(ctx, created.ID, images); err != nil {
			promotion.Undo()
			s.discardCreated(ctx, created.ID)
			return model.Car{}, err
		}
		created.Images = images
	}

	publishEvent(s.events, event.TypeCarCreated, created, actor)
	return created, nil
}

// Update applies the non-nil fields of req.
func (s *CarService) Update(ctx context.Context, id int64, req model.UpdateCarRequest, actor model.Actor) (model.Car, error) {
	car, err := s.cars.FindByID(ctx, id)
	if err != nil {
		return model.Car{}, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return model.Car{}, fmt.Errorf("%w: name cannot be empty", model.ErrInvalidInput)
		}
		car.Name = name
	}
	assignIfSet(&car.Category, req.Category)
	assignIfSet(&car.CategoryRU, req.CategoryRU)
	assignIfSet(&car.Price, req.Price)
	assignIfSet(&car.Price3PlusDays, req.Price3PlusDays)
	assignIfSet(&car.Description, req.Description)
	assignIfSet(&car.DescriptionRU, req.DescriptionRU)
	assignIfSet(&car.FuelType, req.FuelType)
	if req.Features != nil {
		car.Features = *req.Features
	}
	if req.FeaturesRU != nil {
		car.FeaturesRU = *req.FeaturesRU
	}
	if req.Specifications != nil {
		car.Specifications = *req.Specifications
	}
	if req.Restrictions != nil {
		car.Restrictions = *req.Restrictions
	}
	if req.AdditionalServices != nil {
		car.AdditionalServices = *req.AdditionalServices
	}
	if req.Available != nil {
		car.Available = *req.Available
	}
	if req.Rating != nil {
		car.Rating = *req.Rating
	}
	var promotion Promotion
	if req.Images != nil {
		images, p, err := s.promoteImages(ctx, car.ID, *req.Images)
		if err != nil {
			return model.Car{}, err
		}
		car.Images, promotion = images, p
	}

	updated, err := s.cars.Update(ctx, car)
	if err != nil {
		promotion.Undo()
		return model.Car{}, err
	}

	publishEvent(s.events, event.TypeCarUpdated, updated, actor)
	return updated, nil
}

// Delete removes the car and every file it references.
func (s *CarService) Delete(ctx context.Context, id int64, actor model.Actor) error {
	car, err := s.cars.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.cars.Delete(ctx, id); err != nil {
		return err
	}

	if len(car.Images) > 0 {
		if _, err := s.files.DeleteByPublicPaths(ctx, car.Images); err != nil {
			slog.Warn("failed to delete car images", "car_id", id, "error", err)
		}
	}
	if err := s.files.RemoveCarDirectory(id); err != nil {
		slog.Warn("failed to remove car directory", "car_id", id, "error", err)
	}

	publishEvent(s.events, event.TypeCarDeleted, map[string]int64{"id": id}, actor)
	return nil
}

// AppendImages adds already stored files to the end of the car's image list.
func (s *CarService) AppendImages(ctx context.Context, id int64, paths []string, actor model.Actor) (model.Car, error) {
	car, err := s.cars.FindByID(ctx, id)
	if err != nil {
		return model.Car{}, err
	}

	images := make([]string, 0, len(car.Images)+len(paths))
	images = append(images, car.Images...)
	images = append(images, paths...)

	if err := s.cars.UpdateImages(ctx, id, images); err != nil {
		return model.Car{}, err
	}
	car.Images = images

	publishEvent(s.events, event.TypeCarUpdated, car, actor)
	return car, nil
}

func (s *CarService) Metadata(ctx context.Context) (model.CarMetadata, error) {
	minPrice, maxPrice, err := s.cars.PriceRange(ctx)
	if err != nil {
		return model.CarMetadata{}, err
	}

	fuelTypes, err := s.cars.FuelTypes(ctx)
	if err != nil {
		return model.CarMetadata{}, err
	}

	total, err := s.cars.Count(ctx)
	if err != nil {
		return model.CarMetadata{}, err
	}

	return model.CarMetadata{MinPrice: minPrice, MaxPrice: maxPrice, FuelTypes: fuelTypes, Total: total}, nil
}

// Popular returns the best rated available cars. limit falls back to 6
// and is capped at 50.
func (s *CarService) Popular(ctx context.Context, limit int) ([]model.Car, error) {
	if limit <= 0 {
		limit = defaultPopularLimit
	}
	limit = min(limit, maxPopularLimit)
	return s.cars.TopRated(ctx, limit)
}

// ServicesForCar resolves the car's add-on keys to the active services.
func (s *CarService) ServicesForCar(ctx context.Context, id int64) ([]model.AdditionalService, error) {
	car, err := s.cars.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	found, err := s.services.FindByServiceIDs(ctx, car.AdditionalServices)
	if err != nil {
		return nil, err
	}

	active := make([]model.AdditionalService, 0, len(found))
	for _, svc := range found {
		if svc.IsActive {
			active = append(active, svc)
		}
	}
	return active, nil
}

// promoteImages keeps non-temp entries in place and appends the promoted
// temp uploads after them. On error nothing was moved.
func (s *CarService) promoteImages(ctx context.Context, carID int64, images []string) ([]string, Promotion, error) {
	kept := make([]string, 0, len(images))
	var temp []string
	for _, img := range images {
		if s.files.IsTempPath(img) {
			temp = append(temp, img)
			continue
		}
		kept = append(kept, img)
	}

	if len(temp) == 0 {
		return kept, Promotion{}, nil
	}

	promotion, err := s.files.PromoteForCar(ctx, temp, carID)
	if err != nil {
		return nil, Promotion{}, err
	}
	return append(kept, promotion.Paths...), promotion, nil
}

// discardCreated removes a car row whose images could not be recorded, so a
// failed create leaves nothing behind.
func (s *CarService) discardCreated(ctx context.Context, id int64) {
	if err := s.cars.Delete(context.WithoutCancel(ctx), id); err != nil {
		slog.Warn("failed to remove partially created car", "car_id", id, "error", err)
	}
}

func publishEvent(pub event.Publisher, typ event.Type, payload any, actor model.Actor) {
	e := event.New(typ, payload)
	e.ActorID = actor.ID()
	pub.Publish(e)
}

func assignIfSet[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}
