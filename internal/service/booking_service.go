package service

import (
	"context"

	"baz-car-admin/internal/event"
	"baz-car-admin/internal/model"
	"baz-car-admin/internal/repository"
)

// BookingService prices rental requests. Nothing is persisted; every quote
// is announced on the event bus.
type BookingService struct {
	cars           repository.CarStore
	services       repository.AdditionalServiceStore
	events         event.Publisher
	whatsAppNumber string
}

func NewBookingService(cars repository.CarStore, services repository.AdditionalServiceStore, events event.Publisher, whatsAppNumber string) *BookingService {
	if events == nil {
		events = event.Discard{}
	}
	return &BookingService{cars: cars, services: services, events: events, whatsAppNumber: whatsAppNumber}
}

type bookingQuotedPayload struct {
	CarID      int64  `json:"car_id"`
	PickupDate string `json:"pickup_date"`
	ReturnDate string `json:"return_date"`
	TotalPrice int64  `json:"total_price"`
	RentalDays int    `json:"rental_days"`
}

func (s *BookingService) Quote(ctx context.Context, req model.BookingRequest) (model.BookingResponse, error) {
	car, err := s.cars.FindByID(ctx, req.CarID)
	if err != nil {
		return model.BookingResponse{}, err
	}

	services, err := s.services.FindByServiceIDs(ctx, req.AdditionalServiceIDs)
	if err != nil {
		return model.BookingResponse{}, err
	}

	quote, err := CalculateQuote(QuoteInput{
		Car:              car,
		PickupDate:       req.PickupDate,
		ReturnDate:       req.ReturnDate,
		DeliveryOptionID: req.DeliveryOptionID,
		Services:         services,
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		CustomerEmail:    req.CustomerEmail,
		WhatsAppNumber:   s.whatsAppNumber,
	})
	if err != nil {
		return model.BookingResponse{}, err
	}

	s.events.Publish(event.New(event.TypeBookingQuoted, bookingQuotedPayload{
		CarID:      car.ID,
		PickupDate: req.PickupDate,
		ReturnDate: req.ReturnDate,
		TotalPrice: quote.TotalPrice,
		RentalDays: quote.RentalDays,
	}))

	return quote.BookingResponse, nil
}
