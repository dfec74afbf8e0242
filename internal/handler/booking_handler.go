package handler

import (
	"net/http"
	"strings"

	"baz-car-admin/internal/model"
	"baz-car-admin/internal/service"
	"baz-car-admin/pkg/apierror"
)

type BookingHandler struct {
	service *service.BookingService
}

func NewBookingHandler(service *service.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// Quote prices a rental and returns the WhatsApp link for it. Nothing is
// stored.
func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var payload model.BookingRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if err := validateBooking(&payload); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.service.Quote(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, resp, nil)
}

func validateBooking(req *model.BookingRequest) error {
	req.PickupDate = strings.TrimSpace(req.PickupDate)
	req.ReturnDate = strings.TrimSpace(req.ReturnDate)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)

	switch {
	case req.CarID <= 0:
		return apierror.New("VALIDATION_ERROR", "car_id is required", "car_id", http.StatusBadRequest)
	case req.PickupDate == "":
		return apierror.New("VALIDATION_ERROR", "pickup_date is required", "pickup_date", http.StatusBadRequest)
	case req.ReturnDate == "":
		return apierror.New("VALIDATION_ERROR", "return_date is required", "return_date", http.StatusBadRequest)
	case req.CustomerName == "":
		return apierror.New("VALIDATION_ERROR", "customer_name is required", "customer_name", http.StatusBadRequest)
	case req.CustomerPhone == "":
		return apierror.New("VALIDATION_ERROR", "customer_phone is required", "customer_phone", http.StatusBadRequest)
	}

	return nil
}
