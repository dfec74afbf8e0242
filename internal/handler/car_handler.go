package handler

import (
	"net/http"

	"baz-car-admin/internal/model"
	"baz-car-admin/internal/service"
)

type CarHandler struct {
	service *service.CarService
}

func NewCarHandler(service *service.CarService) *CarHandler {
	return &CarHandler{service: service}
}

func (h *CarHandler) List(w http.ResponseWriter, r *http.Request) {
	cars, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, cars, nil)
}

func (h *CarHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "car_id")
	if err != nil {
		writeError(w, err)
		return
	}

	car, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, car, nil)
}

func (h *CarHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.Metadata(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, meta, nil)
}

func (h *CarHandler) Popular(w http.ResponseWriter, r *http.Request) {
	limit := parseIntOrDefault(r.URL.Query().Get("limit"), 0)

	cars, err := h.service.Popular(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, cars, nil)
}

func (h *CarHandler) Services(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "car_id")
	if err != nil {
		writeError(w, err)
		return
	}

	services, err := h.service.ServicesForCar(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, services, nil)
}

func (h *CarHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateCarRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	car, err := h.service.Create(r.Context(), payload, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, car, nil)
}

func (h *CarHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "car_id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.UpdateCarRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	car, err := h.service.Update(r.Context(), id, payload, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, car, nil)
}

func (h *CarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "car_id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), id, actorFromRequest(r)); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
