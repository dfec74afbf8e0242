package handler

import (
	"net/http"

	"baz-car-admin/internal/model"
	"baz-car-admin/internal/service"
)

const addonDeletedMessage = "Дополнительная услуга успешно удалена"

type AddonHandler struct {
	service *service.AddonService
}

func NewAddonHandler(service *service.AddonService) *AddonHandler {
	return &AddonHandler{service: service}
}

func (h *AddonHandler) List(w http.ResponseWriter, r *http.Request) {
	skip := parseIntOrDefault(r.URL.Query().Get("skip"), 0)
	limit := parseIntOrDefault(r.URL.Query().Get("limit"), service.DefaultAddonLimit)
	if limit <= 0 {
		limit = service.DefaultAddonLimit
	}
	limit = min(limit, service.MaxAddonLimit)

	items, total, err := h.service.List(r.Context(), skip, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, &model.Meta{Skip: max(skip, 0), Limit: limit, Total: total})
}

func (h *AddonHandler) Active(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Active(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, nil)
}

func (h *AddonHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "service_id")
	if err != nil {
		writeError(w, err)
		return
	}

	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, item, nil)
}

func (h *AddonHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateAdditionalServiceRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.service.Create(r.Context(), payload, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, item, nil)
}

func (h *AddonHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "service_id")
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.UpdateAdditionalServiceRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.service.Update(r.Context(), id, payload, actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, item, nil)
}

func (h *AddonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "service_id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), id, actorFromRequest(r)); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.MessageResponse{Message: addonDeletedMessage}, nil)
}
