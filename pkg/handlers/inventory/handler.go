package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/de-tools/service-map/pkg/adapters"
	"github.com/de-tools/service-map/pkg/models/api"
	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/services/inventory"
	"github.com/de-tools/service-map/pkg/store/entity"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const statusMessage = "Qapla'!"

type Service interface {
	CreateIndicator(ctx context.Context, req api.CreateIndicatorRequest) (domain.Indicator, error)
	DeleteAsset(ctx context.Context, id string) (*domain.Asset, error)
	DeleteIndicator(ctx context.Context, id string) ([]domain.Indicator, error)
	Assets(ctx context.Context, identifier string) ([]domain.Asset, error)
	Asset(ctx context.Context, id string) (*domain.Asset, error)
	Indicators(ctx context.Context, id string) ([]domain.Indicator, error)
	AssetIndicators(ctx context.Context, identifier string) ([]inventory.AssetIndicators, error)
	AssetGroups(ctx context.Context, name string) ([]domain.AssetGroup, error)
	AssetGroup(ctx context.Context, id string) (*domain.AssetGroup, error)
	Services(ctx context.Context, name string) ([]domain.Service, error)
	Service(ctx context.Context, id string) (*domain.Service, error)
	CreateAssetOwner(ctx context.Context, req api.CreateAssetOwnerRequest) (domain.AssetOwner, error)
	AssetOwners(ctx context.Context, id string) ([]domain.AssetOwner, error)
	DeleteAssetOwner(ctx context.Context, id string) (*domain.AssetOwner, error)
}

type Handler struct {
	inv Service
}

func NewHandler(inv Service) *Handler {
	return &Handler{inv: inv}
}

// Routes mounts the inventory endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	for _, kind := range []string{"asset", "indicator", "asset-group", "service", "asset-owner"} {
		r.Get("/"+kind+"/status", h.Status)
	}

	r.Get("/assets/", h.ListAssets)
	r.Get("/assets/{identifier}", h.ListAssets)
	r.Get("/asset/{id}", h.GetAsset)
	r.Delete("/asset/{id}", h.DeleteAsset)

	r.Post("/indicator", h.CreateIndicator)
	r.Get("/indicators", h.ListIndicators)
	r.Get("/indicator/{id}", h.ListIndicators)
	r.Delete("/indicator/{id}", h.DeleteIndicator)
	r.Get("/indicators/{identifier}", h.ListAssetIndicators)

	r.Get("/asset-groups/", h.ListAssetGroups)
	r.Get("/asset-groups/{name}", h.ListAssetGroups)
	r.Get("/asset-group/{id}", h.GetAssetGroup)

	r.Get("/services/", h.ListServices)
	r.Get("/services/{name}", h.ListServices)
	r.Get("/service/{id}", h.GetService)

	r.Post("/asset-owner", h.CreateAssetOwner)
	r.Get("/asset-owners", h.ListAssetOwners)
	r.Get("/asset-owner/{id}", h.ListAssetOwners)
	r.Delete("/asset-owner/{id}", h.DeleteAssetOwner)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, api.StatusResponse{Message: statusMessage})
}

func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.inv.Assets(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, mapAll(assets, adapters.MapAssetDomainToApi))
}

func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.inv.Asset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapAssetDomainToApi(*asset))
}

func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.inv.DeleteAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapAssetDomainToApi(*asset))
}

func (h *Handler) CreateIndicator(w http.ResponseWriter, r *http.Request) {
	var req api.CreateIndicatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"body": "malformed JSON: " + err.Error()})
		return
	}
	indicator, err := h.inv.CreateIndicator(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapIndicatorDomainToApi(indicator))
}

func (h *Handler) ListIndicators(w http.ResponseWriter, r *http.Request) {
	indicators, err := h.inv.Indicators(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapIndicatorsDomainToApi(indicators))
}

func (h *Handler) DeleteIndicator(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.inv.DeleteIndicator(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapIndicatorsDomainToApi(deleted))
}

func (h *Handler) ListAssetIndicators(w http.ResponseWriter, r *http.Request) {
	found, err := h.inv.AssetIndicators(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, mapAll(found, func(ai inventory.AssetIndicators) api.AssetIndicators {
		return api.AssetIndicators{
			Asset:      adapters.MapAssetDomainToApi(ai.Asset),
			Indicators: adapters.MapIndicatorsDomainToApi(ai.Indicators),
		}
	}))
}

func (h *Handler) ListAssetGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.inv.AssetGroups(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, mapAll(groups, adapters.MapAssetGroupDomainToApi))
}

func (h *Handler) GetAssetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.inv.AssetGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapAssetGroupDomainToApi(*group))
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.inv.Services(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, mapAll(services, adapters.MapServiceDomainToApi))
}

func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.inv.Service(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapServiceDomainToApi(*svc))
}

func (h *Handler) CreateAssetOwner(w http.ResponseWriter, r *http.Request) {
	var req api.CreateAssetOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"body": "malformed JSON: " + err.Error()})
		return
	}
	owner, err := h.inv.CreateAssetOwner(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapAssetOwnerDomainToApi(owner))
}

func (h *Handler) ListAssetOwners(w http.ResponseWriter, r *http.Request) {
	owners, err := h.inv.AssetOwners(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, mapAll(owners, adapters.MapAssetOwnerDomainToApi))
}

func (h *Handler) DeleteAssetOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := h.inv.DeleteAssetOwner(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapAssetOwnerDomainToApi(*owner))
}

func mapAll[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Msg("failed to encode response")
	}
}

// writeError maps validation failures to 400 and missing records to 404.
// Anything else is a 500 carrying the error text.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *inventory.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, r, http.StatusBadRequest, verr.Fields)
	case errors.Is(err, inventory.ErrInvalidAsset):
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"asset_id": err.Error()})
	case errors.Is(err, entity.ErrNotFound):
		writeJSON(w, r, http.StatusNotFound, api.ErrorResponse{Exception: err.Error()})
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeJSON(w, r, http.StatusInternalServerError, api.ErrorResponse{Exception: err.Error()})
	}
}
