package masterdata

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-ops/meridian-ops/internal/shared"
)

// Handler manages the thin masterdata CRUD endpoints.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

// MountRoutes registers masterdata routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/clients", h.createClient)
	r.Get("/clients", h.listClients)
	r.Delete("/clients/{id}", h.deleteClient)

	r.Post("/vendors", h.createVendor)
	r.Get("/vendors", h.listVendors)
	r.Delete("/vendors/{id}", h.deleteVendor)

	r.Post("/projects", h.createProject)
	r.Get("/projects", h.listProjects)
	r.Get("/projects/{id}", h.getProject)
	r.Delete("/projects/{id}", h.deleteProject)

	r.Post("/catalog", h.createCatalogItem)
	r.Get("/catalog", h.listCatalogItems)
	r.Delete("/catalog/{id}", h.deleteCatalogItem)
}

type partyRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

type projectRequest struct {
	ClientID   int64  `json:"client_id" validate:"required,gt=0"`
	Name       string `json:"name" validate:"required"`
	Engagement string `json:"engagement" validate:"required,oneof=one_time monthly"`
}

type catalogItemRequest struct {
	Name string `json:"name" validate:"required"`
	Kind string `json:"kind" validate:"required,oneof=goods services consulting"`
}

func (h *Handler) decode(r *http.Request, dst any) error {
	if err := shared.DecodeJSON(r, dst); err != nil {
		return err
	}
	if err := h.validate.Struct(dst); err != nil {
		return shared.Validationf("%v", err)
	}
	return nil
}

func urlID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("invalid id")
	}
	return id, nil
}

func (h *Handler) createClient(w http.ResponseWriter, r *http.Request) {
	var req partyRequest
	if err := h.decode(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	c, err := h.repo.CreateClient(r.Context(), req.Name, req.Email)
	if err != nil {
		h.logger.Error("create client", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, c)
}

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.repo.ListClients(r.Context())
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"items": clients})
}

func (h *Handler) deleteClient(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.repo.DeleteClient)
}

func (h *Handler) createVendor(w http.ResponseWriter, r *http.Request) {
	var req partyRequest
	if err := h.decode(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	v, err := h.repo.CreateVendor(r.Context(), req.Name, req.Email)
	if err != nil {
		h.logger.Error("create vendor", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, v)
}

func (h *Handler) listVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.repo.ListVendors(r.Context())
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"items": vendors})
}

func (h *Handler) deleteVendor(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.repo.DeleteVendor)
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := h.decode(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	p, err := h.repo.CreateProject(r.Context(), req.ClientID, req.Name, Engagement(req.Engagement))
	if err != nil {
		h.logger.Error("create project", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, p)
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	var clientID int64
	if raw := r.URL.Query().Get("client_id"); raw != "" {
		clientID, _ = strconv.ParseInt(raw, 10, 64)
	}
	projects, err := h.repo.ListProjects(r.Context(), clientID)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"items": projects})
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		shared.RespondError(w, shared.Validationf("invalid id"))
		return
	}
	project, err := h.repo.GetProject(r.Context(), id)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, project)
}

func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.repo.DeleteProject)
}

func (h *Handler) createCatalogItem(w http.ResponseWriter, r *http.Request) {
	var req catalogItemRequest
	if err := h.decode(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	item, err := h.repo.CreateCatalogItem(r.Context(), req.Name, req.Kind)
	if err != nil {
		h.logger.Error("create catalog item", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, item)
}

func (h *Handler) listCatalogItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListCatalogItems(r.Context())
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) deleteCatalogItem(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.repo.DeleteCatalogItem)
}

func (h *Handler) deleteByID(w http.ResponseWriter, r *http.Request, del func(context.Context, int64) error) {
	id, err := urlID(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	if err := del(r.Context(), id); err != nil {
		h.logger.Error("delete masterdata row", slog.Int64("id", id), slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"deleted": id})
}
