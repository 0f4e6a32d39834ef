package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"edu-crm/internal/directory/service"
	"edu-crm/internal/logger"
	"edu-crm/internal/models"
	"edu-crm/internal/utils"
)

type Handler struct {
	DirectoryService *service.DirectoryService
	Logger           *logger.Logger
}

func NewHandler(directoryService *service.DirectoryService, log *logger.Logger) *Handler {
	return &Handler{DirectoryService: directoryService, Logger: log}
}

// RegisterAdminRoutes mounts the write surface; the caller wraps it in a
// role gate.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.CreateUser)
		r.Get("/", h.ListUsers)
		r.Put("/{userId}", h.UpdateUser)
	})
	r.Post("/regions", h.CreateRegion)
	r.Post("/branches", h.CreateBranch)
	r.Post("/universities", h.CreateUniversity)
}

// RegisterReadRoutes mounts reference-data reads available to any
// authenticated caller.
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/regions", h.ListRegions)
	r.Get("/branches", h.ListBranches)
	r.Get("/universities", h.ListUniversities)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if user.Email == "" || user.Role == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Validation failed", "email and role are required"))
		return
	}

	created, err := h.DirectoryService.CreateUser(r.Context(), user)
	if err != nil {
		h.writeDirectoryError(w, "CreateUser", err)
		return
	}

	h.Logger.LogEntity("USER", "CREATE", created.ID, "user created with role "+created.Role)
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("User created", created))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.DirectoryService.ListUsers(r.Context())
	if err != nil {
		h.writeDirectoryError(w, "ListUsers", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Users retrieved", users))
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	var update models.User
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	user, err := h.DirectoryService.UpdateUser(r.Context(), userID, update)
	if err != nil {
		h.writeDirectoryError(w, "UpdateUser", err)
		return
	}

	h.Logger.LogEntity("USER", "UPDATE", user.ID, "user updated")
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("User updated", user))
}

func (h *Handler) CreateRegion(w http.ResponseWriter, r *http.Request) {
	var region models.Region
	if err := json.NewDecoder(r.Body).Decode(&region); err != nil || region.Name == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "name is required"))
		return
	}

	created, err := h.DirectoryService.CreateRegion(r.Context(), region)
	if err != nil {
		h.writeDirectoryError(w, "CreateRegion", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Region created", created))
}

func (h *Handler) ListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.DirectoryService.ListRegions(r.Context())
	if err != nil {
		h.writeDirectoryError(w, "ListRegions", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Regions retrieved", regions))
}

func (h *Handler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var branch models.Branch
	if err := json.NewDecoder(r.Body).Decode(&branch); err != nil || branch.Name == "" || branch.RegionID == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "name and region_id are required"))
		return
	}

	created, err := h.DirectoryService.CreateBranch(r.Context(), branch)
	if err != nil {
		h.writeDirectoryError(w, "CreateBranch", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Branch created", created))
}

func (h *Handler) ListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.DirectoryService.ListBranches(r.Context(), r.URL.Query().Get("region_id"))
	if err != nil {
		h.writeDirectoryError(w, "ListBranches", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Branches retrieved", branches))
}

func (h *Handler) CreateUniversity(w http.ResponseWriter, r *http.Request) {
	var uni models.University
	if err := json.NewDecoder(r.Body).Decode(&uni); err != nil || uni.Name == "" || uni.Country == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "name and country are required"))
		return
	}

	created, err := h.DirectoryService.CreateUniversity(r.Context(), uni)
	if err != nil {
		h.writeDirectoryError(w, "CreateUniversity", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("University created", created))
}

func (h *Handler) ListUniversities(w http.ResponseWriter, r *http.Request) {
	unis, err := h.DirectoryService.ListUniversities(r.Context(), r.URL.Query().Get("country"))
	if err != nil {
		h.writeDirectoryError(w, "ListUniversities", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Universities retrieved", unis))
}

func (h *Handler) writeDirectoryError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, models.ErrNotFound) {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Not found", ""))
		return
	}
	h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Request failed", err.Error()))
}
