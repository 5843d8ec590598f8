package worldmap

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wastelandblues/atlas/internal/platform/middleware"
	requestutil "github.com/wastelandblues/atlas/internal/platform/request"
	"github.com/wastelandblues/atlas/internal/platform/respond"
	"github.com/wastelandblues/atlas/internal/platform/validate"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (handler *Handler) RegisterRoutes(router chi.Router) {
	// Public
	router.Get("/map/public", handler.publicMap)
	router.Post("/admin/verify", handler.verifyAdminCode)

	// Admin only
	router.Group(func(adminRoute chi.Router) {
		adminRoute.Use(middleware.RequireAdmin)

		adminRoute.Get("/map/admin", handler.adminMap)
		adminRoute.Post("/admin/publish", handler.publishAll)
		adminRoute.Put("/admin/code", handler.updateAdminCode)

		adminRoute.Route("/locations", func(locationRoute chi.Router) {
			locationRoute.Get("/", handler.listLocations)
			locationRoute.Post("/", handler.createLocation)
			locationRoute.Get("/{id}", handler.getLocation)
			locationRoute.Put("/{id}", handler.updateLocation)
			locationRoute.Delete("/{id}", handler.deleteLocation)
			locationRoute.Post("/{id}/publish", handler.publishLocation)
			locationRoute.Post("/{id}/unpublish", handler.unpublishLocation)
		})

		adminRoute.Route("/roads", func(roadRoute chi.Router) {
			roadRoute.Get("/", handler.listRoads)
			roadRoute.Post("/", handler.createRoad)
			roadRoute.Get("/{id}", handler.getRoad)
			roadRoute.Put("/{id}", handler.updateRoad)
			roadRoute.Delete("/{id}", handler.deleteRoad)
			roadRoute.Post("/{id}/publish", handler.publishRoad)
			roadRoute.Post("/{id}/unpublish", handler.unpublishRoad)
		})
	})
}

// # Map feeds

func (handler *Handler) publicMap(writer http.ResponseWriter, request *http.Request) {
	data, err := handler.service.PublishedMapData(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, data)
}

func (handler *Handler) adminMap(writer http.ResponseWriter, request *http.Request) {
	data, err := handler.service.AdminMapData(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, data)
}

// # Admin access

type verifyCodeRequest struct {
	Code string `json:"code"`
}

type verifyCodeResponse struct {
	IsValid bool   `json:"isValid"`
	Token   string `json:"token,omitempty"`
}

func (handler *Handler) verifyAdminCode(writer http.ResponseWriter, request *http.Request) {
	var input verifyCodeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if input.Code == "" {
		respond.Error(writer, request, validate.RequiredError(FieldCode, "This field is required"))
		return
	}

	valid, token, err := handler.service.VerifyAdminCode(request.Context(), input.Code)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, verifyCodeResponse{IsValid: valid, Token: token})
}

func (handler *Handler) updateAdminCode(writer http.ResponseWriter, request *http.Request) {
	var input verifyCodeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.UpdateAdminCode(request.Context(), input.Code); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Message(writer, "Admin code updated")
}

func (handler *Handler) publishAll(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.PublishAllChanges(request.Context()); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Message(writer, "Map published")
}

// # Locations

func (handler *Handler) listLocations(writer http.ResponseWriter, request *http.Request) {
	locations, err := handler.service.ListLocations(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, locations)
}

func (handler *Handler) getLocation(writer http.ResponseWriter, request *http.Request) {
	location, err := handler.service.GetLocation(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, location)
}

func (handler *Handler) createLocation(writer http.ResponseWriter, request *http.Request) {
	var input LocationInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	location, err := handler.service.CreateLocation(request.Context(), &input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, location)
}

func (handler *Handler) updateLocation(writer http.ResponseWriter, request *http.Request) {
	var input LocationInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	location, err := handler.service.UpdateLocation(request.Context(), requestutil.ID(request, "id"), &input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, location)
}

func (handler *Handler) deleteLocation(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.DeleteLocation(request.Context(), requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Message(writer, "Location deleted")
}

func (handler *Handler) publishLocation(writer http.ResponseWriter, request *http.Request) {
	handler.setLocationPublished(writer, request, true)
}

func (handler *Handler) unpublishLocation(writer http.ResponseWriter, request *http.Request) {
	handler.setLocationPublished(writer, request, false)
}

func (handler *Handler) setLocationPublished(writer http.ResponseWriter, request *http.Request, published bool) {
	if err := handler.service.SetLocationPublished(request.Context(), requestutil.ID(request, "id"), published); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if published {
		respond.Message(writer, "Location published")
		return
	}
	respond.Message(writer, "Location unpublished")
}

// # Roads

func (handler *Handler) listRoads(writer http.ResponseWriter, request *http.Request) {
	roads, err := handler.service.ListRoads(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, roads)
}

func (handler *Handler) getRoad(writer http.ResponseWriter, request *http.Request) {
	road, err := handler.service.GetRoad(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, road)
}

func (handler *Handler) createRoad(writer http.ResponseWriter, request *http.Request) {
	var input RoadInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	road, err := handler.service.CreateRoad(request.Context(), &input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, road)
}

func (handler *Handler) updateRoad(writer http.ResponseWriter, request *http.Request) {
	var input RoadInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	road, err := handler.service.UpdateRoad(request.Context(), requestutil.ID(request, "id"), &input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, road)
}

func (handler *Handler) deleteRoad(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.DeleteRoad(request.Context(), requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Message(writer, "Road deleted")
}

func (handler *Handler) publishRoad(writer http.ResponseWriter, request *http.Request) {
	handler.setRoadPublished(writer, request, true)
}

func (handler *Handler) unpublishRoad(writer http.ResponseWriter, request *http.Request) {
	handler.setRoadPublished(writer, request, false)
}

func (handler *Handler) setRoadPublished(writer http.ResponseWriter, request *http.Request, published bool) {
	if err := handler.service.SetRoadPublished(request.Context(), requestutil.ID(request, "id"), published); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if published {
		respond.Message(writer, "Road published")
		return
	}
	respond.Message(writer, "Road unpublished")
}
