package handler

import mediaservice "snowtricks-server/internal/modules/media/service"

type Handler struct {
	mediaService *mediaservice.Service
}

func New(mediaService *mediaservice.Service) *Handler {
	return &Handler{mediaService: mediaService}
}
