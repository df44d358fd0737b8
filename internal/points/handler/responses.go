package handler

import (
	"rotacultural/internal/points/models"
	"rotacultural/internal/points/service"
)

type CreateResponse struct {
	ID string `json:"id"`
}

type ListResponse struct {
	Items      []*models.CulturalPoint `json:"items"`
	Page       int                     `json:"page"`
	TotalPages int                     `json:"total_pages"`
	TotalItems int                     `json:"total_items"`
}

type SearchResponse struct {
	Items []*models.CulturalPoint `json:"items"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

func toListResponse(page *service.Page) ListResponse {
	return ListResponse{
		Items:      nonNil(page.Items),
		Page:       page.Page,
		TotalPages: page.TotalPages,
		TotalItems: page.TotalItems,
	}
}

// nonNil keeps empty results encoding as [] rather than null.
func nonNil(points []*models.CulturalPoint) []*models.CulturalPoint {
	if points == nil {
		return []*models.CulturalPoint{}
	}
	return points
}
