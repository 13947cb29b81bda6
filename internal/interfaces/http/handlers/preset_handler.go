package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdamCoscia/KnowledgeVIS/internal/application/query"
)

type PresetHandler struct {
	catalog *query.PresetCatalog
}

func NewPresetHandler(catalog *query.PresetCatalog) *PresetHandler {
	return &PresetHandler{catalog: catalog}
}

// List handles GET /presets.
func (h *PresetHandler) List(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"presets": h.catalog.List()})
}

// Get handles GET /presets/:name; name may be the short code.
func (h *PresetHandler) Get(c *gin.Context) {
	p, err := h.catalog.Get(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, p)
}

type NextPresetResponse struct {
	Set   int         `json:"set"`
	Query query.Query `json:"query"`
}

// Next handles POST /presets/:name/next and advances the rotation.
func (h *PresetHandler) Next(c *gin.Context) {
	q, set, err := h.catalog.Next(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, NextPresetResponse{Set: set, Query: q})
}

// Purger empties the response cache.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

type CacheHandler struct {
	purger Purger
}

func NewCacheHandler(p Purger) *CacheHandler {
	return &CacheHandler{purger: p}
}

// Purge handles DELETE /cache.
func (h *CacheHandler) Purge(c *gin.Context) {
	n, err := h.purger.Purge(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"removed": n})
}
