package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AdamCoscia/KnowledgeVIS/internal/application/export"
	"github.com/AdamCoscia/KnowledgeVIS/internal/application/query"
	"github.com/AdamCoscia/KnowledgeVIS/internal/application/session"
	"github.com/AdamCoscia/KnowledgeVIS/internal/application/views"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/occlusion"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/storage/minio"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

// Sessions is the session registry.
type Sessions interface {
	Create() *session.Session
	Get(id string) (*session.Session, error)
	Delete(id string) error
	IDs() []string
}

// Exporter stores session exports.
type Exporter interface {
	Export(ctx context.Context, s *session.Session) (*export.Receipt, error)
	List(ctx context.Context, sessionID string) ([]minio.ObjectInfo, error)
}

type SessionHandler struct {
	sessions Sessions
	presets  *query.PresetCatalog
	exporter Exporter
}

// NewSessionHandler builds the session endpoints. presets and exporter may
// be nil; the endpoints that need them then answer 403.
func NewSessionHandler(sessions Sessions, presets *query.PresetCatalog, exporter Exporter) *SessionHandler {
	return &SessionHandler{sessions: sessions, presets: presets, exporter: exporter}
}

var errExportDisabled = errors.New(errors.ErrCodeFeatureDisabled, "export is not configured")

// ─────────────────────────────────────────────────────────────────────────────
// Response bodies
// ─────────────────────────────────────────────────────────────────────────────

type ViewState struct {
	Status   views.Status   `json:"status"`
	Settings views.Settings `json:"settings"`
	Viewport views.Viewport `json:"viewport"`
}

type DatasetSummary struct {
	Model       string                    `json:"model"`
	TopK        int                       `json:"topk"`
	Groups      []prediction.SubjectGroup `json:"groups"`
	Clusters    []string                  `json:"clusters"`
	Extent      [2]float64                `json:"extent"`
	Predictions int                       `json:"predictions"`
	Terms       int                       `json:"terms"`
}

type SessionResponse struct {
	ID        string                   `json:"id"`
	CreatedAt time.Time                `json:"createdAt"`
	Version   uint64                   `json:"version"`
	InFlight  bool                     `json:"inFlight"`
	Selected  []string                 `json:"selected"`
	Sharing   prediction.SharingMode   `json:"sharing"`
	Views     map[views.Kind]ViewState `json:"views"`
	Dataset   *DatasetSummary          `json:"dataset,omitempty"`
	LastQuery *session.QueryInfo       `json:"lastQuery,omitempty"`
}

func describe(s *session.Session) SessionResponse {
	resp := SessionResponse{ID: s.ID, CreatedAt: s.CreatedAt, LastQuery: s.LastQuery()}
	_ = s.View(func(c *views.Coordinator) error {
		st := c.State()
		resp.Version = st.Version
		resp.InFlight = c.InFlight()
		resp.Selected = st.Selected()
		resp.Sharing = st.Sharing
		resp.Views = make(map[views.Kind]ViewState, len(views.AllKinds))
		for _, k := range views.AllKinds {
			resp.Views[k] = ViewState{Status: c.Status(k), Settings: st.Settings(k), Viewport: c.Viewport(k)}
		}
		if ds := c.Dataset(); ds != nil {
			resp.Dataset = &DatasetSummary{
				Model:       ds.Model,
				TopK:        ds.TopK,
				Groups:      ds.Groups,
				Clusters:    ds.Clusters.Order(),
				Extent:      ds.Extent,
				Predictions: len(ds.Predictions),
				Terms:       len(ds.Terms),
			}
		}
		return nil
	})
	return resp
}

// lookup resolves the :id parameter, answering 404 itself.
func (h *SessionHandler) lookup(c *gin.Context) (*session.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return s, true
}

func kindParam(c *gin.Context) (views.Kind, bool) {
	k, err := views.ParseKind(c.Param("kind"))
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return k, true
}

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────────────────

// Create handles POST /sessions.
func (h *SessionHandler) Create(c *gin.Context) {
	respond(c, http.StatusCreated, describe(h.sessions.Create()))
}

// List handles GET /sessions.
func (h *SessionHandler) List(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"sessions": h.sessions.IDs()})
}

// Get handles GET /sessions/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, describe(s))
}

// Delete handles DELETE /sessions/:id.
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusNoContent, nil)
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// QueryRequest is either an explicit query or the name of a preset whose
// next prompt set is used.
type QueryRequest struct {
	Preset  string         `json:"preset"`
	Model   string         `json:"model"`
	TopK    int            `json:"topk"`
	Prompts []query.Prompt `json:"prompts"`
}

// Query handles POST /sessions/:id/query. It blocks until the backend
// answers; a cancelled query answers 409.
func (h *SessionHandler) Query(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var req QueryRequest
	if !bind(c, &req) {
		return
	}

	q := query.Query{Model: req.Model, TopK: req.TopK, Prompts: req.Prompts}
	if req.Preset != "" {
		if h.presets == nil {
			respondError(c, errors.New(errors.ErrCodePresetNotFound, "no presets loaded"))
			return
		}
		var err error
		if q, _, err = h.presets.Next(req.Preset); err != nil {
			respondError(c, err)
			return
		}
	}

	if _, err := s.Query(c.Request.Context(), q); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, describe(s))
}

// Cancel handles POST /sessions/:id/cancel.
func (h *SessionHandler) Cancel(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, gin.H{"cancelled": s.Cancel()})
}

// ─────────────────────────────────────────────────────────────────────────────
// Filter state
// ─────────────────────────────────────────────────────────────────────────────

type SelectionRequest struct {
	Subjects []string `json:"subjects"`
}

// SetSelection handles PUT /sessions/:id/selection.
func (h *SessionHandler) SetSelection(c *gin.Context) {
	var req SelectionRequest
	if !bind(c, &req) {
		return
	}
	h.update(c, "selection", req.Subjects, func(co *views.Coordinator) error {
		return co.SetSelected(req.Subjects)
	})
}

// Select handles POST /sessions/:id/selection/:subject.
func (h *SessionHandler) Select(c *gin.Context) {
	id := c.Param("subject")
	h.update(c, "select", id, func(co *views.Coordinator) error { return co.Select(id) })
}

// Deselect handles DELETE /sessions/:id/selection/:subject.
func (h *SessionHandler) Deselect(c *gin.Context) {
	id := c.Param("subject")
	h.update(c, "deselect", id, func(co *views.Coordinator) error { return co.Deselect(id) })
}

type SharingRequest struct {
	Mode string `json:"mode"`
}

// SetSharing handles PUT /sessions/:id/sharing.
func (h *SessionHandler) SetSharing(c *gin.Context) {
	var req SharingRequest
	if !bind(c, &req) {
		return
	}
	m, err := prediction.ParseSharingMode(req.Mode)
	if err != nil {
		respondError(c, err)
		return
	}
	h.update(c, "sharing", m, func(co *views.Coordinator) error { return co.SetSharing(m) })
}

// SettingsRequest changes the display modes of one view. Empty fields are
// left alone.
type SettingsRequest struct {
	Sort  string `json:"sort"`
	Scale string `json:"scale"`
}

// SetSettings handles PUT /sessions/:id/views/:kind/settings.
func (h *SessionHandler) SetSettings(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	var req SettingsRequest
	if !bind(c, &req) {
		return
	}
	var sortMode prediction.SortMode
	var scale prediction.ScaleMode
	var err error
	if req.Sort != "" {
		if sortMode, err = prediction.ParseSortMode(req.Sort); err != nil {
			respondError(c, err)
			return
		}
	}
	if req.Scale != "" {
		if scale, err = prediction.ParseScaleMode(req.Scale); err != nil {
			respondError(c, err)
			return
		}
	}
	h.update(c, "settings", gin.H{"view": kind, "sort": sortMode, "scale": scale}, func(co *views.Coordinator) error {
		if sortMode != "" {
			if err := co.SetSort(kind, sortMode); err != nil {
				return err
			}
		}
		if scale != "" {
			return co.SetScale(kind, scale)
		}
		return nil
	})
}

// update applies fn and answers with the new session state.
func (h *SessionHandler) update(c *gin.Context, change string, detail interface{}, fn func(*views.Coordinator) error) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := s.Update(change, detail, fn); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, describe(s))
}

// ─────────────────────────────────────────────────────────────────────────────
// Views
// ─────────────────────────────────────────────────────────────────────────────

type DrawingResponse struct {
	Status  views.Status  `json:"status"`
	Drawing views.Drawing `json:"drawing"`
}

// Drawing handles GET /sessions/:id/views/:kind.
func (h *SessionHandler) Drawing(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	var resp DrawingResponse
	err := s.View(func(co *views.Coordinator) error {
		d, err := co.Drawing(kind)
		resp = DrawingResponse{Status: co.Status(kind), Drawing: d}
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// SetViewport handles PUT /sessions/:id/views/:kind/viewport.
func (h *SessionHandler) SetViewport(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	var vp views.Viewport
	if !bind(c, &vp) {
		return
	}
	if err := s.View(func(co *views.Coordinator) error { return co.SetViewport(kind, vp) }); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, describe(s))
}

type DragRequest struct {
	Subject string  `json:"subject" binding:"required"`
	DX      float64 `json:"dx"`
	DY      float64 `json:"dy"`
	Final   bool    `json:"final"`
}

// Drag handles POST /sessions/:id/drag. Intermediate frames skip label
// occlusion; the frame with final set runs it.
func (h *SessionHandler) Drag(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var req DragRequest
	if !bind(c, &req) {
		return
	}
	if err := s.Drag(req.Subject, req.DX, req.DY, req.Final); err != nil {
		respondError(c, err)
		return
	}
	var anchors interface{}
	_ = s.View(func(co *views.Coordinator) error {
		anchors = co.Anchors()
		return nil
	})
	respond(c, http.StatusOK, gin.H{"anchors": anchors})
}

// Labels handles GET /sessions/:id/labels: the estimated scatter label boxes.
func (h *SessionHandler) Labels(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var boxes []occlusion.Box
	err := s.View(func(co *views.Coordinator) error {
		var err error
		boxes, err = co.LabelBoxes()
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"boxes": boxes})
}

type OcclusionRequest struct {
	// Boxes are measured label boxes in scatter text order; empty means
	// use the estimates.
	Boxes []occlusion.Box `json:"boxes"`
}

// Occlusion handles POST /sessions/:id/occlusion.
func (h *SessionHandler) Occlusion(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var req OcclusionRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	var hidden int
	err := s.View(func(co *views.Coordinator) error {
		var err error
		hidden, err = co.ResolveOcclusion(req.Boxes)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"hidden": hidden})
}

// Search handles GET /sessions/:id/search?q=a;b.
func (h *SessionHandler) Search(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var res prediction.SearchResult
	err := s.View(func(co *views.Coordinator) error {
		var err error
		res, err = co.Search(c.Query("q"))
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

// ─────────────────────────────────────────────────────────────────────────────
// Export
// ─────────────────────────────────────────────────────────────────────────────

// Export handles POST /sessions/:id/export.
func (h *SessionHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		respondError(c, errExportDisabled)
		return
	}
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	r, err := h.exporter.Export(c.Request.Context(), s)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, r)
}

// Exports handles GET /sessions/:id/exports.
func (h *SessionHandler) Exports(c *gin.Context) {
	if h.exporter == nil {
		respondError(c, errExportDisabled)
		return
	}
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	list, err := h.exporter.List(c.Request.Context(), s.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"exports": list})
}
