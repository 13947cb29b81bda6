// Package export writes a session's dataset and display state to object
// storage.
package export

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/AdamCoscia/KnowledgeVIS/internal/application/session"
	"github.com/AdamCoscia/KnowledgeVIS/internal/application/views"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/messaging/kafka"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/logging"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/monitoring/prometheus"
	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/storage/minio"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

const (
	keyPrefix   = "exports"
	contentType = "application/json"
)

// State is the display state at export time.
type State struct {
	Version  uint64                        `json:"version"`
	Selected []string                      `json:"selected"`
	Sharing  prediction.SharingMode        `json:"sharing"`
	Settings map[views.Kind]views.Settings `json:"settings"`
}

// Document is the exported object body. The prediction lists keep the
// backend's field names.
type Document struct {
	SessionID  string                         `json:"sessionId"`
	ExportedAt time.Time                      `json:"exportedAt"`
	Model      string                         `json:"model"`
	TopK       int                            `json:"topk"`
	Groups     []prediction.SubjectGroup      `json:"groups"`
	Extent     [2]float64                     `json:"extent"`
	Clusters   []prediction.ClusterAssignment `json:"predictionsClusters"`
	HeatMap    []prediction.Prediction        `json:"heatMapData"`
	SetView    []prediction.SubjectRecords    `json:"setViewData"`
	Scatter    []*prediction.Term             `json:"scatterPlotData"`
	State      State                          `json:"state"`
	Query      *session.QueryInfo             `json:"query,omitempty"`
}

// Receipt identifies a stored export.
type Receipt struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Exporter stores session exports.
type Exporter struct {
	store   minio.ObjectStore
	events  kafka.Emitter
	logger  logging.Logger
	metrics *prometheus.AppMetrics
	presign time.Duration
}

type Option func(*Exporter)

func WithLogger(l logging.Logger) Option { return func(e *Exporter) { e.logger = l } }

func WithMetrics(m *prometheus.AppMetrics) Option { return func(e *Exporter) { e.metrics = m } }

func WithEvents(em kafka.Emitter) Option { return func(e *Exporter) { e.events = em } }

// WithPresign makes Export return a download url valid for d. Stores that
// cannot presign leave the url empty.
func WithPresign(d time.Duration) Option { return func(e *Exporter) { e.presign = d } }

func NewExporter(store minio.ObjectStore, opts ...Option) *Exporter {
	e := &Exporter{
		store:  store,
		events: kafka.NopEmitter{},
		logger: logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Snapshot builds the export document of s. It fails when no dataset is
// loaded.
func Snapshot(s *session.Session) (*Document, error) {
	doc := &Document{SessionID: s.ID, ExportedAt: time.Now().UTC(), Query: s.LastQuery()}
	err := s.View(func(c *views.Coordinator) error {
		ds := c.Dataset()
		if ds == nil {
			return errors.New(errors.ErrCodeNoDataset, "nothing to export")
		}
		st := c.State()
		doc.Model = ds.Model
		doc.TopK = ds.TopK
		doc.Groups = ds.Groups
		doc.Extent = ds.Extent
		doc.Clusters = ds.Clusters.Assignments()
		doc.HeatMap = ds.Predictions
		doc.SetView = ds.Records
		doc.Scatter = ds.Terms
		doc.State = State{
			Version:  st.Version,
			Selected: st.Selected(),
			Sharing:  st.Sharing,
			Settings: make(map[views.Kind]views.Settings, len(views.AllKinds)),
		}
		for _, k := range views.AllKinds {
			doc.State.Settings[k] = st.Settings(k)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Key returns the object key of a new export of session id.
func Key(sessionID string) string {
	return path.Join(keyPrefix, sessionID, uuid.New().String()+".json")
}

// Export stores the session's current dataset and returns its key.
func (e *Exporter) Export(ctx context.Context, s *session.Session) (*Receipt, error) {
	doc, err := Snapshot(s)
	if err != nil {
		return nil, err
	}
	r, err := e.put(ctx, doc)
	if e.metrics != nil {
		e.metrics.RecordExport(err)
	}
	if err != nil {
		e.logger.Error("export failed", logging.Session(s.ID), logging.Err(err))
		return nil, err
	}
	e.events.Emit(kafka.EventDatasetExported, s.ID, r)
	e.logger.Info("dataset exported", logging.Session(s.ID),
		logging.String("key", r.Key), logging.Int64("size", r.Size))
	return r, nil
}

func (e *Exporter) put(ctx context.Context, doc *Document) (*Receipt, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode export")
	}
	info, err := e.store.Put(ctx, Key(doc.SessionID), body, contentType, map[string]string{
		"session": doc.SessionID,
		"model":   doc.Model,
	})
	if err != nil {
		return nil, err
	}
	r := &Receipt{Key: info.Key, Size: info.Size, CreatedAt: doc.ExportedAt}
	if e.presign > 0 {
		url, err := e.store.PresignGet(ctx, info.Key, e.presign)
		if err != nil {
			e.logger.Debug("presign skipped", logging.String("key", info.Key), logging.Err(err))
		} else {
			r.URL = url
		}
	}
	return r, nil
}

// List returns the exports of one session, oldest key first.
func (e *Exporter) List(ctx context.Context, sessionID string) ([]minio.ObjectInfo, error) {
	return e.store.List(ctx, path.Join(keyPrefix, sessionID)+"/")
}

// Load reads an export back.
func (e *Exporter) Load(ctx context.Context, key string) (*Document, error) {
	data, _, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode export")
	}
	return &doc, nil
}
