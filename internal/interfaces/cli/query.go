package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AdamCoscia/KnowledgeVIS/internal/application/query"
	"github.com/AdamCoscia/KnowledgeVIS/internal/application/session"
	"github.com/AdamCoscia/KnowledgeVIS/internal/application/views"
	"github.com/AdamCoscia/KnowledgeVIS/internal/config"
	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

// queryFlags describe one query. A file or preset supplies the base and
// explicit flags override it.
type queryFlags struct {
	file    string
	preset  string
	set     int
	model   string
	topK    int
	prompts []string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.file, "file", "f", "", "YAML or JSON file holding {model, topk, prompts}")
	fs.StringVar(&f.preset, "preset", "", "start from a preset (DA, BE, KP or its full name)")
	fs.IntVar(&f.set, "set", 0, "prompt set of the preset")
	fs.StringVarP(&f.model, "model", "m", "", "backend model name")
	fs.IntVarP(&f.topK, "top-k", "k", 0, "predictions per prompt")
	fs.StringArrayVarP(&f.prompts, "prompt", "p", nil,
		`prompt as "TEMPLATE" or "TEMPLATE|subject,subject"; repeatable`)
}

func (f *queryFlags) build() (query.Query, error) {
	var q query.Query
	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return q, errors.Wrap(err, errors.ErrCodeBadRequest, "read query file")
		}
		if err := yaml.Unmarshal(data, &q); err != nil {
			return q, errors.Wrap(err, errors.ErrCodeSerialization, "parse query file")
		}
	}
	if f.preset != "" {
		presets, err := query.DefaultPresets()
		if err != nil {
			return q, err
		}
		p, err := presets.Get(f.preset)
		if err != nil {
			return q, err
		}
		if q, err = p.Query(f.set); err != nil {
			return q, err
		}
	}
	if f.model != "" {
		q.Model = f.model
	}
	if f.topK != 0 {
		q.TopK = f.topK
	}
	if len(f.prompts) > 0 {
		q.Prompts = nil
		for _, raw := range f.prompts {
			q.Prompts = append(q.Prompts, parsePrompt(raw))
		}
	}
	return q, query.Validate(q)
}

// parsePrompt splits "TEMPLATE|a,b" into a prompt. Blank subjects are dropped.
func parsePrompt(raw string) query.Prompt {
	template, list, _ := strings.Cut(raw, "|")
	p := query.Prompt{Template: strings.TrimSpace(template)}
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			p.Subjects = append(p.Subjects, s)
		}
	}
	return p
}

// oneShot is a private session manager holding a single loaded session.
type oneShot struct {
	manager *session.Manager
	session *session.Session
	info    *session.QueryInfo
}

func runOneShot(ctx context.Context, cliCtx *CLIContext, q query.Query) (*oneShot, error) {
	backend, err := cliCtx.backend()
	if err != nil {
		return nil, err
	}
	coordOpts, err := coordinatorOptions(cliCtx.Config.Views)
	if err != nil {
		return nil, err
	}
	svc := query.NewService(backend, query.WithLogger(cliCtx.Logger.Named("query")))
	m := session.NewManager(svc,
		config.SessionConfig{InitialSubjects: cliCtx.Config.Session.InitialSubjects},
		session.WithLogger(cliCtx.Logger.Named("session")),
		session.WithCoordinatorOptions(coordOpts...),
	)
	s := m.Create()

	if cliCtx.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cliCtx.Timeout)
		defer cancel()
	}
	info, err := s.Query(ctx, q)
	if err != nil {
		_ = m.Close(context.Background())
		return nil, err
	}
	return &oneShot{manager: m, session: s, info: info}, nil
}

func (o *oneShot) close() { _ = o.manager.Close(context.Background()) }

// NewQueryCmd runs one query and prints each subject's top predictions.
func NewQueryCmd() *cobra.Command {
	flags := &queryFlags{}
	var limit int
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run one query against the backend and print the predictions",
		Example: `  knowledgevis query -m bert-base-uncased -k 10 -p "a [subject] is a _.|cat,dog"
  knowledgevis query --preset KP --set 1 -o table`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			q, err := flags.build()
			if err != nil {
				return err
			}
			run, err := runOneShot(cmd.Context(), cliCtx, q)
			if err != nil {
				return err
			}
			defer run.close()

			var summary *querySummary
			err = run.session.View(func(c *views.Coordinator) error {
				summary = summarize(c.Dataset(), run.info, limit)
				return nil
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, summary)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 5, "predictions listed per subject; 0 lists all")
	return cmd
}

type termScore struct {
	Term    string  `json:"term"`
	Score   float64 `json:"score"`
	Cluster string  `json:"cluster,omitempty"`
}

type subjectSummary struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Sentence string      `json:"sentence"`
	Top      []termScore `json:"top"`
}

type querySummary struct {
	Model    string           `json:"model"`
	TopK     int              `json:"topk"`
	Cached   bool             `json:"cached"`
	Duration time.Duration    `json:"duration"`
	Terms    int              `json:"terms"`
	Clusters []string         `json:"clusters,omitempty"`
	Extent   [2]float64       `json:"extent"`
	Subjects []subjectSummary `json:"subjects"`
}

func summarize(ds *prediction.Dataset, info *session.QueryInfo, limit int) *querySummary {
	out := &querySummary{
		Model:    ds.Model,
		TopK:     ds.TopK,
		Terms:    len(ds.Terms),
		Clusters: ds.Clusters.Order(),
		Extent:   ds.Extent,
	}
	if info != nil {
		out.Cached, out.Duration = info.Cached, info.Duration
	}
	for _, r := range ds.Records {
		preds := append([]prediction.Prediction(nil), r.Children...)
		sort.SliceStable(preds, func(i, j int) bool { return preds[i].Value > preds[j].Value })
		if limit > 0 && len(preds) > limit {
			preds = preds[:limit]
		}
		s := subjectSummary{ID: r.ID, Name: r.Name, Sentence: prediction.Sentence(r.Template, r.Name)}
		for _, p := range preds {
			s.Top = append(s.Top, termScore{Term: p.Name, Score: p.Value, Cluster: ds.Clusters.Of(p.Name)})
		}
		out.Subjects = append(out.Subjects, s)
	}
	return out
}

func (q *querySummary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s top-%d: %d subjects, %d terms", q.Model, q.TopK, len(q.Subjects), q.Terms)
	if q.Cached {
		sb.WriteString(" (cached)")
	}
	sb.WriteString("\n")
	for _, s := range q.Subjects {
		fmt.Fprintf(&sb, "\n%s  %s\n", s.ID, s.Sentence)
		for i, t := range s.Top {
			fmt.Fprintf(&sb, "  %2d. %-20s %.4f\n", i+1, t.Term, t.Score)
		}
	}
	return sb.String()
}

func (q *querySummary) TableHeaders() []string {
	return []string{"SUBJECT", "SENTENCE", "RANK", "TERM", "SCORE", "CLUSTER"}
}

func (q *querySummary) TableRows() [][]string {
	var rows [][]string
	for _, s := range q.Subjects {
		for i, t := range s.Top {
			rows = append(rows, []string{
				s.ID, s.Sentence, strconv.Itoa(i + 1), t.Term,
				strconv.FormatFloat(t.Score, 'f', 4, 64), t.Cluster,
			})
		}
	}
	return rows
}

// NewRenderCmd runs one query, applies the given filter and prints the
// drawing of one view.
func NewRenderCmd() *cobra.Command {
	flags := &queryFlags{}
	var (
		view     string
		selected []string
		sharing  string
		sortMode string
		scale    string
		search   string
		width    float64
		height   float64
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Run one query and print a view's drawing primitives",
		Long: "Render runs a query like the query command, applies the selection and\n" +
			"display flags, and prints the drawing of --view as JSON. With -o table it\n" +
			"prints the number of primitives per class instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kind, err := views.ParseKind(view)
			if err != nil {
				return err
			}
			q, err := flags.build()
			if err != nil {
				return err
			}
			run, err := runOneShot(cmd.Context(), cliCtx, q)
			if err != nil {
				return err
			}
			defer run.close()

			result := &renderResult{}
			err = run.session.View(func(c *views.Coordinator) error {
				if width > 0 || height > 0 {
					vp := c.Viewport(kind)
					if width > 0 {
						vp.Width = width
					}
					if height > 0 {
						vp.Height = height
					}
					if err := c.SetViewport(kind, vp); err != nil {
						return err
					}
				}
				if len(selected) > 0 {
					if err := c.SetSelected(selected); err != nil {
						return err
					}
				}
				if sharing != "" {
					if err := c.SetSharing(prediction.SharingMode(sharing)); err != nil {
						return err
					}
				}
				if sortMode != "" {
					if err := c.SetSort(kind, prediction.SortMode(sortMode)); err != nil {
						return err
					}
				}
				if scale != "" {
					if err := c.SetScale(kind, prediction.ScaleMode(scale)); err != nil {
						return err
					}
				}
				if search != "" {
					found, err := c.Search(search)
					if err != nil {
						return err
					}
					result.Search = &found
				}
				d, err := c.Drawing(kind)
				if err != nil {
					return err
				}
				result.Status, result.Drawing = c.Status(kind), d
				return nil
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, result)
		},
	}
	flags.register(cmd)
	fs := cmd.Flags()
	fs.StringVar(&view, "view", "scatter", "view to render: heatmap, setview or scatter")
	fs.StringSliceVar(&selected, "select", nil, "subject ids to select (default: the initial selection)")
	fs.StringVar(&sharing, "sharing", "", "sharing mode: all, shared or unique")
	fs.StringVar(&sortMode, "sort", "", "sort mode: name, rank, group-name or group-rank")
	fs.StringVar(&scale, "scale", "", "scale mode: log or linear")
	fs.StringVar(&search, "search", "", `";"-separated prediction names to highlight`)
	fs.Float64Var(&width, "width", 0, "viewport width; overrides views.width")
	fs.Float64Var(&height, "height", 0, "viewport height; overrides views.height")
	return cmd
}

type renderResult struct {
	Status  views.Status             `json:"status"`
	Drawing views.Drawing            `json:"drawing"`
	Search  *prediction.SearchResult `json:"search,omitempty"`
}

func (r *renderResult) TableHeaders() []string { return []string{"CLASS", "COUNT"} }

func (r *renderResult) TableRows() [][]string {
	counts := make(map[string]int)
	var classes []string
	for _, p := range r.Drawing.Primitives {
		if counts[p.Class] == 0 {
			classes = append(classes, p.Class)
		}
		counts[p.Class]++
	}
	sort.Strings(classes)
	rows := make([][]string, 0, len(classes))
	for _, c := range classes {
		rows = append(rows, []string{c, strconv.Itoa(counts[c])})
	}
	return rows
}
