// Package query turns prompt input into backend requests, runs them against
// the prediction service and assembles the responses into datasets.
package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AdamCoscia/KnowledgeVIS/internal/domain/prediction"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/client"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

// MaskToken marks the blank the model fills in each template.
const MaskToken = "_"

var wholeWordMask = regexp.MustCompile(`\b_\b`)

// Prompt is one template with the subjects substituted into it. Subjects are
// ignored when the template has no placeholder.
type Prompt struct {
	Template string   `json:"template" yaml:"template"`
	Subjects []string `json:"subjects,omitempty" yaml:"subjects,omitempty"`
}

// Query is what the user submits.
type Query struct {
	Model   string   `json:"model" yaml:"model"`
	TopK    int      `json:"topk" yaml:"topk"`
	Prompts []Prompt `json:"prompts" yaml:"prompts"`
}

// ValidTemplate reports whether template holds exactly one mask token and
// that token stands as a whole word.
func ValidTemplate(template string) bool {
	return strings.Count(template, MaskToken) == 1 &&
		len(wholeWordMask.FindAllStringIndex(template, -1)) == 1
}

// Validate checks q without building anything. The first problem found is
// returned; its detail names the offending prompt.
func Validate(q Query) error {
	if strings.TrimSpace(q.Model) == "" {
		return errors.New(errors.ErrCodeInvalidModel, "model is required")
	}
	if q.TopK <= 0 {
		return errors.Newf(errors.ErrCodeInvalidTopK, "topk must be an integer greater than 0, got %d", q.TopK)
	}
	if len(q.Prompts) == 0 {
		return errors.New(errors.ErrCodeMissingSubjects, "at least one prompt is required")
	}
	for i, p := range q.Prompts {
		if !ValidTemplate(p.Template) {
			return errors.New(errors.ErrCodeInvalidTemplate, "template must contain exactly one whole-word _").
				WithDetail(fmt.Sprintf("prompt %d: %q", i+1, p.Template))
		}
		if strings.Contains(p.Template, prediction.SubjectPlaceholder) && len(cleanSubjects(p.Subjects)) == 0 {
			return errors.New(errors.ErrCodeMissingSubjects, "template with [subject] needs at least one subject").
				WithDetail(fmt.Sprintf("prompt %d: %q", i+1, p.Template))
		}
	}
	return nil
}

// BuildRequest validates q and numbers its subjects s1, s2, ... across all
// prompts. A template without a placeholder becomes a single subject named
// by the template itself.
func BuildRequest(q Query) (*client.Request, error) {
	if err := Validate(q); err != nil {
		return nil, err
	}
	req := &client.Request{
		Model:  strings.TrimSpace(q.Model),
		TopK:   q.TopK,
		Fill:   MaskToken,
		Groups: make([]client.Group, 0, len(q.Prompts)),
	}
	n := 0
	next := func(name string) client.Subject {
		n++
		return client.Subject{ID: fmt.Sprintf("s%d", n), Name: name}
	}
	for _, p := range q.Prompts {
		g := client.Group{Template: p.Template}
		if strings.Contains(p.Template, prediction.SubjectPlaceholder) {
			for _, name := range cleanSubjects(p.Subjects) {
				g.Subjects = append(g.Subjects, next(name))
			}
		} else {
			g.Subjects = []client.Subject{next(p.Template)}
		}
		req.Groups = append(req.Groups, g)
	}
	return req, nil
}

func cleanSubjects(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
