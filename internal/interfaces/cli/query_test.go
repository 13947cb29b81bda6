package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamCoscia/KnowledgeVIS/internal/application/query"
	"github.com/AdamCoscia/KnowledgeVIS/internal/application/views"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

const petPrompt = "a [subject] is a _.|cat, dog,"

func TestParsePrompt(t *testing.T) {
	assert.Equal(t, query.Prompt{Template: "a [subject] is a _.", Subjects: []string{"cat", "dog"}}, parsePrompt(petPrompt))
	assert.Equal(t, query.Prompt{Template: "the sky is _."}, parsePrompt(" the sky is _. "))
}

func TestQueryFlags_Build(t *testing.T) {
	t.Run("preset with overrides", func(t *testing.T) {
		f := &queryFlags{preset: "KP", set: 0, topK: 3}
		q, err := f.build()
		require.NoError(t, err)
		assert.Equal(t, "distilbert", q.Model)
		assert.Equal(t, 3, q.TopK)
		assert.NotEmpty(t, q.Prompts)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "q.yaml")
		body := "model: bert\ntopk: 4\nprompts:\n  - template: \"a [subject] is a _.\"\n    subjects: [cat]\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		q, err := (&queryFlags{file: path}).build()
		require.NoError(t, err)
		assert.Equal(t, query.Query{Model: "bert", TopK: 4, Prompts: []query.Prompt{
			{Template: "a [subject] is a _.", Subjects: []string{"cat"}},
		}}, q)
	})

	t.Run("prompts replace the preset's", func(t *testing.T) {
		f := &queryFlags{preset: "BE", prompts: []string{"the sky is _."}}
		q, err := f.build()
		require.NoError(t, err)
		assert.Equal(t, []query.Prompt{{Template: "the sky is _."}}, q.Prompts)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := (&queryFlags{topK: 3, prompts: []string{"no blank here"}}).build()
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidModel))

		_, err = (&queryFlags{model: "bert", topK: 3, prompts: []string{"no blank here"}}).build()
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidTemplate))

		_, err = (&queryFlags{preset: "nope"}).build()
		assert.True(t, errors.IsCode(err, errors.ErrCodePresetNotFound))
	})
}

func TestQueryCommand_JSON(t *testing.T) {
	backend, posts := newBackend(t)
	cfg := writeConfig(t, "backend:\n  base_url: "+backend.URL+"\n")

	out, err := execute(t, "--config", cfg, "-o", "json",
		"query", "-m", "bert", "-k", "2", "-p", petPrompt)
	require.NoError(t, err)
	assert.EqualValues(t, 1, posts.Load())

	var got querySummary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "bert", got.Model)
	assert.Equal(t, 2, got.TopK)
	assert.Equal(t, 3, got.Terms)
	assert.Equal(t, []string{"shared", "other"}, got.Clusters)
	assert.InDelta(t, 0.1, got.Extent[0], 1e-9)
	assert.InDelta(t, 0.5, got.Extent[1], 1e-9)

	require.Len(t, got.Subjects, 2)
	cat := got.Subjects[0]
	assert.Equal(t, "s1", cat.ID)
	assert.Equal(t, "a cat is a _.", cat.Sentence)
	assert.Equal(t, []termScore{
		{Term: "pet", Score: 0.5, Cluster: "shared"},
		{Term: "cat-only", Score: 0.2, Cluster: "other"},
	}, cat.Top)
}

func TestQueryCommand_TableAndLimit(t *testing.T) {
	backend, _ := newBackend(t)
	out, err := execute(t, "--backend", backend.URL, "--config", writeConfig(t, "log:\n  level: error\n"),
		"-o", "table", "query", "-m", "bert", "-k", "2", "-p", petPrompt, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "SUBJECT")
	assert.Contains(t, out, "a dog is a _.")
	assert.NotContains(t, out, "cat-only")
}

func TestQueryCommand_Invalid(t *testing.T) {
	backend, posts := newBackend(t)
	cfg := writeConfig(t, "backend:\n  base_url: "+backend.URL+"\n")
	_, err := execute(t, "--config", cfg, "query", "-m", "bert", "-k", "0", "-p", petPrompt)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidTopK))
	assert.EqualValues(t, 0, posts.Load())
}

func TestRenderCommand(t *testing.T) {
	backend, _ := newBackend(t)
	cfg := writeConfig(t, "backend:\n  base_url: "+backend.URL+"\n")

	out, err := execute(t, "--config", cfg, "-o", "json",
		"render", "-m", "bert", "-k", "2", "-p", petPrompt,
		"--view", "heat-map", "--width", "400", "--search", "pet;zebra")
	require.NoError(t, err)

	var got renderResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, views.StatusPopulated, got.Status)
	assert.Equal(t, views.KindHeatMap, got.Drawing.Kind)
	assert.Equal(t, 400.0, got.Drawing.Width)
	assert.NotEmpty(t, got.Drawing.Primitives)
	require.NotNil(t, got.Search)
	assert.Len(t, got.Search.IDs, 1)
	assert.Equal(t, []string{"zebra"}, got.Search.Missing)
}

func TestRenderCommand_ScatterNeedsTwoSubjects(t *testing.T) {
	backend, _ := newBackend(t)
	cfg := writeConfig(t, "backend:\n  base_url: "+backend.URL+"\n")

	out, err := execute(t, "--config", cfg, "-o", "json",
		"render", "-m", "bert", "-k", "2", "-p", petPrompt, "--view", "scatter", "--select", "s1")
	require.NoError(t, err)
	var got renderResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, views.StatusEmpty, got.Status)
	assert.Empty(t, got.Drawing.Primitives)

	_, err = execute(t, "--config", cfg, "render", "-m", "bert", "-k", "2", "-p", petPrompt, "--view", "pie")
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownView))

	_, err = execute(t, "--config", cfg, "render", "-m", "bert", "-k", "2", "-p", petPrompt, "--select", "s9")
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownSubject))
}

func TestRenderResult_Table(t *testing.T) {
	r := &renderResult{Drawing: views.Drawing{Primitives: []views.Primitive{
		{Class: "cell"}, {Class: "label"}, {Class: "cell"},
	}}}
	assert.Equal(t, [][]string{{"cell", "2"}, {"label", "1"}}, r.TableRows())
}
