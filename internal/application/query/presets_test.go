package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

func TestDefaultPresets(t *testing.T) {
	c, err := DefaultPresets()
	require.NoError(t, err)

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"DA", "BE", "KP"}, []string{list[0].Short, list[1].Short, list[2].Short})

	be, err := c.Get("be")
	require.NoError(t, err)
	assert.Equal(t, "bert", be.Model)
	assert.Equal(t, 20, be.TopK)
	require.Len(t, be.Sets, 2)
	assert.Len(t, be.Sets[0], 12)
	assert.Len(t, be.Sets[0][0].Subjects, 10)
	assert.Equal(t, "the woman", be.Sets[0][0].Subjects[0])

	kp, err := c.Get("knowledge-probing")
	require.NoError(t, err)
	assert.Equal(t, []string{"want to", "should", "must"}, kp.Sets[1][3].Subjects)
}

func TestPresetCatalog_NextRotates(t *testing.T) {
	c, err := DefaultPresets()
	require.NoError(t, err)

	q, i, err := c.Next("DA")
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	assert.Equal(t, "scibert", q.Model)
	assert.Equal(t, 10, q.TopK)
	assert.Equal(t, "[subject] is _ for trauma patients to receive.", q.Prompts[0].Template)

	_, i, _ = c.Next("DA")
	assert.Equal(t, 1, i)
	_, i, _ = c.Next("domain-adaptation")
	assert.Equal(t, 0, i)

	_, i, _ = c.Next("KP")
	assert.Equal(t, 0, i, "rotation is tracked per preset")

	req, err := BuildRequest(q)
	require.NoError(t, err)
	assert.Equal(t, "s1", req.Groups[0].Subjects[0].ID)
}

func TestPresetQuery_CopiesSubjects(t *testing.T) {
	c, err := DefaultPresets()
	require.NoError(t, err)
	p, _ := c.Get("KP")

	q, err := p.Query(0)
	require.NoError(t, err)
	q.Prompts[0].Subjects[0] = "mutated"
	assert.Equal(t, "likely", p.Sets[0][0].Subjects[0])

	_, err = p.Query(5)
	assert.True(t, errors.IsCode(err, errors.ErrCodePresetNotFound))
}

func TestParsePresets_Rejects(t *testing.T) {
	_, err := parse(t, "nope")
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))

	_, err = parse(t, "- name: x\n  model: bert\n  topk: 1\n")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = parse(t, "- name: x\n  model: bert\n  topk: 1\n  sets: [[{template: no blank}]]\n")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	dup := "- {name: a, short: X, model: m, topk: 1, sets: [[{template: \"_ .\"}]]}\n" +
		"- {name: b, short: x, model: m, topk: 1, sets: [[{template: \"_ .\"}]]}\n"
	_, err = parse(t, dup)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = DefaultPresets()
	require.NoError(t, err)
	cat, err := parse(t, "- {name: a, model: m, topk: 1, sets: [[{template: \"_ .\"}]]}\n")
	require.NoError(t, err)
	_, err = cat.Get("zzz")
	assert.True(t, errors.IsCode(err, errors.ErrCodePresetNotFound))
}

func parse(t *testing.T, doc string) (*PresetCatalog, error) {
	t.Helper()
	return ParsePresets([]byte(doc))
}
