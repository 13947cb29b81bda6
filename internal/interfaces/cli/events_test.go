package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/messaging/kafka"
)

func TestEventPrinter_FiltersAndStops(t *testing.T) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	printer := eventPrinter(cmd, []string{"query.completed"}, 2, false)

	created, err := kafka.NewEvent(kafka.EventSessionCreated, "s-1", nil)
	require.NoError(t, err)
	done, err := kafka.NewEvent(kafka.EventQueryCompleted, "s-1", map[string]int{"terms": 3})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, printer(ctx, created))
	require.NoError(t, printer(ctx, done))
	assert.ErrorIs(t, printer(ctx, done), errTailDone)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "query.completed")
	assert.Contains(t, lines[0], `{"terms":3}`)
}

func TestEventPrinter_JSON(t *testing.T) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	evt, err := kafka.NewEvent(kafka.EventSessionClosed, "s-2", nil)
	require.NoError(t, err)

	require.NoError(t, eventPrinter(cmd, nil, 0, true)(context.Background(), evt))
	assert.Contains(t, out.String(), `"type":"session.closed"`)
	assert.Contains(t, out.String(), `"session_id":"s-2"`)
}
