package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AdamCoscia/KnowledgeVIS/internal/application/query"
)

// NewPresetsCmd lists the built-in example workloads.
func NewPresetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List and inspect the built-in example queries",
	}
	cmd.AddCommand(newPresetsListCmd(), newPresetsShowCmd())
	return cmd
}

func newPresetsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := query.DefaultPresets()
			if err != nil {
				return err
			}
			return PrintResult(cmd, presetList(catalog.List()))
		},
	}
}

func newPresetsShowCmd() *cobra.Command {
	var set int
	cmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Print the query of one preset set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := query.DefaultPresets()
			if err != nil {
				return err
			}
			p, err := catalog.Get(args[0])
			if err != nil {
				return err
			}
			q, err := p.Query(set)
			if err != nil {
				return err
			}
			return PrintResult(cmd, presetQuery{Preset: p.Name, Set: set, Sets: len(p.Sets), Query: q})
		},
	}
	cmd.Flags().IntVar(&set, "set", 0, "prompt set index")
	return cmd
}

type presetList []query.Preset

func (l presetList) String() string {
	var sb strings.Builder
	for _, p := range l {
		fmt.Fprintf(&sb, "%-3s %s (%s, top %d, %d sets)\n", p.Short, p.Name, p.Model, p.TopK, len(p.Sets))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (l presetList) TableHeaders() []string {
	return []string{"SHORT", "NAME", "MODEL", "TOPK", "SETS", "DESCRIPTION"}
}

func (l presetList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, p := range l {
		rows = append(rows, []string{p.Short, p.Name, p.Model, strconv.Itoa(p.TopK), strconv.Itoa(len(p.Sets)), p.Description})
	}
	return rows
}

type presetQuery struct {
	Preset string      `json:"preset"`
	Set    int         `json:"set"`
	Sets   int         `json:"sets"`
	Query  query.Query `json:"query"`
}

func (p presetQuery) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s set %d/%d: %s top %d\n", p.Preset, p.Set+1, p.Sets, p.Query.Model, p.Query.TopK)
	for _, pr := range p.Query.Prompts {
		fmt.Fprintf(&sb, "  %s", pr.Template)
		if len(pr.Subjects) > 0 {
			fmt.Fprintf(&sb, "  [%s]", strings.Join(pr.Subjects, ", "))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
