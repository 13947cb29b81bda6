package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AdamCoscia/KnowledgeVIS/internal/config"
)

const redacted = "<redacted>"

// NewConfigCmd inspects configuration.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or validate configuration",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigValidateCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return PrintResult(cmd, configView{Source: cliCtx.ConfigPath, Config: redact(*cliCtx.Config)})
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [PATH]",
		Short: "Load a config file, apply defaults and check it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			path := cliCtx.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				PrintSuccess(cmd, "no config file; environment and defaults are valid")
				return nil
			}
			if _, err := config.Load(path); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("%s is valid", path))
			return nil
		},
	}
}

func redact(cfg config.Config) config.Config {
	if cfg.Redis.Password != "" {
		cfg.Redis.Password = redacted
	}
	if cfg.MinIO.AccessKey != "" {
		cfg.MinIO.AccessKey = redacted
	}
	if cfg.MinIO.SecretKey != "" {
		cfg.MinIO.SecretKey = redacted
	}
	return cfg
}

type configView struct {
	Source string        `json:"source,omitempty" yaml:"source,omitempty"`
	Config config.Config `json:"config" yaml:"config"`
}

func (v configView) String() string {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err.Error()
	}
	return string(out)
}
