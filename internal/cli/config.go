package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/latex-translator/internal/config"
)

// newConfigCommand 配置文件相关命令
func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCommand(opts))
	return cmd
}

// newConfigInitCommand 把当前生效的配置（含命令行覆盖）写入文件
func newConfigInitCommand(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective configuration to a YAML file (default: ~/.latex-translator.yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			if path != "" && !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists, use --force to overwrite", path)
				}
			}

			if err := config.SaveConfig(cfg, path); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			log.Debug("config written", zap.String("path", path))

			if path == "" {
				path = "~/.latex-translator.yaml"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("wrote"), path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
