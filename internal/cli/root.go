package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/latex-translator/internal/config"
	"github.com/nerdneilsfield/latex-translator/internal/document"
	"github.com/nerdneilsfield/latex-translator/internal/logger"
	"github.com/nerdneilsfield/latex-translator/pkg/masking"
	"github.com/nerdneilsfield/latex-translator/pkg/progress"
	"github.com/nerdneilsfield/latex-translator/pkg/providers"
	"github.com/nerdneilsfield/latex-translator/pkg/providers/factory"
	"github.com/nerdneilsfield/latex-translator/pkg/providers/stats"
	"github.com/nerdneilsfield/latex-translator/pkg/translation"
)

// rootOptions 命令行标志，根命令与子命令共用
type rootOptions struct {
	cfgFile         string
	sourceLang      string
	targetLang      string
	provider        string
	projectID       string
	chunkSize       int
	latex           bool
	testMode        bool
	saveInputOutput bool
	rulesFile       string
	sentinel        string
	strict          bool
	useCache        bool
	cacheDir        string
	stats           bool
	encoding        string
	showProgress    bool
	debugMode       bool
	verboseMode     bool
}

// flagAliases 兼容旧版命令行的标志名
var flagAliases = map[string]string{
	"input-language":  "source",
	"output-language": "target",
}

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "latex-translator [flags] input_file output_file",
		Short: "Translate LaTeX documents without breaking their markup",
		Long: `latex-translator masks LaTeX markup (math, environments, commands, comments)
with numbered placeholders, splits the prose into paragraph-aligned chunks,
sends each chunk to a machine translation provider and restores the original
markup in the translated text.

Masking is enabled with --latex, or automatically for .tex/.ltx/.sty inputs.
Use --test to run the whole pipeline without calling a provider; the output
must then be byte-identical to the input.

Providers: google (default), deepl, deeplx, libretranslate, openai, ollama, raw.
Run "latex-translator providers" for details.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, opts, args[0], args[1])
		},
	}

	addGlobalFlags(rootCmd, opts)
	rootCmd.Flags().BoolVar(&opts.testMode, "test", false, "do not call the provider, echo every chunk (output must equal input)")
	rootCmd.Flags().BoolVar(&opts.saveInputOutput, "save-input-output", false, "save <input>.input, <output>.output and <input>.registry.json")
	rootCmd.Flags().BoolVar(&opts.useCache, "cache", false, "cache translated chunks")
	rootCmd.Flags().BoolVar(&opts.showProgress, "progress", true, "show a progress bar on stderr")
	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)

	rootCmd.AddCommand(
		newMaskCommand(opts),
		newRestoreCommand(opts),
		newChunkCommand(opts),
		newRulesCommand(opts),
		newProvidersCommand(opts),
		newStatsCommand(opts),
		newConfigCommand(opts),
	)

	return rootCmd
}

// addGlobalFlags 添加全局标志
func addGlobalFlags(rootCmd *cobra.Command, opts *rootOptions) {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default $HOME/.latex-translator.yaml)")
	flags.StringVar(&opts.sourceLang, "source", "", "source language, e.g. en (alias --input-language)")
	flags.StringVar(&opts.targetLang, "target", "", "target language, e.g. zh-CN (alias --output-language)")
	flags.StringVar(&opts.provider, "provider", "", "translation provider")
	flags.StringVar(&opts.projectID, "project-id", "", "Google Cloud project id (Cloud Translation v3)")
	flags.IntVar(&opts.chunkSize, "chunk-size", translation.DefaultChunkSize, "maximum codepoints per request")
	flags.BoolVar(&opts.latex, "latex", false, "input is LaTeX, mask markup before translating")
	flags.StringVar(&opts.rulesFile, "rules", "", "TOML file overriding the masked environments and commands")
	flags.StringVar(&opts.sentinel, "sentinel", "", `placeholder delimiter, or "auto" to pick one absent from the input`)
	flags.BoolVar(&opts.strict, "strict", false, "fail instead of warning when placeholders cannot be restored")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "cache directory")
	flags.BoolVar(&opts.stats, "stats", false, "record per-provider statistics")
	flags.StringVar(&opts.encoding, "encoding", "", "input encoding, one of "+strings.Join(document.SupportedEncodings(), ", ")+" (default: detect)")
	flags.BoolVar(&opts.debugMode, "debug", false, "enable debug logging")
	flags.BoolVarP(&opts.verboseMode, "verbose", "v", false, "human readable logs")
}

func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if alias, ok := flagAliases[name]; ok {
		name = alias
	}
	return pflag.NormalizedName(name)
}

// setup 加载配置、应用命令行标志并创建日志
func setup(cmd *cobra.Command, opts *rootOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(opts.cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if err := updateConfigFromFlags(cmd, cfg, opts); err != nil {
		return nil, nil, err
	}
	return cfg, logger.NewLoggerWithVerbose(cfg.Debug, cfg.Verbose), nil
}

// updateConfigFromFlags 使用命令行参数更新配置，只覆盖显式给出的标志
func updateConfigFromFlags(cmd *cobra.Command, cfg *config.Config, opts *rootOptions) error {
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.SourceLang = opts.sourceLang
	}
	if flags.Changed("target") {
		cfg.TargetLang = opts.targetLang
	}
	if flags.Changed("provider") {
		cfg.Provider = opts.provider
	}
	if flags.Changed("chunk-size") {
		cfg.ChunkSize = opts.chunkSize
	}
	if flags.Changed("latex") {
		cfg.LaTeX = opts.latex
	}
	if flags.Changed("test") {
		cfg.TestMode = opts.testMode
	}
	if flags.Changed("save-input-output") {
		cfg.SaveInputOutput = opts.saveInputOutput
	}
	if flags.Changed("sentinel") {
		cfg.Sentinel = opts.sentinel
	}
	if flags.Changed("strict") {
		cfg.StrictRestore = opts.strict
	}
	if flags.Changed("cache") {
		cfg.UseCache = opts.useCache
	}
	if flags.Changed("cache-dir") {
		// 统计文件默认跟随缓存目录
		if cfg.StatsFile == filepath.Join(cfg.CacheDir, "provider-stats.json") {
			cfg.StatsFile = filepath.Join(opts.cacheDir, "provider-stats.json")
		}
		cfg.CacheDir = opts.cacheDir
	}
	if flags.Changed("stats") {
		cfg.Stats = opts.stats
	}
	if flags.Changed("debug") {
		cfg.Debug = opts.debugMode
	}
	if flags.Changed("verbose") {
		cfg.Verbose = opts.verboseMode
	}
	if flags.Changed("project-id") {
		if cfg.Providers == nil {
			cfg.Providers = make(map[string]providers.Settings)
		}
		settings := cfg.Providers["google"]
		settings.ProjectID = opts.projectID
		cfg.Providers["google"] = settings
	}
	if flags.Changed("rules") {
		cfg.RulesFile = opts.rulesFile
		if err := cfg.ApplyRulesFile(opts.rulesFile); err != nil {
			return err
		}
	}
	return nil
}

// applyDocumentFormat 根据扩展名自动开启遮蔽，显式的 --latex 优先
func applyDocumentFormat(cmd *cobra.Command, cfg *config.Config, doc *document.Document, log *zap.Logger) {
	if cfg.LaTeX || cmd.Flags().Changed("latex") || !doc.Format.Masked() {
		return
	}
	cfg.LaTeX = true
	log.Info("LaTeX input detected from file extension, masking enabled", zap.String("file", doc.Path))
}

func runTranslate(cmd *cobra.Command, opts *rootOptions, inputPath, outputPath string) error {
	cfg, log, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	doc, err := document.Read(inputPath, opts.encoding)
	if err != nil {
		return err
	}
	applyDocumentFormat(cmd, cfg, doc, log)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Info("input loaded",
		zap.String("file", inputPath),
		zap.String("encoding", doc.Encoding),
		zap.Bool("latex", cfg.LaTeX),
		zap.String("provider", cfg.ProviderName()))

	scheme, err := masking.ResolveTokenScheme(cfg.Sentinel, doc.Text)
	if err != nil {
		return err
	}
	translator, statsMgr, err := buildTranslator(cfg, log, scheme)
	if err != nil {
		return err
	}

	var (
		reporter *progress.Reporter
		saved    document.SavedPaths
		saveErr  error
	)
	serviceOpts := []translation.Option{translation.WithLogger(log)}
	if opts.showProgress {
		reporter = progress.NewReporter(cmd.ErrOrStderr())
		serviceOpts = append(serviceOpts, translation.WithProgressCallback(reporter.Update))
	}
	serviceOpts = append(serviceOpts, translation.WithBeforeTranslate(func(prep *translation.Prepared) {
		if reporter != nil {
			reporter.Start(len(prep.Chunks), translation.CodepointLength(prep.Masked))
		}
		// 在调用提供商之前落盘，翻译失败时也能检查遮蔽结果
		if cfg.SaveInputOutput {
			var reg *masking.Registry
			if cfg.LaTeX {
				reg = prep.Registry
			}
			saved, saveErr = document.SaveInput(inputPath, prep.Masked, reg, prep.Scheme, cfg.ToTranslationConfig().TrimWhitespace)
		}
	}))

	svc, err := translation.New(cfg.ToTranslationConfig(), translator, serviceOpts...)
	if err != nil {
		return err
	}

	result, err := svc.Translate(cmd.Context(), doc.Text)
	if reporter != nil {
		reporter.Stop()
	}
	if statsMgr != nil {
		if err := statsMgr.SaveToDB(); err != nil {
			log.Warn("failed to save provider stats", zap.Error(err))
		}
	}
	if saveErr != nil {
		return saveErr
	}
	if err != nil {
		return err
	}

	if cfg.SaveInputOutput {
		if saved.Output, err = document.SaveOutput(outputPath, result.Translated); err != nil {
			return err
		}
	}
	if err := document.Write(outputPath, result.Output); err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), result, outputPath, saved)
	if statsMgr != nil && cfg.Verbose {
		statsMgr.RenderTable(cmd.OutOrStdout())
	}
	return nil
}

// buildTranslator 创建提供商并按配置叠加统计中间件和分块缓存
func buildTranslator(cfg *config.Config, log *zap.Logger, scheme masking.TokenScheme) (translation.Translator, *stats.StatsManager, error) {
	name := cfg.ProviderName()
	settings := cfg.ProviderSettings(name)

	provider, err := factory.Create(name, settings)
	if err != nil {
		return nil, nil, err
	}

	var statsMgr *stats.StatsManager
	if cfg.Stats {
		statsMgr = stats.NewStatsManager(cfg.StatsFile, log)
		if err := statsMgr.LoadFromDB(); err != nil {
			log.Warn("failed to load provider stats, starting fresh", zap.Error(err))
		}
		provider = stats.NewStatisticsMiddleware(provider, statsMgr, settings.Model, scheme)
	}

	adapterOpts := []translation.AdapterOption{translation.WithAdapterModel(settings.Model)}
	// 测试模式不经过提供商，缓存没有意义
	if cfg.UseCache && !cfg.TestMode {
		cache, err := translation.NewCache(true, filepath.Join(cfg.CacheDir, "chunks"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open chunk cache: %w", err)
		}
		adapterOpts = append(adapterOpts, translation.WithAdapterCache(cache))
	}

	return translation.NewProviderTranslator(provider, adapterOpts...), statsMgr, nil
}

// printSummary 输出本次翻译的摘要
func printSummary(w io.Writer, result *translation.Result, outputPath string, saved document.SavedPaths) {
	success := color.New(color.FgGreen, color.Bold)
	warning := color.New(color.FgYellow)

	success.Fprintf(w, "Translated %s\n", outputPath)
	fmt.Fprintf(w, "  %d replacements made\n", result.Replacements())
	fmt.Fprintf(w, "  the file has %d codepoints\n", translation.CodepointLength(result.Masked))
	fmt.Fprintf(w, "  %d chunk(s), %d blank, %s\n",
		len(result.Chunks), result.SkippedChunks, result.Duration.Round(time.Millisecond))

	if result.Collisions > 0 {
		warning.Fprintf(w, "  warning: sentinel %q already occurs %d time(s) in the input\n",
			result.Scheme.Sentinel(), result.Collisions)
	}
	if err := result.Report.Err(); err != nil {
		warning.Fprintf(w, "  warning: %v\n", err)
	}

	var files []string
	for _, p := range []string{saved.Input, saved.Output, saved.Registry} {
		if p != "" {
			files = append(files, p)
		}
	}
	if len(files) > 0 {
		fmt.Fprintf(w, "  saved %s\n", strings.Join(files, ", "))
	}
}
