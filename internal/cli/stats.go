package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/latex-translator/pkg/providers/stats"
)

// newStatsCommand 查看提供商统计和分块缓存
func newStatsCommand(opts *rootOptions) *cobra.Command {
	var (
		statsFormat  string
		resetStats   bool
		assumeYes    bool
		showCache    bool
		cacheCleanup bool
		maxAge       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "View provider statistics and chunk cache information",
		Long: `View statistics recorded by translations run with --stats: request counts,
latency and how many placeholders each provider lost or invented.

Examples:
  # Show provider statistics
  latex-translator stats

  # Export statistics as JSON
  latex-translator stats --format json

  # Show the chunk cache and remove entries older than a week
  latex-translator stats --cache --cleanup --max-age 168h

  # Reset all statistics
  latex-translator stats --reset`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()

			w := cmd.OutOrStdout()

			if resetStats {
				return handleStatsReset(cmd.InOrStdin(), w, cfg.StatsFile, assumeYes, log)
			}

			if showCache {
				cacheDir := filepath.Join(cfg.CacheDir, "chunks")
				if cacheCleanup {
					removed, err := cleanupCache(cacheDir, maxAge, log)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "removed %d cache file(s) older than %s\n", removed, maxAge)
				}
				return showCacheStats(w, cacheDir)
			}

			mgr := stats.NewStatsManager(cfg.StatsFile, log)
			if err := mgr.LoadFromDB(); err != nil {
				return err
			}

			switch statsFormat {
			case "json":
				data, err := json.MarshalIndent(mgr.GetAllStats(), "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal stats data: %w", err)
				}
				fmt.Fprintln(w, string(data))
			case "table":
				if len(mgr.GetAllStats()) == 0 {
					fmt.Fprintf(w, "no provider statistics recorded in %s, run a translation with --stats\n", cfg.StatsFile)
					return nil
				}
				mgr.RenderTable(w)
			default:
				return fmt.Errorf("unsupported format %q (table, json)", statsFormat)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&statsFormat, "format", "table", "output format (table, json)")
	cmd.Flags().BoolVar(&resetStats, "reset", false, "reset all statistics (asks for confirmation)")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().BoolVar(&showCache, "cache", false, "show chunk cache information")
	cmd.Flags().BoolVar(&cacheCleanup, "cleanup", false, "with --cache, remove old cache files")
	cmd.Flags().DurationVar(&maxAge, "max-age", 30*24*time.Hour, "age after which --cleanup removes cache files")

	return cmd
}

// handleStatsReset 处理统计重置
func handleStatsReset(in io.Reader, w io.Writer, statsPath string, assumeYes bool, log *zap.Logger) error {
	if !assumeYes {
		fmt.Fprint(w, "Are you sure you want to reset all statistics? This cannot be undone. (y/N): ")
		answer, _ := bufio.NewReader(in).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
		default:
			fmt.Fprintln(w, "Statistics reset cancelled.")
			return nil
		}
	}

	if err := os.Remove(statsPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove statistics file: %w", err)
	}
	log.Info("statistics reset", zap.String("path", statsPath))
	color.New(color.FgGreen).Fprintln(w, "Statistics have been reset.")
	return nil
}

// cleanupCache 删除超过 maxAge 的缓存文件
func cleanupCache(cacheDir string, maxAge time.Duration, log *zap.Logger) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	err := filepath.Walk(cacheDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() || !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		removed++
		log.Debug("removed old cache file", zap.String("file", path), zap.Time("modified", info.ModTime()))
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to clean cache: %w", err)
	}
	return removed, nil
}

// showCacheStats 输出缓存目录的文件数和大小
func showCacheStats(w io.Writer, cacheDir string) error {
	var (
		files  int
		size   int64
		oldest time.Time
		newest time.Time
	)
	err := filepath.Walk(cacheDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		files++
		size += info.Size()
		if oldest.IsZero() || info.ModTime().Before(oldest) {
			oldest = info.ModTime()
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	fmt.Fprintf(w, "Cache Directory: %s\n", cacheDir)
	fmt.Fprintf(w, "  Files: %d\n", files)
	fmt.Fprintf(w, "  Size:  %s\n", formatBytes(size))
	if files > 0 {
		fmt.Fprintf(w, "  Oldest Entry: %s\n", oldest.Format(time.DateTime))
		fmt.Fprintf(w, "  Newest Entry: %s\n", newest.Format(time.DateTime))
	}
	return nil
}

// formatBytes 格式化字节数
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
