package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/latex-translator/pkg/masking"
)

// Service 翻译流水线：遮蔽 -> 分块 -> 逐块翻译 -> 拼接 -> 还原
//
// 分块严格按顺序逐个提交，第 i 个分块的译文放在拼接结果的第 i 个位置。
// 每个文档使用独立的注册表，同一个 Service 可被多个 goroutine 同时使用。
type Service struct {
	config     *Config
	translator Translator
	chunker    *ParagraphChunker
	options    serviceOptions
	logger     *zap.Logger
}

// Prepared 调用翻译服务之前的文档形态
type Prepared struct {
	// ID 本次运行的唯一标识
	ID string
	// Document 原始文档
	Document string
	// Masked 遮蔽后的文本
	Masked string
	// Registry 占位符注册表
	Registry *masking.Registry
	// Scheme 占位符编码方案
	Scheme masking.TokenScheme
	// Counts 每条规则的替换次数
	Counts []masking.RuleCount
	// Collisions 原文中已存在的定界符数量
	Collisions int
	// Chunks 有序分块
	Chunks []string
}

// Replacements 替换总数
func (p *Prepared) Replacements() int {
	return p.Registry.Len()
}

// Result 翻译结果
type Result struct {
	*Prepared

	// TranslatedChunks 与 Chunks 一一对应的译文
	TranslatedChunks []string
	// Translated 拼接后、还原前的译文
	Translated string
	// Output 还原后的最终文档
	Output string
	// Report 还原诊断
	Report masking.Report
	// SkippedChunks 只含空白、未提交翻译服务的分块数
	SkippedChunks int
	// Duration 总耗时
	Duration time.Duration
}

// New 创建翻译流水线
func New(config *Config, translator Translator, opts ...Option) (*Service, error) {
	if config == nil {
		return nil, WrapError(ErrInvalidConfig, ErrCodeConfig, "config is nil")
	}
	if err := config.Validate(); err != nil {
		return nil, WrapError(err, ErrCodeConfig, "invalid configuration")
	}
	if translator == nil {
		return nil, ErrNoTranslator
	}

	chunker, err := NewParagraphChunker(config.ChunkSize)
	if err != nil {
		return nil, WrapError(err, ErrCodeConfig, "invalid configuration")
	}

	options := serviceOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// 提前编译一次规则，尽早暴露配置错误
	if _, err := masking.BuildRules(config.Rules, config.MatchTimeout); err != nil {
		return nil, WrapError(err, ErrCodeConfig, "invalid masking rules")
	}

	return &Service{
		config:     config.Clone(),
		translator: translator,
		chunker:    chunker,
		options:    options,
		logger:     logger,
	}, nil
}

// Config 获取当前配置的副本
func (s *Service) Config() *Config {
	return s.config.Clone()
}

// Prepare 遮蔽并分块
//
// 任一段落超过分块上限时立即失败，此时尚未调用翻译服务。
func (s *Service) Prepare(document string) (*Prepared, error) {
	prep := &Prepared{
		ID:       uuid.New().String(),
		Document: document,
		Masked:   document,
		Registry: masking.NewRegistry(),
		Scheme:   masking.DefaultTokenScheme(),
	}
	logger := s.logger.With(zap.String("run_id", prep.ID))

	if s.config.MaskingEnabled {
		scheme, err := masking.ResolveTokenScheme(s.config.Sentinel, document)
		if err != nil {
			return nil, WrapError(err, ErrCodeConfig, "invalid placeholder sentinel")
		}
		masker, err := masking.NewMasker(s.config.Rules,
			masking.WithTokenScheme(scheme),
			masking.WithMatchTimeout(s.config.MatchTimeout))
		if err != nil {
			return nil, WrapError(err, ErrCodeConfig, "invalid masking rules")
		}

		res, err := masker.Mask(document)
		if err != nil {
			return nil, WrapError(err, ErrCodeMask, "failed to mask document")
		}
		prep.Masked = res.Text
		prep.Registry = res.Registry
		prep.Scheme = scheme
		prep.Counts = res.Counts
		prep.Collisions = res.Collisions

		logger.Info("document masked",
			zap.Int("replacements", res.Replacements()),
			zap.String("sentinel", scheme.Sentinel()))
		if res.Collisions > 0 {
			logger.Warn("placeholder sentinel already occurs in the document, restoration may be ambiguous",
				zap.String("sentinel", scheme.Sentinel()),
				zap.Int("occurrences", res.Collisions))
		}
	}

	length := CodepointLength(prep.Masked)
	logger.Info("text prepared", zap.Int("codepoints", length), zap.Int("chunk_size", s.config.ChunkSize))
	if length > s.config.ChunkSize {
		logger.Info("text is longer than one chunk, translating in batches")
	}

	chunks, err := s.chunker.Chunk(prep.Masked)
	if err != nil {
		return nil, WrapError(err, ErrCodeChunk, "failed to chunk document")
	}
	prep.Chunks = chunks

	return prep, nil
}

// Translate 执行完整的翻译流程
//
// 任一分块翻译失败时整体失败，不返回部分结果。
func (s *Service) Translate(ctx context.Context, document string) (*Result, error) {
	startTime := time.Now()

	prep, err := s.Prepare(document)
	if err != nil {
		s.handleError(err)
		return nil, err
	}
	logger := s.logger.With(zap.String("run_id", prep.ID))

	if s.options.beforeTranslate != nil {
		s.options.beforeTranslate(prep)
	}

	result := &Result{
		Prepared:         prep,
		TranslatedChunks: make([]string, len(prep.Chunks)),
	}

	total := len(prep.Chunks)
	for i, chunk := range prep.Chunks {
		if err := ctx.Err(); err != nil {
			s.handleError(err)
			return nil, WrapError(err, ErrCodeAdapter, "translation canceled")
		}

		size := CodepointLength(chunk)
		s.reportProgress(&Progress{
			Total:     total,
			Completed: i,
			Current:   fmt.Sprintf("chunk %d/%d", i+1, total),
			Chars:     size,
			Percent:   float64(i) / float64(total) * 100,
		})

		// 只含空白的分块没有可翻译内容
		if strings.TrimSpace(chunk) == "" {
			result.TranslatedChunks[i] = chunk
			result.SkippedChunks++
			logger.Debug("skipping blank chunk", zap.Int("chunk", i+1))
			continue
		}

		logger.Info("translating chunk",
			zap.Int("chunk", i+1),
			zap.Int("total", total),
			zap.Int("codepoints", size))

		translated, err := s.translator.Translate(ctx, chunk, s.config.SourceLanguage, s.config.TargetLanguage)
		if err != nil {
			adapterErr := NewAdapterError(i+1, err)
			logger.Error("chunk translation failed", zap.Int("chunk", i+1), zap.Error(err))
			s.handleError(adapterErr)
			return nil, adapterErr
		}
		result.TranslatedChunks[i] = translated
	}

	result.Translated = strings.Join(result.TranslatedChunks, "")
	result.Output = result.Translated

	if s.config.MaskingEnabled {
		restorer := masking.NewRestorer(prep.Scheme, s.config.TrimWhitespace)
		output, report, err := restorer.Restore(result.Translated, prep.Registry)
		if err != nil {
			s.handleError(err)
			return nil, WrapError(err, ErrCodeRestore, "failed to restore placeholders")
		}
		result.Output = output
		result.Report = report

		logger.Debug("placeholders restored",
			zap.Int("iterations", report.Iterations),
			zap.Bool("converged", report.Converged))

		if !report.Clean() {
			logger.Warn("restoration mismatch",
				zap.Strings("unresolved", report.Unresolved),
				zap.Ints("missing", report.Missing),
				zap.Ints("duplicated", report.Duplicated),
				zap.Bool("converged", report.Converged))
			if s.config.StrictRestore {
				restoreErr := WrapError(report.Err(), ErrCodeRestore, "restored document does not match the masked placeholders")
				s.handleError(restoreErr)
				return nil, restoreErr
			}
		}
	} else {
		result.Report = masking.Report{Iterations: 0, Converged: true}
	}

	result.Duration = time.Since(startTime)

	s.reportProgress(&Progress{
		Total:     total,
		Completed: total,
		Current:   "completed",
		Percent:   100,
	})
	logger.Info("translation finished",
		zap.Int("chunks", total),
		zap.Int("skipped", result.SkippedChunks),
		zap.Duration("duration", result.Duration))

	if s.options.afterTranslate != nil {
		s.options.afterTranslate(result)
	}

	return result, nil
}

func (s *Service) reportProgress(p *Progress) {
	if s.options.progressCallback != nil {
		s.options.progressCallback(p)
	}
}

func (s *Service) handleError(err error) {
	if s.options.errorHandler != nil {
		s.options.errorHandler(err)
	}
}
