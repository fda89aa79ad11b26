package translation

import (
	"context"
)

// Translator 翻译适配器接口
//
// 每次调用传入一个分块，返回一个分块；返回文本中占位符周围的空白不保证与输入一致。
// 只含空白的分块不会交给 Translator，Service 直接原样保留，并计入 Result.SkippedChunks。
// 因此调用次数等于非空白分块数，可能少于分块总数。
// 重试、退避等策略由实现自行负责。
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// TranslatorFunc 函数形式的 Translator
type TranslatorFunc func(ctx context.Context, text, sourceLang, targetLang string) (string, error)

// Translate 实现 Translator 接口
func (f TranslatorFunc) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return f(ctx, text, sourceLang, targetLang)
}

// Progress 翻译进度
type Progress struct {
	Total     int     // 分块总数
	Completed int     // 已完成分块数
	Current   string  // 当前状态描述
	Chars     int     // 当前分块码点数
	Percent   float64 // 完成百分比
}

// ProgressFunc 进度回调
type ProgressFunc func(*Progress)
