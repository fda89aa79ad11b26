package translation

import "go.uber.org/zap"

// Option 服务配置选项函数
type Option func(*serviceOptions)

// serviceOptions 服务内部选项
type serviceOptions struct {
	progressCallback ProgressFunc
	errorHandler     func(error)
	beforeTranslate  func(*Prepared)
	afterTranslate   func(*Result)
	logger           *zap.Logger
}

// WithProgressCallback 设置进度回调函数
func WithProgressCallback(callback ProgressFunc) Option {
	return func(o *serviceOptions) {
		o.progressCallback = callback
	}
}

// WithErrorHandler 设置错误处理函数
func WithErrorHandler(handler func(error)) Option {
	return func(o *serviceOptions) {
		o.errorHandler = handler
	}
}

// WithBeforeTranslate 设置遮蔽、分块完成后、调用翻译服务前的回调
func WithBeforeTranslate(hook func(*Prepared)) Option {
	return func(o *serviceOptions) {
		o.beforeTranslate = hook
	}
}

// WithAfterTranslate 设置翻译后回调
func WithAfterTranslate(hook func(*Result)) Option {
	return func(o *serviceOptions) {
		o.afterTranslate = hook
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}
