// Package progress 在终端显示逐块翻译进度
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"

	"github.com/nerdneilsfield/latex-translator/pkg/translation"
)

// Reporter 用 go-pretty 进度条显示分块数和码点数
//
// Update 可直接作为 translation.WithProgressCallback 的回调。
type Reporter struct {
	mu       sync.Mutex
	writer   progress.Writer
	chunks   *progress.Tracker
	chars    *progress.Tracker
	pending  int
	started  bool
	finished chan struct{}
}

// NewReporter 创建输出到 out 的进度显示器
func NewReporter(out io.Writer) *Reporter {
	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Options.PercentFormat = "%4.1f%%"
	pw.SetUpdateFrequency(200 * time.Millisecond)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(40)
	pw.SetMessageLength(16)
	pw.SetNumTrackersExpected(2)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Percentage = true
	pw.Style().Visibility.Value = true

	return &Reporter{
		writer:   pw,
		finished: make(chan struct{}),
	}
}

// Start 开始显示，totalChars 为遮蔽后文本的码点数
func (r *Reporter) Start(totalChunks, totalChars int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	r.chunks = &progress.Tracker{Message: "chunks", Total: int64(totalChunks), Units: progress.UnitsDefault}
	r.chars = &progress.Tracker{Message: "codepoints", Total: int64(totalChars), Units: progress.UnitsDefault}
	r.writer.AppendTracker(r.chunks)
	r.writer.AppendTracker(r.chars)

	go func() {
		defer close(r.finished)
		r.writer.Render()
	}()
}

// Update 处理流水线的进度回调
//
// 每个分块开始时调用一次，Chars 为该分块的码点数，完成时计入字符进度。
func (r *Reporter) Update(p *translation.Progress) {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		r.Start(p.Total, 0)
		r.mu.Lock()
	}
	defer r.mu.Unlock()

	r.chars.Increment(int64(r.pending))
	r.pending = p.Chars
	r.chunks.SetValue(int64(p.Completed))
	r.chunks.UpdateMessage(fmt.Sprintf("chunk %d/%d", min(p.Completed+1, p.Total), p.Total))

	if p.Total > 0 && p.Completed >= p.Total {
		r.chunks.MarkAsDone()
		r.chars.MarkAsDone()
	}
}

// Stop 停止渲染并等待最后一帧输出完毕
func (r *Reporter) Stop() {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return
	}

	// Render 在独立 goroutine 中启动，未进入渲染循环前 Stop 不生效
	for !r.writer.IsRenderInProgress() {
		select {
		case <-r.finished:
			return
		case <-time.After(5 * time.Millisecond):
		}
	}
	r.writer.Stop()
	<-r.finished
}
