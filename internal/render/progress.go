package render

import (
	"io"
	"sync"

	"github.com/pterm/pterm"
)

// Provisioning 显示本地能力（语言检测、本地翻译）的下载进度，
// 每个能力一个进度条，完成后自动结束
type Provisioning struct {
	mu     sync.Mutex
	writer io.Writer
	title  func(capability string) string
	bars   map[string]*pterm.ProgressbarPrinter
}

// NewProvisioning 创建下载进度显示，title 返回能力对应的本地化标题
func NewProvisioning(w io.Writer, title func(capability string) string) *Provisioning {
	if title == nil {
		title = func(capability string) string { return capability }
	}
	return &Provisioning{
		writer: w,
		title:  title,
		bars:   make(map[string]*pterm.ProgressbarPrinter),
	}
}

// Update 更新能力的进度，loaded 取值 0..1
func (p *Provisioning) Update(capability string, loaded float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := int(loaded * 100)
	if current < 0 {
		current = 0
	}
	if current > 100 {
		current = 100
	}

	bar, ok := p.bars[capability]
	if !ok {
		if current >= 100 {
			return
		}
		started, err := pterm.DefaultProgressbar.
			WithTotal(100).
			WithTitle(p.title(capability)).
			WithWriter(p.writer).
			WithRemoveWhenDone(false).
			Start()
		if err != nil {
			return
		}
		bar = started
		p.bars[capability] = bar
	}

	if delta := current - bar.Current; delta > 0 {
		bar.Add(delta)
	}
	if current >= 100 {
		_, _ = bar.Stop()
		delete(p.bars, capability)
	}
}

// Stop 结束所有未完成的进度条
func (p *Provisioning) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for capability, bar := range p.bars {
		_, _ = bar.Stop()
		delete(p.bars, capability)
	}
}

// Active 返回正在下载的能力数量
func (p *Provisioning) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bars)
}
