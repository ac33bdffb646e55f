package proposal

import "sync"

// Progress is the percent-complete of one export run. It is safe for
// concurrent use. The observer, when set, is called with every change while
// the lock is held, so it must not call back into Progress.
type Progress struct {
	mu       sync.Mutex
	percent  int
	observer func(int)
}

func NewProgress(observer func(int)) *Progress {
	return &Progress{observer: observer}
}

// Reset sets the percent back to 0 at the start of a run.
func (p *Progress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set(0)
}

// Report records a renderer's progress. Values are clamped to [0,100] and
// a value lower than the current one is ignored.
func (p *Progress) Report(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if percent <= p.percent {
		return
	}
	p.set(percent)
}

// Complete forces 100, whether the run succeeded or not.
func (p *Progress) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.percent == 100 {
		return
	}
	p.set(100)
}

func (p *Progress) Percent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percent
}

func (p *Progress) set(percent int) {
	p.percent = percent
	if p.observer != nil {
		p.observer(percent)
	}
}
