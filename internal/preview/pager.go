package preview

// Pager walks the visible steps of a preview one page at a time.
type Pager struct {
	count int
	index int
}

// NewPager returns a pager over count pages, positioned on the first.
func NewPager(count int) *Pager {
	if count < 0 {
		count = 0
	}
	return &Pager{count: count}
}

// Count returns the number of pages.
func (p *Pager) Count() int { return p.count }

// Index returns the current page.
func (p *Pager) Index() int { return p.index }

// Go moves to page i, clamped to [0, count-1].
func (p *Pager) Go(i int) int {
	p.index = clampPage(i, p.count)
	return p.index
}

// Next advances one page, staying on the last.
func (p *Pager) Next() int { return p.Go(p.index + 1) }

// Previous goes back one page, staying on the first.
func (p *Pager) Previous() int { return p.Go(p.index - 1) }

// HasNext reports whether Next would move.
func (p *Pager) HasNext() bool { return p.index < p.count-1 }

// HasPrevious reports whether Previous would move.
func (p *Pager) HasPrevious() bool { return p.index > 0 }

func clampPage(i, count int) int {
	if i > count-1 {
		i = count - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
