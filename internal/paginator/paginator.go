// Package paginator slices a catalog snapshot into fixed-size pages.
package paginator

import "github.com/vasiliy-maslov/table-order-bot/internal/catalog"

const (
	PageSize = 9
	RowSize  = 3
)

// Move is a navigation token. Anything other than MoveNext and MovePrev is ignored.
type Move string

const (
	MoveNext Move = "next"
	MovePrev Move = "prev"
)

// Paginator keeps the current page of an items snapshot.
// The zero value is not usable, use New.
type Paginator struct {
	items   []catalog.Item
	current int
}

func New(items []catalog.Item) *Paginator {
	snapshot := make([]catalog.Item, len(items))
	copy(snapshot, items)
	return &Paginator{items: snapshot, current: 1}
}

func (p *Paginator) Current() int {
	return p.current
}

func (p *Paginator) TotalPages() int {
	pages := (len(p.items) + PageSize - 1) / PageSize
	return max(1, pages)
}

func (p *Paginator) Len() int {
	return len(p.items)
}

// Page returns the items of the current page.
func (p *Paginator) Page() []catalog.Item {
	from := (p.current - 1) * PageSize
	to := min(p.current*PageSize, len(p.items))
	if from >= to {
		return nil
	}
	return p.items[from:to]
}

// Rows returns the current page laid out in rows of RowSize.
func (p *Paginator) Rows() [][]catalog.Item {
	page := p.Page()
	rows := make([][]catalog.Item, 0, (len(page)+RowSize-1)/RowSize)
	for start := 0; start < len(page); start += RowSize {
		rows = append(rows, page[start:min(start+RowSize, len(page))])
	}
	return rows
}

// Next reports whether the page changed.
func (p *Paginator) Next() bool {
	if p.current >= p.TotalPages() {
		return false
	}
	p.current++
	return true
}

// Prev reports whether the page changed.
func (p *Paginator) Prev() bool {
	if p.current <= 1 {
		return false
	}
	p.current--
	return true
}

func (p *Paginator) Apply(m Move) {
	switch m {
	case MoveNext:
		p.Next()
	case MovePrev:
		p.Prev()
	}
}
