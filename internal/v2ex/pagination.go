package v2ex

// moreSignal decides whether more reply pages follow the one just fetched.
// Two variants exist: the API's explicit page count, and a short-page
// inference for responses that omit pagination metadata.
type moreSignal interface {
	HasMore(fetched, pageNum int) bool
}

// explicitSignal trusts the pagination envelope's total page count.
type explicitSignal struct {
	totalPages int
}

func (s explicitSignal) HasMore(_, pageNum int) bool {
	return pageNum < s.totalPages
}

// inferredSignal treats a page shorter than the page size as the last one.
type inferredSignal struct {
	pageSize int
}

func (s inferredSignal) HasMore(fetched, _ int) bool {
	return fetched >= s.pageSize && fetched > 0
}

// signalFor picks the explicit variant when pagination metadata is present
// and plausible, otherwise falls back to short-page inference.
func signalFor(p *wirePagination, defaultPageSize int) moreSignal {
	if p != nil && p.Pages > 0 {
		return explicitSignal{totalPages: p.Pages}
	}
	return inferredSignal{pageSize: defaultPageSize}
}
