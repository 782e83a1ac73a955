package controller

// mode is either browsing{page} or searching{query}. Keeping the two apart
// means a page number can never drive a search request.
type mode interface {
	withQuery(query string) mode
}

type browsing struct {
	page int
}

// searching remembers the browse page so clearing the search resumes it.
type searching struct {
	query      string
	resumePage int
}

func (b browsing) withQuery(query string) mode {
	if query == "" {
		return b
	}
	return searching{query: query, resumePage: b.page}
}

func (s searching) withQuery(query string) mode {
	if query == "" {
		return browsing{page: s.resumePage}
	}
	return searching{query: query, resumePage: s.resumePage}
}
