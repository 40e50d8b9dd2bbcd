package user

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 5

// Paginator describes a retrieved page.
// Field names follow the page object of the Users API.
type Paginator struct {
	Number           int   `json:"number"`
	Size             int   `json:"size"`
	TotalElements    int64 `json:"totalElements"`
	TotalPages       int   `json:"totalPages"`
	NumberOfElements int   `json:"numberOfElements"`
	First            bool  `json:"first"`
	Last             bool  `json:"last"`
}

// NewPaginator computes the paginator for page number of the given size.
func NewPaginator(number, size int, total int64, onPage int) Paginator {
	if size <= 0 {
		size = DefaultPageSize
	}
	totalPages := int((total + int64(size) - 1) / int64(size))
	return Paginator{
		Number:           number,
		Size:             size,
		TotalElements:    total,
		TotalPages:       totalPages,
		NumberOfElements: onPage,
		First:            number == 0,
		Last:             number >= totalPages-1,
	}
}

// HasPrevious reports whether a page before this one exists.
func (p Paginator) HasPrevious() bool {
	return p.Number > 0
}

// HasNext reports whether a page after this one exists.
func (p Paginator) HasNext() bool {
	return p.Number+1 < p.TotalPages
}

// Pages returns the page indexes 0..TotalPages-1.
func (p Paginator) Pages() []int {
	pages := make([]int, p.TotalPages)
	for i := range pages {
		pages[i] = i
	}
	return pages
}

// Page is one page of users plus its paginator.
type Page struct {
	Users     []User
	Paginator Paginator
}

// PageResponse is the wire shape of a page: users under "content",
// paginator fields inline.
type PageResponse struct {
	Content []User `json:"content"`
	Paginator
}

// Response returns p in its wire shape. Content is never null.
func (p Page) Response() PageResponse {
	content := p.Users
	if content == nil {
		content = []User{}
	}
	return PageResponse{Content: content, Paginator: p.Paginator}
}

// Page returns the page carried by r.
func (r PageResponse) Page() Page {
	return Page{Users: r.Content, Paginator: r.Paginator}
}
