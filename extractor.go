package refinery

// ContentResult holds the main content of an HTML page.
type ContentResult struct {
	// Title is the page title extracted from metadata.
	Title string

	// ContentHTML is the main content as clean HTML.
	// Boilerplate (nav, footer, sidebar, ads) has been removed.
	ContentHTML string
}

// ContentExtractor extracts main content from HTML pages, removing boilerplate.
type ContentExtractor interface {
	// ExtractContent processes raw HTML and returns the main content.
	// The title comes from page metadata (meta tags, JSON+LD, etc.).
	// The content HTML has boilerplate removed but preserves structure.
	ExtractContent(html string) (*ContentResult, error)
}

// MetadataReader reads structured hints from the head of an HTML page.
type MetadataReader interface {
	// ReadMetadata returns values keyed by refinery field name.
	// Missing values are omitted rather than returned empty.
	ReadMetadata(html string) (map[string]string, error)
}
