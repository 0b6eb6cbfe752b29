package dspace

// Defaults for the University of Edinburgh exam papers archive.
const (
	// DefaultBaseURL is the archive root, without the /server suffix.
	DefaultBaseURL = "https://exampapers.ed.ac.uk"

	// DefaultSchool is the author facet that scopes the search.
	DefaultSchool = "Informatics, School of"

	// DefaultPageSize is the discover search page size.
	DefaultPageSize = 100
)

// Config holds the parsed configuration for a DSpace source.
type Config struct {
	// BaseURL is the archive root URL.
	BaseURL string

	// School is the author facet value to filter by.
	School string

	// PageSize is the number of items per discover page.
	PageSize int

	// AcademicYear optionally restricts results to papers issued in
	// one year, e.g. "2023". Empty means all years.
	AcademicYear string

	// CodePrefix optionally restricts results to course codes with
	// this prefix, e.g. "INFR". The discover API has no facet for it,
	// so filtering happens after parsing. Empty means all codes.
	CodePrefix string
}

// DefaultConfig returns a config for the Edinburgh archive.
func DefaultConfig() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		School:   DefaultSchool,
		PageSize: DefaultPageSize,
	}
}

// withDefaults fills zero-valued fields.
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.School == "" {
		c.School = DefaultSchool
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	return c
}
