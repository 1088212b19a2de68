package domain

// Output column names, in output order
const (
	ColumnPage             = "Page"
	ColumnKeywords         = "Mots clés"
	ColumnKeywordCount     = "Total Mots clés"
	ColumnClicks           = "Clics"
	ColumnTotalClicks      = "Totaux Clics"
	ColumnImpressions      = "Impressions"
	ColumnTotalImpressions = "Totaux Impressions"
)

// OutputColumns is the fixed consolidated schema
var OutputColumns = []string{
	ColumnPage,
	ColumnKeywords,
	ColumnKeywordCount,
	ColumnClicks,
	ColumnTotalClicks,
	ColumnImpressions,
	ColumnTotalImpressions,
}

// ListSeparator joins the entries of a multi-valued cell
const ListSeparator = "\n"

// Table is an untyped tabular dataset as read from a CSV or Excel export
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// InputRow is one resolved search-analytics record
type InputRow struct {
	Page        string  `json:"page"`
	Query       string  `json:"query"`
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
}

// PageAggregate accumulates the keyword metrics of a single page.
// TotalClicks and TotalImpressions always equal the sums of the per-keyword maps.
type PageAggregate struct {
	Page                 string             `json:"page"`
	Keywords             []string           `json:"keywords"`
	ClicksByKeyword      map[string]float64 `json:"clicks_by_keyword"`
	ImpressionsByKeyword map[string]float64 `json:"impressions_by_keyword"`
	TotalClicks          float64            `json:"total_clicks"`
	TotalImpressions     float64            `json:"total_impressions"`
}

// NewPageAggregate creates an empty aggregate for page
func NewPageAggregate(page string) *PageAggregate {
	return &PageAggregate{
		Page:                 page,
		ClicksByKeyword:      make(map[string]float64),
		ImpressionsByKeyword: make(map[string]float64),
	}
}

// Add records one row's metrics for keyword
func (p *PageAggregate) Add(keyword string, clicks, impressions float64) {
	if _, seen := p.ClicksByKeyword[keyword]; !seen {
		p.Keywords = append(p.Keywords, keyword)
	}
	p.ClicksByKeyword[keyword] += clicks
	p.ImpressionsByKeyword[keyword] += impressions
	p.TotalClicks += clicks
	p.TotalImpressions += impressions
}

// OutputRow is one consolidated page row
type OutputRow struct {
	Page             string  `json:"page"`
	Keywords         string  `json:"keywords"`
	KeywordCount     int     `json:"keyword_count"`
	Clicks           string  `json:"clicks"`
	TotalClicks      float64 `json:"total_clicks"`
	Impressions      string  `json:"impressions"`
	TotalImpressions float64 `json:"total_impressions"`

	// ListedKeywords is the number of keywords that passed the click threshold
	ListedKeywords int `json:"listed_keywords"`
}

// Stats summarises a consolidation run
type Stats struct {
	Pages            int     `json:"pages"`
	KeywordsBefore   int     `json:"keywords_before"`
	KeywordsAfter    int     `json:"keywords_after"`
	TotalClicks      float64 `json:"total_clicks"`
	TotalImpressions float64 `json:"total_impressions"`
	MinClicks        int     `json:"min_clicks"`
}

// OutputFormat is the file format of a consolidated export
type OutputFormat string

const (
	OutputFormatCSV   OutputFormat = "csv"
	OutputFormatExcel OutputFormat = "xlsx"
)

// Extension returns the file extension including the dot
func (f OutputFormat) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type of the format
func (f OutputFormat) ContentType() string {
	if f == OutputFormatCSV {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
