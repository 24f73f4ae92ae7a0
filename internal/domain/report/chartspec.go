package report

// ChartSpec describes one chart to render from the gathered raw data.
type ChartSpec struct {
	DataKey     string   `yaml:"data_key"`   // which report feeds the chart
	Title       string   `yaml:"title"`      // chart title / image name
	Description string   `yaml:"description"`
	LabelKey    string   `yaml:"label_key"`  // record field used as label
	ValueKeys   []string `yaml:"value_keys"` // record fields plotted as series
	Kind        string   `yaml:"kind"`       // "bar" | "line" | "pie"
}

// DefaultChartSpecs returns the standard chart set for the analytics report.
func DefaultChartSpecs() []ChartSpec {
	return []ChartSpec{
		{
			DataKey:     "Top Pages",
			Title:       "Top_Pages",
			Description: "Chart for top pages",
			LabelKey:    "pagePath",
			ValueKeys:   []string{"screenPageViews"},
			Kind:        "pie",
		},
		{
			DataKey:     "Source Engagement",
			Title:       "Source_Engagement",
			Description: "Chart for top engagement",
			LabelKey:    "sessionSource",
			ValueKeys:   []string{"activeUsers", "averageSessionDuration"},
			Kind:        "line",
		},
		{
			DataKey:     "Country Report",
			Title:       "Source_Country",
			Description: "Chart for top country",
			LabelKey:    "country",
			ValueKeys:   []string{"activeUsers"},
			Kind:        "pie",
		},
	}
}
