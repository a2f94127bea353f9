package models

type Tool string

const (
	ToolRetrieval     Tool = "Retrieval"
	ToolVisualization Tool = "Visualization"
	ToolDirect        Tool = "Direct"
	ToolError         Tool = "Error"
)

type ChartConfig struct {
	Type         ChartType `json:"type"`
	Labels       []string  `json:"labels"`
	Values       []float64 `json:"values"`
	Title        string    `json:"title"`
	ColorPalette []string  `json:"colorPalette"`
}

// ChartData is the label/value series a chart is built from.
type ChartData struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type Response struct {
	Answer      string       `json:"answer"`
	FileIDs     []string     `json:"fileIds"`
	References  []Document   `json:"references"`
	ChartConfig *ChartConfig `json:"chartConfig"`
	ToolsUsed   []Tool       `json:"toolsUsed"`
}

// NewResponse returns a Response with non-nil slices so they encode as [].
func NewResponse() *Response {
	return &Response{
		FileIDs:    []string{},
		References: []Document{},
		ToolsUsed:  []Tool{},
	}
}

func (r *Response) Used(tool Tool) bool {
	for _, t := range r.ToolsUsed {
		if t == tool {
			return true
		}
	}
	return false
}

// Message is one entry of a language-model prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)
