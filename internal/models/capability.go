package models

// RetrievalOutput is the partial result of the Retrieval capability.
type RetrievalOutput struct {
	Answer     string     `json:"answer"`
	FileIDs    []string   `json:"fileIds"`
	References []Document `json:"references"`
}

// VisualizationOutput is the partial result of the Visualization capability.
type VisualizationOutput struct {
	Success     bool         `json:"success"`
	ChartConfig *ChartConfig `json:"chartConfig,omitempty"`
	Error       string       `json:"error,omitempty"`
}

type DirectOutput struct {
	Answer string `json:"answer"`
}
