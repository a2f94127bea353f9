package buildchart

import (
	"errors"
	"fmt"

	"query-orchestrator/internal/models"
)

var (
	ErrUnknownChartType = errors.New("UNKNOWN_CHART_TYPE")
	ErrInvalidChartData = errors.New("INVALID_CHART_DATA")
)

type ChartBuilder interface {
	Build(chartType models.ChartType, data models.ChartData, title string) (*models.ChartConfig, error)
}

var palettes = map[models.ChartType][]string{
	models.ChartTypeBar:      {"#4E79A7", "#F28E2B", "#E15759", "#76B7B2", "#59A14F", "#EDC948"},
	models.ChartTypeLine:     {"#1F77B4", "#FF7F0E", "#2CA02C", "#D62728"},
	models.ChartTypePie:      {"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0", "#9966FF", "#FF9F40"},
	models.ChartTypeDoughnut: {"#003F5C", "#58508D", "#BC5090", "#FF6361", "#FFA600"},
}

// PaletteBuilder builds chart configs with a fixed palette per chart type.
type PaletteBuilder struct{}

func NewPaletteBuilder() *PaletteBuilder {
	return &PaletteBuilder{}
}

func (b *PaletteBuilder) Build(chartType models.ChartType, data models.ChartData, title string) (*models.ChartConfig, error) {
	palette, ok := palettes[chartType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChartType, chartType)
	}
	if len(data.Labels) == 0 || len(data.Labels) != len(data.Values) {
		return nil, fmt.Errorf("%w: %d labels, %d values", ErrInvalidChartData, len(data.Labels), len(data.Values))
	}

	return &models.ChartConfig{
		Type:         chartType,
		Labels:       append([]string(nil), data.Labels...),
		Values:       append([]float64(nil), data.Values...),
		Title:        title,
		ColorPalette: append([]string(nil), palette...),
	}, nil
}

type sample struct {
	title string
	data  models.ChartData
}

// Canned series until charts are bound to real data.
var samples = map[models.ChartType]sample{
	models.ChartTypeBar: {
		title: "Quarterly Sales",
		data:  models.ChartData{Labels: []string{"Q1", "Q2", "Q3", "Q4"}, Values: []float64{120, 190, 150, 210}},
	},
	models.ChartTypeLine: {
		title: "Monthly Active Users",
		data:  models.ChartData{Labels: []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun"}, Values: []float64{65, 59, 80, 81, 56, 55}},
	},
	models.ChartTypePie: {
		title: "Traffic by Device",
		data:  models.ChartData{Labels: []string{"Desktop", "Mobile", "Tablet"}, Values: []float64{55, 35, 10}},
	},
	models.ChartTypeDoughnut: {
		title: "Acquisition Channels",
		data:  models.ChartData{Labels: []string{"Direct", "Referral", "Social", "Email"}, Values: []float64{40, 25, 20, 15}},
	},
}

// SampleData returns the canned series and default title for a chart type.
func SampleData(chartType models.ChartType) (models.ChartData, string, bool) {
	s, ok := samples[chartType]
	if !ok {
		return models.ChartData{}, "", false
	}
	return models.ChartData{
		Labels: append([]string(nil), s.data.Labels...),
		Values: append([]float64(nil), s.data.Values...),
	}, s.title, true
}
