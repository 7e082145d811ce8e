package models

// URLAnalysisRequest asks for the analysis of remote images
type URLAnalysisRequest struct {
	URLs          []string `json:"urls" binding:"required,min=1,dive,required,url"`
	MinPercentage *float64 `json:"min_percentage,omitempty"`
	IncludeImage  bool     `json:"include_image,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

// BatchResponse carries per-image results in request order
type BatchResponse struct {
	Results       []ImageResult `json:"results"`
	MinPercentage float64       `json:"min_percentage"`
	PaletteImage  string        `json:"palette_image,omitempty"`
	Warnings      []string      `json:"warnings,omitempty"`
}

// PaletteResponse lists the reference colors with their Color Numbers
type PaletteResponse struct {
	Entries      []PaletteEntry `json:"entries"`
	PaletteImage string         `json:"palette_image,omitempty"`
	Warnings     []string       `json:"warnings,omitempty"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Engine  string `json:"engine"`
	Time    string `json:"time"`
}
