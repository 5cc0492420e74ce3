package inference

import "encoding/json"

// ImageRef points the model at an uploaded design image.
type ImageRef struct {
	URL        string `json:"url"`
	StorageKey string `json:"storage_key"`
}

// BOMRequest is the generate-bom call body.
type BOMRequest struct {
	Images      []ImageRef `json:"images"`
	Description string     `json:"description,omitempty"`
	YieldBuffer float64    `json:"yield_buffer"`
}

// BOMItemResult is one material line as returned by the model. Quantity is
// raw JSON because the model returns either a number or a string.
type BOMItemResult struct {
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Quantity       json.RawMessage `json:"quantity"`
	Unit           string          `json:"unit"`
	Specifications json.RawMessage `json:"specifications,omitempty"`
	Source         string          `json:"source,omitempty"`
	UnitCost       *float64        `json:"unitCost,omitempty"`
	TotalCost      *float64        `json:"totalCost,omitempty"`
}

// BOMCategoryResult groups items under a free-text category.
type BOMCategoryResult struct {
	Category string          `json:"category"`
	Items    []BOMItemResult `json:"items"`
}

// BOMResult is the generate-bom response.
type BOMResult struct {
	BOM struct {
		Categories  []BOMCategoryResult `json:"categories"`
		TotalCost   *float64            `json:"total_cost,omitempty"`
		YieldBuffer float64             `json:"yield_buffer"`
	} `json:"bom"`
	Confidence     float64 `json:"confidence"`
	ProcessingTime float64 `json:"processing_time"`
}

// ForecastRequest is the generate-market-forecast call body.
type ForecastRequest struct {
	ProductName        string   `json:"product_name"`
	ProductDescription string   `json:"product_description,omitempty"`
	BOMMaterials       []string `json:"bom_materials"`
	TargetMarkets      []string `json:"target_markets,omitempty"`
}

// ForecastMarket is one per-market row in the forecast response.
type ForecastMarket struct {
	Country       string  `json:"country"`
	City          string  `json:"city,omitempty"`
	Demand        float64 `json:"demand"`
	Competition   float64 `json:"competition"`
	Price         float64 `json:"price"`
	Growth        float64 `json:"growth"`
	MarketSize    string  `json:"marketSize,omitempty"`
	AvgPrice      string  `json:"avgPrice,omitempty"`
	GrowthPercent string  `json:"growthPercent,omitempty"`
	Trend         string  `json:"trend,omitempty"`
}

// ForecastResult is the normalized generate-market-forecast response.
type ForecastResult struct {
	Forecasts []ForecastMarket `json:"forecasts"`
}

// PriceForecastRequest is the generate-price-forecast call body.
type PriceForecastRequest struct {
	MaterialName string `json:"material_name"`
	MaterialType string `json:"material_type"`
	Unit         string `json:"unit"`
	Weeks        int    `json:"weeks,omitempty"`
}

// PricePoint is a single weekly price projection.
type PricePoint struct {
	Week  int     `json:"week"`
	Price float64 `json:"price"`
}

// PriceForecastResult is the generate-price-forecast response.
type PriceForecastResult struct {
	Forecasts []PricePoint `json:"forecasts"`
}

// SupplierRequest is the generate-suppliers call body.
type SupplierRequest struct {
	MaterialName       string   `json:"material_name"`
	MaterialType       string   `json:"material_type"`
	Quantity           float64  `json:"quantity"`
	Unit               string   `json:"unit"`
	PreferredCountries []string `json:"preferred_countries,omitempty"`
}

// SupplierCandidate is one supplier suggestion from the model.
type SupplierCandidate struct {
	Name           string    `json:"name"`
	Country        string    `json:"country"`
	City           string    `json:"city"`
	Coordinates    []float64 `json:"coordinates"`
	UnitPrice      float64   `json:"unitPrice"`
	MOQ            string    `json:"moq"`
	LeadTime       string    `json:"leadTime"`
	Rating         float64   `json:"rating"`
	Reliability    float64   `json:"reliability"`
	Certifications []string  `json:"certifications"`
	Website        string    `json:"website,omitempty"`
	ContactEmail   string    `json:"contactEmail,omitempty"`
}

// SupplierResult is the generate-suppliers response.
type SupplierResult struct {
	Suppliers []SupplierCandidate `json:"suppliers"`
}
