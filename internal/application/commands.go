package application

import "time"

// RowInput carries the shipment row fields accepted from callers.
type RowInput struct {
	BillingDocument string     `json:"billingDocument" binding:"required"`
	SoldToName      string     `json:"soldToName"`
	ShipToName      string     `json:"shipToName"`
	Address         string     `json:"address"`
	District        string     `json:"district"`
	Province        string     `json:"province"`
	ZipCode         string     `json:"zipCode"`
	TransportBy     string     `json:"transportBy"`
	Box             int        `json:"box"`
	TransportDate   *time.Time `json:"transportDate"`
	Round           string     `json:"round"`
	TransportNo     string     `json:"transportNo"`
}

// CreateRowCommand creates a new shipment row.
type CreateRowCommand struct {
	Row RowInput `json:"row" binding:"required"`
}

// UpdateRowCommand updates an existing shipment row by billing document.
type UpdateRowCommand struct {
	BillingDocument string   `json:"-"`
	Row             RowInput `json:"row" binding:"required"`
}

// AllocateTransportNumbersCommand runs an allocation over the date window.
type AllocateTransportNumbersCommand struct {
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
}

// PrintLabelItem pairs a row with its rendered label sheets, one base64 PNG
// per box.
type PrintLabelItem struct {
	Row    RowInput `json:"row" binding:"required"`
	Sheets []string `json:"sheets"`
}

// PrintLabelsCommand submits a print job. Zero-valued settings fall back to
// the printer defaults.
type PrintLabelsCommand struct {
	Items         []PrintLabelItem `json:"items" binding:"required"`
	DPI           int              `json:"dpi"`
	Darkness      int              `json:"darkness"`
	LabelWidthCm  float64          `json:"labelWidthCm"`
	LabelHeightCm float64          `json:"labelHeightCm"`
}

// SearchRowsQuery selects rows by transport date window.
type SearchRowsQuery struct {
	StartDate   time.Time
	EndDate     time.Time
	ExcludeBulk bool
}

// GetRowQuery fetches a single row.
type GetRowQuery struct {
	BillingDocument string
}
