package application

import "time"

// RowDTO is the API representation of a shipment row.
type RowDTO struct {
	ID              string     `json:"id"`
	BillingDocument string     `json:"billingDocument"`
	SoldToName      string     `json:"soldToName"`
	ShipToName      string     `json:"shipToName"`
	Address         string     `json:"address"`
	District        string     `json:"district"`
	Province        string     `json:"province"`
	ZipCode         string     `json:"zipCode"`
	TransportBy     string     `json:"transportBy"`
	Box             int        `json:"box"`
	TransportDate   *time.Time `json:"transportDate,omitempty"`
	Round           string     `json:"round"`
	TransportNo     string     `json:"transportNo"`
	PrintDate       *time.Time `json:"printDate,omitempty"`
	PrintStatus     bool       `json:"printStatus"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// TransportBatchDTO is one transport batch after an allocation run.
type TransportBatchDTO struct {
	TransportDate string   `json:"transportDate"`
	Round         string   `json:"round"`
	District      string   `json:"district"`
	TransportNo   string   `json:"transportNo"`
	Minted        bool     `json:"minted"`
	Rows          []RowDTO `json:"rows"`
}

// PrintResultDTO summarizes a completed print job.
type PrintResultDTO struct {
	Printed    int    `json:"printed"`
	Skipped    int    `json:"skipped"`
	BulkOnly   bool   `json:"bulkOnly"`
	PrinterUID string `json:"printerUid,omitempty"`
}

// PrinterStatusDTO reports what the bridge currently sees.
type PrinterStatusDTO struct {
	ServiceRunning bool   `json:"serviceRunning"`
	PrinterFound   bool   `json:"printerFound"`
	PrinterName    string `json:"printerName,omitempty"`
	PrinterUID     string `json:"printerUid,omitempty"`
	Connection     string `json:"connection,omitempty"`
}
