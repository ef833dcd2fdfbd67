package application

import (
	"strings"

	"github.com/opsconsole/shipping-service/internal/domain"
)

func toRowDTO(row *domain.ShipmentRow) RowDTO {
	return RowDTO{
		ID:              row.ID,
		BillingDocument: row.BillingDocument,
		SoldToName:      row.SoldToName,
		ShipToName:      row.ShipToName,
		Address:         row.Address,
		District:        row.District,
		Province:        row.Province,
		ZipCode:         row.ZipCode,
		TransportBy:     row.TransportBy,
		Box:             row.Box,
		TransportDate:   row.TransportDate,
		Round:           row.Round,
		TransportNo:     row.TransportNo,
		PrintDate:       row.PrintDate,
		PrintStatus:     row.PrintStatus,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func toRowDTOs(rows []*domain.ShipmentRow) []RowDTO {
	dtos := make([]RowDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toRowDTO(row))
	}
	return dtos
}

func toBatchDTO(batch *domain.Batch) TransportBatchDTO {
	dto := TransportBatchDTO{
		TransportDate: batch.Key.TransportDate,
		Round:         batch.Key.Round,
		District:      batch.Key.District,
		Rows:          toRowDTOs(batch.Rows),
	}
	if len(batch.Rows) > 0 {
		dto.TransportNo = batch.Rows[0].TransportNo
	}
	return dto
}

// rowFromInput builds a domain row from caller input. Round defaults are
// applied by the domain when blank.
func rowFromInput(in RowInput) *domain.ShipmentRow {
	return &domain.ShipmentRow{
		BillingDocument: strings.TrimSpace(in.BillingDocument),
		SoldToName:      in.SoldToName,
		ShipToName:      in.ShipToName,
		Address:         in.Address,
		District:        in.District,
		Province:        in.Province,
		ZipCode:         in.ZipCode,
		TransportBy:     in.TransportBy,
		Box:             in.Box,
		TransportDate:   in.TransportDate,
		Round:           in.Round,
		TransportNo:     in.TransportNo,
	}
}

// applyInput copies caller-editable fields onto an existing row, leaving
// identity, print state and audit fields intact.
func applyInput(row *domain.ShipmentRow, in RowInput) {
	row.SoldToName = in.SoldToName
	row.ShipToName = in.ShipToName
	row.Address = in.Address
	row.District = in.District
	row.Province = in.Province
	row.ZipCode = in.ZipCode
	row.TransportBy = in.TransportBy
	row.Box = in.Box
	row.TransportDate = in.TransportDate
	row.Round = in.Round
	if in.TransportNo != "" {
		row.TransportNo = in.TransportNo
	}
}
