package service

import (
	"bytes"
	"context"
	"fmt"

	"catastro-backend/models"
	"catastro-backend/repository"

	"github.com/xuri/excelize/v2"
)

// ExportColumn pairs a header with a value extractor, so the engine hands
// the renderer rows plus a column spec and never formats cells itself.
type ExportColumn struct {
	Header string
	Value  func(p *models.Petition) interface{}
}

// DefaultPetitionColumns is the column spec used by the petitions export
var DefaultPetitionColumns = []ExportColumn{
	{Header: "Radicado", Value: func(p *models.Petition) interface{} { return p.TrackingCode }},
	{Header: "Solicitante", Value: func(p *models.Petition) interface{} { return p.RequesterName }},
	{Header: "Tramite", Value: func(p *models.Petition) interface{} { return string(p.RequestType) }},
	{Header: "Municipio", Value: func(p *models.Petition) interface{} { return p.Municipality }},
	{Header: "Estado", Value: func(p *models.Petition) interface{} { return string(p.State) }},
	{Header: "Fecha", Value: func(p *models.Petition) interface{} { return p.CreatedAt.Format("2006-01-02") }},
}

// ExportService renders petition listings to a spreadsheet
type ExportService struct {
	petitions PetitionStore
}

// NewExportService creates a new export service
func NewExportService(petitions PetitionStore) *ExportService {
	return &ExportService{petitions: petitions}
}

// ExportPetitions writes the petitions matching the filter as an xlsx
// workbook. Restricted to coordinators and administrators.
func (s *ExportService) ExportPetitions(ctx context.Context, actor models.Actor, state *models.PetitionState, municipality *string, columns []ExportColumn) ([]byte, error) {
	if !Allowed(actor, ActionExportPetitions) {
		return nil, ErrForbidden
	}
	if len(columns) == 0 {
		columns = DefaultPetitionColumns
	}

	petitions, err := s.petitions.List(ctx, repository.PetitionFilter{State: state, Municipality: municipality}, 0, 0)
	if err != nil {
		return nil, translateStoreError(err)
	}

	workbook := excelize.NewFile()
	defer workbook.Close()

	sheet := workbook.GetSheetName(0)

	headers := make([]interface{}, len(columns))
	for i, column := range columns {
		headers[i] = column.Header
	}
	if err := workbook.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, err
	}

	for i, petition := range petitions {
		row := make([]interface{}, len(columns))
		for j, column := range columns {
			row[j] = column.Value(petition)
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := workbook.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := workbook.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
