// Package fixtures builds a coherent Recaudo input set, as tables or as
// workbook and CSV files, for tests and for the sample command.
package fixtures

import (
	"bytes"
	"encoding/csv"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"

	"recaudo-reconciliation-service/internal/models"
	"recaudo-reconciliation-service/internal/table"
)

// Input names, matching the names the reconciler asks its collector for
const (
	Settlement = "settlement"
	Orders     = "orders"
	Provision  = "provision"
	Ledger     = "ledger"
	Cartera    = "cartera"
)

// Files maps each input to the file name WriteScenario gives it
var Files = map[string]string{
	Settlement: "liquidacion.xlsx",
	Orders:     "ordenes.xlsx",
	Provision:  "aprovisionamiento.csv",
	Ledger:     "siigo.xlsx",
	Cartera:    "cartera.xlsx",
}

// Identities with a known outcome in the scenario
const (
	// ExactIdentity is paid and booked for the same amount
	ExactIdentity = "1010"
	// ShortIdentity is booked 5000 below what was paid
	ShortIdentity = "1020"
	// SettlementOnlyIdentity is paid but never booked
	SettlementOnlyIdentity = "1040"
	// LedgerOnlyIdentity is booked without a matching payment
	LedgerOnlyIdentity = "1090"
	// UnreferencedDescription is a ledger line no extractor understands
	UnreferencedDescription = "CONSIGNACION SIN SOPORTE"
)

// SettlementRows returns the settlement sheet, header first
func SettlementRows() [][]string {
	return [][]string{
		models.SettlementColumns,
		{"5001", "PRJ-01", "2024-03-04", "EFECTIVO", "PS-101", "120000", "2400", "456", "122856", "2024"},
		{"5002", "PRJ-01", "05/03/2024", "EFECTIVO", "PS-102", "80000", "1600", "304", "81904", "2024"},
		{"5003", "PRJ-02", "2024-03-06", "EFECTIVO", "PS-101", "45000", "900", "171", "46071", "2024"},
		{"5004", "PRJ-02", "07/03/2024", "EFECTIVO", "PS-103", "60000", "1200", "228", "61428", "2024"},
		{"5005", "PRJ-03", "2024-03-08", "EFECTIVO", "PS-104", "30000", "600", "114", "30714", "2024"},
	}
}

// OrderRows returns the order sheet, header first
func OrderRows() [][]string {
	return [][]string{
		models.OrderColumns,
		{"5001", "7001", "José", "Núñez", "", "FE 9001"},
		{"5002", "7002", "María", "Pérez", "Gómez", "FE 9002"},
		{"5003", "7003", "Andrés", "Díaz", "López", "9003"},
		{"5004", "7004", "Lucía", "Martínez", "", "9004"},
		{"5005", "7005", "Óscar", "Rodríguez", "Peña", "9005"},
	}
}

// ProvisionRows returns the provision sheet, header first
func ProvisionRows() [][]string {
	return [][]string{
		models.ProvisionColumns,
		{"7001", ExactIdentity, "BOGOTA"},
		{"7002", ShortIdentity, "CALI"},
		{"7003", "1030", "MEDELLIN"},
		{"7004", SettlementOnlyIdentity, "BARRANQUILLA"},
		{"7005", "1050", "PASTO"},
	}
}

// LedgerRows returns the accounting export, header first
func LedgerRows() [][]string {
	return [][]string{
		models.LedgerColumns,
		{"11050501", "CAJA GENERAL", "R-1", "1", "2024-03-10", ExactIdentity, "JOSE NUNEZ", "FV-2-9001 1010", "100", "120000"},
		{"11050501", "CAJA GENERAL", "R-1", "2", "2024-03-10", ShortIdentity, "MARIA PEREZ GOMEZ", "FV-2-FE 9002 1020", "100", "75000"},
		{"11050501", "CAJA GENERAL", "R-1", "3", "2024-03-10", "1030", "ANDRES DIAZ LOPEZ", "FV-2- 9003 1030", "100", "45000"},
		{"11050501", "CAJA GENERAL", "R-1", "4", "2024-03-11", "1050", "OSCAR RODRIGUEZ PENA", "FV-2-9005 1050", "100", "30000"},
		{"11050501", "CAJA GENERAL", "R-1", "5", "2024-03-11", LedgerOnlyIdentity, "PEDRO ROJAS", "FV-2-9010 1090", "100", "15000"},
		{"11050501", "CAJA GENERAL", "R-1", "6", "2024-03-12", "", "", UnreferencedDescription, "100", "5000"},
	}
}

// CarteraRows returns a portfolio export with extra columns and blanks
func CarteraRows() [][]string {
	return [][]string{
		{"NUMERO_ORDEN", "IDENTIFICACION", "NOMBRES", "APELLIDO1", "APELLIDO2", "FACTURA", "TELEFONO"},
		{"5001", "7001", "José", "Núñez", "", "FE 9001", "3001234567"},
		{"5002", "7002", "María", "Pérez", "Gómez", "", "3007654321"},
		{"5003", "", "Andrés", "Díaz", "López", "9003", ""},
	}
}

// Scenario returns every Recaudo input as a table
func Scenario() map[string]*table.Table {
	return map[string]*table.Table{
		Settlement: table.FromRows(Settlement, SettlementRows()),
		Orders:     table.FromRows(Orders, OrderRows()),
		Provision:  table.FromRows(Provision, ProvisionRows()),
		Ledger:     table.FromRows(Ledger, LedgerRows()),
	}
}

// XLSX renders rows into a single-sheet workbook. Amount columns are
// written as numbers, the way accounting exports carry them.
func XLSX(sheet string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}
	for i, row := range rows {
		values := make([]interface{}, len(row))
		for c, cell := range row {
			values[c] = cell
			if i == 0 || c >= len(header) || !models.IsAmountColumn(header[c]) {
				continue
			}
			if n, err := cast.ToFloat64E(cell); err == nil {
				values[c] = n
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CSV renders rows with the given delimiter
func CSV(rows [][]string, delimiter rune) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delimiter
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteScenario writes the Recaudo inputs and a portfolio file into dir and
// returns the path of each input
func WriteScenario(fs afero.Fs, dir string) (map[string]string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	sources := map[string][][]string{
		Settlement: SettlementRows(),
		Orders:     OrderRows(),
		Provision:  ProvisionRows(),
		Ledger:     LedgerRows(),
		Cartera:    CarteraRows(),
	}

	paths := make(map[string]string, len(sources))
	for name, rows := range sources {
		filename := Files[name]
		var (
			data []byte
			err  error
		)
		if filepath.Ext(filename) == ".csv" {
			data, err = CSV(rows, ';')
		} else {
			data, err = XLSX(name, rows)
		}
		if err != nil {
			return nil, err
		}

		path := filepath.Join(dir, filename)
		if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
			return nil, err
		}
		paths[name] = path
	}
	return paths, nil
}
