package reconciler

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"recaudo-reconciliation-service/internal/ledger"
	"recaudo-reconciliation-service/internal/table"
	"recaudo-reconciliation-service/pkg/logger"
)

// scenario returns a small collection batch:
//   - CC 111 is paid 100000 and the ledger records 90000
//   - CC 222 matches exactly
//   - CC 333 is paid but missing from the ledger
//   - CC 444 is only in the ledger, and one ledger line has no reference
func scenario() TableCollector {
	return TableCollector{
		TableSettlement: table.FromRows("", [][]string{
			{"Documento", "FECHA", "CÓDIGO PUNTO DE SERVICIO", "VALOR MOVILIZADO", "VALOR COMISIÓN"},
			{"1001", "2024-03-05", "P1", "100000", "1000"},
			{"1002", "05/03/2024", "P2", "50000", "500"},
			{"1003", "not a date", "P3", "25000", "250"},
		}),
		TableOrders: table.FromRows("", [][]string{
			{"NUMERO_ORDEN", "IDENTIFICACION", "NOMBRES", "APELLIDO1", "APELLIDO2", "FACTURA"},
			{"1001", "900", "José", "Núñez", "", "FE 500"},
			{"1002", "901", "Ana", "Pérez", "Gómez", "501"},
			{"1003", "902", "Luis", "Díaz", "", "502"},
		}),
		TableProvision: table.FromRows("", [][]string{
			{"NUI", "CC", "PROYECTO"},
			{"900", "111", "BOGOTA"},
			{"901", "222", "CALI"},
			{"902", "333", "MEDELLIN"},
		}),
		TableLedger: table.FromRows("", [][]string{
			{"DESCRIPCIÓN", "DÉBITO"},
			{"FV-1-500 111", "90000"},
			{"FV-1-501 222", "50000"},
			{"FV-1-999 444", "7000"},
			{"PAGO SIN REFERENCIA", "3000"},
		}),
	}
}

func testExtractor(t *testing.T) ledger.Extractor {
	t.Helper()
	ex, err := ledger.Build(ledger.DefaultConfig())
	if err != nil {
		t.Fatalf("build extractor: %v", err)
	}
	return ex
}

func buildBundle(t *testing.T, collector InputCollector, config *Config) *InputBundle {
	t.Helper()
	bundle, err := NewBundleBuilder(testExtractor(t), config, logger.Discard()).Build(context.Background(), collector)
	if err != nil {
		t.Fatalf("build bundle: %v", err)
	}
	return bundle
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type recordingExporter struct {
	recaudo []*RunResult
	partial []*RunResult
	// partialStates records the run state each partial export saw
	partialStates []State
	cartera []*CarteraResult
	err     error
}

func (e *recordingExporter) ExportRecaudo(ctx context.Context, result *RunResult) error {
	e.recaudo = append(e.recaudo, result)
	return e.err
}

func (e *recordingExporter) ExportPartial(ctx context.Context, result *RunResult) error {
	e.partial = append(e.partial, result)
	e.partialStates = append(e.partialStates, result.State)
	return e.err
}

func (e *recordingExporter) ExportCartera(ctx context.Context, result *CarteraResult) error {
	e.cartera = append(e.cartera, result)
	return e.err
}
