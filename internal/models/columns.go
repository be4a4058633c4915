package models

import "recaudo-reconciliation-service/internal/table"

// Settlement (liquidación) columns
const (
	ColDocument         = "DOCUMENTO"
	ColProjectCode      = "CÓDIGO PROYECTO"
	ColDate             = "FECHA"
	ColPaymentForm      = "FORMA DE PAGO"
	ColServicePointCode = "CÓDIGO PUNTO DE SERVICIO"
	ColMovedAmount      = "VALOR MOVILIZADO"
	ColCommissionAmount = "VALOR COMISIÓN"
	ColTaxAmount        = "IVA"
	ColTotalAmount      = "TOTAL LIQUIDACIÓN"
	ColSettlementYear   = "ANO"
)

// Order columns
const (
	ColOrderNumber = "NUMERO_ORDEN"
	ColIdentity    = "IDENTIFICACION"
	ColFirstName   = "NOMBRES"
	ColLastName1   = "APELLIDO1"
	ColLastName2   = "APELLIDO2"
	ColInvoice     = "FACTURA"
)

// Provision columns
const (
	ColNUI       = "NUI"
	ColCitizenID = "CC"
	ColProject   = "PROYECTO"
)

// Ledger (Siigo) columns
const (
	ColAccountingCode  = "CÓDIGO CONTABLE"
	ColAccountName     = "CUENTA CONTABLE"
	ColVoucher         = "COMPROBANTE"
	ColSequence        = "SECUENCIA"
	ColElaborationDate = "FECHA ELABORACIÓN"
	ColLedgerIdentity  = "IDENTIFICACIÓN"
	ColThirdPartyName  = "NOMBRE DEL TERCERO"
	ColDescription     = "DESCRIPCIÓN"
	ColCostCenter      = "CENTRO DE COSTO"
	ColDebit           = "DÉBITO"
)

// Columns derived during the join
const (
	ColFullName = "NOMBRE_COMPLETO"
	ColYear     = "AÑO"
	ColMonth    = "MES"
)

// Accumulated ledger columns that differ from the unified ones
const (
	ColAccPaymentMethod    = "MEDIO DE PAGO"
	ColAccCollectionMethod = "MEDIO DE RECAUDO"
	ColAccServiceOrder     = "ORDEN DE SERVICIO"
	ColAccCitizenID        = "CEDULA"
	ColAccName             = "NOMBRE"
	ColAccMunicipality     = "MUNICIPIO"
	ColAccValidated        = "VALIDADO"
	ColAccVoucher          = "COMPROBANTE CONTABLE"
)

// GrandTotalLabel marks the synthetic total row of a totals table
const GrandTotalLabel = "TOTAL GENERAL"

// Expected column lists, in output order
var (
	SettlementColumns = []string{
		ColDocument, ColProjectCode, ColDate, ColPaymentForm, ColServicePointCode,
		ColMovedAmount, ColCommissionAmount, ColTaxAmount, ColTotalAmount, ColSettlementYear,
	}

	OrderColumns = []string{
		ColOrderNumber, ColIdentity, ColFirstName, ColLastName1, ColLastName2, ColInvoice,
	}

	ProvisionColumns = []string{ColNUI, ColCitizenID, ColProject}

	LedgerColumns = []string{
		ColAccountingCode, ColAccountName, ColVoucher, ColSequence, ColElaborationDate,
		ColLedgerIdentity, ColThirdPartyName, ColDescription, ColCostCenter, ColDebit,
	}

	AccumulatedColumns = []string{
		ColAccPaymentMethod, ColAccCollectionMethod, ColDate, ColMonth, ColYear,
		ColServicePointCode, ColAccServiceOrder, ColMovedAmount, ColCommissionAmount,
		ColTaxAmount, ColTotalAmount, ColNUI, ColAccCitizenID, ColAccName, ColInvoice,
		ColAccMunicipality, ColAccValidated, ColAccVoucher,
	}

	// CarteraColumns is the projection kept by the portfolio export
	CarteraColumns = OrderColumns

	// NameColumns are dropped from the joined table once the full name exists
	NameColumns = []string{ColFirstName, ColLastName1, ColLastName2}

	// AmountColumns hold money and are written as numbers on export
	AmountColumns = []string{
		ColMovedAmount, ColCommissionAmount, ColTaxAmount, ColTotalAmount, ColDebit,
	}
)

// ColumnSet is the set of canonical columns a decoded batch actually carried
type ColumnSet map[string]bool

// NewColumnSet builds a set from canonical column names
func NewColumnSet(columns ...string) ColumnSet {
	set := make(ColumnSet, len(columns))
	for _, col := range columns {
		set[table.Canonical(col)] = true
	}
	return set
}

// Has reports whether col is present
func (s ColumnSet) Has(col string) bool {
	return s[table.Canonical(col)]
}

// Missing returns the columns of want that are absent, in order
func (s ColumnSet) Missing(want ...string) []string {
	var missing []string
	for _, col := range want {
		if !s.Has(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// Ordered filters order down to the present columns
func (s ColumnSet) Ordered(order []string) []string {
	var out []string
	for _, col := range order {
		if s.Has(col) {
			out = append(out, col)
		}
	}
	return out
}

// IsAmountColumn reports whether col holds money
func IsAmountColumn(col string) bool {
	canonical := table.Canonical(col)
	for _, c := range AmountColumns {
		if c == canonical {
			return true
		}
	}
	return false
}
