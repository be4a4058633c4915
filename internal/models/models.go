package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SettlementRecord is one liquidated collection transaction
type SettlementRecord struct {
	DocumentID       string          `json:"document_id"`
	ProjectCode      string          `json:"project_code"`
	Date             string          `json:"date"`
	PaymentForm      string          `json:"payment_form"`
	ServicePointCode string          `json:"service_point_code"`
	MovedAmount      decimal.Decimal `json:"moved_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Year             string          `json:"year"`
}

// Value returns the cell for a settlement column, or nil
func (s *SettlementRecord) Value(column string) interface{} {
	switch column {
	case ColDocument:
		return s.DocumentID
	case ColProjectCode:
		return s.ProjectCode
	case ColDate:
		return s.Date
	case ColPaymentForm:
		return s.PaymentForm
	case ColServicePointCode:
		return s.ServicePointCode
	case ColMovedAmount:
		return s.MovedAmount
	case ColCommissionAmount:
		return s.CommissionAmount
	case ColTaxAmount:
		return s.TaxAmount
	case ColTotalAmount:
		return s.TotalAmount
	case ColSettlementYear:
		return s.Year
	}
	return nil
}

// OrderRecord is one service order identifying the paying citizen
type OrderRecord struct {
	OrderNumber string `json:"order_number"`
	IdentityID  string `json:"identity_id"`
	FirstName   string `json:"first_name"`
	LastName1   string `json:"last_name1"`
	LastName2   string `json:"last_name2"`
	InvoiceID   string `json:"invoice_id"`
}

// Value returns the cell for an order column, or nil
func (o *OrderRecord) Value(column string) interface{} {
	switch column {
	case ColOrderNumber:
		return o.OrderNumber
	case ColIdentity:
		return o.IdentityID
	case ColFirstName:
		return o.FirstName
	case ColLastName1:
		return o.LastName1
	case ColLastName2:
		return o.LastName2
	case ColInvoice:
		return o.InvoiceID
	}
	return nil
}

// ProvisionRecord maps a NUI to a citizen id and a municipality
type ProvisionRecord struct {
	NUI         string `json:"nui"`
	CitizenID   string `json:"citizen_id"`
	ProjectName string `json:"project_name"`
}

// Value returns the cell for a provision column, or nil
func (p *ProvisionRecord) Value(column string) interface{} {
	switch column {
	case ColNUI:
		return p.NUI
	case ColCitizenID:
		return p.CitizenID
	case ColProject:
		return p.ProjectName
	}
	return nil
}

// LedgerEntry is one debit line exported from the accounting system.
// The extracted ids are empty until the description has been parsed and
// stay empty when it did not match.
type LedgerEntry struct {
	AccountingCode      string          `json:"accounting_code"`
	AccountName         string          `json:"account_name"`
	VoucherNumber       string          `json:"voucher_number"`
	Sequence            string          `json:"sequence"`
	ElaborationDate     string          `json:"elaboration_date"`
	IdentityID          string          `json:"identity_id"`
	ThirdPartyName      string          `json:"third_party_name"`
	Description         string          `json:"description"`
	CostCenter          string          `json:"cost_center"`
	DebitAmount         decimal.Decimal `json:"debit_amount"`
	ExtractedInvoiceID  string          `json:"extracted_invoice_id,omitempty"`
	ExtractedIdentityID string          `json:"extracted_identity_id,omitempty"`
}

// Extracted reports whether the description yielded an identity
func (l *LedgerEntry) Extracted() bool {
	return l.ExtractedIdentityID != ""
}

// UnifiedRecord is one fully joined settlement, order and provision row
type UnifiedRecord struct {
	Settlement SettlementRecord `json:"settlement"`
	Order      OrderRecord      `json:"order"`
	Provision  ProvisionRecord  `json:"provision"`
	FullName   string           `json:"full_name"`
	// ParsedDate is nil when the settlement date could not be parsed
	ParsedDate *time.Time `json:"parsed_date,omitempty"`
	// Year is 0 and Month empty when ParsedDate is nil
	Year  int    `json:"year,omitempty"`
	Month string `json:"month,omitempty"`
}

// Value returns the cell for any unified column, or nil
func (u *UnifiedRecord) Value(column string) interface{} {
	switch column {
	case ColFullName:
		return u.FullName
	case ColYear:
		if u.Year == 0 {
			return ""
		}
		return u.Year
	case ColMonth:
		return u.Month
	case ColDate:
		if u.ParsedDate != nil {
			return u.ParsedDate.Format("2006-01-02")
		}
		return u.Settlement.Date
	}
	if v := u.Settlement.Value(column); v != nil {
		return v
	}
	if v := u.Order.Value(column); v != nil {
		return v
	}
	return u.Provision.Value(column)
}

// UnifiedTable is the output of the join pipeline
type UnifiedTable struct {
	Records []UnifiedRecord `json:"records"`
	// Columns lists the columns carried by the records, in output order
	Columns []string `json:"columns"`
}

// Len returns the number of records
func (u *UnifiedTable) Len() int {
	if u == nil {
		return 0
	}
	return len(u.Records)
}

// Row renders record i in column order
func (u *UnifiedTable) Row(i int) []interface{} {
	row := make([]interface{}, len(u.Columns))
	for c, col := range u.Columns {
		row[c] = u.Records[i].Value(col)
	}
	return row
}

// AccumulatedRecord is one row of the running historical ledger
type AccumulatedRecord struct {
	PaymentMethod     string `json:"payment_method"`
	CollectionMethod  string `json:"collection_method"`
	Date              string `json:"date"`
	Month             string `json:"month"`
	Year              string `json:"year"`
	ServicePointCode  string `json:"service_point_code"`
	ServiceOrderID    string `json:"service_order_id"`
	MovedAmount       string `json:"moved_amount"`
	CommissionAmount  string `json:"commission_amount"`
	TaxAmount         string `json:"tax_amount"`
	TotalAmount       string `json:"total_amount"`
	NUI               string `json:"nui"`
	CitizenID         string `json:"citizen_id"`
	Name              string `json:"name"`
	InvoiceID         string `json:"invoice_id"`
	Municipality      string `json:"municipality"`
	Validated         string `json:"validated"`
	AccountingVoucher string `json:"accounting_voucher"`
}

// Cells renders the record in AccumulatedColumns order
func (a *AccumulatedRecord) Cells() []string {
	return []string{
		a.PaymentMethod, a.CollectionMethod, a.Date, a.Month, a.Year,
		a.ServicePointCode, a.ServiceOrderID, a.MovedAmount, a.CommissionAmount,
		a.TaxAmount, a.TotalAmount, a.NUI, a.CitizenID, a.Name, a.InvoiceID,
		a.Municipality, a.Validated, a.AccountingVoucher,
	}
}

// Batch is a decoded input table together with the columns it carried
type Batch[T any] struct {
	Name    string
	Records []T
	Columns ColumnSet
}

// Len returns the number of records
func (b *Batch[T]) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}

// String returns a short description for logs
func (b *Batch[T]) String() string {
	return fmt.Sprintf("%s{records: %d, columns: %d}", b.Name, b.Len(), len(b.Columns))
}

// Months maps calendar month numbers to their Spanish upper-case names
var Months = [12]string{
	"ENERO", "FEBRERO", "MARZO", "ABRIL", "MAYO", "JUNIO",
	"JULIO", "AGOSTO", "SEPTIEMBRE", "OCTUBRE", "NOVIEMBRE", "DICIEMBRE",
}

// MonthName returns the Spanish name of m, or "" when out of range
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return Months[m-1]
}

