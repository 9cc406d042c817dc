package saft

import "encoding/xml"

// AuditFile is the root element of the SAF-T document.
type AuditFile struct {
	XMLName xml.Name `xml:"AuditFile"`
	Xmlns   string   `xml:"xmlns,attr"`

	Header               Header                `xml:"Header"`
	MasterFiles          MasterFiles           `xml:"MasterFiles"`
	GeneralLedgerEntries *GeneralLedgerEntries `xml:"GeneralLedgerEntries,omitempty"`
}

// Header identifies the audit file, the reporting entity, and the period.
type Header struct {
	AuditFileVersion   string  `xml:"AuditFileVersion"`
	AuditFileCountry   string  `xml:"AuditFileCountry"`
	FileID             string  `xml:"AuditFileID"`
	CompanyName        string  `xml:"CompanyName"`
	TaxRegistration    string  `xml:"TaxRegistrationNumber,omitempty"`
	VATNumber          string  `xml:"VATRegistrationNumber,omitempty"`
	CompanyAddress     Address `xml:"CompanyAddress"`
	FiscalYear         string  `xml:"FiscalYear"`
	StartDate          string  `xml:"StartDate"`
	EndDate            string  `xml:"EndDate"`
	CurrencyCode       string  `xml:"CurrencyCode"`
	DateCreated        string  `xml:"DateCreated"`
	SoftwareCompany    string  `xml:"SoftwareCompanyName"`
	Software           string  `xml:"SoftwareID"`
	SoftwareVersion    string  `xml:"SoftwareVersion"`
}

// Address is a postal address block.
type Address struct {
	StreetName string `xml:"StreetName,omitempty"`
	City       string `xml:"City,omitempty"`
	PostalCode string `xml:"PostalCode,omitempty"`
	Country    string `xml:"Country,omitempty"`
}

// MasterFiles carry the reference data sections.
type MasterFiles struct {
	GeneralLedgerAccounts []GLAccount `xml:"GeneralLedgerAccounts>Account,omitempty"`
	Customers             []Party     `xml:"Customers>Customer,omitempty"`
	Suppliers             []Party     `xml:"Suppliers>Supplier,omitempty"`
	TaxTable              []TaxEntry  `xml:"TaxTable>TaxTableEntry,omitempty"`
}

// GLAccount is one general ledger account definition.
type GLAccount struct {
	AccountID          string `xml:"AccountID"`
	AccountDescription string `xml:"AccountDescription,omitempty"`
}

// Party is a customer or supplier master record.
type Party struct {
	ID             string  `xml:"CustomerID,omitempty"`
	SupplierID     string  `xml:"SupplierID,omitempty"`
	AccountNumber  string  `xml:"AccountID,omitempty"`
	Name           string  `xml:"CompanyName"`
	BillingAddress Address `xml:"BillingAddress"`
}

// TaxEntry is one tax table row.
type TaxEntry struct {
	TaxCode     string  `xml:"TaxCode"`
	Description string  `xml:"Description,omitempty"`
	Percentage  float64 `xml:"TaxPercentage"`
}

// GeneralLedgerEntries holds the journal with its control totals.
type GeneralLedgerEntries struct {
	NumberOfEntries int           `xml:"NumberOfEntries"`
	TotalDebit      string        `xml:"TotalDebit"`
	TotalCredit     string        `xml:"TotalCredit"`
	Journal         []Transaction `xml:"Journal>Transaction"`
}

// Transaction is one journal transaction with its lines.
type Transaction struct {
	TransactionID   string `xml:"TransactionID"`
	TransactionDate string `xml:"TransactionDate,omitempty"`
	Description     string `xml:"Description,omitempty"`
	Lines           []Line `xml:"Lines>Line"`
}

// Line is one debit or credit line of a transaction.
type Line struct {
	AccountID   string `xml:"AccountID"`
	Description string `xml:"Description,omitempty"`
	DebitAmount string `xml:"DebitAmount,omitempty"`
	CreditAmount string `xml:"CreditAmount,omitempty"`
}
