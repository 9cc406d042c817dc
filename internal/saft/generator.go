package saft

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/junkie765/saft-reporting/internal/salesforce"
)

// Namespace is the SAF-T XML namespace the Bulgarian NRA expects.
const Namespace = "mf:nra:dgti:dxxxx:declaration:v1"

// balanceTolerance is the maximum acceptable absolute difference between
// total debits and total credits, in report currency units.
const balanceTolerance = 0.01

// UnbalancedError indicates the extracted ledger does not balance. The
// report would be rejected, so generation stops instead of writing it.
type UnbalancedError struct {
	TotalDebit  float64
	TotalCredit float64
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("general ledger does not balance: debit %.2f vs credit %.2f (difference %.2f)",
		e.TotalDebit, e.TotalCredit, e.TotalDebit-e.TotalCredit)
}

// Generator assembles the audit file from extracted records.
type Generator struct {
	settings *Settings

	// Version is stamped into the header as the software version.
	Version string
}

// NewGenerator creates a generator with the given report settings.
func NewGenerator(settings *Settings, version string) *Generator {
	if version == "" {
		version = "dev"
	}
	return &Generator{settings: settings, Version: version}
}

// Generate builds the audit file document for the given period.
func (g *Generator) Generate(data map[string][]salesforce.Record, start, end time.Time) (*AuditFile, error) {
	doc := &AuditFile{
		Xmlns: Namespace,
		Header: Header{
			AuditFileVersion: "1.0",
			AuditFileCountry: "BG",
			FileID:           uuid.NewString(),
			CompanyName:      g.settings.Header.CompanyName,
			TaxRegistration:  g.settings.Header.TaxRegistration,
			VATNumber:        g.settings.Header.VATNumber,
			CompanyAddress: Address{
				StreetName: g.settings.Header.Street,
				City:       g.settings.Header.City,
				PostalCode: g.settings.Header.PostalCode,
				Country:    g.settings.Header.Country,
			},
			FiscalYear:      strconv.Itoa(start.Year()),
			StartDate:       start.Format("2006-01-02"),
			EndDate:         end.Format("2006-01-02"),
			CurrencyCode:    g.settings.Header.Currency,
			DateCreated:     time.Now().Format("2006-01-02"),
			SoftwareCompany: "saft-reporting",
			Software:        "saft-reporting",
			SoftwareVersion: g.Version,
		},
	}

	doc.MasterFiles = MasterFiles{
		GeneralLedgerAccounts: g.glAccounts(data[salesforce.SectionGL]),
		Customers:             g.parties(data[salesforce.SectionCustomers], false),
		Suppliers:             g.parties(data[salesforce.SectionSuppliers], true),
		TaxTable:              g.taxTable(),
	}

	entries, err := g.ledgerEntries(data[salesforce.SectionGL])
	if err != nil {
		return nil, err
	}
	doc.GeneralLedgerEntries = entries

	return doc, nil
}

// WriteFile generates the document and writes it as indented XML.
func (g *Generator) WriteFile(path string, data map[string][]salesforce.Record, start, end time.Time) error {
	doc, err := g.Generate(data, start, end)
	if err != nil {
		return err
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode audit file: %w", err)
	}
	out = append([]byte(xml.Header), out...)
	out = append(out, '\n')

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write audit file %s: %w", path, err)
	}

	slog.Info("Audit file written", "path", path, "bytes", len(out))
	return nil
}

// glAccounts collects the distinct ledger accounts referenced by the
// transaction lines.
func (g *Generator) glAccounts(lines []salesforce.Record) []GLAccount {
	seen := map[string]string{}
	for _, line := range lines {
		id := line.StringField("c2g__GeneralLedgerAccount__r.c2g__ReportingCode__c")
		if id == "" {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = line.StringField("c2g__GeneralLedgerAccount__r.Name")
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	accounts := make([]GLAccount, 0, len(ids))
	for _, id := range ids {
		accounts = append(accounts, GLAccount{AccountID: id, AccountDescription: seen[id]})
	}
	return accounts
}

// parties maps account records into customer or supplier entries.
func (g *Generator) parties(records []salesforce.Record, supplier bool) []Party {
	parties := make([]Party, 0, len(records))
	for _, rec := range records {
		p := Party{
			AccountNumber: rec.StringField("AccountNumber"),
			Name:          rec.StringField("Name"),
			BillingAddress: Address{
				StreetName: rec.StringField("BillingStreet"),
				City:       rec.StringField("BillingCity"),
				PostalCode: rec.StringField("BillingPostalCode"),
				Country:    rec.StringField("BillingCountry"),
			},
		}
		if supplier {
			p.SupplierID = rec.StringField("Id")
		} else {
			p.ID = rec.StringField("Id")
		}
		parties = append(parties, p)
	}
	return parties
}

// taxTable converts the configured tax codes into table entries.
func (g *Generator) taxTable() []TaxEntry {
	entries := make([]TaxEntry, 0, len(g.settings.TaxTable))
	for _, code := range g.settings.TaxTable {
		entries = append(entries, TaxEntry{
			TaxCode:     code.Code,
			Description: code.Description,
			Percentage:  code.Percentage,
		})
	}
	return entries
}

// ledgerEntries groups transaction lines into journal transactions and
// verifies the debit and credit sides balance.
func (g *Generator) ledgerEntries(lines []salesforce.Record) (*GeneralLedgerEntries, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	byTransaction := map[string][]salesforce.Record{}
	var order []string
	for _, line := range lines {
		id := line.StringField("c2g__Transaction__r.Name")
		if id == "" {
			id = line.StringField("Id")
		}
		if _, ok := byTransaction[id]; !ok {
			order = append(order, id)
		}
		byTransaction[id] = append(byTransaction[id], line)
	}
	sort.Strings(order)

	var totalDebit, totalCredit float64
	transactions := make([]Transaction, 0, len(order))
	for _, id := range order {
		group := byTransaction[id]
		tx := Transaction{
			TransactionID:   id,
			TransactionDate: group[0].StringField("c2g__Transaction__r.c2g__TransactionDate__c"),
		}

		for _, line := range group {
			debit := parseAmount(line, "c2g__HomeDebits__c")
			credit := parseAmount(line, "c2g__HomeCredits__c")
			totalDebit += debit
			totalCredit += credit

			entry := Line{
				AccountID:   line.StringField("c2g__GeneralLedgerAccount__r.c2g__ReportingCode__c"),
				Description: line.StringField("c2g__LineDescription__c"),
			}
			if debit != 0 {
				entry.DebitAmount = formatAmount(debit)
			}
			if credit != 0 {
				entry.CreditAmount = formatAmount(credit)
			}
			tx.Lines = append(tx.Lines, entry)
		}

		transactions = append(transactions, tx)
	}

	if math.Abs(totalDebit-totalCredit) > balanceTolerance {
		return nil, &UnbalancedError{TotalDebit: totalDebit, TotalCredit: totalCredit}
	}

	return &GeneralLedgerEntries{
		NumberOfEntries: len(transactions),
		TotalDebit:      formatAmount(totalDebit),
		TotalCredit:     formatAmount(totalCredit),
		Journal:         transactions,
	}, nil
}

// parseAmount reads a numeric field tolerant of string (bulk CSV) and
// float (REST JSON) representations.
func parseAmount(rec salesforce.Record, field string) float64 {
	switch v := rec[field].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
