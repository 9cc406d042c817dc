package salesforce

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Section names for the SAF-T data extraction.
const (
	SectionGL               = "gl"
	SectionCustomers        = "customers"
	SectionSuppliers        = "suppliers"
	SectionSalesInvoices    = "sales_invoices"
	SectionPurchaseInvoices = "purchase_invoices"
	SectionPayments         = "payments"
)

// AllSections lists every extractable section in output order.
var AllSections = []string{
	SectionGL,
	SectionCustomers,
	SectionSuppliers,
	SectionSalesInvoices,
	SectionPurchaseInvoices,
	SectionPayments,
}

// defaultObjects maps sections to the Certinia object API names used when
// the config's certinia.objects section does not override them.
var defaultObjects = map[string]string{
	SectionGL:               "c2g__codaTransactionLineItem__c",
	SectionCustomers:        "Account",
	SectionSuppliers:        "Account",
	SectionSalesInvoices:    "c2g__codaInvoice__c",
	SectionPurchaseInvoices: "c2g__codaPurchaseInvoice__c",
	SectionPayments:         "c2g__codaPayment__c",
}

// maxConcurrentSections bounds the extraction fan-out so a six-section run
// does not hold six concurrent bulk jobs against org limits.
const maxConcurrentSections = 3

// ExtractOptions select what the extractor pulls.
type ExtractOptions struct {
	Start   time.Time
	End     time.Time
	Company string

	// Sections to extract; nil means all.
	Sections []string

	// Objects overrides the default Certinia object names per section.
	Objects map[string]string
}

// Extractor pulls the SAF-T source data section by section. Large sections
// go through the Bulk API, reference data through the REST API.
type Extractor struct {
	rest *Client
	bulk *BulkClient
}

// NewExtractor creates an extractor over the given clients.
func NewExtractor(rest *Client, bulk *BulkClient) *Extractor {
	return &Extractor{rest: rest, bulk: bulk}
}

// Extract pulls the requested sections concurrently and returns the
// records keyed by section name. The first failing section aborts the rest.
func (e *Extractor) Extract(ctx context.Context, opts ExtractOptions) (map[string][]Record, error) {
	sections := opts.Sections
	if len(sections) == 0 {
		sections = AllSections
	}

	queries := make(map[string]string, len(sections))
	for _, section := range sections {
		soql, err := e.buildQuery(section, opts)
		if err != nil {
			return nil, err
		}
		queries[section] = soql
	}

	results := make(map[string][]Record, len(sections))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSections)

	for section, soql := range queries {
		section, soql := section, soql
		g.Go(func() error {
			started := time.Now()
			slog.Debug("Extracting section", "section", section)

			var (
				records []Record
				err     error
			)
			if section == SectionGL {
				// The general ledger is by far the largest section;
				// it goes through the Bulk API.
				records, err = e.bulk.Query(gctx, soql)
			} else {
				records, err = e.rest.Query(gctx, soql)
			}
			if err != nil {
				return fmt.Errorf("failed to extract %s: %w", section, err)
			}

			slog.Info("Section extracted",
				"section", section,
				"records", len(records),
				"elapsed", time.Since(started).Round(time.Millisecond),
			)

			mu.Lock()
			results[section] = records
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// buildQuery assembles the SOQL for one section.
func (e *Extractor) buildQuery(section string, opts ExtractOptions) (string, error) {
	object := defaultObjects[section]
	if opts.Objects != nil && opts.Objects[section] != "" {
		object = opts.Objects[section]
	}
	if object == "" {
		return "", fmt.Errorf("unknown extraction section %q", section)
	}

	start := opts.Start.Format("2006-01-02")
	end := opts.End.Format("2006-01-02")

	var b strings.Builder
	switch section {
	case SectionGL:
		fmt.Fprintf(&b, "SELECT Id, Name, c2g__Transaction__r.Name, c2g__Transaction__r.c2g__TransactionDate__c, "+
			"c2g__GeneralLedgerAccount__r.Name, c2g__GeneralLedgerAccount__r.c2g__ReportingCode__c, "+
			"c2g__HomeValue__c, c2g__HomeDebits__c, c2g__HomeCredits__c, c2g__LineDescription__c "+
			"FROM %s WHERE c2g__Transaction__r.c2g__TransactionDate__c >= %s AND c2g__Transaction__r.c2g__TransactionDate__c <= %s",
			object, start, end)
	case SectionCustomers:
		fmt.Fprintf(&b, "SELECT Id, Name, AccountNumber, BillingStreet, BillingCity, BillingPostalCode, BillingCountry, "+
			"c2g__CODAAccountTradingCurrency__c FROM %s WHERE c2g__CODASalesTaxStatus__c != null", object)
	case SectionSuppliers:
		fmt.Fprintf(&b, "SELECT Id, Name, AccountNumber, BillingStreet, BillingCity, BillingPostalCode, BillingCountry, "+
			"c2g__CODAAccountTradingCurrency__c FROM %s WHERE c2g__CODAPurchaseTaxStatus__c != null", object)
	case SectionSalesInvoices:
		fmt.Fprintf(&b, "SELECT Id, Name, c2g__InvoiceDate__c, c2g__Account__r.Name, c2g__InvoiceTotal__c, "+
			"c2g__NetTotal__c, c2g__TaxTotal__c, c2g__InvoiceCurrency__r.Name "+
			"FROM %s WHERE c2g__InvoiceDate__c >= %s AND c2g__InvoiceDate__c <= %s", object, start, end)
	case SectionPurchaseInvoices:
		fmt.Fprintf(&b, "SELECT Id, Name, c2g__InvoiceDate__c, c2g__Account__r.Name, c2g__InvoiceTotal__c, "+
			"c2g__NetTotal__c, c2g__TaxTotal__c "+
			"FROM %s WHERE c2g__InvoiceDate__c >= %s AND c2g__InvoiceDate__c <= %s", object, start, end)
	case SectionPayments:
		fmt.Fprintf(&b, "SELECT Id, Name, c2g__Date__c, c2g__Account__r.Name, c2g__Value__c, c2g__PaymentCurrency__r.Name "+
			"FROM %s WHERE c2g__Date__c >= %s AND c2g__Date__c <= %s", object, start, end)
	default:
		return "", fmt.Errorf("unknown extraction section %q", section)
	}

	if opts.Company != "" {
		switch section {
		case SectionGL:
			fmt.Fprintf(&b, " AND c2g__Transaction__r.c2g__OwnerCompany__r.Name = '%s'", escapeSOQL(opts.Company))
		case SectionSalesInvoices, SectionPurchaseInvoices:
			fmt.Fprintf(&b, " AND c2g__OwnerCompany__r.Name = '%s'", escapeSOQL(opts.Company))
		case SectionPayments:
			fmt.Fprintf(&b, " AND c2g__OwnerCompany__r.Name = '%s'", escapeSOQL(opts.Company))
		}
	}

	return b.String(), nil
}

// escapeSOQL escapes single quotes and backslashes in a SOQL string literal.
func escapeSOQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// SectionOrder returns the sections of a result map in canonical order.
func SectionOrder(results map[string][]Record) []string {
	var sections []string
	for _, s := range AllSections {
		if _, ok := results[s]; ok {
			sections = append(sections, s)
		}
	}
	// Any custom sections go last, alphabetically.
	var extra []string
	for s := range results {
		if defaultObjects[s] == "" {
			extra = append(extra, s)
		}
	}
	sort.Strings(extra)
	return append(sections, extra...)
}
