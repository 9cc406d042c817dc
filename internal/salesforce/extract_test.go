package salesforce

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func extractOpts() ExtractOptions {
	return ExtractOptions{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestExtractor_BuildQuery(t *testing.T) {
	e := NewExtractor(nil, nil)

	t.Run("date range applied to dated sections", func(t *testing.T) {
		for _, section := range []string{SectionGL, SectionSalesInvoices, SectionPurchaseInvoices, SectionPayments} {
			soql, err := e.buildQuery(section, extractOpts())
			if err != nil {
				t.Fatalf("buildQuery(%s) failed: %v", section, err)
			}
			if !strings.Contains(soql, ">= 2025-01-01") || !strings.Contains(soql, "<= 2025-03-31") {
				t.Errorf("query for %s lacks the date range: %s", section, soql)
			}
		}
	})

	t.Run("reference sections are undated", func(t *testing.T) {
		for _, section := range []string{SectionCustomers, SectionSuppliers} {
			soql, err := e.buildQuery(section, extractOpts())
			if err != nil {
				t.Fatalf("buildQuery(%s) failed: %v", section, err)
			}
			if strings.Contains(soql, "2025-01-01") {
				t.Errorf("query for %s must not filter by date: %s", section, soql)
			}
		}
	})

	t.Run("default objects", func(t *testing.T) {
		soql, err := e.buildQuery(SectionGL, extractOpts())
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(soql, "FROM c2g__codaTransactionLineItem__c") {
			t.Errorf("query = %s", soql)
		}
	})

	t.Run("object override from config", func(t *testing.T) {
		opts := extractOpts()
		opts.Objects = map[string]string{SectionGL: "MyTxnLine__c"}
		soql, err := e.buildQuery(SectionGL, opts)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(soql, "FROM MyTxnLine__c") {
			t.Errorf("query = %s", soql)
		}
	})

	t.Run("company filter is escaped", func(t *testing.T) {
		opts := extractOpts()
		opts.Company = "O'Brien & Sons"
		soql, err := e.buildQuery(SectionSalesInvoices, opts)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(soql, `c2g__OwnerCompany__r.Name = 'O\'Brien & Sons'`) {
			t.Errorf("query = %s", soql)
		}
	})

	t.Run("unknown section", func(t *testing.T) {
		if _, err := e.buildQuery("does_not_exist", extractOpts()); err == nil {
			t.Fatal("expected an error for an unknown section")
		}
	})
}

func TestExtractor_Extract(t *testing.T) {
	mux := http.NewServeMux()

	// REST path for the reference sections.
	mux.HandleFunc("/services/data/v59.0/query", func(w http.ResponseWriter, r *http.Request) {
		soql := r.URL.Query().Get("q")
		switch {
		case strings.Contains(soql, "CODASalesTaxStatus"):
			fmt.Fprint(w, `{"done": true, "records": [{"Id": "001C", "Name": "Customer A"}]}`)
		case strings.Contains(soql, "CODAPurchaseTaxStatus"):
			fmt.Fprint(w, `{"done": true, "records": [{"Id": "001S", "Name": "Supplier A"}, {"Id": "001T", "Name": "Supplier B"}]}`)
		default:
			t.Errorf("unexpected REST query: %s", soql)
		}
	})

	// Bulk path for the general ledger.
	mux.HandleFunc("/services/data/v59.0/jobs/query", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "750GL", "state": "UploadComplete"}`)
	})
	mux.HandleFunc("/services/data/v59.0/jobs/query/750GL", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "750GL", "state": "JobComplete"}`)
	})
	mux.HandleFunc("/services/data/v59.0/jobs/query/750GL/results", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "\"Id\",\"Name\"\n\"a01A\",\"JNL-001\"\n")
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	rest := testClient(ts)
	bulk := NewBulkClient(rest, 5*time.Millisecond, time.Minute)
	extractor := NewExtractor(rest, bulk)

	opts := extractOpts()
	opts.Sections = []string{SectionGL, SectionCustomers, SectionSuppliers}

	results, err := extractor.Extract(context.Background(), opts)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(results[SectionGL]) != 1 {
		t.Errorf("gl records = %d, want 1", len(results[SectionGL]))
	}
	if len(results[SectionCustomers]) != 1 {
		t.Errorf("customer records = %d, want 1", len(results[SectionCustomers]))
	}
	if len(results[SectionSuppliers]) != 2 {
		t.Errorf("supplier records = %d, want 2", len(results[SectionSuppliers]))
	}
}

func TestExtractor_Extract_SectionFailureAborts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `[{"errorCode":"INVALID_FIELD"}]`)
	}))
	defer ts.Close()

	rest := testClient(ts)
	extractor := NewExtractor(rest, NewBulkClient(rest, 5*time.Millisecond, time.Minute))

	opts := extractOpts()
	opts.Sections = []string{SectionCustomers}

	_, err := extractor.Extract(context.Background(), opts)
	if err == nil {
		t.Fatal("expected the failing section to surface an error")
	}
	if !strings.Contains(err.Error(), SectionCustomers) {
		t.Errorf("err = %v, want the section named", err)
	}
}

func TestSectionOrder(t *testing.T) {
	results := map[string][]Record{
		SectionPayments:  nil,
		SectionGL:        nil,
		SectionCustomers: nil,
		"zz_custom":      nil,
		"aa_custom":      nil,
	}

	got := SectionOrder(results)
	want := []string{SectionGL, SectionCustomers, SectionPayments, "aa_custom", "zz_custom"}
	if len(got) != len(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
