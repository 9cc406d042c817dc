// Package saft assembles the SAF-T audit file from extracted Certinia
// records: header, master files, and general ledger entries.
package saft

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings hold the report metadata that does not live in Salesforce:
// who the reporting entity is and how tax codes map into the tax table.
// They are loaded from a YAML file next to the config.
type Settings struct {
	Header   HeaderSettings `yaml:"header"`
	TaxTable []TaxCode      `yaml:"tax_table"`
}

// HeaderSettings describe the reporting company for the audit file header.
type HeaderSettings struct {
	CompanyName     string `yaml:"company_name"`
	TaxRegistration string `yaml:"tax_registration"`
	VATNumber       string `yaml:"vat_number"`
	Street          string `yaml:"street"`
	City            string `yaml:"city"`
	PostalCode      string `yaml:"postal_code"`
	Country         string `yaml:"country"`
	Currency        string `yaml:"currency"`
}

// TaxCode is one row of the master-file tax table.
type TaxCode struct {
	Code        string  `yaml:"code"`
	Description string  `yaml:"description"`
	Percentage  float64 `yaml:"percentage"`
}

// LoadSettings reads the report settings file.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report settings %s: %w", path, err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("invalid report settings %s: %w", path, err)
	}

	if settings.Header.CompanyName == "" {
		return nil, fmt.Errorf("report settings %s: header.company_name is required", path)
	}
	if settings.Header.Currency == "" {
		settings.Header.Currency = "BGN"
	}

	return &settings, nil
}
