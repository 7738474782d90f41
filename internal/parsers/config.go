package parsers

import (
	"fmt"
	"strings"
)

// GatewayFileConfig names the columns of a gateway transaction export.
// Only the UTR and amount columns are required; the rest are read when
// present and left zero-valued otherwise.
type GatewayFileConfig struct {
	UTRColumn        string            `json:"utr_column"`
	RRNColumn        string            `json:"rrn_column,omitempty"`
	AmountColumn     string            `json:"amount_column"`
	CapturedAtColumn string            `json:"captured_at_column,omitempty"`
	StatusColumn     string            `json:"status_column,omitempty"`
	MerchantColumn   string            `json:"merchant_column,omitempty"`
	FeeColumn        string            `json:"fee_column,omitempty"`
	SettlementColumn string            `json:"settlement_column,omitempty"`
	Delimiter        rune              `json:"delimiter"`
	ColumnAliases    map[string]string `json:"column_aliases,omitempty"`
}

// DefaultGatewayFileConfig matches the column names of a standard gateway
// settlement export.
func DefaultGatewayFileConfig() *GatewayFileConfig {
	return &GatewayFileConfig{
		UTRColumn:        "utr",
		RRNColumn:        "rrn",
		AmountColumn:     "amount",
		CapturedAtColumn: "captured_at",
		StatusColumn:     "status",
		MerchantColumn:   "merchant_id",
		FeeColumn:        "bank_fee",
		SettlementColumn: "settlement_amount",
		Delimiter:        ',',
	}
}

func (c *GatewayFileConfig) Validate() error {
	if strings.TrimSpace(c.UTRColumn) == "" {
		return fmt.Errorf("utr column cannot be empty")
	}
	if strings.TrimSpace(c.AmountColumn) == "" {
		return fmt.Errorf("amount column cannot be empty")
	}
	if c.Delimiter == 0 {
		return fmt.Errorf("delimiter cannot be empty")
	}
	return nil
}

// columnName resolves a logical column through the alias map.
func (c *GatewayFileConfig) columnName(logical, configured string) string {
	if alias, ok := c.ColumnAliases[logical]; ok {
		return alias
	}
	return configured
}

// BankFileConfig names the columns of a bank settlement statement. Banks
// disagree on header naming and date format, so deployments usually start
// from one of the predefined formats below.
type BankFileConfig struct {
	Name          string            `json:"name"`
	UTRColumn     string            `json:"utr_column"`
	AmountColumn  string            `json:"amount_column"`
	DateColumn    string            `json:"date_column,omitempty"`
	StatusColumn  string            `json:"status_column,omitempty"`
	Delimiter     rune              `json:"delimiter"`
	ColumnAliases map[string]string `json:"column_aliases,omitempty"`
	Description   string            `json:"description,omitempty"`
}

func (c *BankFileConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("format name cannot be empty")
	}
	if strings.TrimSpace(c.UTRColumn) == "" {
		return fmt.Errorf("utr column cannot be empty")
	}
	if strings.TrimSpace(c.AmountColumn) == "" {
		return fmt.Errorf("amount column cannot be empty")
	}
	if c.Delimiter == 0 {
		return fmt.Errorf("delimiter cannot be empty")
	}
	return nil
}

func (c *BankFileConfig) columnName(logical, configured string) string {
	if alias, ok := c.ColumnAliases[logical]; ok {
		return alias
	}
	return configured
}

// Predefined statement formats.
var (
	// StandardBankFileConfig covers the plain utr/amount/date export most
	// banks can produce on request.
	StandardBankFileConfig = &BankFileConfig{
		Name:         "standard",
		UTRColumn:    "utr",
		AmountColumn: "amount",
		DateColumn:   "date",
		StatusColumn: "status",
		Delimiter:    ',',
		Description:  "Generic utr/amount/date statement",
	}

	// MISExportBankFileConfig covers portal MIS downloads with verbose
	// headers and dd/mm/yyyy value dates.
	MISExportBankFileConfig = &BankFileConfig{
		Name:         "mis_export",
		UTRColumn:    "UTR Number",
		AmountColumn: "Credit Amount",
		DateColumn:   "Value Date",
		StatusColumn: "Txn Status",
		Delimiter:    ',',
		Description:  "Bank portal MIS export with verbose headers",
	}

	// SemicolonBankFileConfig covers statements exported from European core
	// banking systems, seen on cross-border settlement rails.
	SemicolonBankFileConfig = &BankFileConfig{
		Name:         "semicolon",
		UTRColumn:    "ref_number",
		AmountColumn: "credit_amount",
		DateColumn:   "value_date",
		Delimiter:    ';',
		Description:  "Semicolon-delimited statement",
	}
)

// GetBankFileConfig returns a predefined statement format by name, or nil.
func GetBankFileConfig(name string) *BankFileConfig {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "standard":
		return StandardBankFileConfig
	case "mis_export":
		return MISExportBankFileConfig
	case "semicolon":
		return SemicolonBankFileConfig
	default:
		return nil
	}
}

// ListBankFileConfigs returns all predefined statement formats.
func ListBankFileConfigs() []*BankFileConfig {
	return []*BankFileConfig{
		StandardBankFileConfig,
		MISExportBankFileConfig,
		SemicolonBankFileConfig,
	}
}

// AutoDetectBankFileConfig picks the predefined format whose key columns all
// appear in the given header row, falling back to the standard format.
func AutoDetectBankFileConfig(headers []string) *BankFileConfig {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[strings.ToLower(strings.TrimSpace(h))] = true
	}

	for _, cfg := range ListBankFileConfigs() {
		if present[strings.ToLower(cfg.UTRColumn)] &&
			present[strings.ToLower(cfg.AmountColumn)] &&
			(cfg.DateColumn == "" || present[strings.ToLower(cfg.DateColumn)]) {
			return cfg
		}
	}
	return StandardBankFileConfig
}
