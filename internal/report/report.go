// Package report renders reconciliation results for operators.
//
// Three formats are supported: console output for terminal review, JSON for
// programmatic consumption, and CSV of the exception queue for spreadsheet
// follow-up. Console output leads with the summary and top reasons since the
// exception list can run long.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"payment-recon-service/internal/money"
	"payment-recon-service/internal/recon"
)

// OutputFormat selects the rendering of a result.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid reports whether the format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// Config controls report rendering.
type Config struct {
	Format OutputFormat `json:"format"`

	// IncludeMatches lists matched pairs in console output. Off by default:
	// operators review exceptions, not successes.
	IncludeMatches bool `json:"include_matches"`

	// MaxItems caps each console section. Zero means no cap.
	MaxItems int `json:"max_items"`
}

// DefaultConfig renders a console report with exceptions only.
func DefaultConfig() *Config {
	return &Config{
		Format:   FormatConsole,
		MaxItems: 50,
	}
}

func (c *Config) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxItems < 0 {
		return fmt.Errorf("max items cannot be negative, got %d", c.MaxItems)
	}
	return nil
}

// Generator renders reconciliation results.
type Generator struct {
	cfg *Config
}

// NewGenerator creates a generator. A nil config falls back to
// DefaultConfig.
func NewGenerator(cfg *Config) (*Generator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &Generator{cfg: cfg}, nil
}

// Generate writes the result to w in the configured format.
func (g *Generator) Generate(result *recon.Result, w io.Writer) error {
	if result == nil {
		return fmt.Errorf("result must not be nil")
	}

	switch g.cfg.Format {
	case FormatJSON:
		return g.writeJSON(result, w)
	case FormatCSV:
		return g.writeCSV(result, w)
	default:
		return g.writeConsole(result, w)
	}
}

func (g *Generator) writeJSON(result *recon.Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// writeCSV emits the exception queue, one row per exception, ready for
// spreadsheet triage.
func (g *Generator) writeCSV(result *recon.Result, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"side", "reason_code", "severity", "utr",
		"pg_amount", "bank_amount", "detail", "resolution_hint",
	}); err != nil {
		return err
	}

	for i := range result.Exceptions {
		e := &result.Exceptions[i]
		utr, pgAmount, bankAmount := "", "", ""
		if e.PG != nil {
			utr = e.PG.NormalizedUTR()
			pgAmount = money.FormatPaise(e.PG.AmountPaise)
		}
		if e.Bank != nil {
			if utr == "" {
				utr = e.Bank.NormalizedUTR()
			}
			bankAmount = money.FormatPaise(e.Bank.AmountPaise)
		}
		if err := cw.Write([]string{
			string(e.Side), string(e.ReasonCode), string(e.Severity),
			utr, pgAmount, bankAmount, e.Detail, e.ResolutionHint,
		}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func (g *Generator) writeConsole(result *recon.Result, w io.Writer) error {
	var b strings.Builder

	b.WriteString("RECONCILIATION SUMMARY\n")
	b.WriteString("======================\n")
	fmt.Fprintf(&b, "Cycle date:        %s\n", result.CycleDate)
	fmt.Fprintf(&b, "Gateway records:   %d\n", result.Stats.TotalPG)
	fmt.Fprintf(&b, "Bank records:      %d\n", result.Stats.TotalBank)
	fmt.Fprintf(&b, "Matched:           %d (%.2f%%)\n", result.Stats.Matched, result.Stats.MatchRatePct)
	fmt.Fprintf(&b, "Exceptions:        %d\n", result.Stats.Exceptions)
	fmt.Fprintf(&b, "Unmatched:         %d gateway, %d bank\n",
		result.Stats.UnmatchedPG, result.Stats.UnmatchedBank)

	if len(result.TopReasons) > 0 {
		b.WriteString("\nTOP REASONS\n")
		for i, r := range result.TopReasons {
			fmt.Fprintf(&b, "  %d. %-28s %4d (%.2f%%)\n", i+1, r.Code, r.Count, r.Percent)
		}
	}

	if len(result.Exceptions) > 0 {
		b.WriteString("\nEXCEPTIONS\n")
		for i := 0; i < capped(len(result.Exceptions), g.cfg.MaxItems); i++ {
			e := &result.Exceptions[i]
			fmt.Fprintf(&b, "  [%s] %s %s: %s\n", e.Severity, e.Side, e.ReasonCode, e.Detail)
		}
		if rest := len(result.Exceptions) - g.cfg.MaxItems; g.cfg.MaxItems > 0 && rest > 0 {
			fmt.Fprintf(&b, "  ... and %d more\n", rest)
		}
	}

	if len(result.Unmatched) > 0 {
		b.WriteString("\nUNMATCHED\n")
		for i := 0; i < capped(len(result.Unmatched), g.cfg.MaxItems); i++ {
			u := &result.Unmatched[i]
			fmt.Fprintf(&b, "  %s %s: %s\n", u.Side, u.ReasonCode, u.Detail)
		}
		if rest := len(result.Unmatched) - g.cfg.MaxItems; g.cfg.MaxItems > 0 && rest > 0 {
			fmt.Fprintf(&b, "  ... and %d more\n", rest)
		}
	}

	if g.cfg.IncludeMatches && len(result.Matched) > 0 {
		b.WriteString("\nMATCHED\n")
		for i := 0; i < capped(len(result.Matched), g.cfg.MaxItems); i++ {
			m := &result.Matched[i]
			delta := ""
			if m.AmountDeltaPaise != 0 {
				delta = " (delta " + money.FormatPaise(m.AmountDeltaPaise) + ")"
			}
			fmt.Fprintf(&b, "  %-10s %s  %s%s\n", m.Tier, m.PG.NormalizedUTR(),
				money.FormatPaise(m.PG.AmountPaise), delta)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// ParseFormat converts a CLI flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("invalid output format %s, valid formats: console, json, csv",
			strconv.Quote(s))
	}
	return f, nil
}

func capped(n, max int) int {
	if max > 0 && max < n {
		return max
	}
	return n
}
