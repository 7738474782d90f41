package parsers

import (
	"fmt"
	"io"

	"payment-recon-service/internal/models"
	"payment-recon-service/pkg/errors"
	"payment-recon-service/pkg/logger"
)

// BankStatementParser loads bank settlement statement files.
type BankStatementParser struct {
	cfg *BankFileConfig
	log logger.Logger
}

// NewBankStatementParser creates a parser for the given statement format. A
// nil config falls back to the standard format.
func NewBankStatementParser(cfg *BankFileConfig, log logger.Logger) (*BankStatementParser, error) {
	if cfg == nil {
		cfg = StandardBankFileConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig,
			"invalid bank file configuration", err)
	}
	return &BankStatementParser{cfg: cfg, log: resolveLogger(log, "bank_parser")}, nil
}

// Parse loads the statement. Rows with an unusable amount are recorded in
// the stats and skipped; unparseable value dates load as nil so the date
// window fails open downstream.
func (p *BankStatementParser) Parse(path string) ([]*models.BankRecord, *ParseStats, error) {
	p.log.WithFields(logger.Fields{
		"file_path": path,
		"format":    p.cfg.Name,
	}).Info("Loading bank statement file")

	required := []string{
		p.cfg.columnName("utr", p.cfg.UTRColumn),
		p.cfg.columnName("amount", p.cfg.AmountColumn),
	}
	cf, err := openCSV(path, p.cfg.Delimiter, required)
	if err != nil {
		return nil, nil, err
	}
	defer cf.close()

	stats := &ParseStats{}
	var records []*models.BankRecord

	for {
		row, err := cf.next()
		if err != nil {
			if err == io.EOF {
				break
			}
			stats.addError(&RowError{Line: cf.line + 1, Message: "unreadable CSV row", Err: err})
			continue
		}

		rec, rowErr := p.parseRow(cf, row)
		if rowErr != nil {
			stats.addError(rowErr)
			continue
		}
		records = append(records, rec)
		stats.RecordsValid++
	}
	stats.TotalLines = cf.line

	p.log.WithFields(logger.Fields{
		"file_path":     path,
		"total_lines":   stats.TotalLines,
		"records_valid": stats.RecordsValid,
		"skipped_rows":  stats.SkippedRows,
	}).Info("Bank statement loaded")
	if stats.HasErrors() {
		p.log.WithField("sample_errors", stats.SampleErrors(3)).Warn("Some statement rows were skipped")
	}

	return records, stats, nil
}

func (p *BankStatementParser) parseRow(cf *csvFile, row []string) (*models.BankRecord, *RowError) {
	rec := &models.BankRecord{
		ReferenceID: cf.field(row, p.cfg.columnName("utr", p.cfg.UTRColumn)),
		Status:      cf.field(row, p.cfg.columnName("status", p.cfg.StatusColumn)),
	}

	amountStr := cf.field(row, p.cfg.columnName("amount", p.cfg.AmountColumn))
	amount, err := models.ParsePaise(amountStr)
	if err != nil {
		return nil, &RowError{
			Line: cf.line, Field: p.cfg.AmountColumn, Value: amountStr,
			Message: "unusable amount", Err: err,
		}
	}
	rec.AmountPaise = amount

	if dateStr := cf.field(row, p.cfg.columnName("date", p.cfg.DateColumn)); dateStr != "" {
		if parsed, err := models.ParseTimeWithFormats(dateStr); err == nil {
			rec.TransactionDate = &parsed
		} else {
			p.log.WithFields(logger.Fields{
				"line":  cf.line,
				"value": dateStr,
			}).Debug("Unparseable value date, loading without it")
		}
	}

	if err := rec.Validate(); err != nil {
		return nil, &RowError{
			Line: cf.line, Message: fmt.Sprintf("invalid bank record: %v", err), Err: err,
		}
	}
	return rec, nil
}
