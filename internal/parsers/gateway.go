package parsers

import (
	"fmt"
	"io"

	"payment-recon-service/internal/models"
	"payment-recon-service/pkg/errors"
	"payment-recon-service/pkg/logger"
)

// GatewayParser loads gateway transaction export files.
type GatewayParser struct {
	cfg *GatewayFileConfig
	log logger.Logger
}

// NewGatewayParser creates a parser for the given export format. A nil
// config falls back to DefaultGatewayFileConfig.
func NewGatewayParser(cfg *GatewayFileConfig, log logger.Logger) (*GatewayParser, error) {
	if cfg == nil {
		cfg = DefaultGatewayFileConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig,
			"invalid gateway file configuration", err)
	}
	return &GatewayParser{cfg: cfg, log: resolveLogger(log, "gateway_parser")}, nil
}

// Parse loads the file. Rows with an unusable amount are recorded in the
// stats and skipped; blank UTRs and unparseable timestamps load as-is so
// the matching engine can classify them.
func (p *GatewayParser) Parse(path string) ([]*models.PGTransaction, *ParseStats, error) {
	p.log.WithField("file_path", path).Info("Loading gateway transaction file")

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
	var transactions []*models.PGTransaction

	for {
		row, err := cf.next()
		if err != nil {
			if err == io.EOF {
				break
			}
			stats.addError(&RowError{Line: cf.line + 1, Message: "unreadable CSV row", Err: err})
			continue
		}

		tx, rowErr := p.parseRow(cf, row)
		if rowErr != nil {
			stats.addError(rowErr)
			continue
		}
		transactions = append(transactions, tx)
		stats.RecordsValid++
	}
	stats.TotalLines = cf.line

	p.log.WithFields(logger.Fields{
		"file_path":     path,
		"total_lines":   stats.TotalLines,
		"records_valid": stats.RecordsValid,
		"skipped_rows":  stats.SkippedRows,
	}).Info("Gateway file loaded")
	if stats.HasErrors() {
		p.log.WithField("sample_errors", stats.SampleErrors(3)).Warn("Some gateway rows were skipped")
	}

	return transactions, stats, nil
}

func (p *GatewayParser) parseRow(cf *csvFile, row []string) (*models.PGTransaction, *RowError) {
	tx := &models.PGTransaction{
		ReferenceID:          cf.field(row, p.cfg.columnName("utr", p.cfg.UTRColumn)),
		AlternateReferenceID: cf.field(row, p.cfg.columnName("rrn", p.cfg.RRNColumn)),
		Status:               cf.field(row, p.cfg.columnName("status", p.cfg.StatusColumn)),
		MerchantID:           cf.field(row, p.cfg.columnName("merchant_id", p.cfg.MerchantColumn)),
	}

	amountStr := cf.field(row, p.cfg.columnName("amount", p.cfg.AmountColumn))
	amount, err := models.ParsePaise(amountStr)
	if err != nil {
		return nil, &RowError{
			Line: cf.line, Field: p.cfg.AmountColumn, Value: amountStr,
			Message: "unusable amount", Err: err,
		}
	}
	tx.AmountPaise = amount

	// A bad timestamp loads as nil so the date window fails open.
	if ts := cf.field(row, p.cfg.columnName("captured_at", p.cfg.CapturedAtColumn)); ts != "" {
		if parsed, err := models.ParseTimeWithFormats(ts); err == nil {
			tx.CapturedAt = &parsed
		} else {
			p.log.WithFields(logger.Fields{
				"line":  cf.line,
				"value": ts,
			}).Debug("Unparseable capture time, loading without it")
		}
	}

	if feeStr := cf.field(row, p.cfg.columnName("bank_fee", p.cfg.FeeColumn)); feeStr != "" {
		fee, err := models.ParsePaise(feeStr)
		if err != nil {
			return nil, &RowError{
				Line: cf.line, Field: p.cfg.FeeColumn, Value: feeStr,
				Message: "unusable fee amount", Err: err,
			}
		}
		tx.BankFeePaise = &fee
	}
	if settleStr := cf.field(row, p.cfg.columnName("settlement_amount", p.cfg.SettlementColumn)); settleStr != "" {
		settle, err := models.ParsePaise(settleStr)
		if err != nil {
			return nil, &RowError{
				Line: cf.line, Field: p.cfg.SettlementColumn, Value: settleStr,
				Message: "unusable settlement amount", Err: err,
			}
		}
		tx.SettlementAmountPaise = &settle
	}

	if err := tx.Validate(); err != nil {
		return nil, &RowError{
			Line: cf.line, Message: fmt.Sprintf("invalid gateway record: %v", err), Err: err,
		}
	}
	return tx, nil
}
