package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"payment-recon-service/internal/money"
	"payment-recon-service/internal/parsers"
	"payment-recon-service/internal/recon"
	"payment-recon-service/internal/report"
	"payment-recon-service/internal/settlement"
	"payment-recon-service/internal/store"
	"payment-recon-service/pkg/errors"
)

var (
	pgFile       string
	bankFile     string
	cycleDate    string
	bankFormat   string
	outputFormat string
	outputFile   string

	flatTolerancePaise int64
	tolerancePercent   float64
	dateWindowDays     int
	allowRRNMatch      bool

	includeMatches bool
	showSettlement bool
	databaseURL    string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile gateway transactions with a bank statement",
	Long: `Reconcile matches a gateway transaction export against a bank settlement
statement for one cycle and classifies every record: matched, exception
with a reason code, or unmatched.

Examples:
  # Basic reconciliation
  recon reconcile --pg-file gateway.csv --bank-file statement.csv --cycle-date 2024-03-15

  # Bank portal MIS export, JSON output to a file
  recon reconcile --pg-file gateway.csv --bank-file mis.csv --cycle-date 2024-03-15 \
    --bank-format mis_export --output-format json --output-file result.json

  # Tighter tolerances and settlement figures
  recon reconcile --pg-file gateway.csv --bank-file statement.csv --cycle-date 2024-03-15 \
    --amount-tolerance 50 --date-window 1 --settlement

  # Persist the run to Postgres
  recon reconcile --pg-file gateway.csv --bank-file statement.csv --cycle-date 2024-03-15 \
    --database-url postgres://localhost/recon?sslmode=disable`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVarP(&pgFile, "pg-file", "p", "", "path to gateway transaction CSV file (required)")
	reconcileCmd.Flags().StringVarP(&bankFile, "bank-file", "b", "", "path to bank statement CSV file (required)")
	reconcileCmd.Flags().StringVarP(&cycleDate, "cycle-date", "c", "", "settlement cycle date, YYYY-MM-DD (required)")
	reconcileCmd.Flags().StringVar(&bankFormat, "bank-format", "standard", "bank statement format: standard, mis_export, semicolon")

	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	reconcileCmd.Flags().Int64Var(&flatTolerancePaise, "amount-tolerance", 100, "flat amount tolerance in paise")
	reconcileCmd.Flags().Float64Var(&tolerancePercent, "tolerance-percent", 0.1, "percentage amount tolerance (0-100)")
	reconcileCmd.Flags().IntVarP(&dateWindowDays, "date-window", "d", 2, "settlement date window in days")
	reconcileCmd.Flags().BoolVar(&allowRRNMatch, "allow-rrn-match", false, "match on the RRN when the UTR finds no counterpart")

	reconcileCmd.Flags().BoolVar(&includeMatches, "include-matches", false, "list matched pairs in console output")
	reconcileCmd.Flags().BoolVar(&showSettlement, "settlement", false, "print merchant settlement figures")
	reconcileCmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres DSN for persisting the run (optional)")

	reconcileCmd.MarkFlagRequired("pg-file")
	reconcileCmd.MarkFlagRequired("bank-file")
	reconcileCmd.MarkFlagRequired("cycle-date")

	viper.BindPFlag("pg-file", reconcileCmd.Flags().Lookup("pg-file"))
	viper.BindPFlag("bank-file", reconcileCmd.Flags().Lookup("bank-file"))
	viper.BindPFlag("cycle-date", reconcileCmd.Flags().Lookup("cycle-date"))
	viper.BindPFlag("bank-format", reconcileCmd.Flags().Lookup("bank-format"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("amount-tolerance", reconcileCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("tolerance-percent", reconcileCmd.Flags().Lookup("tolerance-percent"))
	viper.BindPFlag("date-window", reconcileCmd.Flags().Lookup("date-window"))
	viper.BindPFlag("allow-rrn-match", reconcileCmd.Flags().Lookup("allow-rrn-match"))
	viper.BindPFlag("database-url", reconcileCmd.Flags().Lookup("database-url"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	pgFile = viper.GetString("pg-file")
	bankFile = viper.GetString("bank-file")
	cycleDate = viper.GetString("cycle-date")
	bankFormat = viper.GetString("bank-format")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	flatTolerancePaise = viper.GetInt64("amount-tolerance")
	tolerancePercent = viper.GetFloat64("tolerance-percent")
	dateWindowDays = viper.GetInt("date-window")
	allowRRNMatch = viper.GetBool("allow-rrn-match")
	databaseURL = viper.GetString("database-url")

	if err := validateFileExists(pgFile, "gateway transaction file"); err != nil {
		return err
	}
	if err := validateFileExists(bankFile, "bank statement file"); err != nil {
		return err
	}

	if _, err := time.Parse("2006-01-02", cycleDate); err != nil {
		return fmt.Errorf("invalid cycle date format, use YYYY-MM-DD: %w", err)
	}
	if parsers.GetBankFileConfig(bankFormat) == nil {
		return fmt.Errorf("unknown bank format %q, valid formats: standard, mis_export, semicolon", bankFormat)
	}
	if _, err := report.ParseFormat(outputFormat); err != nil {
		return err
	}
	if tolerancePercent < 0 || tolerancePercent > 100 {
		return fmt.Errorf("tolerance percent must be between 0 and 100")
	}
	return nil
}

func validateFileExists(path, description string) error {
	if path == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, path)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, path)
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	gatewayParser, err := parsers.NewGatewayParser(nil, log)
	if err != nil {
		return err
	}
	pgRecords, pgStats, err := gatewayParser.Parse(pgFile)
	if err != nil {
		return err
	}

	bankParser, err := parsers.NewBankStatementParser(parsers.GetBankFileConfig(bankFormat), log)
	if err != nil {
		return err
	}
	bankRecords, bankStats, err := bankParser.Parse(bankFile)
	if err != nil {
		return err
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Gateway file: %s\n", pgStats)
		fmt.Fprintf(os.Stderr, "Bank statement: %s\n", bankStats)
	}

	engineCfg := recon.DefaultConfig()
	engineCfg.AmountTolerancePaise = flatTolerancePaise
	engineCfg.AmountTolerancePercent = tolerancePercent / 100
	engineCfg.DateWindowDays = dateWindowDays
	engineCfg.AllowAlternateReferenceMatch = allowRRNMatch

	engine, err := recon.NewReconciler(engineCfg, log)
	if err != nil {
		return err
	}
	result, err := engine.Reconcile(pgRecords, bankRecords, cycleDate)
	if err != nil {
		return err
	}

	if databaseURL != "" {
		runs, err := store.Open(ctx, databaseURL, log)
		if err != nil {
			return err
		}
		defer runs.Close()
		if err := runs.Migrate(ctx); err != nil {
			return err
		}
		runID, err := runs.SaveRun(ctx, result)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Run stored: %s\n", runID)
	}

	format, _ := report.ParseFormat(outputFormat)
	gen, err := report.NewGenerator(&report.Config{
		Format:         format,
		IncludeMatches: includeMatches,
		MaxItems:       50,
	})
	if err != nil {
		return err
	}

	output := os.Stdout
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return errors.InputError(errors.CodeInvalidInput,
				fmt.Sprintf("cannot create output file %s", outputFile), err)
		}
		defer output.Close()
	}
	if err := gen.Generate(result, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if showSettlement {
		if err := printSettlement(result); err != nil {
			return err
		}
	}
	return nil
}

func printSettlement(result *recon.Result) error {
	calc, err := settlement.NewCalculator(nil, nil)
	if err != nil {
		return err
	}
	cycle, err := calc.Settle(result)
	if err != nil {
		return err
	}

	fmt.Println("\nSETTLEMENT")
	for _, p := range cycle.Payouts {
		fmt.Printf("  %-12s %3d txns  gross %s  commission %s  gst %s  reserve %s  net %s\n",
			p.MerchantID, p.TransactionCount,
			money.FormatPaise(p.GrossPaise), money.FormatPaise(p.CommissionPaise),
			money.FormatPaise(p.GSTPaise), money.FormatPaise(p.ReservePaise),
			money.FormatPaise(p.NetPaise))
	}
	fmt.Printf("  Total: gross %s, net %s, reserve %s\n",
		money.FormatPaise(cycle.TotalGross), money.FormatPaise(cycle.TotalNet),
		money.FormatPaise(cycle.TotalReserve))
	return nil
}
