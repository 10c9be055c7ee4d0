package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"casedesk/internal/sampledata"
)

func main() {
	workbook := flag.String("workbook", "File.xlsx", "output workbook path")
	mail := flag.String("mail", "mail.csv", "output email CSV path")
	sheets := flag.String("sheets", "Hình sự,Dân sự,Hành chính", "comma-separated sheet names")
	rows := flag.Int("rows", 50, "data rows per sheet")
	mailRows := flag.Int("mail-rows", 40, "email rows")
	seed := flag.Int64("seed", 42, "RNG seed (deterministic)")
	start := flag.String("start", "2024-01-02", "first issue date (YYYY-MM-DD)")
	blank := flag.Float64("blank-stt", 0.1, "fraction of rows without an STT")
	flag.Parse()

	startDate, err := time.ParseInLocation("2006-01-02", *start, time.UTC)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid -start (expected YYYY-MM-DD):", err)
		os.Exit(2)
	}

	cfg := sampledata.DefaultConfig()
	cfg.Sheets = nil
	for _, name := range strings.Split(*sheets, ",") {
		if name = strings.TrimSpace(name); name != "" {
			cfg.Sheets = append(cfg.Sheets, name)
		}
	}
	cfg.Rows = *rows
	cfg.MailRows = *mailRows
	cfg.Seed = *seed
	cfg.StartDate = startDate
	cfg.BlankSTTRate = *blank

	ds, err := sampledata.Generate(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error generating dataset:", err)
		os.Exit(2)
	}

	if err := sampledata.WriteXLSX(*workbook, ds); err != nil {
		fmt.Fprintln(os.Stderr, "error writing workbook:", err)
		os.Exit(1)
	}
	if err := sampledata.WriteCSV(*mail, ds); err != nil {
		fmt.Fprintln(os.Stderr, "error writing csv:", err)
		os.Exit(1)
	}

	fmt.Printf("Workbook: %s (%d sheets x %d rows)\n", *workbook, len(ds.Sheets), cfg.Rows)
	fmt.Printf("Mail: %s (%d rows)\n", *mail, len(ds.MailRows))
}
