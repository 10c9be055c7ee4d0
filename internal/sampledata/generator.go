package sampledata

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"casedesk/domain/grid"
	"casedesk/domain/table"

	"github.com/xuri/excelize/v2"
)

const dateLayout = "02/01/2006"

// Sheet is one generated case register: a title row, a two-row grouped header
// anchored on the STT cell, then data rows with a leading internal-ID column and
// a trailing checksum column.
type Sheet struct {
	Name string
	Rows [][]interface{}
}

// Dataset is a generated workbook plus an email export
type Dataset struct {
	Sheets      []Sheet
	MailHeaders []string
	MailRows    [][]string
}

type Config struct {
	Sheets    []string
	Rows      int // data rows per sheet
	MailRows  int
	Seed      int64
	StartDate time.Time

	// Fraction of data rows left without an STT, like subtotal or note rows
	BlankSTTRate float64
}

func DefaultConfig() Config {
	return Config{
		Sheets:       []string{"Hình sự", "Dân sự", "Hành chính"},
		Rows:         50,
		MailRows:     40,
		Seed:         42,
		StartDate:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		BlankSTTRate: 0.1,
	}
}

var (
	procurators = []string{"Nguyễn Văn An", "Trần Thị Bình", "Lê Minh Châu", "Phạm Quốc Dũng"}
	decisions   = []string{"Quyết định đưa vụ án ra xét xử", "Quyết định mở phiên họp", "Quyết định tạm đình chỉ"}
	rulings     = []string{"Bản án sơ thẩm", "Quyết định đình chỉ", "Quyết định công nhận hòa giải thành"}
	subjects    = []string{"Thông báo thụ lý", "Quyết định xét xử", "Bản án", "Yêu cầu bổ sung hồ sơ", "Lịch phiên tòa"}
)

// groups maps a business column to its upper header label and lower sub-label
var groups = map[string][2]string{
	"Số thụ lý":            {"Thụ lý", "Số"},
	"Ngày ban hành thụ lý": {"Thụ lý", "Ngày ban hành"},
	"Ngày nhận thụ lý":     {"Thụ lý", "Ngày nhận"},
	"Văn bản giải quyết":   {"Giải quyết", "Văn bản"},
	"Số giải quyết":        {"Giải quyết", "Số"},
	"Ngày ban hành":        {"Giải quyết", "Ngày ban hành"},
	"Ngày nhận":            {"Giải quyết", "Ngày nhận"},
}

func Generate(cfg Config) (*Dataset, error) {
	if len(cfg.Sheets) == 0 {
		return nil, fmt.Errorf("at least one sheet is required")
	}
	if cfg.Rows <= 0 {
		return nil, fmt.Errorf("rows must be > 0")
	}
	if cfg.BlankSTTRate < 0 || cfg.BlankSTTRate >= 1 {
		return nil, fmt.Errorf("blank STT rate must be in [0, 1)")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	ds := &Dataset{}
	for _, name := range cfg.Sheets {
		ds.Sheets = append(ds.Sheets, Sheet{Name: name, Rows: caseRows(rng, cfg, name)})
	}
	ds.MailHeaders, ds.MailRows = mailRows(rng, cfg)
	return ds, nil
}

func headerRows() (upper, lower []interface{}) {
	width := len(table.CaseColumns) + 2
	upper = make([]interface{}, width)
	lower = make([]interface{}, width)

	upper[0] = "Mã nội bộ"
	for k, name := range table.CaseColumns {
		col := k + 1
		if k == 0 {
			lower[col] = grid.DefaultAnchor
			continue
		}
		if g, ok := groups[name]; ok {
			upper[col] = g[0]
			lower[col] = g[1]
			continue
		}
		upper[col] = name
	}
	upper[width-1] = "Kiểm tra"
	return upper, lower
}

func caseRows(rng *rand.Rand, cfg Config, kind string) [][]interface{} {
	width := len(table.CaseColumns) + 2
	title := make([]interface{}, width)
	title[1] = "DANH SÁCH VỤ VIỆC " + kind

	upper, lower := headerRows()
	rows := [][]interface{}{title, upper, lower}

	stt := 0
	for i := 0; i < cfg.Rows; i++ {
		row := make([]interface{}, width)
		row[0] = fmt.Sprintf("%s-%04d", initials(kind), i+1)
		row[width-1] = "x"
		if rng.Float64() < cfg.BlankSTTRate {
			row[2] = "Cộng"
			rows = append(rows, row)
			continue
		}
		stt++

		issued := cfg.StartDate.AddDate(0, 0, rng.Intn(300))
		received := issued.AddDate(0, 0, 1+rng.Intn(5))
		extension := 0
		if rng.Intn(4) == 0 {
			extension = 30
		}
		due := issued.AddDate(0, 0, 60+extension)
		_, week := received.ISOWeek()

		values := []interface{}{
			stt,
			kind,
			fmt.Sprintf("Vụ án %s số %d", kind, stt),
			fmt.Sprintf("%d/%d/TLST", stt, issued.Year()),
			issued.Format(dateLayout),
			received.Format(dateLayout),
			extension,
			due.Format(dateLayout),
			int(due.Sub(cfg.StartDate).Hours() / 24),
			procurators[rng.Intn(len(procurators))],
			week,
			int(received.Month()),
			nil, nil, nil, nil, nil, nil, nil, nil,
			nil,
			nil,
			received.AddDate(0, 0, 3).Format(dateLayout),
			nil,
		}

		if rng.Intn(2) == 0 {
			hearing := received.AddDate(0, 0, 20+rng.Intn(30))
			resolved := hearing.AddDate(0, 0, 1+rng.Intn(10))
			resolvedReceived := resolved.AddDate(0, 0, 1+rng.Intn(3))
			_, rweek := resolvedReceived.ISOWeek()
			values[12] = decisions[rng.Intn(len(decisions))]
			values[13] = hearing.Format(dateLayout)
			values[14] = rulings[rng.Intn(len(rulings))]
			values[15] = fmt.Sprintf("%d/%d/QĐ", stt, resolved.Year())
			values[16] = resolved.Format(dateLayout)
			values[17] = resolvedReceived.Format(dateLayout)
			values[18] = rweek
			values[19] = int(resolvedReceived.Month())
			values[20] = rng.Intn(3) == 0
			values[23] = resolvedReceived.AddDate(0, 0, 5).Format(dateLayout)
		}
		if rng.Intn(5) == 0 {
			values[21] = "Đang xác minh"
		}

		copy(row[1:], values)
		rows = append(rows, row)
	}
	return rows
}

func mailRows(rng *rand.Rand, cfg Config) ([]string, [][]string) {
	headers := []string{"id", "from", "subject", "received", "size_kb", "read"}
	rows := make([][]string, cfg.MailRows)
	for i := range rows {
		received := cfg.StartDate.Add(time.Duration(rng.Intn(300*24*60)) * time.Minute)
		rows[i] = []string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("toa%d@toaan.gov.vn", 1+rng.Intn(5)),
			subjects[rng.Intn(len(subjects))],
			received.Format("2006-01-02 15:04:05"),
			strconv.FormatFloat(float64(rng.Intn(5000))/10, 'f', 1, 64),
			strconv.FormatBool(rng.Intn(3) > 0),
		}
	}
	return headers, rows
}

// initials abbreviates a sheet name by the first letter of each word
func initials(kind string) string {
	var b strings.Builder
	for _, word := range strings.Fields(kind) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
	}
	if b.Len() == 0 {
		return "VA"
	}
	return b.String()
}

func WriteCSV(path string, ds *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(ds.MailHeaders); err != nil {
		return err
	}
	if err := w.WriteAll(ds.MailRows); err != nil {
		return err
	}
	return w.Error()
}

func WriteXLSX(path string, ds *Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range ds.Sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return err
		}

		for r, row := range sheet.Rows {
			for c, v := range row {
				if v == nil {
					continue
				}
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				if err := f.SetCellValue(sheet.Name, cell, v); err != nil {
					return err
				}
			}
		}
	}

	return f.SaveAs(path)
}
