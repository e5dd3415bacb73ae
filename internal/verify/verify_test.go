package verify

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cellRef, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func fixture(agreeRef int) [][]interface{} {
	return [][]interface{}{
		{"行政區別", "村里別", "投開票所別", "同意票數", "不同意票數", "有效票數", "無效票數", "投票數", "未領票數", "發出票數", "用餘票數", "投票權人數", "投票率"},
		{"總　計", "", "", agreeRef, 250, 750, 15, 765, 135, 765, 0, 900, "85.0%"},
		{"東區", "大同里", "0001", 300, 100, 400, 10, 410, 90, 410, 0, 500, 82.0},
		{"", "", "0002", 200, 150, 350, 5, 355, 45, 355, 0, 400, 88.75},
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	rawDir := filepath.Join(dir, "raw")
	if err := os.Mkdir(rawDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeWorkbook(t, filepath.Join(rawDir, "縣表3-臺南市-全國性公民投票.xlsx"), fixture(500))

	cfg := Config{RawDir: rawDir, OutFile: filepath.Join(dir, "verification.json")}
	report, err := Run(cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Counties) != 1 {
		t.Fatalf("counties = %d", len(report.Counties))
	}
	ct := report.Counties[0]
	if ct.County != "臺南市" || ct.Votes.Agree != 500 || ct.StationCount != 2 {
		t.Fatalf("county recount = %+v", ct)
	}
	if report.Grand.Votes.Total != 765 || report.Grand.EligibleVoters != 900 {
		t.Fatalf("grand totals = %+v", report.Grand)
	}
	// 同意票率 = 500/750
	if report.Grand.AgreeRate < 66.6 || report.Grand.AgreeRate > 66.7 {
		t.Fatalf("agree rate = %v", report.Grand.AgreeRate)
	}

	b, err := os.ReadFile(cfg.OutFile)
	if err != nil {
		t.Fatal(err)
	}
	var onDisk Report
	if err := json.Unmarshal(b, &onDisk); err != nil {
		t.Fatal(err)
	}
	if onDisk.Grand.Votes.Total != 765 {
		t.Fatalf("report on disk = %+v", onDisk.Grand)
	}
}

func TestRun_Mismatch(t *testing.T) {
	dir := t.TempDir()
	rawDir := filepath.Join(dir, "raw")
	if err := os.Mkdir(rawDir, 0o755); err != nil {
		t.Fatal(err)
	}
	// 總計行同意票被篡改
	writeWorkbook(t, filepath.Join(rawDir, "縣表3-臺南市-全國性公民投票.xlsx"), fixture(501))

	cfg := Config{RawDir: rawDir, OutFile: filepath.Join(dir, "verification.json")}
	if _, err := Run(cfg); err == nil {
		t.Fatal("expected recount mismatch error")
	}
}

func TestRun_EmptyDir(t *testing.T) {
	cfg := Config{RawDir: t.TempDir(), OutFile: "x"}
	if _, err := Run(cfg); err == nil {
		t.Fatal("expected error for directory without workbooks")
	}
}
