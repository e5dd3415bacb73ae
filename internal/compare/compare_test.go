package compare

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"referendum-cunli/internal/refdata"
)

func writeCurrent(t *testing.T, dir string) string {
	t.Helper()
	ds := refdata.NewDataset()
	ds.Villages["67000230015"] = &refdata.VillageResult{
		Villcode: "67000230015", County: "臺南市", District: "東區", Village: "大同里",
		TotalVotes: refdata.VoteCounts{Agree: 120, Disagree: 80},
	}
	ds.Villages["67000240002"] = &refdata.VillageResult{
		Villcode: "67000240002", County: "臺南市", District: "南區", Village: "明德里",
		TotalVotes: refdata.VoteCounts{Agree: 50, Disagree: 30},
	}
	ds.Villages["67000250001"] = &refdata.VillageResult{
		Villcode: "67000250001", County: "臺南市", District: "北區", Village: "新設里",
		TotalVotes: refdata.VoteCounts{Agree: 10, Disagree: 5},
	}
	path := filepath.Join(dir, "current.json")
	if err := ds.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func writePrior(t *testing.T, dir string) string {
	t.Helper()
	data := `{
      "67000230015": {"17_agree": 100, "17_disagree": 90},
      "67000240002": {"17_agree": 0, "17_disagree": 40},
      "67000260009": {"17_agree": 77, "17_disagree": 33},
      "67000270001": {"18_agree": 5, "18_disagree": 6}
    }`
	path := filepath.Join(dir, "prior.json")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runAndRead(t *testing.T) map[string][]string {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		CurrentPath: writeCurrent(t, dir),
		PriorPath:   writePrior(t, dir),
		OutFile:     filepath.Join(dir, "comparison.csv"),
		CaseID:      17,
	}
	if err := Run(cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}
	f, err := os.Open(cfg.OutFile)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) < 2 {
		t.Fatalf("csv too short: %d records", len(records))
	}
	header := records[0]
	byCode := map[string][]string{}
	for _, rec := range records[1:] {
		if len(rec) != len(header) {
			t.Fatalf("ragged csv row: %v", rec)
		}
		byCode[rec[0]] = rec
	}
	return byCode
}

// 列号与 csvHeader 对应
const (
	colAgreeCur  = 4
	colAgreePri  = 6
	colAgreeDiff = 8
	colAgreePct  = 10
	colStatus    = 12
)

func TestRun_MatchedRow(t *testing.T) {
	rows := runAndRead(t)
	r, ok := rows["67000230015"]
	if !ok {
		t.Fatal("matched row missing")
	}
	if r[colAgreeCur] != "120" || r[colAgreePri] != "100" {
		t.Fatalf("counts: %v", r)
	}
	if r[colAgreeDiff] != "20" {
		t.Fatalf("diff = %q", r[colAgreeDiff])
	}
	if r[colAgreePct] != "20.0%" {
		t.Fatalf("pct = %q", r[colAgreePct])
	}
	if r[colStatus] != refdata.StatusMatched {
		t.Fatalf("status = %q", r[colStatus])
	}
}

func TestRun_ZeroPrior(t *testing.T) {
	rows := runAndRead(t)
	r, ok := rows["67000240002"]
	if !ok {
		t.Fatal("zero-prior row missing")
	}
	if r[colAgreePct] != "N/A" {
		t.Fatalf("pct with zero prior = %q", r[colAgreePct])
	}
	if r[colStatus] != refdata.StatusMatched {
		t.Fatalf("status = %q", r[colStatus])
	}
}

func TestRun_CurrentOnly(t *testing.T) {
	rows := runAndRead(t)
	r, ok := rows["67000250001"]
	if !ok {
		t.Fatal("current-only row missing")
	}
	if r[colStatus] != refdata.StatusCurrentOnly {
		t.Fatalf("status = %q", r[colStatus])
	}
	if r[colAgreePri] != "" || r[colAgreeDiff] != "" {
		t.Fatalf("prior cells must stay empty: %v", r)
	}
	if r[colAgreePct] != "N/A" {
		t.Fatalf("pct = %q", r[colAgreePct])
	}
}

func TestRun_PriorOnly(t *testing.T) {
	rows := runAndRead(t)
	r, ok := rows["67000260009"]
	if !ok {
		t.Fatal("prior-only row missing")
	}
	if r[colStatus] != refdata.StatusPriorOnly {
		t.Fatalf("status = %q", r[colStatus])
	}
	if r[colAgreeCur] != "" {
		t.Fatalf("current cells must stay empty: %v", r)
	}
	if r[colAgreePri] != "77" {
		t.Fatalf("prior agree = %q", r[colAgreePri])
	}
}

func TestRun_OtherCaseExcluded(t *testing.T) {
	rows := runAndRead(t)
	if _, ok := rows["67000270001"]; ok {
		t.Fatal("village with only case 18 keys must not join a case 17 comparison")
	}
}

func TestLoadPrior_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadPrior(filepath.Join(dir, "absent.json"), 17); err == nil {
		t.Fatal("expected error for missing prior file")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"x": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPrior(bad, 17); err == nil {
		t.Fatal("expected error for malformed prior dataset")
	}
	wrongCase := filepath.Join(dir, "wrong.json")
	if err := os.WriteFile(wrongCase, []byte(`{"a": {"18_agree": 1, "18_disagree": 2}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPrior(wrongCase, 17); err == nil {
		t.Fatal("expected error when no village carries the requested case")
	}
}

func TestFormatPctChange(t *testing.T) {
	if got := FormatPctChange(120, 100, true); got != "20.0%" {
		t.Fatalf("got %q", got)
	}
	if got := FormatPctChange(50, 0, true); got != "N/A" {
		t.Fatalf("zero prior: got %q", got)
	}
	if got := FormatPctChange(80, 100, true); got != "-20.0%" {
		t.Fatalf("negative change: got %q", got)
	}
	if got := FormatPctChange(5, 0, false); got != "N/A" {
		t.Fatalf("unmatched: got %q", got)
	}
}
