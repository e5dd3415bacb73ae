package refdata

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestLookupKey(t *testing.T) {
	if got := LookupKey(" 臺南市 ", "東區", "大同里　"); got != "臺南市|東區|大同里" {
		t.Fatalf("LookupKey = %q", got)
	}
}

func TestDataset_WriteLoadRoundTrip(t *testing.T) {
	ds := NewDataset()
	ds.Villages["67000230015"] = &VillageResult{
		Villcode: "67000230015", County: "臺南市", District: "東區", Village: "大同里",
		TotalVotes: VoteCounts{Agree: 500, Disagree: 250, Valid: 750, Invalid: 15, Total: 765},
	}
	ds.Counties["臺南市"] = &CountyTotals{County: "臺南市", Votes: VoteCounts{Agree: 500}}

	path := filepath.Join(t.TempDir(), "out.json")
	if err := ds.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	v := got.Villages["67000230015"]
	if v == nil || !v.TotalVotes.Equal(ds.Villages["67000230015"].TotalVotes) {
		t.Fatalf("round trip lost votes: %+v", v)
	}
}

func TestDataset_StableOutput(t *testing.T) {
	build := func() *Dataset {
		ds := NewDataset()
		// 乱序填入，输出仍按键排序
		for _, code := range []string{"9", "1", "5", "3"} {
			ds.Villages[code] = &VillageResult{Villcode: code}
		}
		return ds
	}
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.json")
	p2 := filepath.Join(dir, "b.json")
	if err := build().WriteFile(p1); err != nil {
		t.Fatal(err)
	}
	if err := build().WriteFile(p2); err != nil {
		t.Fatal(err)
	}
	b1, _ := os.ReadFile(p1)
	b2, _ := os.ReadFile(p2)
	if !bytes.Equal(b1, b2) {
		t.Fatal("identical datasets serialized differently")
	}
}

func TestLoadDataset_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadDataset(filepath.Join(dir, "absent.json")); err == nil {
		t.Fatal("expected error for missing dataset")
	}
	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`{"villages":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDataset(empty); err == nil {
		t.Fatal("expected error for dataset without villages")
	}
}
