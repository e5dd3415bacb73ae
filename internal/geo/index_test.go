package geo

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type":"Feature","properties":{"VILLCODE":"67000230015","COUNTYNAME":"臺南市","TOWNNAME":"東區","VILLNAME":"大同里"},"geometry":{"type":"Polygon","coordinates":[]}},
    {"type":"Feature","properties":{"VILLCODE":"67000240002","COUNTYNAME":"臺南市","TOWNNAME":"南區","VILLNAME":"明德里"},"geometry":{"type":"Polygon","coordinates":[]}},
    {"type":"Feature","properties":{"VILLCODE":"10016040007","COUNTYNAME":"澎湖縣","TOWNNAME":"望安鄉","VILLNAME":"東吉村"},"geometry":{"type":"Polygon","coordinates":[]}},
    {"type":"Feature","properties":{"VILLCODE":"","COUNTYNAME":"臺南市","TOWNNAME":"東區","VILLNAME":"無代碼里"},"geometry":null}
  ]
}`

func writeGeoFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cunli.json")
	if err := os.WriteFile(path, []byte(sampleGeoJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseFile(t *testing.T) {
	idx, err := ParseFile(writeGeoFile(t))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if idx.Size() != 3 {
		t.Fatalf("expected 3 entries (empty VILLCODE skipped), got %d", idx.Size())
	}
	code, ok := idx.Lookup("臺南市", "東區", "大同里")
	if !ok || code != "67000230015" {
		t.Fatalf("exact lookup: got %q ok=%v", code, ok)
	}
}

func TestLookup_Variants(t *testing.T) {
	idx, err := ParseFile(writeGeoFile(t))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	// 村里名缺「里」后缀
	if code, ok := idx.Lookup("臺南市", "東區", "大同"); !ok || code != "67000230015" {
		t.Fatalf("suffix variant: got %q ok=%v", code, ok)
	}
	// 村里名「村」写成「里」
	if code, ok := idx.Lookup("澎湖縣", "望安鄉", "東吉里"); !ok || code != "10016040007" {
		t.Fatalf("suffix swap variant: got %q ok=%v", code, ok)
	}
	// 乡镇名带行政前缀
	if code, ok := idx.Lookup("臺南市", "區南區", "明德里"); !ok || code != "67000240002" {
		t.Fatalf("district prefix variant: got %q ok=%v", code, ok)
	}
	// 字段带空白
	if code, ok := idx.Lookup(" 臺南市 ", "東區", " 大同里 "); !ok || code != "67000230015" {
		t.Fatalf("whitespace cleanup: got %q ok=%v", code, ok)
	}
	if _, ok := idx.Lookup("臺南市", "東區", "幽靈里"); ok {
		t.Fatal("unknown village must not resolve")
	}
}

func TestParseFile_Errors(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	empty := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(empty, []byte(`{"type":"FeatureCollection","features":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseFile(empty); err == nil {
		t.Fatal("expected error for empty feature collection")
	}
}

func TestFromMap(t *testing.T) {
	idx := FromMap(map[string]string{"臺南市|東區|大同里": "67000230015"})
	if code, ok := idx.Lookup("臺南市", "東區", "大同里"); !ok || code != "67000230015" {
		t.Fatalf("FromMap lookup: got %q ok=%v", code, ok)
	}
}
