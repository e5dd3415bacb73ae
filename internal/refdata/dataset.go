package refdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// CleanField：裁剪字段用于键匹配；来源报表常带缩进与零宽空白
func CleanField(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "　", " "))
}

// LookupKey：county|district|village 形式的匹配键，手工映射与地理索引共用
func LookupKey(county, district, village string) string {
	return CleanField(county) + "|" + CleanField(district) + "|" + CleanField(village)
}

// NewDataset：空输出文档
func NewDataset() *Dataset {
	return &Dataset{
		Counties: map[string]*CountyTotals{},
		Villages: map[string]*VillageResult{},
	}
}

// WriteFile：以缩进 JSON 写出数据集
// 约束：map 键序由 encoding/json 排序，同一输入重复运行输出逐字节一致
func (d *Dataset) WriteFile(path string) error {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// LoadDataset：读入转换输出；villages 缺失或为空视为输入错误，立即失败
func LoadDataset(path string) (*Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	var d Dataset
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	if len(d.Villages) == 0 {
		return nil, errors.New("dataset " + path + ": no villages key or empty villages")
	}
	return &d, nil
}

// WriteUnmatched：写出未匹配清单，按 lookup_key 排序去重后的切片由调用方提供
func WriteUnmatched(path string, entries []UnmatchedEntry) error {
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
