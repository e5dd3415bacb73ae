// 包 geo：村里界图资索引
// 背景：从村里界 GeoJSON（COUNTYNAME/TOWNNAME/VILLNAME/VILLCODE）建立名称到代码的索引，
// 供转换任务解析 VILLCODE；几何数据与此无关，解析时直接丢弃。
package geo

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"referendum-cunli/internal/refdata"
)

// Index：county|town|village → VILLCODE 的只读索引
type Index struct {
	byKey map[string]string
}

type featureCollection struct {
	Features []struct {
		Properties struct {
			County   string `json:"COUNTYNAME"`
			Town     string `json:"TOWNNAME"`
			Village  string `json:"VILLNAME"`
			Villcode string `json:"VILLCODE"`
		} `json:"properties"`
	} `json:"features"`
}

// ParseFile：读取村里界 GeoJSON 并建索引
// 约束：生产图资为数百 MB 的 FeatureCollection，用流式 Decoder 而非整读内存两份
func ParseFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geo file %s: %w", path, err)
	}
	defer f.Close()
	var fc featureCollection
	if err := json.NewDecoder(f).Decode(&fc); err != nil {
		return nil, fmt.Errorf("parse geo file %s: %w", path, err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("geo file %s: no features", path)
	}
	idx := &Index{byKey: make(map[string]string, len(fc.Features))}
	for _, ft := range fc.Features {
		p := ft.Properties
		if p.Villcode == "" {
			continue
		}
		idx.byKey[refdata.LookupKey(p.County, p.Town, p.Village)] = p.Villcode
	}
	return idx, nil
}

// FromMap：从已有映射构造索引（Redis 快照与测试用）
func FromMap(m map[string]string) *Index {
	return &Index{byKey: m}
}

// Size：索引条目数
func (x *Index) Size() int { return len(x.byKey) }

// Lookup：按清洗后的键查询 VILLCODE，依次尝试：
// 精确键 → 去掉乡镇名行政前缀 → 村里名「里/村」后缀变体（原始脚本的容错顺序）
func (x *Index) Lookup(county, district, village string) (string, bool) {
	county = refdata.CleanField(county)
	district = refdata.CleanField(district)
	village = refdata.CleanField(village)

	if code, ok := x.byKey[county+"|"+district+"|"+village]; ok {
		return code, true
	}
	if d := stripDistrictPrefix(district); d != district {
		if code, ok := x.byKey[county+"|"+d+"|"+village]; ok {
			return code, true
		}
	}
	for _, v := range villageVariants(village) {
		if code, ok := x.byKey[county+"|"+district+"|"+v]; ok {
			return code, true
		}
	}
	return "", false
}

// stripDistrictPrefix：去掉乡镇名开头的 市/縣/區/鄉/鎮 单字
func stripDistrictPrefix(d string) string {
	for _, p := range []string{"市", "縣", "區", "鄉", "鎮"} {
		if strings.HasPrefix(d, p) {
			return strings.TrimPrefix(d, p)
		}
	}
	return d
}

// villageVariants：村里名的后缀变体，含补后缀与去后缀重补两类
func villageVariants(v string) []string {
	stripped := strings.ReplaceAll(strings.ReplaceAll(v, "里", ""), "村", "")
	out := make([]string, 0, 4)
	if !strings.HasSuffix(v, "里") {
		out = append(out, v+"里")
	}
	if !strings.HasSuffix(v, "村") {
		out = append(out, v+"村")
	}
	if stripped != v {
		out = append(out, stripped+"里", stripped+"村")
	}
	return out
}
