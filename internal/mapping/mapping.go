// 包 mapping：人工维护的 VILLCODE 对照表
// 背景：部分投开票所在报表上的名称无法经图资索引解析（跨村里共用、并村改名等），
// 由人工在对照表补登；一笔条目可指向多个村里，票数按权重拆分。
// 约束：对照表只读加载，转换过程不回写；未填 suggested_villcode 的条目视为待补，跳过。
package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"referendum-cunli/internal/refdata"
)

// Entry：对照表中的一笔条目（文件与数据库共用的交换形态）
// 多村里条目：village 以「、」分隔村里名，suggested_villcode 以逗号分隔等数量的代码，
// weights 可选，缺省等权
type Entry struct {
	County            string  `json:"county"`
	District          string  `json:"district"`
	Village           string  `json:"village"`
	SuggestedVillcode string  `json:"suggested_villcode"`
	Weights           []int64 `json:"weights,omitempty"`
	Notes             string  `json:"notes,omitempty"`
}

// Key：条目的匹配键
func (e Entry) Key() string {
	return refdata.LookupKey(e.County, e.District, e.Village)
}

// Target：拆分目标村里
type Target struct {
	Villcode string
	Village  string
	Weight   int64
}

// Table：按匹配键索引的对照表
type Table struct {
	single map[string]string
	multi  map[string][]Target
}

// New：空对照表
func New() *Table {
	return &Table{single: map[string]string{}, multi: map[string][]Target{}}
}

// LoadFile：从 JSON 文件加载对照表；文件不存在视为无对照表，返回空表
// 异常：条目内容不合法（名称与代码数不符、权重不合法）立即失败，避免错拆票数
func LoadFile(path string) (*Table, error) {
	t := New()
	if path == "" {
		return t, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("read mapping %s: %w", path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parse mapping %s: %w", path, err)
	}
	for _, e := range entries {
		if err := t.Add(e); err != nil {
			return nil, fmt.Errorf("mapping %s: %w", path, err)
		}
	}
	return t, nil
}

// Add：登记一笔条目
func (t *Table) Add(e Entry) error {
	code := strings.TrimSpace(e.SuggestedVillcode)
	if code == "" {
		return nil // 待补条目
	}
	key := e.Key()
	if !strings.Contains(e.Village, "、") {
		t.AddSingle(key, code)
		return nil
	}
	names := splitTrim(e.Village, "、")
	codes := splitTrim(code, ",")
	if len(names) != len(codes) {
		return fmt.Errorf("entry %s: %d villages but %d villcodes", key, len(names), len(codes))
	}
	if e.Weights != nil && len(e.Weights) != len(codes) {
		return fmt.Errorf("entry %s: %d villcodes but %d weights", key, len(codes), len(e.Weights))
	}
	targets := make([]Target, len(codes))
	for i := range codes {
		w := int64(1)
		if e.Weights != nil {
			w = e.Weights[i]
		}
		targets[i] = Target{Villcode: codes[i], Village: names[i], Weight: w}
	}
	return t.AddMulti(key, targets)
}

// AddSingle：登记单村里条目
func (t *Table) AddSingle(key, villcode string) {
	t.single[key] = villcode
}

// AddMulti：登记多村里拆分条目，要求至少两个目标且权重为正
func (t *Table) AddMulti(key string, targets []Target) error {
	if len(targets) < 2 {
		return fmt.Errorf("entry %s: multi-village entry needs at least 2 targets", key)
	}
	for _, tg := range targets {
		if tg.Weight <= 0 {
			return fmt.Errorf("entry %s: weight %d must be positive", key, tg.Weight)
		}
	}
	t.multi[key] = targets
	return nil
}

// ResolveSingle：单村里条目查询
func (t *Table) ResolveSingle(key string) (string, bool) {
	code, ok := t.single[key]
	return code, ok
}

// ResolveMulti：多村里条目查询
func (t *Table) ResolveMulti(key string) ([]Target, bool) {
	ts, ok := t.multi[key]
	return ts, ok
}

// Counts：单村里与多村里条目数，供启动日志
func (t *Table) Counts() (single, multi int) {
	return len(t.single), len(t.multi)
}

func splitTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
