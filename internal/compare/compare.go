// 包 compare：两届公投的村里级比对任务
// 背景：转换输出（当届）与外部提供的往届数据集按 VILLCODE 对齐，算出差值与变化率，输出 CSV。
// 约束：取两边键空间的并集，单边存在的村里保留并以 status 标注，不与匹配行混同；
// 往届票数为零或缺席时变化率输出 N/A 而非除零。
package compare

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"referendum-cunli/internal/logger"
	"referendum-cunli/internal/refdata"
)

// Config：比对任务的输入输出与公投案号
type Config struct {
	CurrentPath string
	PriorPath   string
	OutFile     string
	CaseID      int // 往届数据集中的公投案号（键形如 17_agree）
}

// PriorCounts：往届数据集中单一村里的同意/不同意票数
type PriorCounts struct {
	Agree    int64
	Disagree int64
}

var csvHeader = []string{
	"villcode", "county", "district", "village",
	"agree_current", "disagree_current",
	"agree_prior", "disagree_prior",
	"agree_diff", "disagree_diff",
	"agree_pct_change", "disagree_pct_change",
	"status",
}

// LoadPrior：读取往届数据集（VILLCODE → {<case>_agree, <case>_disagree, …}）
// 异常：文件缺失或不是该形态立即失败；同时缺两个案号键的村里视为该届无此村里
func LoadPrior(path string, caseID int) (map[string]PriorCounts, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prior dataset %s: %w", path, err)
	}
	var raw map[string]map[string]json.Number
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse prior dataset %s: %w", path, err)
	}
	agreeKey := strconv.Itoa(caseID) + "_agree"
	disagreeKey := strconv.Itoa(caseID) + "_disagree"
	out := make(map[string]PriorCounts, len(raw))
	for villcode, fields := range raw {
		a, okA := fields[agreeKey]
		d, okD := fields[disagreeKey]
		if !okA || !okD {
			continue
		}
		av, errA := a.Int64()
		dv, errD := d.Int64()
		if errA != nil || errD != nil {
			return nil, fmt.Errorf("prior dataset %s: non-integer counts for %s case %d", path, villcode, caseID)
		}
		out[villcode] = PriorCounts{Agree: av, Disagree: dv}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("prior dataset %s: no villages carry case %d", path, caseID)
	}
	return out, nil
}

// Run：执行比对并写出 CSV
func Run(cfg Config) error {
	ds, err := refdata.LoadDataset(cfg.CurrentPath)
	if err != nil {
		return err
	}
	prior, err := LoadPrior(cfg.PriorPath, cfg.CaseID)
	if err != nil {
		return err
	}
	l := logger.With("job", "compare")
	l.Info("compare_start", "current_villages", len(ds.Villages), "prior_villages", len(prior), "case", cfg.CaseID)

	rows := BuildRows(ds, prior)
	if err := writeCSV(cfg.OutFile, rows); err != nil {
		return fmt.Errorf("write comparison %s: %w", cfg.OutFile, err)
	}

	var matched, currentOnly, priorOnly int
	var agreeCur, disagreeCur, agreePri, disagreePri int64
	for _, r := range rows {
		switch r.Status {
		case refdata.StatusMatched:
			matched++
			agreeCur += r.AgreeCurrent
			disagreeCur += r.DisagreeCurrent
			agreePri += r.AgreePrior
			disagreePri += r.DisagreePrior
		case refdata.StatusCurrentOnly:
			currentOnly++
		case refdata.StatusPriorOnly:
			priorOnly++
		}
	}
	l.Info("compare_done",
		"rows", len(rows), "matched", matched,
		"current_only", currentOnly, "prior_only", priorOnly,
		"agree_current", agreeCur, "agree_prior", agreePri,
		"disagree_current", disagreeCur, "disagree_prior", disagreePri)
	return nil
}

// BuildRows：并集对齐，按 VILLCODE 排序
func BuildRows(ds *refdata.Dataset, prior map[string]PriorCounts) []refdata.ComparisonRow {
	codes := make([]string, 0, len(ds.Villages)+len(prior))
	for code := range ds.Villages {
		codes = append(codes, code)
	}
	for code := range prior {
		if _, ok := ds.Villages[code]; !ok {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	rows := make([]refdata.ComparisonRow, 0, len(codes))
	for _, code := range codes {
		row := refdata.ComparisonRow{Villcode: code}
		cur, hasCur := ds.Villages[code]
		pri, hasPri := prior[code]
		if hasCur {
			row.County = cur.County
			row.District = cur.District
			row.Village = cur.Village
			row.AgreeCurrent = cur.TotalVotes.Agree
			row.DisagreeCurrent = cur.TotalVotes.Disagree
		}
		if hasPri {
			row.AgreePrior = pri.Agree
			row.DisagreePrior = pri.Disagree
		}
		switch {
		case hasCur && hasPri:
			row.Status = refdata.StatusMatched
		case hasCur:
			row.Status = refdata.StatusCurrentOnly
		default:
			row.Status = refdata.StatusPriorOnly
		}
		rows = append(rows, row)
	}
	return rows
}

func writeCSV(path string, rows []refdata.ComparisonRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write(csvRecord(r)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// csvRecord：缺席一侧的数值单元格留空，变化率按 FormatPctChange 的哨兵规则
func csvRecord(r refdata.ComparisonRow) []string {
	matched := r.Status == refdata.StatusMatched
	cur := r.Status != refdata.StatusPriorOnly
	pri := r.Status != refdata.StatusCurrentOnly
	return []string{
		r.Villcode, r.County, r.District, r.Village,
		intCell(r.AgreeCurrent, cur), intCell(r.DisagreeCurrent, cur),
		intCell(r.AgreePrior, pri), intCell(r.DisagreePrior, pri),
		intCell(r.AgreeCurrent-r.AgreePrior, matched), intCell(r.DisagreeCurrent-r.DisagreePrior, matched),
		FormatPctChange(r.AgreeCurrent, r.AgreePrior, matched),
		FormatPctChange(r.DisagreeCurrent, r.DisagreePrior, matched),
		r.Status,
	}
}

func intCell(v int64, present bool) string {
	if !present {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

// FormatPctChange：变化率单元格
// 约束：往届缺席或为零时变化率无定义，输出 N/A
func FormatPctChange(current, prior int64, matched bool) string {
	if !matched || prior == 0 {
		return "N/A"
	}
	pct := float64(current-prior) / float64(prior) * 100
	return strconv.FormatFloat(pct, 'f', 1, 64) + "%"
}
