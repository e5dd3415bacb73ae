// 包 verify：原始报表独立复核
// 背景：不经任何匹配与聚合路径，直接把各县报表的明细行重新求和，与報表總計行对照，
// 并输出分县与全国合计，供人工核对转换结果。
// 约束：任一县复核不符即整次运行失败（以非零退出），不符内容逐项记录。
package verify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"referendum-cunli/internal/excel"
	"referendum-cunli/internal/logger"
	"referendum-cunli/internal/refdata"
)

// Config：复核任务输入输出
type Config struct {
	RawDir  string
	OutFile string
}

// Totals：全国合计与比率
type Totals struct {
	Votes          refdata.VoteCounts `json:"votes"`
	EligibleVoters int64              `json:"eligible_voters"`
	StationCount   int                `json:"polling_stations"`
	AgreeRate      float64            `json:"agree_rate"`
	DisagreeRate   float64            `json:"disagree_rate"`
	TurnoutRate    float64            `json:"turnout_rate"`
}

// Report：复核输出文档，counties 按县名排序
type Report struct {
	Counties []refdata.CountyTotals `json:"counties"`
	Grand    Totals                 `json:"grand_totals"`
}

// Run：重新求和全部报表并写出复核文档
func Run(cfg Config) (*Report, error) {
	files, err := filepath.Glob(filepath.Join(cfg.RawDir, "*.xlsx"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .xlsx files under %s", cfg.RawDir)
	}
	sort.Strings(files)
	l := logger.With("job", "verify")

	var report Report
	var mismatched []string
	for _, path := range files {
		wb, err := excel.ParseFile(path)
		if err != nil {
			return nil, err
		}
		ct := refdata.CountyTotals{County: refdata.CleanField(wb.County)}
		for _, rec := range wb.Rows {
			ct.Votes.Add(rec.Votes)
			ct.Ballots.Add(rec.Ballots)
			ct.EligibleVoters += rec.EligibleVoters
			ct.StationCount++
		}
		if ct.EligibleVoters > 0 {
			ct.TurnoutRate = float64(ct.Votes.Total) / float64(ct.EligibleVoters) * 100
		}
		if !ct.Votes.Equal(wb.Reference) {
			mismatched = append(mismatched, ct.County)
			l.Error("recount_mismatch", "county", ct.County,
				"agree", ct.Votes.Agree, "agree_ref", wb.Reference.Agree,
				"disagree", ct.Votes.Disagree, "disagree_ref", wb.Reference.Disagree,
				"valid", ct.Votes.Valid, "valid_ref", wb.Reference.Valid,
				"invalid", ct.Votes.Invalid, "invalid_ref", wb.Reference.Invalid,
				"total", ct.Votes.Total, "total_ref", wb.Reference.Total)
		} else {
			l.Info("recount_ok", "county", ct.County,
				"agree", ct.Votes.Agree, "disagree", ct.Votes.Disagree, "total", ct.Votes.Total)
		}
		report.Counties = append(report.Counties, ct)
		report.Grand.Votes.Add(ct.Votes)
		report.Grand.EligibleVoters += ct.EligibleVoters
		report.Grand.StationCount += ct.StationCount
	}
	sort.Slice(report.Counties, func(i, j int) bool {
		return report.Counties[i].County < report.Counties[j].County
	})

	g := &report.Grand
	if g.Votes.Valid > 0 {
		g.AgreeRate = float64(g.Votes.Agree) / float64(g.Votes.Valid) * 100
		g.DisagreeRate = float64(g.Votes.Disagree) / float64(g.Votes.Valid) * 100
	}
	if g.EligibleVoters > 0 {
		g.TurnoutRate = float64(g.Votes.Total) / float64(g.EligibleVoters) * 100
	}

	b, err := json.MarshalIndent(&report, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(cfg.OutFile, append(b, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("write report %s: %w", cfg.OutFile, err)
	}
	l.Info("verify_done",
		"counties", len(report.Counties), "stations", g.StationCount,
		"agree", g.Votes.Agree, "disagree", g.Votes.Disagree, "total", g.Votes.Total)
	if len(mismatched) > 0 {
		return &report, fmt.Errorf("recount mismatch in %d counties: %v", len(mismatched), mismatched)
	}
	return &report, nil
}
