// 包 convert：转换任务
// 背景：逐县读取中选会报表，解析每个投开票所行的 VILLCODE（手工对照表优先、图资索引兜底），
// 按村里聚合后输出数据集；无法解析的行写入未匹配清单供人工补对照表后重跑。
// 约束：聚合结果加上未匹配行的票数必须与报表自带的總計行逐项相符，不符即判整份报表失败；
// 同一输入与对照表重复运行，输出逐字节一致。
package convert

import (
	"fmt"
	"path/filepath"
	"sort"

	"referendum-cunli/internal/excel"
	"referendum-cunli/internal/geo"
	"referendum-cunli/internal/logger"
	"referendum-cunli/internal/mapping"
	"referendum-cunli/internal/refdata"
)

// Config：转换任务的全部输入输出路径（显式传入，不依赖全局状态）
type Config struct {
	RawDir        string
	OutFile       string
	UnmatchedFile string
}

// Stats：一次运行的行级账目
// 约束：Matched+Unmatched == DataRows，未匹配行只旁路不丢弃
type Stats struct {
	Files     int
	DataRows  int
	Matched   int
	Unmatched int
}

// Run：执行转换并写出数据集与未匹配清单
func Run(cfg Config, idx *geo.Index, table *mapping.Table) (*refdata.Dataset, *Stats, error) {
	files, err := filepath.Glob(filepath.Join(cfg.RawDir, "*.xlsx"))
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no .xlsx files under %s", cfg.RawDir)
	}
	sort.Strings(files) // 处理顺序固定，保证输出确定
	l := logger.With("job", "convert")

	ds := refdata.NewDataset()
	stats := &Stats{Files: len(files)}
	unmatched := map[string]refdata.UnmatchedEntry{}

	for _, path := range files {
		wb, err := excel.ParseFile(path)
		if err != nil {
			return nil, nil, err
		}
		l.Info("convert_file", "file", filepath.Base(path), "county", wb.County, "rows", len(wb.Rows))

		// aggSum 累计实际写入村里的贡献，未匹配行另计，两者之和对照總計行
		var aggSum, unmatchedSum refdata.VoteCounts
		county := refdata.CleanField(wb.County)
		totals := &refdata.CountyTotals{County: county}

		for _, rec := range wb.Rows {
			stats.DataRows++
			totals.Ballots.Add(rec.Ballots)
			totals.EligibleVoters += rec.EligibleVoters
			totals.StationCount++

			key := refdata.LookupKey(rec.County, rec.District, rec.Village)
			if code, ok := table.ResolveSingle(key); ok {
				st := stationResult(rec)
				addStation(ds, code, rec, rec.Village, st)
				aggSum.Add(st.Votes)
				stats.Matched++
				continue
			}
			if targets, ok := table.ResolveMulti(key); ok {
				for _, p := range mapping.Apportion(rec, targets) {
					addStation(ds, p.Villcode, rec, p.Village, p.Station)
					aggSum.Add(p.Station.Votes)
				}
				stats.Matched++
				continue
			}
			if code, ok := idx.Lookup(rec.County, rec.District, rec.Village); ok {
				st := stationResult(rec)
				addStation(ds, code, rec, rec.Village, st)
				aggSum.Add(st.Votes)
				stats.Matched++
				continue
			}
			stats.Unmatched++
			unmatchedSum.Add(rec.Votes)
			if _, seen := unmatched[key]; !seen {
				unmatched[key] = refdata.UnmatchedEntry{
					County:            refdata.CleanField(rec.County),
					District:          refdata.CleanField(rec.District),
					Village:           refdata.CleanField(rec.Village),
					LookupKey:         key,
					SuggestedVillcode: "",
					Notes:             "Needs manual VILLCODE mapping",
				}
			}
		}

		checked := aggSum
		checked.Add(unmatchedSum)
		if !checked.Equal(wb.Reference) {
			l.Error("verify_mismatch", "file", filepath.Base(path),
				"agree", checked.Agree, "agree_ref", wb.Reference.Agree,
				"disagree", checked.Disagree, "disagree_ref", wb.Reference.Disagree,
				"valid", checked.Valid, "valid_ref", wb.Reference.Valid,
				"invalid", checked.Invalid, "invalid_ref", wb.Reference.Invalid,
				"total", checked.Total, "total_ref", wb.Reference.Total)
			return nil, nil, fmt.Errorf("total verification failed for %s", path)
		}
		l.Info("verify_ok", "county", county, "total", checked.Total)

		totals.Votes = checked
		if totals.EligibleVoters > 0 {
			totals.TurnoutRate = float64(totals.Votes.Total) / float64(totals.EligibleVoters) * 100
		}
		ds.Counties[county] = totals
	}

	for _, vr := range ds.Villages {
		if vr.EligibleVoters > 0 {
			vr.TurnoutRate = float64(vr.TotalVotes.Total) / float64(vr.EligibleVoters) * 100
		}
	}

	if err := ds.WriteFile(cfg.OutFile); err != nil {
		return nil, nil, fmt.Errorf("write dataset %s: %w", cfg.OutFile, err)
	}
	if err := refdata.WriteUnmatched(cfg.UnmatchedFile, sortedUnmatched(unmatched)); err != nil {
		return nil, nil, fmt.Errorf("write unmatched %s: %w", cfg.UnmatchedFile, err)
	}
	l.Info("convert_done",
		"files", stats.Files, "rows", stats.DataRows,
		"matched", stats.Matched, "unmatched", stats.Unmatched,
		"villages", len(ds.Villages))
	return ds, stats, nil
}

// stationResult：未拆分投开票所的整笔贡献
func stationResult(rec refdata.StationRecord) refdata.StationResult {
	return refdata.StationResult{
		StationID:      rec.Station,
		Votes:          rec.Votes,
		Ballots:        rec.Ballots,
		EligibleVoters: rec.EligibleVoters,
		TurnoutRate:    rec.TurnoutRate,
	}
}

func addStation(ds *refdata.Dataset, villcode string, rec refdata.StationRecord, village string, st refdata.StationResult) {
	vr, ok := ds.Villages[villcode]
	if !ok {
		vr = &refdata.VillageResult{
			Villcode: villcode,
			County:   refdata.CleanField(rec.County),
			District: refdata.CleanField(rec.District),
			Village:  refdata.CleanField(village),
		}
		ds.Villages[villcode] = vr
	}
	vr.Stations = append(vr.Stations, st)
	vr.TotalVotes.Add(st.Votes)
	vr.TotalBallots.Add(st.Ballots)
	vr.EligibleVoters += st.EligibleVoters
	vr.StationCount++
}

func sortedUnmatched(m map[string]refdata.UnmatchedEntry) []refdata.UnmatchedEntry {
	out := make([]refdata.UnmatchedEntry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LookupKey < out[j].LookupKey })
	return out
}
