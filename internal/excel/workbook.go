// 包 excel：解析中选会公投县级报表（表3）
// 背景：各县一份 xlsx，固定列布局；乡镇/村里列为合并单元格，取值向下沿用；
// 表头之后第一个「總計」行承载全县参考总数，其后为投开票所明细行。
// 约束：布局属外部契约，列号写死；报表改版时此处先行失败而非错算。
package excel

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"referendum-cunli/internal/refdata"
)

// 表3 固定列布局
const (
	colDistrict = iota
	colVillage
	colStation
	colAgree
	colDisagree
	colValid
	colInvalid
	colTotal
	colUnused
	colIssued
	colRemaining
	colEligible
	colTurnout
)

var countyPattern = regexp.MustCompile(`縣表3-(.+?)-全國性公民投票`)

// Workbook：单个县级报表的解析结果
type Workbook struct {
	Path        string
	County      string
	Reference   refdata.VoteCounts // 總計行票数，作为验证基准
	RefEligible int64
	Rows        []refdata.StationRecord // 明细行（仅含投开票所行）
}

// CountyFromFilename：从文件名提取县市名
func CountyFromFilename(name string) string {
	m := countyPattern.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

// ParseFile：解析一份县级报表
// 异常：文件无法打开、找不到總計行、文件名不含县市名均视为输入错误，立即返回
func ParseFile(path string) (*Workbook, error) {
	county := CountyFromFilename(filepath.Base(path))
	if county == "" {
		return nil, fmt.Errorf("workbook %s: county name not found in filename", path)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook " + path + ": no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s of %s: %w", sheets[0], path, err)
	}

	refIdx := -1
	for i, row := range rows {
		c := cell(row, colDistrict)
		if strings.Contains(c, "總") && strings.Contains(c, "計") {
			refIdx = i
			break
		}
	}
	if refIdx < 0 {
		return nil, errors.New("workbook " + path + ": reference total row not found")
	}
	ref := rows[refIdx]
	wb := &Workbook{
		Path:        path,
		County:      county,
		Reference:   voteCounts(ref),
		RefEligible: parseCount(cell(ref, colEligible)),
	}

	// 明细行：乡镇/村里为合并单元格，空值沿用上一行；无投开票所编号的为小计行，跳过
	var curDistrict, curVillage string
	for i := refIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if cell(row, colDistrict) == "" && cell(row, colVillage) == "" && cell(row, colStation) == "" {
			continue
		}
		if d := cell(row, colDistrict); d != "" {
			curDistrict = d
		}
		if v := cell(row, colVillage); v != "" {
			curVillage = v
		}
		station := cell(row, colStation)
		if station == "" {
			continue
		}
		wb.Rows = append(wb.Rows, refdata.StationRecord{
			County:   county,
			District: curDistrict,
			Village:  curVillage,
			Station:  station,
			Votes:    voteCounts(row),
			Ballots: refdata.BallotCounts{
				Unused:    parseCount(cell(row, colUnused)),
				Issued:    parseCount(cell(row, colIssued)),
				Remaining: parseCount(cell(row, colRemaining)),
			},
			EligibleVoters: parseCount(cell(row, colEligible)),
			TurnoutRate:    parseRate(cell(row, colTurnout)),
		})
	}
	return wb, nil
}

func voteCounts(row []string) refdata.VoteCounts {
	return refdata.VoteCounts{
		Agree:    parseCount(cell(row, colAgree)),
		Disagree: parseCount(cell(row, colDisagree)),
		Valid:    parseCount(cell(row, colValid)),
		Invalid:  parseCount(cell(row, colInvalid)),
		Total:    parseCount(cell(row, colTotal)),
	}
}

// cell：越界返回空串；GetRows 会裁掉行尾空单元格
func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// parseCount：解析计数单元格；千分位逗号与空白先剔除，空值与非数值按 0 处理
func parseCount(s string) int64 {
	s = strings.ReplaceAll(strings.ReplaceAll(s, ",", ""), " ", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

// parseRate：解析百分比单元格，允许带 % 后缀
func parseRate(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
