package pgstore

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "github.com/lib/pq"

	"referendum-cunli/internal/logger"
	"referendum-cunli/internal/mapping"
	"referendum-cunli/internal/refdata"
)

// UpsertEntry：写入/覆盖一笔对照条目
// 约束：先经 mapping 包校验（名称与代码数一致、权重为正），不合法的条目不入库；
// 同键旧行整组删除后重写，position 即目标顺序
func UpsertEntry(db *sql.DB, e mapping.Entry) error {
	if err := mapping.New().Add(e); err != nil {
		return err
	}
	key := e.Key()
	names := splitTrim(e.Village, "、")
	codes := splitTrim(e.SuggestedVillcode, ",")
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM _ref_manual_mappings WHERE lookup_key=$1`, key); err != nil {
		return err
	}
	for i, code := range codes {
		name := e.Village
		if len(names) == len(codes) {
			name = names[i]
		}
		w := int64(1)
		if len(e.Weights) == len(codes) {
			w = e.Weights[i]
		}
		_, err := tx.Exec(`INSERT INTO _ref_manual_mappings(lookup_key, position, villcode, village, weight, notes)
            VALUES($1,$2,$3,$4,$5,$6)`, key, i, code, name, w, e.Notes)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteEntry：按键删除对照条目，返回删除的行数
func DeleteEntry(db *sql.DB, key string) (int64, error) {
	res, err := db.Exec(`DELETE FROM _ref_manual_mappings WHERE lookup_key=$1`, key)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// 库内一行对照数据
type mappingRow struct {
	key      string
	position int
	villcode string
	village  string
	weight   int64
	notes    string
}

func scanMappingRows(db *sql.DB) ([]mappingRow, error) {
	rows, err := db.Query(`SELECT lookup_key, position, villcode, village, weight, notes
        FROM _ref_manual_mappings ORDER BY lookup_key, position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []mappingRow
	for rows.Next() {
		var r mappingRow
		if err := rows.Scan(&r.key, &r.position, &r.villcode, &r.village, &r.weight, &r.notes); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadMappings：从库内重建对照表（转换任务 -mapping-from-db 路径）
func LoadMappings(db *sql.DB) (*mapping.Table, error) {
	rows, err := scanMappingRows(db)
	if err != nil {
		return nil, err
	}
	t := mapping.New()
	for i := 0; i < len(rows); {
		j := i
		for j < len(rows) && rows[j].key == rows[i].key {
			j++
		}
		if j-i == 1 {
			t.AddSingle(rows[i].key, rows[i].villcode)
		} else {
			targets := make([]mapping.Target, 0, j-i)
			for _, r := range rows[i:j] {
				targets = append(targets, mapping.Target{Villcode: r.villcode, Village: r.village, Weight: r.weight})
			}
			if err := t.AddMulti(rows[i].key, targets); err != nil {
				return nil, err
			}
		}
		i = j
	}
	return t, nil
}

// ExportEntries：把库内对照表还原为文件条目形态，按键排序
// 约束：county/district 取自 lookup_key；多目标条目重组「、」与逗号列表；等权时省略 weights
func ExportEntries(db *sql.DB) ([]mapping.Entry, error) {
	rows, err := scanMappingRows(db)
	if err != nil {
		return nil, err
	}
	var entries []mapping.Entry
	for i := 0; i < len(rows); {
		j := i
		for j < len(rows) && rows[j].key == rows[i].key {
			j++
		}
		parts := strings.SplitN(rows[i].key, "|", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed lookup_key %q", rows[i].key)
		}
		e := mapping.Entry{County: parts[0], District: parts[1], Notes: rows[i].notes}
		if j-i == 1 {
			e.Village = parts[2]
			e.SuggestedVillcode = rows[i].villcode
		} else {
			names := make([]string, 0, j-i)
			codes := make([]string, 0, j-i)
			weights := make([]int64, 0, j-i)
			equal := true
			for _, r := range rows[i:j] {
				names = append(names, r.village)
				codes = append(codes, r.villcode)
				weights = append(weights, r.weight)
				if r.weight != 1 {
					equal = false
				}
			}
			e.Village = strings.Join(names, "、")
			e.SuggestedVillcode = strings.Join(codes, ",")
			if !equal {
				e.Weights = weights
			}
		}
		entries = append(entries, e)
		i = j
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].Key() < entries[b].Key() })
	return entries, nil
}

// PublishResults：把聚合结果整批 UPSERT 入库
// 背景：沿用批量导入的节流方式，每 500 村里提交一次，降低长事务压力
func PublishResults(db *sql.DB, ds *refdata.Dataset) (int, error) {
	const upsert = `INSERT INTO _ref_village_results
        (villcode, county, district, village, agree, disagree, valid, invalid, total, eligible_voters, station_count, turnout_rate)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        ON CONFLICT (villcode) DO UPDATE SET
            county=EXCLUDED.county, district=EXCLUDED.district, village=EXCLUDED.village,
            agree=EXCLUDED.agree, disagree=EXCLUDED.disagree, valid=EXCLUDED.valid,
            invalid=EXCLUDED.invalid, total=EXCLUDED.total,
            eligible_voters=EXCLUDED.eligible_voters, station_count=EXCLUDED.station_count,
            turnout_rate=EXCLUDED.turnout_rate, updated_at=now()`

	codes := make([]string, 0, len(ds.Villages))
	for code := range ds.Villages {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }() // 分批提交后 tx 会换新，回滚最后一个
	stmt, err := tx.Prepare(upsert)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, code := range codes {
		v := ds.Villages[code]
		_, err := stmt.Exec(v.Villcode, v.County, v.District, v.Village,
			v.TotalVotes.Agree, v.TotalVotes.Disagree, v.TotalVotes.Valid,
			v.TotalVotes.Invalid, v.TotalVotes.Total,
			v.EligibleVoters, v.StationCount, v.TurnoutRate)
		if err != nil {
			return count, err
		}
		count++
		if count%500 == 0 {
			logger.L().Info("publish_progress", "count", count)
			if err := tx.Commit(); err != nil {
				return count, err
			}
			if tx, err = db.Begin(); err != nil {
				return count, err
			}
			if stmt, err = tx.Prepare(upsert); err != nil {
				return count, err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return count, err
	}
	logger.L().Info("publish_done", "count", count)
	return count, nil
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
