// 包 pgstore：对照表与聚合结果的 PostgreSQL 持久层
// 背景：对照表可由 mapping-kv 在库内维护并导出为转换任务消费的 JSON 文件；
// 聚合结果可选发布到库内，供下游查询。
package pgstore

import (
	"database/sql"

	"referendum-cunli/internal/logger"
)

// EnsureSchema：首次运行自动建表建索引
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突，仅创建最小必需结构
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _ref_manual_mappings (
            lookup_key TEXT NOT NULL,
            position INT NOT NULL,
            villcode TEXT NOT NULL,
            village TEXT NOT NULL,
            weight BIGINT NOT NULL DEFAULT 1,
            notes TEXT NOT NULL DEFAULT '',
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (lookup_key, position)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_ref_mappings_villcode ON _ref_manual_mappings(villcode)`,
		`CREATE TABLE IF NOT EXISTS _ref_village_results (
            villcode TEXT PRIMARY KEY,
            county TEXT NOT NULL,
            district TEXT NOT NULL,
            village TEXT NOT NULL,
            agree BIGINT NOT NULL,
            disagree BIGINT NOT NULL,
            valid BIGINT NOT NULL,
            invalid BIGINT NOT NULL,
            total BIGINT NOT NULL,
            eligible_voters BIGINT NOT NULL,
            station_count INT NOT NULL,
            turnout_rate DOUBLE PRECISION NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_ref_results_county ON _ref_village_results(county)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
