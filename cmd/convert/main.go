// 转换工具：读取中选会县级报表，聚合为村里级数据集
// 用法：convert -geo 村里界.json [-raw raw] [-mapping manual_villcode_mapping.json]
// 路径可经 REF_* 环境变量或 -env 指定的 env 文件提供；-publish 时同步发布到 PostgreSQL
package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"referendum-cunli/internal/convert"
	"referendum-cunli/internal/geo"
	"referendum-cunli/internal/logger"
	"referendum-cunli/internal/mapping"
	"referendum-cunli/internal/pgstore"
	"referendum-cunli/internal/utils"
)

// pick：flag 优先，其次环境变量，最后默认值
func pick(flagVal, envKey, def string) string {
	if flagVal != "" {
		return flagVal
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return def
}

func main() {
	var (
		envFile       = flag.String("env", "", "env 文件路径（可选）")
		rawDir        = flag.String("raw", "", "报表目录（REF_RAW_DIR，默认 raw）")
		geoFile       = flag.String("geo", "", "村里界 GeoJSON 路径（REF_GEO_FILE，必填）")
		mappingFile   = flag.String("mapping", "", "手工对照表 JSON（REF_MAPPING_FILE）")
		outFile       = flag.String("out", "", "数据集输出路径（REF_OUT_FILE）")
		unmatchedFile = flag.String("unmatched", "", "未匹配清单输出路径（REF_UNMATCHED_FILE）")
		mappingFromDB = flag.Bool("mapping-from-db", false, "从 PostgreSQL 读取对照表而非文件")
		publish       = flag.Bool("publish", false, "聚合结果同步发布到 PostgreSQL")
	)
	flag.Parse()
	if *envFile != "" {
		_ = godotenv.Load(*envFile)
	} else {
		_ = godotenv.Load(".env")
	}
	l := logger.Setup()

	cfg := convert.Config{
		RawDir:        pick(*rawDir, "REF_RAW_DIR", "raw"),
		OutFile:       pick(*outFile, "REF_OUT_FILE", "referendum_cunli_data.json"),
		UnmatchedFile: pick(*unmatchedFile, "REF_UNMATCHED_FILE", "unmatched_for_mapping.json"),
	}
	geoPath := pick(*geoFile, "REF_GEO_FILE", "")
	if geoPath == "" {
		l.Error("geo_file_missing", "hint", "set -geo or REF_GEO_FILE")
		os.Exit(1)
	}

	ctx := context.Background()
	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Debug("redis_disabled")
	}
	idx, err := geo.Load(ctx, geoPath, rc)
	if err != nil {
		l.Error("geo_load_error", "err", err)
		os.Exit(1)
	}
	l.Info("geo_loaded", "entries", idx.Size())

	var table *mapping.Table
	if *mappingFromDB {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := pgstore.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		if table, err = pgstore.LoadMappings(db); err != nil {
			l.Error("mapping_load_error", "err", err)
			os.Exit(1)
		}
	} else {
		if table, err = mapping.LoadFile(pick(*mappingFile, "REF_MAPPING_FILE", "manual_villcode_mapping.json")); err != nil {
			l.Error("mapping_load_error", "err", err)
			os.Exit(1)
		}
	}
	single, multi := table.Counts()
	l.Info("mapping_loaded", "single", single, "multi", multi)

	ds, stats, err := convert.Run(cfg, idx, table)
	if err != nil {
		l.Error("convert_error", "err", err)
		os.Exit(1)
	}
	if stats.Unmatched > 0 {
		l.Warn("unmatched_rows", "count", stats.Unmatched, "file", cfg.UnmatchedFile,
			"hint", "add VILLCODEs to the manual mapping and re-run")
	}

	if *publish {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := pgstore.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		n, err := pgstore.PublishResults(db, ds)
		if err != nil {
			l.Error("publish_error", "err", err, "published", n)
			os.Exit(1)
		}
	}
}
