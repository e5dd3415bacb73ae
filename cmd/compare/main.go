// 比对工具：当届转换输出与往届数据集按 VILLCODE 对齐，输出差值与变化率 CSV
package main

import (
	"flag"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"referendum-cunli/internal/compare"
	"referendum-cunli/internal/logger"
)

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
		envFile = flag.String("env", "", "env 文件路径（可选）")
		current = flag.String("current", "", "当届数据集路径（REF_OUT_FILE）")
		prior   = flag.String("prior", "", "往届数据集路径（REF_PRIOR_FILE，必填）")
		out     = flag.String("out", "", "比对 CSV 输出路径（REF_COMPARE_OUT）")
		caseID  = flag.Int("case", 0, "往届公投案号（REF_PRIOR_CASE，默认 17）")
	)
	flag.Parse()
	if *envFile != "" {
		_ = godotenv.Load(*envFile)
	} else {
		_ = godotenv.Load(".env")
	}
	l := logger.Setup()

	cfg := compare.Config{
		CurrentPath: pick(*current, "REF_OUT_FILE", "referendum_cunli_data.json"),
		PriorPath:   pick(*prior, "REF_PRIOR_FILE", ""),
		OutFile:     pick(*out, "REF_COMPARE_OUT", "referendum_comparison.csv"),
		CaseID:      *caseID,
	}
	if cfg.CaseID == 0 {
		cfg.CaseID = 17
		if v := os.Getenv("REF_PRIOR_CASE"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				cfg.CaseID = n
			}
		}
	}
	if cfg.PriorPath == "" {
		l.Error("prior_file_missing", "hint", "set -prior or REF_PRIOR_FILE")
		os.Exit(1)
	}

	if err := compare.Run(cfg); err != nil {
		l.Error("compare_error", "err", err)
		os.Exit(1)
	}
}
