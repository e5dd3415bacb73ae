// 复核工具：独立重算各县报表明细并与總計行对照，输出分县与全国合计
package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"

	"referendum-cunli/internal/logger"
	"referendum-cunli/internal/verify"
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
		rawDir  = flag.String("raw", "", "报表目录（REF_RAW_DIR，默认 raw）")
		out     = flag.String("out", "", "复核输出路径（REF_VERIFY_OUT）")
	)
	flag.Parse()
	if *envFile != "" {
		_ = godotenv.Load(*envFile)
	} else {
		_ = godotenv.Load(".env")
	}
	l := logger.Setup()

	cfg := verify.Config{
		RawDir:  pick(*rawDir, "REF_RAW_DIR", "raw"),
		OutFile: pick(*out, "REF_VERIFY_OUT", "county_totals_verification.json"),
	}
	if _, err := verify.Run(cfg); err != nil {
		l.Error("verify_error", "err", err)
		os.Exit(1)
	}
}
