// 对照表维护工具：在 PostgreSQL 内增删查手工 VILLCODE 对照条目，并与 JSON 对照表文件互转
// 背景：转换任务产出的未匹配清单经人工补登后，用 import 入库、export 回写文件供转换消费
package main

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"referendum-cunli/internal/mapping"
	"referendum-cunli/internal/pgstore"
	"referendum-cunli/internal/refdata"
	"referendum-cunli/internal/utils"
)

func printHelp() {
	fmt.Println("commands:")
	fmt.Println("  add <county> <district> <village> <villcode[,villcode...]> [weight,weight...]")
	fmt.Println("  del <county> <district> <village>")
	fmt.Println("  get <county> <district> <village>")
	fmt.Println("  list [limit]")
	fmt.Println("  import <mapping.json>")
	fmt.Println("  export <mapping.json>")
	fmt.Println("  help")
	fmt.Println("  exit")
}

func prompt(r *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	s, _ := r.ReadString('\n')
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

func parseWeights(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad weight %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}

func getEntry(db *sql.DB, key string) ([]string, error) {
	rows, err := db.Query(`SELECT position, villcode, village, weight, notes
        FROM _ref_manual_mappings WHERE lookup_key=$1 ORDER BY position`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var pos int
		var code, village, notes string
		var weight int64
		if err := rows.Scan(&pos, &code, &village, &weight, &notes); err != nil {
			return nil, err
		}
		s := fmt.Sprintf("%d: %s -> %s (weight %d)", pos, village, code, weight)
		if notes != "" {
			s += " # " + notes
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func listKeys(db *sql.DB, limit int) ([]string, error) {
	rows, err := db.Query(`SELECT lookup_key, COUNT(*)
        FROM _ref_manual_mappings GROUP BY lookup_key ORDER BY MAX(updated_at) DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out = append(out, fmt.Sprintf("%s (%d targets)", key, n))
	}
	return out, rows.Err()
}

func importFile(db *sql.DB, path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var entries []mapping.Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if strings.TrimSpace(e.SuggestedVillcode) == "" {
			continue // 待补条目不入库
		}
		if err := pgstore.UpsertEntry(db, e); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func exportFile(db *sql.DB, path string) (int, error) {
	entries, err := pgstore.ExportEntries(db)
	if err != nil {
		return 0, err
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return 0, err
	}
	return len(entries), os.WriteFile(path, append(b, '\n'), 0o644)
}

func main() {
	var envFile string
	for i := 1; i < len(os.Args); i++ {
		if os.Args[i] == "--env" && i+1 < len(os.Args) {
			envFile = os.Args[i+1]
			i++
		} else if strings.HasSuffix(os.Args[i], ".env") {
			envFile = os.Args[i]
		}
	}
	var db *sql.DB
	var err error
	if envFile != "" {
		_ = godotenv.Load(envFile)
		db, err = utils.OpenPostgresFromEnv()
	} else {
		r := bufio.NewReader(os.Stdin)
		fmt.Println("输入数据库连接参数，回车使用默认值")
		host := prompt(r, "PG_HOST", "127.0.0.1")
		port := prompt(r, "PG_PORT", "5432")
		user := prompt(r, "PG_USER", "postgres")
		pass := prompt(r, "PG_PASSWORD", "")
		name := prompt(r, "PG_DB", "referendum")
		ssl := prompt(r, "PG_SSLMODE", "disable")
		dsn := "postgres://" + user
		if pass != "" {
			dsn += ":" + pass
		}
		dsn += "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
		db, err = utils.OpenPostgres(dsn)
	}
	if err != nil {
		fmt.Println("db error:", err)
		os.Exit(1)
	}
	if err := pgstore.EnsureSchema(db); err != nil {
		fmt.Println("schema error:", err)
		os.Exit(1)
	}
	defer db.Close()
	fmt.Println("mapping kv cli ready")
	printHelp()
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		switch cmd {
		case "exit", "quit":
			return
		case "help":
			printHelp()
		case "add", "set":
			if len(parts) < 5 {
				fmt.Println("usage: add <county> <district> <village> <villcode[,...]> [weight,...]")
				continue
			}
			e := mapping.Entry{County: parts[1], District: parts[2], Village: parts[3], SuggestedVillcode: parts[4]}
			if len(parts) >= 6 {
				w, err := parseWeights(parts[5])
				if err != nil {
					fmt.Println("error:", err)
					continue
				}
				e.Weights = w
			}
			if err := pgstore.UpsertEntry(db, e); err != nil {
				fmt.Println("error:", err)
			} else {
				fmt.Println("ok")
			}
		case "del":
			if len(parts) < 4 {
				fmt.Println("usage: del <county> <district> <village>")
				continue
			}
			n, err := pgstore.DeleteEntry(db, refdata.LookupKey(parts[1], parts[2], parts[3]))
			if err != nil {
				fmt.Println("error:", err)
			} else if n == 0 {
				fmt.Println("none")
			} else {
				fmt.Println("ok")
			}
		case "get":
			if len(parts) < 4 {
				fmt.Println("usage: get <county> <district> <village>")
				continue
			}
			xs, err := getEntry(db, refdata.LookupKey(parts[1], parts[2], parts[3]))
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			if len(xs) == 0 {
				fmt.Println("none")
			}
			for _, s := range xs {
				fmt.Println(s)
			}
		case "list":
			limit := 20
			if len(parts) >= 2 {
				if n, e := strconv.Atoi(parts[1]); e == nil && n > 0 {
					limit = n
				}
			}
			xs, err := listKeys(db, limit)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			for _, s := range xs {
				fmt.Println(s)
			}
		case "import":
			if len(parts) < 2 {
				fmt.Println("usage: import <mapping.json>")
				continue
			}
			n, err := importFile(db, parts[1])
			if err != nil {
				fmt.Println("error:", err)
			} else {
				fmt.Println("imported", n)
			}
		case "export":
			if len(parts) < 2 {
				fmt.Println("usage: export <mapping.json>")
				continue
			}
			n, err := exportFile(db, parts[1])
			if err != nil {
				fmt.Println("error:", err)
			} else {
				fmt.Println("exported", n)
			}
		default:
			fmt.Println("unknown command")
		}
	}
}
