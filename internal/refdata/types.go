// 包 refdata：公投村里级数据的统一承载结构
// 背景：以显式类型取代按列号索引的临时字典，转换与比对任务共享同一套模型。
// 约束：字段与 JSON 键保持稳定；villages 以 VILLCODE 为键，序列化时键序稳定。
package refdata

// VoteCounts：单一公投案的票数计数
type VoteCounts struct {
	Agree    int64 `json:"agree"`
	Disagree int64 `json:"disagree"`
	Valid    int64 `json:"valid"`
	Invalid  int64 `json:"invalid"`
	Total    int64 `json:"total"`
}

// Add：逐项累加
func (v *VoteCounts) Add(o VoteCounts) {
	v.Agree += o.Agree
	v.Disagree += o.Disagree
	v.Valid += o.Valid
	v.Invalid += o.Invalid
	v.Total += o.Total
}

// Equal：逐项相等判定，用于对照验证
func (v VoteCounts) Equal(o VoteCounts) bool {
	return v.Agree == o.Agree && v.Disagree == o.Disagree &&
		v.Valid == o.Valid && v.Invalid == o.Invalid && v.Total == o.Total
}

// BallotCounts：选票领用计数
type BallotCounts struct {
	Unused    int64 `json:"unused"`
	Issued    int64 `json:"issued"`
	Remaining int64 `json:"remaining"`
}

// Add：逐项累加
func (b *BallotCounts) Add(o BallotCounts) {
	b.Unused += o.Unused
	b.Issued += o.Issued
	b.Remaining += o.Remaining
}

// StationRecord：原始报表中的一行投开票所数据，仅在单次转换中存活
type StationRecord struct {
	County         string
	District       string
	Village        string
	Station        string
	Votes          VoteCounts
	Ballots        BallotCounts
	EligibleVoters int64
	TurnoutRate    float64
}

// StationResult：归入某村里的投开票所贡献
// 约束：跨村里共用的投开票所按权重拆分后落到各村里，shared/shared_with 标注拆分来源
type StationResult struct {
	StationID      string       `json:"station_id"`
	Votes          VoteCounts   `json:"votes"`
	Ballots        BallotCounts `json:"ballots"`
	EligibleVoters int64        `json:"eligible_voters"`
	TurnoutRate    float64      `json:"turnout_rate"`
	Shared         bool         `json:"shared_station,omitempty"`
	SharedWith     int          `json:"shared_with_villages,omitempty"`
}

// VillageResult：按 VILLCODE 聚合后的村里级结果
type VillageResult struct {
	Villcode       string          `json:"villcode"`
	County         string          `json:"county"`
	District       string          `json:"district"`
	Village        string          `json:"village"`
	Stations       []StationResult `json:"polling_stations"`
	TotalVotes     VoteCounts      `json:"total_votes"`
	TotalBallots   BallotCounts    `json:"total_ballots"`
	EligibleVoters int64           `json:"total_eligible_voters"`
	StationCount   int             `json:"station_count"`
	TurnoutRate    float64         `json:"turnout_rate"`
}

// CountyTotals：全县汇总，供验证与摘要输出
type CountyTotals struct {
	County         string       `json:"county"`
	Votes          VoteCounts   `json:"votes"`
	Ballots        BallotCounts `json:"ballots"`
	EligibleVoters int64        `json:"eligible_voters"`
	StationCount   int          `json:"polling_stations"`
	TurnoutRate    float64      `json:"turnout_rate"`
}

// Dataset：转换任务的最终输出文档
// 约束：villages 与 counties 用 map 承载，encoding/json 按键排序，重复运行输出逐字节一致
type Dataset struct {
	Counties map[string]*CountyTotals  `json:"counties"`
	Villages map[string]*VillageResult `json:"villages"`
}

// UnmatchedEntry：无法解析出 VILLCODE 的行，写入副产物文件供人工补充映射
type UnmatchedEntry struct {
	County            string `json:"county"`
	District          string `json:"district"`
	Village           string `json:"village"`
	LookupKey         string `json:"lookup_key"`
	SuggestedVillcode string `json:"suggested_villcode"`
	Notes             string `json:"notes"`
}

// ComparisonRow：两届公投的村里级比对行
type ComparisonRow struct {
	Villcode        string
	County          string
	District        string
	Village         string
	AgreeCurrent    int64
	DisagreeCurrent int64
	AgreePrior      int64
	DisagreePrior   int64
	Status          string
}

// 比对行的匹配状态
const (
	StatusMatched     = "matched"
	StatusCurrentOnly = "current_only"
	StatusPriorOnly   = "prior_only"
)
