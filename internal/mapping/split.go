package mapping

import "referendum-cunli/internal/refdata"

// Split：把一个计数按权重拆到各目标，整数最大余数法
// 约束：各份之和恒等于原值（守恒），余数按大者优先、等量时靠前目标优先，结果确定
func Split(value int64, weights []int64) []int64 {
	n := len(weights)
	out := make([]int64, n)
	var total int64
	for _, w := range weights {
		total += w
	}
	if total <= 0 || value == 0 {
		return out
	}
	rems := make([]int64, n)
	var assigned int64
	for i, w := range weights {
		out[i] = value * w / total
		rems[i] = value * w % total
		assigned += out[i]
	}
	for assigned < value {
		best := -1
		for i := 0; i < n; i++ {
			if rems[i] >= 0 && (best < 0 || rems[i] > rems[best]) {
				best = i
			}
		}
		out[best]++
		rems[best] = -1
		assigned++
	}
	return out
}

// Portion：拆分后归属某村里的投开票所贡献
type Portion struct {
	Villcode string
	Village  string
	Station  refdata.StationResult
}

// Apportion：把一行投开票所数据按目标权重拆分
// 约束：每个计数独立走 Split，逐项守恒；目标顺序即条目登记顺序
func Apportion(rec refdata.StationRecord, targets []Target) []Portion {
	weights := make([]int64, len(targets))
	for i, t := range targets {
		weights[i] = t.Weight
	}
	agree := Split(rec.Votes.Agree, weights)
	disagree := Split(rec.Votes.Disagree, weights)
	valid := Split(rec.Votes.Valid, weights)
	invalid := Split(rec.Votes.Invalid, weights)
	total := Split(rec.Votes.Total, weights)
	unused := Split(rec.Ballots.Unused, weights)
	issued := Split(rec.Ballots.Issued, weights)
	remaining := Split(rec.Ballots.Remaining, weights)
	eligible := Split(rec.EligibleVoters, weights)

	out := make([]Portion, len(targets))
	for i, t := range targets {
		out[i] = Portion{
			Villcode: t.Villcode,
			Village:  t.Village,
			Station: refdata.StationResult{
				StationID: rec.Station,
				Votes: refdata.VoteCounts{
					Agree:    agree[i],
					Disagree: disagree[i],
					Valid:    valid[i],
					Invalid:  invalid[i],
					Total:    total[i],
				},
				Ballots: refdata.BallotCounts{
					Unused:    unused[i],
					Issued:    issued[i],
					Remaining: remaining[i],
				},
				EligibleVoters: eligible[i],
				TurnoutRate:    rec.TurnoutRate,
				Shared:         true,
				SharedWith:     len(targets),
			},
		}
	}
	return out
}
