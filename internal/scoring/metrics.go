package scoring

import "strings"

// ChannelWeights scale raw answer scores per intake channel in the admin
// metrics average. Channels not listed weigh 1.0.
var ChannelWeights = map[string]float64{
	"CALL_CENTER": 1.0,
	"ON_SITE":     1.1,
	"WEB":         0.9,
	"MOBILE_APP":  1.0,
}

// ChannelStat is the per-channel aggregate the store reads in one query.
type ChannelStat struct {
	Channel  string
	Answers  int64 // number of answer rows
	ScoreSum int64 // sum of raw scores over those rows
}

// Metrics is the admin dashboard summary.
type Metrics struct {
	Total            int64              `json:"total"`
	AvgScore         *float64           `json:"avg_score"`
	ChannelBreakdown map[string]float64 `json:"channel_breakdown"`
}

// BasicMetrics computes the channel-weighted average raw answer score and a
// plain per-channel average. AvgScore is nil when there are no answers.
func BasicMetrics(totalSubmissions int64, stats []ChannelStat) Metrics {
	m := Metrics{
		Total:            totalSubmissions,
		ChannelBreakdown: make(map[string]float64, len(stats)),
	}

	var weighted float64
	var count int64
	for _, st := range stats {
		if st.Answers == 0 {
			continue
		}
		w, ok := ChannelWeights[strings.ToUpper(st.Channel)]
		if !ok {
			w = 1.0
		}
		weighted += float64(st.ScoreSum) * w
		count += st.Answers
		m.ChannelBreakdown[st.Channel] = Round2(float64(st.ScoreSum) / float64(st.Answers))
	}

	if count > 0 {
		avg := Round2(weighted / float64(count))
		m.AvgScore = &avg
	}
	return m
}
