package history

import (
	"sort"

	"ipscope/internal/model"
	"ipscope/internal/score"
)

type CountryCount struct {
	Code  string
	Count int
}

// Summary aggregates a history for the status dashboard.
type Summary struct {
	Entries      int
	WithTrace    int
	AverageScore float64 // over scored entries only
	Grades       map[string]int
	TopCountries []CountryCount
}

func Summarize(entries []model.LogEntry, topN int) Summary {
	sum := Summary{Entries: len(entries), Grades: make(map[string]int)}

	countries := make(map[string]int)
	total, scored := 0, 0
	for _, e := range entries {
		if e.Result.Trace != nil {
			sum.WithTrace++
		}
		if e.SecurityScore != nil {
			total += *e.SecurityScore
			scored++
			sum.Grades[score.Grade(*e.SecurityScore)]++
		}
		if cc := e.Result.Geo.CountryCode; cc != "" {
			countries[cc]++
		}
	}
	if scored > 0 {
		sum.AverageScore = float64(total) / float64(scored)
	}

	for code, n := range countries {
		sum.TopCountries = append(sum.TopCountries, CountryCount{Code: code, Count: n})
	}
	sort.Slice(sum.TopCountries, func(i, j int) bool {
		if sum.TopCountries[i].Count != sum.TopCountries[j].Count {
			return sum.TopCountries[i].Count > sum.TopCountries[j].Count
		}
		return sum.TopCountries[i].Code < sum.TopCountries[j].Code
	})
	if topN > 0 && len(sum.TopCountries) > topN {
		sum.TopCountries = sum.TopCountries[:topN]
	}
	return sum
}
