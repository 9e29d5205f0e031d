package dataset

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
)

// ValueCount is one entry of a frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// GroupStat summarises one group of a GroupBy.
type GroupStat struct {
	Key   string  `json:"key"`
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
}

// Bin is one bucket of a histogram, covering [Lower, Upper).
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Count returns the number of rows in t.
func Count(t *Table) int {
	return t.Len()
}

// CountWhere counts rows whose col value equals one of values.
func CountWhere(t *Table, col string, values ...string) int {
	idx, ok := t.ColumnIndex(col)
	if !ok {
		return 0
	}
	n := 0
	for _, row := range t.rows() {
		v := strings.TrimSpace(cell(row, idx))
		for _, want := range values {
			if v == want {
				n++
				break
			}
		}
	}
	return n
}

// ValueCounts builds the frequency table of col, most frequent first. Ties are
// ordered by value. Blank cells are not counted.
func ValueCounts(t *Table, col string) []ValueCount {
	idx, ok := t.ColumnIndex(col)
	if !ok {
		return []ValueCount{}
	}
	counts := make(map[string]int)
	for _, row := range t.rows() {
		v := strings.TrimSpace(cell(row, idx))
		if v == "" {
			continue
		}
		counts[v]++
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// GroupBy groups rows by key and reports each group's row count and the mean
// of its numeric column. Cells that do not parse as numbers are left out of
// the mean; a group with no numeric cells has mean 0. Groups are ordered by key.
func GroupBy(t *Table, key, numeric string) []GroupStat {
	keyIdx, ok := t.ColumnIndex(key)
	if !ok {
		return []GroupStat{}
	}
	numIdx, hasNum := t.ColumnIndex(numeric)

	type acc struct {
		count  int
		values []float64
	}
	groups := make(map[string]*acc)
	for _, row := range t.rows() {
		k := strings.TrimSpace(cell(row, keyIdx))
		if k == "" {
			continue
		}
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
		}
		g.count++
		if hasNum {
			if f, ok := parseNumber(cell(row, numIdx)); ok {
				g.values = append(g.values, f)
			}
		}
	}

	out := make([]GroupStat, 0, len(groups))
	for k, g := range groups {
		out = append(out, GroupStat{Key: k, Count: g.count, Mean: mean(g.values)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Unique returns the distinct non-blank values of col in first-appearance order.
func Unique(t *Table, col string) []string {
	idx, ok := t.ColumnIndex(col)
	if !ok {
		return []string{}
	}
	seen := make(map[string]struct{})
	out := []string{}
	for _, row := range t.rows() {
		v := strings.TrimSpace(cell(row, idx))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Numbers returns the numeric values of col, skipping cells that do not parse.
func Numbers(t *Table, col string) []float64 {
	idx, ok := t.ColumnIndex(col)
	if !ok {
		return nil
	}
	var out []float64
	for _, row := range t.rows() {
		if f, ok := parseNumber(cell(row, idx)); ok {
			out = append(out, f)
		}
	}
	return out
}

// Sum adds up the numeric values of col.
func Sum(t *Table, col string) float64 {
	s, err := stats.Sum(Numbers(t, col))
	if err != nil {
		return 0
	}
	return s
}

// Mean averages the numeric values of col, or returns 0 when there are none.
func Mean(t *Table, col string) float64 {
	return mean(Numbers(t, col))
}

// Histogram splits [lo, hi] into bins equal-width buckets and counts values
// into them. The last bucket includes hi. Values outside the range are dropped.
func Histogram(values []float64, lo, hi float64, bins int) []Bin {
	if bins <= 0 || hi <= lo {
		return []Bin{}
	}
	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Lower: lo + float64(i)*width, Upper: lo + float64(i+1)*width}
	}
	for _, v := range values {
		if v < lo || v > hi {
			continue
		}
		i := int(math.Floor((v - lo) / width))
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}

func mean(values []float64) float64 {
	m, err := stats.Mean(values)
	if err != nil || math.IsNaN(m) {
		return 0
	}
	return m
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
