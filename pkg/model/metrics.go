package model

import (
	"fmt"
	"strings"
)

// ClassMetrics holds precision, recall and F1 for one label
type ClassMetrics struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report summarises predictions against true labels
type Report struct {
	Classes     []ClassMetrics
	Accuracy    float64
	MacroAvg    ClassMetrics
	WeightedAvg ClassMetrics
	Total       int
}

// Accuracy is the share of predictions equal to the truth
func Accuracy(truth, pred []int) float64 {
	if len(truth) == 0 {
		return 0
	}
	correct := 0
	for i := range truth {
		if truth[i] == pred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(truth))
}

// ClassificationReport computes per-class metrics for every label that
// appears in either truth or pred. Undefined ratios are reported as 0.
func ClassificationReport(truth, pred []int, label func(int) string) Report {
	labels := uniqueSorted(append(append([]int{}, truth...), pred...))
	r := Report{Total: len(truth), Accuracy: Accuracy(truth, pred)}

	for _, l := range labels {
		var tp, fp, fn int
		for i := range truth {
			switch {
			case truth[i] == l && pred[i] == l:
				tp++
			case truth[i] != l && pred[i] == l:
				fp++
			case truth[i] == l && pred[i] != l:
				fn++
			}
		}
		m := ClassMetrics{
			Label:     label(l),
			Precision: ratio(tp, tp+fp),
			Recall:    ratio(tp, tp+fn),
			Support:   tp + fn,
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.Classes = append(r.Classes, m)
	}

	r.MacroAvg = ClassMetrics{Label: "macro avg", Support: r.Total}
	r.WeightedAvg = ClassMetrics{Label: "weighted avg", Support: r.Total}
	for _, m := range r.Classes {
		n := float64(len(r.Classes))
		r.MacroAvg.Precision += m.Precision / n
		r.MacroAvg.Recall += m.Recall / n
		r.MacroAvg.F1 += m.F1 / n
		if r.Total > 0 {
			w := float64(m.Support) / float64(r.Total)
			r.WeightedAvg.Precision += m.Precision * w
			r.WeightedAvg.Recall += m.Recall * w
			r.WeightedAvg.F1 += m.F1 * w
		}
	}
	return r
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// String renders the report as a fixed-width table
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%14s %10s %10s %10s %10s\n\n", "", "precision", "recall", "f1-score", "support")
	for _, m := range r.Classes {
		writeLine(&b, m)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%14s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.Total)
	writeLine(&b, r.MacroAvg)
	writeLine(&b, r.WeightedAvg)
	return b.String()
}

func writeLine(b *strings.Builder, m ClassMetrics) {
	fmt.Fprintf(b, "%14s %10.2f %10.2f %10.2f %10d\n", m.Label, m.Precision, m.Recall, m.F1, m.Support)
}

// ConfusionMatrix counts predictions per (truth, pred) pair over the given labels
func ConfusionMatrix(truth, pred, labels []int) [][]int {
	idx := make(map[int]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}
	cm := make([][]int, len(labels))
	for i := range cm {
		cm[i] = make([]int, len(labels))
	}
	for i := range truth {
		t, okT := idx[truth[i]]
		p, okP := idx[pred[i]]
		if okT && okP {
			cm[t][p]++
		}
	}
	return cm
}
