package validate

import (
	"sort"

	"github.com/movewild/refugia-backend-go/internal/models"
)

// RocAUC computes the area under the ROC curve from scores and binary labels
// using the rank statistic, with tied scores sharing their mean rank.
// Undefined when only one class is present.
func RocAUC(labels []int, scores []float64) models.Stat {
	n := len(labels)
	pos := 0
	for _, y := range labels {
		if y == 1 {
			pos++
		}
	}
	neg := n - pos
	if pos == 0 || neg == 0 {
		return models.Undefined()
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return scores[order[a]] < scores[order[b]]
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && scores[order[j]] == scores[order[i]] {
			j++
		}
		// 1-based mean rank over the tie group
		mean := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[order[k]] = mean
		}
		i = j
	}

	var rankSum float64
	for i, y := range labels {
		if y == 1 {
			rankSum += ranks[i]
		}
	}

	p := float64(pos)
	auc := (rankSum - p*(p+1)/2) / (p * float64(neg))
	return models.Stat(auc)
}

// AveragePrecision computes the area under the precision-recall curve as the
// step-wise sum of precision at each recall increment. Undefined when there
// are no positives.
func AveragePrecision(labels []int, scores []float64) models.Stat {
	pos := 0
	for _, y := range labels {
		if y == 1 {
			pos++
		}
	}
	if pos == 0 {
		return models.Undefined()
	}

	order := make([]int, len(labels))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	var ap float64
	tp := 0
	for rank, idx := range order {
		if labels[idx] != 1 {
			continue
		}
		tp++
		precision := float64(tp) / float64(rank+1)
		ap += precision / float64(pos)
	}
	return models.Stat(ap)
}

// PrecisionRecallF1 computes thresholded classification metrics.
// Precision is undefined with no predicted positives, recall with no actual
// positives, and F1 whenever either operand is undefined or their sum is 0.
func PrecisionRecallF1(labels, predicted []int) (precision, recall, f1 models.Stat) {
	var tp, fp, fn int
	for i, y := range labels {
		switch {
		case predicted[i] == 1 && y == 1:
			tp++
		case predicted[i] == 1 && y == 0:
			fp++
		case predicted[i] == 0 && y == 1:
			fn++
		}
	}

	precision = models.Undefined()
	if tp+fp > 0 {
		precision = models.Stat(float64(tp) / float64(tp+fp))
	}
	recall = models.Undefined()
	if tp+fn > 0 {
		recall = models.Stat(float64(tp) / float64(tp+fn))
	}

	f1 = models.Undefined()
	if precision.Defined() && recall.Defined() && precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}
