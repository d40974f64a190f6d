// Package rotation routes visitor contact clicks across a page's WhatsApp
// targets by percentage weight.
//
// Selection is weighted-random and memoryless: the interval [0,100) is split
// into consecutive ranges in the order targets are stored, and a caller
// supplied sample picks the range. Nothing in this package keeps per-page
// state, so two selections never influence each other.
package rotation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ignite/leadpage/internal/domain"
)

// TotalWeight is the sum every enabled target set must reach.
const TotalWeight = 100

var (
	ErrRoutingUnavailable = errors.New("contact routing unavailable")
	ErrSampleOutOfRange   = errors.New("sample must be in [0,100)")
)

// Boundary is the exclusive upper end of one target's range in [0,100).
type Boundary struct {
	Upper    int    `json:"upper"`
	TargetID string `json:"target_id"`
}

// ValidateWeights reports whether targets may be used for routing. An empty
// set is valid and means routing is disabled. Otherwise every weight must be
// within [0,100] and the weights must add up to exactly 100.
func ValidateWeights(targets []domain.ContactTarget) bool {
	if len(targets) == 0 {
		return true
	}
	return weightError(targets) == nil
}

func weightError(targets []domain.ContactTarget) error {
	total := 0
	for _, t := range targets {
		if t.WeightPercent < 0 || t.WeightPercent > TotalWeight {
			return fmt.Errorf("%w: invalid weight %d for target %s", ErrRoutingUnavailable, t.WeightPercent, t.ID)
		}
		total += t.WeightPercent
	}
	if total != TotalWeight {
		return fmt.Errorf("%w: weights sum to %d%%", ErrRoutingUnavailable, total)
	}
	return nil
}

// AutoDistribute returns a copy of targets with an even split. Each target
// gets 100/N and whatever is left over goes to the first target, so the
// result always sums to 100.
func AutoDistribute(targets []domain.ContactTarget) []domain.ContactTarget {
	out := append([]domain.ContactTarget{}, targets...)
	n := len(out)
	if n == 0 {
		return out
	}
	share := TotalWeight / n
	for i := range out {
		out[i].WeightPercent = share
	}
	out[0].WeightPercent += TotalWeight - n*share
	return out
}

// BuildPartition converts weights into cumulative upper bounds, keeping the
// stored order. Weights [50,30,20] become [50,80,100].
func BuildPartition(targets []domain.ContactTarget) ([]Boundary, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no contact targets", ErrRoutingUnavailable)
	}
	if err := weightError(targets); err != nil {
		return nil, err
	}

	bounds := make([]Boundary, len(targets))
	upper := 0
	for i, t := range targets {
		upper += t.WeightPercent
		bounds[i] = Boundary{Upper: upper, TargetID: t.ID}
	}
	return bounds, nil
}

// Select returns the ID of the target whose range contains sample, i.e. the
// first boundary strictly greater than sample. Zero-weight targets have an
// empty range and are never chosen.
func Select(targets []domain.ContactTarget, sample float64) (string, error) {
	idx, err := selectIndex(targets, sample)
	if err != nil {
		return "", err
	}
	return targets[idx].ID, nil
}

func selectIndex(targets []domain.ContactTarget, sample float64) (int, error) {
	bounds, err := BuildPartition(targets)
	if err != nil {
		return 0, err
	}
	if sample < 0 || sample >= TotalWeight {
		return 0, fmt.Errorf("%w: got %v", ErrSampleOutOfRange, sample)
	}

	idx := sort.Search(len(bounds), func(i int) bool {
		return float64(bounds[i].Upper) > sample
	})
	if idx == len(bounds) {
		// unreachable while the last bound is 100 and sample < 100
		return 0, fmt.Errorf("%w: no range for sample %v", ErrRoutingUnavailable, sample)
	}
	return idx, nil
}
