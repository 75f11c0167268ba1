package performance

import "math"

// PotentialFactors is the Aspiration/Ability/Engagement assessment.
type PotentialFactors struct {
	Aspiration int `json:"aspiration"`
	Ability    int `json:"ability"`
	Engagement int `json:"engagement"`
}

func (f PotentialFactors) Validate() error {
	for _, v := range []int{f.Aspiration, f.Ability, f.Engagement} {
		if v < MinFactor || v > MaxFactor {
			return ErrInvalidFactor
		}
	}
	return nil
}

func (f PotentialFactors) Score() float64 {
	return round2(float64(f.Aspiration+f.Ability+f.Engagement) / 3)
}

// ClassifyPotential returns the potential score and its level.
func ClassifyPotential(f PotentialFactors) (float64, string, error) {
	if err := f.Validate(); err != nil {
		return 0, "", err
	}
	score := f.Score()
	return score, levelOnThreePointScale(score), nil
}

// PerformanceLevel maps a 1-5 score onto the shared low/medium/high scale.
// A zero score means the rating has not been aggregated yet.
func PerformanceLevel(score float64) string {
	if score <= 0 {
		return ""
	}
	// 1..5 onto 1..3
	return levelOnThreePointScale(1 + (score-1)/2)
}

func levelOnThreePointScale(v float64) string {
	switch {
	case v < 1.5:
		return LevelLow
	case v < 2.5:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// nineBox is indexed by [potential][performance].
var nineBox = [3][3]string{
	{NineBoxRisk, NineBoxEffective, NineBoxSolidPerformer},
	{NineBoxInconsistent, NineBoxCorePlayer, NineBoxHighPerformer},
	{NineBoxEnigma, NineBoxHighPotential, NineBoxStar},
}

var levelIndex = map[string]int{LevelLow: 0, LevelMedium: 1, LevelHigh: 2}

// NineBox returns the cell for a performance and potential level, or "" when
// either level is unknown.
func NineBox(performanceLevel, potentialLevel string) string {
	x, okX := levelIndex[performanceLevel]
	y, okY := levelIndex[potentialLevel]
	if !okX || !okY {
		return ""
	}
	return nineBox[y][x]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
