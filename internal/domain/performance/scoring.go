package performance

import "sort"

// RaterScores holds one completed assignment's competency scores.
type RaterScores struct {
	AssignmentID string
	EvaluatorID  string
	Type         string
	Scores       map[string]float64
}

// Weights per rater type. The zero value means an unweighted mean.
type Weights struct {
	Self    float64 `json:"self"`
	Manager float64 `json:"manager"`
	Peer    float64 `json:"peer"`
	Upward  float64 `json:"upward"`
}

func (w Weights) zero() bool {
	return w.Self == 0 && w.Manager == 0 && w.Peer == 0 && w.Upward == 0
}

type CompetencyScore struct {
	Code           string   `json:"code"`
	SelfScore      *float64 `json:"selfScore,omitempty"`
	ManagerScore   *float64 `json:"managerScore,omitempty"`
	PeerAvgScore   *float64 `json:"peerAvgScore,omitempty"`
	UpwardAvgScore *float64 `json:"upwardAvgScore,omitempty"`
	PeerCount      int      `json:"peerCount"`
	UpwardCount    int      `json:"upwardCount"`
	OverallAvg     float64  `json:"overallAvgScore"`
	Gap            *float64 `json:"gap,omitempty"`
	Classification string   `json:"classification,omitempty"`
}

type Profile struct {
	EmployeeID      string            `json:"employeeId"`
	Competencies    []CompetencyScore `json:"competencies"`
	OverallScore    float64           `json:"overallScore"`
	EvaluationCount int               `json:"evaluationCount"`
}

type accumulator struct {
	sum   float64
	count int
}

func (a *accumulator) add(v float64) {
	a.sum += v
	a.count++
}

func (a accumulator) mean() *float64 {
	if a.count == 0 {
		return nil
	}
	v := round2(a.sum / float64(a.count))
	return &v
}

// BuildProfile combines completed evaluations of one employee into per-competency scores.
func BuildProfile(employeeID string, evaluations []RaterScores, weights Weights) Profile {
	byCode := map[string]map[string]*accumulator{}
	for _, ev := range evaluations {
		rater := RaterType(ev.Type)
		if rater == "" {
			continue
		}
		for code, score := range ev.Scores {
			if score < MinScore || score > MaxScore {
				continue
			}
			perRater, ok := byCode[code]
			if !ok {
				perRater = map[string]*accumulator{}
				byCode[code] = perRater
			}
			acc, ok := perRater[rater]
			if !ok {
				acc = &accumulator{}
				perRater[rater] = acc
			}
			acc.add(score)
		}
	}

	profile := Profile{EmployeeID: employeeID, EvaluationCount: len(evaluations), Competencies: []CompetencyScore{}}
	var total accumulator
	for code, perRater := range byCode {
		cs := CompetencyScore{Code: code}
		if acc := perRater[RaterSelf]; acc != nil {
			cs.SelfScore = acc.mean()
		}
		if acc := perRater[RaterManager]; acc != nil {
			cs.ManagerScore = acc.mean()
		}
		if acc := perRater[RaterPeer]; acc != nil {
			cs.PeerAvgScore = acc.mean()
			cs.PeerCount = acc.count
		}
		if acc := perRater[RaterUpward]; acc != nil {
			cs.UpwardAvgScore = acc.mean()
			cs.UpwardCount = acc.count
		}
		cs.OverallAvg = overall(cs, weights)
		if cs.SelfScore != nil && cs.ManagerScore != nil {
			gap := round2(*cs.SelfScore - *cs.ManagerScore)
			cs.Gap = &gap
		}
		cs.Classification = ClassifyGap(cs.SelfScore, cs.ManagerScore, cs.OverallAvg)
		profile.Competencies = append(profile.Competencies, cs)
		total.add(cs.OverallAvg)
	}
	sort.Slice(profile.Competencies, func(i, j int) bool {
		return profile.Competencies[i].Code < profile.Competencies[j].Code
	})
	if m := total.mean(); m != nil {
		profile.OverallScore = *m
	}
	return profile
}

func overall(cs CompetencyScore, w Weights) float64 {
	type part struct {
		score  *float64
		weight float64
	}
	parts := []part{
		{cs.SelfScore, w.Self},
		{cs.ManagerScore, w.Manager},
		{cs.PeerAvgScore, w.Peer},
		{cs.UpwardAvgScore, w.Upward},
	}

	var weighted, weightSum float64
	var plain accumulator
	for _, p := range parts {
		if p.score == nil {
			continue
		}
		plain.add(*p.score)
		if p.weight > 0 {
			weighted += *p.score * p.weight
			weightSum += p.weight
		}
	}
	if !w.zero() && weightSum > 0 {
		return round2(weighted / weightSum)
	}
	if m := plain.mean(); m != nil {
		return *m
	}
	return 0
}

// gapEpsilon absorbs float error so that a gap of exactly 0.5 classifies.
const gapEpsilon = 1e-9

// ClassifyGap returns the gap class of one competency, or "" for no flag.
// Without both a self and a manager score there is no classification.
func ClassifyGap(selfScore, managerScore *float64, overallAvg float64) string {
	if selfScore == nil || managerScore == nil {
		return ""
	}
	gap := *selfScore - *managerScore
	switch {
	case gap >= GapThreshold-gapEpsilon:
		return GapBlindSpot
	case gap <= -GapThreshold+gapEpsilon:
		return GapHiddenStrength
	case overallAvg < DevelopmentThreshold:
		return GapDevelopmentArea
	default:
		return ""
	}
}

// Strengths returns up to n competencies ordered by overall score, highest first.
func (p Profile) Strengths(n int) []CompetencyScore {
	return p.ranked(n, func(a, b float64) bool { return a > b })
}

// DevelopmentAreas returns up to n competencies ordered by overall score, lowest first.
func (p Profile) DevelopmentAreas(n int) []CompetencyScore {
	return p.ranked(n, func(a, b float64) bool { return a < b })
}

func (p Profile) ranked(n int, before func(a, b float64) bool) []CompetencyScore {
	out := append([]CompetencyScore(nil), p.Competencies...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OverallAvg != out[j].OverallAvg {
			return before(out[i].OverallAvg, out[j].OverallAvg)
		}
		return out[i].Code < out[j].Code
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Classified returns the competencies flagged with class.
func (p Profile) Classified(class string) []CompetencyScore {
	var out []CompetencyScore
	for _, cs := range p.Competencies {
		if cs.Classification == class {
			out = append(out, cs)
		}
	}
	return out
}
