package performance

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/domain/org"
)

// DefaultCompetencies is the library seeded into a tenant by the seed_defaults action.
var DefaultCompetencies = []Competency{
	{Code: "CORE-COMM", Name: "Communication", Category: CategoryCore, SortOrder: 10},
	{Code: "CORE-COLLAB", Name: "Collaboration", Category: CategoryCore, SortOrder: 20},
	{Code: "CORE-RESULTS", Name: "Results orientation", Category: CategoryCore, SortOrder: 30},
	{Code: "CORE-ADAPT", Name: "Adaptability", Category: CategoryCore, SortOrder: 40},
	{Code: "CORE-CUSTOMER", Name: "Customer focus", Category: CategoryCore, SortOrder: 50},
	{
		Code: "LEAD-DEVELOP", Name: "Developing people", Category: CategoryLeadership, SortOrder: 110,
		Audience: Audience{Tracks: []string{org.TrackManager, org.TrackEjecutivo}},
	},
	{
		Code: "LEAD-DELEGATE", Name: "Delegation", Category: CategoryLeadership, SortOrder: 120,
		Audience: Audience{Tracks: []string{org.TrackManager, org.TrackEjecutivo}},
	},
	{
		Code: "LEAD-FEEDBACK", Name: "Feedback and coaching", Category: CategoryLeadership, SortOrder: 130,
		Audience: Audience{Tracks: []string{org.TrackManager, org.TrackEjecutivo}},
	},
	{
		Code: "STRAT-VISION", Name: "Strategic vision", Category: CategoryStrategic, SortOrder: 210,
		Audience: Audience{Tracks: []string{org.TrackEjecutivo}},
	},
	{
		Code: "STRAT-CHANGE", Name: "Leading change", Category: CategoryStrategic, SortOrder: 220,
		Audience: Audience{Tracks: []string{org.TrackEjecutivo}},
	},
}

// Applies reports whether the audience covers an employee on track at jobLevel.
// Empty rules match everyone; a zero job level skips the level bounds.
func (a Audience) Applies(track string, jobLevel int) bool {
	if len(a.Tracks) > 0 {
		found := false
		for _, t := range a.Tracks {
			if t == track {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if jobLevel > 0 {
		if a.MinJobLevel > 0 && jobLevel < a.MinJobLevel {
			return false
		}
		if a.MaxJobLevel > 0 && jobLevel > a.MaxJobLevel {
			return false
		}
	}
	return true
}

// SelectCompetencies returns the snapshot competencies that apply to track and
// jobLevel, ordered by SortOrder then code.
func SelectCompetencies(track string, jobLevel int, snapshot CompetencySnapshot) []Competency {
	out := make([]Competency, 0, len(snapshot.Competencies))
	for _, c := range snapshot.Competencies {
		if c.Audience.Applies(track, jobLevel) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// CompetenciesFor selects for an employee's track and seniority.
func CompetenciesFor(emp org.Employee, snapshot CompetencySnapshot) []Competency {
	return SelectCompetencies(emp.Track(), emp.StandardJobLevel, snapshot)
}

// NewSnapshot freezes competencies. The version is a content hash, so two
// cycles created from the same library share it.
func NewSnapshot(competencies []Competency) (CompetencySnapshot, error) {
	frozen := append([]Competency(nil), competencies...)
	sort.SliceStable(frozen, func(i, j int) bool {
		if frozen[i].SortOrder != frozen[j].SortOrder {
			return frozen[i].SortOrder < frozen[j].SortOrder
		}
		return frozen[i].Code < frozen[j].Code
	})
	raw, err := json.Marshal(frozen)
	if err != nil {
		return CompetencySnapshot{}, fmt.Errorf("encode competency snapshot: %w", err)
	}
	sum := sha256.Sum256(raw)
	return CompetencySnapshot{Version: hex.EncodeToString(sum[:6]), Competencies: frozen}, nil
}
