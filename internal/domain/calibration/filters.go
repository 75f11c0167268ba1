package calibration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// CandidateFilter is one of DepartmentFilter, JobLevelFilter, JobFamilyFilter,
// DirectReportsFilter or CustomPicksFilter.
type CandidateFilter interface {
	Mode() string
	candidateFilter()
}

type DepartmentFilter struct {
	DepartmentIDs []string `json:"departmentIds"`
}

type JobLevelFilter struct {
	Levels          []int `json:"levels"`
	OnlyWithReports bool  `json:"onlyWithReports"`
}

type JobFamilyFilter struct {
	Positions []string `json:"positions"`
}

type DirectReportsFilter struct {
	ManagerIDs []string `json:"managerIds"`
}

type CustomPicksFilter struct {
	EmployeeIDs []string `json:"employeeIds"`
}

func (DepartmentFilter) Mode() string    { return ModeDepartment }
func (JobLevelFilter) Mode() string      { return ModeJobLevel }
func (JobFamilyFilter) Mode() string     { return ModeJobFamily }
func (DirectReportsFilter) Mode() string { return ModeDirectReports }
func (CustomPicksFilter) Mode() string   { return ModeCustomPicks }

func (DepartmentFilter) candidateFilter()    {}
func (JobLevelFilter) candidateFilter()      {}
func (JobFamilyFilter) candidateFilter()     {}
func (DirectReportsFilter) candidateFilter() {}
func (CustomPicksFilter) candidateFilter()   {}

// ParseFilter resolves a stored mode and config into a typed filter. An empty
// mode falls back to the legacy department list.
func ParseFilter(mode string, config json.RawMessage, legacyDepartmentIDs []string) (CandidateFilter, error) {
	if mode == "" {
		ids := compact(legacyDepartmentIDs)
		if len(ids) == 0 {
			return nil, ErrEmptySelection
		}
		return DepartmentFilter{DepartmentIDs: ids}, nil
	}

	switch mode {
	case ModeDepartment:
		var f DepartmentFilter
		if err := decode(config, &f); err != nil {
			return nil, err
		}
		f.DepartmentIDs = compact(append(f.DepartmentIDs, legacyDepartmentIDs...))
		if len(f.DepartmentIDs) == 0 {
			return nil, ErrEmptySelection
		}
		return f, nil
	case ModeJobLevel:
		var f JobLevelFilter
		if err := decode(config, &f); err != nil {
			return nil, err
		}
		if len(f.Levels) == 0 {
			return nil, ErrEmptySelection
		}
		for _, l := range f.Levels {
			if l <= 0 {
				return nil, fmt.Errorf("%w: job level %d", ErrInvalidConfig, l)
			}
		}
		return f, nil
	case ModeJobFamily:
		var f JobFamilyFilter
		if err := decode(config, &f); err != nil {
			return nil, err
		}
		f.Positions = compact(f.Positions)
		if len(f.Positions) == 0 {
			return nil, ErrEmptySelection
		}
		return f, nil
	case ModeDirectReports:
		var f DirectReportsFilter
		if err := decode(config, &f); err != nil {
			return nil, err
		}
		f.ManagerIDs = compact(f.ManagerIDs)
		if len(f.ManagerIDs) == 0 {
			return nil, ErrEmptySelection
		}
		return f, nil
	case ModeCustomPicks:
		var f CustomPicksFilter
		if err := decode(config, &f); err != nil {
			return nil, err
		}
		f.EmployeeIDs = compact(f.EmployeeIDs)
		if len(f.EmployeeIDs) == 0 {
			return nil, ErrEmptySelection
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

func decode(config json.RawMessage, v any) error {
	if len(bytes.TrimSpace(config)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(config))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// compact trims, drops empty values and removes duplicates, keeping order.
func compact(values []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
