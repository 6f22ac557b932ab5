package courselookup

import (
	"strings"

	"github.com/oarkflow/filters"
)

// Default result caps per category.
const (
	DefaultCourseCap     = 3
	DefaultInstructorCap = 3
)

// Caps bounds the number of results returned per category. A zero or
// negative cap disables that category.
type Caps struct {
	Courses     int `json:"courses"`
	Instructors int `json:"instructors"`
}

// DefaultCaps returns the default per-category caps.
func DefaultCaps() Caps {
	return Caps{Courses: DefaultCourseCap, Instructors: DefaultInstructorCap}
}

// Results is the outcome of one query. Seq orders results produced by a
// Session; it is zero for results computed directly on a Snapshot.
type Results struct {
	Seq         uint64         `json:"seq,omitempty"`
	Query       string         `json:"query"`
	Courses     []CourseRecord `json:"courses"`
	Instructors []string       `json:"instructors"`
}

// QueryOption refines a query.
type QueryOption func(*queryConfig)

type queryConfig struct {
	rules []*filters.Rule
	err   error
}

// ParseCondition parses an SQL-like condition over the course fields
// _id, subject, title, catalog and instructors.
func ParseCondition(condition string) (*filters.Rule, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return nil, nil
	}
	rule, err := filters.ParseSQL(condition)
	if err != nil {
		return nil, &ConditionError{Condition: condition, cause: err}
	}
	return rule, nil
}

// WithCondition restricts course matches to records satisfying the SQL-like
// condition. An unparsable condition makes the course list empty; use
// Snapshot.Search to observe the parse error.
func WithCondition(condition string) QueryOption {
	return func(cfg *queryConfig) {
		rule, err := ParseCondition(condition)
		if err != nil {
			cfg.err = err
			return
		}
		if rule != nil {
			cfg.rules = append(cfg.rules, rule)
		}
	}
}

// WithRule restricts course matches to records matched by rule.
func WithRule(rule *filters.Rule) QueryOption {
	return func(cfg *queryConfig) {
		if rule != nil {
			cfg.rules = append(cfg.rules, rule)
		}
	}
}

// WithFilters restricts course matches to records satisfying every
// condition.
func WithFilters(conditions ...filters.Condition) QueryOption {
	return func(cfg *queryConfig) {
		if len(conditions) == 0 {
			return
		}
		rule := filters.NewRule()
		rule.AddCondition(filters.Boolean("AND"), false, conditions...)
		cfg.rules = append(cfg.rules, rule)
	}
}

// Query runs query against both indexes. It is pure: the snapshot is not
// modified and equal inputs give equal results. An empty query yields
// empty lists, never the whole dataset.
func (s *Snapshot) Query(query string, caps Caps, opts ...QueryOption) Results {
	res, _ := s.Search(query, caps, opts...)
	return res
}

// Search is Query that also reports an invalid condition.
func (s *Snapshot) Search(query string, caps Caps, opts ...QueryOption) (Results, error) {
	res := Results{
		Query:       query,
		Courses:     []CourseRecord{},
		Instructors: []string{},
	}
	var cfg queryConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if s == nil || strings.TrimSpace(query) == "" {
		return res, cfg.err
	}
	if cfg.err == nil {
		var keep func(int) bool
		if len(cfg.rules) > 0 {
			keep = func(docID int) bool {
				rec := s.Courses[docID].Record()
				for _, rule := range cfg.rules {
					if !rule.Match(rec) {
						return false
					}
				}
				return true
			}
		}
		for _, pos := range s.CourseIndex.SearchWhere(query, caps.Courses, keep) {
			res.Courses = append(res.Courses, s.Courses[pos])
		}
	}
	if s.InstructorIndex != nil {
		for _, pos := range s.InstructorIndex.Search(query, caps.Instructors) {
			res.Instructors = append(res.Instructors, s.Instructors[pos])
		}
	}
	return res, cfg.err
}
