package query

import (
	"net/url"
	"strconv"
	"strings"

	"studentdesk/internal/models"
)

// StudentFilter is a backend-neutral search over students. Zero values mean
// "no constraint"; nil age bounds are omitted rather than treated as zero.
type StudentFilter struct {
	Name       string
	Major      string
	Gender     models.Gender
	MinAge     *int
	MaxAge     *int
	SortByName bool
}

type Options struct {
	SortByName bool
}

// BuildFilter reads name, major, gender, minAge, maxAge and sort from params.
func BuildFilter(params url.Values, opts Options) StudentFilter {
	filter := StudentFilter{
		Name:       strings.TrimSpace(params.Get("name")),
		Major:      strings.TrimSpace(params.Get("major")),
		Gender:     models.Gender(strings.TrimSpace(params.Get("gender"))),
		MinAge:     parseBound(params.Get("minAge")),
		MaxAge:     parseBound(params.Get("maxAge")),
		SortByName: opts.SortByName || strings.EqualFold(params.Get("sort"), "name"),
	}
	return filter
}

func parseBound(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

func (f StudentFilter) IsEmpty() bool {
	return f.Name == "" && f.Major == "" && f.Gender == "" && f.MinAge == nil && f.MaxAge == nil
}

// Matches applies the filter to a single record.
func (f StudentFilter) Matches(s models.Student) bool {
	if f.Name != "" && !containsFold(s.Name, f.Name) {
		return false
	}
	if f.Major != "" && !containsFold(s.Major, f.Major) {
		return false
	}
	if f.Gender != "" && s.Gender != f.Gender {
		return false
	}
	if f.MinAge != nil && s.Age < *f.MinAge {
		return false
	}
	if f.MaxAge != nil && s.Age > *f.MaxAge {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern wraps s for a substring LIKE/ILIKE match with '\' as the escape character.
func LikePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// Values renders the filter back into query parameters, for links and form state.
func (f StudentFilter) Values() url.Values {
	v := url.Values{}
	if f.Name != "" {
		v.Set("name", f.Name)
	}
	if f.Major != "" {
		v.Set("major", f.Major)
	}
	if f.Gender != "" {
		v.Set("gender", string(f.Gender))
	}
	if f.MinAge != nil {
		v.Set("minAge", strconv.Itoa(*f.MinAge))
	}
	if f.MaxAge != nil {
		v.Set("maxAge", strconv.Itoa(*f.MaxAge))
	}
	if f.SortByName {
		v.Set("sort", "name")
	}
	return v
}
