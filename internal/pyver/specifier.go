package pyver

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	clauseRe    = regexp.MustCompile(`^(~=|===|==|!=|<=|>=|<|>)(.+)$`)
	arbitraryRe = regexp.MustCompile(`^[^\s;,)]+$`)
)

// InvalidSpecifierError is returned when a string is not a valid specifier
// set.
type InvalidSpecifierError struct {
	Input  string
	Reason string
}

func (e *InvalidSpecifierError) Error() string {
	return fmt.Sprintf("invalid specifier %q: %s", e.Input, e.Reason)
}

// Specifier is a single "<operator><version>" clause.
type Specifier struct {
	Operator string
	// Version is the clause's version text with whitespace removed.
	Version  string
	wildcard bool
	parsed   Version
}

// String returns the clause exactly as declared, minus whitespace.
func (s Specifier) String() string {
	return s.Operator + s.Version
}

// SpecifierSet is a comma separated conjunction of specifiers. An empty set
// matches every version.
type SpecifierSet []Specifier

// String joins the clauses in declared order.
func (ss SpecifierSet) String() string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}

// ParseSpecifierSet parses a constraint expression such as ">=1.0, <2".
func ParseSpecifierSet(s string) (SpecifierSet, error) {
	if strings.TrimSpace(s) == "" {
		return SpecifierSet{}, nil
	}
	var set SpecifierSet
	for _, clause := range strings.Split(s, ",") {
		if strings.TrimSpace(clause) == "" {
			continue
		}
		spec, err := parseSpecifier(clause)
		if err != nil {
			return nil, &InvalidSpecifierError{Input: s, Reason: err.Error()}
		}
		set = append(set, spec)
	}
	return set, nil
}

func parseSpecifier(clause string) (Specifier, error) {
	compact := strings.Join(strings.Fields(clause), "")
	m := clauseRe.FindStringSubmatch(compact)
	if m == nil {
		return Specifier{}, fmt.Errorf("clause %q has no comparison operator", strings.TrimSpace(clause))
	}
	spec := Specifier{Operator: m[1], Version: m[2]}

	if spec.Operator == "===" {
		if !arbitraryRe.MatchString(spec.Version) {
			return Specifier{}, fmt.Errorf("clause %q is not a valid arbitrary equality", compact)
		}
		return spec, nil
	}

	text := spec.Version
	if strings.HasSuffix(text, ".*") {
		if spec.Operator != "==" && spec.Operator != "!=" {
			return Specifier{}, fmt.Errorf("wildcard not allowed with %s", spec.Operator)
		}
		spec.wildcard = true
		text = strings.TrimSuffix(text, ".*")
	}
	v, err := ParseVersion(text)
	if err != nil {
		return Specifier{}, err
	}
	if spec.wildcard && (v.Local != "" || v.IsPrerelease() || v.IsPostrelease()) {
		return Specifier{}, fmt.Errorf("wildcard clause %q must be a plain release", compact)
	}
	if spec.Operator == "~=" && (len(v.Release) < 2 || v.Local != "") {
		return Specifier{}, fmt.Errorf("compatible release clause %q needs at least two release segments", compact)
	}
	spec.parsed = v
	return spec, nil
}

// Contains reports whether v satisfies every clause of the set.
func (ss SpecifierSet) Contains(v Version) bool {
	for _, s := range ss {
		if !s.Contains(v) {
			return false
		}
	}
	return true
}

// Contains reports whether v satisfies the clause. "<V" never admits a
// pre-release of V unless V is one itself, and ">V" never admits a
// post-release or local version of V unless V is a post-release.
func (s Specifier) Contains(v Version) bool {
	switch s.Operator {
	case "===":
		return v.String() == s.Version || strings.EqualFold(s.Version, v.String())
	case "==":
		return s.equal(v)
	case "!=":
		return !s.equal(v)
	case "~=":
		prefix := s.parsed.Release[:len(s.parsed.Release)-1]
		return v.Compare(s.parsed) >= 0 && releaseHasPrefix(v.Release, prefix)
	case "<=":
		return v.Public().Compare(s.parsed) <= 0
	case ">=":
		return v.Public().Compare(s.parsed) >= 0
	case "<":
		if v.Public().Compare(s.parsed) >= 0 {
			return false
		}
		return s.parsed.IsPrerelease() || !v.IsPrerelease() || !sameBase(v, s.parsed)
	case ">":
		if v.Public().Compare(s.parsed) <= 0 {
			return false
		}
		if !s.parsed.IsPostrelease() && v.IsPostrelease() && sameBase(v, s.parsed) {
			return false
		}
		return v.Local == "" || !sameBase(v, s.parsed)
	}
	return false
}

// sameBase compares epoch and release segments only.
func sameBase(a, b Version) bool {
	return Version{Epoch: a.Epoch, Release: a.Release}.Compare(Version{Epoch: b.Epoch, Release: b.Release}) == 0
}

func (s Specifier) equal(v Version) bool {
	if s.wildcard {
		return v.Epoch == s.parsed.Epoch && releaseHasPrefix(v.Release, s.parsed.Release)
	}
	if s.parsed.Local == "" {
		v = v.Public()
	}
	return v.Compare(s.parsed) == 0
}

// releaseHasPrefix compares release segments, padding the version with
// zeros when the prefix is longer.
func releaseHasPrefix(release, prefix []int) bool {
	for i, p := range prefix {
		r := 0
		if i < len(release) {
			r = release[i]
		}
		if r != p {
			return false
		}
	}
	return true
}
