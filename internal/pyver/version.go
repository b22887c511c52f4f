package pyver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var versionRe = regexp.MustCompile(`(?i)^\s*v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?P<pre>[-_.]?(?P<pre_l>alpha|a|beta|b|preview|pre|c|rc)[-_.]?(?P<pre_n>[0-9]+)?)?` +
	`(?P<post>(?:-(?P<post_n1>[0-9]+))|(?:[-_.]?(?P<post_l>post|rev|r)[-_.]?(?P<post_n2>[0-9]+)?))?` +
	`(?P<dev>[-_.]?(?P<dev_l>dev)[-_.]?(?P<dev_n>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?\s*$`)

// InvalidVersionError is returned by ParseVersion for strings that are not
// PEP 440 versions.
type InvalidVersionError struct {
	Input string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q", e.Input)
}

// Version is a parsed PEP 440 version.
type Version struct {
	Epoch   int
	Release []int
	// PreLabel is one of "a", "b", "rc" or empty.
	PreLabel string
	PreNum   int
	Post     *int
	Dev      *int
	Local    string
}

// ParseVersion parses s leniently (leading "v", alternate spellings and
// separators are accepted) into a Version.
func ParseVersion(s string) (Version, error) {
	m := versionRe.FindStringSubmatch(s)
	if m == nil {
		return Version{}, &InvalidVersionError{Input: s}
	}
	group := func(name string) string {
		return m[versionRe.SubexpIndex(name)]
	}

	var v Version
	var err error
	if e := group("epoch"); e != "" {
		if v.Epoch, err = strconv.Atoi(e); err != nil {
			return Version{}, &InvalidVersionError{Input: s}
		}
	}
	for _, part := range strings.Split(group("release"), ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, &InvalidVersionError{Input: s}
		}
		v.Release = append(v.Release, n)
	}
	if group("pre") != "" {
		v.PreLabel = normalizePreLabel(group("pre_l"))
		v.PreNum, _ = strconv.Atoi(group("pre_n"))
	}
	if group("post") != "" {
		n := group("post_n1")
		if n == "" {
			n = group("post_n2")
		}
		post, _ := strconv.Atoi(n)
		v.Post = &post
	}
	if group("dev") != "" {
		dev, _ := strconv.Atoi(group("dev_n"))
		v.Dev = &dev
	}
	if l := group("local"); l != "" {
		v.Local = strings.ToLower(nameSeparatorRe.ReplaceAllString(l, "."))
	}
	return v, nil
}

func normalizePreLabel(l string) string {
	switch strings.ToLower(l) {
	case "alpha", "a":
		return "a"
	case "beta", "b":
		return "b"
	default:
		return "rc"
	}
}

// IsPrerelease reports whether the version is a pre-release or a
// development release.
func (v Version) IsPrerelease() bool {
	return v.PreLabel != "" || v.Dev != nil
}

// IsPostrelease reports whether the version carries a post-release segment.
func (v Version) IsPostrelease() bool {
	return v.Post != nil
}

// IsDevrelease reports whether the version carries a dev segment.
func (v Version) IsDevrelease() bool {
	return v.Dev != nil
}

// Public returns the version without its local segment.
func (v Version) Public() Version {
	v.Local = ""
	return v
}

// String renders the normalised form of the version.
func (v Version) String() string {
	var b strings.Builder
	if v.Epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.Epoch)
	}
	for i, r := range v.Release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(r))
	}
	if v.PreLabel != "" {
		fmt.Fprintf(&b, "%s%d", v.PreLabel, v.PreNum)
	}
	if v.Post != nil {
		fmt.Fprintf(&b, ".post%d", *v.Post)
	}
	if v.Dev != nil {
		fmt.Fprintf(&b, ".dev%d", *v.Dev)
	}
	if v.Local != "" {
		b.WriteString("+" + v.Local)
	}
	return b.String()
}

// Compare returns -1, 0 or 1 following PEP 440 ordering.
func (v Version) Compare(o Version) int {
	if c := compareInt(v.Epoch, o.Epoch); c != 0 {
		return c
	}
	if c := compareRelease(v.Release, o.Release); c != 0 {
		return c
	}
	if c := comparePre(v, o); c != 0 {
		return c
	}
	if c := compareOptional(v.Post, o.Post, -1); c != 0 {
		return c
	}
	if c := compareOptional(v.Dev, o.Dev, 1); c != 0 {
		return c
	}
	return compareLocal(v.Local, o.Local)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareRelease compares release segments with trailing zeros ignored.
func compareRelease(a, b []int) int {
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if c := compareInt(x, y); c != 0 {
			return c
		}
	}
	return 0
}

// preRank maps a version onto the pre-release ordering: a bare dev release
// sorts before any pre-release, a final release after all of them.
func preRank(v Version) (int, int) {
	switch {
	case v.PreLabel == "" && v.Post == nil && v.Dev != nil:
		return -1, 0
	case v.PreLabel == "":
		return 4, 0
	case v.PreLabel == "a":
		return 1, v.PreNum
	case v.PreLabel == "b":
		return 2, v.PreNum
	default:
		return 3, v.PreNum
	}
}

func comparePre(v, o Version) int {
	vr, vn := preRank(v)
	or, on := preRank(o)
	if c := compareInt(vr, or); c != 0 {
		return c
	}
	return compareInt(vn, on)
}

// compareOptional compares optional segments; a missing segment sorts as
// missing (-1 = before any value, 1 = after any value).
func compareOptional(a, b *int, missing int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return missing
	case b == nil:
		return -missing
	}
	return compareInt(*a, *b)
}

func compareLocal(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aErr := strconv.Atoi(as[i])
		bn, bErr := strconv.Atoi(bs[i])
		var c int
		switch {
		case aErr == nil && bErr == nil:
			c = compareInt(an, bn)
		case aErr == nil:
			c = 1
		case bErr == nil:
			c = -1
		default:
			c = strings.Compare(as[i], bs[i])
		}
		if c != 0 {
			return c
		}
	}
	return compareInt(len(as), len(bs))
}
