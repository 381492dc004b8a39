// Package query compiles saved library searches and reads saved search files.
//
// A query is made up of whitespace separated keywords of the form:
//
//	[property(:|=|<|>)]<value>
//
// A track must satisfy every keyword. A keyword without a property is
// searched for in the artist, title, album and people fields. ":" is a case
// insensitive substring match where "*" is a wildcard, "=" an exact match,
// and "<" / ">" compare the numeric properties duration (seconds) and size
// (bytes, or a unit such as 5MB). A literal space is written as "\ ".
// Saved files read by [ParseSavedFile] use "=" as a substring match and are
// converted on import.
//
//	beatles title:love genre=rock duration<300 size>4MB
package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/dustin/go-humanize"
)

var (
	keywordRe      = regexp.MustCompile(`(?:(\w+)([:=<>]))?((?:\\\s|\S)+)`)
	regexControlRe = regexp.MustCompile(`([\.\^\$\?\+\[\]\{\}\(\)\|\\])`)
	escapedWhite   = regexp.MustCompile(`\\(\s)`)
)

// DefaultFields are searched by keywords without a property.
var DefaultFields = []string{"artist", "title", "album", "people"}

var (
	stringProps  = map[string]bool{"path": true, "title": true, "artist": true, "people": true, "album": true, "version": true, "genre": true}
	numericProps = map[string]bool{"duration": true, "size": true}
)

type rule interface {
	match(t *models.Track) bool
}

type containsRule struct {
	property string
	re       *regexp.Regexp
}

func (r containsRule) match(t *models.Track) bool {
	val, ok := t.Attr(r.property).(string)
	return ok && r.re.MatchString(val)
}

type unkeyedRule struct {
	properties []string
	re         *regexp.Regexp
}

func (r unkeyedRule) match(t *models.Track) bool {
	for _, prop := range r.properties {
		if val, ok := t.Attr(prop).(string); ok && r.re.MatchString(val) {
			return true
		}
	}
	return false
}

type equalsRule struct {
	property string
	needle   string
}

func (r equalsRule) match(t *models.Track) bool {
	val, ok := t.Attr(r.property).(string)
	return ok && strings.EqualFold(val, r.needle)
}

type ordRule struct {
	property string
	op       byte
	ref      int64
}

func (r ordRule) match(t *models.Track) bool {
	val, ok := t.Attr(r.property).(int64)
	if !ok {
		return false
	}
	switch r.op {
	case '<':
		return val < r.ref
	case '>':
		return val > r.ref
	default:
		return val == r.ref
	}
}

// Query is a compiled query string.
type Query struct {
	raw   string
	rules []rule
}

// Compile parses a query string.
func Compile(query string) (*Query, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", shared.ErrInvalidQuery)
	}

	matches := keywordRe.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %q does not match the expected format", shared.ErrInvalidQuery, query)
	}

	q := &Query{raw: query, rules: make([]rule, 0, len(matches))}
	for _, group := range matches {
		r, err := compileKeyword(strings.ToLower(group[1]), group[2], escapedWhite.ReplaceAllString(group[3], "$1"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidQuery, err)
		}
		q.rules = append(q.rules, r)
	}
	return q, nil
}

// MustCompile is like [Compile] but panics on error.
func MustCompile(query string) *Query {
	q, err := Compile(query)
	if err != nil {
		panic(err)
	}
	return q
}

func compileKeyword(property, op, value string) (rule, error) {
	if property == "" {
		re, err := compilePattern(value)
		if err != nil {
			return nil, err
		}
		return unkeyedRule{properties: DefaultFields, re: re}, nil
	}

	switch {
	case numericProps[property]:
		ref, err := parseNumber(property, value)
		if err != nil {
			return nil, err
		}
		if op == ":" {
			op = "="
		}
		return ordRule{property: property, op: op[0], ref: ref}, nil

	case stringProps[property]:
		switch op {
		case ":":
			re, err := compilePattern(value)
			if err != nil {
				return nil, err
			}
			return containsRule{property: property, re: re}, nil
		case "=":
			return equalsRule{property: property, needle: value}, nil
		default:
			return nil, fmt.Errorf("operator %q is not supported for text property %q", op, property)
		}
	}

	return nil, fmt.Errorf("unknown property %q", property)
}

func compilePattern(value string) (*regexp.Regexp, error) {
	value = regexControlRe.ReplaceAllString(value, "\\$1")
	value = strings.ReplaceAll(value, "*", ".*")
	re, err := regexp.Compile("(?i)" + value)
	if err != nil {
		return nil, fmt.Errorf("unable to compile %q: %v", value, err)
	}
	return re, nil
}

func parseNumber(property, value string) (int64, error) {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n, nil
	}
	if property == "size" {
		n, err := humanize.ParseBytes(value)
		if err != nil {
			return 0, fmt.Errorf("invalid size %q: %v", value, err)
		}
		return int64(n), nil
	}
	return 0, fmt.Errorf("invalid number %q for %q", value, property)
}

// String returns the source query.
func (q *Query) String() string {
	return q.raw
}

// Match reports whether the track satisfies every keyword.
func (q *Query) Match(track models.Track) bool {
	if q == nil || len(q.rules) == 0 {
		return false
	}
	for _, r := range q.rules {
		if !r.match(&track) {
			return false
		}
	}
	return true
}

// Filter returns the tracks matching q in their original order.
func (q *Query) Filter(tracks []models.Track) []models.Track {
	out := make([]models.Track, 0)
	for _, t := range tracks {
		if q.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
