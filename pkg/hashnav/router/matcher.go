package router

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav/constants"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/internal"
)

// inlineRegex finds {/expr/flags} segments in a route pattern.
var inlineRegex = regexp.MustCompile(`\{/(.*?)/([igm]{0,3})\}`)

// placeholder is what an inline regex is replaced with while a pattern is
// split into segments.
var placeholder = regexp.MustCompile(`^@@([0-9]+)@@$`)

// skipRoutes are never candidates for hash matching.
var skipRoutes = map[string]bool{
	constants.RouteError:    true,
	constants.RouteNotFound: true,
	constants.RouteReserved: true,
}

type segmentKind int

const (
	segLiteral segmentKind = iota
	segRegex
	segParam
)

type segment struct {
	kind segmentKind
	text string         // literal text
	name string         // parameter name; set for :name and :name{/re/}
	re   *regexp.Regexp // for segRegex
}

// compiledRoute is a route pattern broken into segments. Patterns are
// compiled once at registration.
type compiledRoute struct {
	pattern  string
	segments []segment
}

// Match is the result of resolving a hash.
type Match struct {
	Route  string
	Params map[string]string
}

// StripRegex replaces every inline regex of a pattern with repl.
func StripRegex(route, repl string) string {
	return inlineRegex.ReplaceAllLiteralString(route, repl)
}

// Floor returns the number of '/'-delimited segments of a route or hash, with
// each inline regex counted as one token and one leading '/' ignored.
func Floor(route string) int {
	return len(splitSegments(StripRegex(route, "R")))
}

func splitSegments(p string) []string {
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

// normalizePattern strips trailing slashes from a route pattern.
func normalizePattern(p string) string {
	return strings.TrimRight(p, "/")
}

// normalizeHash drops a leading '#', any query string and trailing slashes.
func normalizeHash(h string) string {
	h = strings.TrimLeft(h, "#")
	if i := strings.IndexByte(h, '?'); i >= 0 {
		h = h[:i]
	}
	return strings.TrimRight(h, "/")
}

func compileRoute(pattern string) (*compiledRoute, error) {
	type lookup struct{ expr, flags string }
	var store []lookup

	replaced := inlineRegex.ReplaceAllStringFunc(pattern, func(m string) string {
		sub := inlineRegex.FindStringSubmatch(m)
		store = append(store, lookup{expr: sub[1], flags: sub[2]})
		return "@@" + strconv.Itoa(len(store)-1) + "@@"
	})

	parts := splitSegments(replaced)
	c := &compiledRoute{pattern: pattern, segments: make([]segment, 0, len(parts))}

	for _, part := range parts {
		var seg segment
		if strings.HasPrefix(part, ":") {
			rest := part[1:]
			idx := strings.Index(rest, "@@")
			if idx < 0 {
				c.segments = append(c.segments, segment{kind: segParam, name: rest})
				continue
			}
			seg.name = rest[:idx]
			part = rest[idx:]
		}

		m := placeholder.FindStringSubmatch(part)
		if m == nil {
			seg.kind = segLiteral
			seg.text = part
			c.segments = append(c.segments, seg)
			continue
		}

		n, _ := strconv.Atoi(m[1])
		l := store[n]
		re, err := regexp.Compile(regexPrefix(l.flags) + "^(?:" + l.expr + ")$")
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
		}
		seg.kind = segRegex
		seg.re = re
		c.segments = append(c.segments, seg)
	}

	return c, nil
}

// regexPrefix translates JavaScript style flags. The global flag has no
// meaning for a single segment and is ignored.
func regexPrefix(flags string) string {
	var b strings.Builder
	if strings.Contains(flags, "i") {
		b.WriteByte('i')
	}
	if strings.Contains(flags, "m") {
		b.WriteByte('m')
	}
	if b.Len() == 0 {
		return ""
	}
	return "(?" + b.String() + ")"
}

func (c *compiledRoute) matches(hashSegments []string) bool {
	if len(hashSegments) != len(c.segments) {
		return false
	}
	for i, seg := range c.segments {
		part := hashSegments[i]
		switch seg.kind {
		case segRegex:
			if !seg.re.MatchString(part) {
				return false
			}
		case segParam:
			continue
		default:
			if !internal.EqualFold(seg.text, part) {
				return false
			}
		}
	}
	return true
}

// lessSpecific reports whether a should sort after b: at the first segment
// where one is a plain parameter and the other is not, the parameter loses.
func (c *compiledRoute) lessSpecific(other *compiledRoute) bool {
	for i := range c.segments {
		if i >= len(other.segments) {
			break
		}
		a := c.segments[i].kind == segParam
		b := other.segments[i].kind == segParam
		if a != b {
			return a
		}
	}
	return false
}

// params extracts named values of hash for this route.
func (c *compiledRoute) params(hash string) map[string]string {
	out := make(map[string]string)
	parts := splitSegments(normalizeHash(hash))
	for i, seg := range c.segments {
		if seg.name == "" || i >= len(parts) {
			continue
		}
		v, err := url.PathUnescape(parts[i])
		if err != nil {
			v = parts[i]
		}
		out[seg.name] = v
	}
	return out
}

// matchLocked finds the best route for hash. Callers hold r.mu.
func (r *Router) matchLocked(hash string) (string, bool) {
	parts := splitSegments(normalizeHash(hash))

	var candidates []*compiledRoute
	for _, pattern := range r.registry.order {
		if skipRoutes[pattern] {
			continue
		}
		c := r.registry.compiled[pattern]
		if c == nil || len(c.segments) != len(parts) {
			continue
		}
		if c.matches(parts) {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) == 0 {
		return "", false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[j].lessSpecific(candidates[i])
	})
	return candidates[0].pattern, true
}

// Match resolves hash to a registered route and its named parameters. The
// reserved wildcard routes are never returned.
func (r *Router) Match(hash string) (Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	route, ok := r.matchLocked(hash)
	if !ok {
		return Match{}, false
	}
	return Match{Route: route, Params: r.registry.compiled[route].params(hash)}, true
}

// urlParamsLocked extracts named values of hash for route, or an empty map
// for routes that were never compiled. Callers hold r.mu.
func (r *Router) urlParamsLocked(route, hash string) map[string]string {
	if c := r.registry.compiled[route]; c != nil {
		return c.params(hash)
	}
	return map[string]string{}
}
