// Package css implements the stylesheet object model: a style sheet
// with a serialized rule list, the same-origin guard on rule access,
// and disabled-state propagation to the owning document.
package css

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/webdom"
)

// StyleSheet carries the metadata common to every style sheet kind.
type StyleSheet struct {
	sheetType string
	href      string
	title     string
	disabled  bool
}

// Type returns the sheet's type string, e.g. "text/css".
func (s *StyleSheet) Type() string { return s.sheetType }

// Href returns the sheet's location, or the empty string for inline
// sheets.
func (s *StyleSheet) Href() string { return s.href }

// Title returns the advisory title.
func (s *StyleSheet) Title() string { return s.title }

// Disabled reports whether the sheet is excluded from rendering.
func (s *StyleSheet) Disabled() bool { return s.disabled }

// CSSStyleSheet is a CSS style sheet with an ordered rule list. Rule
// access is gated on the origin-clean flag: sheets fetched cross-origin
// expose their metadata but not their rules.
type CSSStyleSheet struct {
	StyleSheet

	rules       []string
	originClean bool

	// onDisabledChanged notifies the owner that the sheet's effect on
	// the document changed. Nil for detached sheets.
	onDisabledChanged func()
}

// NewCSSStyleSheet creates a sheet with the given metadata. originClean
// records whether the sheet's source shares the document's origin.
func NewCSSStyleSheet(href, title string, originClean bool) *CSSStyleSheet {
	return &CSSStyleSheet{
		StyleSheet:  StyleSheet{sheetType: "text/css", href: href, title: title},
		originClean: originClean,
	}
}

// SetOwner registers the callback fired when the sheet's disabled
// state flips. Pass nil when the sheet detaches from its owner.
func (s *CSSStyleSheet) SetOwner(onDisabledChanged func()) {
	s.onDisabledChanged = onDisabledChanged
}

// SetOriginClean updates the origin-clean flag, e.g. after a CORS
// check upgrades a fetched sheet.
func (s *CSSStyleSheet) SetOriginClean(clean bool) {
	s.originClean = clean
}

// SetDisabled updates the disabled flag and, when the value actually
// changes, tells the owner to restyle.
func (s *CSSStyleSheet) SetDisabled(disabled bool) {
	if disabled == s.disabled {
		return
	}
	s.disabled = disabled
	if s.onDisabledChanged != nil {
		s.onDisabledChanged()
	}
}

// Rules returns the serialized rule list. Sheets that are not
// origin-clean refuse with a Security-class error.
func (s *CSSStyleSheet) Rules() ([]string, error) {
	if !s.originClean {
		return nil, fmt.Errorf("%w: cannot access rules of a cross-origin stylesheet", webdom.ErrSecurity)
	}
	return slices.Clone(s.rules), nil
}

// InsertRule parses rule and inserts it at index, returning the index
// it was inserted at. Indexes run 0..len(rules); anything past the end
// is an index-class failure, an empty rule a syntax failure, and a
// cross-origin sheet a security failure.
func (s *CSSStyleSheet) InsertRule(rule string, index int) (int, error) {
	if !s.originClean {
		return 0, fmt.Errorf("%w: cannot modify rules of a cross-origin stylesheet", webdom.ErrSecurity)
	}
	if index < 0 || index > len(s.rules) {
		return 0, fmt.Errorf("%w: rule index %d out of range [0, %d]", webdom.ErrOperation, index, len(s.rules))
	}
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return 0, fmt.Errorf("%w: empty rule", webdom.ErrSyntax)
	}
	s.rules = slices.Insert(s.rules, index, rule)
	return index, nil
}

// DeleteRule removes the rule at index.
func (s *CSSStyleSheet) DeleteRule(index int) error {
	if !s.originClean {
		return fmt.Errorf("%w: cannot modify rules of a cross-origin stylesheet", webdom.ErrSecurity)
	}
	if index < 0 || index >= len(s.rules) {
		return fmt.Errorf("%w: rule index %d out of range [0, %d)", webdom.ErrOperation, index, len(s.rules))
	}
	s.rules = slices.Delete(s.rules, index, index+1)
	return nil
}

// RuleCount returns the number of rules without the origin gate; the
// count alone is not considered sensitive.
func (s *CSSStyleSheet) RuleCount() int {
	return len(s.rules)
}
