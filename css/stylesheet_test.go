package css

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/webdom"
)

func TestStyleSheetMetadata(t *testing.T) {
	s := NewCSSStyleSheet("https://example.com/site.css", "main", true)

	if got := s.Type(); got != "text/css" {
		t.Errorf("Type() = %q, want %q", got, "text/css")
	}
	if got := s.Href(); got != "https://example.com/site.css" {
		t.Errorf("Href() = %q", got)
	}
	if got := s.Title(); got != "main" {
		t.Errorf("Title() = %q", got)
	}
	if s.Disabled() {
		t.Error("new sheet is disabled")
	}
}

func TestStyleSheetRules(t *testing.T) {
	s := NewCSSStyleSheet("", "", true)

	idx, err := s.InsertRule("body { margin: 0 }", 0)
	if err != nil || idx != 0 {
		t.Fatalf("InsertRule() = (%d, %v)", idx, err)
	}
	idx, err = s.InsertRule("p { color: red }", 1)
	if err != nil || idx != 1 {
		t.Fatalf("InsertRule() = (%d, %v)", idx, err)
	}
	// Insert in the middle shifts later rules.
	if _, err := s.InsertRule("a { color: blue }", 1); err != nil {
		t.Fatalf("InsertRule() error = %v", err)
	}

	rules, err := s.Rules()
	if err != nil {
		t.Fatalf("Rules() error = %v", err)
	}
	want := []string{"body { margin: 0 }", "a { color: blue }", "p { color: red }"}
	if diff := cmp.Diff(want, rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}

	if err := s.DeleteRule(1); err != nil {
		t.Fatalf("DeleteRule() error = %v", err)
	}
	if got := s.RuleCount(); got != 2 {
		t.Errorf("RuleCount() = %d, want 2", got)
	}
}

func TestStyleSheetRuleErrors(t *testing.T) {
	s := NewCSSStyleSheet("", "", true)
	if _, err := s.InsertRule("body {}", 0); err != nil {
		t.Fatalf("InsertRule() error = %v", err)
	}

	t.Run("index past end", func(t *testing.T) {
		if _, err := s.InsertRule("p {}", 2); !errors.Is(err, webdom.ErrOperation) {
			t.Errorf("error = %v, want ErrOperation", err)
		}
	})
	t.Run("negative index", func(t *testing.T) {
		if _, err := s.InsertRule("p {}", -1); !errors.Is(err, webdom.ErrOperation) {
			t.Errorf("error = %v, want ErrOperation", err)
		}
	})
	t.Run("empty rule", func(t *testing.T) {
		if _, err := s.InsertRule("   ", 0); !errors.Is(err, webdom.ErrSyntax) {
			t.Errorf("error = %v, want ErrSyntax", err)
		}
	})
	t.Run("delete out of range", func(t *testing.T) {
		if err := s.DeleteRule(1); !errors.Is(err, webdom.ErrOperation) {
			t.Errorf("error = %v, want ErrOperation", err)
		}
	})
}

func TestStyleSheetCrossOrigin(t *testing.T) {
	s := NewCSSStyleSheet("https://cdn.example.com/x.css", "", false)

	if _, err := s.Rules(); !errors.Is(err, webdom.ErrSecurity) {
		t.Errorf("Rules() error = %v, want ErrSecurity", err)
	}
	if _, err := s.InsertRule("body {}", 0); !errors.Is(err, webdom.ErrSecurity) {
		t.Errorf("InsertRule() error = %v, want ErrSecurity", err)
	}
	if err := s.DeleteRule(0); !errors.Is(err, webdom.ErrSecurity) {
		t.Errorf("DeleteRule() error = %v, want ErrSecurity", err)
	}

	// Metadata stays readable.
	if got := s.Href(); got != "https://cdn.example.com/x.css" {
		t.Errorf("Href() = %q", got)
	}
}

func TestStyleSheetDisabledPropagation(t *testing.T) {
	s := NewCSSStyleSheet("", "", true)

	restyles := 0
	s.SetOwner(func() { restyles++ })

	s.SetDisabled(true)
	if !s.Disabled() {
		t.Error("sheet not disabled")
	}
	if restyles != 1 {
		t.Errorf("owner notified %d times, want 1", restyles)
	}

	// Same value again is a no-op.
	s.SetDisabled(true)
	if restyles != 1 {
		t.Errorf("owner notified %d times after no-op, want 1", restyles)
	}

	s.SetDisabled(false)
	if restyles != 2 {
		t.Errorf("owner notified %d times, want 2", restyles)
	}

	// Detached sheets flip silently.
	s.SetOwner(nil)
	s.SetDisabled(true)
	if restyles != 2 {
		t.Errorf("detached sheet notified former owner")
	}
}
