package diag_test

import (
	"strings"
	"testing"

	"github.com/keurnel/riscv/internal/diag"
)

func TestContext_RecordsEntriesWithPhase(t *testing.T) {
	c := diag.New()
	c.SetPhase(diag.PhaseParse)
	c.Errorf(diag.Location{Line: 3, Column: 7}, "unknown mnemonic %q", "frob")
	c.SetPhase(diag.PhaseEncode)
	c.Tracef(diag.Location{}, "encoded %d words", 4)

	entries := c.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries() has %d entries, expected 2", len(entries))
	}
	if entries[0].Phase != diag.PhaseParse || entries[0].Severity != diag.SeverityError {
		t.Errorf("entry 0 = %+v, expected a parse error", entries[0])
	}
	if entries[1].Phase != diag.PhaseEncode || entries[1].Severity != diag.SeverityTrace {
		t.Errorf("entry 1 = %+v, expected an encode trace", entries[1])
	}
}

func TestContext_HasErrors(t *testing.T) {
	c := diag.New()
	if c.HasErrors() {
		t.Error("empty context reports errors")
	}
	c.Warningf(diag.Location{Line: 1}, "just a warning")
	if c.HasErrors() {
		t.Error("warnings must not count as errors")
	}
	c.Errorf(diag.Location{Line: 2}, "boom")
	if !c.HasErrors() {
		t.Error("context with an error entry reports none")
	}
}

func TestEntry_String(t *testing.T) {
	scenarios := []struct {
		name     string
		entry    diag.Entry
		expected string
	}{
		{
			"With line and column",
			diag.Entry{Severity: diag.SeverityError, Phase: "parse", Location: diag.Location{Line: 3, Column: 7}, Message: "bad token"},
			"error [parse] 3:7: bad token",
		},
		{
			"Whole line",
			diag.Entry{Severity: diag.SeverityWarning, Phase: "labels", Location: diag.Location{Line: 9}, Message: "shadowed"},
			"warning [labels] 9: shadowed",
		},
		{
			"No location",
			diag.Entry{Severity: diag.SeverityInfo, Phase: "encode", Message: "done"},
			"info [encode] done",
		},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			if got := scenario.entry.String(); got != scenario.expected {
				t.Errorf("String() = %q, expected %q", got, scenario.expected)
			}
		})
	}
}

func TestContext_RenderFiltersBySeverity(t *testing.T) {
	c := diag.New()
	c.SetPhase(diag.PhaseLex)
	c.Tracef(diag.Location{Line: 1}, "saw a token")
	c.Warningf(diag.Location{Line: 2}, "odd spacing")
	c.Errorf(diag.Location{Line: 3}, "bad number")

	var b strings.Builder
	c.Render(&b, diag.SeverityWarning)
	rendered := b.String()

	if strings.Contains(rendered, "saw a token") {
		t.Errorf("trace leaked through a warning filter:\n%s", rendered)
	}
	if !strings.Contains(rendered, "odd spacing") || !strings.Contains(rendered, "bad number") {
		t.Errorf("warning or error missing:\n%s", rendered)
	}
}
