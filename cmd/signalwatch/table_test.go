package main

import (
	"strings"
	"testing"
)

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"Status", "Count"},
		[][]string{
			{"enriched", "12"},
			{"failed"},
		},
		1,
	)
	if !strings.Contains(out, "enriched") || !strings.Contains(out, "failed") {
		t.Fatalf("missing rows in output:\n%s", out)
	}
	if !strings.Contains(out, "STATUS") {
		t.Fatalf("missing header in output:\n%s", out)
	}
}

func TestRenderTableRightAlignsNumericColumns(t *testing.T) {
	out := renderTable(
		[]string{"Name", "Priority"},
		[][]string{
			{"alpha", "5"},
			{"beta", "100"},
		},
		1,
	)
	var five, hundred string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "alpha") {
			five = line
		}
		if strings.Contains(line, "beta") {
			hundred = line
		}
	}
	if five == "" || hundred == "" {
		t.Fatalf("rows not rendered:\n%s", out)
	}
	if strings.Index(five, "5") <= strings.Index(hundred, "100") {
		t.Fatalf("priority column not right-aligned:\n%s", out)
	}
}

func TestRenderTableEmptyHeaders(t *testing.T) {
	if out := renderTable(nil, nil); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}
