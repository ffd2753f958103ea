package services

import (
	"strings"
	"testing"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"summary":"ok"}`, `{"summary":"ok"}`},
		{"json fence", "```json\n{\"summary\":\"ok\"}\n```", `{"summary":"ok"}`},
		{"plain fence", "```\n{\"summary\":\"ok\"}\n```", `{"summary":"ok"}`},
		{"surrounding whitespace", "  \n{\"summary\":\"ok\"}\n  ", `{"summary":"ok"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := stripCodeFences(tc.in); got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestInstructionFor_UnknownTypeFallsBack(t *testing.T) {
	if got := InstructionFor("nonsense"); got != "You are a helpful assistant." {
		t.Errorf("Unexpected fallback instruction: %q", got)
	}
}

func TestChatInstruction_EmbedsContext(t *testing.T) {
	got := ChatInstruction("- [2024-03-15] Math: Calculus (Confidence: 4/5). Notes: chain rule")
	if !strings.Contains(got, "Math: Calculus") {
		t.Errorf("Expected study context embedded in instruction, got:\n%s", got)
	}
}
