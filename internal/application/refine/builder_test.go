package refine

import (
	"testing"

	"ad-studio-api/internal/domain/entity"
	apperrors "ad-studio-api/pkg/errors"
)

func TestBuildRefinementRequest_InputErrors(t *testing.T) {
	s := script("L0", "L1")
	meta := entity.AdMetadata{Tone: "warm", AdLength: 30}

	cases := []struct {
		name        string
		script      entity.Script
		selection   entity.SelectionSet
		instruction string
		code        apperrors.ErrorCode
	}{
		{"no selection", s, entity.NewSelectionSet(), "shorter", apperrors.CodeNoSelection},
		{"blank instruction", s, entity.NewSelectionSet(0), "   ", apperrors.CodeEmptyInstruction},
		{"empty script", nil, entity.NewSelectionSet(0), "shorter", apperrors.CodeEmptyScript},
		{"out of range", s, entity.NewSelectionSet(0, 2), "shorter", apperrors.CodeSelectionOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := BuildRefinementRequest(tc.script, tc.selection, tc.instruction, meta)
			if req != nil {
				t.Fatalf("expected no request, got %+v", req)
			}
			if !apperrors.HasCode(err, tc.code) {
				t.Fatalf("err = %v, want code %s", err, tc.code)
			}
		})
	}
}

func TestBuildRefinementRequest_WireShape(t *testing.T) {
	s := entity.Script{{Line: "Hello", ArtDirection: "upbeat"}, {Line: "Buy now", ArtDirection: "urgent"}}
	meta := entity.AdMetadata{KeySellingPoints: "cheap", Tone: "warm", AdLength: 30}

	req, err := BuildRefinementRequest(s, entity.NewSelectionSet(1, 0), "  punchier  ", meta)
	if err != nil {
		t.Fatalf("BuildRefinementRequest: %v", err)
	}
	if len(req.CurrentScript) != 2 || req.CurrentScript[1] != [2]string{"Buy now", "urgent"} {
		t.Fatalf("current_script = %v", req.CurrentScript)
	}
	if len(req.SelectedSentences) != 2 || req.SelectedSentences[0] != 0 || req.SelectedSentences[1] != 1 {
		t.Fatalf("selected_sentences = %v", req.SelectedSentences)
	}
	if req.ImprovementInstruction != "punchier" {
		t.Fatalf("instruction = %q", req.ImprovementInstruction)
	}
	if req.AdLength != 30 || req.Tone != "warm" || req.KeySellingPoints != "cheap" {
		t.Fatalf("metadata = %+v", req)
	}
}
