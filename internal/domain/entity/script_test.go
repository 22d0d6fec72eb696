package entity

import (
	"encoding/json"
	"testing"
)

func TestScript_CloneIsDeep(t *testing.T) {
	s := Script{{Line: "a", ArtDirection: "x"}, {Line: "b", ArtDirection: "y"}}
	c := s.Clone()
	c[0] = ScriptLine{Line: "changed"}

	if s[0].Line != "a" {
		t.Fatalf("mutating the clone leaked into the source: %+v", s[0])
	}
	if Script(nil).Clone() != nil {
		t.Fatal("clone of nil should stay nil")
	}
}

func TestSelectionSet_JSONRoundTripIsSorted(t *testing.T) {
	s := NewSelectionSet(3, 1, 1, 2)
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != "[1,2,3]" {
		t.Fatalf("marshal = %s, want [1,2,3]", raw)
	}

	var back SelectionSet
	if err := json.Unmarshal([]byte("[5,0]"), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Contains(5) || !back.Contains(0) || back.Len() != 2 {
		t.Fatalf("unexpected set: %v", back.Sorted())
	}
}

func TestSelectionSet_OutOfRange(t *testing.T) {
	s := NewSelectionSet(-1, 0, 2, 3)
	got := s.OutOfRange(3)
	if len(got) != 2 || got[0] != -1 || got[1] != 3 {
		t.Fatalf("OutOfRange = %v, want [-1 3]", got)
	}
}

// TestAdLength_Unmarshal 表单字符串与整数两种写法
func TestAdLength_Unmarshal(t *testing.T) {
	cases := []struct {
		in   string
		want AdLength
		ok   bool
	}{
		{`"30s"`, 30, true},
		{`"15s"`, 15, true},
		{`60`, 60, true},
		{`"60"`, 60, true},
		{`""`, 0, true},
		{`"abc"`, 0, false},
		{`-5`, 0, false},
		{`true`, 0, false},
	}
	for _, tc := range cases {
		var a AdLength
		err := json.Unmarshal([]byte(tc.in), &a)
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.in, err)
			continue
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("%s: expected error", tc.in)
			}
			continue
		}
		if a != tc.want {
			t.Errorf("%s: got %d, want %d", tc.in, a, tc.want)
		}
	}
}

func TestAdMetadata_MissingFields(t *testing.T) {
	m := AdMetadata{ProductName: "Widget", Tone: "warm", AdLength: 30}
	got := m.MissingFields()
	if len(got) != 2 || got[0] != "target_audience" || got[1] != "key_selling_points" {
		t.Fatalf("MissingFields = %v", got)
	}
}
