package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"ad-studio-api/internal/application/refine"
	"ad-studio-api/internal/domain/entity"
	"ad-studio-api/internal/infrastructure/scriptsvc"
)

// Report 一次离线校验的完整结果
type Report struct {
	Name       string                     `json:"name,omitempty"`
	Original   entity.Script              `json:"original"`
	Selection  []int                      `json:"selected_sentences"`
	Received   []entity.ScriptLine        `json:"received"`
	Script     entity.Script              `json:"script"`
	Validation *entity.ValidationMetadata `json:"validation"`
}

// Check 规范化上游响应并执行校验，与服务端走同一条路径
func Check(original entity.Script, selection entity.SelectionSet, body []byte) (*Report, error) {
	if len(original) == 0 {
		return nil, fmt.Errorf("script has no lines")
	}
	if bad := selection.OutOfRange(len(original)); len(bad) > 0 {
		return nil, fmt.Errorf("selected sentences %v out of range for %d lines", bad, len(original))
	}

	resp, err := scriptsvc.NormalizeRefinement(body)
	if err != nil {
		return nil, err
	}
	res, err := refine.Validate(original, selection, resp)
	if err != nil {
		return nil, err
	}
	return &Report{
		Original:   original,
		Selection:  selection.Sorted(),
		Received:   resp.Data,
		Script:     res.Script,
		Validation: res.Validation,
	}, nil
}

// Write 按格式输出报告
func Write(w io.Writer, format string, reports ...*Report) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(reports) == 1 {
			return enc.Encode(reports[0])
		}
		return enc.Encode(reports)
	case "yaml":
		var payload any = reports
		if len(reports) == 1 {
			payload = reports[0]
		}
		return writeYAML(w, payload)
	case "text", "":
		for _, r := range reports {
			writeText(w, r)
		}
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}

// writeYAML 先走 JSON 编码以沿用 json 字段名，再解成节点树按块风格输出
func writeYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return err
	}
	resetStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

func resetStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		resetStyle(c)
	}
}

func writeText(w io.Writer, r *Report) {
	if r.Name != "" {
		rule := strings.Repeat("=", 72)
		fmt.Fprintf(w, "%s\n%s\n%s\n", rule, r.Name, rule)
	}

	selected := entity.NewSelectionSet(r.Selection...)

	fmt.Fprintln(w, "Original script:")
	for i, l := range r.Original {
		tag := "PRESERVE"
		if selected.Contains(i) {
			tag = "SELECTED"
		}
		writeLine(w, tag, i, l)
	}

	fmt.Fprintln(w, "\nReceived from upstream:")
	for i, l := range r.Received {
		orig, ok := r.Original.At(i)
		var tag string
		switch {
		case !ok:
			tag = "EXTRA"
		case l.Equal(orig):
			tag = "UNCHANGED"
		case selected.Contains(i):
			tag = "MODIFIED"
		default:
			tag = "UNAUTHORIZED"
		}
		writeLine(w, tag, i, l)
	}

	fmt.Fprintln(w, "\nMerged script:")
	for i, l := range r.Script {
		tag := "UNCHANGED"
		if orig, _ := r.Original.At(i); !l.Equal(orig) {
			tag = "MODIFIED"
		}
		writeLine(w, tag, i, l)
	}

	m := r.Validation
	fmt.Fprintln(w, "\nValidation:")
	if m.HadUnauthorizedChanges {
		fmt.Fprintf(w, "  unauthorized changes: %d reverted\n", len(m.RevertedChanges))
	} else {
		fmt.Fprintln(w, "  unauthorized changes: none")
	}
	if m.HadLengthMismatch {
		fmt.Fprintf(w, "  length mismatch: original %d, received %d\n", m.OriginalLength, m.ReceivedLength)
	} else {
		fmt.Fprintf(w, "  length: %d lines\n", m.OriginalLength)
	}
	for _, c := range m.RevertedChanges {
		fmt.Fprintf(w, "  reverted #%d\n    original:  %s | %s\n    attempted: %s | %s\n",
			c.Index, c.Original.Line, c.Original.ArtDirection, c.Attempted.Line, c.Attempted.ArtDirection)
	}
	fmt.Fprintln(w)
}

func writeLine(w io.Writer, tag string, i int, l entity.ScriptLine) {
	fmt.Fprintf(w, "  [%-12s] %d: %s | %s\n", tag, i, l.Line, l.ArtDirection)
}

// parseSelection 解析 "1,2,5" 形式的索引列表
func parseSelection(s string) (entity.SelectionSet, error) {
	set := entity.NewSelectionSet()
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid index %q", part)
		}
		if i < 0 {
			return nil, fmt.Errorf("negative index %d", i)
		}
		set[i] = struct{}{}
	}
	return set, nil
}

func loadScript(raw []byte) (entity.Script, error) {
	raw = bytes.TrimSpace(raw)
	// 兼容 {"script": [...]} 的会话导出格式
	if len(raw) > 0 && raw[0] == '{' {
		var wrapped struct {
			Script json.RawMessage `json:"script"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, err
		}
		raw = wrapped.Script
	}
	return scriptsvc.NormalizeScript(raw)
}
