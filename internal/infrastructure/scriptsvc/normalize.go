// Package scriptsvc 是外部脚本生成/改写服务的客户端，同时负责响应形态的规范化
package scriptsvc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"ad-studio-api/internal/domain/entity"
	apperrors "ad-studio-api/pkg/errors"
)

var markerPattern = regexp.MustCompile(`\[\[(?:PRESERVE|SELECTED FOR MODIFICATION):\s*\d+\]\]|\[\[END (?:PRESERVE|SELECTED)\]\]`)

// StripMarkers 去掉改写提示中使用的保留/选中标记
func StripMarkers(s string) string {
	return strings.TrimSpace(markerPattern.ReplaceAllString(s, ""))
}

func malformed(format string, args ...any) error {
	return apperrors.ErrMalformedResponse.WithDetail(fmt.Sprintf(format, args...))
}

// NormalizeLine 接受 {line, artDirection}、[line, artDirection] 与 "line | artDirection" 三种形态
func NormalizeLine(raw json.RawMessage) (entity.ScriptLine, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return entity.ScriptLine{}, malformed("empty script line")
	}

	switch raw[0] {
	case '{':
		var obj struct {
			Line            *string `json:"line"`
			ArtDirection    string  `json:"artDirection"`
			ArtDirectionAlt string  `json:"art_direction"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return entity.ScriptLine{}, malformed("invalid script line object: %v", err)
		}
		if obj.Line == nil {
			return entity.ScriptLine{}, malformed("script line object has no line field")
		}
		art := obj.ArtDirection
		if art == "" {
			art = obj.ArtDirectionAlt
		}
		return clean(*obj.Line, art), nil

	case '[':
		var tuple []string
		if err := json.Unmarshal(raw, &tuple); err != nil {
			return entity.ScriptLine{}, malformed("invalid script line tuple: %v", err)
		}
		if len(tuple) == 0 || len(tuple) > 2 {
			return entity.ScriptLine{}, malformed("script line tuple has %d elements", len(tuple))
		}
		art := ""
		if len(tuple) == 2 {
			art = tuple[1]
		}
		return clean(tuple[0], art), nil

	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return entity.ScriptLine{}, malformed("invalid script line string: %v", err)
		}
		return ParseTextLine(s), nil
	}

	return entity.ScriptLine{}, malformed("unsupported script line shape")
}

// ParseTextLine 解析 "line | artDirection" 文本
func ParseTextLine(s string) entity.ScriptLine {
	line, art, _ := strings.Cut(s, "|")
	return clean(line, art)
}

func clean(line, art string) entity.ScriptLine {
	return entity.ScriptLine{Line: StripMarkers(line), ArtDirection: StripMarkers(art)}
}

// NormalizeScript 接受脚本行数组，或按换行分隔的 "line | artDirection" 文本
func NormalizeScript(raw json.RawMessage) (entity.Script, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, malformed("script is missing")
	}

	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, malformed("invalid script text: %v", err)
		}
		var out entity.Script
		for _, l := range strings.Split(text, "\n") {
			if strings.TrimSpace(l) == "" {
				continue
			}
			out = append(out, ParseTextLine(l))
		}
		if len(out) == 0 {
			return nil, malformed("script text has no lines")
		}
		return out, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, malformed("script is neither an array nor text: %v", err)
	}
	out := make(entity.Script, 0, len(items))
	for i, item := range items {
		l, err := NormalizeLine(item)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		out = append(out, l)
	}
	return out, nil
}

type refinementEnvelope struct {
	Status          string                     `json:"status"`
	Data            json.RawMessage            `json:"data"`
	Script          json.RawMessage            `json:"script"`
	ModifiedIndices *[]int                     `json:"modified_indices"`
	Validation      *entity.ValidationMetadata `json:"validation"`
}

// NormalizeRefinement 解析改写服务响应
//
// 带 modified_indices 时按声明配对，长度是否一致留给校验器判定；
// 不带时把 data (或 script) 视为完整候选脚本。
func NormalizeRefinement(body []byte) (*entity.RefinementResponse, error) {
	var env refinementEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, malformed("response is not a JSON object: %v", err)
	}

	payload := env.Data
	if len(bytes.TrimSpace(payload)) == 0 || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		payload = env.Script
	}

	if env.ModifiedIndices != nil {
		var items []json.RawMessage
		if err := json.Unmarshal(payload, &items); err != nil {
			return nil, malformed("data must be an array when modified_indices is present")
		}
		data := make([]entity.ScriptLine, 0, len(items))
		for i, item := range items {
			l, err := NormalizeLine(item)
			if err != nil {
				return nil, fmt.Errorf("data[%d]: %w", i, err)
			}
			data = append(data, l)
		}
		return &entity.RefinementResponse{
			Data:            data,
			ModifiedIndices: *env.ModifiedIndices,
			Validation:      env.Validation,
		}, nil
	}

	script, err := NormalizeScript(payload)
	if err != nil {
		return nil, err
	}
	return &entity.RefinementResponse{
		Data:       script,
		FullScript: true,
		Validation: env.Validation,
	}, nil
}
