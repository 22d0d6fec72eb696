package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AdLength 广告时长 (秒)，兼容表单的 "30s" 与整数两种写法
type AdLength int

// ParseAdLength 解析 "15s"/"30s"/"60s" 或纯数字
func ParseAdLength(s string) (AdLength, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(s), "s")
	n, err := strconv.Atoi(trimmed)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid ad length %q", s)
	}
	return AdLength(n), nil
}

// Seconds 整数秒
func (a AdLength) Seconds() int {
	return int(a)
}

// String 表单写法
func (a AdLength) String() string {
	return strconv.Itoa(int(a)) + "s"
}

// UnmarshalJSON 接受字符串或整数
func (a *AdLength) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if n < 0 {
			return fmt.Errorf("invalid ad length %d", n)
		}
		*a = AdLength(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("ad length must be a string or integer: %w", err)
	}
	if s == "" {
		*a = 0
		return nil
	}
	v, err := ParseAdLength(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// AdMetadata 广告参数，即脚本生成表单
type AdMetadata struct {
	ProductName      string   `json:"product_name"`
	TargetAudience   string   `json:"target_audience"`
	KeySellingPoints string   `json:"key_selling_points"`
	Tone             string   `json:"tone"`
	AdLength         AdLength `json:"ad_length"`
	SpeakerVoice     string   `json:"speaker_voice"`
}

// MissingFields 返回未填写的必填字段名
func (m AdMetadata) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(m.ProductName) == "" {
		missing = append(missing, "product_name")
	}
	if strings.TrimSpace(m.TargetAudience) == "" {
		missing = append(missing, "target_audience")
	}
	if strings.TrimSpace(m.KeySellingPoints) == "" {
		missing = append(missing, "key_selling_points")
	}
	if strings.TrimSpace(m.Tone) == "" {
		missing = append(missing, "tone")
	}
	if m.AdLength <= 0 {
		missing = append(missing, "ad_length")
	}
	return missing
}
