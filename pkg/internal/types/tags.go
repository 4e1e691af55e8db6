package types

import "github.com/bytedance/sonic"

// EncodeTags 将标签映射编码为 JSON 文本；空映射得到空串.
func EncodeTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}

	b, err := sonic.Marshal(tags)
	if err != nil {
		return ""
	}

	return string(b)
}

// DecodeTags 解码 JSON 文本为标签映射；非法输入得到 nil.
func DecodeTags(s string) map[string]string {
	if s == "" {
		return nil
	}

	var tags map[string]string
	if err := sonic.Unmarshal([]byte(s), &tags); err != nil {
		return nil
	}

	return tags
}

// EncodeDetails 将审计细节编码为 JSON 文本.
func EncodeDetails(details map[string]any) string {
	if len(details) == 0 {
		return ""
	}

	b, err := sonic.Marshal(details)
	if err != nil {
		return ""
	}

	return string(b)
}

// DecodeDetails 解码审计细节 JSON 文本.
func DecodeDetails(s string) map[string]any {
	if s == "" {
		return nil
	}

	var details map[string]any
	if err := sonic.Unmarshal([]byte(s), &details); err != nil {
		return nil
	}

	return details
}
