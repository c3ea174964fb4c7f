package rag

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"bankrm/internal/tool"
)

// maxNormalizedItems 序列结果最多取前几条
const maxNormalizedItems = 3

// Normalize 将任意工具结果转为一句可读的自然语言文本。
// 纯函数，对每个变体各有一条规则，覆盖全部 Kind。
func Normalize(result tool.Result) string {
	switch result.Kind {
	case tool.KindNone:
		return "No data available."

	case tool.KindText:
		return result.Text

	case tool.KindMapping:
		if len(result.Mapping) == 0 {
			return "No data available."
		}
		names := sortedKeys(result.Mapping)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s offers around %s", name, result.Mapping[name]))
		}
		return strings.Join(parts, " ") + "."

	case tool.KindValues:
		return strings.Join(result.Values, ", ")

	case tool.KindResults:
		items := result.Items
		if len(items) > maxNormalizedItems {
			items = items[:maxNormalizedItems]
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			switch {
			case item.Snippet != "":
				parts = append(parts, item.Snippet)
			case item.Title != "":
				parts = append(parts, item.Title)
			case item.URL != "":
				parts = append(parts, item.URL)
			}
		}
		return strings.Join(parts, " ")

	case tool.KindFields:
		return flattenFields(result.Fields)

	case tool.KindError:
		// 与通用展平一致：status 字段省略，仅保留 message
		return "message: " + result.Message

	default:
		// 未知变体：退化为 JSON 字符串
		data, err := json.Marshal(result)
		if err != nil {
			return "No data available."
		}
		return string(data)
	}
}

// flattenFields 通用展平："k: v" 按键排序空格连接，跳过 status 和空值
func flattenFields(fields map[string]string) string {
	keys := sortedKeys(fields)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "status" || fields[k] == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", k, fields[k]))
	}
	return strings.Join(parts, " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
