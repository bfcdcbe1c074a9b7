package observation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Ashesh3/teleicu-middleware/internal/models"
)

// ErrInvalidPayload 入站载荷缺失或不是对象/数组
var ErrInvalidPayload = errors.New("invalid observation payload")

// ValidatePayload 校验入站载荷的顶层类型（必须是 JSON 对象或数组）。
// 调用方需在 Flatten 之前检查。
func ValidatePayload(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("%w: no observations provided", ErrInvalidPayload)
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return fmt.Errorf("%w: invalid observations provided", ErrInvalidPayload)
	}
	return nil
}

// Flatten 将任意嵌套的观测载荷展平为有序的观测序列。
// 数组递归下降，非数组节点视为单条观测；空数组产生空序列。
// 纯函数，不访问任何共享状态。
func Flatten(raw json.RawMessage) ([]models.Observation, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		out := make([]models.Observation, 0, len(items))
		for _, item := range items {
			flat, err := Flatten(item)
			if err != nil {
				return nil, err
			}
			out = append(out, flat...)
		}
		return out, nil
	}

	var obs models.Observation
	if err := json.Unmarshal(trimmed, &obs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return []models.Observation{obs}, nil
}
