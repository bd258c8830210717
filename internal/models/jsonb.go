package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
}

func jsonValue(v interface{}) (driver.Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Address is the two line postal address stored on patients and doctors.
type Address struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

// Scan implements sql.Scanner.
func (a *Address) Scan(src interface{}) error { return scanJSON(src, a) }

// Value implements driver.Valuer.
func (a Address) Value() (driver.Value, error) { return jsonValue(a) }
