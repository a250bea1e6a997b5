package entity

import (
	"bytes"
	"encoding/json"
)

var jsonNull = []byte("null")

// OptionalString различает три состояния поля в JSON запросе:
// ключ отсутствует (Set == false), явный null (Set && Null) и значение
type OptionalString struct {
	Set   bool
	Null  bool
	Value string
}

// SetString - поле передано со значением
func SetString(v string) OptionalString {
	return OptionalString{Set: true, Value: v}
}

// NullString - поле передано как null
func NullString() OptionalString {
	return OptionalString{Set: true, Null: true}
}

// UnmarshalJSON вызывается только если ключ присутствует в теле запроса
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		o.Null = true
		o.Value = ""
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

func (o OptionalString) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return jsonNull, nil
	}
	return json.Marshal(o.Value)
}

// Ptr возвращает значение в виде *string (nil для null)
func (o OptionalString) Ptr() *string {
	if !o.Set || o.Null {
		return nil
	}
	v := o.Value
	return &v
}

// OptionalInt - то же для целочисленных полей
type OptionalInt struct {
	Set   bool
	Null  bool
	Value int
}

func SetInt(v int) OptionalInt {
	return OptionalInt{Set: true, Value: v}
}

func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		o.Null = true
		o.Value = 0
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

func (o OptionalInt) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return jsonNull, nil
	}
	return json.Marshal(o.Value)
}
