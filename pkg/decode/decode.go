// Package decode turns backend response bodies into typed identifiers.
//
// The backend wraps every payload in a {"data": ...} envelope where data is
// either a single record, an array of records, or absent. Decode classifies the
// envelope once; the endpoint-specific helpers then read from the first record
// and report a decode error instead of an empty value when a field is missing.
package decode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	svcerror "food-order-loadtest/pkg/error"
)

type Shape int

const (
	ShapeEmpty Shape = iota
	ShapeSingleRecord
	ShapeRecordArray
)

func (s Shape) String() string {
	switch s {
	case ShapeSingleRecord:
		return "single"
	case ShapeRecordArray:
		return "array"
	default:
		return "empty"
	}
}

type Envelope struct {
	Shape   Shape
	Records []json.RawMessage
}

// First returns the first record, or false for an empty envelope.
func (e Envelope) First() (json.RawMessage, bool) {
	if len(e.Records) == 0 {
		return nil, false
	}
	return e.Records[0], true
}

func decodeErr(op, msg string, cause error) error {
	opts := []func(*svcerror.ErrorDetails){svcerror.WithOp(op), svcerror.WithMsg(msg)}
	if cause != nil {
		opts = append(opts, svcerror.WithCause(cause))
	}
	return svcerror.New(svcerror.ErrDecodeError, opts...)
}

func Decode(body []byte) (Envelope, error) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, decodeErr("Decode", "response body is not a JSON object", err)
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Envelope{Shape: ShapeEmpty}, nil
	}

	switch data[0] {
	case '{':
		return Envelope{Shape: ShapeSingleRecord, Records: []json.RawMessage{data}}, nil
	case '[':
		var records []json.RawMessage
		if err := json.Unmarshal(data, &records); err != nil {
			return Envelope{}, decodeErr("Decode", "malformed data array", err)
		}
		if len(records) == 0 {
			return Envelope{Shape: ShapeEmpty}, nil
		}
		return Envelope{Shape: ShapeRecordArray, Records: records}, nil
	default:
		return Envelope{}, decodeErr("Decode", fmt.Sprintf("unexpected data value %.20s", data), nil)
	}
}

// identifier reads a string or numeric JSON value as a string.
func identifier(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		return n.String(), true
	}
	return "", false
}

// FirstField extracts a scalar field from the first record of the envelope.
func FirstField(body []byte, field string) (string, error) {
	op := "Decode." + field
	env, err := Decode(body)
	if err != nil {
		return "", svcerror.AddOp(err, op)
	}
	record, ok := env.First()
	if !ok {
		return "", decodeErr(op, "response carries no record", nil)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(record, &fields); err != nil {
		return "", decodeErr(op, "record is not an object", err)
	}
	value, ok := identifier(fields[field])
	if !ok {
		return "", decodeErr(op, fmt.Sprintf("field %q missing or empty", field), nil)
	}
	return value, nil
}
