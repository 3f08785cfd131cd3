package event

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode failure reason codes
const (
	ReasonInvalidJSON     = "invalid-json"
	ReasonMissingRequired = "missing-required-field"
	ReasonTypeMismatch    = "type-mismatch"
)

// DecodeError tags a frame that failed to decode. It is a value handed back
// to the pipeline for counting and diagnostics, never propagated as a fatal
// error: the offending frame is dropped and the stream continues.
type DecodeError struct {
	Reason string // one of the Reason* constants
	Field  string // offending field, when known
	Frame  []byte // private copy of the raw frame
	Err    error  // underlying parse error, when any
}

// Error implements the error interface
func (de *DecodeError) Error() string {
	if de.Field != "" {
		return fmt.Sprintf("decode %s: field %q", de.Reason, de.Field)
	}
	return fmt.Sprintf("decode %s", de.Reason)
}

// Unwrap returns the underlying parse error
func (de *DecodeError) Unwrap() error {
	return de.Err
}

// fieldKind is the JSON kind a schema field expects on the wire
type fieldKind int

const (
	kindNumber fieldKind = iota
	kindString
	kindObject
)

func (k fieldKind) String() string {
	switch k {
	case kindNumber:
		return "number"
	case kindString:
		return "string"
	case kindObject:
		return "object"
	default:
		return "unknown"
	}
}

// fieldSpec is one row of the schema table: field name, whether the field is
// required, and the JSON kind expected for it.
type fieldSpec struct {
	name     string
	required bool
	kind     fieldKind
}

// rsvpSchema drives validation of the top-level RSVP record. Only rsvp_id is
// required; everything else the feed may omit.
var rsvpSchema = []fieldSpec{
	{name: "rsvp_id", required: true, kind: kindNumber},
	{name: "mtime", required: false, kind: kindNumber},
	{name: "response", required: false, kind: kindString},
	{name: "guests", required: false, kind: kindNumber},
	{name: "visibility", required: false, kind: kindString},
	{name: "member", required: false, kind: kindObject},
	{name: "group", required: false, kind: kindObject},
	{name: "venue", required: false, kind: kindObject},
	{name: "event", required: false, kind: kindObject},
}

// Decode converts one frame into an Event or a DecodeError. It never blocks
// and never panics on malformed input. The returned Event and DecodeError own
// copies of everything they carry; the caller may reuse the frame buffer.
func Decode(frame []byte) (Event, *DecodeError) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(frame, &raw); err != nil {
		return Event{}, newDecodeError(ReasonInvalidJSON, "", frame, err)
	}
	if raw == nil {
		// JSON null parses to a nil map
		return Event{}, newDecodeError(ReasonInvalidJSON, "", frame, nil)
	}

	var ev Event
	for _, spec := range rsvpSchema {
		value, ok := raw[spec.name]
		if !ok || isJSONNull(value) {
			if spec.required {
				return Event{}, newDecodeError(ReasonMissingRequired, spec.name, frame, nil)
			}
			continue
		}

		if !kindMatches(spec.kind, value) {
			return Event{}, newDecodeError(ReasonTypeMismatch, spec.name, frame, nil)
		}

		if derr := assign(&ev, spec.name, value, frame); derr != nil {
			return Event{}, derr
		}
	}

	return ev, nil
}

// assign unmarshals one validated field value into its slot on the event
func assign(ev *Event, name string, value json.RawMessage, frame []byte) *DecodeError {
	var err error
	switch name {
	case "rsvp_id":
		err = json.Unmarshal(value, &ev.RSVPID)
	case "mtime":
		var v int64
		if err = json.Unmarshal(value, &v); err == nil {
			ev.Mtime = Some(v)
		}
	case "response":
		var v string
		if err = json.Unmarshal(value, &v); err == nil {
			ev.Response = Some(v)
		}
	case "guests":
		var v int64
		if err = json.Unmarshal(value, &v); err == nil {
			ev.Guests = Some(v)
		}
	case "visibility":
		var v string
		if err = json.Unmarshal(value, &v); err == nil {
			ev.Visibility = Some(v)
		}
	case "member":
		var v Member
		if err = json.Unmarshal(value, &v); err == nil {
			ev.Member = Some(v)
		}
	case "group":
		var v Group
		if err = json.Unmarshal(value, &v); err == nil {
			ev.Group = Some(v)
		}
	case "venue":
		var v Venue
		if err = json.Unmarshal(value, &v); err == nil {
			ev.Venue = Some(v)
		}
	case "event":
		var v EventInfo
		if err = json.Unmarshal(value, &v); err == nil {
			ev.EventInfo = Some(v)
		}
	}

	if err != nil {
		// Kind matched at the top level, so a failure here is a nested
		// type mismatch (e.g. member_id as string)
		return newDecodeError(ReasonTypeMismatch, name, frame, err)
	}
	return nil
}

// kindMatches classifies a raw JSON value against the expected kind by its
// first non-space byte.
func kindMatches(kind fieldKind, value json.RawMessage) bool {
	trimmed := bytes.TrimLeft(value, " \t\r\n")
	if len(trimmed) == 0 {
		return false
	}

	switch kind {
	case kindNumber:
		c := trimmed[0]
		return c == '-' || (c >= '0' && c <= '9')
	case kindString:
		return trimmed[0] == '"'
	case kindObject:
		return trimmed[0] == '{'
	default:
		return false
	}
}

func isJSONNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}

// newDecodeError builds a DecodeError with a private copy of the frame, so
// the receiver's read buffer can be reused immediately.
func newDecodeError(reason, field string, frame []byte, err error) *DecodeError {
	frameCopy := make([]byte, len(frame))
	copy(frameCopy, frame)
	return &DecodeError{
		Reason: reason,
		Field:  field,
		Frame:  frameCopy,
		Err:    err,
	}
}
