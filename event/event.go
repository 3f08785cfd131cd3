// Package event defines the typed RSVP record produced from one raw frame of
// the meetup stream, and the decoder that builds it.
package event

import (
	"encoding/json"
)

// Optional wraps a value that may be absent from the wire record.
// Absence is explicit: the zero Optional is "absent", which is distinct
// from a present zero value.
type Optional[T any] struct {
	value   T
	present bool
}

// Some returns a present Optional holding v
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// None returns an absent Optional
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// Present reports whether the value was set on the wire
func (o Optional[T]) Present() bool {
	return o.present
}

// OrZero returns the value if present, the zero value otherwise
func (o Optional[T]) OrZero() T {
	return o.value
}

// MarshalJSON encodes the inner value. Absent values are handled by
// Event.MarshalJSON, which omits them entirely.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.value)
}

// Member identifies the RSVP'ing member
type Member struct {
	MemberID   int64  `json:"member_id"`
	MemberName string `json:"member_name"`
	Photo      string `json:"photo,omitempty"`
}

// Group identifies the meetup group hosting the event
type Group struct {
	GroupName    string  `json:"group_name"`
	GroupCity    string  `json:"group_city"`
	GroupCountry string  `json:"group_country"`
	GroupURLName string  `json:"group_urlname,omitempty"`
	GroupLat     float64 `json:"group_lat,omitempty"`
	GroupLon     float64 `json:"group_lon,omitempty"`
}

// Venue identifies where the event takes place. Many events have no venue
// assigned yet, so the whole object is optional on the Event.
type Venue struct {
	VenueID   int64   `json:"venue_id,omitempty"`
	VenueName string  `json:"venue_name"`
	Lat       float64 `json:"lat,omitempty"`
	Lon       float64 `json:"lon,omitempty"`
}

// EventInfo identifies the meetup event being responded to
type EventInfo struct {
	EventID   string `json:"event_id,omitempty"`
	EventName string `json:"event_name"`
	EventURL  string `json:"event_url,omitempty"`
	Time      int64  `json:"time,omitempty"`
}

// Event is a fully decoded RSVP record. Immutable once constructed; the
// decoder copies everything it needs out of the frame, so an Event never
// references the connection's read buffer.
type Event struct {
	RSVPID     int64
	Mtime      Optional[int64]
	Response   Optional[string]
	Guests     Optional[int64]
	Visibility Optional[string]
	Member     Optional[Member]
	Group      Optional[Group]
	Venue      Optional[Venue]
	EventInfo  Optional[EventInfo]
}

// MarshalJSON encodes the event with absent optional fields omitted,
// mirroring the wire format of the feed.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 9)
	out["rsvp_id"] = e.RSVPID

	if v, ok := e.Mtime.Get(); ok {
		out["mtime"] = v
	}
	if v, ok := e.Response.Get(); ok {
		out["response"] = v
	}
	if v, ok := e.Guests.Get(); ok {
		out["guests"] = v
	}
	if v, ok := e.Visibility.Get(); ok {
		out["visibility"] = v
	}
	if v, ok := e.Member.Get(); ok {
		out["member"] = v
	}
	if v, ok := e.Group.Get(); ok {
		out["group"] = v
	}
	if v, ok := e.Venue.Get(); ok {
		out["venue"] = v
	}
	if v, ok := e.EventInfo.Get(); ok {
		out["event"] = v
	}

	return json.Marshal(out)
}
