package model

import "encoding/json"

// Document is the tagged-variant discriminator every indexed record
// satisfies. The Result Shaper and Bulk Loader depend only on this
// interface, never on a concrete type (spec §9).
type Document interface {
	DocType() string
	GetID() string
	MarshalBackend() ([]byte, error)
}

var (
	_ Document = Admin{}
	_ Document = Street{}
	_ Document = Addr{}
	_ Document = Poi{}
	_ Document = Stop{}
)

func marshalAs(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
