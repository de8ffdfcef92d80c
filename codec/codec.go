// Package codec defines the serialization boundary for job and task
// payloads. Payloads are opaque to the store: they are encoded on write and
// decoded on read by the codec the manager was configured with.
package codec

import (
	"fmt"

	"github.com/xraph/taskpool"
)

// Codec encodes payload values to bytes and back.
type Codec interface {
	// Encode serializes v.
	Encode(v any) ([]byte, error)

	// Decode deserializes data into the value pointed to by v.
	Decode(data []byte, v any) error

	// Name returns the codec identifier (e.g. "json", "msgpack").
	Name() string
}

// Codec names accepted by Get.
const (
	NameJSON    = "json"
	NameMsgpack = "msgpack"
)

// Get returns a codec by name. The empty name selects JSON.
func Get(name string) (Codec, error) {
	switch name {
	case NameJSON, "":
		return JSON{}, nil
	case NameMsgpack:
		return Msgpack{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown codec %q", taskpool.ErrSerialization, name)
	}
}

// Payload is an encoded job or task payload together with the codec that
// produced it.
type Payload struct {
	data  []byte
	codec Codec
}

// NewPayload wraps encoded bytes. A nil codec means JSON.
func NewPayload(data []byte, c Codec) Payload {
	if c == nil {
		c = JSON{}
	}
	return Payload{data: data, codec: c}
}

// Encode serializes v with c and wraps the result.
func Encode(c Codec, v any) (Payload, error) {
	if c == nil {
		c = JSON{}
	}
	data, err := c.Encode(v)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: encode %s: %v", taskpool.ErrSerialization, c.Name(), err)
	}
	return Payload{data: data, codec: c}, nil
}

// Bytes returns the encoded form.
func (p Payload) Bytes() []byte { return p.data }

// Decode deserializes the payload into v.
func (p Payload) Decode(v any) error {
	c := p.codec
	if c == nil {
		c = JSON{}
	}
	if err := c.Decode(p.data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", taskpool.ErrSerialization, c.Name(), err)
	}
	return nil
}

// As decodes a payload into a new value of type T.
func As[T any](p Payload) (T, error) {
	var v T
	err := p.Decode(&v)
	return v, err
}
