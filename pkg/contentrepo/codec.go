package contentrepo

import (
	"encoding/json"
	"fmt"
)

// envelope is the byte form of an entity: the audit record, which is not
// visible to encoding/json, next to the JSON of the domain fields.
type envelope struct {
	Record  Record          `json:"record"`
	Payload json.RawMessage `json:"payload"`
}

// EncodePayload marshals the exported domain fields of e.
func EncodePayload(e Entity) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return payload, nil
}

// DecodePayload allocates a new E, unmarshals payload into it and restores
// its base from rec.
func DecodePayload[E any, T EntityPtr[E]](rec Record, payload []byte) (T, error) {
	var e E
	t := T(&e)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, t); err != nil {
			return nil, fmt.Errorf("decode payload for %s: %w", rec.ID, err)
		}
	}
	*t.Base() = RestoreContentEntity(rec)
	return t, nil
}

// EncodeEntity returns the full byte form of e, audit fields included.
func EncodeEntity(e Entity) ([]byte, error) {
	payload, err := EncodePayload(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Record: e.Base().Record(), Payload: payload})
}

// DecodeEntity reverses EncodeEntity.
func DecodeEntity[E any, T EntityPtr[E]](data []byte) (T, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	return DecodePayload[E, T](env.Record, env.Payload)
}

// Clone returns a shallow copy of e. Slices, maps and pointers in domain
// fields are shared with e.
func Clone[E any, T EntityPtr[E]](e T) T {
	c := *(*E)(e)
	return T(&c)
}
