package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Timestamp and Date are stored as BSON datetimes; the zero value is null.

func (t Timestamp) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return marshalTime(t.Time)
}

func (t *Timestamp) UnmarshalBSONValue(typ bsontype.Type, data []byte) error {
	v, err := unmarshalTime(typ, data)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	t.Time = v
	return nil
}

func (d Date) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return marshalTime(d.Time)
}

func (d *Date) UnmarshalBSONValue(typ bsontype.Type, data []byte) error {
	v, err := unmarshalTime(typ, data)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if v.IsZero() {
		d.Time = time.Time{}
		return nil
	}
	*d = NewDate(v.In(BackendLocation))
	return nil
}

func marshalTime(t time.Time) (bsontype.Type, []byte, error) {
	if t.IsZero() {
		return bson.TypeNull, nil, nil
	}
	return bson.MarshalValue(t)
}

func unmarshalTime(typ bsontype.Type, data []byte) (time.Time, error) {
	if typ == bson.TypeNull || typ == bson.TypeUndefined {
		return time.Time{}, nil
	}
	if typ != bson.TypeDateTime {
		return time.Time{}, fmt.Errorf("cannot decode BSON %s into a time", typ)
	}
	var v time.Time
	if err := (bson.RawValue{Type: typ, Value: data}).Unmarshal(&v); err != nil {
		return time.Time{}, err
	}
	return v, nil
}
