// Copyright (C) 2017 ScyllaDB

package uuid

import (
	"testing"

	"github.com/gocql/gocql"
)

func TestParseRoundTrip(t *testing.T) {
	u := MustRandom()
	v, err := Parse(u.String())
	if err != nil {
		t.Fatal(err)
	}
	if u != v {
		t.Fatal(u, "!=", v)
	}
}

func TestNewFromUint64SetsVersionAndVariant(t *testing.T) {
	u := NewFromUint64(375, 123)
	if v := u.Version(); v != 4 {
		t.Fatal("wrong version", v)
	}
	if v := u.Variant(); v != gocql.VariantIETF {
		t.Fatal("wrong variant", v)
	}
}

func TestNewFromUint64Collisions(t *testing.T) {
	seen := make(map[UUID]struct{})
	for l := uint64(0); l < 100; l++ {
		for h := uint64(0); h < 100; h++ {
			u := NewFromUint64(l, h)
			if _, ok := seen[u]; ok {
				t.Fatalf("collision at %d %d", l, h)
			}
			seen[u] = struct{}{}
		}
	}
}

func TestTextMarshalNil(t *testing.T) {
	var u UUID
	if err := u.UnmarshalText(nil); err != nil {
		t.Fatal(err)
	}
	if u != Nil {
		t.Fatal("expected nil uuid")
	}
}
