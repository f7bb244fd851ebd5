package builtin

import (
	"reflect"
	"testing"
)

type rec struct {
	id     string
	reason string
	ts     int64
}

func byID(r rec) (string, bool) { return r.id, r.id != "" }

func TestDeDupKeepFirst(t *testing.T) {
	in := []rec{
		{id: "S1", reason: "A"},
		{id: "S1", reason: "B"},
		{id: "S2", reason: "C"},
	}
	got := DeDup[rec]{Key: byID, Policy: KeepFirst}.Apply(in)
	want := []rec{{id: "S1", reason: "A"}, {id: "S2", reason: "C"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("keep-first: got %#v want %#v", got, want)
	}
}

func TestDeDupDefaultPolicyIsKeepFirst(t *testing.T) {
	in := []rec{{id: "S1", reason: "A"}, {id: "S1", reason: "B"}}
	got := DeDup[rec]{Key: byID}.Apply(in)
	if len(got) != 1 || got[0].reason != "A" {
		t.Fatalf("default policy: got %#v want first record", got)
	}
}

func TestDeDupPreferWithTies(t *testing.T) {
	in := []rec{
		{id: "10", reason: "free", ts: 100},
		{id: "10", reason: "paid", ts: 300},
		{id: "10", reason: "paid-dup", ts: 300},
		{id: "11", reason: "x", ts: 50},
	}
	later := func(cand, cur rec) bool { return cand.ts > cur.ts }
	got := DeDup[rec]{Key: byID, Policy: Prefer, Better: later}.Apply(in)
	want := []rec{{id: "10", reason: "paid", ts: 300}, {id: "11", reason: "x", ts: 50}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("prefer: got %#v want %#v", got, want)
	}
}

func TestDeDupDropsUnkeyed(t *testing.T) {
	in := []rec{{id: ""}, {id: "S1"}, {id: ""}}
	got := DeDup[rec]{Key: byID}.Apply(in)
	if len(got) != 1 || got[0].id != "S1" {
		t.Fatalf("unkeyed: got %#v want only S1", got)
	}
}

func TestDeDupEmpty(t *testing.T) {
	if got := (DeDup[rec]{Key: byID}).Apply(nil); got != nil {
		t.Fatalf("Apply(nil) = %#v, want nil", got)
	}
}

// Uniqueness holds for any input: no key appears twice in the output.
func TestDeDupOutputKeysUnique(t *testing.T) {
	in := make([]rec, 0, 500)
	for i := 0; i < 500; i++ {
		in = append(in, rec{id: string(rune('a' + i%37)), ts: int64(i % 11)})
	}
	for _, p := range []Policy{KeepFirst, Prefer} {
		got := DeDup[rec]{Key: byID, Policy: p, Better: func(a, b rec) bool { return a.ts > b.ts }}.Apply(in)
		seen := map[string]bool{}
		for _, r := range got {
			if seen[r.id] {
				t.Fatalf("%s: duplicate key %q in output", p, r.id)
			}
			seen[r.id] = true
		}
		if len(seen) != 37 {
			t.Fatalf("%s: got %d keys, want 37", p, len(seen))
		}
	}
}
