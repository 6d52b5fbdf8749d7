package rainbow

import (
	"errors"
	"math/rand"
	"reflect"
	"sync"
	"testing"
)

func TestInsertIdempotent(t *testing.T) {
	table := newStubTable(t, 3, shiftReduce{})

	res, err := table.Insert("abcd")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if res != Added {
		t.Fatalf("first insert: got %v, want added", res)
	}
	res, err = table.Insert("abcd")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if res != Duplicate {
		t.Fatalf("second insert: got %v, want duplicate", res)
	}

	if got := table.LookupEndpoint("ghij"); !reflect.DeepEqual(got, []string{"abcd"}) {
		t.Fatalf("LookupEndpoint(ghij) = %v", got)
	}
	if table.Size() != 1 || table.Chains() != 1 {
		t.Fatalf("size %d, chains %d, want 1 and 1", table.Size(), table.Chains())
	}
}

func TestInsertMergesInOrder(t *testing.T) {
	table := newStubTable(t, 2, constReduce{value: "aaaa"})

	for _, s := range []string{"wxyz", "abcd", "wxyz", "mmmm"} {
		if _, err := table.Insert(s); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"wxyz", "abcd", "mmmm"}
	if got := table.LookupEndpoint("aaaa"); !reflect.DeepEqual(got, want) {
		t.Fatalf("LookupEndpoint(aaaa) = %v, want %v", got, want)
	}
	if table.Merges() != 1 {
		t.Fatalf("Merges() = %d, want 1", table.Merges())
	}
	if table.Chains() != 3 {
		t.Fatalf("Chains() = %d, want 3", table.Chains())
	}
}

func TestLookupEndpointReturnsCopy(t *testing.T) {
	table := newStubTable(t, 1, constReduce{value: "aaaa"})
	if _, err := table.Insert("abcd"); err != nil {
		t.Fatal(err)
	}
	got := table.LookupEndpoint("aaaa")
	got[0] = "zzzz"
	if again := table.LookupEndpoint("aaaa"); again[0] != "abcd" {
		t.Fatalf("table was modified through the returned slice: %v", again)
	}
	if missing := table.LookupEndpoint("nope"); len(missing) != 0 {
		t.Fatalf("unknown endpoint returned %v", missing)
	}
}

func TestInsertRejectsMalformedCandidates(t *testing.T) {
	table := newStubTable(t, 3, shiftReduce{})
	for _, s := range []string{"", "ab,c", "ab\nc", "a\"bc"} {
		_, err := table.Insert(s)
		var malformed *MalformedCandidateError
		if !errors.As(err, &malformed) {
			t.Errorf("Insert(%q): got %v, want MalformedCandidateError", s, err)
		}
	}
	if table.Size() != 0 {
		t.Fatalf("malformed candidates were stored")
	}
}

func TestConcurrentInsertsKeepEveryStart(t *testing.T) {
	// Every chain ends at "aaaa", so all goroutines fight over one key.
	table := newStubTable(t, 5, constReduce{value: "aaaa"})

	starts := []string{"abcd", "bcde", "cdef", "defg", "efgh", "fghi", "ghij", "hijk"}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for j := range starts {
				_, _ = table.Insert(starts[(j+offset)%len(starts)])
			}
		}(i)
	}
	wg.Wait()

	got := table.LookupEndpoint("aaaa")
	if len(got) != len(starts) {
		t.Fatalf("got %d starts, want %d: %v", len(got), len(starts), got)
	}
}

func TestClear(t *testing.T) {
	table := newStubTable(t, 3, shiftReduce{})
	if _, err := table.Insert("abcd"); err != nil {
		t.Fatal(err)
	}
	table.Clear()
	if table.Size() != 0 || table.Chains() != 0 || len(table.Rows()) != 0 {
		t.Fatal("table not empty after Clear")
	}
}

func TestSamplePlaintext(t *testing.T) {
	table := newStubTable(t, 5, shiftReduce{})
	rng := rand.New(rand.NewSource(7))

	if _, err := table.SamplePlaintext(rng); !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("empty table: got %v, want ErrEmptyTable", err)
	}

	for _, s := range []string{"abcd", "lmno", "wxyz"} {
		if _, err := table.Insert(s); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < 50; i++ {
		p, err := table.SamplePlaintext(rng)
		if err != nil {
			t.Fatalf("SamplePlaintext: %v", err)
		}
		target, err := table.Engine().Hash(p)
		if err != nil {
			t.Fatal(err)
		}
		found, err := Lookup(table, target)
		if err != nil {
			t.Fatal(err)
		}
		if !contains(found, p) {
			t.Fatalf("sampled plaintext %q not recovered, got %v", p, found)
		}
	}
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
