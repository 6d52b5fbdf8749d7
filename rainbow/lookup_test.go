package rainbow

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestLookupByHand(t *testing.T) {
	table := newStubTable(t, 3, shiftReduce{})
	if _, err := table.Insert("abcd"); err != nil {
		t.Fatal(err)
	}

	found, err := Lookup(table, Digest("bcde"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !reflect.DeepEqual(found, []string{"abcd"}) {
		t.Fatalf("Lookup(hash(abcd)) = %v, want [abcd]", found)
	}

	// defg sits at column 2 of the same chain.
	found, err = Lookup(table, Digest("efgh"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(found, []string{"defg"}) {
		t.Fatalf("Lookup(hash(defg)) = %v, want [defg]", found)
	}
}

func TestLookupMissIsNotAnError(t *testing.T) {
	table := newStubTable(t, 3, shiftReduce{})
	if _, err := table.Insert("abcd"); err != nil {
		t.Fatal(err)
	}

	// qqqq is hash(pppp), which lies on no stored chain.
	found, err := Lookup(table, Digest("qqqq"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if found == nil || len(found) != 0 {
		t.Fatalf("got %#v, want an empty non-nil result", found)
	}
}

func TestLookupEmptyTable(t *testing.T) {
	table := newStubTable(t, 3, shiftReduce{})
	found, err := Lookup(table, Digest("bcde"))
	if err != nil || len(found) != 0 {
		t.Fatalf("got %v, %v", found, err)
	}
}

func TestLookupWrongDigestLength(t *testing.T) {
	table := newStubTable(t, 3, shiftReduce{})
	if _, err := table.Insert("abcd"); err != nil {
		t.Fatal(err)
	}
	_, err := Lookup(table, Digest("bcd"))
	if !IsConfigurationError(err) {
		t.Fatalf("got %v, want a configuration error", err)
	}
	_, err = LookupParallel(context.Background(), table, Digest("bcdef"), 2)
	if !IsConfigurationError(err) {
		t.Fatalf("parallel: got %v, want a configuration error", err)
	}
}

func TestLookupRejectsFalsePositives(t *testing.T) {
	// Every chain merges into aaaa, so every column hits the table.
	table := newStubTable(t, 4, constReduce{value: "aaaa"})
	for _, s := range []string{"abcd", "wxyz"} {
		if _, err := table.Insert(s); err != nil {
			t.Fatal(err)
		}
	}

	found, stats, err := LookupWithStats(context.Background(), table, Digest("nnnn"))
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Fatalf("got %v, want nothing", found)
	}
	if stats.EndpointHits != 4 {
		t.Errorf("EndpointHits = %d, want 4", stats.EndpointHits)
	}
	if stats.FalsePositives != 8 {
		t.Errorf("FalsePositives = %d, want 8", stats.FalsePositives)
	}

	for _, p := range []string{"abcd", "wxyz"} {
		target, _ := table.Engine().Hash(p)
		found, err := Lookup(table, target)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(found, []string{p}) {
			t.Errorf("Lookup(hash(%s)) = %v", p, found)
		}
	}
}

func TestLookupDeduplicatesAcrossColumns(t *testing.T) {
	// aaaa sits at columns 1..3 of both chains.
	table := newStubTable(t, 4, constReduce{value: "aaaa"})
	for _, s := range []string{"abcd", "wxyz"} {
		if _, err := table.Insert(s); err != nil {
			t.Fatal(err)
		}
	}
	found, stats, err := LookupWithStats(context.Background(), table, Digest("bbbb"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(found, []string{"aaaa"}) {
		t.Fatalf("got %v, want [aaaa]", found)
	}
	if stats.Verified != 6 {
		t.Fatalf("Verified = %d, want 6", stats.Verified)
	}
}

func TestLookupEveryPlaintextVerifies(t *testing.T) {
	table := newStubTable(t, 20, binaryReduce{})
	gen := sliceGen("abcd", "efgh", "ijkl", "mnop", "qrst", "uvwx", "yzab", "cdef")
	if _, err := Fill(context.Background(), table, 8, gen, FillOptions{}); err != nil {
		t.Fatal(err)
	}

	for _, target := range []Digest{Digest("abab"), Digest("bbbb"), Digest("bcde"), Digest("aaab")} {
		found, err := Lookup(table, target)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range found {
			d, err := table.Engine().Hash(p)
			if err != nil {
				t.Fatal(err)
			}
			if !d.Equal(target) {
				t.Errorf("hash(%q) = %s, want %s", p, d, target)
			}
		}
	}
}

func TestLookupParallelMatchesSequential(t *testing.T) {
	table := newStubTable(t, 30, binaryReduce{})
	gen := sliceGen("abcd", "efgh", "ijkl", "mnop", "qrst", "uvwx")
	if _, err := Fill(context.Background(), table, 6, gen, FillOptions{}); err != nil {
		t.Fatal(err)
	}

	for _, target := range []Digest{Digest("bbbb"), Digest("bcde"), Digest("abab")} {
		want, err := Lookup(table, target)
		if err != nil {
			t.Fatal(err)
		}
		got, err := LookupParallel(context.Background(), table, target, 4)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(SortedResult(got), SortedResult(want)) {
			t.Errorf("target %s: parallel %v, sequential %v", target, got, want)
		}
	}
}

func TestLookupContextCancelled(t *testing.T) {
	table := newStubTable(t, 3, shiftReduce{})
	if _, err := table.Insert("abcd"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := LookupContext(ctx, table, Digest("bcde")); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func BenchmarkLookup(b *testing.B) {
	table := newStubTable(b, 500, binaryReduce{})
	gen := sliceGen("abcd", "efgh", "ijkl", "mnop")
	if _, err := Fill(context.Background(), table, 4, gen, FillOptions{}); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Lookup(table, Digest("bcde"))
	}
}
