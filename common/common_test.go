package common

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/DataDog/zstd"

	rainbowLib "rainbow-table/rainbow"
)

func TestRandomGenerator(t *testing.T) {
	gen, err := RandomGenerator(rand.New(rand.NewSource(3)), "xyz", 5)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	results := make(chan string, 400)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				results <- gen()
			}
		}()
	}
	wg.Wait()
	close(results)

	for s := range results {
		if len(s) != 5 || strings.Trim(s, "xyz") != "" {
			t.Fatalf("unexpected plaintext %q", s)
		}
	}

	if _, err := RandomGenerator(rand.New(rand.NewSource(1)), "", 5); !rainbowLib.IsConfigurationError(err) {
		t.Errorf("empty alphabet: got %v", err)
	}
	if _, err := RandomGenerator(rand.New(rand.NewSource(1)), "abc", 0); !rainbowLib.IsConfigurationError(err) {
		t.Errorf("zero length: got %v", err)
	}
}

func TestSliceGenerator(t *testing.T) {
	gen := SliceGenerator([]string{"one", "two"})
	var got []string
	for i := 0; i < 5; i++ {
		got = append(got, gen())
	}
	if want := []string{"one", "two", "one", "two", "one"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if s := SliceGenerator(nil)(); s != "" {
		t.Fatalf("empty generator returned %q", s)
	}
}

const wordlist = "# comment\nalpha\n\nbeta\r\ngamma\n"

func TestReadWordlist(t *testing.T) {
	dir := t.TempDir()
	want := []string{"alpha", "beta", "gamma"}

	plain := filepath.Join(dir, "words.txt")
	if err := os.WriteFile(plain, []byte(wordlist), 0o644); err != nil {
		t.Fatal(err)
	}
	compressedData, err := zstd.Compress(nil, []byte(wordlist))
	if err != nil {
		t.Fatal(err)
	}
	compressed := filepath.Join(dir, "words.txt.zst")
	if err := os.WriteFile(compressed, compressedData, 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{plain, compressed} {
		got, err := ReadWordlist(path)
		if err != nil {
			t.Fatalf("ReadWordlist(%s): %v", path, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("ReadWordlist(%s) = %v, want %v", path, got, want)
		}
	}

	if _, err := ReadWordlist(filepath.Join(dir, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file: got %v", err)
	}
}

func TestParseDigest(t *testing.T) {
	d, err := ParseDigest(" 0a0b0c \n", 3)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Equal(rainbowLib.Digest{0x0a, 0x0b, 0x0c}) {
		t.Fatalf("got %s", d)
	}

	if _, err := ParseDigest("0a0b", 3); !rainbowLib.IsConfigurationError(err) {
		t.Errorf("short digest: got %v", err)
	}
	if _, err := ParseDigest("0a0b0c0d", 0); err != nil {
		t.Errorf("size zero should skip the check: %v", err)
	}
	if _, err := ParseDigest("xyz", 0); err == nil {
		t.Error("invalid hex: expected an error")
	}
}
