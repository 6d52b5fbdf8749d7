package common

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"

	"github.com/DataDog/zstd"

	rainbowLib "rainbow-table/rainbow"
)

// RandomGenerator returns a generator of random plaintexts with the given
// length over alphabet. The generator is safe for concurrent use.
func RandomGenerator(rng *rand.Rand, alphabet string, length int) (rainbowLib.Generator, error) {
	if len(alphabet) == 0 {
		return nil, &rainbowLib.ConfigurationError{Field: "alphabet", Msg: "must not be empty"}
	}
	if length <= 0 {
		return nil, &rainbowLib.ConfigurationError{Field: "length", Msg: "must be greater than zero"}
	}

	var m sync.Mutex
	return func() string {
		m.Lock()
		defer m.Unlock()
		out := make([]byte, length)
		for i := range out {
			out[i] = alphabet[rng.Intn(len(alphabet))]
		}
		return string(out)
	}, nil
}

// SliceGenerator yields the given words in order and wraps around at the
// end.
func SliceGenerator(words []string) rainbowLib.Generator {
	var (
		m sync.Mutex
		i int
	)
	return func() string {
		m.Lock()
		defer m.Unlock()
		if len(words) == 0 {
			return ""
		}
		w := words[i%len(words)]
		i++
		return w
	}
}

// ReadWordlist reads one word per line, skipping empty lines and lines
// starting with "#". Files ending in .zst are decompressed on the fly.
func ReadWordlist(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open wordlist: %w", err)
	}
	defer file.Close()

	var scanner *bufio.Scanner
	if strings.HasSuffix(path, ".zst") {
		compressed := zstd.NewReader(file)
		defer compressed.Close()
		scanner = bufio.NewScanner(compressed)
	} else {
		scanner = bufio.NewScanner(file)
	}

	var words []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("unable to read wordlist: %w", err)
	}
	return words, nil
}
