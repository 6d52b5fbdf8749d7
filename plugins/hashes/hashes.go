// Package hashes implements the hash oracles a rainbow table can invert.
//
// Every driver understands two options:
//
//	truncate: keep only the first N bytes of each digest (0 keeps all)
//	ascii:    reject plaintexts with non-ASCII characters
//
// Truncation makes the digest space small enough for short plaintexts, which
// is how tables over a few lowercase letters stay useful.
package hashes

import (
	"crypto/md5"
	"crypto/sha1"
	"fmt"

	"github.com/minio/sha256-simd"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
	"gopkg.in/yaml.v3"

	rainbowLib "rainbow-table/rainbow"
)

// Options contains the options shared by all hash drivers.
type Options struct {
	Truncate int  `yaml:"truncate"`
	ASCII    bool `yaml:"ascii"`
}

func init() {
	rainbowLib.RegisterHash("md5", sumDriver{size: md5.Size, sum: func(b []byte) []byte {
		d := md5.Sum(b)
		return d[:]
	}})
	rainbowLib.RegisterHash("sha1", sumDriver{size: sha1.Size, sum: func(b []byte) []byte {
		d := sha1.Sum(b)
		return d[:]
	}})
	rainbowLib.RegisterHash("sha256", sumDriver{size: sha256.Size, sum: func(b []byte) []byte {
		d := sha256.Sum256(b)
		return d[:]
	}})
	rainbowLib.RegisterHash("sha3-224", sumDriver{size: 28, sum: func(b []byte) []byte {
		d := sha3.Sum224(b)
		return d[:]
	}})
	rainbowLib.RegisterHash("sha3-256", sumDriver{size: 32, sum: func(b []byte) []byte {
		d := sha3.Sum256(b)
		return d[:]
	}})
	rainbowLib.RegisterHash("blake3", sumDriver{size: 32, sum: func(b []byte) []byte {
		d := blake3.Sum256(b)
		return d[:]
	}})
}

// decodeOptions parses the shared options and checks them against the full
// digest size.
func decodeOptions(cfgBytes []byte, size int) (Options, error) {
	var opts Options
	if err := yaml.Unmarshal(cfgBytes, &opts); err != nil {
		return opts, fmt.Errorf("unable to decode config: %w", err)
	}
	if opts.Truncate < 0 || opts.Truncate > size {
		return opts, &rainbowLib.ConfigurationError{
			Field: "truncate",
			Msg:   fmt.Sprintf("must be between 0 and %d, got %d", size, opts.Truncate),
		}
	}
	return opts, nil
}

type sumDriver struct {
	size int
	sum  func([]byte) []byte
}

func (d sumDriver) NewOracle(cfgBytes []byte) (rainbowLib.HashOracle, error) {
	opts, err := decodeOptions(cfgBytes, d.size)
	if err != nil {
		return nil, err
	}
	return newOracle(d.size, d.sum, opts), nil
}

// oracle wraps a fixed-size digest function.
type oracle struct {
	size  int
	sum   func([]byte) []byte
	ascii bool
}

func newOracle(size int, sum func([]byte) []byte, opts Options) *oracle {
	if opts.Truncate > 0 {
		size = opts.Truncate
	}
	return &oracle{size: size, sum: sum, ascii: opts.ASCII}
}

// New returns an oracle for sum, which must always return at least size
// bytes.
func New(size int, sum func([]byte) []byte, opts Options) (rainbowLib.HashOracle, error) {
	if size <= 0 {
		return nil, &rainbowLib.ConfigurationError{Field: "size", Msg: "digest size must be positive"}
	}
	if opts.Truncate < 0 || opts.Truncate > size {
		return nil, &rainbowLib.ConfigurationError{Field: "truncate", Msg: fmt.Sprintf("must be between 0 and %d", size)}
	}
	return newOracle(size, sum, opts), nil
}

func (o *oracle) Size() int {
	return o.size
}

func (o *oracle) Hash(plaintext string) (rainbowLib.Digest, error) {
	if o.ascii {
		if err := checkASCII(plaintext); err != nil {
			return nil, err
		}
	}
	return rainbowLib.Digest(o.sum([]byte(plaintext))[:o.size]), nil
}

func checkASCII(plaintext string) error {
	for i := 0; i < len(plaintext); i++ {
		if plaintext[i] >= 0x80 {
			return fmt.Errorf("non-ASCII byte 0x%02x at offset %d", plaintext[i], i)
		}
	}
	return nil
}
