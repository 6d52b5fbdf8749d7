// Package reductions implements reduction policies that map digests back
// into a plaintext space of fixed length over a fixed alphabet.
//
// All drivers take the same options:
//
//	length:   number of characters per plaintext
//	alphabet: the characters to draw from, ASCII only
package reductions

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
	"gopkg.in/yaml.v3"

	rainbowLib "rainbow-table/rainbow"
)

// LowercaseAlphabet is the default alphabet.
const LowercaseAlphabet = "abcdefghijklmnopqrstuvwxyz"

// Options contains the options shared by all reduction drivers.
type Options struct {
	Length   int    `yaml:"length"`
	Alphabet string `yaml:"alphabet"`
}

func (o Options) check() error {
	if o.Length <= 0 {
		return &rainbowLib.ConfigurationError{Field: "length", Msg: fmt.Sprintf("must be greater than zero, got %d", o.Length)}
	}
	if len(o.Alphabet) == 0 {
		return &rainbowLib.ConfigurationError{Field: "alphabet", Msg: "must not be empty"}
	}
	seen := make(map[byte]struct{}, len(o.Alphabet))
	for i := 0; i < len(o.Alphabet); i++ {
		c := o.Alphabet[i]
		if c >= 0x80 {
			return &rainbowLib.ConfigurationError{Field: "alphabet", Msg: "must be ASCII"}
		}
		if strings.IndexByte(",\"\r\n", c) >= 0 {
			return &rainbowLib.ConfigurationError{Field: "alphabet", Msg: fmt.Sprintf("character %q cannot be stored in a table file", c)}
		}
		if _, dup := seen[c]; dup {
			return &rainbowLib.ConfigurationError{Field: "alphabet", Msg: fmt.Sprintf("duplicate character %q", c)}
		}
		seen[c] = struct{}{}
	}
	return nil
}

func init() {
	rainbowLib.RegisterReduction("ordinal", driver{newPolicy: func(o Options) rainbowLib.ReductionPolicy { return newOrdinal(o) }})
	rainbowLib.RegisterReduction("modular", driver{newPolicy: func(o Options) rainbowLib.ReductionPolicy { return newModular(o) }})
	rainbowLib.RegisterReduction("bytewise", driver{newPolicy: func(o Options) rainbowLib.ReductionPolicy { return bytewise{o} }})
	rainbowLib.RegisterReduction("xxh3", driver{newPolicy: func(o Options) rainbowLib.ReductionPolicy { return mixed{o} }})
}

type driver struct {
	newPolicy func(Options) rainbowLib.ReductionPolicy
}

func (d driver) NewPolicy(cfgBytes []byte) (rainbowLib.ReductionPolicy, error) {
	opts := Options{Alphabet: LowercaseAlphabet}
	if err := yaml.Unmarshal(cfgBytes, &opts); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := opts.check(); err != nil {
		return nil, err
	}
	return d.newPolicy(opts), nil
}

// New returns the named policy without going through the registry.
func New(name string, opts Options) (rainbowLib.ReductionPolicy, error) {
	if err := opts.check(); err != nil {
		return nil, err
	}
	switch name {
	case "ordinal":
		return newOrdinal(opts), nil
	case "modular":
		return newModular(opts), nil
	case "bytewise":
		return bytewise{opts}, nil
	case "xxh3":
		return mixed{opts}, nil
	default:
		return nil, fmt.Errorf("reduction %q: %w", name, rainbowLib.ErrDriverDoesNotExist)
	}
}

func errEmptyDigest() error {
	return &rainbowLib.ConfigurationError{Field: "digest", Msg: "cannot reduce an empty digest"}
}

// spell writes the number n in base len(alphabet), least significant digit
// first, padded to length characters. n is consumed.
func spell(n *big.Int, opts Options) string {
	base := big.NewInt(int64(len(opts.Alphabet)))
	rem := new(big.Int)
	out := make([]byte, opts.Length)
	for i := range out {
		n.QuoRem(n, base, rem)
		out[i] = opts.Alphabet[rem.Int64()]
	}
	return string(out)
}

func space(opts Options) *big.Int {
	return new(big.Int).Exp(big.NewInt(int64(len(opts.Alphabet))), big.NewInt(int64(opts.Length)), nil)
}

// ordinal interprets the hex form of the digest as the decimal concatenation
// of its character codes ("3c" becomes 5199), adds the column and takes the
// result modulo the size of the plaintext space.
//
// See https://link.springer.com/chapter/10.1007/978-3-642-30436-1_42
type ordinal struct {
	opts  Options
	space *big.Int
}

func newOrdinal(opts Options) ordinal {
	return ordinal{opts: opts, space: space(opts)}
}

func (p ordinal) Reduce(digest rainbowLib.Digest, column uint32) (string, error) {
	if len(digest) == 0 {
		return "", errEmptyDigest()
	}
	var sb strings.Builder
	for _, c := range hex.EncodeToString(digest) {
		sb.WriteString(strconv.Itoa(int(c)))
	}
	n, ok := new(big.Int).SetString(sb.String(), 10)
	if !ok {
		return "", fmt.Errorf("unable to parse %q as a number", sb.String())
	}
	n.Add(n, big.NewInt(int64(column)))
	n.Mod(n, p.space)
	return spell(n, p.opts), nil
}

// modular reads the digest as a big-endian integer, adds the column and
// takes the result modulo the size of the plaintext space.
type modular struct {
	opts  Options
	space *big.Int
}

func newModular(opts Options) modular {
	return modular{opts: opts, space: space(opts)}
}

func (p modular) Reduce(digest rainbowLib.Digest, column uint32) (string, error) {
	if len(digest) == 0 {
		return "", errEmptyDigest()
	}
	n := new(big.Int).SetBytes(digest)
	n.Add(n, big.NewInt(int64(column)))
	n.Mod(n, p.space)
	return spell(n, p.opts), nil
}

// bytewise picks each character from a pair of digest bytes offset by the
// column. Cheap, but short digests repeat and merge more often.
type bytewise struct {
	opts Options
}

func (p bytewise) Reduce(digest rainbowLib.Digest, column uint32) (string, error) {
	n := len(digest)
	if n == 0 {
		return "", errEmptyDigest()
	}
	base := uint64(len(p.opts.Alphabet))
	out := make([]byte, p.opts.Length)
	for i := range out {
		v := uint64(digest[i%n])<<8 | uint64(digest[(i+1)%n])
		v += uint64(column) + uint64(i/n)
		out[i] = p.opts.Alphabet[v%base]
	}
	return string(out), nil
}

// mixed draws every character from xxh3 of the digest, seeded with the
// column and the character position.
type mixed struct {
	opts Options
}

func (p mixed) Reduce(digest rainbowLib.Digest, column uint32) (string, error) {
	if len(digest) == 0 {
		return "", errEmptyDigest()
	}
	base := uint64(len(p.opts.Alphabet))
	out := make([]byte, p.opts.Length)
	for i := range out {
		v := xxh3.HashSeed(digest, uint64(column)<<32|uint64(i))
		out[i] = p.opts.Alphabet[v%base]
	}
	return string(out), nil
}
