package hashes

import (
	"fmt"

	mh "github.com/multiformats/go-multihash"
	_ "github.com/multiformats/go-multihash/register/all"
	"gopkg.in/yaml.v3"

	rainbowLib "rainbow-table/rainbow"
)

const multihashDriverName = "multihash"

// MultihashOptions configures the multihash driver.
type MultihashOptions struct {
	Options `yaml:",inline"`

	// Function is a multihash function name such as "sha2-256" or
	// "blake2b-256".
	Function string `yaml:"function"`

	// Length is the requested digest length, -1 for the function default.
	Length int `yaml:"length"`
}

func init() {
	rainbowLib.RegisterHash(multihashDriverName, multihashDriver{})
}

type multihashDriver struct{}

func (multihashDriver) NewOracle(cfgBytes []byte) (rainbowLib.HashOracle, error) {
	opts := MultihashOptions{Function: "sha2-256", Length: -1}
	if err := yaml.Unmarshal(cfgBytes, &opts); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	code, ok := mh.Names[opts.Function]
	if !ok {
		return nil, &rainbowLib.ConfigurationError{
			Field: "function",
			Msg:   fmt.Sprintf("unknown multihash function %q", opts.Function),
		}
	}

	o := &multihashOracle{code: code, length: opts.Length}
	// Probe once to learn the digest size and to fail early on
	// unsupported functions.
	probe, err := o.digest(nil)
	if err != nil {
		return nil, &rainbowLib.ConfigurationError{Field: "function", Msg: opts.Function, Err: err}
	}
	if opts.Truncate < 0 || opts.Truncate > len(probe) {
		return nil, &rainbowLib.ConfigurationError{
			Field: "truncate",
			Msg:   fmt.Sprintf("must be between 0 and %d, got %d", len(probe), opts.Truncate),
		}
	}
	o.size = len(probe)
	if opts.Truncate > 0 {
		o.size = opts.Truncate
	}
	o.ascii = opts.ASCII
	return o, nil
}

// multihashOracle hashes with any function known to go-multihash and strips
// the multihash prefix from the result.
type multihashOracle struct {
	code   uint64
	length int
	size   int
	ascii  bool
}

func (o *multihashOracle) digest(data []byte) ([]byte, error) {
	sum, err := mh.Sum(data, o.code, o.length)
	if err != nil {
		return nil, err
	}
	decoded, err := mh.Decode(sum)
	if err != nil {
		return nil, err
	}
	return decoded.Digest, nil
}

func (o *multihashOracle) Size() int {
	return o.size
}

func (o *multihashOracle) Hash(plaintext string) (rainbowLib.Digest, error) {
	if o.ascii {
		if err := checkASCII(plaintext); err != nil {
			return nil, err
		}
	}
	d, err := o.digest([]byte(plaintext))
	if err != nil {
		return nil, err
	}
	if len(d) < o.size {
		return nil, &rainbowLib.ConfigurationError{Field: "length", Msg: fmt.Sprintf("digest has %d bytes, need %d", len(d), o.size)}
	}
	return rainbowLib.Digest(d[:o.size]), nil
}
