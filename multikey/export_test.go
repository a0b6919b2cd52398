package multikey

import (
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-varint"
)

func encodeRaw(code uint64, raw []byte) (string, error) {
	return multibase.Encode(multibase.Base58BTC, append(varint.ToUvarint(code), raw...))
}
