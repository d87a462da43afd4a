// Package cbor provides a CBOR codec for models.
package cbor

import (
	"fmt"
	"reflect"

	model "github.com/artisanbr/generic-model"
	"github.com/fxamacker/cbor/v2"
)

// encMode encodes with canonical key order and RFC 3339 timestamps.
var encMode cbor.EncMode

// decMode decodes generic maps as map[string]any.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:      cbor.DupMapKeyQuiet,
		IndefLength:    cbor.IndefLengthAllowed,
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// cborCodec implements model.Codec for CBOR.
type cborCodec struct{}

// New returns a CBOR codec.
func New() model.Codec {
	return &cborCodec{}
}

// ContentType returns the MIME type for CBOR.
func (c *cborCodec) ContentType() string {
	return "application/cbor"
}

// Marshal encodes v as CBOR.
func (c *cborCodec) Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func (c *cborCodec) Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
