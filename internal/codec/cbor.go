package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOR implements Marshaler and Unmarshaler on top of fxamacker/cbor.
// Timestamps are encoded as RFC 3339 strings so that payloads stay
// readable when dumped, and decode losslessly into time.Time.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func NewCBOR() *CBOR {
	enc, err := cbor.EncOptions{
		Time:    cbor.TimeRFC3339Nano,
		TimeTag: cbor.EncTagRequired,
	}.EncMode()
	if err != nil {
		panic("unreachable: static cbor encoder options rejected: " + err.Error())
	}

	dec, err := cbor.DecOptions{
		DefaultMapType: nil,
	}.DecMode()
	if err != nil {
		panic("unreachable: static cbor decoder options rejected: " + err.Error())
	}

	return &CBOR{enc: enc, dec: dec}
}

func (c *CBOR) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c *CBOR) Unmarshal(data []byte, dst any) error {
	return c.dec.Unmarshal(data, dst)
}
