package serializer

import (
	"errors"

	"github.com/ValentinKolb/pKV/rpc/common"
)

// ErrMalformed is returned when a payload does not follow the command encoding
var ErrMalformed = errors.New("malformed payload")

// IRPCSerializer is the interface for the command payload codecs
type IRPCSerializer interface {
	// EncodeRequest appends the encoded request to dst and returns the extended slice
	EncodeRequest(dst []byte, req *common.Request) ([]byte, error)
	// DecodeRequest decodes a request payload. The arguments alias b and are
	// only valid as long as b is not modified.
	DecodeRequest(b []byte, req *common.Request) error
	// EncodeResponse appends the encoded response to dst and returns the extended slice
	EncodeResponse(dst []byte, resp *common.Response) []byte
	// DecodeResponse decodes a response payload, Data aliases b
	DecodeResponse(b []byte, resp *common.Response) error
}
