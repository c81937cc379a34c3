package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/pKV/rpc/common"
)

// NewBinarySerializer creates the serializer for the length-prefixed binary
// command encoding. All integers are unsigned 32 bit little-endian.
//
//	request:  [nargs] ([len][bytes]) * nargs
//	response: [status] [data...]
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl is stateless and safe for concurrent use
type binarySerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) EncodeRequest(dst []byte, req *common.Request) ([]byte, error) {
	if len(req.Args) > common.MaxArgs {
		return dst, fmt.Errorf("%w: %d arguments exceed the limit of %d", ErrMalformed, len(req.Args), common.MaxArgs)
	}

	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(req.Args)))
	for _, arg := range req.Args {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(arg)))
		dst = append(dst, arg...)
	}
	return dst, nil
}

func (b binarySerializerImpl) DecodeRequest(data []byte, req *common.Request) error {
	if len(data) < 4 {
		return fmt.Errorf("%w: request shorter than its header", ErrMalformed)
	}

	n := binary.LittleEndian.Uint32(data)
	if n > common.MaxArgs {
		return fmt.Errorf("%w: %d arguments exceed the limit of %d", ErrMalformed, n, common.MaxArgs)
	}

	args := req.Args[:0]
	pos := 4
	for i := uint32(0); i < n; i++ {
		if len(data)-pos < 4 {
			return fmt.Errorf("%w: argument %d has no length", ErrMalformed, i)
		}
		l := int(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4

		if l > len(data)-pos {
			return fmt.Errorf("%w: argument %d is truncated", ErrMalformed, i)
		}
		args = append(args, data[pos:pos+l:pos+l])
		pos += l
	}

	if pos != len(data) {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(data)-pos)
	}

	req.Args = args
	return nil
}

func (b binarySerializerImpl) EncodeResponse(dst []byte, resp *common.Response) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(resp.Status))
	return append(dst, resp.Data...)
}

func (b binarySerializerImpl) DecodeResponse(data []byte, resp *common.Response) error {
	if len(data) < 4 {
		return fmt.Errorf("%w: response shorter than its status", ErrMalformed)
	}
	resp.Status = common.Status(binary.LittleEndian.Uint32(data))
	resp.Data = data[4:]
	return nil
}

// --------------------------------------------------------------------------
// Result Encodings
// --------------------------------------------------------------------------

// AppendKeys encodes the data of a KEYS response: [n] ([len][bytes]) * n
func AppendKeys(dst []byte, keys []string) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(keys)))
	for _, key := range keys {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(key)))
		dst = append(dst, key...)
	}
	return dst
}

// DecodeKeys decodes the data of a KEYS response
func DecodeKeys(data []byte) ([]string, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: key list shorter than its header", ErrMalformed)
	}

	n := binary.LittleEndian.Uint32(data)
	pos := 4

	// every key needs at least its length prefix
	if uint64(n)*4 > uint64(len(data)-pos) {
		return nil, fmt.Errorf("%w: key list announces %d keys", ErrMalformed, n)
	}

	keys := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		if len(data)-pos < 4 {
			return nil, fmt.Errorf("%w: key %d has no length", ErrMalformed, i)
		}
		l := int(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4
		if l > len(data)-pos {
			return nil, fmt.Errorf("%w: key %d is truncated", ErrMalformed, i)
		}
		keys = append(keys, string(data[pos:pos+l]))
		pos += l
	}

	if pos != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes in key list", ErrMalformed, len(data)-pos)
	}
	return keys, nil
}

// EncodeBool encodes the data of a HAS response
func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeBool decodes the data of a HAS response
func DecodeBool(data []byte) (bool, error) {
	if len(data) != 1 || data[0] > 1 {
		return false, fmt.Errorf("%w: expected a single boolean byte, got %d bytes", ErrMalformed, len(data))
	}
	return data[0] == 1, nil
}
