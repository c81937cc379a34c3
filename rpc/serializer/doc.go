// Package serializer encodes and decodes the payloads carried inside the
// frames of the wire protocol.
//
// A request is a list of length-prefixed byte strings, the first one names
// the command. A response starts with a 32 bit status followed by the result
// data. All integers are unsigned 32 bit little-endian. A request carries at
// most common.MaxArgs arguments; truncated arguments and trailing bytes make a
// payload malformed (ErrMalformed).
//
// Result data of KEYS responses is a length-prefixed list of keys (AppendKeys,
// DecodeKeys), HAS responses carry a single byte (EncodeBool, DecodeBool).
//
// Serializers are stateless and safe for concurrent use. Encoders append to a
// caller supplied buffer so the server can build responses without
// intermediate allocations:
//
//	s := serializer.NewBinarySerializer()
//	payload, err := s.EncodeRequest(nil, common.NewGetRequest("key"))
//	var req common.Request
//	err = s.DecodeRequest(payload, &req)
package serializer
