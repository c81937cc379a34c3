package serializer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/ValentinKolb/pKV/rpc/common"
)

// testRequests creates a set of requests covering all commands
func testRequests() []*common.Request {
	return []*common.Request{
		common.NewGetRequest("test-key"),
		common.NewSetRequest("test-key", []byte("test-value")),
		common.NewSetRequest("", []byte{}),
		common.NewSetRequest("binary\x00key", []byte{0, 1, 2, 255}),
		common.NewDelRequest("test-key"),
		common.NewHasRequest("test-key"),
		common.NewKeysRequest(),
		{Args: [][]byte{}},
	}
}

// TestRequestRoundTrip tests that requests can be encoded and decoded correctly
func TestRequestRoundTrip(t *testing.T) {
	serializer := NewBinarySerializer()

	for i, req := range testRequests() {
		data, err := serializer.EncodeRequest(nil, req)
		if err != nil {
			t.Errorf("Failed to encode request %d: %v", i, err)
			continue
		}

		var result common.Request
		if err := serializer.DecodeRequest(data, &result); err != nil {
			t.Errorf("Failed to decode request %d: %v", i, err)
			continue
		}

		if len(result.Args) != len(req.Args) {
			t.Errorf("Request %d: expected %d args, got %d", i, len(req.Args), len(result.Args))
			continue
		}
		for j := range req.Args {
			if !bytes.Equal(req.Args[j], result.Args[j]) {
				t.Errorf("Request %d arg %d doesn't match: expected %q, got %q", i, j, req.Args[j], result.Args[j])
			}
		}
	}
}

// TestRequestEncoding checks the exact byte layout
func TestRequestEncoding(t *testing.T) {
	data, err := NewBinarySerializer().EncodeRequest(nil, common.NewSetRequest("k", []byte("vv")))
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	expected := []byte{
		3, 0, 0, 0, // three arguments
		3, 0, 0, 0, 's', 'e', 't',
		1, 0, 0, 0, 'k',
		2, 0, 0, 0, 'v', 'v',
	}
	if !bytes.Equal(data, expected) {
		t.Errorf("Unexpected encoding:\nExpected: %v\nGot:      %v", expected, data)
	}
}

// TestEncodeAppends checks that encoding keeps existing content of dst
func TestEncodeAppends(t *testing.T) {
	serializer := NewBinarySerializer()
	prefix := []byte("prefix")

	data, _ := serializer.EncodeRequest(append([]byte{}, prefix...), common.NewKeysRequest())
	if !bytes.HasPrefix(data, prefix) {
		t.Errorf("Expected encoded request to keep the prefix, got %q", data)
	}

	data = serializer.EncodeResponse(append([]byte{}, prefix...), common.NewOKResponse([]byte("x")))
	if !bytes.Equal(data, append(append([]byte{}, prefix...), 0, 0, 0, 0, 'x')) {
		t.Errorf("Unexpected response encoding %v", data)
	}
}

// TestMalformedRequests tests payloads that must be rejected
func TestMalformedRequests(t *testing.T) {
	tooMany := binary.LittleEndian.AppendUint32(nil, common.MaxArgs+1)

	testCases := []struct {
		name string
		data []byte
	}{
		{"Empty", []byte{}},
		{"Short header", []byte{1, 0}},
		{"Missing argument", []byte{1, 0, 0, 0}},
		{"Short argument length", []byte{1, 0, 0, 0, 5, 0}},
		{"Truncated argument", []byte{1, 0, 0, 0, 5, 0, 0, 0, 'a', 'b'}},
		{"Trailing bytes", []byte{1, 0, 0, 0, 1, 0, 0, 0, 'a', 'b'}},
		{"Too many arguments", tooMany},
		{"Huge argument length", []byte{1, 0, 0, 0, 255, 255, 255, 255, 'a'}},
	}

	serializer := NewBinarySerializer()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var req common.Request
			err := serializer.DecodeRequest(tc.data, &req)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Expected ErrMalformed, got %v", err)
			}
		})
	}

	args := make([][]byte, common.MaxArgs+1)
	if _, err := serializer.EncodeRequest(nil, &common.Request{Args: args}); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected encoding of too many arguments to fail, got %v", err)
	}
}

// TestResponseRoundTrip tests all response statuses
func TestResponseRoundTrip(t *testing.T) {
	serializer := NewBinarySerializer()

	responses := []*common.Response{
		common.NewOKResponse(nil),
		common.NewOKResponse([]byte("value")),
		common.NewNXResponse(),
		common.NewErrResponse("Unknown cmd"),
	}

	for i, resp := range responses {
		data := serializer.EncodeResponse(nil, resp)

		var result common.Response
		if err := serializer.DecodeResponse(data, &result); err != nil {
			t.Errorf("Failed to decode response %d: %v", i, err)
			continue
		}
		if result.Status != resp.Status || !bytes.Equal(result.Data, resp.Data) {
			t.Errorf("Response %d doesn't match: expected %s %q, got %s %q",
				i, resp.Status, resp.Data, result.Status, result.Data)
		}
	}

	var result common.Response
	if err := serializer.DecodeResponse([]byte{0, 0}, &result); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed for a short response, got %v", err)
	}
}

func TestKeysEncoding(t *testing.T) {
	keys := []string{"a", "", "longer-key", "bin\x00ary"}

	decoded, err := DecodeKeys(AppendKeys(nil, keys))
	if err != nil {
		t.Fatalf("Failed to decode keys: %v", err)
	}
	if !reflect.DeepEqual(keys, decoded) {
		t.Errorf("Keys don't match: expected %q, got %q", keys, decoded)
	}

	empty, err := DecodeKeys(AppendKeys(nil, nil))
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty key list, got %q (err=%v)", empty, err)
	}

	for _, bad := range [][]byte{
		{},
		{2, 0, 0, 0, 1, 0, 0, 0, 'a'},
		{255, 255, 255, 255},
		{1, 0, 0, 0, 1, 0, 0, 0, 'a', 'b'},
	} {
		if _, err := DecodeKeys(bad); !errors.Is(err, ErrMalformed) {
			t.Errorf("Expected ErrMalformed for %v, got %v", bad, err)
		}
	}
}

func TestBoolEncoding(t *testing.T) {
	for _, v := range []bool{true, false} {
		decoded, err := DecodeBool(EncodeBool(v))
		if err != nil || decoded != v {
			t.Errorf("Expected %v, got %v (err=%v)", v, decoded, err)
		}
	}
	if _, err := DecodeBool([]byte{2}); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed, got %v", err)
	}
	if _, err := DecodeBool(nil); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed, got %v", err)
	}
}
