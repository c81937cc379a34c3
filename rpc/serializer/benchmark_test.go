package serializer

import (
	"testing"

	"github.com/ValentinKolb/pKV/rpc/common"
)

// benchmarkRequests returns a set of requests for targeted benchmarking
func benchmarkRequests() map[string]*common.Request {
	return map[string]*common.Request{
		"Keys":        common.NewKeysRequest(),
		"SmallGet":    common.NewGetRequest("k"),
		"MediumGet":   common.NewGetRequest("medium-length-key-for-testing"),
		"SmallValue":  common.NewSetRequest("key", []byte("v")),
		"MediumValue": common.NewSetRequest("key", []byte("medium length value for testing serialization")),
		"LargeValue":  common.NewSetRequest("key", make([]byte, 1024)),
		"HugeValue":   common.NewSetRequest("key", make([]byte, 1024*1024)),
	}
}

func BenchmarkEncodeRequest(b *testing.B) {
	serializer := NewBinarySerializer()
	for name, req := range benchmarkRequests() {
		b.Run(name, func(b *testing.B) {
			buf := make([]byte, 0, 2*1024*1024)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				buf, _ = serializer.EncodeRequest(buf[:0], req)
			}
		})
	}
}

func BenchmarkDecodeRequest(b *testing.B) {
	serializer := NewBinarySerializer()
	for name, req := range benchmarkRequests() {
		data, err := serializer.EncodeRequest(nil, req)
		if err != nil {
			b.Fatalf("Failed to encode %s: %v", name, err)
		}
		b.Run(name, func(b *testing.B) {
			var result common.Request
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if err := serializer.DecodeRequest(data, &result); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
