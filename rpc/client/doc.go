// Package client implements the RPC client of pKV. NewRPCStore returns a
// store.IStore whose operations are sent to a remote server.
//
// Usage Example:
//
//	config := common.ClientConfig{
//		Transport:     "tcp",
//		Endpoint:      "127.0.0.1:1234",
//		TimeoutSecond: 5,
//		Pipeline:      64,
//	}
//
//	kv, err := client.NewRPCStore(config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//		return err
//	}
//	defer kv.Close()
//
//	kv.Set("mykey", []byte("myvalue"))
//	value, found, _ := kv.Get("mykey")
//
// Error responses of the server are returned as errors, a missing key is
// reported through the boolean results. Batch sends many requests back to
// back and leaves the interpretation of the responses to the caller.
//
// Thread Safety:
//
//	Calls are serialized on a single connection by the transport.
package client
