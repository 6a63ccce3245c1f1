// Package pb defines the wire contract with the inference server: request/response
// messages, service descriptors and the JSON codec they are carried with.
//
// The inference server speaks gRPC with content-subtype "json"; clients select it with
// grpc.CallContentSubtype(pb.CodecName).
package pb
