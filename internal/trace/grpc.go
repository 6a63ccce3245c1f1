package trace

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// UnaryClientInterceptor stamps every inference call with the caller's trace ids,
// starting a trace for calls made outside one.
func UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx, tc := EnsureContext(ctx)
		kv := []string{TraceIDKey, tc.TraceID, SpanIDKey, tc.SpanID}
		if tc.ParentSpanID != "" {
			kv = append(kv, ParentSpanIDKey, tc.ParentSpanID)
		}
		return invoker(metadata.AppendToOutgoingContext(ctx, kv...), method, req, reply, cc, opts...)
	}
}
