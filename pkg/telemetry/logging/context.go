package logging

import "context"

type fieldsKey struct{}

// fields are the request-scoped values Handler adds to every record.
type fields struct {
	requestID string
	resource  string
}

func fromContext(ctx context.Context) fields {
	f, _ := ctx.Value(fieldsKey{}).(fields)
	return f
}

// WithRequestID attaches the request ID to ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	f := fromContext(ctx)
	f.requestID = requestID
	return context.WithValue(ctx, fieldsKey{}, f)
}

// WithResource attaches the book or chapter an image request belongs to.
func WithResource(ctx context.Context, resource string) context.Context {
	f := fromContext(ctx)
	f.resource = resource
	return context.WithValue(ctx, fieldsKey{}, f)
}

// GetRequestID returns the request ID stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	return fromContext(ctx).requestID
}

// GetResource returns the resource stored in ctx, or "".
func GetResource(ctx context.Context) string {
	return fromContext(ctx).resource
}
