package common

import "context"

type ctxKey string

const operatorKey ctxKey = "auth/operator"

// WithOperator stores the authenticated operator name on the provided context.
func WithOperator(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operatorKey, name)
}

// Operator extracts the authenticated operator name from the context if present.
func Operator(ctx context.Context) (string, bool) {
	v := ctx.Value(operatorKey)
	if v == nil {
		return "", false
	}
	name, ok := v.(string)
	return name, ok
}
