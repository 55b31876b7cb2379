package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxSubject ctxKey = iota
	ctxScopes
)

func WithPrincipal(ctx context.Context, subject string, scopes []string) context.Context {
	ctx = context.WithValue(ctx, ctxSubject, subject)
	ctx = context.WithValue(ctx, ctxScopes, scopes)
	return ctx
}

func Subject(ctx context.Context) (string, error) {
	v := ctx.Value(ctxSubject)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("subject not in context")
}

func Scopes(ctx context.Context) []string {
	s, _ := ctx.Value(ctxScopes).([]string)
	return s
}
