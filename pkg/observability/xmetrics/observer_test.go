package xmetrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type nilObserver struct{}

func (nilObserver) Start(context.Context, SpanOptions) (context.Context, Span) {
	return nil, nil
}

func TestStart_NilObserver(t *testing.T) {
	//nolint:staticcheck // 测试 nil ctx 归一化
	ctx, span := Start(nil, nil, SpanOptions{})
	assert.NotNil(t, ctx)
	assert.IsType(t, NoopSpan{}, span)
	span.End(Result{})
}

func TestStart_ObserverReturnsNil(t *testing.T) {
	parent := context.Background()
	ctx, span := Start(parent, nilObserver{}, SpanOptions{})
	assert.Equal(t, parent, ctx)
	assert.IsType(t, NoopSpan{}, span)
}

func TestNoopObserver(t *testing.T) {
	//nolint:staticcheck // 测试 nil ctx 归一化
	ctx, span := NoopObserver{}.Start(nil, SpanOptions{})
	assert.NotNil(t, ctx)
	span.End(Result{Err: errors.New("ignored")})
}

func TestResolveStatus(t *testing.T) {
	assert.Equal(t, StatusOK, resolveStatus(Result{}))
	assert.Equal(t, StatusError, resolveStatus(Result{Err: errors.New("x")}))
	assert.Equal(t, StatusTimeout, resolveStatus(Result{Err: context.DeadlineExceeded}))
	assert.Equal(t, StatusRejected, resolveStatus(Result{Status: StatusRejected, Err: errors.New("x")}))
}
