package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
)

// MockGateway is a testify mock of application.Gateway.
type MockGateway struct {
	mock.Mock
}

type MockGateway_Expecter struct {
	mock *mock.Mock
}

func (_m *MockGateway) EXPECT() *MockGateway_Expecter {
	return &MockGateway_Expecter{mock: &_m.Mock}
}

func (_m *MockGateway) Send(ctx context.Context, req posnet.Request) (posnet.Response, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Send")
	}

	if fn, ok := ret.Get(0).(func(context.Context, posnet.Request) (posnet.Response, error)); ok {
		return fn(ctx, req)
	}

	var r0 posnet.Response
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(posnet.Response)
	}
	return r0, ret.Error(1)
}

type MockGateway_Send_Call struct {
	*mock.Call
}

// Send is a helper method to define mock.On call
//   - ctx context.Context
//   - req posnet.Request
func (_e *MockGateway_Expecter) Send(ctx interface{}, req interface{}) *MockGateway_Send_Call {
	return &MockGateway_Send_Call{Call: _e.mock.On("Send", ctx, req)}
}

func (_c *MockGateway_Send_Call) Run(run func(ctx context.Context, req posnet.Request)) *MockGateway_Send_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(posnet.Request))
	})
	return _c
}

func (_c *MockGateway_Send_Call) Return(resp posnet.Response, err error) *MockGateway_Send_Call {
	_c.Call.Return(resp, err)
	return _c
}

func (_c *MockGateway_Send_Call) RunAndReturn(run func(context.Context, posnet.Request) (posnet.Response, error)) *MockGateway_Send_Call {
	_c.Call.Return(run)
	return _c
}

// NewMockGateway creates a new instance of MockGateway. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockGateway(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGateway {
	m := &MockGateway{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
