package data

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type SignupRequestStoreMock struct {
	mock.Mock
}

var _ SignupRequestStore = (*SignupRequestStoreMock)(nil)

func (m *SignupRequestStoreMock) signupRequest(args mock.Arguments) (*SignupRequest, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SignupRequest), args.Error(1)
}

func (m *SignupRequestStoreMock) Insert(ctx context.Context, insert SignupRequestInsert) (*SignupRequest, error) {
	return m.signupRequest(m.Called(ctx, insert))
}

func (m *SignupRequestStoreMock) Get(ctx context.Context, id int64) (*SignupRequest, error) {
	return m.signupRequest(m.Called(ctx, id))
}

func (m *SignupRequestStoreMock) GetAllByStatus(ctx context.Context, status SignupRequestStatus) ([]SignupRequest, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SignupRequest), args.Error(1)
}

func (m *SignupRequestStoreMock) CompareAndSwapStatus(ctx context.Context, id int64, from, to SignupRequestStatus, note string) (*SignupRequest, error) {
	return m.signupRequest(m.Called(ctx, id, from, to, note))
}

func (m *SignupRequestStoreMock) Finalize(ctx context.Context, id int64, status SignupRequestStatus, tenantID *int64, note string) (*SignupRequest, error) {
	return m.signupRequest(m.Called(ctx, id, status, tenantID, note))
}

func (m *SignupRequestStoreMock) Reject(ctx context.Context, id int64, reason string) (*SignupRequest, error) {
	return m.signupRequest(m.Called(ctx, id, reason))
}

type testInterface interface {
	mock.TestingT
	Cleanup(func())
}

func NewSignupRequestStoreMock(t testInterface) *SignupRequestStoreMock {
	mock := &SignupRequestStoreMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
