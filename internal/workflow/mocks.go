package workflow

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tenantcrm/crm-platform-backend/internal/data"
)

type DemoRequestProcessorMock struct {
	mock.Mock
}

var _ DemoRequestProcessor = (*DemoRequestProcessorMock)(nil)

func (m *DemoRequestProcessorMock) workflowResult(args mock.Arguments) (*WorkflowResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*WorkflowResult), args.Error(1)
}

func (m *DemoRequestProcessorMock) ProcessDemoRequest(ctx context.Context, id int64) (*WorkflowResult, error) {
	return m.workflowResult(m.Called(ctx, id))
}

func (m *DemoRequestProcessorMock) ResumeProvisioning(ctx context.Context, id int64) (*WorkflowResult, error) {
	return m.workflowResult(m.Called(ctx, id))
}

func (m *DemoRequestProcessorMock) BulkProcessDemoRequests(ctx context.Context, ids []int64) *BulkResult {
	return m.Called(ctx, ids).Get(0).(*BulkResult)
}

func (m *DemoRequestProcessorMock) ListPendingDemoRequests(ctx context.Context) ([]data.SignupRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]data.SignupRequest), args.Error(1)
}

func (m *DemoRequestProcessorMock) RejectDemoRequest(ctx context.Context, id int64, reason string) (*data.SignupRequest, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.SignupRequest), args.Error(1)
}

type testInterface interface {
	mock.TestingT
	Cleanup(func())
}

func NewDemoRequestProcessorMock(t testInterface) *DemoRequestProcessorMock {
	mock := &DemoRequestProcessorMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
