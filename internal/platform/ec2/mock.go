package ec2

import "context"

// MockAPI is a function-field test double for API.
type MockAPI struct {
	DescribeInstanceFunc func(ctx context.Context, id string) (Status, error)
	StartInstanceFunc    func(ctx context.Context, id string) error
	StopInstanceFunc     func(ctx context.Context, id string) error

	DescribeCalls int
	StartCalls    int
	StopCalls     int
}

func (m *MockAPI) DescribeInstance(ctx context.Context, id string) (Status, error) {
	m.DescribeCalls++
	if m.DescribeInstanceFunc != nil {
		return m.DescribeInstanceFunc(ctx, id)
	}
	return Status{State: StateRunning, Address: "203.0.113.7"}, nil
}

func (m *MockAPI) StartInstance(ctx context.Context, id string) error {
	m.StartCalls++
	if m.StartInstanceFunc != nil {
		return m.StartInstanceFunc(ctx, id)
	}
	return nil
}

func (m *MockAPI) StopInstance(ctx context.Context, id string) error {
	m.StopCalls++
	if m.StopInstanceFunc != nil {
		return m.StopInstanceFunc(ctx, id)
	}
	return nil
}
