// Package mocks provides test doubles for the doctolib client.
package mocks

import (
	"context"

	doctolib "github.com/sells-group/chronodose-cli/pkg/doctolib"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Booking provides a mock function with given fields: ctx, slug
func (_m *MockClient) Booking(ctx context.Context, slug string) (*doctolib.Booking, error) {
	ret := _m.Called(ctx, slug)

	if len(ret) == 0 {
		panic("no return value specified for Booking")
	}

	var r0 *doctolib.Booking
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*doctolib.Booking, error)); ok {
		return rf(ctx, slug)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*doctolib.Booking)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// Availabilities provides a mock function with given fields: ctx, q
func (_m *MockClient) Availabilities(ctx context.Context, q doctolib.AvailabilityQuery) (*doctolib.AvailabilityResponse, error) {
	ret := _m.Called(ctx, q)

	if len(ret) == 0 {
		panic("no return value specified for Availabilities")
	}

	var r0 *doctolib.AvailabilityResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, doctolib.AvailabilityQuery) (*doctolib.AvailabilityResponse, error)); ok {
		return rf(ctx, q)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*doctolib.AvailabilityResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewSession provides a mock function with given fields:
func (_m *MockClient) NewSession() (doctolib.Session, error) {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for NewSession")
	}

	var r0 doctolib.Session
	var r1 error
	if rf, ok := ret.Get(0).(func() (doctolib.Session, error)); ok {
		return rf()
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(doctolib.Session)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// MockSession is a mock type for the Session interface.
type MockSession struct {
	mock.Mock
}

// CreateAppointment provides a mock function with given fields: ctx, req
func (_m *MockSession) CreateAppointment(ctx context.Context, req doctolib.AppointmentRequest) (*doctolib.AppointmentResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for CreateAppointment")
	}

	var r0 *doctolib.AppointmentResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, doctolib.AppointmentRequest) (*doctolib.AppointmentResponse, error)); ok {
		return rf(ctx, req)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*doctolib.AppointmentResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// Close provides a mock function with given fields:
func (_m *MockSession) Close() {
	_m.Called()
}

// NewMockSession creates a new instance of MockSession. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockSession(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSession {
	m := &MockSession{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
