// Written by hand in the shape of MockGen output.
// Source: github.com/pactsec/agentwire/internal/signing (interfaces: Signer)

// Package mocks is a GoMock package.
package mocks

import (
	reflect "reflect"

	gomock "github.com/golang/mock/gomock"
	ssh "golang.org/x/crypto/ssh"

	agent "github.com/pactsec/agentwire/pkg/agent"
)

// MockSigner is a mock of the Signer interface.
type MockSigner struct {
	ctrl     *gomock.Controller
	recorder *MockSignerMockRecorder
}

// MockSignerMockRecorder is the mock recorder for MockSigner.
type MockSignerMockRecorder struct {
	mock *MockSigner
}

// NewMockSigner creates a new mock instance.
func NewMockSigner(ctrl *gomock.Controller) *MockSigner {
	mock := &MockSigner{ctrl: ctrl}
	mock.recorder = &MockSignerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockSigner) EXPECT() *MockSignerMockRecorder {
	return m.recorder
}

// Public mocks base method.
func (m *MockSigner) Public() ssh.PublicKey {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Public")
	ret0, _ := ret[0].(ssh.PublicKey)
	return ret0
}

// Public indicates an expected call of Public.
func (mr *MockSignerMockRecorder) Public() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Public", reflect.TypeOf((*MockSigner)(nil).Public))
}

// Comment mocks base method.
func (m *MockSigner) Comment() string {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Comment")
	ret0, _ := ret[0].(string)
	return ret0
}

// Comment indicates an expected call of Comment.
func (mr *MockSignerMockRecorder) Comment() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Comment", reflect.TypeOf((*MockSigner)(nil).Comment))
}

// Sign mocks base method.
func (m *MockSigner) Sign(data []byte, flags agent.SignFlags) ([]byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Sign", data, flags)
	ret0, _ := ret[0].([]byte)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Sign indicates an expected call of Sign.
func (mr *MockSignerMockRecorder) Sign(data, flags interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Sign", reflect.TypeOf((*MockSigner)(nil).Sign), data, flags)
}
