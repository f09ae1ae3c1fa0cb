// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// 叶子错误统一在此定义。
// WARN: 新增错误前请先确认下面已有的错误是否可以复用。
// 命名规则：Err + 相关前缀 + 错误名。
//
// 序列化相关的错误全部不可重试：它们要么是编程错误、要么是协议版本不一致、
// 要么是安全相关的拒绝，重试只会掩盖问题。
var (
	// Type 相关
	ErrUnknownType        = newLedgerError("unknown type", 100, false)
	ErrUnresolvableType   = newLedgerError("unresolvable type", 101, false)
	ErrWhitelistRejected  = newLedgerError("type rejected by whitelist", 102, false)
	ErrSerializerConflict = newLedgerError("serializer already registered", 103, false)

	// Schema 相关
	ErrSchemaConflict = newLedgerError("schema conflict", 200, false)
	ErrSchemaClosure  = newLedgerError("descriptor missing from schema", 201, false)

	// Wire 相关
	ErrMalformedWire    = newLedgerError("malformed wire data", 300, false)
	ErrProtocolVersion  = newLedgerError("unsupported protocol version", 301, false)
	ErrCyclicReference  = newLedgerError("cyclic object reference", 302, false)
	ErrDepthLimitExceed = newLedgerError("nesting depth limit exceeded", 303, false)

	// Parameter 相关
	ErrParameterInvalid = newLedgerError("invalid parameter", 1100, false)

	// General
	ErrOperationNotSupported = newLedgerError("unsupported operation", 3000, false)

	// 不导出：仅用于把未知错误转换为 ledgerError。
	errUnexpected = newLedgerError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*ledgerError)

func WithDetail(detail string) errorOption {
	return func(err *ledgerError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *ledgerError) {
		err.errType = etype
	}
}

type ledgerError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	errType   ErrorType
}

func newLedgerError(msg string, code int32, retriable bool, options ...errorOption) ledgerError {
	err := ledgerError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e ledgerError) code() int32 {
	return e.errCode
}

func (e ledgerError) Error() string {
	return e.msg
}

func (e ledgerError) Detail() string {
	return e.detail
}

func (e ledgerError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(ledgerError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// 多个错误的 cause 定义为最后一个错误。
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
