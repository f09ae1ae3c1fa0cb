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
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码。
// 非 ledgerError 的错误统一归为 unexpected。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	var lerr ledgerError
	if errors.As(err, &lerr) {
		return lerr.code()
	}
	return errUnexpected.code()
}

// CodeName 返回错误码对应的稳定短名，用于日志与监控标签。
func CodeName(err error) string {
	if err == nil {
		return "ok"
	}
	var lerr ledgerError
	if errors.As(err, &lerr) {
		return strings.ReplaceAll(lerr.baseMsg(), " ", "_")
	}
	return "unexpected"
}

func (e ledgerError) baseMsg() string {
	for _, leaf := range leafErrors {
		if leaf.errCode == e.errCode {
			return leaf.msg
		}
	}
	return errUnexpected.msg
}

var leafErrors = []ledgerError{
	ErrUnknownType, ErrUnresolvableType, ErrWhitelistRejected, ErrSerializerConflict,
	ErrSchemaConflict, ErrSchemaClosure,
	ErrMalformedWire, ErrProtocolVersion, ErrCyclicReference, ErrDepthLimitExceed,
	ErrParameterInvalid, ErrOperationNotSupported,
}

func IsRetryableErr(err error) bool {
	var lerr ledgerError
	if errors.As(err, &lerr) {
		return lerr.retriable
	}
	return false
}

func WrapErrAsInputError(err error) error {
	if merr, ok := err.(ledgerError); ok {
		WithErrorType(InputError)(&merr)
		return merr
	}
	return err
}

func GetErrorType(err error) ErrorType {
	if merr, ok := err.(ledgerError); ok {
		return merr.errType
	}

	return SystemError
}

// Type 相关错误封装。
func WrapErrUnknownType(typeName string, msg ...string) error {
	err := wrapFields(ErrUnknownType, value("type", typeName))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrUnresolvableType(typeName string, reason string) error {
	return wrapFieldsWithDesc(ErrUnresolvableType, reason, value("type", typeName))
}

func WrapErrUnresolvableDescriptor(descriptor string, msg ...string) error {
	err := wrapFields(ErrUnresolvableType, value("descriptor", descriptor))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrWhitelistRejected(typeName string) error {
	return WrapErrAsInputError(wrapFields(ErrWhitelistRejected, value("type", typeName)))
}

func WrapErrSerializerConflict(descriptor string, existing, incoming string) error {
	return wrapFields(ErrSerializerConflict,
		value("descriptor", descriptor),
		value("existing", existing),
		value("incoming", incoming),
	)
}

// Schema 相关错误封装。
func WrapErrSchemaConflict(descriptor string, msg ...string) error {
	err := wrapFields(ErrSchemaConflict, value("descriptor", descriptor))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrSchemaClosure(descriptor string) error {
	return WrapErrAsInputError(wrapFields(ErrSchemaClosure, value("descriptor", descriptor)))
}

// Wire 相关错误封装。
func WrapErrMalformedWire(offset int, reason string) error {
	return WrapErrAsInputError(wrapFieldsWithDesc(ErrMalformedWire, reason, value("offset", offset)))
}

func WrapErrMalformedWireValue(reason string, got any) error {
	return WrapErrAsInputError(wrapFieldsWithDesc(ErrMalformedWire, reason, value("got", fmt.Sprintf("%T", got))))
}

func WrapErrProtocolVersion(got, want string) error {
	return wrapFields(ErrProtocolVersion, value("got", got), value("want", want))
}

func WrapErrCyclicReference(typeName string) error {
	return wrapFields(ErrCyclicReference, value("type", typeName))
}

func WrapErrDepthLimitExceed(limit int) error {
	return wrapFields(ErrDepthLimitExceed, value("limit", limit))
}

// Parameter 相关错误封装。
func WrapErrParameterInvalid[T any](expected, actual T, msg ...string) error {
	err := wrapFields(ErrParameterInvalid,
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrParameterInvalidMsg(fmtMsg string, args ...any) error {
	return errors.Wrapf(ErrParameterInvalid, fmtMsg, args...)
}

func WrapErrOperationNotSupported(op string) error {
	return wrapFields(ErrOperationNotSupported, value("operation", op))
}

func wrapFields(err ledgerError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

func wrapFieldsWithDesc(err ledgerError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	err.detail = err.msg
	return err
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}
