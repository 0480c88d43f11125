// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error. Codes follow the
// pattern area.op.reason; the trailing reason drives classification.
type Code string

const (
	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"
	CodeConfigKeyringResolveFailed Code = "config.keyring.resolve.failure"

	CodeStoreConnectionUnavailable Code = "store.connection.unavailable"
	CodeStoreDatabaseFailure       Code = "store.database.failure"
	CodeStoreBackendUnsupported    Code = "store.backend.invalid"
	CodeStoreInvalidInput          Code = "store.input.invalid"
	CodeStoreConflict              Code = "store.node.conflict"
	CodeStoreTxFailure             Code = "store.tx.failure"

	CodeQueryIdentifierInvalid Code = "query.identifier.invalid"
	CodeQueryArgsInvalid       Code = "query.args.invalid"
	CodeQueryKindUnsupported   Code = "query.kind.invalid"

	CodeEntityKeyGenerateFailure Code = "entity.key.generate.failure"
	CodeEntityKeyLengthInvalid   Code = "entity.key.length.invalid"

	CodeOntologyObjectNotFound         Code = "ontology.object.not_found"
	CodeOntologyClassNotFound          Code = "ontology.class.not_found"
	CodeOntologyClassConflict          Code = "ontology.class.conflict"
	CodeOntologyObjectValidateInvalid  Code = "ontology.object.validate.invalid"
	CodeOntologyHierarchyCycleConflict Code = "ontology.hierarchy.cycle.conflict"
	CodeOntologyInputInvalid           Code = "ontology.input.invalid"

	CodeSnapshotParseInvalidFormat Code = "snapshot.parse.invalid_format"
	CodeSnapshotImportFailure      Code = "snapshot.import.failure"

	CodeEventsConnectFailure Code = "events.connect.failure"
	CodeEventsPublishFailure Code = "events.publish.failure"

	CodeSecretStoreFailure    Code = "secret.store.failure"
	CodeSecretNotFound        Code = "secret.lookup.not_found"
	CodeSecretResolveFailure  Code = "secret.resolve.failure"
	CodeSecretInvalidInput    Code = "secret.input.invalid"
	CodeSecretKeyringDisabled Code = "secret.keyring.unavailable"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerEntityNotFound  Code = "server.entity.not_found"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"
	CodeServerRateLimited     Code = "server.rate.exceeded"
	CodeServerNotImplemented  Code = "server.not_implemented"
	CodeServerInternalFailure Code = "server.internal.failure"

	CodeCLIInputInvalid   Code = "cli.input.invalid"
	CodeCLISetupFailure   Code = "cli.setup.failure"
	CodeCLIDoctorFailure  Code = "cli.doctor.failure"
	CodeCLIRequestFailure Code = "cli.request.failure"
	CodeCLIEntityNotFound Code = "cli.entity.not_found"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// FieldValue creates a structured error field.
func FieldValue(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// Field is kept as the primary helper for terse callsites.
func Field(key string, value any) Attr {
	return FieldValue(key, value)
}

func FieldURI(value string) Attr {
	return Field("uri", value)
}

func FieldClass(value string) Attr {
	return Field("class_uri", value)
}

func FieldBackend(value string) Attr {
	return Field("backend", value)
}

func FieldQueryKind(value string) Attr {
	return Field("query_kind", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain without changing
// its code. Plain errors are promoted to an internal failure.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

// CodeOf returns the innermost code in the chain, or "" for plain errors.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	switch code := oopsErr.Code().(type) {
	case Code:
		return code
	case string:
		return Code(code)
	case nil:
		return ""
	default:
		return Code(fmt.Sprintf("%v", code))
	}
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsConflict(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

func IsInvalidInput(err error) bool {
	switch reason(CodeOf(err)) {
	case "invalid", "invalid_input", "invalid_value", "invalid_format":
		return true
	}
	return false
}

// IsUnavailable reports a transport-level failure of a backing service.
func IsUnavailable(err error) bool {
	return reason(CodeOf(err)) == "unavailable"
}

func IsRateLimited(err error) bool {
	return reason(CodeOf(err)) == "exceeded"
}

func HTTPStatus(err error) int {
	switch {
	case HasCode(err, CodeServerNotImplemented):
		return http.StatusNotImplemented
	case IsNotFound(err):
		return http.StatusNotFound
	case IsConflict(err):
		return http.StatusConflict
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsRateLimited(err):
		return http.StatusTooManyRequests
	case IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	joined := stderrors.Join(errs...)
	if joined == nil {
		return nil
	}
	return oops.Code(CodeServerInternalFailure).Wrap(joined)
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
