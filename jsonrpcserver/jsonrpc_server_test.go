package jsonrpcserver

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type dummyStruct struct {
	Field int `json:"field"`
}

func TestHandler_ServeHTTP(t *testing.T) {
	var (
		errorArg = -1
		errorOut = errors.New("custom error") //nolint:goerr113
	)
	handlerMethod := func(ctx context.Context, arg1 int) (dummyStruct, error) {
		if arg1 == errorArg {
			return dummyStruct{}, errorOut
		}
		return dummyStruct{arg1}, nil
	}

	handler := NewHandler(Methods{
		"function": Method(handlerMethod),
	})

	testCases := map[string]struct {
		requestBody      string
		expectedResponse string
	}{
		"success": {
			requestBody:      `{"jsonrpc":"2.0","id":1,"method":"function","params":[1]}`,
			expectedResponse: `{"jsonrpc":"2.0","id":1,"result":{"field":1}}`,
		},
		"error": {
			requestBody:      `{"jsonrpc":"2.0","id":1,"method":"function","params":[-1]}`,
			expectedResponse: `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"custom error"}}`,
		},
		"invalid json": {
			requestBody:      `{"jsonrpc":"2.0","id":1,"method":"function","params":[1]`,
			expectedResponse: `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"unexpected EOF"}}`,
		},
		"method not found": {
			requestBody:      `{"jsonrpc":"2.0","id":1,"method":"not_found","params":[1]}`,
			expectedResponse: `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`,
		},
		"missing params": {
			requestBody:      `{"jsonrpc":"2.0","id":1,"method":"function","params":[]}`,
			expectedResponse: `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"missing argument"}}`,
		},
		"too many params": {
			requestBody:      `{"jsonrpc":"2.0","id":1,"method":"function","params":[1,2]}`,
			expectedResponse: `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"too many arguments"}}`,
		},
		"invalid params type": {
			requestBody:      `{"jsonrpc":"2.0","id":1,"method":"function","params":["1"]}`,
			expectedResponse: `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"json: cannot unmarshal string into Go value of type int"}}`,
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			body := bytes.NewReader([]byte(testCase.requestBody))
			request, err := http.NewRequest(http.MethodPost, "/", body)
			require.NoError(t, err)

			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, request)
			require.Equal(t, http.StatusOK, rr.Code)

			require.JSONEq(t, testCase.expectedResponse, rr.Body.String())
		})
	}
}

func TestHandler_Origin(t *testing.T) {
	handler := NewHandler(Methods{
		"echo_origin": Method0(func(ctx context.Context) (string, error) {
			return GetOrigin(ctx), nil
		}),
	})

	body := bytes.NewReader([]byte(`{"jsonrpc":"2.0","id":1,"method":"echo_origin","params":[]}`))
	request, err := http.NewRequest(http.MethodPost, "/", body)
	require.NoError(t, err)
	request.Header.Set("x-dexray-origin", "wallet-app")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, request)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":"wallet-app"}`, rr.Body.String())

	tooLong := bytes.Repeat([]byte("a"), 256)
	body = bytes.NewReader([]byte(`{"jsonrpc":"2.0","id":1,"method":"echo_origin","params":[]}`))
	request, err = http.NewRequest(http.MethodPost, "/", body)
	require.NoError(t, err)
	request.Header.Set("x-dexray-origin", string(tooLong))

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, request)
	require.JSONEq(t, `{"jsonrpc":"2.0","id":1,"error":{"code":-32600,"message":"x-dexray-origin header is too long"}}`, rr.Body.String())
}
