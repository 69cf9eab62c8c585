// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsonhttp_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tollgate/tollgate/pkg/jsonhttp"
)

func TestRespond(t *testing.T) {
	t.Run("string message", func(t *testing.T) {
		w := httptest.NewRecorder()

		jsonhttp.Respond(w, http.StatusBadRequest, "custom message")

		if v := w.Header().Get("Content-Type"); v != jsonhttp.DefaultContentTypeHeader {
			t.Errorf("got content type %q, want %q", v, jsonhttp.DefaultContentTypeHeader)
		}

		var m *jsonhttp.StatusResponse
		if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
			t.Fatal(err)
		}
		if m.Message != "custom message" {
			t.Errorf("got message %q, want %q", m.Message, "custom message")
		}
		if m.Code != http.StatusBadRequest {
			t.Errorf("got code %d, want %d", m.Code, http.StatusBadRequest)
		}
	})

	t.Run("error message", func(t *testing.T) {
		w := httptest.NewRecorder()

		jsonhttp.Respond(w, http.StatusConflict, errors.New("something failed"))

		var m *jsonhttp.StatusResponse
		if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
			t.Fatal(err)
		}
		if m.Message != "something failed" {
			t.Errorf("got message %q, want %q", m.Message, "something failed")
		}
	})

	t.Run("nil response", func(t *testing.T) {
		w := httptest.NewRecorder()

		jsonhttp.OK(w, nil)

		var m *jsonhttp.StatusResponse
		if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
			t.Fatal(err)
		}
		if m.Message != http.StatusText(http.StatusOK) {
			t.Errorf("got message %q, want %q", m.Message, http.StatusText(http.StatusOK))
		}
	})

	t.Run("custom body", func(t *testing.T) {
		w := httptest.NewRecorder()

		jsonhttp.OK(w, struct {
			Status string `json:"status"`
		}{
			Status: "ok",
		})

		if got, want := w.Body.String(), `{"status":"ok"}`+"\n"; got != want {
			t.Errorf("got body %q, want %q", got, want)
		}
	})
}

func TestMethodHandler(t *testing.T) {
	h := jsonhttp.MethodHandler{
		"POST": http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			jsonhttp.OK(w, nil)
		}),
	}

	t.Run("method allowed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		w := httptest.NewRecorder()

		h.ServeHTTP(w, r)

		if statusCode := w.Result().StatusCode; statusCode != http.StatusOK {
			t.Errorf("got status code %d, want %d", statusCode, http.StatusOK)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()

		h.ServeHTTP(w, r)

		wantCode := http.StatusMethodNotAllowed
		if statusCode := w.Result().StatusCode; statusCode != wantCode {
			t.Errorf("got status code %d, want %d", statusCode, wantCode)
		}

		var m *jsonhttp.StatusResponse
		if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
			t.Errorf("json unmarshal response body: %s", err)
		}
		if m.Code != wantCode {
			t.Errorf("got message code %d, want %d", m.Code, wantCode)
		}
	})
}

func TestNotFoundHandler(t *testing.T) {
	w := httptest.NewRecorder()

	jsonhttp.NotFoundHandler(w, nil)

	wantCode := http.StatusNotFound
	if statusCode := w.Result().StatusCode; statusCode != wantCode {
		t.Errorf("got status code %d, want %d", statusCode, wantCode)
	}

	var m *jsonhttp.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Errorf("json unmarshal response body: %s", err)
	}
	if m.Code != wantCode {
		t.Errorf("got message code %d, want %d", m.Code, wantCode)
	}
}
