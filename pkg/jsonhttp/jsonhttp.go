// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jsonhttp provides convenience methods for handling HTTP requests
// and responding with a standard JSON body.
package jsonhttp

import (
	"encoding/json"
	"fmt"
	"net/http"
)

var (
	// DefaultContentTypeHeader is the value of the Content-Type header for
	// all JSON responses.
	DefaultContentTypeHeader = "application/json; charset=utf-8"
)

// StatusResponse is the standard error or status message body.
type StatusResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Respond writes the response with the given status code and a JSON encoded
// body. A nil response body is replaced with a standard status message for
// the code.
func Respond(w http.ResponseWriter, statusCode int, response interface{}) {
	if response == nil {
		response = &StatusResponse{
			Message: http.StatusText(statusCode),
			Code:    statusCode,
		}
	} else {
		switch message := response.(type) {
		case string:
			response = &StatusResponse{
				Message: message,
				Code:    statusCode,
			}
		case error:
			response = &StatusResponse{
				Message: message.Error(),
				Code:    statusCode,
			}
		}
	}

	b, err := json.Marshal(response)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	b = append(b, '\n')

	w.Header().Set("Content-Type", DefaultContentTypeHeader)
	w.WriteHeader(statusCode)
	fmt.Fprint(w, string(b))
}

func OK(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusOK, response)
}

func Created(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusCreated, response)
}

func Accepted(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusAccepted, response)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func BadRequest(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusBadRequest, response)
}

func Unauthorized(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusUnauthorized, response)
}

func Forbidden(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusForbidden, response)
}

func NotFound(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusNotFound, response)
}

func MethodNotAllowed(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusMethodNotAllowed, response)
}

func Conflict(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusConflict, response)
}

func RequestEntityTooLarge(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusRequestEntityTooLarge, response)
}

func UnprocessableEntity(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusUnprocessableEntity, response)
}

func TooManyRequests(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusTooManyRequests, response)
}

func InternalServerError(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusInternalServerError, response)
}

func ServiceUnavailable(w http.ResponseWriter, response interface{}) {
	Respond(w, http.StatusServiceUnavailable, response)
}
