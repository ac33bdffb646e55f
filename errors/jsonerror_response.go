/*

Copyright 2022 Red Hat Inc.
SPDX-License-Identifier: Apache-2.0

*/
package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// Error is the JSON body of every failed API call.
type Error struct {
	Msg  interface{} `json:"message"`
	Code int         `json:"code"`
}

// JSONError writes err, which may be an error, a string or any JSON value,
// with the given status code.
func JSONError(w http.ResponseWriter, r *http.Request, err interface{}, code int) {
	if e, ok := err.(error); ok {
		err = e.Error()
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	render.Status(r, code)
	render.JSON(w, r, Error{Msg: err, Code: code})
}

// BadRequestError returns a 400 json response
func BadRequestError(w http.ResponseWriter, r *http.Request, err interface{}) {
	JSONError(w, r, err, http.StatusBadRequest)
}

func UnauthorizedError(w http.ResponseWriter, r *http.Request, err interface{}) {
	JSONError(w, r, err, http.StatusUnauthorized)
}

func NotFoundError(w http.ResponseWriter, r *http.Request, err interface{}) {
	JSONError(w, r, err, http.StatusNotFound)
}

// NotReadyError answers a download of a proposal that has not completed.
func NotReadyError(w http.ResponseWriter, r *http.Request, err interface{}) {
	JSONError(w, r, err, http.StatusNotAcceptable)
}

// InternalServerError returns a 500 json response
func InternalServerError(w http.ResponseWriter, r *http.Request, err interface{}) {
	JSONError(w, r, err, http.StatusInternalServerError)
}
