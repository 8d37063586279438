package main

import (
	"encoding/json"
	"image/png"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/thebartekbanach/imloader/pkg/decoder"
)

type responseWriter struct {
	w http.ResponseWriter
}

func (w *responseWriter) WriteJSON(code int, value interface{}) {
	result, err := json.Marshal(value)
	if err != nil {
		log.Printf("error ocurred when marshalling response: %s", err)
		w.WriteError(http.StatusInternalServerError, "error ocurred when marshalling response")
		return
	}

	w.w.Header().Set("Content-Type", "application/json")
	w.w.WriteHeader(code)
	w.w.Write(result)
}

func (w *responseWriter) WriteBitmap(bitmap *decoder.Bitmap) {
	w.w.Header().Set("Content-Type", "image/png")
	w.w.WriteHeader(http.StatusOK)
	if err := png.Encode(w.w, bitmap.Image); err != nil {
		log.Printf("error ocurred when encoding image: %s", err)
	}
}

func (w *responseWriter) WriteError(code int, message string) {
	w.w.WriteHeader(code)
	io.Copy(w.w, strings.NewReader(message))
}
