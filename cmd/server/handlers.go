package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/thebartekbanach/imloader/pkg/dispatcher"
	"github.com/thebartekbanach/imloader/pkg/filefetcher"
	"github.com/thebartekbanach/imloader/pkg/invalidation"
	"github.com/thebartekbanach/imloader/pkg/loader"
)

type imageInfo struct {
	Key        string `json:"key"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SampleSize int    `json:"sampleSize"`
	SizeKB     int    `json:"sizeKB"`
}

type imageRequest struct {
	URL    string
	Width  int
	Height int
}

func parseImageRequest(r *http.Request) (imageRequest, error) {
	query := r.URL.Query()
	request := imageRequest{URL: query.Get("url")}

	if request.URL == "" {
		return request, errors.New("url query parameter is required")
	}

	var err error
	if request.Width, err = parseDimension(query.Get("width")); err != nil {
		return request, fmt.Errorf("width: %w", err)
	}
	if request.Height, err = parseDimension(query.Get("height")); err != nil {
		return request, fmt.Errorf("height: %w", err)
	}

	return request, nil
}

func parseDimension(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errors.New("must be a non-negative integer")
	}

	return value, nil
}

func handleImageRequest(ctx context.Context, imageLoader *loader.ImageLoader, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		writer := &responseWriter{w}
		if r.Method != http.MethodGet {
			writer.WriteError(http.StatusMethodNotAllowed, "only GET method is allowed")
			return
		}

		request, err := parseImageRequest(r)
		if err != nil {
			writer.WriteError(http.StatusBadRequest, err.Error())
			return
		}

		log.Printf("loading: %s (%dx%d)", request.URL, request.Width, request.Height)
		bitmap, err := imageLoader.Load(ctx, request.URL, request.Width, request.Height)
		if err != nil {
			switch {
			case errors.Is(err, filefetcher.ErrDomainNotAllowed):
				writer.WriteError(http.StatusForbidden, "domain of requested image is not allowed")
			case errors.Is(err, filefetcher.ErrUnsupportedURL):
				writer.WriteError(http.StatusBadRequest, "url is not supported")
			case errors.Is(err, context.DeadlineExceeded):
				writer.WriteError(http.StatusGatewayTimeout, "loading image timed out")
			default:
				writer.WriteError(http.StatusNotFound, "image is unavailable")
			}
			return
		}

		if r.URL.Query().Get("format") == "png" {
			writer.WriteBitmap(bitmap)
			return
		}

		writer.WriteJSON(http.StatusOK, imageInfo{
			Key:        imageLoader.Key(request.URL),
			Width:      bitmap.Width,
			Height:     bitmap.Height,
			SampleSize: bitmap.SampleSize,
			SizeKB:     bitmap.SizeKB(),
		})
	}
}

func handlePrefetchRequest(imageDispatcher *dispatcher.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writer := &responseWriter{w}
		if r.Method != http.MethodPost {
			writer.WriteError(http.StatusMethodNotAllowed, "only POST method is allowed")
			return
		}

		request, err := parseImageRequest(r)
		if err != nil {
			writer.WriteError(http.StatusBadRequest, err.Error())
			return
		}

		id, err := imageDispatcher.Dispatch(dispatcher.Request{
			ID:       uuid.New(),
			TargetID: request.URL,
			URL:      request.URL,
			Width:    request.Width,
			Height:   request.Height,
		})
		if err != nil {
			writer.WriteError(http.StatusServiceUnavailable, "server is shutting down")
			return
		}

		writer.WriteJSON(http.StatusAccepted, map[string]string{"id": id.String()})
	}
}

func isAuthorized(r *http.Request, securityToken string) bool {
	return securityToken == "" || r.Header.Get("Authorization") == fmt.Sprintf("Bearer %s", securityToken)
}

func handleInvalidationRequest(ctx context.Context, invalidationService *invalidation.Service, securityToken string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		writer := &responseWriter{w}
		if r.Method != http.MethodDelete {
			writer.WriteError(http.StatusMethodNotAllowed, "only DELETE method is allowed")
			return
		}

		if !isAuthorized(r, securityToken) {
			writer.WriteError(http.StatusUnauthorized, "access token authorization failed")
			return
		}

		projectName := r.URL.Query().Get("projectName")
		if projectName == "" {
			writer.WriteError(http.StatusBadRequest, "projectName query parameter is required")
			return
		}

		latestCommitHash := r.URL.Query().Get("latestCommitHash")
		if latestCommitHash == "" {
			writer.WriteError(http.StatusBadRequest, "latestCommitHash query parameter is required")
			return
		}

		urls := r.URL.Query()["urls"]
		if len(urls) == 0 {
			writer.WriteError(http.StatusBadRequest, "urls query parameter is required")
			return
		}

		result, err := invalidationService.Invalidate(ctx, projectName, latestCommitHash, urls)
		if err != nil {
			log.Printf("error ocurred when invalidating: %s", err)
			writer.WriteJSON(http.StatusInternalServerError, result)
			return
		}

		writer.WriteJSON(http.StatusOK, result)
	}
}

func handleLatestInvalidationInfoRequest(ctx context.Context, invalidationService *invalidation.Service, securityToken string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		writer := &responseWriter{w}
		if r.Method != http.MethodGet {
			writer.WriteError(http.StatusMethodNotAllowed, "only GET method is allowed")
			return
		}

		if !isAuthorized(r, securityToken) {
			writer.WriteError(http.StatusUnauthorized, "access token authorization failed")
			return
		}

		projectName := r.URL.Query().Get("projectName")
		if projectName == "" {
			writer.WriteError(http.StatusBadRequest, "projectName query parameter is required")
			return
		}

		result, err := invalidationService.GetLatestInvalidation(ctx, projectName)
		if errors.Is(err, invalidation.ErrProjectNotFound) {
			writer.WriteError(http.StatusNotFound, "project has no invalidations")
			return
		} else if err != nil {
			log.Printf("error ocurred when getting latest invalidation: %s", err)
			writer.WriteError(http.StatusInternalServerError, "cannot get latest invalidation")
			return
		}

		writer.WriteJSON(http.StatusOK, result)
	}
}
