package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
)

// HTTPTriggerRequest is the Functions host envelope around an HTTP request.
type HTTPTriggerRequest struct {
	Data struct {
		Req struct {
			URL             string              `json:"Url"`
			Method          string              `json:"Method"`
			Query           map[string]string   `json:"Query"`
			Headers         map[string][]string `json:"Headers"`
			Params          map[string]string   `json:"Params"`
			Body            string              `json:"Body"`
			IsBase64Encoded bool                `json:"isBase64Encoded"`
		} `json:"req"`
	} `json:"Data"`
	Metadata map[string]any `json:"Metadata"`
}

// HTTPTriggerResponse is the envelope the Functions host expects back.
type HTTPTriggerResponse struct {
	Outputs struct {
		Res struct {
			StatusCode int               `json:"statusCode"`
			Headers    map[string]string `json:"headers"`
			Body       string            `json:"body"`
		} `json:"res"`
	} `json:"Outputs"`
	Logs        []string `json:"Logs,omitempty"`
	ReturnValue any      `json:"ReturnValue,omitempty"`
}

// HandleHttpTrigger unwraps a host envelope, serves it with next and wraps the response.
func (d *Dependencies) HandleHttpTrigger(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var envelope HTTPTriggerRequest
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			slog.Error("failed to decode HTTP trigger envelope", "error", err)
			http.Error(w, "Failed to unmarshal request", http.StatusBadRequest)
			return
		}
		inner := envelope.Data.Req

		innerReq, err := http.NewRequestWithContext(r.Context(), inner.Method, inner.URL, triggerBody(inner.Body, inner.IsBase64Encoded))
		if err != nil {
			slog.Error("failed to create internal request", "method", inner.Method, "url", inner.URL, "error", err)
			http.Error(w, "Failed to create internal request", http.StatusInternalServerError)
			return
		}
		for k, values := range inner.Headers {
			for _, v := range values {
				innerReq.Header.Add(k, v)
			}
		}
		slog.Info("serving wrapped HTTP request", "method", innerReq.Method, "path", innerReq.URL.Path)

		recorder := httptest.NewRecorder()
		next.ServeHTTP(recorder, innerReq)
		result := recorder.Result()
		defer result.Body.Close()
		respBody, _ := io.ReadAll(result.Body)

		var resp HTTPTriggerResponse
		resp.Outputs.Res.StatusCode = result.StatusCode
		resp.Outputs.Res.Headers = make(map[string]string, len(result.Header))
		for k := range result.Header {
			resp.Outputs.Res.Headers[k] = result.Header.Get(k)
		}
		resp.Outputs.Res.Body = string(respBody)

		WriteJSON(w, http.StatusOK, resp)
	}
}

// triggerBody decodes base64 bodies. Some hosts send base64 without setting the flag,
// so a body that decodes cleanly is treated as base64 either way.
func triggerBody(body string, isBase64 bool) io.Reader {
	if body == "" {
		return http.NoBody
	}
	if decoded, err := base64.StdEncoding.DecodeString(body); err == nil {
		return bytes.NewReader(decoded)
	} else if isBase64 {
		slog.Warn("body flagged as base64 but failed to decode", "error", err)
	}
	return bytes.NewReader([]byte(body))
}
