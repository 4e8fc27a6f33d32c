package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"github.com/wolfman30/exchange-leads/internal/app/bootstrap"
	appconfig "github.com/wolfman30/exchange-leads/internal/config"
	"github.com/wolfman30/exchange-leads/pkg/logging"
)

var clientIPHeaders = []string{"True-Client-IP", "X-Real-IP", "X-Forwarded-For"}

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	rt, err := bootstrap.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build runtime", "error", err)
		os.Exit(1)
	}
	if rt.RateLimiter != nil {
		go rt.RateLimiter.Run(context.Background())
	}

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, rt.Handler, evt)
	})
}

// handle serves one API Gateway v2 event through the in-process router.
func handle(ctx context.Context, h http.Handler, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	req, err := toRequest(ctx, evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusBadRequest,
			Headers:    map[string]string{"content-type": "application/json"},
			Body:       `{"error":"invalid_json"}`,
		}, nil
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := events.APIGatewayV2HTTPResponse{
		StatusCode: rec.Code,
		Body:       rec.Body.String(),
		Headers:    map[string]string{},
	}
	for key, values := range rec.Header() {
		if len(values) > 0 {
			out.Headers[strings.ToLower(key)] = strings.Join(values, ", ")
		}
	}
	return out, nil
}

func toRequest(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}
	if path == "" {
		path = "/"
	}
	target := path
	if qs := strings.TrimSpace(evt.RawQueryString); qs != "" {
		target += "?" + qs
	}

	body, err := decodeBody(evt)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for key, value := range evt.Headers {
		req.Header.Set(key, value)
	}
	// The router derives the client address from these; only API Gateway's
	// view of the caller is trusted.
	for _, h := range clientIPHeaders {
		req.Header.Del(h)
	}
	if len(evt.Cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(evt.Cookies, "; "))
	}
	if host := strings.TrimSpace(evt.RequestContext.DomainName); host != "" {
		req.Host = host
	}
	if ip := strings.TrimSpace(evt.RequestContext.HTTP.SourceIP); ip != "" {
		req.RemoteAddr = ip + ":0"
		req.Header.Set("X-Real-IP", ip)
	}
	return req, nil
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}
