// Command leadctl submits one lead through the form controller against a
// running endpoint. Useful as a deploy smoke test.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/exchange-leads/internal/leadform"
	"github.com/wolfman30/exchange-leads/internal/leads"
	"github.com/wolfman30/exchange-leads/pkg/logging"
)

// Exit codes.
const (
	exitOK        = 0
	exitInvalid   = 1
	exitRejected  = 2
	exitTransient = 3
	exitUsage     = 64
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("leadctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	endpoint := fs.String("endpoint", envOr("LEADCTL_ENDPOINT", "http://localhost:8080"), "base URL of the lead API")
	variant := fs.String("variant", leads.VariantContact.Name, "form variant (contact, consultation, quick)")
	token := fs.String("token", os.Getenv("LEADCTL_TOKEN"), "challenge token to submit")
	phoneFallback := fs.String("support-phone", os.Getenv("SITE_PHONE"), "phone shown in the failure message")
	query := fs.String("query", "", "page query string used for prefill, e.g. projectType=Reverse%20Exchange")
	timeout := fs.Duration("timeout", 20*time.Second, "request timeout")
	logLevel := fs.String("log-level", "error", "log level")

	values := make(map[leads.Field]*string, len(leads.Fields))
	for _, field := range leads.Fields {
		values[field] = fs.String(string(field), "", "lead "+string(field))
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	logger := logging.NewWithWriter(stderr, *logLevel, "text")

	submitter, err := leadform.NewHTTPSubmitter(*endpoint, &http.Client{Timeout: *timeout})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	widget := leadform.NewStaticWidget(*token)
	ctrl, err := leadform.NewController(leadform.Options{
		Variant:     leads.LookupVariant(*variant),
		Widget:      widget,
		Submitter:   submitter,
		RenderDelay: time.Millisecond,
		Phone:       *phoneFallback,
		Logger:      logger,
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	if *query != "" {
		q, err := url.ParseQuery(*query)
		if err != nil {
			fmt.Fprintf(stderr, "invalid -query: %v\n", err)
			return exitUsage
		}
		ctrl.Prefill(q)
	}
	for _, field := range leads.Fields {
		if v := *values[field]; v != "" {
			if err := ctrl.UpdateField(field, v); err != nil {
				fmt.Fprintln(stderr, err)
				return exitUsage
			}
		}
	}

	if err := ctrl.Mount(ctx, "#leadctl"); err != nil {
		fmt.Fprintf(stderr, "challenge widget: %v\n", err)
		return exitTransient
	}

	err = ctrl.Submit(ctx)
	state := ctrl.State()
	printErrors(stdout, state.Errors)
	var endpointErr *leadform.EndpointError
	if len(state.Errors) == 0 && errors.As(err, &endpointErr) {
		printErrors(stdout, endpointErr.Fields)
	}
	if state.Message != "" {
		fmt.Fprintln(stdout, state.Message)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, leadform.ErrInvalidDraft) || errors.Is(err, leadform.ErrNoToken) {
		return exitInvalid
	}
	var endpointErr *leadform.EndpointError
	if errors.As(err, &endpointErr) && endpointErr.StatusCode < http.StatusInternalServerError {
		return exitRejected
	}
	return exitTransient
}

func printErrors(w io.Writer, errs leads.FieldErrors) {
	if len(errs) == 0 {
		return
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "%s: %s\n", f, errs[leads.Field(f)])
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
