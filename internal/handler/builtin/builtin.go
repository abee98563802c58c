// Package builtin implements a handful of concrete connector handlers
// registered under both the tool and node namespaces: a generic HTTP
// request handler, a Slack message poster, a GitHub issue creator, and a
// Postgres ad-hoc query runner. Grounded one-for-one on
// original_source/app/handlers/{http_request_handler,slack_send_message,
// github_create_issue,postgres_run_query}.py, re-expressed with net/http
// (http_request, slack, github) and jackc/pgx/v5 (postgres) in place of
// httpx/asyncpg. Register with RegisterAll at process start.
package builtin

import (
	"time"

	"github.com/orbitflow/orbitflow/internal/handler"
	"github.com/orbitflow/orbitflow/internal/registry"
)

// elapsedMS reports the milliseconds elapsed since start, for Result.DurationMS.
func elapsedMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

func errResult(start time.Time, err error) *handler.Result {
	return &handler.Result{Status: handler.StatusError, Error: err.Error(), DurationMS: elapsedMS(start)}
}

func okResult(start time.Time, output any) *handler.Result {
	return &handler.Result{Status: handler.StatusSuccess, Output: output, DurationMS: elapsedMS(start)}
}

// RegisterAll registers every builtin handler under both the tool and node
// namespaces, mirroring the original's @register_node/@register_tool
// double-decoration on each handler class.
func RegisterAll(reg *registry.Registry) {
	register(reg, "HTTP_Request.request", handler.Descriptor{
		Kind:      handler.KindBoth,
		UsageMode: "read-write",
	}, func() handler.Handler { return &HTTPRequestHandler{} })

	register(reg, "Slack.post_message", handler.Descriptor{
		Kind:      handler.KindBoth,
		UsageMode: "write",
	}, func() handler.Handler { return &SlackPostMessageHandler{} })

	register(reg, "GitHub.create_issue", handler.Descriptor{
		Kind:      handler.KindBoth,
		UsageMode: "write",
	}, func() handler.Handler { return &GitHubCreateIssueHandler{} })

	register(reg, "Postgres.run_query", handler.Descriptor{
		Kind:      handler.KindBoth,
		UsageMode: "read-write",
	}, func() handler.Handler { return &PostgresRunQueryHandler{} })
}

func register(reg *registry.Registry, name string, desc handler.Descriptor, ctor handler.Constructor) {
	desc.Name = name
	r := handler.Registration{Descriptor: desc, Constructor: ctor}
	reg.RegisterTool(name, r, deriveFromSpec)
	reg.RegisterNode(name, r, deriveFromSpec)
}

// deriveFromSpec builds a fresh instance solely to read its static
// ParameterSpec list; every builtin handler implements handler.Spec.
func deriveFromSpec(h handler.Handler) []handler.ParameterSpec {
	if s, ok := h.(handler.Spec); ok {
		return s.ParameterSpecs()
	}
	return nil
}
