// Package server exposes the caseline engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"caseline/internal/board"
	"caseline/internal/domain"
	"caseline/internal/engine"
	"caseline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"legal_hold"`
	Message string         `json:"message" example:"dossier under legal hold"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"reason\":\"coroner inquiry\"}"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Caseline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Caseline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerDossiers(group, cfg.Engine)
	registerTransitions(group, cfg.Engine)
	registerTasks(group, cfg.Engine)
	registerAudit(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// handleError maps engine and store errors onto the envelope. Gate
// refusals keep their code so callers can branch on it.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ge engine.GateError
	if errors.As(err, &ge) {
		return gateError(ge)
	}
	var be board.BlockedError
	if errors.As(err, &be) {
		return newAPIError(http.StatusConflict, "task_blocked", err.Error(), map[string]any{"task_id": be.TaskID})
	}
	if errors.Is(err, repo.ErrNotFound) || errors.Is(err, board.ErrTaskNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "not open"):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case strings.Contains(lowered, "already set"):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "unknown") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func gateError(ge engine.GateError) huma.StatusError {
	switch ge.Code {
	case engine.GateLegalHold:
		details := map[string]any{}
		if ge.HoldReason != "" {
			details["reason"] = ge.HoldReason
		}
		return newAPIError(http.StatusLocked, string(ge.Code), ge.Error(), details)
	case engine.GateOpenTasks:
		return newAPIError(http.StatusConflict, string(ge.Code), ge.Error(), map[string]any{"open_tasks": ge.OpenTasks})
	case engine.GateNoChange:
		return newAPIError(http.StatusConflict, string(ge.Code), ge.Error(), map[string]any{"status": ge.To})
	case engine.GateReasonRequired:
		return newAPIError(http.StatusBadRequest, string(ge.Code), ge.Error(), map[string]any{"from": ge.From, "to": ge.To})
	default:
		return newAPIError(http.StatusUnprocessableEntity, string(engine.GateInvalidTransition), ge.Error(), map[string]any{"from": ge.From, "to": ge.To})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusLocked:
		return "legal_hold"
	case http.StatusUnprocessableEntity:
		return "invalid_transition"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var doc []byte
	docPath := path.Join(basePath, "openapi.json")
	r.Get(docPath, func(w http.ResponseWriter, r *http.Request) {
		if doc == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			doc, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(doc)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Caseline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerDossiers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-dossier",
		Method:        http.MethodPost,
		Path:          "/dossiers",
		Summary:       "Open dossier",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateDossierRequest `json:"body"`
	}) (*struct {
		Body domain.Dossier `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.Ref == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "ref is required", nil)
		}
		opts := engine.DossierCreateOptions{
			Ref:     input.Body.Ref,
			ActorID: principal.ActorID,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		if input.Body.Flow != nil {
			opts.Flow = domain.FlowType(*input.Body.Flow)
		}
		d, err := e.CreateDossier(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Dossier `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-dossiers",
		Method:      http.MethodGet,
		Path:        "/dossiers",
		Summary:     "List dossiers",
	}, func(ctx context.Context, input *struct {
		Flow   string `query:"flow" enum:"local,repatriation,unset" required:"false"`
		Status string `query:"status" enum:"created,in_progress,under_review,completed,closed" required:"false"`
		Limit  int    `query:"limit" required:"false"`
	}) (*struct {
		Body []domain.Dossier `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListDossiers(ctx, repo.DossierFilters{
			Flow:   domain.FlowType(input.Flow),
			Status: domain.Status(input.Status),
			Limit:  input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Dossier `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-dossier",
		Method:      http.MethodGet,
		Path:        "/dossiers/{dossier_id}",
		Summary:     "Get dossier",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DossierID string `path:"dossier_id"`
	}) (*struct {
		Body domain.Dossier `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		d, err := e.Repo.GetDossier(ctx, input.DossierID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Dossier `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-dossier-flow",
		Method:      http.MethodPost,
		Path:        "/dossiers/{dossier_id}/flow",
		Summary:     "Set flow type",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		DossierID string         `path:"dossier_id"`
		Body      SetFlowRequest `json:"body"`
	}) (*struct {
		Body domain.Dossier `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.SetFlow(ctx, input.DossierID, domain.FlowType(input.Body.Flow), principal.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Dossier `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-dossier-history",
		Method:      http.MethodGet,
		Path:        "/dossiers/{dossier_id}/history",
		Summary:     "Status history",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DossierID string `path:"dossier_id"`
	}) (*struct {
		Body []domain.StatusHistoryEvent `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		if _, err := e.Repo.GetDossier(ctx, input.DossierID); err != nil {
			return nil, handleError(err)
		}
		events, err := e.Repo.ListStatusHistory(ctx, input.DossierID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.StatusHistoryEvent `json:"body"`
		}{Body: events}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "seed-dossier",
		Method:      http.MethodPost,
		Path:        "/dossiers/{dossier_id}/seed",
		Summary:     "Seed template tasks for the current phase",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DossierID string `path:"dossier_id"`
	}) (*struct {
		Body SeedResponse `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		created, err := e.Seed(ctx, input.DossierID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SeedResponse `json:"body"`
		}{Body: SeedResponse{Created: created}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "evaluate-dossier",
		Method:      http.MethodPost,
		Path:        "/dossiers/{dossier_id}/evaluate",
		Summary:     "Run the auto-completion evaluator",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DossierID string `path:"dossier_id"`
	}) (*struct {
		Body EvaluateResponse `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		if _, err := e.Repo.GetDossier(ctx, input.DossierID); err != nil {
			return nil, handleError(err)
		}
		completed, errs := e.Evaluate(ctx, input.DossierID)
		resp := EvaluateResponse{Completed: completed}
		for _, evalErr := range errs {
			resp.Errors = append(resp.Errors, evalErr.Error())
		}
		return &struct {
			Body EvaluateResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func registerTransitions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "transition-dossier",
		Method:      http.MethodPost,
		Path:        "/dossiers/{dossier_id}/transition",
		Summary:     "Request a status transition",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusLocked,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		DossierID string            `path:"dossier_id"`
		Body      TransitionRequest `json:"body"`
	}) (*struct {
		Body TransitionResponse `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		target := domain.Status(input.Body.Target)
		if !target.Valid() {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid status %q", input.Body.Target), nil)
		}
		ev, err := e.Transition(ctx, engine.TransitionRequest{
			DossierID:  input.DossierID,
			Target:     target,
			ActorID:    principal.ActorID,
			Privileged: principal.Privileged,
			Reason:     input.Body.Reason,
		})
		if err != nil {
			return nil, handleError(err)
		}
		d, err := e.Repo.GetDossier(ctx, input.DossierID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TransitionResponse `json:"body"`
		}{Body: TransitionResponse{Dossier: d, Event: ev}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "place-hold",
		Method:      http.MethodPost,
		Path:        "/dossiers/{dossier_id}/hold",
		Summary:     "Place legal hold",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		DossierID string           `path:"dossier_id"`
		Body      PlaceHoldRequest `json:"body"`
	}) (*struct {
		Body domain.Dossier `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.PlaceHold(ctx, input.DossierID, input.Body.Reason, principal.ActorID); err != nil {
			return nil, handleError(err)
		}
		d, err := e.Repo.GetDossier(ctx, input.DossierID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Dossier `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "clear-hold",
		Method:      http.MethodDelete,
		Path:        "/dossiers/{dossier_id}/hold",
		Summary:     "Clear legal hold",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DossierID string `path:"dossier_id"`
	}) (*struct {
		Body domain.Dossier `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.ClearHold(ctx, input.DossierID, principal.ActorID); err != nil {
			return nil, handleError(err)
		}
		d, err := e.Repo.GetDossier(ctx, input.DossierID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Dossier `json:"body"`
		}{Body: d}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-dossier-tasks",
		Method:      http.MethodGet,
		Path:        "/dossiers/{dossier_id}/tasks",
		Summary:     "List dossier tasks",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DossierID       string `path:"dossier_id"`
		Column          string `query:"column" enum:"todo,doing,done" required:"false"`
		Type            string `query:"type" required:"false"`
		IncludeArchived bool   `query:"include_archived" required:"false"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		if _, err := e.Repo.GetDossier(ctx, input.DossierID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListTasks(ctx, repo.TaskFilters{
			DossierID:       input.DossierID,
			Column:          domain.Column(input.Column),
			Type:            input.Type,
			IncludeArchived: input.IncludeArchived,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		Loose  bool   `query:"loose" required:"false"`
		Column string `query:"column" enum:"todo,doing,done" required:"false"`
		Limit  int    `query:"limit" required:"false"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListTasks(ctx, repo.TaskFilters{
			LooseOnly: input.Loose,
			Column:    domain.Column(input.Column),
			Limit:     input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		t, err := e.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/move",
		Summary:     "Move task to a column",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		TaskID string          `path:"task_id"`
		Body   MoveTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		b := board.New(board.SQLStore{DB: e.DB, Repo: e.Repo, Audit: e.Audit}, []domain.Task{t})
		if err := b.Move(ctx, t.ID, domain.Column(input.Body.Column), principal.ActorID); err != nil {
			return nil, handleError(err)
		}
		t, err = e.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/complete",
		Summary:     "Complete task",
		Errors: []int{
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		TaskID string              `path:"task_id"`
		Body   CompleteTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		principal, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CompleteTask(ctx, input.TaskID, principal.ActorID, input.Body.Note)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "block-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/block",
		Summary:     "Set or clear the blocked flag",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string           `path:"task_id"`
		Body   BlockTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		reason := input.Body.Reason
		if !input.Body.Blocked {
			reason = nil
		}
		if err := e.Repo.SetTaskBlocked(ctx, input.TaskID, input.Body.Blocked, reason); err != nil {
			return nil, handleError(err)
		}
		t, err := e.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/assign",
		Summary:     "Assign task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string            `path:"task_id"`
		Body   AssignTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.AssignTask(ctx, input.TaskID, input.Body.AssigneeID); err != nil {
			return nil, handleError(err)
		}
		t, err := e.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})
}

func registerAudit(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-audit",
		Method:      http.MethodGet,
		Path:        "/audit",
		Summary:     "List audit entries",
	}, func(ctx context.Context, input *struct {
		DossierID string `query:"dossier_id" required:"false"`
		Action    string `query:"action" required:"false"`
		Cursor    int64  `query:"cursor" required:"false"`
		Limit     int    `query:"limit" required:"false"`
	}) (*struct {
		Body []domain.AuditEntry `json:"body"`
	}, error) {
		if _, authErr := requirePrincipal(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListAudit(ctx, repo.AuditFilters{
			DossierID: input.DossierID,
			Action:    input.Action,
			Cursor:    input.Cursor,
			Limit:     input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.AuditEntry `json:"body"`
		}{Body: items}, nil
	})
}
