package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"dealflow/internal/domain"
	"dealflow/internal/pipeline"
	"dealflow/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Pipeline *pipeline.Pipeline
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"invalid_transition"`
	Message string         `json:"message" example:"invalid stage transition quoting -> delivered"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the dealflow API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Pipeline.Repo))
	hcfg := huma.DefaultConfig("Dealflow API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerProjects(group, cfg.Pipeline)
	registerStageActions(group, cfg.Pipeline)
	registerEvents(group, cfg.Pipeline)
	registerStats(group, cfg.Pipeline)
	registerAPIKeys(group, cfg.Pipeline)
	registerWebhooks(group, cfg.Pipeline)
	registerDevAuth(group, cfg.Auth)
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

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var it *pipeline.InvalidTransitionError
	if errors.As(err, &it) {
		return newAPIError(http.StatusConflict, "invalid_transition", err.Error(),
			map[string]any{"from": it.From, "to": it.To})
	}
	var ce *pipeline.CollaboratorError
	if errors.As(err, &ce) {
		return newAPIError(http.StatusBadGateway, "collaborator_unavailable", err.Error(),
			map[string]any{"collaborator": ce.Name})
	}
	switch {
	case errors.Is(err, pipeline.ErrPriceLocked):
		return newAPIError(http.StatusConflict, "price_locked", err.Error(), nil)
	case errors.Is(err, pipeline.ErrNotPaid):
		return newAPIError(http.StatusConflict, "payment_required", err.Error(), nil)
	case errors.Is(err, pipeline.ErrRejected):
		return newAPIError(http.StatusConflict, "rejected", err.Error(), nil)
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required") || strings.Contains(lowered, "missing") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// resolveProject accepts a numeric ID or a reference string in the path.
func resolveProject(ctx context.Context, p *pipeline.Pipeline, idOrRef string) (domain.Project, error) {
	if id, err := strconv.ParseInt(idOrRef, 10, 64); err == nil {
		return p.Repo.GetProject(ctx, id)
	}
	return p.Repo.GetProjectByReference(ctx, idOrRef)
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Dealflow API Docs</title>
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

func registerProjects(api huma.API, p *pipeline.Pipeline) {
	huma.Register(api, huma.Operation{
		OperationID:   "intake-lead",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Intake a new lead",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body IntakeRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if authErr := requireRole(ctx, "operator"); authErr != nil {
			return nil, authErr
		}
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		proj, err := p.Intake(ctx, pipeline.NewLead{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			ClientName:  input.Body.ClientName,
			Budget:      input.Body.Budget,
			Platform:    input.Body.Platform,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: proj}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Stage    string `query:"stage"`
		Platform string `query:"platform"`
		Rejected *bool  `query:"rejected"`
		Limit    int    `query:"limit" default:"50"`
		Cursor   int64  `query:"cursor"`
	}) (*struct {
		Body paginatedProjects `json:"body"`
	}, error) {
		if authErr := requireRole(ctx, "viewer"); authErr != nil {
			return nil, authErr
		}
		stage := domain.Stage(input.Stage)
		if input.Stage != "" && !stage.Valid() {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid stage filter", nil)
		}
		limit := normalizeLimit(input.Limit)
		items, err := p.Repo.ListProjects(ctx, repo.ProjectFilters{
			Stage:    stage,
			Platform: input.Platform,
			Rejected: input.Rejected,
			Limit:    limit,
			CursorID: input.Cursor,
		})
		if err != nil {
			return nil, handleError(err)
		}
		var next int64
		if len(items) == limit {
			next = items[len(items)-1].ID
		}
		return &struct {
			Body paginatedProjects `json:"body"`
		}{Body: paginatedProjects{Items: nonNilProjects(items), NextCursor: next}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project}",
		Summary:     "Get project by ID or reference",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Project string `path:"project"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if authErr := requireRole(ctx, "viewer"); authErr != nil {
			return nil, authErr
		}
		proj, err := resolveProject(ctx, p, input.Project)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: proj}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-events",
		Method:      http.MethodGet,
		Path:        "/projects/{project}/events",
		Summary:     "Project event log",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Project string `path:"project"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		if authErr := requireRole(ctx, "viewer"); authErr != nil {
			return nil, authErr
		}
		proj, err := resolveProject(ctx, p, input.Project)
		if err != nil {
			return nil, handleError(err)
		}
		events, err := p.Repo.EventsForProject(ctx, proj.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: nonNilEvents(events)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-clarifications",
		Method:      http.MethodGet,
		Path:        "/projects/{project}/clarifications",
		Summary:     "Clarification questions and answers",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Project string `path:"project"`
	}) (*struct {
		Body []domain.Clarification `json:"body"`
	}, error) {
		if authErr := requireRole(ctx, "viewer"); authErr != nil {
			return nil, authErr
		}
		proj, err := resolveProject(ctx, p, input.Project)
		if err != nil {
			return nil, handleError(err)
		}
		items, err := p.Repo.ListClarifications(ctx, proj.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Clarification `json:"body"`
		}{Body: nonNilClarifications(items)}, nil
	})
}

// stageAction registers one POST /projects/{project}/<name> endpoint backed
// by a pipeline call.
func stageAction[B any](api huma.API, p *pipeline.Pipeline, name, summary string,
	call func(ctx context.Context, id int64, body B) (domain.Project, error)) {
	huma.Register(api, huma.Operation{
		OperationID: name + "-project",
		Method:      http.MethodPost,
		Path:        "/projects/{project}/" + name,
		Summary:     summary,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusBadGateway,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Project string `path:"project"`
		Body    B      `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if authErr := requireRole(ctx, "operator"); authErr != nil {
			return nil, authErr
		}
		proj, err := resolveProject(ctx, p, input.Project)
		if err != nil {
			return nil, handleError(err)
		}
		proj, err = call(ctx, proj.ID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: proj}, nil
	})
}

func registerStageActions(api huma.API, p *pipeline.Pipeline) {
	stageAction(api, p, "vet", "Run the profitability gate",
		func(ctx context.Context, id int64, body VetRequest) (domain.Project, error) {
			return p.Vet(ctx, id, domain.Complexity(body.Complexity))
		})
	stageAction(api, p, "clarify", "Ask the clarifier about the lead",
		func(ctx context.Context, id int64, _ struct{}) (domain.Project, error) {
			return p.Clarify(ctx, id)
		})
	stageAction(api, p, "answers", "Record client answers",
		func(ctx context.Context, id int64, body AnswersRequest) (domain.Project, error) {
			answers := make(map[int64]string, len(body.Answers))
			for k, v := range body.Answers {
				cid, err := strconv.ParseInt(k, 10, 64)
				if err != nil {
					return domain.Project{}, fmt.Errorf("invalid clarification id %q", k)
				}
				answers[cid] = v
			}
			return p.AnswerQuestions(ctx, id, answers)
		})
	stageAction(api, p, "counter-offer", "Accept a negotiated counter-offer",
		func(ctx context.Context, id int64, body CounterOfferRequest) (domain.Project, error) {
			return p.AcceptCounterOffer(ctx, id, body.Price)
		})
	stageAction(api, p, "specify", "Generate the project specification",
		func(ctx context.Context, id int64, _ struct{}) (domain.Project, error) {
			return p.Specify(ctx, id)
		})
	stageAction(api, p, "approve", "Approve the spec and lock the price",
		func(ctx context.Context, id int64, body ApproveRequest) (domain.Project, error) {
			return p.ApproveSpec(ctx, id, body.Price)
		})
	stageAction(api, p, "confirm-payment", "Manually confirm payment",
		func(ctx context.Context, id int64, body ConfirmPaymentRequest) (domain.Project, error) {
			method := body.Method
			if method == "" {
				method = "manual"
			}
			return p.ConfirmPayment(ctx, id, body.TxRef, method)
		})
	stageAction(api, p, "execute", "Run the code generator",
		func(ctx context.Context, id int64, _ struct{}) (domain.Project, error) {
			return p.Execute(ctx, id)
		})
	stageAction(api, p, "deliver", "Deliver the work",
		func(ctx context.Context, id int64, _ struct{}) (domain.Project, error) {
			return p.Deliver(ctx, id)
		})
	stageAction(api, p, "close", "Close the project",
		func(ctx context.Context, id int64, _ struct{}) (domain.Project, error) {
			return p.Close(ctx, id)
		})
	stageAction(api, p, "process", "Advance as far as guards allow",
		func(ctx context.Context, id int64, _ struct{}) (domain.Project, error) {
			return p.Process(ctx, id)
		})
}

func registerEvents(api huma.API, p *pipeline.Pipeline) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Latest events across projects",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Limit  int    `query:"limit" default:"50"`
		Action string `query:"action"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		if authErr := requireRole(ctx, "viewer"); authErr != nil {
			return nil, authErr
		}
		events, err := p.Repo.LatestEvents(ctx, normalizeLimit(input.Limit), input.Action)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: nonNilEvents(events)}, nil
	})
}

func registerStats(api huma.API, p *pipeline.Pipeline) {
	huma.Register(api, huma.Operation{
		OperationID: "stats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Pipeline statistics",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Stats `json:"body"`
	}, error) {
		if authErr := requireRole(ctx, "viewer"); authErr != nil {
			return nil, authErr
		}
		stats, err := p.Repo.Stats(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Stats `json:"body"`
		}{Body: stats}, nil
	})
}

func registerAPIKeys(api huma.API, p *pipeline.Pipeline) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/apikeys",
		Summary:       "Create API key",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body CreateAPIKeyRequest `json:"body"`
	}) (*struct {
		Body CreateAPIKeyResponse `json:"body"`
	}, error) {
		if authErr := requireRole(ctx, "admin"); authErr != nil {
			return nil, authErr
		}
		plaintext, key, err := MintAPIKey(ctx, p.Repo, input.Body.Name, input.Body.Role)
		if err != nil {
			if strings.Contains(err.Error(), "invalid role") {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
			}
			return nil, handleError(err)
		}
		return &struct {
			Body CreateAPIKeyResponse `json:"body"`
		}{Body: CreateAPIKeyResponse{ID: key.ID, Name: key.Name, Role: key.Role, Key: plaintext}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/apikeys",
		Summary:     "List API keys",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []APIKeyResponse `json:"body"`
	}, error) {
		if authErr := requireRole(ctx, "admin"); authErr != nil {
			return nil, authErr
		}
		keys, err := p.Repo.ListAPIKeys(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]APIKeyResponse, 0, len(keys))
		for _, k := range keys {
			res = append(res, apiKeyResponse(k))
		}
		return &struct {
			Body []APIKeyResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-api-key",
		Method:      http.MethodDelete,
		Path:        "/apikeys/{id}",
		Summary:     "Delete API key",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if authErr := requireRole(ctx, "admin"); authErr != nil {
			return nil, authErr
		}
		if err := p.Repo.DeleteAPIKey(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerWebhooks(api huma.API, p *pipeline.Pipeline) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-webhook",
		Method:        http.MethodPost,
		Path:          "/webhooks",
		Summary:       "Register an event webhook",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body CreateWebhookRequest `json:"body"`
	}) (*struct {
		Body WebhookResponse `json:"body"`
	}, error) {
		if authErr := requireRole(ctx, "admin"); authErr != nil {
			return nil, authErr
		}
		if strings.TrimSpace(input.Body.URL) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "url is required", nil)
		}
		cursor, err := p.Repo.LatestEventID(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		hook := domain.Webhook{
			ID:        uuid.New().String(),
			URL:       input.Body.URL,
			Secret:    input.Body.Secret,
			Cursor:    cursor,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := p.Repo.InsertWebhook(ctx, hook); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WebhookResponse `json:"body"`
		}{Body: webhookResponse(hook)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-webhooks",
		Method:      http.MethodGet,
		Path:        "/webhooks",
		Summary:     "List webhooks",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []WebhookResponse `json:"body"`
	}, error) {
		if authErr := requireRole(ctx, "admin"); authErr != nil {
			return nil, authErr
		}
		hooks, err := p.Repo.ListWebhooks(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]WebhookResponse, 0, len(hooks))
		for _, h := range hooks {
			res = append(res, webhookResponse(h))
		}
		return &struct {
			Body []WebhookResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-webhook",
		Method:      http.MethodDelete,
		Path:        "/webhooks/{id}",
		Summary:     "Delete webhook",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if authErr := requireRole(ctx, "admin"); authErr != nil {
			return nil, authErr
		}
		if err := p.Repo.DeleteWebhook(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	if !authCfg.DevLogin {
		return
	}
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		subject := strings.TrimSpace(input.Body.Subject)
		if subject == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "subject is required", nil)
		}
		role := input.Body.Role
		if role == "" {
			role = "operator"
		}
		if _, ok := roleRank[role]; !ok {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid role", nil)
		}
		token, err := signToken(authCfg.JWTSecret, subject, role, 24*time.Hour)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
