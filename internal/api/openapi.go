package api

import (
	"github.com/JaimeStill/notary/internal/config"
	"github.com/JaimeStill/notary/internal/picc"
	"github.com/JaimeStill/notary/pkg/openapi"
	"github.com/JaimeStill/notary/pkg/signature"
)

const (
	digestPattern = "^[0-9a-f]{64}$"
	refPattern    = "^([0-9a-f]{64}|[0-9a-f]{16})$"
)

// NewSpec describes the API module's endpoints.
func NewSpec(cfg *config.Config) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.OpenAPI.ServerURLOr(cfg.API.BasePath))

	spec.Components.AddSchemas(schemas())
	failure := openapi.ResponseJSON("Submission rejected", "Envelope")
	spec.Components.AddResponses(map[string]*openapi.Response{
		"Failure":   failure,
		"Throttled": failure.WithHeader("Retry-After", "Seconds until a retry may succeed", "integer"),
	})

	spec.Paths["/picc/notarize"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Notarize a decision",
			Description: "Records a signed PICC decision once per content hash.",
			Tags:        []string{"Notarization"},
			Parameters: []*openapi.Parameter{
				openapi.HeaderParam(signature.Header, "HMAC-SHA256 of the raw body: sha256=<64 hex>", "^sha256=[0-9a-f]{64}$"),
			},
			RequestBody: openapi.RequestBodyJSON("Payload", true),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Already recorded", "Envelope"),
				201: openapi.ResponseJSON("Recorded", "Envelope"),
				400: openapi.ResponseRef("Failure"),
				401: openapi.ResponseRef("Failure"),
				413: openapi.ResponseRef("Failure"),
				415: openapi.ResponseRef("Failure"),
				422: openapi.ResponseRef("Failure"),
				429: openapi.ResponseRef("Throttled"),
				502: openapi.ResponseRef("Failure"),
				503: openapi.ResponseRef("Failure"),
				504: openapi.ResponseRef("Failure"),
			},
		},
	}

	spec.Paths["/decisions"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List decisions",
			Tags:    []string{"Decisions"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("page", "integer", "Page number", false),
				openapi.QueryParam("page_size", "integer", "Results per page", false),
				openapi.QueryParam("search", "string", "Match question or hash", false),
				openapi.QueryParam("sort", "string", "Sort fields", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Page of decisions", "DecisionPage"),
				501: openapi.ResponseRef("NotImplemented"),
				503: openapi.ResponseRef("ServiceUnavailable"),
			},
		},
	}

	spec.Paths["/decisions/{hash}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Find a decision by hash or label",
			Tags:       []string{"Decisions"},
			Parameters: []*openapi.Parameter{openapi.PathParam("hash", "Content hash or 16-character label", refPattern)},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Decision", "Decision"),
				400: openapi.ResponseRef("BadRequest"),
				404: openapi.ResponseRef("NotFound"),
				503: openapi.ResponseRef("ServiceUnavailable"),
			},
		},
	}

	spec.Paths["/decisions/{hash}/canonical"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Fetch the archived canonical form",
			Tags:       []string{"Decisions"},
			Parameters: []*openapi.Parameter{openapi.PathParam("hash", "Content hash", digestPattern)},
			Responses: map[int]*openapi.Response{
				200: {Description: "Canonical JSON bytes", Content: map[string]*openapi.MediaType{"application/json": {}}},
				400: openapi.ResponseRef("BadRequest"),
				404: openapi.ResponseRef("NotFound"),
				501: openapi.ResponseRef("NotImplemented"),
			},
		},
	}

	return spec
}

func schemas() map[string]*openapi.Schema {
	nonceMin, nonceMax := picc.NonceMin, picc.NonceMax
	str := func(desc string) *openapi.Schema {
		return &openapi.Schema{Type: "string", Description: desc}
	}

	return map[string]*openapi.Schema{
		"Payload": {
			Type:        "object",
			Description: "A " + picc.SchemaVersion + " decision with replay fields.",
			Required:    []string{"schema_version", "ts", "nonce", "decision"},
			Properties: map[string]*openapi.Schema{
				"schema_version": {Type: "string", Enum: []any{picc.SchemaVersion}},
				"ts":             {Type: "integer", Description: "Unix seconds"},
				"nonce":          {Type: "string", MinLength: &nonceMin, MaxLength: &nonceMax},
				"decision":       {Type: "object"},
				"metadata":       {Type: "object"},
			},
		},
		"Envelope": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"ok":           {Type: "boolean"},
				"code":         str("Outcome code"),
				"issue_url":    str("Record URL"),
				"issue_number": {Type: "integer"},
				"hash":         str("SHA-256 of the canonical decision"),
				"msg":          str("Failure detail"),
			},
		},
		"Decision": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"issue_number": {Type: "integer"},
				"issue_url":    str("Record URL"),
				"hash":         str("SHA-256 of the canonical decision"),
				"label":        str("First 16 hash characters"),
				"question":     str("Decision question"),
				"confidence":   str("Confidence level"),
				"created_at":   {Type: "string", Format: "date-time"},
			},
		},
		"DecisionPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        {Type: "array", Items: openapi.SchemaRef("Decision")},
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
	}
}
