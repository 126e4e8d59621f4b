// Package docs registers the governance API description with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/sessions": {
            "post": {
                "tags": ["sessions"],
                "summary": "Create a voting session",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/SessionResponse"}}}
            }
        },
        "/sessions/{session_id}": {
            "get": {
                "tags": ["sessions"],
                "summary": "Get a session with its effective status",
                "parameters": [{"type": "integer", "name": "session_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionResponse"}}}
            }
        },
        "/sessions/{session_id}/results": {
            "get": {
                "tags": ["sessions"],
                "summary": "Ranked results of a session",
                "parameters": [{"type": "integer", "name": "session_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultsResponse"}}}
            }
        },
        "/sessions/{session_id}/commitments": {
            "post": {
                "tags": ["ballots"],
                "summary": "Commit a sealed vote",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "integer", "name": "session_id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CommitVoteRequest"}}
                ],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/sessions/{session_id}/reveals": {
            "post": {
                "tags": ["ballots"],
                "summary": "Reveal a committed vote",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "integer", "name": "session_id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RevealVoteRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "CreateSessionRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "commit_duration": {"type": "integer"},
                "reveal_duration": {"type": "integer"},
                "mode": {"type": "string", "enum": ["standard", "quadratic", "weighted", "ranked"]},
                "min_reputation": {"type": "integer"},
                "quorum_required": {"type": "integer"},
                "encrypted": {"type": "boolean"},
                "auto_execute": {"type": "boolean"},
                "execution_target": {"type": "string"},
                "options": {"type": "array", "items": {"type": "object", "properties": {"option_id": {"type": "integer"}, "description": {"type": "string"}}}}
            }
        },
        "SessionResponse": {
            "type": "object",
            "properties": {
                "session_id": {"type": "integer"},
                "title": {"type": "string"},
                "status": {"type": "string"},
                "effective_status": {"type": "string"},
                "commit_end": {"type": "integer"},
                "reveal_end": {"type": "integer"},
                "total_votes": {"type": "integer"},
                "total_weight": {"type": "integer"},
                "quorum_met": {"type": "boolean"}
            }
        },
        "ResultsResponse": {
            "type": "object",
            "properties": {
                "session_id": {"type": "integer"},
                "status": {"type": "string"},
                "final": {"type": "boolean"},
                "items": {"type": "array", "items": {"type": "object"}}
            }
        },
        "CommitVoteRequest": {
            "type": "object",
            "properties": {
                "digest": {"type": "string", "description": "64 hex characters"},
                "weight": {"type": "integer"},
                "use_delegation": {"type": "boolean"}
            }
        },
        "RevealVoteRequest": {
            "type": "object",
            "properties": {
                "choices": {"type": "array", "items": {"type": "integer"}},
                "weights": {"type": "array", "items": {"type": "integer"}},
                "salt": {"type": "string", "description": "64 hex characters"},
                "signature": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1/governance",
	Schemes:          []string{},
	Title:            "Sealed governance API",
	Description:      "Commit-reveal voting sessions, delegation and the reputation ledger.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
