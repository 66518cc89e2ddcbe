package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "Zion ERIC Backend",
    "description": "Inter-agent query and aggregation API: broadcasts user questions to organization agents and returns ranked answers",
    "version": "1.0"
  },
  "basePath": "/",
  "securityDefinitions": {
    "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
  },
  "paths": {
    "/api/agent/query-businesses": {
      "post": {
        "tags": ["agent"],
        "summary": "Query organization agents",
        "security": [{"BearerAuth": []}],
        "consumes": ["application/json"],
        "produces": ["application/json"],
        "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"type": "object"}}],
        "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "503": {"description": "Service Unavailable"}}
      }
    },
    "/api/agent/chat-with-search": {
      "post": {
        "tags": ["agent"],
        "summary": "Chat with search",
        "security": [{"BearerAuth": []}],
        "consumes": ["application/json"],
        "produces": ["application/json"],
        "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"type": "object"}}],
        "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "503": {"description": "Service Unavailable"}}
      }
    },
    "/api/work/organizations/{id}/eric-settings": {
      "get": {
        "tags": ["settings"],
        "summary": "Get ERIC settings",
        "security": [{"BearerAuth": []}],
        "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
        "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
      },
      "put": {
        "tags": ["settings"],
        "summary": "Update ERIC settings",
        "security": [{"BearerAuth": []}],
        "parameters": [
          {"in": "path", "name": "id", "required": true, "type": "string"},
          {"in": "body", "name": "body", "required": true, "schema": {"type": "object"}}
        ],
        "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
      }
    },
    "/api/agent/debug/eligibility": {
      "get": {
        "tags": ["debug"],
        "summary": "Debug eligibility",
        "parameters": [{"in": "query", "name": "category", "type": "string"}],
        "responses": {"200": {"description": "OK"}}
      }
    }
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
