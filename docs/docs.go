// Package docs holds the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/watchers": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["watchers"],
                "summary": "List watchers",
                "parameters": [
                    {"type": "string", "description": "Owner", "name": "user_id", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.BaseResponse"}}
                }
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["watchers"],
                "summary": "Create watcher",
                "parameters": [
                    {"description": "Watcher", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CreateWatcherRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.BaseResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/watchers/{id}": {
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["watchers"],
                "summary": "Delete watcher",
                "parameters": [
                    {"type": "string", "description": "Watcher ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.BaseResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/watchers/{id}/status": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["watchers"],
                "summary": "Watcher status",
                "parameters": [
                    {"type": "string", "description": "Watcher ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.BaseResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/watchers/{id}/events": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Lifecycle and check history of a watcher, newest first",
                "produces": ["application/json"],
                "tags": ["watchers"],
                "summary": "Watcher events",
                "parameters": [
                    {"type": "string", "description": "Watcher ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Page", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size", "name": "per_page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.BasePaginationResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/check-availability": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Runs a one-off check against a portal and returns every visible slot",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["availability"],
                "summary": "Check availability",
                "parameters": [
                    {"description": "Portal", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CheckAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.BaseResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/portals": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["portals"],
                "summary": "List portals",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.BaseResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.BaseResponse": {
            "type": "object",
            "properties": {"data": {}}
        },
        "models.BasePaginationResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "meta": {"$ref": "#/definitions/models.MetaResponse"}
            }
        },
        "models.MetaResponse": {
            "type": "object",
            "properties": {
                "current_page": {"type": "integer"},
                "last_page": {"type": "integer"},
                "per_page": {"type": "integer"},
                "total": {"type": "integer"}
            }
        },
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "models.CreateWatcherRequest": {
            "type": "object",
            "required": ["user_id"],
            "properties": {
                "user_id": {"type": "string"},
                "task_id": {"type": "string"},
                "portal_url": {"type": "string"},
                "task_type": {"type": "string"},
                "location": {"type": "string"},
                "preferred_dates": {"type": "array", "items": {"type": "string"}},
                "preferred_times": {"type": "array", "items": {"type": "string"}}
            }
        },
        "models.CheckAvailabilityRequest": {
            "type": "object",
            "properties": {
                "portal_url": {"type": "string"},
                "task_type": {"type": "string"},
                "location": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-KEY",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Cita Watcher API",
	Description:      "Watches Spanish government appointment portals and reports matching slots",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
