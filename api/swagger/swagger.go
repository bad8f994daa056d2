package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "App Moderation API",
        "description": "Internal dashboard API for reviewing app-store submissions",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Apps", "description": "App submission review"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/apps": {
            "get": {
                "tags": ["Apps"],
                "summary": "List app submissions",
                "parameters": [
                    {"name": "cursor", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "array", "collectionFormat": "multi", "items": {"type": "string", "enum": ["pending", "approved", "rejected", "flagged"]}},
                    {"name": "category", "in": "query", "type": "array", "collectionFormat": "multi", "items": {"type": "string", "enum": ["social", "productivity", "entertainment", "education", "business"]}},
                    {"name": "sortBy", "in": "query", "type": "string", "enum": ["name", "submittedAt", "rating"]},
                    {"name": "sortOrder", "in": "query", "type": "string", "enum": ["asc", "desc"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/apps/{id}": {
            "get": {
                "tags": ["Apps"],
                "summary": "Get one app submission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "App not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Apps"],
                "summary": "Apply a moderation action",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid action", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "App not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ActionRequest": {
            "type": "object",
            "required": ["type"],
            "properties": {
                "type": {"type": "string", "enum": ["approve", "reject", "flag"]},
                "appId": {"type": "string"},
                "moderatorId": {"type": "string"}
            }
        },
        "PageInfo": {
            "type": "object",
            "properties": {
                "hasNextPage": {"type": "boolean"},
                "hasPreviousPage": {"type": "boolean"},
                "nextCursor": {"type": "string"},
                "totalCount": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "object"},
                "message": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
