// Package docs registers the OpenAPI description of the credential service
// with swag so echo-swagger can serve it under /swagger/.
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
        "/auth/hash": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Hash a password",
                "parameters": [
                    {"description": "Password to hash", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/hashRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/hashResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/auth/verify": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Verify a password",
                "parameters": [
                    {"description": "Password and stored hash", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/verifyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/verifyResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [
                    {"description": "Login credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/loginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/admin/tenants/{domain}/migrations": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["migrations"],
                "summary": "Migrate one tenant's plaintext passwords",
                "parameters": [
                    {"type": "string", "description": "Tenant email domain", "name": "domain", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/migrationSummary"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/admin/migrations": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["migrations"],
                "summary": "Queue a migration for the caller's tenant",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/acceptedResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "errorResponse": {"type": "object", "properties": {"error": {"type": "string"}}},
        "hashRequest": {"type": "object", "required": ["password"], "properties": {"password": {"type": "string"}}},
        "hashResponse": {"type": "object", "properties": {"hashedPassword": {"type": "string"}}},
        "verifyRequest": {"type": "object", "required": ["password", "hashedPassword"], "properties": {"password": {"type": "string"}, "hashedPassword": {"type": "string"}}},
        "verifyResponse": {"type": "object", "properties": {"isValid": {"type": "boolean"}}},
        "loginRequest": {"type": "object", "required": ["email", "password"], "properties": {"email": {"type": "string"}, "password": {"type": "string"}}},
        "loginResponse": {"type": "object", "properties": {"token": {"type": "string"}, "user": {"$ref": "#/definitions/identity"}}},
        "identity": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "role": {"type": "string", "enum": ["student", "admin"]},
                "tenant": {"type": "string"},
                "class_id": {"type": "string"},
                "classes": {"type": "array", "items": {"type": "string"}}
            }
        },
        "acceptedResponse": {"type": "object", "properties": {"message": {"type": "string"}, "count": {"type": "integer"}, "tenants": {"type": "array", "items": {"type": "string"}}}},
        "recordFailure": {"type": "object", "properties": {"source": {"type": "string"}, "identifier": {"type": "string"}, "email": {"type": "string"}, "error": {"type": "string"}}},
        "tableFailure": {"type": "object", "properties": {"source": {"type": "string"}, "error": {"type": "string"}}},
        "migrationSummary": {
            "type": "object",
            "properties": {
                "run_id": {"type": "string"},
                "tenant": {"type": "string"},
                "started_at": {"type": "string", "format": "date-time"},
                "finished_at": {"type": "string", "format": "date-time"},
                "processed": {"type": "integer"},
                "succeeded": {"type": "integer"},
                "failed": {"type": "integer"},
                "skipped": {"type": "integer"},
                "cancelled": {"type": "boolean"},
                "errors": {"type": "array", "items": {"$ref": "#/definitions/recordFailure"}},
                "table_failures": {"type": "array", "items": {"$ref": "#/definitions/tableFailure"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Credential Service API",
	Description:      "Multi-tenant password verification and plaintext-to-hash migration.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
