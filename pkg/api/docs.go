package api

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
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    },
    "security": [{"ApiKeyAuth": []}],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/APIResponse"}}
                }
            }
        },
        "/decode": {
            "post": {
                "summary": "Decode and verify an rkm stream",
                "consumes": ["application/octet-stream"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"type": "string", "format": "binary"}}
                ],
                "responses": {
                    "200": {"description": "Map summary", "schema": {"$ref": "#/definitions/MapSummary"}},
                    "413": {"description": "Body too large", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "422": {"description": "Structural, integrity or validation error", "schema": {"$ref": "#/definitions/APIResponse"}}
                }
            }
        },
        "/inspect": {
            "post": {
                "summary": "Report the record layout of an rkm stream",
                "consumes": ["application/octet-stream"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"type": "string", "format": "binary"}}
                ],
                "responses": {
                    "200": {"description": "Record layout", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "422": {"description": "Malformed stream", "schema": {"$ref": "#/definitions/APIResponse"}}
                }
            }
        },
        "/maps": {
            "get": {
                "summary": "List the latest revision of every map",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Revisions", "schema": {"$ref": "#/definitions/APIResponse"}}
                }
            },
            "put": {
                "summary": "Store an rkm stream as a new revision",
                "consumes": ["application/octet-stream"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"type": "string", "format": "binary"}}
                ],
                "responses": {
                    "200": {"description": "Stored or deduplicated revision", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "422": {"description": "Stream does not verify", "schema": {"$ref": "#/definitions/APIResponse"}}
                }
            }
        },
        "/maps/{codename}": {
            "get": {
                "summary": "Download the latest revision of a map",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"in": "path", "name": "codename", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "rkm bytes"},
                    "404": {"description": "Unknown codename", "schema": {"$ref": "#/definitions/APIResponse"}}
                }
            }
        },
        "/maps/{codename}/history": {
            "get": {
                "summary": "List every revision of a map, oldest first",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "codename", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Revisions", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "404": {"description": "Unknown codename", "schema": {"$ref": "#/definitions/APIResponse"}}
                }
            }
        },
        "/revisions/{id}": {
            "get": {
                "summary": "Download a specific revision",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "rkm bytes"},
                    "404": {"description": "Unknown revision", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "500": {"description": "Stored blob is corrupt", "schema": {"$ref": "#/definitions/APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "error": {"type": "string"},
                "kind": {"type": "string"}
            }
        },
        "MapSummary": {
            "type": "object",
            "properties": {
                "codename": {"type": "string"},
                "display_name": {"type": "string"},
                "author": {"type": "string"},
                "territories": {"type": "array", "items": {"type": "object"}},
                "borders": {"type": "array", "items": {"type": "object"}},
                "base_layer": {"type": "object"},
                "text_layer": {"type": "object"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "riskmap API",
	Description:      "Decode, verify and archive .rkm strategy maps.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
