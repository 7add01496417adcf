// Package docs holds the OpenAPI description served at /swagger.
//
// Regenerate with: swag init -g cmd/server/main.go --parseInternal
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
        "/auth/signup": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.signupRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/signin": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign in",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.signinRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.authResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/forgot-password": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Request a password reset",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.forgotPasswordRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.messageResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/reset-password": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Reset password",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.resetPasswordRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.messageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/add-device": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Add a device to the current user",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.addDeviceRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.userMessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/auth/logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "List auth audit log",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.AuthLogView"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/devices": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "List visible devices",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Device"}}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Provision a device",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.createDeviceRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Device"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/devices/public": {
            "get": {
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "List all devices (agent facing)",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Device"}}}
                }
            }
        },
        "/devices/assign": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Assign a device to an admin",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.assignDeviceRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.assignDeviceResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/devices/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Get a device by device id",
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Device"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Update a device",
                "parameters": [
                    {"type": "string", "in": "path", "name": "id", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.updateDeviceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Device"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Delete a device",
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.messageResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/telemetry/{kind}": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["telemetry"],
                "summary": "Ingest a telemetry record",
                "parameters": [
                    {"type": "string", "in": "path", "name": "kind", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.telemetryRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/handler.acceptedResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/telemetry/{kind}/batch": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["telemetry"],
                "summary": "Ingest a batch of telemetry records",
                "parameters": [
                    {"type": "string", "in": "path", "name": "kind", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"type": "array", "items": {"$ref": "#/definitions/handler.telemetryRequest"}}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/handler.acceptedResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/telemetry/{kind}/device/{deviceId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["telemetry"],
                "summary": "List a device's telemetry",
                "parameters": [
                    {"type": "string", "in": "path", "name": "kind", "required": true},
                    {"type": "string", "in": "path", "name": "deviceId", "required": true},
                    {"type": "string", "in": "query", "name": "from"},
                    {"type": "string", "in": "query", "name": "to"},
                    {"type": "integer", "in": "query", "name": "page"},
                    {"type": "integer", "in": "query", "name": "limit"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.telemetryListResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/telemetry/{kind}/device/{deviceId}/latest": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["telemetry"],
                "summary": "Get a device's newest record",
                "parameters": [
                    {"type": "string", "in": "path", "name": "kind", "required": true},
                    {"type": "string", "in": "path", "name": "deviceId", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/telemetry/{kind}/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["telemetry"],
                "summary": "Update a telemetry record",
                "parameters": [
                    {"type": "string", "in": "path", "name": "kind", "required": true},
                    {"type": "string", "in": "path", "name": "id", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.updateTelemetryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["telemetry"],
                "summary": "Delete a telemetry record",
                "parameters": [
                    {"type": "string", "in": "path", "name": "kind", "required": true},
                    {"type": "string", "in": "path", "name": "id", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.messageResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "role": {"type": "string"},
                "allowed_devices": {"type": "array", "items": {"type": "string"}},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Device": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "device_id": {"type": "string"},
                "device_name": {"type": "string"},
                "device_type": {"type": "string"},
                "os_version": {"type": "string"},
                "manufacturer": {"type": "string"},
                "last_connected": {"type": "string"},
                "status": {"type": "string"},
                "child_id": {"type": "string"},
                "battery_level": {"type": "integer"},
                "installed_apps": {"type": "array", "items": {"type": "object"}},
                "settings": {"type": "object"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.AuthLogView": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "action": {"type": "string"},
                "status": {"type": "string"},
                "failure_reason": {"type": "string"},
                "device_info": {"type": "object"},
                "timestamp": {"type": "string"},
                "user": {"type": "object"}
            }
        },
        "handler.errorResponse": {"type": "object", "properties": {"error": {"type": "string"}}},
        "handler.messageResponse": {"type": "object", "properties": {"message": {"type": "string"}}},
        "handler.signupRequest": {
            "type": "object",
            "required": ["email", "name", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "name": {"type": "string"},
                "role": {"type": "string", "enum": ["super_admin", "admin", "user"]},
                "device_id": {"type": "string"},
                "super_admin_key": {"type": "string"}
            }
        },
        "handler.signinRequest": {"type": "object", "required": ["email", "password"], "properties": {"email": {"type": "string"}, "password": {"type": "string"}}},
        "handler.forgotPasswordRequest": {"type": "object", "required": ["email"], "properties": {"email": {"type": "string"}}},
        "handler.resetPasswordRequest": {"type": "object", "required": ["new_password", "token"], "properties": {"token": {"type": "string"}, "new_password": {"type": "string"}}},
        "handler.addDeviceRequest": {"type": "object", "required": ["device_id"], "properties": {"device_id": {"type": "string"}}},
        "handler.authResponse": {"type": "object", "properties": {"token": {"type": "string"}, "user": {"$ref": "#/definitions/domain.User"}}},
        "handler.userMessageResponse": {"type": "object", "properties": {"message": {"type": "string"}, "user": {"$ref": "#/definitions/domain.User"}}},
        "handler.createDeviceRequest": {
            "type": "object",
            "required": ["device_id", "device_name", "device_type", "manufacturer", "os_version"],
            "properties": {
                "device_id": {"type": "string"},
                "device_name": {"type": "string"},
                "device_type": {"type": "string"},
                "os_version": {"type": "string"},
                "manufacturer": {"type": "string"},
                "last_connected": {"type": "string"},
                "status": {"type": "string", "enum": ["active", "inactive"]},
                "child_id": {"type": "string"},
                "battery_level": {"type": "integer", "maximum": 100, "minimum": 0},
                "installed_apps": {"type": "array", "items": {"type": "object"}},
                "settings": {"type": "object"}
            }
        },
        "handler.updateDeviceRequest": {
            "type": "object",
            "properties": {
                "device_name": {"type": "string"},
                "device_type": {"type": "string"},
                "os_version": {"type": "string"},
                "manufacturer": {"type": "string"},
                "last_connected": {"type": "string"},
                "status": {"type": "string", "enum": ["active", "inactive"]},
                "child_id": {"type": "string"},
                "battery_level": {"type": "integer", "maximum": 100, "minimum": 0},
                "installed_apps": {"type": "array", "items": {"type": "object"}},
                "settings": {"type": "object"}
            }
        },
        "handler.updateTelemetryRequest": {
            "type": "object",
            "properties": {"timestamp": {"type": "string"}, "data": {"type": "object"}}
        },
        "handler.assignDeviceRequest": {"type": "object", "required": ["admin_id", "device_id"], "properties": {"admin_id": {"type": "string"}, "device_id": {"type": "string"}}},
        "handler.assignDeviceResponse": {"type": "object", "properties": {"message": {"type": "string"}, "admin": {"$ref": "#/definitions/domain.User"}}},
        "handler.telemetryRequest": {
            "type": "object",
            "required": ["device_id", "timestamp"],
            "properties": {"device_id": {"type": "string"}, "timestamp": {"type": "string"}, "data": {"type": "object"}}
        },
        "handler.acceptedResponse": {"type": "object", "properties": {"message": {"type": "string"}, "count": {"type": "integer"}}},
        "handler.telemetryListResponse": {
            "type": "object",
            "properties": {
                "records": {"type": "array", "items": {"type": "object"}},
                "pagination": {
                    "type": "object",
                    "properties": {"total": {"type": "integer"}, "page": {"type": "integer"}, "limit": {"type": "integer"}, "total_pages": {"type": "integer"}}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Child Tracker API",
	Description:      "Authentication, device registry and telemetry ingestion for the child monitoring agent.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
