// Package docs registers the gateway's OpenAPI document with swag.
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
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Health Check",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"type": "object"}}}
            }
        },
        "/estimate": {
            "get": {
                "tags": ["Rides"],
                "summary": "Price estimate",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "number", "name": "pickup_lat", "in": "query", "required": true},
                    {"type": "number", "name": "pickup_lng", "in": "query", "required": true},
                    {"type": "number", "name": "dropoff_lat", "in": "query", "required": true},
                    {"type": "number", "name": "dropoff_lng", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "number"}}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/rides": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Rides"],
                "summary": "Request a ride",
                "description": "Books a ride for the passenger. Locations without coordinates are geocoded from their address.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateRideRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/RideResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/rides/view": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Rides"],
                "summary": "Current ride view",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ViewResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/rides/refresh": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Rides"],
                "summary": "Reload the ride view",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ViewResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/rides/{ride_id}/accept": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Rides"],
                "summary": "Accept a pending ride",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "ride_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/RideResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "another driver won, or the driver is busy", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/rides/{ride_id}/advance": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Rides"],
                "summary": "Advance the active ride",
                "description": "accepted becomes in_progress, in_progress becomes completed",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "ride_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/RideResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/session": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Session"],
                "summary": "Sign out",
                "description": "Revokes the bearer token and stops the caller's live ride view",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/ws/rides": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Rides"],
                "summary": "Live ride view",
                "description": "Websocket. Sends {\"type\":\"view\",\"data\":View} on connect and after every change. Closed on sign out.",
                "parameters": [{"type": "string", "name": "access_token", "in": "query"}],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {"error": {}}
        },
        "Location": {
            "type": "object",
            "properties": {
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "address": {"type": "string"}
            }
        },
        "LocationRequest": {
            "type": "object",
            "properties": {
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "address": {"type": "string"}
            }
        },
        "dto.CreateRideRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "format": "uuid"},
                "pickup": {"$ref": "#/definitions/LocationRequest"},
                "dropoff": {"$ref": "#/definitions/LocationRequest"},
                "vehicle_type": {"type": "string", "example": "standard"}
            }
        },
        "Ride": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "format": "uuid"},
                "created_at": {"type": "string", "format": "date-time"},
                "status": {"type": "string", "enum": ["pending", "accepted", "in_progress", "completed"]},
                "pickup": {"$ref": "#/definitions/Location"},
                "dropoff": {"$ref": "#/definitions/Location"},
                "estimated_price": {"type": "number"},
                "final_price": {"type": "number"},
                "passenger_id": {"type": "string", "format": "uuid"},
                "driver_id": {"type": "string", "format": "uuid"},
                "vehicle_type": {"type": "string"}
            }
        },
        "View": {
            "type": "object",
            "properties": {
                "actor": {
                    "type": "object",
                    "properties": {
                        "id": {"type": "string", "format": "uuid"},
                        "role": {"type": "string", "enum": ["passenger", "driver"]}
                    }
                },
                "available_rides": {"type": "array", "items": {"$ref": "#/definitions/Ride"}},
                "active_ride": {"$ref": "#/definitions/Ride"},
                "history": {"type": "array", "items": {"$ref": "#/definitions/Ride"}}
            }
        },
        "RideResponse": {
            "type": "object",
            "properties": {"ride": {"$ref": "#/definitions/Ride"}}
        },
        "ViewResponse": {
            "type": "object",
            "properties": {"view": {"$ref": "#/definitions/View"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Ride Gateway API",
	Description:      "Live ride views for passengers and drivers. Commands are applied optimistically and reconciled with the ride store's change feed.",
	InfoInstanceName: "gateway",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
