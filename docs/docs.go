// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with `swag init -g cmd/main.go` after changing handler annotations.
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
        "/api/v1/events": {
            "get": {
                "description": "Retrieves events within a time range, filtered by free text, event types, threads and hosts. Supports pagination and sorting.",
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Search and filter VersaLex events",
                "parameters": [
                    {"type": "string", "description": "Start time: ISO 8601, epoch milliseconds or a VersaLex date", "name": "startTime", "in": "query", "required": true},
                    {"type": "string", "description": "End time: ISO 8601, epoch milliseconds or a VersaLex date", "name": "endTime", "in": "query", "required": true},
                    {"type": "string", "description": "Free text search over message and text", "name": "query", "in": "query"},
                    {"type": "string", "description": "Comma-separated event types", "name": "types", "in": "query"},
                    {"type": "string", "description": "Comma-separated thread names", "name": "threads", "in": "query"},
                    {"type": "string", "description": "Comma-separated shipping hosts", "name": "hosts", "in": "query"},
                    {"enum": ["@timestamp", "type", "thread", "host", "eventid"], "type": "string", "name": "sortBy", "in": "query"},
                    {"enum": ["asc", "desc"], "type": "string", "name": "sortOrder", "in": "query"},
                    {"minimum": 1, "type": "integer", "name": "page", "in": "query"},
                    {"maximum": 1000, "minimum": 1, "type": "integer", "name": "size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Successfully retrieved events", "schema": {"$ref": "#/definitions/dto.EventSearchResponse"}},
                    "400": {"description": "Invalid query parameters", "schema": {"$ref": "#/definitions/model.Response"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/model.Response"}}
                }
            }
        },
        "/api/v1/events/live": {
            "get": {
                "description": "Upgrades to a websocket and streams every shipped record as a JSON text message.",
                "tags": ["events"],
                "summary": "Live event stream",
                "parameters": [
                    {"type": "integer", "description": "Records buffered for this client", "name": "buffer", "in": "query"}
                ],
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        },
        "/api/v1/metrics/summary": {
            "get": {
                "produces": ["application/json"],
                "tags": ["metrics"],
                "summary": "Get summary metrics",
                "parameters": [
                    {"type": "string", "name": "startTime", "in": "query", "required": true},
                    {"type": "string", "name": "endTime", "in": "query", "required": true},
                    {"type": "string", "name": "hosts", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.MetricSummaryResponse"}},
                    "400": {"description": "Invalid query parameters", "schema": {"$ref": "#/definitions/model.Response"}}
                }
            }
        },
        "/api/v1/metrics/timeseries": {
            "get": {
                "produces": ["application/json"],
                "tags": ["metrics"],
                "summary": "Get timeseries metrics",
                "parameters": [
                    {"type": "string", "name": "startTime", "in": "query", "required": true},
                    {"type": "string", "name": "endTime", "in": "query", "required": true},
                    {"type": "string", "name": "hosts", "in": "query"},
                    {"enum": ["versalex_event", "error_event", "transfer_event"], "type": "string", "name": "metricName", "in": "query", "required": true},
                    {"enum": ["1 minute", "5 minute", "10 minute", "30 minute", "1 hour", "1 day"], "type": "string", "name": "interval", "in": "query", "required": true},
                    {"enum": ["type", "thread", "host", "total"], "type": "string", "name": "groupBy", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.MetricTimeseriesResponse"}},
                    "400": {"description": "Invalid query parameters", "schema": {"$ref": "#/definitions/model.Response"}}
                }
            }
        },
        "/api/v1/metrics/distribution": {
            "get": {
                "produces": ["application/json"],
                "tags": ["metrics"],
                "summary": "Get metric distribution",
                "parameters": [
                    {"type": "string", "name": "startTime", "in": "query", "required": true},
                    {"type": "string", "name": "endTime", "in": "query", "required": true},
                    {"enum": ["versalex_event", "error_event", "transfer_event"], "type": "string", "name": "metricName", "in": "query"},
                    {"enum": ["type", "thread", "host"], "type": "string", "name": "dimension", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.MetricDistributionResponse"}}
                }
            }
        },
        "/api/v1/metrics/hosts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["metrics"],
                "summary": "Get distinct shipping hosts",
                "parameters": [
                    {"type": "string", "name": "startTime", "in": "query", "required": true},
                    {"type": "string", "name": "endTime", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.HostListResponse"}}
                }
            }
        },
        "/api/v1/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Shipper status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/service.ShipperStatus"}}}
            }
        },
        "/api/v1/threads": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Live VersaLex threads",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/threads.Thread"}}}}
            }
        }
    },
    "definitions": {
        "dto.EventSearchResponse": {
            "type": "object",
            "properties": {
                "events": {"type": "array", "items": {"type": "object", "additionalProperties": {"type": "string"}}},
                "page": {"type": "integer"},
                "size": {"type": "integer"},
                "totalCount": {"type": "integer"}
            }
        },
        "dto.MetricSummaryResponse": {
            "type": "object",
            "properties": {
                "totalBytes": {"type": "integer"},
                "totalErrorEvents": {"type": "integer"},
                "totalEvents": {"type": "integer"},
                "totalTransfers": {"type": "integer"}
            }
        },
        "dto.TimeseriesDataPoint": {
            "type": "object",
            "properties": {"timestamp": {"type": "integer"}, "value": {"type": "integer"}}
        },
        "dto.TimeseriesSeries": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/dto.TimeseriesDataPoint"}},
                "name": {"type": "string"}
            }
        },
        "dto.MetricTimeseriesResponse": {
            "type": "object",
            "properties": {"series": {"type": "array", "items": {"$ref": "#/definitions/dto.TimeseriesSeries"}}}
        },
        "dto.DistributionDataPoint": {
            "type": "object",
            "properties": {"name": {"type": "string"}, "value": {"type": "integer"}}
        },
        "dto.MetricDistributionResponse": {
            "type": "object",
            "properties": {
                "dimension": {"type": "string"},
                "distribution": {"type": "array", "items": {"$ref": "#/definitions/dto.DistributionDataPoint"}},
                "metricName": {"type": "string"}
            }
        },
        "dto.HostListResponse": {
            "type": "object",
            "properties": {"hosts": {"type": "array", "items": {"type": "string"}}}
        },
        "follower.Stats": {
            "type": "object",
            "properties": {
                "eofs": {"type": "integer"},
                "events": {"type": "integer"},
                "failures": {"type": "integer"},
                "rotations": {"type": "integer"}
            }
        },
        "threads.Thread": {
            "type": "object",
            "properties": {"id": {"type": "string"}, "name": {"type": "string"}}
        },
        "service.ShipperStatus": {
            "type": "object",
            "properties": {
                "dropped": {"type": "integer"},
                "follower": {"$ref": "#/definitions/follower.Stats"},
                "host": {"type": "string"},
                "path": {"type": "string"},
                "running": {"type": "boolean"},
                "shipped": {"type": "integer"},
                "threads": {"type": "array", "items": {"$ref": "#/definitions/threads.Thread"}},
                "watchers": {"type": "integer"}
            }
        },
        "model.Response": {
            "type": "object",
            "properties": {"data": {}, "message": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "VersaLex Ingest API",
	Description:      "Search, metrics and live streaming over events shipped from the VersaLex Harmony event log.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
