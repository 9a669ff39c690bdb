package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Class Scheduler API",
        "description": "Class session scheduling: slot availability, session plans, alternative start dates and reschedules",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Scheduling", "description": "Instructor availability and class session planning"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Liveness check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check against PostgreSQL and Redis",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unreachable"}
                }
            }
        },
        "/timeslots": {
            "get": {
                "tags": ["Scheduling"],
                "summary": "List the timeslot catalog",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/slot-status": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Resolve availability for every weekday/timeslot pair of a pattern",
                "description": "Warnings appear in meta when instructor data could not be loaded.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SlotStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/end-date": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Estimate the end date of a course",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EndDateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/sessions/preview": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Generate a session plan proposal",
                "description": "SKIPPED sessions are listed for review but never stored.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PreviewSessionsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/sessions/save": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Persist a session plan proposal",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveSessionsRequest"}}
                ],
                "responses": {
                    "201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/sessions/preview/{id}/export": {
            "get": {
                "tags": ["Scheduling"],
                "summary": "Download a session plan proposal",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "File download"},
                    "404": {"description": "Proposal not found or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/alternatives": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Suggest start dates where the whole pattern is free",
                "description": "A newer search for the same instructor and class supersedes this one (409 STALE_SEARCH).",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AlternativesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/reschedule/impact": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Preview the sessions a reschedule would drop and add",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RescheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/reschedule/apply": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Apply a reschedule to the stored sessions",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RescheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "PatternDay": {
            "type": "object",
            "properties": {
                "weekday": {"type": "integer", "minimum": 0, "maximum": 6},
                "timeslotIds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "SlotStatusRequest": {
            "type": "object",
            "required": ["instructorId", "startDate", "pattern"],
            "properties": {
                "instructorId": {"type": "string"},
                "classId": {"type": "string"},
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"},
                "sessionsPerWeek": {"type": "integer"},
                "pattern": {"type": "array", "items": {"$ref": "#/definitions/PatternDay"}}
            }
        },
        "EndDateRequest": {
            "type": "object",
            "required": ["startDate", "pattern"],
            "properties": {
                "startDate": {"type": "string", "format": "date"},
                "totalSessions": {"type": "integer"},
                "pattern": {"type": "array", "items": {"$ref": "#/definitions/PatternDay"}}
            }
        },
        "PreviewSessionsRequest": {
            "type": "object",
            "required": ["classId", "startDate", "pattern"],
            "properties": {
                "classId": {"type": "string"},
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"},
                "totalSessions": {"type": "integer"},
                "pattern": {"type": "array", "items": {"$ref": "#/definitions/PatternDay"}}
            }
        },
        "SaveSessionsRequest": {
            "type": "object",
            "required": ["proposalId"],
            "properties": {
                "proposalId": {"type": "string"}
            }
        },
        "AlternativesRequest": {
            "type": "object",
            "required": ["instructorId", "startDate", "pattern"],
            "properties": {
                "instructorId": {"type": "string"},
                "classId": {"type": "string"},
                "startDate": {"type": "string", "format": "date"},
                "totalSessions": {"type": "integer"},
                "requiredSlotsPerWeek": {"type": "integer"},
                "maxResults": {"type": "integer", "maximum": 10},
                "pattern": {"type": "array", "items": {"$ref": "#/definitions/PatternDay"}}
            }
        },
        "RescheduleRequest": {
            "type": "object",
            "required": ["classId", "startDate"],
            "properties": {
                "classId": {"type": "string"},
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"},
                "totalSessions": {"type": "integer"},
                "pattern": {"type": "array", "items": {"$ref": "#/definitions/PatternDay"}}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
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
