package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Prashnakosh API",
        "description": "Multi-tenant exam paper workflow for schools: question bank, blueprints, approval pipeline, attempts and exports",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Login, token refresh and session management"},
        {"name": "Papers", "description": "Test papers and the approval workflow"},
        {"name": "Blueprints", "description": "Paper structure definitions and approval"},
        {"name": "Attempts", "description": "Student exam sessions"},
        {"name": "Exports", "description": "Results exports and printable papers"},
        {"name": "Dashboard", "description": "Principal and HOD snapshots"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login with school code, email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/papers": {
            "get": {
                "tags": ["Papers"],
                "summary": "List test papers",
                "parameters": [
                    {"name": "academicYearId", "in": "query", "type": "string"},
                    {"name": "grade", "in": "query", "type": "string"},
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "state", "in": "query", "type": "string", "description": "Comma separated workflow states"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Papers"],
                "summary": "Create a draft paper",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTestPaperRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Blueprint mandated but missing"}
                }
            }
        },
        "/papers/{id}": {
            "get": {
                "tags": ["Papers"],
                "summary": "Get a paper",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Papers"],
                "summary": "Update a draft paper",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateTestPaperRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Paper is not editable in its current state"}
                }
            }
        },
        "/papers/{id}/submit": {
            "post": {
                "tags": ["Papers"],
                "summary": "Submit a draft for HOD review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Transition not legal from the current state"}
                }
            }
        },
        "/papers/{id}/review": {
            "post": {
                "tags": ["Papers"],
                "summary": "Approve or reject at the current review gate",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewPaperRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Rejection without comments"}
                }
            }
        },
        "/papers/{id}/advance": {
            "post": {
                "tags": ["Papers"],
                "summary": "Advance an HOD-approved paper to the principal queue",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/papers/{id}/send-to-committee": {
            "post": {
                "tags": ["Papers"],
                "summary": "Hand a principal-approved paper to the exam committee",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/papers/{id}/activate": {
            "post": {
                "tags": ["Papers"],
                "summary": "Activate a paper for its exam window",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/papers/{id}/lock": {
            "post": {
                "tags": ["Papers"],
                "summary": "Lock a paper after the exam",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/papers/{id}/archive": {
            "post": {
                "tags": ["Papers"],
                "summary": "Archive a locked paper",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/papers/{id}/resubmit": {
            "post": {
                "tags": ["Papers"],
                "summary": "Return a rejected paper to draft",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/papers/{id}/reveal-results": {
            "post": {
                "tags": ["Papers"],
                "summary": "Reveal a locked paper's results to students",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/papers/{id}/audit": {
            "get": {
                "tags": ["Papers"],
                "summary": "Workflow history, oldest first",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/papers/{id}/export": {
            "post": {
                "tags": ["Exports"],
                "summary": "Export results as CSV or PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/papers/{id}/generate": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a printable question paper build",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "202": {"description": "Build queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "200": {"description": "Build completed inline", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/papers/{id}/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a generated file with a signed token",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "401": {"description": "Token invalid or expired"}
                }
            }
        },
        "/blueprints/{id}/approve": {
            "post": {
                "tags": ["Blueprints"],
                "summary": "Approve a blueprint",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attempts": {
            "post": {
                "tags": ["Attempts"],
                "summary": "Start or resume an attempt on an active paper",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StartAttemptRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attempts/{id}/progress": {
            "put": {
                "tags": ["Attempts"],
                "summary": "Autosave attempt progress",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attempts/{id}/submit": {
            "post": {
                "tags": ["Attempts"],
                "summary": "Submit an attempt for auto-scoring",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/principal": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "School-wide pipeline snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/principal/grade-performance": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Per-grade performance breakdown",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/principal/at-risk-students": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Students scoring below the at-risk threshold",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/hod": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Department review load",
                "parameters": [
                    {"name": "subject", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "schoolCode": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateTestPaperRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "grade": {"type": "string"},
                "subject": {"type": "string"},
                "totalMarks": {"type": "integer"},
                "durationMinutes": {"type": "integer"},
                "academicYearId": {"type": "string"},
                "examFrameworkId": {"type": "string"},
                "blueprintId": {"type": "string"},
                "questionIds": {"type": "array", "items": {"type": "string"}},
                "isConfidential": {"type": "boolean"}
            },
            "required": ["title", "grade", "subject", "totalMarks", "durationMinutes"]
        },
        "UpdateTestPaperRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "totalMarks": {"type": "integer"},
                "durationMinutes": {"type": "integer"},
                "blueprintId": {"type": "string"},
                "questionIds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ReviewPaperRequest": {
            "type": "object",
            "properties": {
                "decision": {"type": "string", "enum": ["approve", "reject"]},
                "comments": {"type": "string"}
            },
            "required": ["decision"]
        },
        "TransitionRequest": {
            "type": "object",
            "properties": {
                "comments": {"type": "string"}
            }
        },
        "StartAttemptRequest": {
            "type": "object",
            "properties": {
                "testPaperId": {"type": "string"}
            },
            "required": ["testPaperId"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
