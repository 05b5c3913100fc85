// Package docs provides the generated swagger description served at
// /swagger/doc.json.
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
        "/api/elections": {
            "get": {
                "produces": ["application/json"],
                "tags": ["elections"],
                "summary": "List elections",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["elections"],
                "summary": "Create a draft election",
                "responses": {
                    "201": {"description": "Created"},
                    "422": {"description": "Validation failed"}
                }
            }
        },
        "/api/elections/active": {
            "get": {
                "produces": ["application/json"],
                "tags": ["elections"],
                "summary": "Fetch the currently active election",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "No active election"}
                }
            }
        },
        "/api/elections/{election_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["elections"],
                "summary": "Fetch one election",
                "parameters": [{"type": "string", "name": "election_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["elections"],
                "summary": "Update a draft election",
                "parameters": [{"type": "string", "name": "election_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Election is no longer editable"},
                    "422": {"description": "Validation failed"}
                }
            },
            "delete": {
                "tags": ["elections"],
                "summary": "Delete a non-active election",
                "parameters": [{"type": "string", "name": "election_id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Election is active"}
                }
            }
        },
        "/api/elections/{election_id}/start": {
            "post": {
                "produces": ["application/json"],
                "tags": ["lifecycle"],
                "summary": "Start an election, completing any active one",
                "parameters": [{"type": "string", "name": "election_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Election already completed"}
                }
            }
        },
        "/api/elections/{election_id}/end": {
            "post": {
                "produces": ["application/json"],
                "tags": ["lifecycle"],
                "summary": "End the active election",
                "parameters": [{"type": "string", "name": "election_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Election is not active"}
                }
            }
        },
        "/api/elections/{election_id}/votes": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["voting"],
                "summary": "Cast or change a vote",
                "parameters": [
                    {"type": "string", "name": "election_id", "in": "path", "required": true},
                    {"type": "string", "name": "X-Voter-Id", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Missing voter identity"},
                    "404": {"description": "Unknown position or candidate"},
                    "409": {"description": "Election is not accepting votes"}
                }
            }
        },
        "/api/elections/{election_id}/tally": {
            "get": {
                "produces": ["application/json"],
                "tags": ["results"],
                "summary": "Raw per-candidate counts",
                "parameters": [{"type": "string", "name": "election_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/elections/{election_id}/results": {
            "get": {
                "produces": ["application/json"],
                "tags": ["results"],
                "summary": "Computed results with percentages and leaders",
                "parameters": [{"type": "string", "name": "election_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/elections/{election_id}/turnout": {
            "get": {
                "produces": ["application/json"],
                "tags": ["results"],
                "summary": "Voter participation per position",
                "parameters": [{"type": "string", "name": "election_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/dashboard/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Admin dashboard counters",
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Ballotbox Election API",
	Description:      "Election lifecycle and vote tally engine.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
