// Package docs описание API для /swagger; пути совпадают с аннотациями @Router в internal/http
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
        "/repairs": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cases"],
                "summary": "Create repair request",
                "parameters": [{"description": "Repair", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.createRepairReq"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Repair"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/donations": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cases"],
                "summary": "Create donation",
                "parameters": [{"description": "Donation", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.createDonationReq"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Donation"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/orders": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cases"],
                "summary": "Create order",
                "parameters": [{"description": "Order", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.createOrderReq"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Order"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/cases": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cases"],
                "summary": "List cases of an owner",
                "parameters": [
                    {"type": "string", "description": "Owner id (staff only for other users)", "name": "owner", "in": "query"},
                    {"type": "string", "description": "repair | donation | order", "name": "kind", "in": "query"},
                    {"type": "string", "description": "Status filter", "name": "status", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.CaseBase"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/cases/stats": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cases"],
                "summary": "Case counters for dashboard badges",
                "parameters": [{"type": "string", "description": "Owner id (staff only for other users)", "name": "owner", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/service.CaseStats"}}}
            }
        },
        "/cases/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["cases"],
                "summary": "Get case by id",
                "parameters": [{"type": "string", "description": "Case ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.CaseBase"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/cases/{id}/transitions": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Customers may only cancel their own cases. Accepts If-Match with the case version.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cases"],
                "summary": "Move a case to another status",
                "parameters": [
                    {"type": "string", "description": "Case ID", "name": "id", "in": "path", "required": true},
                    {"description": "Target status", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.transitionReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.CaseBase"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/repairs/{id}/interventions": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["interventions"],
                "summary": "Schedule an intervention",
                "parameters": [
                    {"type": "string", "description": "Repair ID", "name": "id", "in": "path", "required": true},
                    {"description": "Date and time slot", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.scheduleReq"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/httpapi.interventionResp"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/orders/{id}/items": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cases"],
                "summary": "Replace order items",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true},
                    {"description": "Items", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.replaceItemsReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Order"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/donations/{id}/pickup": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cases"],
                "summary": "Set donation pickup date",
                "parameters": [
                    {"type": "string", "description": "Donation ID", "name": "id", "in": "path", "required": true},
                    {"description": "Pickup date", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.pickupReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Donation"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/repairs/{id}/interventions/{iid}/start": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["interventions"],
                "summary": "Start an intervention",
                "parameters": [
                    {"type": "string", "description": "Repair ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Intervention ID", "name": "iid", "in": "path", "required": true},
                    {"description": "Start time, defaults to now", "name": "input", "in": "body", "schema": {"$ref": "#/definitions/httpapi.startReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Repair"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/repairs/{id}/interventions/{iid}/finalize": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["interventions"],
                "summary": "Finalize an intervention",
                "parameters": [
                    {"type": "string", "description": "Repair ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Intervention ID", "name": "iid", "in": "path", "required": true},
                    {"description": "Diagnosis and work performed", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.finalizeReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Repair"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/repairs/{id}/interventions/{iid}/cancel": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["interventions"],
                "summary": "Cancel an intervention",
                "parameters": [{"type": "string", "description": "Repair ID", "name": "id", "in": "path", "required": true}, {"type": "string", "description": "Intervention ID", "name": "iid", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Repair"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/repairs/{id}/interventions/{iid}/parts": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["interventions"],
                "summary": "Attach a part to an intervention",
                "parameters": [
                    {"type": "string", "description": "Repair ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Intervention ID", "name": "iid", "in": "path", "required": true},
                    {"description": "Part", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.partReq"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/httpapi.partResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/repairs/{id}/interventions/{iid}/parts/{pid}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["interventions"],
                "summary": "Remove a part",
                "parameters": [
                    {"type": "string", "description": "Repair ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Intervention ID", "name": "iid", "in": "path", "required": true},
                    {"type": "string", "description": "Part ID", "name": "pid", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Repair"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/loyalty/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["loyalty"],
                "summary": "Own loyalty summary",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/service.LoyaltySummary"}}}
            }
        },
        "/loyalty/{user_id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["loyalty"],
                "summary": "Loyalty summary of a user",
                "parameters": [{"type": "string", "description": "User ID", "name": "user_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.LoyaltySummary"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/loyalty/events": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["loyalty"],
                "summary": "Record a referral or review event",
                "parameters": [{"description": "Event", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.loyaltyEventReq"}}],
                "responses": {
                    "200": {"description": "already recorded", "schema": {"$ref": "#/definitions/httpapi.loyaltyEventResp"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/httpapi.loyaltyEventResp"}}
                }
            }
        },
        "/rewards": {
            "get": {
                "produces": ["application/json"],
                "tags": ["loyalty"],
                "summary": "Rewards catalog",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.RewardTier"}}}}
            }
        },
        "/eligibility/{postal_code}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["eligibility"],
                "summary": "Check whether a postal code is served",
                "parameters": [{"type": "string", "description": "Postal code", "name": "postal_code", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpapi.eligibilityResp"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/httpapi.errorResponse"}}
                }
            }
        },
        "/health/live": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/health/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "domain.CaseBase": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "kind": {"type": "string"},
                "reference_code": {"type": "string"},
                "owner_id": {"type": "string"},
                "status": {"type": "string"},
                "version": {"type": "integer"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "completed_at": {"type": "string"}
            }
        },
        "domain.Repair": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "reference_code": {"type": "string"},
                "status": {"type": "string"},
                "appliance_type": {"type": "string"},
                "brand": {"type": "string"},
                "model": {"type": "string"},
                "issue_description": {"type": "string"},
                "base_price": {"type": "string"},
                "additional_cost": {"type": "string"},
                "total_cost": {"type": "string"},
                "interventions": {"type": "array", "items": {"type": "object"}}
            }
        },
        "domain.Donation": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "reference_code": {"type": "string"},
                "status": {"type": "string"},
                "appliance_type": {"type": "string"},
                "pickup_date": {"type": "string"},
                "address": {"type": "object"}
            }
        },
        "domain.Order": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "reference_code": {"type": "string"},
                "status": {"type": "string"},
                "items": {"type": "array", "items": {"type": "object"}},
                "total_amount": {"type": "string"},
                "delivery_date": {"type": "string"}
            }
        },
        "domain.RewardTier": {
            "type": "object",
            "properties": {
                "label": {"type": "string"},
                "points_required": {"type": "integer"}
            }
        },
        "service.CaseStats": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "active": {"type": "integer"},
                "completed": {"type": "integer"},
                "cancelled": {"type": "integer"},
                "by_kind": {"type": "object"}
            }
        },
        "service.LoyaltySummary": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "points": {"type": "integer"},
                "referral_code": {"type": "string"},
                "history": {"type": "array", "items": {"type": "object"}},
                "progress": {"type": "object"}
            }
        },
        "httpapi.createRepairReq": {
            "type": "object",
            "required": ["appliance_type", "brand", "issue_description", "model"],
            "properties": {
                "owner_id": {"type": "string"},
                "appliance_type": {"type": "string"},
                "brand": {"type": "string"},
                "model": {"type": "string"},
                "issue_description": {"type": "string"}
            }
        },
        "httpapi.createDonationReq": {
            "type": "object",
            "required": ["appliance_type"],
            "properties": {
                "owner_id": {"type": "string"},
                "appliance_type": {"type": "string"},
                "brand": {"type": "string"},
                "pickup_date": {"type": "string"},
                "address": {"type": "object"}
            }
        },
        "httpapi.createOrderReq": {
            "type": "object",
            "required": ["items"],
            "properties": {
                "owner_id": {"type": "string"},
                "items": {"type": "array", "minItems": 1, "items": {"type": "object"}}
            }
        },
        "httpapi.transitionReq": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string"},
                "expected_version": {"type": "integer"},
                "delivery_date": {"type": "string"}
            }
        },
        "httpapi.scheduleReq": {
            "type": "object",
            "required": ["date", "time_slot"],
            "properties": {
                "date": {"type": "string"},
                "time_slot": {"type": "string"}
            }
        },
        "httpapi.interventionResp": {
            "type": "object",
            "properties": {
                "repair": {"$ref": "#/definitions/domain.Repair"},
                "intervention": {"type": "object"}
            }
        },
        "httpapi.replaceItemsReq": {
            "type": "object",
            "required": ["items"],
            "properties": {
                "items": {"type": "array", "minItems": 1, "items": {"type": "object"}},
                "expected_version": {"type": "integer"}
            }
        },
        "httpapi.pickupReq": {
            "type": "object",
            "required": ["pickup_date"],
            "properties": {
                "pickup_date": {"type": "string"},
                "expected_version": {"type": "integer"}
            }
        },
        "httpapi.startReq": {
            "type": "object",
            "properties": {
                "at": {"type": "string"}
            }
        },
        "httpapi.finalizeReq": {
            "type": "object",
            "required": ["diagnosis", "work_performed"],
            "properties": {
                "diagnosis": {"type": "string"},
                "work_performed": {"type": "string"},
                "at": {"type": "string"}
            }
        },
        "httpapi.partReq": {
            "type": "object",
            "required": ["part_name", "quantity"],
            "properties": {
                "part_name": {"type": "string"},
                "unit_price": {"type": "string"},
                "quantity": {"type": "integer", "minimum": 1},
                "warranty_months": {"type": "integer", "minimum": 0}
            }
        },
        "httpapi.partResp": {
            "type": "object",
            "properties": {
                "repair": {"$ref": "#/definitions/domain.Repair"},
                "part": {"type": "object"}
            }
        },
        "httpapi.loyaltyEventReq": {
            "type": "object",
            "required": ["kind", "source_id", "user_id"],
            "properties": {
                "user_id": {"type": "string"},
                "kind": {"type": "string", "enum": ["referral", "review"]},
                "source_id": {"type": "string"}
            }
        },
        "httpapi.loyaltyEventResp": {
            "type": "object",
            "properties": {
                "credited": {"type": "boolean"},
                "points": {"type": "integer"},
                "entry": {"type": "object"},
                "account": {"type": "object"}
            }
        },
        "httpapi.eligibilityResp": {
            "type": "object",
            "properties": {
                "postal_code": {"type": "string"},
                "eligible": {"type": "boolean"}
            }
        },
        "httpapi.errorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "object",
                    "properties": {
                        "kind": {"type": "string"},
                        "message": {"type": "string"},
                        "details": {"type": "array", "items": {"type": "object"}}
                    }
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "repairhub API",
	Description:      "Appliance repair, donation and refurbished sales platform.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
