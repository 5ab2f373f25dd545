// Package docs registers the OpenAPI document of the quote-core API with swag.
// Regenerate with: swag init -g main.go -o docs
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/api/v1/health": {
            "get": {"tags": ["Health"], "summary": "Health Check", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}
        },
        "/api/v1/extractions": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Extractions"], "summary": "Ingest Extractions", "responses": {"201": {"description": "Created"}, "400": {"description": "Validation error"}}}
        },
        "/api/v1/extractions/route": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Extractions"], "summary": "Route Fields", "responses": {"200": {"description": "OK"}, "400": {"description": "Validation error"}}}
        },
        "/api/v1/calculations": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Calculations"], "summary": "Calculate Price", "responses": {"201": {"description": "Created"}, "400": {"description": "Validation error"}, "409": {"description": "Input conflicts with an extracted field"}, "422": {"description": "Human review required or configuration invalid"}}}
        },
        "/api/v1/calculations/{uuid}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Calculations"], "summary": "Get Calculation", "parameters": [{"type": "string", "name": "uuid", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Calculation not found"}}}
        },
        "/api/v1/rules/evaluate": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Rules"], "summary": "Evaluate Rule", "responses": {"200": {"description": "OK"}, "400": {"description": "Malformed rule"}}}
        },
        "/api/v1/analysis/run": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Analysis"], "summary": "Run Pattern Analysis", "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid window"}}}
        },
        "/api/v1/analysis/reports/latest": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Analysis"], "summary": "Latest Analysis Report", "responses": {"200": {"description": "OK"}, "404": {"description": "No analysis run yet"}}}
        },
        "/api/v1/analysis/reports/{uuid}/export": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Analysis"], "summary": "Export Analysis Report", "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"], "parameters": [{"type": "string", "name": "uuid", "in": "path", "required": true}], "responses": {"200": {"description": "xlsx workbook"}, "404": {"description": "Analysis run not found"}}}
        },
        "/api/v1/fix-proposals": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Fix Proposals"], "summary": "List Fix Proposals", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Fix Proposals"], "summary": "Create Fix Proposal", "responses": {"201": {"description": "Created"}}}
        },
        "/api/v1/fix-proposals/monitoring/evaluate": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Admin Fix Proposals"], "summary": "Evaluate Monitoring (Admin)", "responses": {"200": {"description": "OK"}, "403": {"description": "Admin role required"}}}
        },
        "/api/v1/fix-proposals/{uuid}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Fix Proposals"], "summary": "Get Fix Proposal", "parameters": [{"type": "string", "name": "uuid", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Fix proposal not found"}}}
        },
        "/api/v1/fix-proposals/{uuid}/audit": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Fix Proposals"], "summary": "Fix Proposal Audit Trail", "parameters": [{"type": "string", "name": "uuid", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/fix-proposals/{uuid}/testing": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Fix Proposals"], "summary": "Start Testing", "parameters": [{"type": "string", "name": "uuid", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Invalid transition"}}}
        },
        "/api/v1/fix-proposals/{uuid}/validate": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Fix Proposals"], "summary": "Validate Fix Proposal", "parameters": [{"type": "string", "name": "uuid", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Validation gate failed"}}}
        },
        "/api/v1/fix-proposals/{uuid}/deploy": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Fix Proposals"], "summary": "Deploy Fix Proposal", "parameters": [{"type": "string", "name": "uuid", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Concurrent deployment or outside deployment window"}}}
        },
        "/api/v1/fix-proposals/{uuid}/rollback": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Fix Proposals"], "summary": "Roll Back Fix Proposal", "parameters": [{"type": "string", "name": "uuid", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Rollback window expired"}}}
        },
        "/api/v1/admin/pricing-factors": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Admin Pricing"], "summary": "List Pricing Factors (Admin)", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Admin Pricing"], "summary": "Create/Update Pricing Factor (Admin)", "responses": {"200": {"description": "OK"}, "400": {"description": "Validation error"}}}
        },
        "/api/v1/admin/pricing-factors/{uuid}/disable": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Admin Pricing"], "summary": "Disable Pricing Factor (Admin)", "parameters": [{"type": "string", "name": "uuid", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Pricing factor not found"}}}
        },
        "/api/v1/admin/company-config": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Admin Pricing"], "summary": "Get Company Configuration (Admin)", "responses": {"200": {"description": "OK"}, "404": {"description": "No configuration"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["Admin Pricing"], "summary": "Update Company Configuration (Admin)", "responses": {"200": {"description": "OK"}, "400": {"description": "Validation error"}}}
        },
        "/api/v1/admin/adjustments": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Admin Pricing"], "summary": "List Dynamic Adjustments (Admin)", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Admin Pricing"], "summary": "Create Dynamic Adjustment (Admin)", "responses": {"201": {"description": "Created"}}}
        },
        "/api/v1/admin/materials": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Admin Pricing"], "summary": "List Materials (Admin)", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Admin Pricing"], "summary": "Create Material (Admin)", "responses": {"201": {"description": "Created"}, "409": {"description": "Stock key already exists"}}}
        },
        "/api/v1/admin/surcharge-rules": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Admin Pricing"], "summary": "List Surcharge Rules (Admin)", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Admin Pricing"], "summary": "Create Surcharge Rule (Admin)", "responses": {"201": {"description": "Created"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Quote Core API",
	Description:      "Confidence-gated routing, tiered pricing and gated extraction fix deployment.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
