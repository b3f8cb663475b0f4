// Package docs registers the OpenAPI document served at /openapi.json.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{.Description}}",
        "version": "{{.Version}}"
    },
    "basePath": "{{.BasePath}}",
    "paths": {
        "/streamer": {
            "get": {
                "summary": "Streamer state",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "uStreamer state, saved snapshot, snapshot store, params and backends"}
                }
            }
        },
        "/streamer/snapshot": {
            "get": {
                "summary": "Take a snapshot",
                "produces": ["image/jpeg", "text/plain"],
                "parameters": [
                    {"name": "save", "in": "query", "type": "boolean"},
                    {"name": "load", "in": "query", "type": "boolean"},
                    {"name": "allow_offline", "in": "query", "type": "boolean"},
                    {"name": "ocr", "in": "query", "type": "boolean"},
                    {"name": "ocr_langs", "in": "query", "type": "string"},
                    {"name": "ocr_left", "in": "query", "type": "integer", "default": -1},
                    {"name": "ocr_top", "in": "query", "type": "integer", "default": -1},
                    {"name": "ocr_right", "in": "query", "type": "integer", "default": -1},
                    {"name": "ocr_bottom", "in": "query", "type": "integer", "default": -1},
                    {"name": "preview", "in": "query", "type": "boolean"},
                    {"name": "preview_max_width", "in": "query", "type": "integer", "default": 0},
                    {"name": "preview_max_height", "in": "query", "type": "integer", "default": 0},
                    {"name": "preview_quality", "in": "query", "type": "integer", "default": 80, "minimum": 1, "maximum": 100}
                ],
                "responses": {
                    "200": {"description": "JPEG frame, JPEG preview or recognised text"},
                    "400": {"description": "ValidatorError"},
                    "503": {"description": "UnavailableError"}
                }
            },
            "delete": {
                "summary": "Remove the saved snapshot",
                "responses": {
                    "200": {"description": "Removed (idempotent)"}
                }
            }
        },
        "/streamer/ocr": {
            "get": {
                "summary": "OCR state",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Enabled flag and languages"}
                }
            }
        },
        "/streamer/set_mode": {
            "post": {
                "summary": "Switch streaming mode",
                "parameters": [
                    {"name": "mode", "in": "query", "type": "string", "enum": ["janus", "mjpeg"], "required": true}
                ],
                "responses": {
                    "200": {"description": "Mode switched"},
                    "400": {"description": "Invalid mode"},
                    "500": {"description": "Restart command failed"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "kvmd streamer API",
	Description:      "Snapshot, OCR and streaming mode control for the KVM video streamer.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
