// Package docs holds the OpenAPI document mounted at /swagger in builds
// tagged swagger. It mirrors the handler annotations in internal/httpapi;
// `swag init -g cmd/captchad/docs.go` regenerates it in swag's layout.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "captchad maintainers"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "description": "Always reports healthy once the process is serving, whether or not the model loaded.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "health"
                ],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.HealthResponse"
                        }
                    }
                }
            }
        },
        "/solve_captcha": {
            "post": {
                "description": "Accepts a multipart upload in field \"file\". Failures are reported in the body with status 200.",
                "consumes": [
                    "multipart/form-data"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "solve"
                ],
                "summary": "Solve captcha from image",
                "parameters": [
                    {
                        "type": "file",
                        "description": "Captcha image (PNG, JPEG, GIF, BMP, TIFF, WebP)",
                        "name": "file",
                        "in": "formData",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.SolveResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string",
                    "example": "Error processing image: cannot identify image file: image: unknown format"
                }
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "message": {
                    "type": "string",
                    "example": "Captcha solver API is running."
                },
                "status": {
                    "type": "string",
                    "example": "healthy"
                }
            }
        },
        "types.SolveResponse": {
            "type": "object",
            "properties": {
                "text": {
                    "type": "string",
                    "example": "ab3K9"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "captchad API",
	Description:      "HTTP API that solves captcha images with a pretrained ONNX model.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
