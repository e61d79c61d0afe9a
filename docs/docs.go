// Package docs регистрирует OpenAPI описание для gin-swagger.
// Пересобирается командой `swag init -g cmd/app/main.go`.
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
        "/auth/telegram": {
            "post": {
                "tags": ["auth"],
                "summary": "Login with Telegram init data",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/models.LoginRequest"}}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "INVALID_INIT_DATA"}}
            }
        },
        "/verify": {
            "post": {
                "tags": ["auth"],
                "summary": "Verify init data without creating a session",
                "responses": {"200": {"description": "OK"}, "401": {"description": "INVALID_INIT_DATA"}}
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Current session user",
                "responses": {"200": {"description": "OK"}, "401": {"description": "UNAUTHORIZED"}}
            }
        },
        "/users/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Get my profile",
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Update my profile",
                "responses": {"200": {"description": "OK"}, "400": {"description": "VALIDATION_ERROR"}}
            }
        },
        "/users/cart": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["cart"],
                "summary": "Get my cart",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["cart"],
                "summary": "Add product to cart",
                "responses": {"200": {"description": "Quantity incremented"}, "201": {"description": "Created"}, "400": {"description": "INSUFFICIENT_STOCK"}, "404": {"description": "PRODUCT_NOT_FOUND"}}
            }
        },
        "/users/cart/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["cart"],
                "summary": "Change cart item quantity",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "CART_ITEM_NOT_FOUND"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["cart"],
                "summary": "Remove cart item",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "CART_ITEM_NOT_FOUND"}}
            }
        },
        "/products": {
            "get": {
                "tags": ["products"],
                "summary": "List products",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["products"],
                "summary": "Create product",
                "responses": {"201": {"description": "Created"}, "400": {"description": "VALIDATION_ERROR"}}
            }
        },
        "/products/{id}": {
            "get": {
                "tags": ["products"],
                "summary": "Get product",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "PRODUCT_NOT_FOUND"}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["products"],
                "summary": "Update product",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "FORBIDDEN"}}
            }
        },
        "/products/{id}/reviews": {
            "get": {
                "tags": ["products"],
                "summary": "List product reviews",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["products"],
                "summary": "Add review",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "VALIDATION_ERROR"}}
            }
        },
        "/categories": {
            "get": {
                "tags": ["categories"],
                "summary": "List root categories",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/categories/{id}": {
            "get": {
                "tags": ["categories"],
                "summary": "Get category with subcategories",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "CATEGORY_NOT_FOUND"}}
            }
        },
        "/orders": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["orders"],
                "summary": "List my orders",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["orders"],
                "summary": "Place order from cart",
                "responses": {"201": {"description": "Created"}, "400": {"description": "EMPTY_CART or INSUFFICIENT_STOCK"}, "409": {"description": "CONFLICT"}, "503": {"description": "TIMEOUT"}}
            }
        },
        "/orders/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["orders"],
                "summary": "Get my order",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "ORDER_NOT_FOUND"}}
            }
        },
        "/orders/{id}/status": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["orders"],
                "summary": "Change order status",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "FORBIDDEN"}, "409": {"description": "INVALID_STATUS_TRANSITION"}}
            }
        }
    },
    "definitions": {
        "models.LoginRequest": {
            "type": "object",
            "required": ["init_data"],
            "properties": {"init_data": {"type": "string"}}
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
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "AvaStore API",
	Description:      "Backend for the AvaStore Telegram Mini App storefront.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
