// Package docs registers the OpenAPI description served at /swagger.
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
        "/auth/register": {
            "post": {
                "description": "Register a new user with email and password. Default categories and an empty savings account are created.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [
                    {"description": "User registration data", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "User registered and token generated", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "description": "Authenticate a user and get a token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login user",
                "parameters": [
                    {"description": "User login credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "User authenticated and token generated", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/profile": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["user"],
                "summary": "Get user profile",
                "responses": {
                    "200": {"description": "User profile", "schema": {"$ref": "#/definitions/handlers.UserResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/budget": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Get the active budget cycle, spending so far and the savings balance",
                "produces": ["application/json"],
                "tags": ["budget"],
                "summary": "Get current budget",
                "responses": {
                    "200": {"description": "Current budget", "schema": {"$ref": "#/definitions/services.BudgetView"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Server error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Create a budget or update the active one within its edit window",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["budget"],
                "summary": "Set budget",
                "parameters": [
                    {"description": "Budget amount and period", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SetBudgetRequest"}}
                ],
                "responses": {
                    "200": {"description": "Budget created or updated", "schema": {"$ref": "#/definitions/handlers.SetBudgetResponse"}},
                    "400": {"description": "Invalid budget input", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Edit window expired", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/budget/history": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Get a paginated list of closed budget cycles with spent and credited amounts",
                "produces": ["application/json"],
                "tags": ["budget"],
                "summary": "Get budget history",
                "parameters": [
                    {"type": "integer", "description": "Page number (default 1)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Items per page (default 20, max 100)", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Closed cycles", "schema": {"$ref": "#/definitions/pagination.PageResponse-models_BudgetCycle"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/expenses": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Get a paginated list of expenses, optionally restricted to a date range",
                "produces": ["application/json"],
                "tags": ["expenses"],
                "summary": "Get expenses",
                "parameters": [
                    {"type": "string", "description": "Start of range, inclusive (RFC3339 or YYYY-MM-DD)", "name": "from", "in": "query"},
                    {"type": "string", "description": "End of range, exclusive (RFC3339 or YYYY-MM-DD)", "name": "to", "in": "query"},
                    {"type": "integer", "description": "Page number (default 1)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Items per page (default 20, max 100)", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Paginated expenses", "schema": {"$ref": "#/definitions/pagination.PageResponse-models_Expense"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Record an expense against one of the user's categories, referenced by name",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["expenses"],
                "summary": "Log an expense",
                "parameters": [
                    {"description": "Expense details", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateExpenseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Expense created", "schema": {"$ref": "#/definitions/models.Expense"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Category not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/categories": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["categories"],
                "summary": "Get categories",
                "responses": {
                    "200": {"description": "List of categories", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Category"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["categories"],
                "summary": "Create a category",
                "parameters": [
                    {"description": "Category details", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateCategoryRequest"}}
                ],
                "responses": {
                    "201": {"description": "Category created", "schema": {"$ref": "#/definitions/models.Category"}},
                    "409": {"description": "Category already exists", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/savings": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Get the balance accumulated from closed budget cycles",
                "produces": ["application/json"],
                "tags": ["savings"],
                "summary": "Get savings balance",
                "responses": {
                    "200": {"description": "Savings balance", "schema": {"$ref": "#/definitions/handlers.SavingsResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorDetail": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"$ref": "#/definitions/handlers.ErrorDetail"}}
        },
        "handlers.RegisterRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string", "maxLength": 255},
                "password": {"type": "string", "maxLength": 128, "minLength": 8},
                "first_name": {"type": "string", "maxLength": 100},
                "last_name": {"type": "string", "maxLength": 100},
                "currency": {"type": "string"}
            }
        },
        "handlers.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "handlers.UserResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "currency": {"type": "string"}
            }
        },
        "handlers.AuthResponse": {
            "type": "object",
            "properties": {"token": {"type": "string"}, "user": {"$ref": "#/definitions/handlers.UserResponse"}}
        },
        "handlers.SetBudgetRequest": {
            "type": "object",
            "required": ["amount", "period"],
            "properties": {
                "amount": {"type": "string", "example": "300.00"},
                "period": {"type": "string", "enum": ["daily", "weekly", "monthly"]}
            }
        },
        "handlers.SetBudgetResponse": {
            "type": "object",
            "properties": {"budget": {"$ref": "#/definitions/models.BudgetCycle"}, "message": {"type": "string"}}
        },
        "handlers.CreateExpenseRequest": {
            "type": "object",
            "required": ["amount", "category"],
            "properties": {
                "amount": {"type": "string", "example": "12.50"},
                "category": {"type": "string", "maxLength": 100},
                "description": {"type": "string", "maxLength": 500},
                "date": {"type": "string"}
            }
        },
        "handlers.CreateCategoryRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {"name": {"type": "string", "maxLength": 100}, "icon": {"type": "string", "maxLength": 50}}
        },
        "handlers.SavingsResponse": {
            "type": "object",
            "properties": {"balance": {"type": "string", "example": "170.00"}}
        },
        "models.BudgetCycle": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "amount": {"type": "string"},
                "period": {"type": "string", "enum": ["daily", "weekly", "monthly"]},
                "started_at": {"type": "string"},
                "archived": {"type": "boolean"},
                "archived_at": {"type": "string"},
                "spent": {"type": "string"},
                "credited": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.Category": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "name": {"type": "string"},
                "icon": {"type": "string"}
            }
        },
        "models.Expense": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "category_id": {"type": "string"},
                "amount": {"type": "string"},
                "description": {"type": "string"},
                "date": {"type": "string"},
                "category": {"$ref": "#/definitions/models.Category"}
            }
        },
        "services.BudgetView": {
            "type": "object",
            "properties": {
                "budget": {"$ref": "#/definitions/models.BudgetCycle"},
                "is_editable": {"type": "boolean"},
                "ends_at": {"type": "string"},
                "spent_so_far": {"type": "string"},
                "remaining": {"type": "string"},
                "savings_balance": {"type": "string"}
            }
        },
        "pagination.PageResponse-models_BudgetCycle": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/models.BudgetCycle"}},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_items": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "pagination.PageResponse-models_Expense": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/models.Expense"}},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_items": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
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
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Spendwise API",
	Description:      "Spendwise tracks expenses against a recurring budget and moves whatever is left at the end of each period into savings.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
