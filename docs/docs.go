package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "description": "Daymark API Documentation",
        "title": "Daymark API",
        "version": "1.0"
    },
    "host": "localhost:8080",
    "basePath": "/api/v1",
    "schemes": ["http"],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Health Check",
                "description": "Check if server is running",
                "responses": {
                    "200": {
                        "description": "Server is healthy"
                    }
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register account",
                "description": "Create a new account and receive tokens",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {
                        "in": "body",
                        "name": "user",
                        "description": "Registration details",
                        "required": true,
                        "schema": {
                            "type": "object",
                            "properties": {
                                "email": {
                                    "type": "string",
                                    "example": "ada@daymark.dev"
                                },
                                "password": {
                                    "type": "string",
                                    "example": "correct-horse-battery"
                                },
                                "display_name": {
                                    "type": "string",
                                    "example": "Ada"
                                }
                            }
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Account created"
                    },
                    "409": {
                        "description": "Email already registered"
                    }
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Login",
                "description": "Authenticate with email and password",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {
                        "in": "body",
                        "name": "credentials",
                        "description": "Login credentials",
                        "required": true,
                        "schema": {
                            "type": "object",
                            "properties": {
                                "email": {
                                    "type": "string",
                                    "example": "ada@daymark.dev"
                                },
                                "password": {
                                    "type": "string",
                                    "example": "correct-horse-battery"
                                }
                            }
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Login successful"
                    },
                    "401": {
                        "description": "Invalid credentials"
                    }
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh tokens",
                "description": "Exchange a refresh token for new tokens",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "200": {
                        "description": "Tokens refreshed"
                    },
                    "401": {
                        "description": "Invalid refresh token"
                    }
                }
            }
        },
        "/tasks": {
            "get": {
                "tags": ["Tasks"],
                "summary": "List tasks",
                "description": "List tasks in display order. Anonymous callers see the shared guest list.",
                "produces": ["application/json"],
                "responses": {
                    "200": {
                        "description": "Task list with loading flag and storage mode"
                    }
                }
            },
            "post": {
                "tags": ["Tasks"],
                "summary": "Create task",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "201": {
                        "description": "Task created"
                    },
                    "400": {
                        "description": "Invalid task"
                    }
                }
            }
        },
        "/tasks/order": {
            "put": {
                "tags": ["Tasks"],
                "summary": "Reorder tasks",
                "description": "Replace the display order. The body must list every task id exactly once.",
                "consumes": ["application/json"],
                "responses": {
                    "204": {
                        "description": "Order applied"
                    },
                    "400": {
                        "description": "ID set does not match current tasks"
                    }
                }
            }
        },
        "/tasks/stream": {
            "get": {
                "tags": ["Tasks"],
                "summary": "Stream task snapshots",
                "description": "Server-sent events: the current snapshot first, then one event per change.",
                "produces": ["text/event-stream"],
                "responses": {
                    "200": {
                        "description": "Event stream"
                    }
                }
            }
        },
        "/notes": {
            "get": {
                "tags": ["Notes"],
                "summary": "List notes",
                "produces": ["application/json"],
                "responses": {
                    "200": {
                        "description": "Notes, newest first"
                    }
                }
            },
            "post": {
                "tags": ["Notes"],
                "summary": "Create note",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "201": {
                        "description": "Note created"
                    }
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Type 'Bearer' followed by a space and JWT token"
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "Daymark API",
	Description:      "Daymark API Documentation",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
